// Command quarks compiles quarks programs to x86-64 NASM assembly and runs
// them.
package main

import (
	"fmt"
	"log"
	"os"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `quarks - a tiny language that compiles to x86-64 assembly

Usage:
    quarks <command> [arguments]

Commands:
    build <file>       Compile a .qs file to NASM assembly
    run <file>         Compile and execute a .qs file
    eval <code>        Evaluate inline quarks code
    check <file>...    Compile files and report errors
    repl               Start an interactive session
    help               Show this help message

Examples:
    quarks build -link sample/test.qs
    quarks run sample/test.qs
    quarks eval 'exit((2 + 3) * 4);'
    quarks check sample/*.qs

Use "quarks <command> -h" for more information about a command.
`)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("quarks: ")

	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		os.Exit(buildCommand(args))
	case "run":
		os.Exit(runCommand(args))
	case "eval":
		os.Exit(evalCommand(args))
	case "check":
		os.Exit(checkCommand(args))
	case "repl":
		os.Exit(replCommand(args))
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}

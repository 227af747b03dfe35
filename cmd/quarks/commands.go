package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/strager/quarks"
	"github.com/strager/quarks/x64sim"
)

func buildCommand(args []string) int {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	output := fs.String("o", "", "Output file path (default: <filename>.asm)")
	link := fs.Bool("link", false, "Assemble with nasm and link with ld")
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	arena := fs.Int("arena", quarks.DefaultArenaCapacity, "AST arena capacity in bytes")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quarks build [-o output] [-link] [-v] [-arena bytes] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile a .qs file to NASM assembly\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		return 1
	}

	filename := fs.Arg(0)
	outputFile := *output
	if outputFile == "" {
		outputFile = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".asm"
	}

	if *verbose {
		fmt.Printf("Compiling %s to %s...\n", filename, outputFile)
	}

	result, err := compileFile(filename, *verbose, quarks.WithArenaCapacity(*arena))
	if err != nil {
		return 1
	}

	if err := os.WriteFile(outputFile, []byte(result.Assembly), 0644); err != nil {
		log.Printf("writing %s: %v", outputFile, err)
		return 1
	}
	fmt.Printf("Generated %s (%d bytes)\n", outputFile, len(result.Assembly))

	if *link {
		executable, err := assembleAndLink(outputFile, *verbose)
		if err != nil {
			log.Print(err)
			return 1
		}
		fmt.Printf("Linked %s\n", executable)
	}
	return 0
}

// assembleAndLink turns foo.asm into foo.o and the executable foo.
func assembleAndLink(asmFile string, verbose bool) (string, error) {
	base := strings.TrimSuffix(asmFile, filepath.Ext(asmFile))
	objectFile := base + ".o"

	steps := [][]string{
		{"nasm", "-felf64", asmFile, "-o", objectFile},
		{"ld", "-o", base, objectFile},
	}
	for _, step := range steps {
		if verbose {
			fmt.Printf("Running %s\n", strings.Join(step, " "))
		}
		cmd := exec.Command(step[0], step[1:]...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return "", fmt.Errorf("%s failed: %w", step[0], err)
		}
	}
	return base, nil
}

func runCommand(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quarks run [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile and execute a .qs file; exits with the program's status\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		return 1
	}

	filename := fs.Arg(0)
	if *verbose {
		fmt.Printf("Compiling %s...\n", filename)
	}

	result, err := compileFile(filename, *verbose)
	if err != nil {
		return 1
	}

	if *verbose {
		fmt.Printf("Generated %d bytes of assembly\n", len(result.Assembly))
		fmt.Printf("Executing...\n")
	}

	run, err := x64sim.Execute(result.Assembly)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Execution failed: %v\n", err)
		return 1
	}
	if *verbose {
		fmt.Printf("Exited with status %d after %d instructions\n", run.ExitStatus, run.Steps)
	}
	return int(run.ExitStatus)
}

func evalCommand(args []string) int {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quarks eval [-v] <code>\n")
		fmt.Fprintf(os.Stderr, "Evaluate inline quarks code and print its exit status\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one code argument\n")
		fs.Usage()
		return 1
	}

	code := fs.Arg(0)
	if *verbose {
		fmt.Printf("Evaluating: %s\n", code)
	}

	status, err := evalSource(code, traceWriter(*verbose))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	fmt.Println(status)
	return 0
}

// evalSource compiles and runs a whole program and returns its exit status.
func evalSource(code string, trace io.Writer) (uint8, error) {
	var opts []quarks.Option
	if trace != nil {
		opts = append(opts, quarks.WithTrace(trace))
	}
	asm, err := quarks.CompileToAssembly(code, opts...)
	if err != nil {
		return 0, fmt.Errorf("compilation failed: %w", err)
	}
	result, err := x64sim.Execute(asm)
	if err != nil {
		return 0, fmt.Errorf("execution failed: %w", err)
	}
	return result.ExitStatus, nil
}

func checkCommand(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose checking details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quarks check [-v] <file>...\n")
		fmt.Fprintf(os.Stderr, "Compile each file and report errors without writing output\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: expected at least one file argument\n")
		fs.Usage()
		return 1
	}

	failed := checkFiles(os.Stdout, fs.Args(), *verbose)
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed\n", failed, fs.NArg())
		return 1
	}
	return 0
}

// checkFiles compiles every file, keeps going after failures and returns the
// number of files that did not compile.
func checkFiles(w io.Writer, filenames []string, verbose bool) int {
	failed := 0
	for _, filename := range filenames {
		source, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", filename, err)
			failed++
			continue
		}
		result, err := quarks.Compile(string(source))
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", filename, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "%s: no errors found\n", filename)
		if verbose {
			fmt.Fprintf(w, "AST: %s\n", quarks.ToSExpr(result.Program))
		}
	}
	return failed
}

// compileFile reads and compiles filename, reporting failures on stderr.
func compileFile(filename string, verbose bool, opts ...quarks.Option) (*quarks.Result, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		log.Printf("reading %s: %v", filename, err)
		return nil, err
	}

	if w := traceWriter(verbose); w != nil {
		opts = append(opts, quarks.WithTrace(w))
	}
	result, err := quarks.Compile(string(source), opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: compilation failed: %v\n", filename, err)
		return nil, err
	}
	return result, nil
}

func traceWriter(verbose bool) io.Writer {
	if verbose {
		return os.Stdout
	}
	return nil
}

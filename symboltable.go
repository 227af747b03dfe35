package quarks

// SymbolInfo is one live variable.
type SymbolInfo struct {
	Name string
	// Depth is the logical stack size when the variable's slot was pushed.
	Depth int
	Line  int
}

// SymbolTable tracks live variables in declaration order together with the
// scope watermarks that say which of them to drop on scope exit.
type SymbolTable struct {
	variables []SymbolInfo
	scopes    []int // len(variables) at each open scope's entry
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{}
}

// DeclareVariable records a variable whose slot sits at depth. Any live
// variable of the same name is a conflict, even one declared in an enclosing
// scope.
func (st *SymbolTable) DeclareVariable(name string, depth int, line int) error {
	if st.LookupVariable(name) != nil {
		return &SemanticError{Kind: DuplicateIdentifier, Name: name, Line: line}
	}
	st.variables = append(st.variables, SymbolInfo{Name: name, Depth: depth, Line: line})
	return nil
}

// LookupVariable returns the innermost live variable with the given name, or
// nil.
func (st *SymbolTable) LookupVariable(name string) *SymbolInfo {
	for i := len(st.variables) - 1; i >= 0; i-- {
		if st.variables[i].Name == name {
			return &st.variables[i]
		}
	}
	return nil
}

// EnterScope pushes a watermark.
func (st *SymbolTable) EnterScope() {
	st.scopes = append(st.scopes, len(st.variables))
}

// ExitScope forgets every variable declared since the matching EnterScope and
// returns how many there were.
func (st *SymbolTable) ExitScope() int {
	if len(st.scopes) == 0 {
		panic("ExitScope without EnterScope")
	}
	mark := st.scopes[len(st.scopes)-1]
	st.scopes = st.scopes[:len(st.scopes)-1]
	dropped := len(st.variables) - mark
	st.variables = st.variables[:mark]
	return dropped
}

// Len returns the number of live variables.
func (st *SymbolTable) Len() int {
	return len(st.variables)
}

// ScopeDepth returns the number of open scopes.
func (st *SymbolTable) ScopeDepth() int {
	return len(st.scopes)
}

package symtable

import (
	"fmt"

	"microc/internal/ctype"
)

// localScope holds a function body's arguments and locals: a stack-frame
// offset counter, a back-reference to its parent scope, the function id it
// belongs to, and that function's return type.
type localScope struct {
	vars      map[string]*Variable
	parentID  int
	funcID    int
	argOffset int
	varOffset int
	retType   ctype.Type
}

func newLocalScope(parentID, funcID int, retType ctype.Type) *localScope {
	return &localScope{
		vars:      make(map[string]*Variable),
		parentID:  parentID,
		funcID:    funcID,
		argOffset: ArgOffset,
		varOffset: VarOffset,
		retType:   retType,
	}
}

func (l *localScope) addSymbol(name string, typ ctype.Type, kind SymbolKind, _ string) (*Variable, error) {
	var v *Variable
	switch kind {
	case Argument:
		l.argOffset += 4
		v = &Variable{Type: typ, Addr: l.argOffset, Kind: Argument}
	case Local:
		l.varOffset -= 4
		v = &Variable{Type: typ, Addr: l.varOffset, Kind: Local}
	default:
		return nil, errWrongScope(fmt.Sprintf("add_symbol(kind=%s)", kind), "local")
	}
	l.vars[name] = v
	return v, nil
}

func (l *localScope) getSymbol(name string) (Entry, bool) {
	v, ok := l.vars[name]
	return v, ok
}

func (l *localScope) getParent() (int, bool) { return l.parentID, true }

func (l *localScope) addFunction(string, ctype.Type, []ctype.Type) (*Function, error) {
	return nil, errWrongScope("add_function", "local")
}

func (l *localScope) addSubscope(int) error {
	return errWrongScope("add_subscope", "local")
}

func (l *localScope) setFunctionScope(string, int) error {
	return errWrongScope("set_function_scope", "local")
}

func (l *localScope) getFunction(string) (*Function, bool) { return nil, false }

func (l *localScope) stringsInAsm() string { return "" }

func (l *localScope) function() (int, error)          { return l.funcID, nil }
func (l *localScope) returnType() (ctype.Type, error) { return l.retType, nil }

// localsDeclared reports whether any local was declared (var_offset < 0),
// the signal the 3AC lowering pass uses to decide whether a function needs a
// prologue Alloc instruction.
func (l *localScope) localsDeclared() bool { return l.varOffset < 0 }

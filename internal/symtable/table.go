// Package symtable implements the Micro-C symbol table: nested lexical
// scopes and the fixed address/offset layout assigned to globals, string
// literals, arguments, and locals.
package symtable

import (
	"fmt"

	"microc/internal/ctype"
)

// Table owns every scope in a compilation, addressed by a stable integer id.
// The root (global) scope is always id 0.
type Table struct {
	scopes []scope
	curr   int
}

// New returns a Table seeded with just the global scope as current.
func New() *Table {
	return &Table{scopes: []scope{newGlobalScope()}, curr: 0}
}

// Current returns the active scope id.
func (t *Table) Current() int { return t.curr }

// SwitchScope bounds-checks and relocates the current scope; used during
// 3AC lowering to revisit a function's body scope.
func (t *Table) SwitchScope(id int) error {
	if id < 0 || id >= len(t.scopes) {
		return fmt.Errorf("symtable: scope %d out of range", id)
	}
	t.curr = id
	return nil
}

// PushScope allocates a new local scope for fn's body, links it as a child
// of the current (which must be global), records the function's home scope,
// and switches current to the new scope. Returns the new scope id.
func (t *Table) PushScope(fn *Function, name string, returnType ctype.Type) (int, error) {
	g, ok := t.scopes[t.curr].(*globalScope)
	if !ok {
		return 0, fmt.Errorf("symtable: push_scope called from a non-global scope")
	}
	newID := len(t.scopes)
	t.scopes = append(t.scopes, newLocalScope(t.curr, fn.ID, returnType))
	if err := g.addSubscope(newID); err != nil {
		return 0, err
	}
	if err := g.setFunctionScope(name, newID); err != nil {
		return 0, err
	}
	t.curr = newID
	return newID, nil
}

// PopScope moves current to its parent; error if already at global.
func (t *Table) PopScope() error {
	parent, ok := t.scopes[t.curr].getParent()
	if !ok {
		return fmt.Errorf("symtable: cannot pop the global scope")
	}
	t.curr = parent
	return nil
}

// AddFunction declares (or verifies, if already declared) a function symbol
// in the global scope.
func (t *Table) AddFunction(name string, ret ctype.Type, args []ctype.Type) (*Function, error) {
	return t.scopes[0].addFunction(name, ret, args)
}

// AddSymbol assigns an address/offset to a new symbol in the current scope.
func (t *Table) AddSymbol(name string, typ ctype.Type, kind SymbolKind) (*Variable, error) {
	return t.scopes[t.curr].addSymbol(name, typ, kind, "")
}

// AddString assigns a string-table address to a string literal, stored in
// the global scope.
func (t *Table) AddString(name, literal string) (*Variable, error) {
	return t.scopes[0].addSymbol(name, ctype.NewStr(), Str, literal)
}

// GetScope walks the parent chain from the current scope and returns the id
// of the nearest scope defining name.
func (t *Table) GetScope(name string) (int, error) {
	id := t.curr
	for {
		if _, ok := t.scopes[id].getSymbol(name); ok {
			return id, nil
		}
		parent, ok := t.scopes[id].getParent()
		if !ok {
			return 0, fmt.Errorf("symtable: undefined symbol %q", name)
		}
		id = parent
	}
}

// GetSymbol walks the parent chain from the current scope and returns the
// entry defining name.
func (t *Table) GetSymbol(name string) (Entry, error) {
	id, err := t.GetScope(name)
	if err != nil {
		return nil, err
	}
	e, _ := t.scopes[id].getSymbol(name)
	return e, nil
}

// GetSymbolInScope looks up name directly in scope id, without walking up.
func (t *Table) GetSymbolInScope(name string, id int) (Entry, error) {
	if id < 0 || id >= len(t.scopes) {
		return nil, fmt.Errorf("symtable: scope %d out of range", id)
	}
	e, ok := t.scopes[id].getSymbol(name)
	if !ok {
		return nil, fmt.Errorf("symtable: no symbol %q in scope %d", name, id)
	}
	return e, nil
}

// GetFunction looks up a function declaration by name in the global scope.
func (t *Table) GetFunction(name string) (*Function, error) {
	f, ok := t.scopes[0].getFunction(name)
	if !ok {
		return nil, fmt.Errorf("symtable: undefined function %q", name)
	}
	return f, nil
}

// GetScopeCType returns the return type owned by local scope id.
func (t *Table) GetScopeCType(id int) (ctype.Type, error) {
	if id < 0 || id >= len(t.scopes) {
		return ctype.Type{}, fmt.Errorf("symtable: scope %d out of range", id)
	}
	return t.scopes[id].returnType()
}

// GetScopeFunction returns the owning function id of local scope id.
func (t *Table) GetScopeFunction(id int) (int, error) {
	if id < 0 || id >= len(t.scopes) {
		return 0, fmt.Errorf("symtable: scope %d out of range", id)
	}
	return t.scopes[id].function()
}

// LocalsDeclared reports whether local scope id declared any Local symbols
// (var_offset < 0), the signal the function prologue uses to decide whether
// to emit an Alloc instruction.
func (t *Table) LocalsDeclared(id int) (bool, error) {
	if id < 0 || id >= len(t.scopes) {
		return false, fmt.Errorf("symtable: scope %d out of range", id)
	}
	ls, ok := t.scopes[id].(*localScope)
	if !ok {
		return false, fmt.Errorf("symtable: scope %d is not a local scope", id)
	}
	return ls.localsDeclared(), nil
}

// FrameSize returns the byte count a function's local scope reserves, for
// use by the Alloc instruction (|var_offset|).
func (t *Table) FrameSize(id int) (int, error) {
	if id < 0 || id >= len(t.scopes) {
		return 0, fmt.Errorf("symtable: scope %d out of range", id)
	}
	ls, ok := t.scopes[id].(*localScope)
	if !ok {
		return 0, fmt.Errorf("symtable: scope %d is not a local scope", id)
	}
	if ls.varOffset >= 0 {
		return 0, nil
	}
	return -ls.varOffset, nil
}

// StringsInAsm concatenates "0x{addr:08x} {literal}\n" for every string
// entry in the global scope, in insertion order.
func (t *Table) StringsInAsm() string {
	return t.scopes[0].stringsInAsm()
}

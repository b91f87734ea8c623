package ast

import (
	"microc/internal/ctype"
	"microc/internal/lexer"
)

// buildCall looks up name in the global scope, set_type's each argument to
// its declared parameter type, and checks arity. The resulting node carries
// the callee's return type and declaring (body) scope, per the Calls
// contract.
func (b *Builder) buildCall(name string, args []Node) (Node, error) {
	fn, err := b.Table.GetFunction(name)
	if err != nil {
		return nil, err
	}
	if len(args) != len(fn.Args) {
		return nil, typeErrorf("type error: function %q called with %d arguments, want %d", name, len(args), len(fn.Args))
	}
	for i, want := range fn.Args {
		if !args[i].CType().Equal(want) {
			if err := SetType(args[i], want); err != nil {
				return nil, typeErrorf("type error: argument %d to %q: %w", i+1, name, err)
			}
		}
	}
	return &Call{Name: name, Args: args, Typ: fn.ReturnType, CalleeID: fn.ID, CalleeScope: fn.ScopeID}, nil
}

// buildRead parses `read(x)`: x is an assignment target (the lvalue
// climber), and the node's type mirrors x's.
func (b *Builder) buildRead(toks []lexer.Token) (Node, error) {
	target, err := b.FromLval(toks)
	if err != nil {
		return nil, err
	}
	typ, err := StripCType(target)
	if err != nil {
		return nil, err
	}
	return &Read{Target: target, Typ: typ}, nil
}

// buildPrint parses `print(e)`: e is a value expression.
func (b *Builder) buildPrint(toks []lexer.Token) (Node, error) {
	e, err := b.FromExpr(toks)
	if err != nil {
		return nil, err
	}
	return &Write{Expr: e, Typ: e.CType()}, nil
}

// buildMallocStmt parses a bare `malloc(e);` statement — the allocated
// pointer is simply discarded, the same as `free`/`print` at statement
// level.
func (b *Builder) buildMallocStmt(toks []lexer.Token) (Node, error) {
	size, err := b.FromExpr(toks)
	if err != nil {
		return nil, err
	}
	return &Malloc{Size: size, Typ: ctype.NewPtr(ctype.NewVoid())}, nil
}

// buildFree parses `free(p)`: p must be a pointer value.
func (b *Builder) buildFree(toks []lexer.Token) (Node, error) {
	e, err := b.FromExpr(toks)
	if err != nil {
		return nil, err
	}
	if e.CType().Kind != ctype.Ptr {
		return nil, typeErrorf("type error: free() requires a pointer operand, got %s", e.CType())
	}
	return &Free{Expr: e}, nil
}

package ast

import (
	"fmt"

	"microc/internal/ctype"
	"microc/internal/lexer"
	"microc/internal/parsetree"
	"microc/internal/symtable"
)

// Build walks prog's declarations in source order — global variables,
// strings, function prototypes, and function definitions — constructing the
// symbol table as it goes (so a later declaration sees an earlier one, but
// not vice versa: Micro-C has no forward references except a function
// calling itself) and returns the typed Function nodes plus the finished
// Table.
func Build(prog *parsetree.Program) ([]*Function, *symtable.Table, error) {
	tab := symtable.New()
	b := &Builder{Table: tab}
	var fns []*Function
	for _, d := range prog.Decls {
		switch d.Rule {
		case parsetree.RuleVarDecl:
			if _, err := tab.AddSymbol(d.Name, toCType(d.Type), symtable.Global); err != nil {
				return nil, nil, err
			}
		case parsetree.RuleStrDecl:
			if _, err := tab.AddString(d.Name, d.StrValue); err != nil {
				return nil, nil, err
			}
		case parsetree.RuleFuncDecl:
			if _, err := b.declareFunction(d); err != nil {
				return nil, nil, err
			}
		case parsetree.RuleFuncDef:
			fn, err := b.fromFunction(d)
			if err != nil {
				return nil, nil, err
			}
			fns = append(fns, fn)
		default:
			return nil, nil, fmt.Errorf("ast: unexpected top-level rule %s", d.Rule)
		}
	}
	return fns, tab, nil
}

func toCType(te parsetree.TypeExpr) ctype.Type {
	var base ctype.Type
	switch te.Base {
	case lexer.TokenInt:
		base = ctype.NewInt()
	case lexer.TokenFloat:
		base = ctype.NewFloat()
	case lexer.TokenVoid:
		base = ctype.NewVoid()
	case lexer.TokenString:
		base = ctype.NewStr()
	}
	for i := 0; i < te.Stars; i++ {
		base = ctype.NewPtr(base)
	}
	return base
}

func paramTypes(params []parsetree.Param) []ctype.Type {
	types := make([]ctype.Type, len(params))
	for i, p := range params {
		types[i] = toCType(p.Type)
	}
	return types
}

func (b *Builder) declareFunction(d *parsetree.Node) (*symtable.Function, error) {
	return b.Table.AddFunction(d.Name, toCType(d.Type), paramTypes(d.Params))
}

// fromFunction is the driver that consumes a func_def parse-tree node:
// declare-or-verify the signature, push a local scope, insert arguments,
// insert locals, build the body, pop the scope.
func (b *Builder) fromFunction(d *parsetree.Node) (*Function, error) {
	retType := toCType(d.Type)
	pt := paramTypes(d.Params)

	fn, err := b.Table.AddFunction(d.Name, retType, pt)
	if err != nil {
		return nil, err
	}

	scopeID, err := b.Table.PushScope(fn, d.Name, retType)
	if err != nil {
		return nil, err
	}

	for i, p := range d.Params {
		if _, err := b.Table.AddSymbol(p.Name, pt[i], symtable.Argument); err != nil {
			return nil, err
		}
	}
	for _, vd := range d.VarDecls {
		if _, err := b.Table.AddSymbol(vd.Name, toCType(vd.Type), symtable.Local); err != nil {
			return nil, err
		}
	}

	stmts, err := b.fromStatements(d.Body, retType)
	if err != nil {
		return nil, err
	}

	if err := b.Table.PopScope(); err != nil {
		return nil, err
	}

	return &Function{
		Name:       d.Name,
		ID:         fn.ID,
		ReturnType: retType,
		ParamTypes: pt,
		ScopeID:    scopeID,
		Body:       &StatementList{Stmts: stmts},
	}, nil
}

func (b *Builder) fromStatements(nodes []*parsetree.Node, retType ctype.Type) ([]Node, error) {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		stmt, err := b.fromStatement(n, retType)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

func (b *Builder) fromStatement(n *parsetree.Node, retType ctype.Type) (Node, error) {
	switch n.Rule {
	case parsetree.RuleIfStmt:
		cond, err := b.FromCond(n.Cond)
		if err != nil {
			return nil, err
		}
		thenStmts, err := b.fromStatements(n.Then, retType)
		if err != nil {
			return nil, err
		}
		var elseNode Node = &Empty{}
		if n.Else != nil {
			elseStmts, err := b.fromStatements(n.Else, retType)
			if err != nil {
				return nil, err
			}
			elseNode = &StatementList{Stmts: elseStmts}
		}
		return &IfElse{Cond: cond, Then: &StatementList{Stmts: thenStmts}, Else: elseNode}, nil

	case parsetree.RuleWhileStmt:
		cond, err := b.FromCond(n.Cond)
		if err != nil {
			return nil, err
		}
		body, err := b.fromStatements(n.Then, retType)
		if err != nil {
			return nil, err
		}
		return &While{Cond: cond, Body: &StatementList{Stmts: body}}, nil

	case parsetree.RuleReturnStmt:
		return b.fromReturn(n, retType)

	case parsetree.RuleAssignStmt:
		return b.fromAssign(n)

	case parsetree.RuleCallStmt:
		return b.fromCallStatement(n)

	default:
		return nil, fmt.Errorf("ast: line %d: unexpected statement rule %s", n.Line, n.Rule)
	}
}

func (b *Builder) fromReturn(n *parsetree.Node, retType ctype.Type) (Node, error) {
	if len(n.Value) == 0 {
		if retType.Kind != ctype.Void {
			return nil, typeErrorf("type error: line %d: non-void function must return a value", n.Line)
		}
		return &Return{Typ: retType}, nil
	}
	if retType.Kind == ctype.Void {
		return nil, typeErrorf("type error: line %d: void function must not return a value", n.Line)
	}
	val, err := b.FromExpr(n.Value)
	if err != nil {
		return nil, err
	}
	if err := SetType(val, retType); err != nil {
		return nil, typeErrorf("type error: line %d: return value: %w", n.Line, err)
	}
	return &Return{Value: val, Typ: retType}, nil
}

// fromAssign: the LHS is parsed by the lvalue climber; the assignee type is
// StripCType(lhs), and the RHS is coerced to that type via Cast for
// arithmetic base types and SetType otherwise.
func (b *Builder) fromAssign(n *parsetree.Node) (Node, error) {
	lhs, err := b.FromLval(n.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := b.FromExpr(n.RHS)
	if err != nil {
		return nil, err
	}
	assigneeType, err := StripCType(lhs)
	if err != nil {
		return nil, err
	}
	rhs, err = coerceTo(rhs, assigneeType)
	if err != nil {
		return nil, typeErrorf("type error: line %d: assignment: %w", n.Line, err)
	}
	return &Assign{LHS: lhs, RHS: rhs, Typ: assigneeType}, nil
}

func (b *Builder) fromCallStatement(n *parsetree.Node) (Node, error) {
	switch n.CallKind {
	case parsetree.CallFunc:
		args := make([]Node, 0, len(n.Args))
		for _, toks := range n.Args {
			arg, err := b.FromExpr(toks)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return b.buildCall(n.CallName, args)
	case parsetree.CallRead:
		return b.buildRead(n.Arg)
	case parsetree.CallPrint:
		return b.buildPrint(n.Arg)
	case parsetree.CallFree:
		return b.buildFree(n.Arg)
	case parsetree.CallMalloc:
		return b.buildMallocStmt(n.Arg)
	default:
		return nil, fmt.Errorf("ast: line %d: unknown call kind", n.Line)
	}
}

// coerceTo coerces n to target: a Cast for an Int/Float base-type mismatch,
// a SetType retyping otherwise (e.g. malloc's Ptr(Void) to a concrete
// pointer type, or Int to Ptr(_)).
func coerceTo(n Node, target ctype.Type) (Node, error) {
	if n.CType().Equal(target) {
		return n, nil
	}
	isBase := func(t ctype.Type) bool { return t.Kind == ctype.Int || t.Kind == ctype.Float }
	if isBase(n.CType()) && isBase(target) {
		return CastTo(n, target), nil
	}
	if err := SetType(n, target); err != nil {
		return nil, err
	}
	return n, nil
}

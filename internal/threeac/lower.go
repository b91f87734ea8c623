package threeac

import (
	"fmt"

	"microc/internal/ast"
	"microc/internal/ctype"
	"microc/internal/symtable"
)

// Lowerer walks a typed AST and produces a flat 3AC instruction stream,
// mutating Table (scope switches during Function lowering) and count (temp
// and label counters) as it goes: one function per AST node kind,
// dispatched by type rather than a visitor, matching how internal/ast
// itself is encoded.
type Lowerer struct {
	Table   *symtable.Table
	count   Count
	funcID  int // the function currently being lowered, for Return's Jump target
}

func NewLowerer(table *symtable.Table) *Lowerer {
	return &Lowerer{Table: table}
}

func bankOf(t ctype.Type) Bank {
	if t.Kind == ctype.Float {
		return F
	}
	return T
}

// Program lowers the whole program — the top-level AST is simply the
// sequence of function definitions — and wraps the result per the
// wrap-up contract: HeaderText naming main's entry label, the lowered
// functions, HeaderStrings. optimize() is left to the caller (Optimize in
// optimize.go) so a test can inspect the pre-optimization stream.
func (lw *Lowerer) Program(fns []*ast.Function) ([]Instruction, error) {
	mainFn, err := lw.Table.GetFunction("main")
	if err != nil {
		return nil, fmt.Errorf("threeac: %w", err)
	}

	var out []Instruction
	for _, fn := range fns {
		instrs, err := lw.Function(fn)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	}

	wrapped := make([]Instruction, 0, len(out)+2)
	wrapped = append(wrapped, Instruction{Variant: HeaderText, Lbl: Label{Kind: FunctionHead, N: mainFn.ID}})
	wrapped = append(wrapped, out...)
	wrapped = append(wrapped, Instruction{Variant: HeaderStrings, Text: lw.Table.StringsInAsm()})
	return wrapped, nil
}

// Function resets the temp counters, switches into the function's scope,
// lowers the body, and brackets it with the prologue label (plus an Alloc
// if locals were declared) and the epilogue label/Ret.
func (lw *Lowerer) Function(fn *ast.Function) ([]Instruction, error) {
	lw.count.reset()
	prevFunc := lw.funcID
	lw.funcID = fn.ID
	defer func() { lw.funcID = prevFunc }()

	if err := lw.Table.SwitchScope(fn.ScopeID); err != nil {
		return nil, err
	}

	body, err := lw.Stmt(fn.Body)
	if err != nil {
		return nil, err
	}

	var out []Instruction
	out = append(out, Instruction{Variant: LabelInstr, Lbl: Label{Kind: FunctionHead, N: fn.ID}})
	declared, err := lw.Table.LocalsDeclared(fn.ScopeID)
	if err != nil {
		return nil, err
	}
	if declared {
		frame, err := lw.Table.FrameSize(fn.ScopeID)
		if err != nil {
			return nil, err
		}
		out = append(out, Instruction{Variant: Alloc, Bytes: frame})
	}
	out = append(out, body...)
	out = append(out, Instruction{Variant: LabelInstr, Lbl: Label{Kind: FunctionTail, N: fn.ID}})
	out = append(out, Instruction{Variant: Ret})

	if err := lw.Table.PopScope(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stmt lowers a statement-shaped node: Assign, Free, Read, Write, Return,
// StatementList, IfElse, While, Empty, or a bare Call used as a statement.
// Any operand a child expression produces is discarded — the contract
// requires every statement to emit no usable result.
func (lw *Lowerer) Stmt(n ast.Node) ([]Instruction, error) {
	switch v := n.(type) {
	case *ast.Empty:
		return nil, nil

	case *ast.StatementList:
		var out []Instruction
		for _, s := range v.Stmts {
			instrs, err := lw.Stmt(s)
			if err != nil {
				return nil, err
			}
			out = append(out, instrs...)
		}
		return out, nil

	case *ast.Assign:
		return lw.assign(v)

	case *ast.Free:
		instrs, op, err := lw.Expr(v.Expr)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, Instruction{Variant: FreeInstr, Set: bankOf(v.Expr.CType()), OpDt: op})
		return instrs, nil

	case *ast.Read:
		instrs, op, err := lw.Expr(v.Target)
		if err != nil {
			return nil, err
		}
		if len(instrs) != 0 {
			return nil, fmt.Errorf("threeac: read() target must be a bare variable")
		}
		return []Instruction{{Variant: Get, Set: bankOf(v.Typ), OpDt: op}}, nil

	case *ast.Write:
		instrs, op, err := lw.Expr(v.Expr)
		if err != nil {
			return nil, err
		}
		variant := Put
		if v.Typ.Kind == ctype.Str {
			variant = PutS
		}
		instrs = append(instrs, Instruction{Variant: variant, Set: bankOf(v.Typ), OpDt: op})
		return instrs, nil

	case *ast.Return:
		var out []Instruction
		if v.Value != nil {
			instrs, op, err := lw.Expr(v.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, instrs...)
			out = append(out, Instruction{Variant: Save, Set: bankOf(v.Typ), OpDt: op})
		}
		out = append(out, Instruction{Variant: Jump, Lbl: Label{Kind: FunctionTail, N: lw.funcID}})
		return out, nil

	case *ast.IfElse:
		label := lw.count.nextLabel()
		condInstrs, err := lw.cond(v.Cond, label)
		if err != nil {
			return nil, err
		}
		thenInstrs, err := lw.Stmt(v.Then)
		if err != nil {
			return nil, err
		}
		elseInstrs, err := lw.Stmt(v.Else)
		if err != nil {
			return nil, err
		}
		var out []Instruction
		out = append(out, condInstrs...)
		out = append(out, thenInstrs...)
		out = append(out, Instruction{Variant: Jump, Lbl: Label{Kind: BlockJump, N: label}})
		out = append(out, Instruction{Variant: LabelInstr, Lbl: Label{Kind: BlockBranch, N: label}})
		out = append(out, elseInstrs...)
		out = append(out, Instruction{Variant: LabelInstr, Lbl: Label{Kind: BlockJump, N: label}})
		return out, nil

	case *ast.While:
		label := lw.count.nextLabel()
		condInstrs, err := lw.cond(v.Cond, label)
		if err != nil {
			return nil, err
		}
		bodyInstrs, err := lw.Stmt(v.Body)
		if err != nil {
			return nil, err
		}
		var out []Instruction
		out = append(out, Instruction{Variant: LabelInstr, Lbl: Label{Kind: BlockJump, N: label}})
		out = append(out, condInstrs...)
		out = append(out, bodyInstrs...)
		out = append(out, Instruction{Variant: Jump, Lbl: Label{Kind: BlockJump, N: label}})
		out = append(out, Instruction{Variant: LabelInstr, Lbl: Label{Kind: BlockBranch, N: label}})
		return out, nil

	case *ast.Call:
		instrs, _, err := lw.Expr(v)
		return instrs, err

	case *ast.Malloc:
		instrs, _, err := lw.Expr(v)
		return instrs, err

	default:
		return nil, fmt.Errorf("threeac: node of kind %T is not a statement", n)
	}
}

func (lw *Lowerer) assign(a *ast.Assign) ([]Instruction, error) {
	rhsInstrs, rhsOp, err := lw.Expr(a.RHS)
	if err != nil {
		return nil, err
	}

	if addr, ok := a.LHS.(*ast.Address); ok {
		addrInstrs, addrOp, err := lw.Expr(addr.Expr)
		if err != nil {
			return nil, err
		}
		out := append(addrInstrs, rhsInstrs...)
		out = append(out, Instruction{Variant: AddrAssign, Set: bankOf(a.Typ), OpDt: addrOp, OpM: rhsOp})
		return out, nil
	}

	lhsInstrs, lhsOp, err := lw.Expr(a.LHS)
	if err != nil {
		return nil, err
	}
	out := append(lhsInstrs, rhsInstrs...)
	out = append(out, Instruction{Variant: Assign, Set: bankOf(a.Typ), OpDt: lhsOp, OpM: rhsOp})
	return out, nil
}

// cond lowers a *ast.ConditionalOp into the comparison+branch pair that
// targets BlockBranch(label) on false. It is only ever invoked by IfElse
// and While, immediately after they bump the label counter.
func (lw *Lowerer) cond(n ast.Node, label int) ([]Instruction, error) {
	c, ok := n.(*ast.ConditionalOp)
	if !ok {
		return nil, fmt.Errorf("threeac: condition node must be a comparison, got %T", n)
	}
	lhsInstrs, lhsOp, err := lw.Expr(c.LHS)
	if err != nil {
		return nil, err
	}
	rhsInstrs, rhsOp, err := lw.Expr(c.RHS)
	if err != nil {
		return nil, err
	}
	out := append(lhsInstrs, rhsInstrs...)

	variant := cmpVariant(c.Op)
	bank := bankOf(c.LHS.CType())
	ins := Instruction{Variant: variant, Set: bank, OpM: lhsOp, OpN: rhsOp, Lbl: Label{Kind: BlockBranch, N: label}}
	if bank == F {
		ins.OpDt = lw.count.nextTemp(T)
	} else {
		ins.OpDt = Null
	}
	out = append(out, ins)
	return out, nil
}

func cmpVariant(op ast.CondOp) Variant {
	switch op {
	case ast.Equal:
		return CmpEqual
	case ast.NotEqual:
		return CmpNotEqual
	case ast.Less:
		return CmpLess
	case ast.LessEqual:
		return CmpLessEqual
	case ast.Greater:
		return CmpGreater
	case ast.GreaterEqual:
		return CmpGreaterEqual
	default:
		return CmpEqual
	}
}

func binVariant(op ast.BinOp) Variant {
	switch op {
	case ast.Plus:
		return Plus
	case ast.Minus:
		return Minus
	case ast.Times:
		return Times
	case ast.Divide:
		return Divide
	default:
		return Plus
	}
}

// Expr lowers an expression-shaped node to its instructions plus the
// operand holding its result.
func (lw *Lowerer) Expr(n ast.Node) ([]Instruction, Operand, error) {
	switch v := n.(type) {
	case *ast.IntLit:
		t := lw.count.nextTemp(T)
		return []Instruction{{Variant: Load, Set: T, OpDt: t, IntLit: v.Value}}, t, nil

	case *ast.FloatLit:
		t := lw.count.nextTemp(F)
		return []Instruction{{Variant: Load, Set: F, OpDt: t, FloatLit: v.Value}}, t, nil

	case *ast.Var:
		op, err := lw.varOperand(v)
		if err != nil {
			return nil, Operand{}, err
		}
		return nil, op, nil

	case *ast.BinaryOp:
		lhsInstrs, lhsOp, err := lw.Expr(v.LHS)
		if err != nil {
			return nil, Operand{}, err
		}
		rhsInstrs, rhsOp, err := lw.Expr(v.RHS)
		if err != nil {
			return nil, Operand{}, err
		}
		bank := bankOf(v.Typ)
		dst := lw.count.nextTemp(bank)
		out := append(lhsInstrs, rhsInstrs...)
		out = append(out, Instruction{Variant: binVariant(v.Op), Set: bank, OpDt: dst, OpM: lhsOp, OpN: rhsOp})
		return out, dst, nil

	case *ast.UnaryOp:
		instrs, op, err := lw.Expr(v.Operand)
		if err != nil {
			return nil, Operand{}, err
		}
		bank := bankOf(v.Typ)
		dst := lw.count.nextTemp(bank)
		instrs = append(instrs, Instruction{Variant: Negate, Set: bank, OpDt: dst, OpM: op})
		return instrs, dst, nil

	case *ast.Cast:
		instrs, op, err := lw.Expr(v.Operand)
		if err != nil {
			return nil, Operand{}, err
		}
		bank := bankOf(v.Typ)
		dst := lw.count.nextTemp(bank)
		instrs = append(instrs, Instruction{Variant: Cast, Set: bank, OpDt: dst, OpM: op})
		return instrs, dst, nil

	case *ast.Malloc:
		instrs, op, err := lw.Expr(v.Size)
		if err != nil {
			return nil, Operand{}, err
		}
		dst := lw.count.nextTemp(T)
		instrs = append(instrs, Instruction{Variant: MallocInstr, Set: T, OpDt: dst, OpM: op})
		return instrs, dst, nil

	case *ast.Dereference:
		instrs, op, err := lw.Expr(v.Expr)
		if err != nil {
			return nil, Operand{}, err
		}
		bank := bankOf(v.Typ)
		dst := lw.count.nextTemp(bank)
		instrs = append(instrs, Instruction{Variant: Dereference, Set: bank, OpDt: dst, OpM: op})
		return instrs, dst, nil

	case *ast.Reference:
		instrs, op, err := lw.Expr(v.Expr)
		if err != nil {
			return nil, Operand{}, err
		}
		dst := lw.count.nextTemp(T)
		instrs = append(instrs, Instruction{Variant: Reference, Set: T, OpDt: dst, OpM: op})
		return instrs, dst, nil

	case *ast.Address:
		instrs, op, err := lw.Expr(v.Expr)
		if err != nil {
			return nil, Operand{}, err
		}
		dst := lw.count.nextTemp(T)
		instrs = append(instrs, Instruction{Variant: AddressInstr, Set: T, OpDt: dst, OpM: op})
		return instrs, dst, nil

	case *ast.Call:
		return lw.call(v)

	default:
		return nil, Operand{}, fmt.Errorf("threeac: node of kind %T is not an expression", n)
	}
}

func (lw *Lowerer) varOperand(v *ast.Var) (Operand, error) {
	entry, err := lw.Table.GetSymbolInScope(v.Ident, v.ScopeID)
	if err != nil {
		return Operand{}, err
	}
	variable, ok := entry.(*symtable.Variable)
	if !ok {
		return Operand{}, fmt.Errorf("threeac: symbol %q is not a variable", v.Ident)
	}
	switch variable.Kind {
	case symtable.Global:
		return Global(variable.Addr, bankOf(variable.Type)), nil
	case symtable.Str:
		return Str(variable.Addr), nil
	default: // Local, Argument
		return Local(variable.Addr, bankOf(variable.Type)), nil
	}
}

func (lw *Lowerer) call(c *ast.Call) ([]Instruction, Operand, error) {
	var out []Instruction
	args := make([]Operand, 0, len(c.Args))
	for _, a := range c.Args {
		instrs, op, err := lw.Expr(a)
		if err != nil {
			return nil, Operand{}, err
		}
		out = append(out, instrs...)
		args = append(args, op)
	}
	dst := Null
	bank := bankOf(c.Typ)
	if c.Typ.Kind != ctype.Void {
		dst = lw.count.nextTemp(bank)
	}
	out = append(out, Instruction{
		Variant: Call,
		Set:     bank,
		OpDt:    dst,
		Lbl:     Label{Kind: FunctionHead, N: c.CalleeID},
		Args:    args,
	})
	return out, dst, nil
}

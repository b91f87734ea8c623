// Package ast builds a typed abstract syntax tree from a parsetree.Program,
// performing the precedence-climbed expression/condition/lvalue construction
// and C-style implicit type promotion that is the heart of Micro-C's
// front end.
package ast

import "microc/internal/ctype"

// Node is the closed sum of AST node kinds: statements (Assign, Malloc,
// Free, Read, Write, Return, StatementList, IfElse, While), expressions
// (BinaryOp, ConditionalOp, UnaryOp, Cast, Address, Dereference, Reference),
// functions (Function, Call), leaves (IntLit, FloatLit, Var), and Empty.
// Every non-Empty variant carries a computed result type, even where that
// type is unused by lowering (e.g. Void for a statement), so a caller never
// has to special-case "does this node have a type".
//
// Encoded as a closed interface with one concrete struct per variant
// (an Expr/Accept(visitor)-style pattern, generalized to a plain type
// switch here since nothing in this package needs double dispatch) rather
// than a single struct with a discriminant field — a forgotten case fails
// to compile instead of silently falling through.
type Node interface {
	CType() ctype.Type
	node()
}

type BinOp int

const (
	Plus BinOp = iota
	Minus
	Times
	Divide
)

type CondOp int

const (
	Equal CondOp = iota
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
)

type IntLit struct {
	Value int64
	Typ   ctype.Type
}

type FloatLit struct {
	Value float64
	Typ   ctype.Type
}

// Var is a name resolved to the scope that declares it.
type Var struct {
	Ident   string
	ScopeID int
	Typ     ctype.Type
}

type BinaryOp struct {
	Op       BinOp
	LHS, RHS Node
	Typ      ctype.Type
}

// ConditionalOp never produces a usable value — it lowers directly to a
// comparison-and-branch in 3AC — but invariant 1 requires every non-Empty
// node to carry a type, so it carries Int.
type ConditionalOp struct {
	Op       CondOp
	LHS, RHS Node
	Typ      ctype.Type
}

// UnaryOp is arithmetic negation; its result type equals its operand's.
type UnaryOp struct {
	Operand Node
	Typ     ctype.Type
}

// Cast wraps Operand in an unconditional runtime conversion to Typ.
type Cast struct {
	Operand Node
	Typ     ctype.Type
}

// Address appears only in lvalue context: "the destination is memory at
// this address". Typ equals the pointer type of Expr (not the pointee) —
// StripCType unwraps one level to get the assignee's value type.
type Address struct {
	Expr Node
	Typ  ctype.Type
}

type Dereference struct {
	Expr Node
	Typ  ctype.Type
}

// Reference appears only in expression context for `&x`, producing a
// pointer value. Distinct from Address: see the design note in climbers.go.
type Reference struct {
	Expr Node
	Typ  ctype.Type
}

// Malloc starts out typed Ptr(Void); the surrounding assignment retypes it
// to the target pointer type via SetType.
type Malloc struct {
	Size Node
	Typ  ctype.Type
}

type Call struct {
	Name        string
	Args        []Node
	Typ         ctype.Type
	CalleeID    int
	CalleeScope int
}

// Assign carries the assignee's type (after StripCType, for an Address
// lvalue) purely for invariant 1's sake; lowering dispatches on whether LHS
// is an *Address.
type Assign struct {
	LHS, RHS Node
	Typ      ctype.Type
}

type Free struct {
	Expr Node
}

func (*Free) node() {}

// CType always reports Void for Free: the expression being freed carries
// its own pointer type, but the Free statement itself produces nothing.
func (*Free) CType() ctype.Type { return ctype.NewVoid() }

type Read struct {
	Target Node
	Typ    ctype.Type
}

type Write struct {
	Expr Node
	Typ  ctype.Type
}

// Return carries the function's declared return type (Void for a bare
// `return;`) so the lowering pass — and the type checker — can validate it
// against Value's presence.
type Return struct {
	Value Node // nil for a bare `return;`
	Typ   ctype.Type
}

type StatementList struct {
	Stmts []Node
}

func (*StatementList) node()              {}
func (*StatementList) CType() ctype.Type { return ctype.NewVoid() }

type IfElse struct {
	Cond       Node
	Then, Else Node
}

func (*IfElse) node()              {}
func (*IfElse) CType() ctype.Type { return ctype.NewVoid() }

type While struct {
	Cond Node
	Body Node
}

func (*While) node()              {}
func (*While) CType() ctype.Type { return ctype.NewVoid() }

// Function is one function definition — Build returns the program as a
// slice of these — and the unit 3AC lowering resets its counters on.
type Function struct {
	Name       string
	ID         int
	ReturnType ctype.Type
	ParamTypes []ctype.Type
	ScopeID    int
	Body       Node // *StatementList
}

func (*Function) node()              {}
func (*Function) CType() ctype.Type { return ctype.NewVoid() }

// Empty is the unit "no-op" node — e.g. an IfElse with no else branch.
type Empty struct{}

func (*Empty) node()              {}
func (*Empty) CType() ctype.Type { return ctype.NewVoid() }

func (*IntLit) node()              {}
func (n *IntLit) CType() ctype.Type { return n.Typ }

func (*FloatLit) node()              {}
func (n *FloatLit) CType() ctype.Type { return n.Typ }

func (*Var) node()              {}
func (n *Var) CType() ctype.Type { return n.Typ }

func (*BinaryOp) node()              {}
func (n *BinaryOp) CType() ctype.Type { return n.Typ }

func (*ConditionalOp) node()              {}
func (n *ConditionalOp) CType() ctype.Type { return n.Typ }

func (*UnaryOp) node()              {}
func (n *UnaryOp) CType() ctype.Type { return n.Typ }

func (*Cast) node()              {}
func (n *Cast) CType() ctype.Type { return n.Typ }

func (*Address) node()              {}
func (n *Address) CType() ctype.Type { return n.Typ }

func (*Dereference) node()              {}
func (n *Dereference) CType() ctype.Type { return n.Typ }

func (*Reference) node()              {}
func (n *Reference) CType() ctype.Type { return n.Typ }

func (*Malloc) node()              {}
func (n *Malloc) CType() ctype.Type { return n.Typ }

func (*Call) node()              {}
func (n *Call) CType() ctype.Type { return n.Typ }

func (*Assign) node()              {}
func (n *Assign) CType() ctype.Type { return n.Typ }

func (*Read) node()              {}
func (n *Read) CType() ctype.Type { return n.Typ }

func (*Write) node()              {}
func (n *Write) CType() ctype.Type { return n.Typ }

func (*Return) node()              {}
func (n *Return) CType() ctype.Type { return n.Typ }

// StripCType returns the assignee's value type for an assignment's LHS:
// for an *Address lvalue it unwraps one pointer level (the Address node's
// own type is the pointer type, not the pointee), otherwise it passes the
// node's type through unchanged. Recurses into the inner expression first
// so a nested lvalue (`**p = x`, which the lvalue climber's repeated `*`
// produces as Address{Address{...}}) unwraps one pointer level per nesting
// rather than just one overall.
func StripCType(n Node) (ctype.Type, error) {
	if addr, ok := n.(*Address); ok {
		inner, err := StripCType(addr.Expr)
		if err != nil {
			return ctype.Type{}, err
		}
		t, err := inner.Dereference()
		if err != nil {
			return ctype.Type{}, typeErrorf("type error: %w", err)
		}
		return t, nil
	}
	return n.CType(), nil
}

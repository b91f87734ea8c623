// Package threeac lowers a typed AST into a flat stream of three-address
// instructions, then runs the peephole optimizer over that stream. Operand,
// Instruction, and Label are closed Go structs modeling a tagged union as a
// single Instruction struct carrying a Variant discriminant plus every
// field any variant might need — unused fields for a given variant are
// simply left zero.
package threeac

import "fmt"

// Variant is the closed set of 3AC instruction shapes.
type Variant int

const (
	HeaderText Variant = iota
	HeaderStrings
	AddrAssign
	Assign
	FreeInstr
	Get
	MallocInstr
	Put
	PutS
	Ret
	Save
	Load
	AddressInstr
	Dereference
	Reference
	Plus
	Minus
	Times
	Divide
	Negate
	Cast
	CmpEqual
	CmpNotEqual
	CmpLess
	CmpLessEqual
	CmpGreater
	CmpGreaterEqual
	LabelInstr
	Jump
	Call
	Alloc
	SpillRegisters
)

func (v Variant) String() string {
	switch v {
	case HeaderText:
		return "HeaderText"
	case HeaderStrings:
		return "HeaderStrings"
	case AddrAssign:
		return "AddrAssign"
	case Assign:
		return "Assign"
	case FreeInstr:
		return "Free"
	case Get:
		return "Get"
	case MallocInstr:
		return "Malloc"
	case Put:
		return "Put"
	case PutS:
		return "PutS"
	case Ret:
		return "Ret"
	case Save:
		return "Save"
	case Load:
		return "Load"
	case AddressInstr:
		return "Address"
	case Dereference:
		return "Dereference"
	case Reference:
		return "Reference"
	case Plus:
		return "Plus"
	case Minus:
		return "Minus"
	case Times:
		return "Times"
	case Divide:
		return "Divide"
	case Negate:
		return "Negate"
	case Cast:
		return "Cast"
	case CmpEqual:
		return "Equal"
	case CmpNotEqual:
		return "NotEqual"
	case CmpLess:
		return "Less"
	case CmpLessEqual:
		return "LessEqual"
	case CmpGreater:
		return "Greater"
	case CmpGreaterEqual:
		return "GreaterEqual"
	case LabelInstr:
		return "Label"
	case Jump:
		return "Jump"
	case Call:
		return "Call"
	case Alloc:
		return "Alloc"
	case SpillRegisters:
		return "SpillRegisters"
	default:
		return "?"
	}
}

// Instruction is one 3AC op. Set is the bank (integer/pointer vs float) the
// operands belong to. OpDt/OpM/OpN are the up-to-three operand slots;
// which are meaningful depends on Variant (see the lowering contract and
// the liveness def/use table). Lbl carries the target/defining label for
// HeaderText, the Cmp* variants, LabelInstr, Jump, and Call. Text carries
// the strings-section body for HeaderStrings. IntLit/FloatLit carry Load's
// literal (selected by Set). Args carries Call's argument operands in
// order. Bytes carries Alloc's frame size.
type Instruction struct {
	Variant Variant
	Set     Bank

	OpDt, OpM, OpN Operand

	Lbl  Label
	Text string

	IntLit   int64
	FloatLit float64

	Args []Operand

	Bytes int
}

func (ins Instruction) String() string {
	return fmt.Sprintf("%s(set=%d opdt=%s opm=%s opn=%s lbl=%s)",
		ins.Variant, ins.Set, ins.OpDt, ins.OpM, ins.OpN, ins.Lbl)
}

// IsTerminator reports whether ins ends a basic block per the partitioning
// rule: HeaderText, HeaderStrings, Ret, Jump, Call, or any comparison.
func (ins Instruction) IsTerminator() bool {
	switch ins.Variant {
	case HeaderText, HeaderStrings, Ret, Jump, Call,
		CmpEqual, CmpNotEqual, CmpLess, CmpLessEqual, CmpGreater, CmpGreaterEqual:
		return true
	default:
		return false
	}
}

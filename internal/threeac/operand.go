package threeac

import "fmt"

// OperandKind is the closed set of 3AC operand shapes.
type OperandKind int

const (
	KindGlobal OperandKind = iota
	KindStr
	KindLocal
	KindTemp
	KindTempFloat
	KindNull
)

func (k OperandKind) String() string {
	switch k {
	case KindGlobal:
		return "global"
	case KindStr:
		return "str"
	case KindLocal:
		return "local"
	case KindTemp:
		return "temp"
	case KindTempFloat:
		return "tempfloat"
	case KindNull:
		return "null"
	default:
		return "?"
	}
}

// Bank is the register-file selector an instruction carries: which of the
// two allocator banks (integer/pointer or float) the instruction's operands
// live in.
type Bank int

const (
	T Bank = iota
	F
)

// Operand is Global(addr) | Str(addr) | Local(offset) | Temp(n) |
// TempFloat(n) | Null. Addr holds the address/offset/temp-number depending
// on Kind; it is unused (zero) for Null. Bank carries the operand's
// register bank independently of Kind — a Global or Local naming a float
// variable still has Kind Global/Local but Bank F, so the allocator knows
// which register file to place it in.
type Operand struct {
	Kind OperandKind
	Addr int
	Bank Bank
}

func Global(addr int, bank Bank) Operand  { return Operand{Kind: KindGlobal, Addr: addr, Bank: bank} }
func Str(addr int) Operand                { return Operand{Kind: KindStr, Addr: addr, Bank: T} }
func Local(offset int, bank Bank) Operand { return Operand{Kind: KindLocal, Addr: offset, Bank: bank} }
func Temp(n int) Operand                  { return Operand{Kind: KindTemp, Addr: n, Bank: T} }
func TempFloat(n int) Operand             { return Operand{Kind: KindTempFloat, Addr: n, Bank: F} }

// Null is the absent-operand sentinel — e.g. a comparison's unused opdt in
// the integer case.
var Null = Operand{Kind: KindNull, Bank: T}

// IsVariable reports whether op names a symbol-table variable (Global or
// Local); only these seed a block's live-in set — temps do not.
func (o Operand) IsVariable() bool {
	return o.Kind == KindGlobal || o.Kind == KindLocal
}

// IsSpillable reports whether op participates in liveness/register
// allocation at all; Null never does.
func (o Operand) IsSpillable() bool {
	return o.Kind != KindNull
}

func (o Operand) Equal(other Operand) bool {
	return o == other
}

func (o Operand) String() string {
	switch o.Kind {
	case KindGlobal:
		return fmt.Sprintf("0x%08x", o.Addr)
	case KindStr:
		return fmt.Sprintf("0x%08x", o.Addr)
	case KindLocal:
		return fmt.Sprintf("%d(fp)", o.Addr)
	case KindTemp:
		return fmt.Sprintf("t%d", o.Addr)
	case KindTempFloat:
		return fmt.Sprintf("ft%d", o.Addr)
	default:
		return "null"
	}
}

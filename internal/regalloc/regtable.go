package regalloc

import (
	"fmt"
	"strings"

	"microc/internal/threeac"
)

// regKind distinguishes the two independent register banks.
type regKind int

const (
	regX regKind = iota
	regF
)

// Register names one physical register: xN (integer/pointer) or fN
// (float). x8 is reserved as fp and never appears in the integer bank.
type Register struct {
	kind regKind
	num  int
}

func (r Register) String() string {
	if r.kind == regF {
		return fmt.Sprintf("f%d", r.num)
	}
	return fmt.Sprintf("x%d", r.num)
}

type entry struct {
	operand threeac.Operand
	dirty   bool
}

func (e *entry) reset() {
	e.operand = threeac.Null
	e.dirty = false
}

func (e *entry) isNull() bool {
	return e.operand.Kind == threeac.KindNull
}

// spillText renders the store instruction that writes e's occupant back to
// its backing storage, if e.operand is Global or Local — anything else
// (Temp/TempFloat/Null) has no backing storage and spills to nothing.
func (e *entry) spillText(r Register) string {
	store, la := "SW", "SW"
	if r.kind == regF {
		store = "FSW"
	}
	la = "LA"
	switch e.operand.Kind {
	case threeac.KindGlobal:
		return fmt.Sprintf("%s x3, 0x%08x\n%s %s, 0(x3)\n", la, e.operand.Addr, store, r)
	case threeac.KindLocal:
		return fmt.Sprintf("%s %s, %d(fp)\n", store, r, e.operand.Addr)
	default:
		return ""
	}
}

// RegTable holds the two register banks — a fixed, address-ordered set of
// integer registers x4..x(regCount-1) excluding x8 (fp), and float
// registers f1..f(regCount-1). Uses a parallel sorted-key slice plus a
// plain map rather than an ordered map type, since Go's map has no ordered
// iteration and chooseRegister's tie-breaking depends on register order.
type RegTable struct {
	regularOrder []int
	regular      map[int]*entry
	floatOrder   []int
	float        map[int]*entry
}

func newRegTable(regCount int) (*RegTable, error) {
	if regCount < 8 {
		return nil, fmt.Errorf("regalloc: reg_count %d less than 8", regCount)
	}
	rt := &RegTable{
		regular: make(map[int]*entry),
		float:   make(map[int]*entry),
	}
	for n := 4; n < regCount; n++ {
		if n == 8 {
			continue
		}
		rt.regularOrder = append(rt.regularOrder, n)
		rt.regular[n] = &entry{operand: threeac.Null}
	}
	for n := 1; n < regCount; n++ {
		rt.floatOrder = append(rt.floatOrder, n)
		rt.float[n] = &entry{operand: threeac.Null}
	}
	return rt, nil
}

// SpillRegisters unconditionally spills every dirty register in both banks
// and resets every entry — used at the terminator preamble and whenever a
// Label reopens a new block.
func (rt *RegTable) SpillRegisters() string {
	var out strings.Builder
	for _, n := range rt.regularOrder {
		e := rt.regular[n]
		if e.dirty {
			out.WriteString(e.spillText(Register{regX, n}))
		}
		e.reset()
	}
	for _, n := range rt.floatOrder {
		e := rt.float[n]
		if e.dirty {
			out.WriteString(e.spillText(Register{regF, n}))
		}
		e.reset()
	}
	return out.String()
}

// Ensure returns a register already holding op's value, loading it if
// necessary. A Str operand bypasses the banks entirely: its address is
// always materialized into x3 fresh.
func (rt *RegTable) Ensure(op threeac.Operand, live LiveSet, code *strings.Builder) Register {
	if op.Kind == threeac.KindStr {
		code.WriteString(fmt.Sprintf("LA x3, 0x%08x\n", op.Addr))
		return Register{regX, 3}
	}

	order, bank, isFloat := rt.regularOrder, rt.regular, false
	if isFloatOperand(op) {
		order, bank, isFloat = rt.floatOrder, rt.float, true
	}

	for _, n := range order {
		if bank[n].operand.Equal(op) {
			return Register{kindOf(isFloat), n}
		}
	}

	r := rt.Allocate(op, live, code)
	load := "LW"
	if isFloat {
		load = "FLW"
	}
	switch op.Kind {
	case threeac.KindGlobal:
		code.WriteString(fmt.Sprintf("LA x3, 0x%08x\n%s %s, 0(x3)\n", op.Addr, load, r))
	case threeac.KindLocal:
		code.WriteString(fmt.Sprintf("%s %s, %d(fp)\n", load, r, op.Addr))
	}
	return r
}

// isFloatOperand reports which bank op belongs to via its Bank tag, not its
// Kind — a Global or Local naming a float variable is still float-banked.
func isFloatOperand(op threeac.Operand) bool {
	return op.Bank == threeac.F
}

func kindOf(isFloat bool) regKind {
	if isFloat {
		return regF
	}
	return regX
}

// Allocate picks a register for op via choose_register, frees whatever it
// currently holds (spilling if still live), then claims it for op.
func (rt *RegTable) Allocate(op threeac.Operand, live LiveSet, code *strings.Builder) Register {
	r, ok := rt.chooseRegister(op)
	if !ok {
		return Register{regX, 0}
	}
	rt.Free(r, live, code)
	e := rt.entryFor(r)
	e.operand = op
	e.dirty = false
	return r
}

func (rt *RegTable) entryFor(r Register) *entry {
	if r.kind == regF {
		return rt.float[r.num]
	}
	return rt.regular[r.num]
}

// chooseRegister is a scored single-pass scan equivalent to the original's
// order-sensitive pairwise fold: prefer a register already holding
// operand (a hit — no move needed), else a Null register, else a
// non-dirty register, else the first candidate in register order.
func (rt *RegTable) chooseRegister(operand threeac.Operand) (Register, bool) {
	order, bank, isFloat := rt.regularOrder, rt.regular, false
	if isFloatOperand(operand) {
		order, bank, isFloat = rt.floatOrder, rt.float, true
	}
	if len(order) == 0 {
		return Register{}, false
	}

	best := order[0]
	for _, n := range order[1:] {
		e, bestEntry := bank[n], bank[best]
		if bestEntry.operand.Equal(operand) {
			continue
		}
		if e.operand.Equal(operand) {
			best = n
			continue
		}
		if !bestEntry.isNull() && e.isNull() {
			best = n
			continue
		}
		if bestEntry.dirty && !e.dirty {
			best = n
		}
	}
	return Register{kindOf(isFloat), best}, true
}

// Free releases r: if it is dirty and its occupant is still live, spill it
// to backing storage first; either way, the entry is reset.
func (rt *RegTable) Free(r Register, live LiveSet, code *strings.Builder) {
	e := rt.entryFor(r)
	if e.dirty && live.contains(e.operand) {
		code.WriteString(e.spillText(r))
	}
	e.reset()
}

// MarkDirty flags r's entry dirty, then spills (if dirty) and resets every
// other memory-backed (Global/Local) register in both banks; r itself keeps
// its occupant and stays dirty. Temp-occupied registers are exempt and may
// stay dirty indefinitely.
func (rt *RegTable) MarkDirty(r Register, code *strings.Builder) {
	rt.entryFor(r).dirty = true
	code.WriteString(rt.spillAliasedRegisters(r))
}

func (rt *RegTable) spillAliasedRegisters(skip Register) string {
	var out strings.Builder
	for _, n := range rt.regularOrder {
		e := rt.regular[n]
		if skip == (Register{regX, n}) {
			continue
		}
		if e.operand.Kind == threeac.KindGlobal || e.operand.Kind == threeac.KindLocal {
			if e.dirty {
				out.WriteString(e.spillText(Register{regX, n}))
			}
			e.reset()
		}
	}
	for _, n := range rt.floatOrder {
		e := rt.float[n]
		if skip == (Register{regF, n}) {
			continue
		}
		if e.operand.Kind == threeac.KindGlobal || e.operand.Kind == threeac.KindLocal {
			if e.dirty {
				out.WriteString(e.spillText(Register{regF, n}))
			}
			e.reset()
		}
	}
	return out.String()
}

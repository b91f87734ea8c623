// Package regalloc partitions a 3AC instruction stream into basic blocks,
// runs a backward liveness pass over each block, and emits textual
// RISC-V-like assembly one instruction at a time from two small register
// banks (integer/pointer and float), spilling dirty memory-backed registers
// back to their global/local storage whenever a live variable would
// otherwise be evicted.
package regalloc

import (
	"strings"

	"microc/internal/threeac"
)

// LiveSet is the set of variable operands alive at a given program point.
// Operand is a small comparable struct, so Go's native map works as the
// HashSet<Operand> the original reaches for.
type LiveSet map[threeac.Operand]struct{}

func newLiveSet() LiveSet { return make(LiveSet) }

func (s LiveSet) clone() LiveSet {
	out := make(LiveSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

func (s LiveSet) contains(op threeac.Operand) bool {
	_, ok := s[op]
	return ok
}

// insertIfVar seeds a block's live-in set: only Global/Local operands ever
// enter it — temps never do, since they die within the block that defines
// them.
func insertIfVar(op threeac.Operand, s LiveSet) {
	if op.IsVariable() {
		insert(op, s)
	}
}

func insert(op threeac.Operand, s LiveSet) {
	if op.IsSpillable() {
		s[op] = struct{}{}
	}
}

func remove(op threeac.Operand, s LiveSet) {
	if op.IsSpillable() {
		delete(s, op)
	}
}

// Stats is an observation-only accumulator over an Allocate run — nothing
// it records feeds back into an allocation decision, so attaching one must
// never change the emitted assembly text. Backs the CLI's --stats flag.
type Stats struct {
	Blocks          int
	MaxLiveSetSize  int
	SpillPoints     int
	InstructionsOut int
}

// Allocate is the top-level driver: pop one basic block at a time, run
// backward liveness over it, then emit code for every instruction in
// forward order against the shared register table.
func Allocate(instrs []threeac.Instruction, regCount int) (string, error) {
	return AllocateWithStats(instrs, regCount, nil)
}

// AllocateWithStats is Allocate with an optional Stats accumulator.
// Passing nil is identical to Allocate.
func AllocateWithStats(instrs []threeac.Instruction, regCount int, stats *Stats) (string, error) {
	rt, err := newRegTable(regCount)
	if err != nil {
		return "", err
	}

	pending := instrs
	var out strings.Builder
	for {
		block, live, ok := nextBlock(&pending)
		if !ok {
			break
		}
		if stats != nil {
			stats.Blocks++
			if len(live) > stats.MaxLiveSetSize {
				stats.MaxLiveSetSize = len(live)
			}
		}
		analyzed := livenessForBlock(block, live)
		for _, pair := range analyzed {
			if stats != nil {
				stats.InstructionsOut++
				if pair.Instr.Variant == threeac.SpillRegisters {
					stats.SpillPoints++
				}
			}
			out.WriteString(toCode(pair.Instr, pair.Live, rt))
		}
	}
	return out.String(), nil
}

// nextBlock partitions a block off the front of pending exactly per the
// block-partitioning rule: a Label ends the current (non-empty) block by
// being pushed back and followed by a synthetic SpillRegisters; any other
// terminator (Ret, Jump, Call, or a comparison) ends the block after
// itself, with Ret/Jump additionally preceded by a SpillRegisters.
func nextBlock(pending *[]threeac.Instruction) ([]threeac.Instruction, LiveSet, bool) {
	var block []threeac.Instruction
	live := newLiveSet()

	for len(*pending) > 0 {
		i := (*pending)[0]

		if i.Variant == threeac.LabelInstr && len(block) != 0 {
			block = append(block, threeac.Instruction{Variant: threeac.SpillRegisters})
			break
		}
		*pending = (*pending)[1:]

		insertIfVar(i.OpDt, live)
		insertIfVar(i.OpM, live)
		insertIfVar(i.OpN, live)

		if i.IsTerminator() {
			if i.Variant == threeac.Ret || i.Variant == threeac.Jump {
				block = append(block, threeac.Instruction{Variant: threeac.SpillRegisters})
			}
			block = append(block, i)
			break
		}
		block = append(block, i)
	}

	if len(block) == 0 {
		return nil, nil, false
	}
	return block, live, true
}

type instrLive struct {
	Instr threeac.Instruction
	Live  LiveSet
}

// livenessForBlock runs the def/use table backward over block, mutating
// set in place and pairing each instruction with the live-set snapshot
// taken immediately before that instruction's own def/use update — the
// snapshot forward-codegen uses to decide what is still needed after this
// point.
func livenessForBlock(block []threeac.Instruction, set LiveSet) []instrLive {
	out := make([]instrLive, len(block))
	for idx := len(block) - 1; idx >= 0; idx-- {
		i := block[idx]
		snapshot := set.clone()

		switch i.Variant {
		case threeac.AddrAssign:
			insert(i.OpDt, set)
			insert(i.OpM, set)
		case threeac.Assign, threeac.MallocInstr, threeac.Negate, threeac.Cast:
			remove(i.OpDt, set)
			insert(i.OpM, set)
		case threeac.Get, threeac.Load:
			remove(i.OpDt, set)
		case threeac.AddressInstr, threeac.Dereference, threeac.Reference:
			remove(i.OpDt, set)
			insert(i.OpM, set)
		case threeac.Put, threeac.PutS, threeac.Ret, threeac.Save, threeac.FreeInstr:
			insert(i.OpDt, set)
		case threeac.Plus, threeac.Minus, threeac.Times, threeac.Divide:
			remove(i.OpDt, set)
			insert(i.OpM, set)
			insert(i.OpN, set)
		case threeac.CmpEqual, threeac.CmpNotEqual, threeac.CmpLess, threeac.CmpLessEqual, threeac.CmpGreater, threeac.CmpGreaterEqual:
			insert(i.OpM, set)
			insert(i.OpN, set)
		case threeac.Call:
			remove(i.OpDt, set)
			for _, arg := range i.Args {
				insert(arg, set)
			}
		case threeac.HeaderText, threeac.HeaderStrings, threeac.LabelInstr, threeac.Jump, threeac.Alloc, threeac.SpillRegisters:
		}

		out[idx] = instrLive{Instr: i, Live: snapshot}
	}
	return out
}

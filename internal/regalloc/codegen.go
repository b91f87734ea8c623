package regalloc

import (
	"fmt"
	"strings"

	"microc/internal/threeac"
)

// toCode emits the RISC-V-like text for one instruction against rt, given
// the live-set snapshot captured for it during the backward liveness pass.
func toCode(ins threeac.Instruction, live LiveSet, rt *RegTable) string {
	var code strings.Builder

	switch ins.Variant {
	case threeac.HeaderText:
		return fmt.Sprintf(".section .text\nMV fp, sp\nJR %s\nHALT\n", ins.Lbl)
	case threeac.HeaderStrings:
		return fmt.Sprintf(".section .strings\n%s", ins.Text)

	case threeac.AddrAssign:
		opd := rt.Ensure(ins.OpDt, live, &code)
		opm := rt.Ensure(ins.OpM, live, &code)
		if !live.contains(ins.OpDt) {
			rt.Free(opd, live, &code)
		}
		if !live.contains(ins.OpM) {
			rt.Free(opm, live, &code)
		}
		store := "SW"
		if ins.Set == threeac.F {
			store = "FSW"
		}
		code.WriteString(fmt.Sprintf("%s %s, 0(%s)\n", store, opm, opd))

	case threeac.Assign:
		opm := rt.Ensure(ins.OpM, live, &code)
		if !live.contains(ins.OpM) {
			rt.Free(opm, live, &code)
		}
		opd := rt.Allocate(ins.OpDt, live, &code)
		mv := "MV"
		if ins.Set == threeac.F {
			mv = "FMV.S"
		}
		code.WriteString(fmt.Sprintf("%s %s, %s\n", mv, opd, opm))
		rt.MarkDirty(opd, &code)

	case threeac.FreeInstr:
		opt := rt.Ensure(ins.OpDt, live, &code)
		if !live.contains(ins.OpDt) {
			rt.Free(opt, live, &code)
		}
		code.WriteString(fmt.Sprintf("FREE %s\n", opt))

	case threeac.Get:
		opd := rt.Allocate(ins.OpDt, live, &code)
		if ins.Set == threeac.F {
			code.WriteString(fmt.Sprintf("GETF %s\n", opd))
		} else {
			code.WriteString(fmt.Sprintf("GETI %s\n", opd))
		}
		rt.MarkDirty(opd, &code)

	case threeac.MallocInstr:
		opm := rt.Ensure(ins.OpM, live, &code)
		if !live.contains(ins.OpM) {
			rt.Free(opm, live, &code)
		}
		opd := rt.Allocate(ins.OpDt, live, &code)
		code.WriteString(fmt.Sprintf("MALLOC %s, %s\n", opd, opm))
		rt.MarkDirty(opd, &code)

	case threeac.Put:
		opt := rt.Ensure(ins.OpDt, live, &code)
		if !live.contains(ins.OpDt) {
			rt.Free(opt, live, &code)
		}
		if ins.Set == threeac.F {
			code.WriteString(fmt.Sprintf("PUTF %s\n", opt))
		} else {
			code.WriteString(fmt.Sprintf("PUTI %s\n", opt))
		}

	case threeac.PutS:
		opt := rt.Ensure(ins.OpDt, live, &code)
		if !live.contains(ins.OpDt) {
			rt.Free(opt, live, &code)
		}
		code.WriteString(fmt.Sprintf("PUTS %s\n", opt))

	case threeac.Ret:
		return "MV sp, fp\nLW fp, 0(fp)\nADDI sp, sp, 4\nRET\n"

	case threeac.Save:
		opt := rt.Ensure(ins.OpDt, live, &code)
		if !live.contains(ins.OpDt) {
			rt.Free(opt, live, &code)
		}
		store := "SW"
		if ins.Set == threeac.F {
			store = "FSW"
		}
		code.WriteString(fmt.Sprintf("%s %s, 8(fp)\n", store, opt))

	case threeac.Load:
		opd := rt.Allocate(ins.OpDt, live, &code)
		if ins.Set == threeac.F {
			code.WriteString(fmt.Sprintf("FIMM.S %s, %g\n", opd, ins.FloatLit))
		} else {
			code.WriteString(fmt.Sprintf("LI %s, %d\n", opd, ins.IntLit))
		}
		rt.MarkDirty(opd, &code)

	case threeac.AddressInstr:
		opm := rt.Ensure(ins.OpM, live, &code)
		if !live.contains(ins.OpM) {
			rt.Free(opm, live, &code)
		}
		opd := rt.Allocate(ins.OpDt, live, &code)
		code.WriteString(fmt.Sprintf("LW %s, 0(%s)\n", opd, opm))
		rt.MarkDirty(opd, &code)

	case threeac.Dereference:
		opm := rt.Ensure(ins.OpM, live, &code)
		if !live.contains(ins.OpM) {
			rt.Free(opm, live, &code)
		}
		opd := rt.Allocate(ins.OpDt, live, &code)
		load := "LW"
		if ins.Set == threeac.F {
			load = "FLW"
		}
		code.WriteString(fmt.Sprintf("%s %s, 0(%s)\n", load, opd, opm))
		rt.MarkDirty(opd, &code)

	case threeac.Reference:
		opd := rt.Allocate(ins.OpDt, live, &code)
		if ins.OpM.Kind != threeac.KindLocal {
			panic("regalloc: Reference operand must be a Local")
		}
		code.WriteString(fmt.Sprintf("ADDI %s, fp, %d\n", opd, ins.OpM.Addr))
		rt.MarkDirty(opd, &code)

	case threeac.Plus, threeac.Minus, threeac.Times, threeac.Divide:
		op := arithOp(ins.Variant)
		if ins.Set == threeac.F {
			op = "F" + op + ".S"
		}
		opm := rt.Ensure(ins.OpM, live, &code)
		opn := rt.Ensure(ins.OpN, live, &code)
		if !live.contains(ins.OpM) {
			rt.Free(opm, live, &code)
		}
		if !live.contains(ins.OpN) {
			rt.Free(opn, live, &code)
		}
		opd := rt.Allocate(ins.OpDt, live, &code)
		code.WriteString(fmt.Sprintf("%s %s, %s, %s\n", op, opd, opm, opn))
		rt.MarkDirty(opd, &code)

	case threeac.Negate:
		op := "NEG"
		if ins.Set == threeac.F {
			op = "FNEG.S"
		}
		opm := rt.Ensure(ins.OpM, live, &code)
		if !live.contains(ins.OpM) {
			rt.Free(opm, live, &code)
		}
		opd := rt.Allocate(ins.OpDt, live, &code)
		code.WriteString(fmt.Sprintf("%s %s, %s\n", op, opd, opm))
		rt.MarkDirty(opd, &code)

	case threeac.Cast:
		op := "FMOVI.S"
		if ins.Set == threeac.F {
			op = "IMOVF.S"
		}
		opm := rt.Ensure(ins.OpM, live, &code)
		if !live.contains(ins.OpM) {
			rt.Free(opm, live, &code)
		}
		opd := rt.Allocate(ins.OpDt, live, &code)
		code.WriteString(fmt.Sprintf("%s %s, %s\n", op, opd, opm))
		rt.MarkDirty(opd, &code)

	case threeac.CmpEqual, threeac.CmpNotEqual, threeac.CmpLess, threeac.CmpLessEqual, threeac.CmpGreater, threeac.CmpGreaterEqual:
		code.WriteString(cmpCode(ins, live, rt))

	case threeac.LabelInstr:
		if ins.Lbl.Kind == threeac.FunctionHead {
			return fmt.Sprintf("%s:\nADDI sp, sp, -4\nSW fp, 0(sp)\nMV fp, sp\n", ins.Lbl)
		}
		return fmt.Sprintf("%s:\n", ins.Lbl)

	case threeac.Jump:
		return fmt.Sprintf("J %s\n", ins.Lbl)

	case threeac.Call:
		code.WriteString(callCode(ins, live, rt))

	case threeac.Alloc:
		return fmt.Sprintf("ADDI sp, sp, -%d\n", ins.Bytes)

	case threeac.SpillRegisters:
		return rt.SpillRegisters()
	}

	return code.String()
}

func arithOp(v threeac.Variant) string {
	switch v {
	case threeac.Plus:
		return "ADD"
	case threeac.Minus:
		return "SUB"
	case threeac.Times:
		return "MUL"
	case threeac.Divide:
		return "DIV"
	default:
		return "ERR"
	}
}

// cmpCode handles the two very different comparison encodings: an integer
// comparison branches directly on the inverted condition (no opdt), a
// float comparison materializes a 0/1 result via FEQ/FLT/FLE into a fresh
// integer register and then branches on that against x0.
func cmpCode(ins threeac.Instruction, live LiveSet, rt *RegTable) string {
	var code strings.Builder
	opm := rt.Ensure(ins.OpM, live, &code)
	opn := rt.Ensure(ins.OpN, live, &code)
	if !live.contains(ins.OpM) {
		rt.Free(opm, live, &code)
	}
	if !live.contains(ins.OpN) {
		rt.Free(opn, live, &code)
	}

	if ins.Set == threeac.T {
		code.WriteString(rt.SpillRegisters())
		code.WriteString(fmt.Sprintf("%s %s, %s, %s\n", invertedBranch(ins.Variant), opm, opn, ins.Lbl))
		return code.String()
	}

	opd := rt.Allocate(ins.OpDt, live, &code)
	rt.MarkDirty(opd, &code)
	cmp, branch := floatCompareOps(ins.Variant)
	code.WriteString(rt.SpillRegisters())
	code.WriteString(fmt.Sprintf("%s %s, %s, %s\n%s %s, x0, %s\n", cmp, opd, opm, opn, branch, opd, ins.Lbl))
	return code.String()
}

// invertedBranch gives the integer-bank branch that fires when the source
// condition is FALSE — the comparison's target label is the false branch.
func invertedBranch(v threeac.Variant) string {
	switch v {
	case threeac.CmpEqual:
		return "BNE"
	case threeac.CmpNotEqual:
		return "BEQ"
	case threeac.CmpLess:
		return "BGE"
	case threeac.CmpLessEqual:
		return "BGT"
	case threeac.CmpGreater:
		return "BLE"
	case threeac.CmpGreaterEqual:
		return "BLT"
	default:
		return "ERR"
	}
}

func floatCompareOps(v threeac.Variant) (cmp, branch string) {
	switch v {
	case threeac.CmpEqual:
		return "FEQ.S", "BEQ"
	case threeac.CmpNotEqual:
		return "FEQ.S", "BNE"
	case threeac.CmpLess:
		return "FLT.S", "BEQ"
	case threeac.CmpLessEqual:
		return "FLE.S", "BEQ"
	case threeac.CmpGreater:
		return "FLE.S", "BNE"
	case threeac.CmpGreaterEqual:
		return "FLT.S", "BNE"
	default:
		return "ERR", "ERR"
	}
}

// callCode implements the call stack-frame protocol: reserve two extra
// words beyond the argument count (return address plus return value
// slot), store ra, store each argument in order starting at sp-relative
// offset 8, spill every dirty register (the callee may clobber anything),
// jump, restore ra, optionally load the return value, unwind the frame.
func callCode(ins threeac.Instruction, live LiveSet, rt *RegTable) string {
	var code strings.Builder
	totalOffset := (len(ins.Args) + 2) * 4
	code.WriteString(fmt.Sprintf("ADDI sp, sp, -%d\nSW ra, 0(sp)\n", totalOffset))

	offset := 8
	for _, arg := range ins.Args {
		r := rt.Ensure(arg, live, &code)
		if !live.contains(arg) {
			rt.Free(r, live, &code)
		}
		store := "SW"
		if arg.Bank == threeac.F {
			store = "FSW"
		}
		code.WriteString(fmt.Sprintf("%s %s, %d(sp)\n", store, r, offset))
		offset += 4
	}

	code.WriteString(rt.SpillRegisters())
	code.WriteString(fmt.Sprintf("JR %s\nLW ra, 0(sp)\n", ins.Lbl))
	if ins.OpDt.Kind != threeac.KindNull {
		opd := rt.Allocate(ins.OpDt, live, &code)
		load := "LW"
		if ins.Set == threeac.F {
			load = "FLW"
		}
		code.WriteString(fmt.Sprintf("%s %s, 4(sp)\n", load, opd))
		rt.MarkDirty(opd, &code)
	}
	code.WriteString(fmt.Sprintf("ADDI sp, sp, %d\n", totalOffset))
	return code.String()
}

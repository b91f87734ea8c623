package threeac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptimizeTempCopyElimination(t *testing.T) {
	in := []Instruction{
		{Variant: Plus, Set: T, OpDt: Temp(0), OpM: Global(0, T), OpN: Global(4, T)},
		{Variant: Assign, Set: T, OpDt: Local(-4, T), OpM: Temp(0)},
	}
	out := Optimize(in)
	require.Len(t, out, 1)
	require.Equal(t, Plus, out[0].Variant)
	require.Truef(t, out[0].OpDt.Equal(Local(-4, T)), "expected folded destination Local(-4), got %s", out[0].OpDt)
}

func TestOptimizeJumpToNextLabelCollapse(t *testing.T) {
	lbl := Label{Kind: BlockJump, N: 1}
	in := []Instruction{
		{Variant: Jump, Lbl: lbl},
		{Variant: LabelInstr, Lbl: lbl},
		{Variant: Ret},
	}
	out := Optimize(in)
	require.Len(t, out, 2)
	require.Equal(t, LabelInstr, out[0].Variant)
}

func TestOptimizeLeavesUnrelatedInstructionsAlone(t *testing.T) {
	in := []Instruction{
		{Variant: Load, Set: T, OpDt: Temp(0), IntLit: 5},
		{Variant: Put, Set: T, OpDt: Temp(0)},
	}
	out := Optimize(in)
	require.Len(t, out, 2)
}

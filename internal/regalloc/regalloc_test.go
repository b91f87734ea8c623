package regalloc_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"microc/internal/ast"
	"microc/internal/lexer"
	"microc/internal/parsetree"
	"microc/internal/regalloc"
	"microc/internal/threeac"
)

func compile(t *testing.T, src string, regCount int) string {
	t.Helper()
	toks, err := lexer.NewScanner(src).ScanTokens()
	require.NoError(t, err)
	prog, err := parsetree.Parse(toks)
	require.NoError(t, err)
	fns, table, err := ast.Build(prog)
	require.NoError(t, err)
	instrs, err := threeac.NewLowerer(table).Program(fns)
	require.NoError(t, err)
	instrs = threeac.Optimize(instrs)
	out, err := regalloc.Allocate(instrs, regCount)
	require.NoError(t, err)
	return out
}

func TestAllocateEmitsHeaderAndFunctionFrame(t *testing.T) {
	out := compile(t, `
int main() {
	return 0;
}
`, 8)

	require.Truef(t, strings.HasPrefix(out, ".section .text\nMV fp, sp\nJR func_"),
		"expected a HeaderText preamble naming main's label, got:\n%s", out)
	require.Contains(t, out, "HALT\n")
	require.Contains(t, out, "ADDI sp, sp, -4\nSW fp, 0(sp)\nMV fp, sp\n")
	require.Contains(t, out, "RET\n")
	require.Truef(t, strings.HasSuffix(out, ".section .strings\n"),
		"expected a trailing empty strings section, got:\n%s", out)
}

// With the minimum legal register count (8 -> 4 usable integer registers,
// x4..x7, since x8 is reserved as fp), a function with more simultaneously
// live locals than registers must spill at least one of them back to its
// frame slot before the function returns.
func TestAllocateSpillsUnderRegisterPressure(t *testing.T) {
	out := compile(t, `
int main() {
	int a;
	int b;
	int c;
	int d;
	int e;
	a = 1;
	b = 2;
	c = 3;
	d = 4;
	e = 5;
	print(a + b + c + d + e);
	return 0;
}
`, 8)

	require.Containsf(t, out, "(fp)\n",
		"expected at least one frame-relative spill/reload under register pressure, got:\n%s", out)
}

func TestAllocateCallProtocolFramesArguments(t *testing.T) {
	out := compile(t, `
int add(int x, int y) {
	return x + y;
}
int main() {
	int r;
	r = add(1, 2);
	return 0;
}
`, 8)

	require.Contains(t, out, "SW ra, 0(sp)\n")
	require.Contains(t, out, "LW ra, 0(sp)\n")
	require.Contains(t, out, "4(sp)\n")
}

func TestAllocateFloatComparisonMaterializesIntegerResult(t *testing.T) {
	out := compile(t, `
int main() {
	float a;
	a = 1.0;
	if (a == 1.0) {
		print(1);
	}
	return 0;
}
`, 8)

	require.Contains(t, out, "FEQ.S")
}

// Attaching a Stats accumulator is purely observational — it must never
// perturb the emitted assembly text.
func TestAllocateStatsAreObservationOnly(t *testing.T) {
	src := `
int main() {
	int a;
	a = 1 + 2;
	print(a);
	return 0;
}
`
	toks, err := lexer.NewScanner(src).ScanTokens()
	require.NoError(t, err)
	prog, err := parsetree.Parse(toks)
	require.NoError(t, err)
	fns, table, err := ast.Build(prog)
	require.NoError(t, err)
	instrs, err := threeac.NewLowerer(table).Program(fns)
	require.NoError(t, err)
	instrs = threeac.Optimize(instrs)

	without, err := regalloc.AllocateWithStats(instrs, 8, nil)
	require.NoError(t, err)
	var stats regalloc.Stats
	with, err := regalloc.AllocateWithStats(instrs, 8, &stats)
	require.NoError(t, err)
	require.Equal(t, without, with, "stats accumulator must not perturb output")
	require.NotZero(t, stats.Blocks, "expected Stats to observe at least one block")
}

func TestAllocateRejectsRegisterCountBelowEight(t *testing.T) {
	_, err := regalloc.Allocate([]threeac.Instruction{{Variant: threeac.Ret}}, 4)
	require.Error(t, err, "expected an error for reg_count below 8")
}

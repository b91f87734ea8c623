package threeac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"microc/internal/ast"
	"microc/internal/lexer"
	"microc/internal/parsetree"
	"microc/internal/symtable"
)

func lowerSource(t *testing.T, src string) ([]Instruction, *symtable.Table) {
	t.Helper()
	toks, err := lexer.NewScanner(src).ScanTokens()
	require.NoError(t, err)
	prog, err := parsetree.Parse(toks)
	require.NoError(t, err)
	fns, table, err := ast.Build(prog)
	require.NoError(t, err)
	instrs, err := NewLowerer(table).Program(fns)
	require.NoError(t, err)
	return instrs, table
}

// Per the assignment coercion rule (construct.go's coerceTo), a base-type
// mismatch between an int-typed RHS subtree and a float-typed assignee
// wraps the whole subtree in one Cast rather than promoting individual
// operands inside it — so `b = a + 1` lowers the `a + 1` addition entirely
// in the integer bank and converts its result afterward.
func TestIntFloatPromotionWrapsAssignmentRHSInACast(t *testing.T) {
	src := `
int a;
float b;
int main() {
	b = a + 1;
	return 0;
}
`
	instrs, _ := lowerSource(t, src)
	var sawIntPlus, sawFloatCast, sawFloatAssign bool
	for _, ins := range instrs {
		if ins.Variant == Plus && ins.Set == T {
			sawIntPlus = true
		}
		if ins.Variant == Cast && ins.Set == F {
			sawFloatCast = true
		}
		if ins.Variant == Assign && ins.Set == F {
			sawFloatAssign = true
		}
	}
	require.Truef(t, sawIntPlus, "expected the a+1 addition to stay in the integer bank, got %+v", instrs)
	require.Truef(t, sawFloatCast, "expected a float-bank Cast converting the sum, got %+v", instrs)
	require.Truef(t, sawFloatAssign, "expected the assignment to b to be float-banked, got %+v", instrs)
}

func TestAssignmentThroughPointerEmitsAddrAssign(t *testing.T) {
	src := `
int main() {
	int *p;
	*p = 5;
	return 0;
}
`
	instrs, _ := lowerSource(t, src)
	found := false
	for _, ins := range instrs {
		if ins.Variant == AddrAssign {
			found = true
		}
	}
	require.Truef(t, found, "expected an AddrAssign instruction, got %+v", instrs)
}

func TestIfElseLabelBalance(t *testing.T) {
	src := `
int main() {
	int a;
	if (a == 1) {
		a = 1;
	} else {
		a = 2;
	}
	return 0;
}
`
	instrs, _ := lowerSource(t, src)

	branches := map[int]int{}
	jumps := map[int]int{}
	for _, ins := range instrs {
		switch ins.Variant {
		case CmpEqual:
			branches[ins.Lbl.N]++
		case LabelInstr:
			if ins.Lbl.Kind == BlockBranch {
				branches[ins.Lbl.N]--
			} else if ins.Lbl.Kind == BlockJump {
				jumps[ins.Lbl.N]--
			}
		case Jump:
			if ins.Lbl.Kind == BlockJump {
				jumps[ins.Lbl.N]++
			}
		}
	}
	for n, c := range branches {
		require.Zerof(t, c, "branch_%d unbalanced", n)
	}
	for n, c := range jumps {
		require.Zerof(t, c, "jump_%d unbalanced", n)
	}
}

func TestProgramWrapsWithHeaderTextAndHeaderStrings(t *testing.T) {
	src := `
int main() {
	return 0;
}
`
	instrs, _ := lowerSource(t, src)
	require.GreaterOrEqualf(t, len(instrs), 2, "expected at least HeaderText and HeaderStrings, got %+v", instrs)
	require.Equal(t, HeaderText, instrs[0].Variant)
	require.Equal(t, FunctionHead, instrs[0].Lbl.Kind)
	require.Equal(t, HeaderStrings, instrs[len(instrs)-1].Variant)
}

func TestEmptyProgramStringsSectionIsEmpty(t *testing.T) {
	src := `
int main() {
	return 0;
}
`
	instrs, _ := lowerSource(t, src)
	last := instrs[len(instrs)-1]
	require.Equal(t, HeaderStrings, last.Variant)
	require.Empty(t, last.Text)
}

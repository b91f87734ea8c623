package ast_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"microc/internal/ast"
	"microc/internal/ctype"
	"microc/internal/lexer"
	"microc/internal/parsetree"
)

func build(t *testing.T, src string) ([]*ast.Function, error) {
	t.Helper()
	toks, err := lexer.NewScanner(src).ScanTokens()
	require.NoError(t, err)
	prog, err := parsetree.Parse(toks)
	require.NoError(t, err)
	fns, _, err := ast.Build(prog)
	return fns, err
}

func TestBuildSimpleFunction(t *testing.T) {
	fns, err := build(t, `
int main() {
	return 0;
}
`)
	require.NoError(t, err)
	require.Len(t, fns, 1)
	require.Equal(t, "main", fns[0].Name)
	require.Equal(t, ctype.Int, fns[0].ReturnType.Kind)
}

// A non-void function returning no value is a type error distinguished by
// ast.IsTypeError.
func TestReturnMissingValueIsTypeError(t *testing.T) {
	_, err := build(t, `
int f(int x) {
	return;
}
int main() {
	return 0;
}
`)
	require.Error(t, err)
	require.Truef(t, ast.IsTypeError(err), "expected IsTypeError to recognize the failure, got %T: %v", err, err)
}

// A void function returning a value is equally a type error.
func TestVoidReturnWithValueIsTypeError(t *testing.T) {
	_, err := build(t, `
void f() {
	return 1;
}
int main() {
	return 0;
}
`)
	require.Error(t, err)
	require.True(t, ast.IsTypeError(err))
}

// A plain `return x;` where x already has the function's declared return
// type must NOT fail — this is the case SetType's early-return exists for.
func TestReturnAlreadyMatchingTypeSucceeds(t *testing.T) {
	_, err := build(t, `
int f(int x) {
	return x;
}
int main() {
	return 0;
}
`)
	require.NoError(t, err)
}

// Assigning an int-typed expression to a float variable wraps the whole
// RHS subtree in a Cast rather than failing — coerceTo's arithmetic-base
// branch.
func TestAssignCoercesIntToFloat(t *testing.T) {
	fns, err := build(t, `
float f;
int main() {
	f = 1 + 2;
	return 0;
}
`)
	require.NoError(t, err)
	list := fns[0].Body.(*ast.StatementList)
	assign := list.Stmts[0].(*ast.Assign)
	_, ok := assign.RHS.(*ast.Cast)
	require.Truef(t, ok, "expected the assignment's RHS to be wrapped in a Cast, got %T", assign.RHS)
}

// malloc is usable both as an expression-primary (here, an assignment RHS)
// and as a bare statement (result discarded) — both must build cleanly.
func TestMallocAsStatementAndAsExpression(t *testing.T) {
	fns, err := build(t, `
int main() {
	int *p;
	p = malloc(4);
	malloc(4);
	return 0;
}
`)
	require.NoError(t, err)
	list := fns[0].Body.(*ast.StatementList)
	require.Len(t, list.Stmts, 3)
	_, ok := list.Stmts[1].(*ast.Malloc)
	require.Truef(t, ok, "expected the bare malloc statement to lower to *ast.Malloc, got %T", list.Stmts[1])
}

// free() rejects a non-pointer operand as a type error.
func TestFreeRequiresPointerOperand(t *testing.T) {
	_, err := build(t, `
int main() {
	int x;
	free(x);
	return 0;
}
`)
	require.Error(t, err)
	require.True(t, ast.IsTypeError(err))
}

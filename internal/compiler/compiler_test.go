package compiler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"microc/internal/compileerr"
	"microc/internal/compiler"
)

func TestCompileSuccessProducesAssembly(t *testing.T) {
	res, err := compiler.Compile(`
int main() {
	return 0;
}
`, 8, compiler.Options{})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.Assembly, ".section .text"))
}

// A non-void function that returns without a value is a type error and
// must exit with code 7.
func TestCompileTypeErrorExitsSeven(t *testing.T) {
	_, err := compiler.Compile(`
int f(int x) {
	return;
}
int main() {
	return 0;
}
`, 8, compiler.Options{})
	require.Error(t, err)
	ce := asCompileErr(t, err)
	require.Equal(t, compileerr.Type, ce.Kind)
	require.Equal(t, 7, ce.ExitCode())
}

func TestCompileRejectsRegisterCountBelowEight(t *testing.T) {
	_, err := compiler.Compile(`
int main() {
	return 0;
}
`, 4, compiler.Options{})
	require.Error(t, err)
	ce := asCompileErr(t, err)
	require.Equal(t, compileerr.RegAlloc, ce.Kind)
	require.Equal(t, 1, ce.ExitCode())
}

func TestCompileParseErrorIsGeneric(t *testing.T) {
	_, err := compiler.Compile(`int main( { `, 8, compiler.Options{})
	require.Error(t, err)
	ce := asCompileErr(t, err)
	require.Equal(t, 1, ce.ExitCode())
}

func TestCompileWithStatsMatchesWithoutStats(t *testing.T) {
	src := `
int main() {
	int a;
	a = 1 + 2;
	print(a);
	return 0;
}
`
	without, err := compiler.Compile(src, 8, compiler.Options{})
	require.NoError(t, err)
	with, err := compiler.Compile(src, 8, compiler.Options{WithStats: true})
	require.NoError(t, err)
	require.Equal(t, without.Assembly, with.Assembly, "stats option must not perturb assembly output")
	require.NotNil(t, with.Stats)
	require.Nil(t, without.Stats)
}

func asCompileErr(t *testing.T, err error) *compileerr.Error {
	t.Helper()
	ce, ok := err.(*compileerr.Error)
	require.Truef(t, ok, "expected a *compileerr.Error, got %T: %v", err, err)
	return ce
}

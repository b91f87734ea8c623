package symtable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"microc/internal/ctype"
)

func TestGlobalAddressLayout(t *testing.T) {
	tab := New()
	a, err := tab.AddSymbol("a", ctype.NewInt(), Global)
	require.NoError(t, err)
	b, err := tab.AddSymbol("b", ctype.NewInt(), Global)
	require.NoError(t, err)
	require.Equal(t, 0x20000000, a.Addr)
	require.Equal(t, 0x20000004, b.Addr)

	s, err := tab.AddString("s0", "hi")
	require.NoError(t, err)
	require.Equal(t, 0x10000000, s.Addr)
}

func TestFunctionScopeLifecycle(t *testing.T) {
	tab := New()
	fn, err := tab.AddFunction("f", ctype.NewInt(), []ctype.Type{ctype.NewInt()})
	require.NoError(t, err)
	require.Equal(t, 0, fn.ID)

	scopeID, err := tab.PushScope(fn, "f", ctype.NewInt())
	require.NoError(t, err)
	require.Equal(t, scopeID, tab.Current())

	arg, err := tab.AddSymbol("x", ctype.NewInt(), Argument)
	require.NoError(t, err)
	require.Equal(t, 12, arg.Addr)

	loc, err := tab.AddSymbol("tmp", ctype.NewInt(), Local)
	require.NoError(t, err)
	require.Equal(t, -4, loc.Addr)

	declared, err := tab.LocalsDeclared(scopeID)
	require.NoError(t, err)
	require.True(t, declared)

	require.NoError(t, tab.PopScope())
	require.Equal(t, 0, tab.Current())
	require.Error(t, tab.PopScope(), "expected an error popping the global scope")
}

func TestGetScopeWalksParentChain(t *testing.T) {
	tab := New()
	_, err := tab.AddSymbol("g", ctype.NewInt(), Global)
	require.NoError(t, err)
	fn, err := tab.AddFunction("f", ctype.NewVoid(), nil)
	require.NoError(t, err)
	_, err = tab.PushScope(fn, "f", ctype.NewVoid())
	require.NoError(t, err)

	scope, err := tab.GetScope("g")
	require.NoError(t, err)
	require.Equal(t, 0, scope, "GetScope(g) should resolve to the global scope")

	_, err = tab.GetScope("nope")
	require.Error(t, err, "expected an error for an undefined symbol")
}

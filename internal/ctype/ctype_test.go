package ctype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMutable(t *testing.T) {
	cases := []struct {
		typ Type
		ok  bool
	}{
		{NewInt(), true},
		{NewFloat(), true},
		{NewPtr(NewInt()), true},
		{NewStr(), false},
		{NewVoid(), false},
	}
	for _, c := range cases {
		require.Equalf(t, c.ok, c.typ.IsMutable(), "%s.IsMutable()", c.typ)
	}
}

func TestDereference(t *testing.T) {
	p := NewPtr(NewInt())
	inner, err := p.Dereference()
	require.NoError(t, err)
	require.True(t, inner.Equal(NewInt()), "dereference(int*) = %s, want int", inner)

	_, err = NewInt().Dereference()
	require.Error(t, err, "expected error dereferencing a non-pointer type")
}

func TestPtrEquality(t *testing.T) {
	a := NewPtr(NewPtr(NewFloat()))
	b := NewPtr(NewPtr(NewFloat()))
	require.True(t, a.Equal(b), "%s != %s, want equal", a, b)

	c := NewPtr(NewInt())
	require.False(t, a.Equal(c), "%s == %s, want not equal", a, c)
}

func TestString(t *testing.T) {
	require.Equal(t, "int*", NewPtr(NewInt()).String())
}

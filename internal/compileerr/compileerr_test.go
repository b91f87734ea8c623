package compileerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"microc/internal/compileerr"
)

func TestExitCodeTypeIsSeven(t *testing.T) {
	err := compileerr.New(compileerr.Type, errors.New("bad cast"))
	require.Equal(t, 7, err.ExitCode())
}

func TestExitCodeOtherKindsAreGeneric(t *testing.T) {
	for _, k := range []compileerr.Kind{compileerr.IO, compileerr.Parse, compileerr.SymTable, compileerr.ThreeAC, compileerr.RegAlloc, compileerr.Other} {
		err := compileerr.New(k, errors.New("boom"))
		require.Equalf(t, 1, err.ExitCode(), "Kind %s", k)
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("underlying")
	err := compileerr.New(compileerr.IO, cause)
	require.ErrorIs(t, err, cause)
}

package common

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	require.NoError(t, err)
	require.Len(t, s, n*2)
	_, err = hex.DecodeString(s)
	require.NoError(t, err)
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	require.NoError(t, err)
	require.Empty(t, s)
}

func TestConflictError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("save: %w", &ConflictError{Path: "/a.flogger.txt", Revision: "r1", Message: "path/conflict/file/"})

	require.True(t, errors.Is(err, ErrVersionConflict))
	require.False(t, errors.Is(err, ErrorNotFound))

	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, "/a.flogger.txt", ce.Path)
	require.Contains(t, err.Error(), "path/conflict/file/")
}

func TestConflictError_MessageFallback(t *testing.T) {
	err := &ConflictError{Path: "/b", Revision: "7"}
	require.Equal(t, `version conflict on /b (revision "7")`, err.Error())
}

package derivation_test

import (
	"testing"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/derivation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeysetID = cashu.ID("009a1f293253e41e")

func TestPathString(t *testing.T) {
	secretPath, err := derivation.SecretPath(testKeysetID, 5)
	require.NoError(t, err)
	assert.Equal(t, "m/129372'/0'/864559728'/5'/0", secretPath.String())

	factorPath, err := derivation.BlindingFactorPath(testKeysetID, 5)
	require.NoError(t, err)
	assert.Equal(t, "m/129372'/0'/864559728'/5'/1", factorPath.String())
}

func TestPathSiblings(t *testing.T) {
	secretPath, err := derivation.SecretPath(testKeysetID, 42)
	require.NoError(t, err)
	factorPath, err := derivation.BlindingFactorPath(testKeysetID, 42)
	require.NoError(t, err)

	s := secretPath.Components()
	f := factorPath.Components()
	assert.Equal(t, s[:4], f[:4], "siblings diverge only at the leaf")
	assert.Equal(t, uint32(0), s[4])
	assert.Equal(t, uint32(1), f[4])
}

func TestPathCounterRange(t *testing.T) {
	_, err := derivation.SecretPath(testKeysetID, derivation.MaxCounter)
	require.NoError(t, err)

	_, err = derivation.SecretPath(testKeysetID, derivation.MaxCounter+1)
	require.ErrorIs(t, err, derivation.ErrCounterRange)

	_, err = derivation.BlindingFactorPath(testKeysetID, derivation.MaxCounter+1)
	require.ErrorIs(t, err, derivation.ErrCounterRange)
}

func TestPathBadKeysetID(t *testing.T) {
	_, err := derivation.SecretPath(cashu.ID("00zz1f293253e41e"), 0)
	require.Error(t, err)
}

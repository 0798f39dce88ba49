package cashu_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProofs() cashu.Proofs {
	return cashu.Proofs{
		{Amount: 2, ID: "009a1f293253e41e", Secret: "407915bc212be61a77e3e6d2aeb4c727980bda51cd06a6afc29e2861768a7837", C: "02bc9097997d81afb2cc7346b5e4345a9346bd2a506eb7958598a72f0cf85163ea"},
		{Amount: 8, ID: "009a1f293253e41e", Secret: "fe15109314e61d7756b0f8ee0f23a624acaa3f4e042f61433c728c7057b931be", C: "029e8e5050b890a7d6c0968db16bc1d5d5fa040ea1de284f6ec69d61299f671059"},
	}
}

func TestTokenRoundTrip(t *testing.T) {
	token := cashu.NewToken(sampleProofs(), "http://localhost:3338", "sat", "recovered")
	assert.Equal(t, cashu.Amount(10), token.Amount())

	serialized, err := token.Serialize()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(serialized, "cashuA"))

	decoded, err := cashu.DecodeToken(serialized)
	require.NoError(t, err)
	assert.Equal(t, token, *decoded)
}

func TestDecodeTokenPadded(t *testing.T) {
	// some wallets emit padded base64; decoding has to accept it
	token := cashu.NewToken(sampleProofs(), "http://localhost:3338", "sat", "")
	b, err := json.Marshal(token)
	require.NoError(t, err)

	padded := "cashuA" + base64.URLEncoding.EncodeToString(b)
	decoded, err := cashu.DecodeToken(padded)
	require.NoError(t, err)
	assert.Equal(t, token.Amount(), decoded.Amount())
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	_, err := cashu.DecodeToken("lnbc1...")
	require.Error(t, err)

	_, err = cashu.DecodeToken("cashu")
	require.Error(t, err)

	_, err = cashu.DecodeToken("cashuB" + "eyJ0b2tlbiI6W119")
	require.Error(t, err)

	_, err = cashu.DecodeToken("cashuA" + "%%%%")
	require.Error(t, err)
}

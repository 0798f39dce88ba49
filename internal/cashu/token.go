package cashu

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

const (
	tokenPrefix    = "cashu"
	tokenVersionV3 = "A"
)

// Token is the V3 serializable bundle wallets pass around:
// "cashuA" + base64url(JSON).
type Token struct {
	Token []TokenEntry `json:"token"`
	Unit  string       `json:"unit,omitempty"`
	Memo  string       `json:"memo,omitempty"`
}

// TokenEntry groups proofs by the mint that issued them.
type TokenEntry struct {
	Mint   string `json:"mint"`
	Proofs Proofs `json:"proofs"`
}

// NewToken bundles proofs from a single mint.
func NewToken(proofs Proofs, mint string, unit string, memo string) Token {
	return Token{
		Token: []TokenEntry{{Mint: mint, Proofs: proofs}},
		Unit:  unit,
		Memo:  memo,
	}
}

// Amount sums all proofs across entries.
func (t Token) Amount() Amount {
	var total Amount
	for _, entry := range t.Token {
		total += entry.Proofs.Amount()
	}
	return total
}

// Serialize renders the V3 wire form.
func (t Token) Serialize() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", errors.Wrap(err, "marshal token")
	}
	return tokenPrefix + tokenVersionV3 + base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b), nil
}

// DecodeToken parses a V3 token string. Both padded and unpadded base64
// circulate in the wild, so decoding tolerates either.
func DecodeToken(s string) (*Token, error) {
	if !strings.HasPrefix(s, tokenPrefix) {
		return nil, errors.New("not an ecash token")
	}

	rest := strings.TrimPrefix(s, tokenPrefix)
	if len(rest) == 0 {
		return nil, errors.New("truncated token")
	}
	if rest[:1] != tokenVersionV3 {
		return nil, errors.Errorf("unsupported token version %q", rest[:1])
	}

	decoded, err := decodeTolerant(rest[1:])
	if err != nil {
		return nil, errors.Wrap(err, "decode token")
	}

	var token Token
	if err := json.Unmarshal(decoded, &token); err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	return &token, nil
}

func decodeTolerant(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.URLEncoding.WithPadding(base64.NoPadding),
		base64.URLEncoding,
		base64.StdEncoding.WithPadding(base64.NoPadding),
		base64.StdEncoding,
	}

	var err error
	for _, enc := range encodings {
		var b []byte
		if b, err = enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, err
}

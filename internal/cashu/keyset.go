package cashu

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"sort"
	"strconv"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
)

// KeysetIDVersion is the version byte prefix of current (hex) keyset IDs.
const KeysetIDVersion = "00"

const keysetIDHexLength = 16

// ID is a keyset identifier as exchanged with mints. Current IDs are 16
// lowercase hex chars with a leading "00" version byte; legacy IDs are
// 12 chars of base64 and still appear on old proofs, so both parse.
type ID string

// ParseID validates a keyset ID in either encoding.
func ParseID(s string) (ID, error) {
	id := ID(s)
	if _, err := id.Bytes(); err != nil {
		return "", err
	}
	return id, nil
}

func (id ID) String() string {
	return string(id)
}

// Bytes returns the raw bytes behind the ID's string encoding.
func (id ID) Bytes() ([]byte, error) {
	if len(id) == keysetIDHexLength {
		b, err := hex.DecodeString(string(id))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid hex keyset id %q", string(id))
		}
		return b, nil
	}

	b, err := base64.StdEncoding.DecodeString(string(id))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid legacy keyset id %q", string(id))
	}
	return b, nil
}

// PathIndex projects the ID onto a BIP-32 child index: the big-endian
// integer of the decoded ID bytes reduced modulo 2^31 - 1, so the result
// always fits below the hardened bit.
func (id ID) PathIndex() (uint32, error) {
	b, err := id.Bytes()
	if err != nil {
		return 0, err
	}

	n := new(big.Int).SetBytes(b)
	n.Mod(n, big.NewInt(1<<31-1))
	return uint32(n.Uint64()), nil
}

// DeriveID computes the current-version keyset ID for a set of per-amount
// public keys: sha256 over the compressed keys concatenated in ascending
// amount order, truncated and prefixed with the version byte.
func DeriveID(keys map[Amount]*secp256k1.PublicKey) ID {
	amounts := make([]Amount, 0, len(keys))
	for amount := range keys {
		amounts = append(amounts, amount)
	}
	sort.Slice(amounts, func(i, j int) bool { return amounts[i] < amounts[j] })

	h := sha256.New()
	for _, amount := range amounts {
		h.Write(keys[amount].SerializeCompressed())
	}

	return ID(KeysetIDVersion + hex.EncodeToString(h.Sum(nil))[:keysetIDHexLength-len(KeysetIDVersion)])
}

// Keyset is a mint key group with its per-amount public keys parsed and
// ready for unblinding.
type Keyset struct {
	ID     ID
	Unit   string
	Active bool
	Keys   map[Amount]*secp256k1.PublicKey
}

// KeysetFromWire parses a /v1/keys entry into a usable keyset. The wire
// keys map is keyed by the amount in decimal.
func KeysetFromWire(w KeysetKeys) (*Keyset, error) {
	id, err := ParseID(w.ID)
	if err != nil {
		return nil, err
	}

	keys := make(map[Amount]*secp256k1.PublicKey, len(w.Keys))
	for amountStr, pubkeyHex := range w.Keys {
		amount, err := strconv.ParseUint(amountStr, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid amount %q in keyset %s", amountStr, w.ID)
		}

		pubkey, err := ParsePublicKey(pubkeyHex)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid public key for amount %s in keyset %s", amountStr, w.ID)
		}
		keys[Amount(amount)] = pubkey
	}

	return &Keyset{ID: id, Unit: w.Unit, Keys: keys}, nil
}

// Wire renders the keyset back into its /v1/keys shape, e.g. for caching.
func (k *Keyset) Wire() KeysetKeys {
	wire := KeysetKeys{
		ID:   k.ID.String(),
		Unit: k.Unit,
		Keys: make(map[string]string, len(k.Keys)),
	}
	for amount, pubkey := range k.Keys {
		wire.Keys[strconv.FormatUint(uint64(amount), 10)] = hex.EncodeToString(pubkey.SerializeCompressed())
	}
	return wire
}

// PublicKey returns the mint key for one amount, if the keyset carries it.
func (k *Keyset) PublicKey(amount Amount) (*secp256k1.PublicKey, bool) {
	pubkey, ok := k.Keys[amount]
	return pubkey, ok
}

// Amounts lists the denominations of the keyset in ascending order.
func (k *Keyset) Amounts() []Amount {
	amounts := make([]Amount, 0, len(k.Keys))
	for amount := range k.Keys {
		amounts = append(amounts, amount)
	}
	sort.Slice(amounts, func(i, j int) bool { return amounts[i] < amounts[j] })
	return amounts
}

// ParsePublicKey parses a compressed secp256k1 point from its hex encoding.
func ParsePublicKey(s string) (*secp256k1.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "invalid public key hex")
	}

	pubkey, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, errors.Wrap(err, "invalid public key")
	}
	return pubkey, nil
}

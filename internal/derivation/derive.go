package derivation

import (
	"encoding/hex"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
)

// DeriveSecret returns the deterministic secret for (keyset, counter): the
// 64-char lowercase hex encoding of the derived child key. The hex string
// itself is the secret; its UTF-8 bytes are what later hash to the curve.
func (m *MasterKey) DeriveSecret(keyset cashu.ID, counter uint32) (cashu.Secret, error) {
	path, err := SecretPath(keyset, counter)
	if err != nil {
		return cashu.Secret{}, err
	}

	child, err := m.child(path)
	if err != nil {
		return cashu.Secret{}, err
	}

	priv, err := child.ECPrivKey()
	if err != nil {
		return cashu.Secret{}, errors.Wrapf(err, "secret key at %s", path)
	}
	return cashu.NewDeterministicSecret(hex.EncodeToString(priv.Serialize())), nil
}

// DeriveBlindingFactor returns the scalar paired with the secret at the
// same (keyset, counter), already reduced into the curve's scalar field.
func (m *MasterKey) DeriveBlindingFactor(keyset cashu.ID, counter uint32) (*secp256k1.PrivateKey, error) {
	path, err := BlindingFactorPath(keyset, counter)
	if err != nil {
		return nil, err
	}

	child, err := m.child(path)
	if err != nil {
		return nil, err
	}

	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, errors.Wrapf(err, "blinding factor at %s", path)
	}
	return priv, nil
}

// DeriveBatch derives count consecutive (secret, blinding factor) pairs
// starting at start. Index i of both slices belongs to counter start+i.
func (m *MasterKey) DeriveBatch(keyset cashu.ID, start uint32, count int) ([]cashu.Secret, []*secp256k1.PrivateKey, error) {
	secrets := make([]cashu.Secret, 0, count)
	factors := make([]*secp256k1.PrivateKey, 0, count)

	for i := 0; i < count; i++ {
		counter := start + uint32(i)

		secret, err := m.DeriveSecret(keyset, counter)
		if err != nil {
			return nil, nil, err
		}

		factor, err := m.DeriveBlindingFactor(keyset, counter)
		if err != nil {
			return nil, nil, err
		}

		secrets = append(secrets, secret)
		factors = append(factors, factor)
	}
	return secrets, factors, nil
}

// snapshotBranch is a hardened branch disjoint from the coin-type branch
// secrets live under, reserved for local snapshot encryption keys.
const snapshotBranch = 1

// DeriveSnapshotKey returns the key material recovery snapshots are
// encrypted with, from m/129372'/1'/0'.
func (m *MasterKey) DeriveSnapshotKey() (*secp256k1.PrivateKey, error) {
	if m == nil || m.key == nil {
		return nil, ErrKeyWiped
	}

	key := m.key
	var err error
	for _, index := range []uint32{
		hdkeychain.HardenedKeyStart + Purpose,
		hdkeychain.HardenedKeyStart + snapshotBranch,
		hdkeychain.HardenedKeyStart + 0,
	} {
		if key, err = key.Derive(index); err != nil {
			return nil, errors.Wrap(err, "derive snapshot key")
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, errors.Wrap(err, "snapshot key")
	}
	return priv, nil
}

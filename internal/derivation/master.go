package derivation

import (
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// ErrKeyWiped is returned by derivations after Zero has destroyed the root
// key material.
var ErrKeyWiped = errors.New("master key material has been wiped")

// MasterKey wraps the BIP-32 root all deterministic ecash material derives
// from. Not safe for concurrent use with Zero; concurrent derivations are
// fine.
type MasterKey struct {
	key *hdkeychain.ExtendedKey
}

// NewMasterKeyFromMnemonic validates the mnemonic, applies the optional
// passphrase and builds the BIP-32 root.
func NewMasterKeyFromMnemonic(mnemonic string, passphrase string) (*MasterKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, errors.Wrap(err, "invalid mnemonic")
	}
	return NewMasterKeyFromSeed(seed)
}

// NewMasterKeyFromSeed builds the BIP-32 root from a raw seed.
func NewMasterKeyFromSeed(seed []byte) (*MasterKey, error) {
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, errors.Wrap(err, "derive master key")
	}
	return &MasterKey{key: key}, nil
}

// Zero wipes the root key material. The master is unusable afterwards.
func (m *MasterKey) Zero() {
	if m == nil || m.key == nil {
		return
	}
	m.key.Zero()
	m.key = nil
}

func (m *MasterKey) child(path Path) (*hdkeychain.ExtendedKey, error) {
	if m == nil || m.key == nil {
		return nil, ErrKeyWiped
	}

	key := m.key
	var err error
	for _, index := range path.Components() {
		if key, err = key.Derive(index); err != nil {
			return nil, errors.Wrapf(err, "derive %s", path)
		}
	}
	return key, nil
}

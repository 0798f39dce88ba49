// Package backup seals recovery results into encrypted snapshot blobs.
// The cipher key is derived from the wallet's own seed, so the only thing
// a holder must keep safe is still just the mnemonic: a snapshot speeds up
// re-import but never becomes a second secret to guard.
package backup

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"io"
	"time"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/derivation"
	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	snapshotVersion = 0x01

	// snapshotKeyInfo domain-separates the HKDF expansion from any other
	// use of the snapshot child key.
	snapshotKeyInfo = "cashu-recovery/snapshot/v1"
)

var snapshotMagic = []byte("CRSNAP")

// Snapshot is the portable backup payload: everything needed to re-import
// recovered funds into a wallet without re-scanning the mint.
type Snapshot struct {
	CreatedAt time.Time        `json:"created_at"`
	MintURL   string           `json:"mint_url"`
	Keysets   []SnapshotKeyset `json:"keysets"`
}

// SnapshotKeyset is one keyset's share of a snapshot.
type SnapshotKeyset struct {
	ID cashu.ID `json:"id"`
	// NextCounter lets a restored wallet resume counter allocation without
	// rescanning from zero.
	NextCounter uint32       `json:"next_counter"`
	Proofs      cashu.Proofs `json:"proofs"`
}

// Amount sums all proofs in the snapshot.
func (s *Snapshot) Amount() cashu.Amount {
	var total cashu.Amount
	for _, keyset := range s.Keysets {
		total += keyset.Proofs.Amount()
	}
	return total
}

// snapshotKey expands the dedicated snapshot child of the master key into
// the AEAD key. The child key never leaves this function.
func snapshotKey(master *derivation.MasterKey) ([]byte, error) {
	child, err := master.DeriveSnapshotKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive snapshot key")
	}
	defer child.Zero()

	secret := child.Serialize()
	defer func() {
		for i := range secret {
			secret[i] = 0
		}
	}()

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(snapshotKeyInfo)), key); err != nil {
		return nil, errors.Wrap(err, "failed to expand snapshot key")
	}
	return key, nil
}

// Seal encrypts a snapshot under the master key's snapshot branch. The
// blob layout is magic || version || nonce || ciphertext, with the header
// bound as associated data.
func Seal(master *derivation.MasterKey, snapshot *Snapshot) ([]byte, error) {
	key, err := snapshotKey(master)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build snapshot cipher")
	}

	plaintext, err := json.Marshal(snapshot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode snapshot")
	}

	header := append(append([]byte{}, snapshotMagic...), snapshotVersion)
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "failed to draw snapshot nonce")
	}

	blob := append(header, nonce...)
	return aead.Seal(blob, nonce, plaintext, header), nil
}

// Open authenticates and decrypts a snapshot blob. Any mismatch — foreign
// file, tampered bytes, wrong mnemonic or passphrase — fails the same way,
// with no partial output.
func Open(master *derivation.MasterKey, blob []byte) (*Snapshot, error) {
	headerLen := len(snapshotMagic) + 1
	if len(blob) < headerLen+chacha20poly1305.NonceSizeX {
		return nil, errors.New("snapshot blob is truncated")
	}

	header := blob[:headerLen]
	if string(header[:len(snapshotMagic)]) != string(snapshotMagic) {
		return nil, errors.New("not a snapshot blob")
	}
	if header[len(snapshotMagic)] != snapshotVersion {
		return nil, errors.Errorf("unsupported snapshot version %d", header[len(snapshotMagic)])
	}

	key, err := snapshotKey(master)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build snapshot cipher")
	}

	nonce := blob[headerLen : headerLen+chacha20poly1305.NonceSizeX]
	ciphertext := blob[headerLen+chacha20poly1305.NonceSizeX:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, header)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open snapshot, wrong seed or corrupted blob")
	}

	var snapshot Snapshot
	if err := json.Unmarshal(plaintext, &snapshot); err != nil {
		return nil, errors.Wrap(err, "failed to decode snapshot payload")
	}
	return &snapshot, nil
}

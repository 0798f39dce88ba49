package simulator

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/crypto"
)

const (
	// keysetOrder is the number of denominations per keyset: powers of two
	// from 1 up to 2^63, matching what production mints publish.
	keysetOrder = 64

	// MaxBatchOutputs bounds a single sign or restore request.
	MaxBatchOutputs = 1000
)

// simKeyset pairs a published keyset with the private keys behind it.
type simKeyset struct {
	keyset *cashu.Keyset
	keys   map[cashu.Amount]*btcec.PrivateKey
}

// Mint is the simulated mint core shared by all handlers. It derives its
// keysets deterministically from a seed, so a fixed seed yields stable keyset
// IDs across restarts; signature history lives in the SignatureStore.
type Mint struct {
	unit    string
	signAll bool
	keysets map[cashu.ID]*simKeyset
	order   []cashu.ID
	store   SignatureStore
}

// NewMint builds the mint from its configuration. An empty seed gets a
// random one, which is fine for throwaway runs but makes keyset IDs differ
// between restarts.
func NewMint(cfg config.Simulator) (*Mint, error) {
	seed, err := mintSeed(cfg.Seed)
	if err != nil {
		return nil, err
	}

	unit := cfg.Unit
	if unit == "" {
		unit = "sat"
	}

	var store SignatureStore
	if cfg.DatabasePath != "" {
		store, err = OpenBoltSignatureStore(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
	} else {
		store = NewMemSignatureStore()
	}

	// Two generations: the active keyset plus a retired one, so restore
	// flows against the simulator exercise the multi-keyset path.
	active := deriveKeyset(seed, 0, unit, true)
	retired := deriveKeyset(seed, 1, unit, false)

	m := &Mint{
		unit:    unit,
		signAll: cfg.SignAll,
		keysets: map[cashu.ID]*simKeyset{
			active.keyset.ID:  active,
			retired.keyset.ID: retired,
		},
		order: []cashu.ID{active.keyset.ID, retired.keyset.ID},
		store: store,
	}

	log.Info().
		Str("active_keyset_id", active.keyset.ID.String()).
		Str("retired_keyset_id", retired.keyset.ID.String()).
		Str("unit", unit).
		Bool("sign_all", cfg.SignAll).
		Msg("Simulated mint initialized")

	return m, nil
}

func mintSeed(raw string) ([]byte, error) {
	if raw == "" {
		seed := make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			return nil, errors.Wrap(err, "failed to generate simulator seed")
		}
		log.Warn().Str("seed", hex.EncodeToString(seed)).Msg("No simulator seed configured, generated a random one")
		return seed, nil
	}

	seed, err := hex.DecodeString(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid simulator seed, expected hex")
	}
	if len(seed) < 16 {
		return nil, errors.Errorf("simulator seed too short: %d bytes, need at least 16", len(seed))
	}
	return seed, nil
}

// deriveKeyset expands the seed into one generation of per-amount keys:
// k_amount = sha256(seed || generation || amount_be64).
func deriveKeyset(seed []byte, generation byte, unit string, active bool) *simKeyset {
	keys := make(map[cashu.Amount]*btcec.PrivateKey, keysetOrder)
	pubkeys := make(map[cashu.Amount]*btcec.PublicKey, keysetOrder)

	for i := 0; i < keysetOrder; i++ {
		amount := cashu.Amount(1) << i

		material := make([]byte, 0, len(seed)+1+8)
		material = append(material, seed...)
		material = append(material, generation)
		material = binary.BigEndian.AppendUint64(material, uint64(amount))
		digest := sha256.Sum256(material)

		priv := btcec.PrivKeyFromBytes(digest[:])
		keys[amount] = priv
		pubkeys[amount] = priv.PubKey()
	}

	return &simKeyset{
		keyset: &cashu.Keyset{
			ID:     cashu.DeriveID(pubkeys),
			Unit:   unit,
			Active: active,
			Keys:   pubkeys,
		},
		keys: keys,
	}
}

// Info renders the /v1/info body. The simulator advertises exactly the NUTs
// the recovery flow depends on.
func (m *Mint) Info() *cashu.GetInfoResponse {
	return &cashu.GetInfoResponse{
		Name:        "cashu-recovery simulator",
		Version:     "cashu-recovery-sim/1",
		Description: "local development mint, not backed by anything of value",
		Nuts: map[string]cashu.NutSetting{
			"7":  {Supported: true},
			"9":  {Supported: true},
			"13": {Supported: true},
		},
	}
}

// Keysets lists all keyset generations, active first.
func (m *Mint) Keysets() []*cashu.Keyset {
	keysets := make([]*cashu.Keyset, 0, len(m.order))
	for _, id := range m.order {
		keysets = append(keysets, m.keysets[id].keyset)
	}
	return keysets
}

// Keyset looks up one generation by ID.
func (m *Mint) Keyset(id cashu.ID) (*cashu.Keyset, bool) {
	ks, ok := m.keysets[id]
	if !ok {
		return nil, false
	}
	return ks.keyset, true
}

// ActiveKeyset returns the generation currently signing new outputs.
func (m *Mint) ActiveKeyset() *cashu.Keyset {
	return m.keysets[m.order[0]].keyset
}

// Sign issues blinded signatures for fresh outputs, recording each in the
// ledger. Signing the same blinded point twice is refused the way a real
// mint refuses it.
func (m *Mint) Sign(outputs []cashu.BlindedMessage) ([]cashu.BlindedSignature, error) {
	signatures := make([]cashu.BlindedSignature, 0, len(outputs))
	for _, output := range outputs {
		sig, err := m.signOne(output, output.Amount)
		if err != nil {
			return nil, err
		}
		signatures = append(signatures, sig)
	}
	return signatures, nil
}

func (m *Mint) signOne(output cashu.BlindedMessage, amount cashu.Amount) (cashu.BlindedSignature, error) {
	ks, ok := m.keysets[cashu.ID(output.ID)]
	if !ok {
		return cashu.BlindedSignature{}, cashu.NewError(cashu.ErrCodeKeysetUnknown, fmt.Sprintf("unknown keyset %q", output.ID))
	}

	priv, ok := ks.keys[amount]
	if !ok {
		return cashu.BlindedSignature{}, cashu.NewError(cashu.ErrCodeGeneric, fmt.Sprintf("unsupported amount %d", amount))
	}

	point, err := output.Point()
	if err != nil {
		return cashu.BlindedSignature{}, cashu.NewError(cashu.ErrCodeGeneric, "malformed blinded message")
	}

	if _, exists, err := m.store.Signature(output.B_); err != nil {
		return cashu.BlindedSignature{}, errors.Wrap(err, "failed to check signature ledger")
	} else if exists {
		return cashu.BlindedSignature{}, cashu.NewError(cashu.ErrCodeBlindedMessageSigned, "output already signed")
	}

	sig := cashu.BlindedSignature{
		Amount: amount,
		ID:     output.ID,
		C_:     hex.EncodeToString(crypto.SignBlindedMessage(point, priv).SerializeCompressed()),
	}
	if err := m.store.PutSignature(output.B_, sig); err != nil {
		return cashu.BlindedSignature{}, err
	}
	return sig, nil
}

// Restore answers a restore request from the ledger: the subset of submitted
// outputs that were signed before, index-aligned with their signatures. In
// sign-all mode unknown outputs get signed on the spot instead, defaulting
// to the smallest denomination when the request carries no amount.
func (m *Mint) Restore(outputs []cashu.BlindedMessage) (*cashu.PostRestoreResponse, error) {
	resp := &cashu.PostRestoreResponse{
		Outputs:    []cashu.BlindedMessage{},
		Signatures: []cashu.BlindedSignature{},
	}

	for _, output := range outputs {
		sig, found, err := m.store.Signature(output.B_)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read signature ledger")
		}

		if !found && m.signAll {
			amount := output.Amount
			if amount == 0 {
				amount = 1
			}
			sig, err = m.signOne(output, amount)
			if err != nil {
				return nil, err
			}
			found = true
		}

		if found {
			resp.Outputs = append(resp.Outputs, output)
			resp.Signatures = append(resp.Signatures, sig)
		}
	}
	return resp, nil
}

// CheckState reports spend states for hashed secrets, in request order.
func (m *Mint) CheckState(ys []string) ([]cashu.ProofState, error) {
	states := make([]cashu.ProofState, 0, len(ys))
	for _, y := range ys {
		if _, err := cashu.ParsePublicKey(y); err != nil {
			return nil, cashu.NewError(cashu.ErrCodeGeneric, fmt.Sprintf("malformed Y %q", y))
		}

		state, err := m.store.SpendState(y)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read spend state")
		}
		states = append(states, cashu.ProofState{Y: y, State: state})
	}
	return states, nil
}

// MarkSpent flags secrets as spent by their Y values. Tests and demos use
// this in place of a full swap/melt flow.
func (m *Mint) MarkSpent(ys ...string) error {
	for _, y := range ys {
		if err := m.store.MarkSpent(y); err != nil {
			return err
		}
	}
	return nil
}

// SignedCount reports how many signatures the ledger holds.
func (m *Mint) SignedCount() (int, error) {
	return m.store.Count()
}

// Close releases the ledger.
func (m *Mint) Close() error {
	return m.store.Close()
}

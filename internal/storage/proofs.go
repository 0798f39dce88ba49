package storage

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/recovery"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// StoredProof is the persisted form of one recovered proof.
type StoredProof struct {
	Proof   cashu.Proof           `json:"proof"`
	Counter uint32                `json:"counter"`
	State   cashu.ProofStateValue `json:"state,omitempty"`
	SavedAt time.Time             `json:"saved_at"`
}

// Spendable mirrors the engine's optimistic rule: anything not known to be
// spent or pending counts toward the balance.
func (p StoredProof) Spendable() bool {
	return p.State == "" || p.State == cashu.ProofStateUnspent
}

// SaveProofs upserts one keyset's recovered proofs, keyed by secret. It
// implements the engine's proof sink; saving the same proofs again after a
// re-run is a no-op overwrite.
func (s *Store) SaveProofs(ctx context.Context, keysetID cashu.ID, proofs []recovery.RecoveredProof) error {
	if len(proofs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	savedAt := s.now()

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.Bucket(proofsBucket).CreateBucketIfNotExists([]byte(keysetID))
		if err != nil {
			return err
		}

		for _, p := range proofs {
			record, err := json.Marshal(StoredProof{
				Proof:   p.Proof,
				Counter: p.Counter,
				State:   p.State,
				SavedAt: savedAt,
			})
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(p.Proof.Secret), record); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrapf(err, "failed to save proofs for keyset %s", keysetID)
}

// Proofs returns one keyset's stored proofs ordered by counter.
func (s *Store) Proofs(keysetID cashu.ID) ([]StoredProof, error) {
	var proofs []StoredProof

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(proofsBucket).Bucket([]byte(keysetID))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			var record StoredProof
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			proofs = append(proofs, record)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read proofs for keyset %s", keysetID)
	}

	sort.Slice(proofs, func(i, j int) bool { return proofs[i].Counter < proofs[j].Counter })
	return proofs, nil
}

// AllProofs returns every stored proof grouped by keyset.
func (s *Store) AllProofs() (map[cashu.ID][]StoredProof, error) {
	all := map[cashu.ID][]StoredProof{}

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(proofsBucket).ForEachBucket(func(k []byte) error {
			keysetID := cashu.ID(k)
			bucket := tx.Bucket(proofsBucket).Bucket(k)
			return bucket.ForEach(func(_, v []byte) error {
				var record StoredProof
				if err := json.Unmarshal(v, &record); err != nil {
					return err
				}
				all[keysetID] = append(all[keysetID], record)
				return nil
			})
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read stored proofs")
	}

	for _, proofs := range all {
		sort.Slice(proofs, func(i, j int) bool { return proofs[i].Counter < proofs[j].Counter })
	}
	return all, nil
}

// KeysetSummary aggregates one keyset's stored proofs for reporting.
type KeysetSummary struct {
	KeysetID    cashu.ID
	Proofs      int
	Spendable   int
	Amount      cashu.Amount
	SpentAmount cashu.Amount
}

// Summaries reports per-keyset balances, ordered by keyset ID. Amount
// counts only spendable proofs; SpentAmount the rest.
func (s *Store) Summaries() ([]KeysetSummary, error) {
	all, err := s.AllProofs()
	if err != nil {
		return nil, err
	}

	summaries := make([]KeysetSummary, 0, len(all))
	for keysetID, proofs := range all {
		summary := KeysetSummary{KeysetID: keysetID, Proofs: len(proofs)}
		for _, p := range proofs {
			if p.Spendable() {
				summary.Spendable++
				summary.Amount += p.Proof.Amount
			} else {
				summary.SpentAmount += p.Proof.Amount
			}
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].KeysetID < summaries[j].KeysetID })
	return summaries, nil
}

// Balance sums the spendable amounts across all keysets.
func (s *Store) Balance() (cashu.Amount, error) {
	summaries, err := s.Summaries()
	if err != nil {
		return 0, err
	}

	var total cashu.Amount
	for _, summary := range summaries {
		total += summary.Amount
	}
	return total, nil
}

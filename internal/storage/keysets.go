package storage

import (
	"encoding/json"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// SaveKeyset caches a fetched keyset's public keys in their wire shape.
func (s *Store) SaveKeyset(keyset *cashu.Keyset) error {
	record, err := json.Marshal(keyset.Wire())
	if err != nil {
		return errors.Wrapf(err, "failed to encode keyset %s", keyset.ID)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(keysetsBucket).Put([]byte(keyset.ID), record)
	})
	return errors.Wrapf(err, "failed to save keyset %s", keyset.ID)
}

// Keyset returns a cached keyset, or ok=false when it was never cached.
func (s *Store) Keyset(id cashu.ID) (*cashu.Keyset, bool, error) {
	var record []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(keysetsBucket).Get([]byte(id)); v != nil {
			record = append(record, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read keyset %s", id)
	}
	if record == nil {
		return nil, false, nil
	}

	var wire cashu.KeysetKeys
	if err := json.Unmarshal(record, &wire); err != nil {
		return nil, false, errors.Wrapf(err, "failed to decode cached keyset %s", id)
	}

	keyset, err := cashu.KeysetFromWire(wire)
	if err != nil {
		return nil, false, errors.Wrapf(err, "cached keyset %s is corrupt", id)
	}
	return keyset, true, nil
}

// KeysetIDs lists every cached keyset ID.
func (s *Store) KeysetIDs() ([]cashu.ID, error) {
	var ids []cashu.ID

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(keysetsBucket).ForEach(func(k, _ []byte) error {
			ids = append(ids, cashu.ID(k))
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list cached keysets")
	}
	return ids, nil
}

// Package storage persists recovered proofs and cached keyset keys in a
// single-file bolt database, so repeated recovery runs stay idempotent and
// the CLI can answer balance queries offline.
package storage

import (
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const (
	dbFilePermission = 0o600

	// Opening a database held by another process fails fast instead of
	// blocking on the file lock forever.
	openTimeout = 5 * time.Second
)

var (
	// proofsBucket holds one sub-bucket per keyset ID, keyed by proof
	// secret. Secrets are unique per proof, which is what makes re-saving
	// after a repeated recovery run a plain overwrite.
	proofsBucket = []byte("proofs")

	// keysetsBucket caches fetched keyset keys by keyset ID.
	keysetsBucket = []byte("keysets")
)

// Store is a wallet-local proof database. All methods are safe for
// concurrent use; bolt serializes writers internally.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the store at path and ensures its buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, dbFilePermission, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open proof store at %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(proofsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(keysetsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create store buckets")
	}

	return &Store{db: db, now: time.Now}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.db.Path()
}

func (s *Store) Close() error {
	return s.db.Close()
}

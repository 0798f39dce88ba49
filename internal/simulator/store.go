package simulator

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/398ja/cashu-recovery/internal/cashu"
)

// SignatureStore is the simulated mint's ledger: every blinded signature it
// has ever issued, keyed by the blinded point, plus the set of secrets marked
// spent. Keys are normalized to lowercase hex before storage.
type SignatureStore interface {
	PutSignature(blindedPoint string, sig cashu.BlindedSignature) error
	Signature(blindedPoint string) (cashu.BlindedSignature, bool, error)
	MarkSpent(y string) error
	SpendState(y string) (cashu.ProofStateValue, error)
	Count() (int, error)
	Close() error
}

type memSignatureStore struct {
	mu         sync.RWMutex
	signatures map[string]cashu.BlindedSignature
	spent      map[string]struct{}
}

// NewMemSignatureStore returns a store that lives and dies with the process.
func NewMemSignatureStore() SignatureStore {
	return &memSignatureStore{
		signatures: make(map[string]cashu.BlindedSignature),
		spent:      make(map[string]struct{}),
	}
}

func (s *memSignatureStore) PutSignature(blindedPoint string, sig cashu.BlindedSignature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signatures[strings.ToLower(blindedPoint)] = sig
	return nil
}

func (s *memSignatureStore) Signature(blindedPoint string) (cashu.BlindedSignature, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signatures[strings.ToLower(blindedPoint)]
	return sig, ok, nil
}

func (s *memSignatureStore) MarkSpent(y string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spent[strings.ToLower(y)] = struct{}{}
	return nil
}

func (s *memSignatureStore) SpendState(y string) (cashu.ProofStateValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.spent[strings.ToLower(y)]; ok {
		return cashu.ProofStateSpent, nil
	}
	return cashu.ProofStateUnspent, nil
}

func (s *memSignatureStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.signatures), nil
}

func (s *memSignatureStore) Close() error {
	return nil
}

var (
	simSignaturesBucket = []byte("signatures")
	simSpentBucket      = []byte("spent")
)

type boltSignatureStore struct {
	db *bolt.DB
}

// OpenBoltSignatureStore opens (or creates) a file-backed store so a
// long-running simulator keeps its ledger across restarts.
func OpenBoltSignatureStore(path string) (SignatureStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open simulator database %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(simSignaturesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(simSpentBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create simulator buckets")
	}

	return &boltSignatureStore{db: db}, nil
}

func (s *boltSignatureStore) PutSignature(blindedPoint string, sig cashu.BlindedSignature) error {
	value, err := json.Marshal(sig)
	if err != nil {
		return errors.Wrap(err, "failed to encode signature")
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(simSignaturesBucket).Put([]byte(strings.ToLower(blindedPoint)), value)
	})
	return errors.Wrap(err, "failed to store signature")
}

func (s *boltSignatureStore) Signature(blindedPoint string) (cashu.BlindedSignature, bool, error) {
	var sig cashu.BlindedSignature
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(simSignaturesBucket).Get([]byte(strings.ToLower(blindedPoint)))
		if value == nil {
			return nil
		}
		found = true
		return json.Unmarshal(value, &sig)
	})
	if err != nil {
		return cashu.BlindedSignature{}, false, errors.Wrap(err, "failed to read signature")
	}
	return sig, found, nil
}

func (s *boltSignatureStore) MarkSpent(y string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(simSpentBucket).Put([]byte(strings.ToLower(y)), []byte{1})
	})
	return errors.Wrap(err, "failed to mark spent")
}

func (s *boltSignatureStore) SpendState(y string) (cashu.ProofStateValue, error) {
	state := cashu.ProofStateUnspent

	err := s.db.View(func(tx *bolt.Tx) error {
		if value := tx.Bucket(simSpentBucket).Get([]byte(strings.ToLower(y))); bytes.Equal(value, []byte{1}) {
			state = cashu.ProofStateSpent
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to read spend state")
	}
	return state, nil
}

func (s *boltSignatureStore) Count() (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(simSignaturesBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to count signatures")
	}
	return count, nil
}

func (s *boltSignatureStore) Close() error {
	return s.db.Close()
}

package recovery

import (
	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/crypto"
	"github.com/398ja/cashu-recovery/internal/derivation"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
)

// outputSet is one derived counter window ready for submission: secrets,
// blinding factors and blinded messages aligned by index, so a restored
// signature at request index i pairs with secrets[i] and factors[i].
type outputSet struct {
	keyset  cashu.ID
	start   uint32
	secrets []cashu.Secret
	factors []*secp256k1.PrivateKey

	messages []cashu.BlindedMessage
}

// buildOutputs derives and blinds one window of counters. Restore requests
// carry amount zero because the wallet cannot know what each output was
// originally worth; the mint answers with the real amounts.
func buildOutputs(master *derivation.MasterKey, keyset cashu.ID, start uint32, count uint32) (*outputSet, error) {
	secrets, factors, err := master.DeriveBatch(keyset, start, int(count))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to derive counters [%d,%d)", start, uint64(start)+uint64(count))
	}

	set := &outputSet{
		keyset:   keyset,
		start:    start,
		secrets:  secrets,
		factors:  factors,
		messages: make([]cashu.BlindedMessage, len(secrets)),
	}

	for i := range secrets {
		point, err := crypto.BlindMessage(secrets[i].Value, factors[i])
		if err != nil {
			return nil, errors.Wrapf(err, "failed to blind counter %d", start+uint32(i))
		}
		set.messages[i] = cashu.NewBlindedMessage(0, keyset, point)
	}

	return set, nil
}

// counter maps a request index back to its derivation counter.
func (s *outputSet) counter(index int) uint32 {
	return s.start + uint32(index)
}

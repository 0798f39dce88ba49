package recovery

import (
	"context"
	"encoding/hex"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/crypto"
	"github.com/398ja/cashu-recovery/internal/mint"
	"github.com/398ja/cashu-recovery/internal/util"
)

// reconstruct unblinds one batch's restored signatures into proofs.
// Failures are strictly per item: a pair that will not unblind is logged
// and skipped while the rest of the batch proceeds.
func reconstruct(ctx context.Context, keyset *cashu.Keyset, set *outputSet, pairs []mint.RestoredPair) []RecoveredProof {
	logger := util.LogFromContext(ctx)

	proofs := make([]RecoveredProof, 0, len(pairs))
	for _, pair := range pairs {
		if pair.Index < 0 || pair.Index >= len(set.secrets) {
			logger.Warn().
				Int("index", pair.Index).
				Int("window", len(set.secrets)).
				Msg("Restored pair points outside the submitted window, skipping")
			continue
		}
		counter := set.counter(pair.Index)

		mintKey, ok := keyset.PublicKey(pair.Signature.Amount)
		if !ok {
			logger.Warn().
				Uint64("amount", uint64(pair.Signature.Amount)).
				Uint32("counter", counter).
				Msg("No mint key for restored amount, skipping")
			continue
		}

		signaturePoint, err := pair.Signature.Point()
		if err != nil {
			logger.Warn().
				Err(err).
				Uint32("counter", counter).
				Msg("Restored signature is not a curve point, skipping")
			continue
		}

		unblinded, err := crypto.UnblindSignature(signaturePoint, set.factors[pair.Index], mintKey)
		if err != nil {
			logger.Warn().
				Err(err).
				Uint32("counter", counter).
				Msg("Failed to unblind restored signature, skipping")
			continue
		}

		proofs = append(proofs, RecoveredProof{
			Proof: cashu.Proof{
				Amount: pair.Signature.Amount,
				ID:     keyset.ID.String(),
				Secret: set.secrets[pair.Index].Value,
				C:      hex.EncodeToString(unblinded.SerializeCompressed()),
			},
			Counter: counter,
		})
	}

	return proofs
}

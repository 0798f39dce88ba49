package mint

import (
	"context"
	"fmt"
	"sort"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/util"
)

// RestoredPair couples a blind signature returned by the mint with the
// request position of the blinded message it signs. Index refers to the
// outputs slice passed to Restore, never to the response order.
type RestoredPair struct {
	Index     int
	Message   cashu.BlindedMessage
	Signature cashu.BlindedSignature
}

// Restore submits one batch of blinded messages to POST /v1/restore and
// correlates the echoed outputs back to the request by blinded point. The
// mint only returns outputs it has ever signed, in arbitrary order; an
// empty result simply means none of the batch was ever issued.
func (c *Client) Restore(ctx context.Context, outputs []cashu.BlindedMessage) ([]RestoredPair, error) {
	if len(outputs) == 0 {
		return nil, nil
	}

	endpoint := c.baseURL + "/v1/restore"

	var resp cashu.PostRestoreResponse
	if err := c.postJSON(ctx, "/v1/restore", &cashu.PostRestoreRequest{Outputs: outputs}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Outputs) != len(resp.Signatures) {
		return nil, &ProtocolError{
			URL:    endpoint,
			Reason: fmt.Sprintf("%d outputs but %d signatures in response", len(resp.Outputs), len(resp.Signatures)),
		}
	}
	if len(resp.Outputs) > len(outputs) {
		return nil, &ProtocolError{
			URL:    endpoint,
			Reason: fmt.Sprintf("response echoes %d outputs for a batch of %d", len(resp.Outputs), len(outputs)),
		}
	}

	indexByPoint := make(map[string]int, len(outputs))
	for i, output := range outputs {
		indexByPoint[output.B_] = i
	}

	pairs := make([]RestoredPair, 0, len(resp.Outputs))
	seen := make(map[string]struct{}, len(resp.Outputs))
	for i, echoed := range resp.Outputs {
		index, ok := indexByPoint[echoed.B_]
		if !ok {
			return nil, &ProtocolError{
				URL:    endpoint,
				Reason: fmt.Sprintf("response contains blinded point %s that was never submitted", echoed.B_),
			}
		}
		if _, dup := seen[echoed.B_]; dup {
			return nil, &ProtocolError{
				URL:    endpoint,
				Reason: fmt.Sprintf("response repeats blinded point %s", echoed.B_),
			}
		}
		seen[echoed.B_] = struct{}{}

		pairs = append(pairs, RestoredPair{
			Index:     index,
			Message:   outputs[index],
			Signature: resp.Signatures[i],
		})
	}

	// Callers walk restored counters in order; the mint's ordering is not
	// part of the contract.
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Index < pairs[j].Index })

	util.LogFromContext(ctx).Debug().
		Int("submitted", len(outputs)).
		Int("restored", len(pairs)).
		Msg("Restored signature batch")

	return pairs, nil
}

// Sign posts outputs to the issuance endpoint the simulator exposes for
// seeding signature history. Real mints do not serve it.
func (c *Client) Sign(ctx context.Context, outputs []cashu.BlindedMessage) ([]cashu.BlindedSignature, error) {
	if len(outputs) == 0 {
		return nil, nil
	}

	var resp cashu.PostSignResponse
	if err := c.postJSON(ctx, "/v1/sign", &cashu.PostSignRequest{Outputs: outputs}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Signatures) != len(outputs) {
		return nil, &ProtocolError{
			URL:    c.baseURL + "/v1/sign",
			Reason: fmt.Sprintf("%d signatures for %d outputs", len(resp.Signatures), len(outputs)),
		}
	}
	return resp.Signatures, nil
}

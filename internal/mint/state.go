package mint

import (
	"context"
	"fmt"

	"github.com/398ja/cashu-recovery/internal/cashu"
)

// CheckState asks the mint for the spend status of secrets identified by
// their curve points Y = hashToCurve(secret). States come back one per
// requested point, in request order.
func (c *Client) CheckState(ctx context.Context, ys []string) ([]cashu.ProofState, error) {
	if len(ys) == 0 {
		return nil, nil
	}

	var resp cashu.PostCheckStateResponse
	if err := c.postJSON(ctx, "/v1/checkstate", &cashu.PostCheckStateRequest{Ys: ys}, &resp); err != nil {
		return nil, err
	}

	if len(resp.States) != len(ys) {
		return nil, &ProtocolError{
			URL:    c.baseURL + "/v1/checkstate",
			Reason: fmt.Sprintf("%d states for %d requested points", len(resp.States), len(ys)),
		}
	}
	return resp.States, nil
}

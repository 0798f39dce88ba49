package mint

import (
	"context"
	"net/url"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/pkg/errors"
)

// Info fetches the mint's self-description from /v1/info.
func (c *Client) Info(ctx context.Context) (*cashu.GetInfoResponse, error) {
	var resp cashu.GetInfoResponse
	if err := c.getJSON(ctx, "/v1/info", &resp); err != nil {
		return nil, errors.Wrap(err, "failed to fetch mint info")
	}
	return &resp, nil
}

// Keysets lists every keyset the mint has ever announced, active and
// retired alike. Recovery has to sweep the retired ones too.
func (c *Client) Keysets(ctx context.Context) ([]cashu.KeysetInfo, error) {
	var resp cashu.GetKeysetsResponse
	if err := c.getJSON(ctx, "/v1/keysets", &resp); err != nil {
		return nil, errors.Wrap(err, "failed to fetch mint keysets")
	}
	return resp.Keysets, nil
}

// ActiveKeys fetches the per-amount public keys of all currently active
// keysets from /v1/keys.
func (c *Client) ActiveKeys(ctx context.Context) ([]*cashu.Keyset, error) {
	var resp cashu.GetKeysResponse
	if err := c.getJSON(ctx, "/v1/keys", &resp); err != nil {
		return nil, errors.Wrap(err, "failed to fetch active mint keys")
	}

	keysets := make([]*cashu.Keyset, 0, len(resp.Keysets))
	for _, wire := range resp.Keysets {
		keyset, err := cashu.KeysetFromWire(wire)
		if err != nil {
			return nil, &ProtocolError{URL: c.baseURL + "/v1/keys", Reason: err.Error()}
		}
		keyset.Active = true
		keysets = append(keysets, keyset)
	}
	return keysets, nil
}

// Keys fetches the per-amount public keys of one keyset, active or not.
func (c *Client) Keys(ctx context.Context, id cashu.ID) (*cashu.Keyset, error) {
	path := "/v1/keys/" + url.PathEscape(id.String())

	var resp cashu.GetKeysResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch keys for keyset %s", id)
	}

	for _, wire := range resp.Keysets {
		if wire.ID != id.String() {
			continue
		}
		keyset, err := cashu.KeysetFromWire(wire)
		if err != nil {
			return nil, &ProtocolError{URL: c.baseURL + path, Reason: err.Error()}
		}
		return keyset, nil
	}

	return nil, &ProtocolError{
		URL:    c.baseURL + path,
		Reason: "requested keyset missing from response",
	}
}

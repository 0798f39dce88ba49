package mint_test

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/mint"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastOptions keeps retry pauses microscopic so tests never sleep for real.
func fastOptions() mint.Options {
	return mint.Options{
		MaxAttempts:    4,
		BackoffBase:    time.Nanosecond,
		BackoffMax:     time.Nanosecond,
		RejectCooldown: time.Nanosecond,
	}
}

func newTestClient(t *testing.T, baseURL string) *mint.Client {
	t.Helper()

	client, err := mint.New(baseURL, fastOptions())
	require.NoError(t, err)
	return client
}

func TestNewNormalizesURL(t *testing.T) {
	client, err := mint.New("https://mint.example.com/api/ ", mint.Options{})
	require.NoError(t, err)
	assert.Equal(t, "https://mint.example.com/api", client.BaseURL())
}

func TestNewRejectsBadURLs(t *testing.T) {
	_, err := mint.New("", mint.Options{})
	require.Error(t, err)

	_, err = mint.New("ftp://mint.example.com", mint.Options{})
	require.Error(t, err)

	_, err = mint.New("https://", mint.Options{})
	require.Error(t, err)
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"keysets":[{"id":"009a1f293253e41e","unit":"sat","active":true}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	keysets, err := client.Keysets(context.Background())
	require.NoError(t, err)
	require.Len(t, keysets, 1)
	assert.Equal(t, "009a1f293253e41e", keysets[0].ID)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClientStopsOnHardRejection(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"keyset is unknown","code":12001}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Keysets(context.Background())
	require.Error(t, err)

	var rejected *mint.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, http.StatusBadRequest, rejected.StatusCode)
	require.NotNil(t, rejected.Cause)
	assert.Equal(t, cashu.ErrCodeKeysetUnknown, rejected.Cause.Code)
	assert.False(t, rejected.Retryable())
	assert.False(t, mint.IsRetryable(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClientRateLimitGetsCooldownThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"keysets":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Keysets(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClientExhaustsAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	opts := fastOptions()
	opts.MaxAttempts = 2
	client, err := mint.New(server.URL, opts)
	require.NoError(t, err)

	_, err = client.Keysets(context.Background())
	require.Error(t, err)

	var rejected *mint.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, http.StatusBadGateway, rejected.StatusCode)
	assert.True(t, mint.IsRetryable(err))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClientReportsTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	opts := fastOptions()
	opts.MaxAttempts = 2
	client, err := mint.New(baseURL, opts)
	require.NoError(t, err)

	_, err = client.Keysets(context.Background())
	require.Error(t, err)

	var transport *mint.TransportError
	require.True(t, errors.As(err, &transport))
	assert.True(t, mint.IsRetryable(err))
}

func TestClientRejectsMalformedBodies(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`these are not the keysets you are looking for`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Keysets(context.Background())
	require.Error(t, err)

	var protocol *mint.ProtocolError
	require.True(t, errors.As(err, &protocol))
	assert.False(t, mint.IsRetryable(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClientInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/info", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name": "testmint",
			"version": "Nutshell/0.16.0",
			"nuts": {
				"7": {"supported": true},
				"9": {"supported": true},
				"13": {"supported": true},
				"4": {"disabled": false, "methods": [{"method": "bolt11", "unit": "sat"}]}
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	info, err := client.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "testmint", info.Name)
	assert.True(t, info.NutSupported("9"))
	assert.True(t, info.NutSupported("13"))
	assert.False(t, info.NutSupported("17"))
}

func TestClientKeysParsesKeyset(t *testing.T) {
	wireKeys := map[string]string{}
	for i := 0; i < 2; i++ {
		b := make([]byte, 32)
		b[31] = byte(i + 1)
		pub := secp256k1.PrivKeyFromBytes(b).PubKey()
		wireKeys[strconv.Itoa(1<<i)] = hex.EncodeToString(pub.SerializeCompressed())
	}
	keysJSON, err := json.Marshal(map[string]interface{}{
		"keysets": []map[string]interface{}{
			{"id": "009a1f293253e41e", "unit": "sat", "keys": wireKeys},
		},
	})
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/keys/009a1f293253e41e", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(keysJSON)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	keyset, err := client.Keys(context.Background(), cashu.ID("009a1f293253e41e"))
	require.NoError(t, err)
	assert.Equal(t, cashu.ID("009a1f293253e41e"), keyset.ID)
	assert.Equal(t, "sat", keyset.Unit)
	assert.Equal(t, []cashu.Amount{1, 2}, keyset.Amounts())

	_, ok := keyset.PublicKey(2)
	assert.True(t, ok)
}

func TestClientKeysMissingFromResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"keysets":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Keys(context.Background(), cashu.ID("00deadbeef000000"))
	require.Error(t, err)

	var protocol *mint.ProtocolError
	require.True(t, errors.As(err, &protocol))
}

func TestClientCheckState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkstate", r.URL.Path)

		var req cashu.PostCheckStateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := cashu.PostCheckStateResponse{}
		for i, y := range req.Ys {
			state := cashu.ProofStateUnspent
			if i%2 == 1 {
				state = cashu.ProofStateSpent
			}
			resp.States = append(resp.States, cashu.ProofState{Y: y, State: state})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	ys := []string{"02aa", "02bb", "02cc"}
	states, err := client.CheckState(context.Background(), ys)
	require.NoError(t, err)
	require.Len(t, states, 3)
	assert.Equal(t, cashu.ProofStateUnspent, states[0].State)
	assert.Equal(t, cashu.ProofStateSpent, states[1].State)
	assert.Equal(t, "02cc", states[2].Y)
}

func TestClientCheckStateLengthMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"states":[{"Y":"02aa","state":"UNSPENT"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.CheckState(context.Background(), []string{"02aa", "02bb"})
	require.Error(t, err)

	var protocol *mint.ProtocolError
	require.True(t, errors.As(err, &protocol))
}

func TestClientCheckStateEmptyInput(t *testing.T) {
	client := newTestClient(t, "http://mint.invalid")

	states, err := client.CheckState(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, states)
}

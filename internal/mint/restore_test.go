package mint_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/mint"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOutputs(n int) []cashu.BlindedMessage {
	outputs := make([]cashu.BlindedMessage, n)
	for i := range outputs {
		outputs[i] = cashu.BlindedMessage{
			Amount: 0,
			ID:     "009a1f293253e41e",
			B_:     fmt.Sprintf("02%062d", i),
		}
	}
	return outputs
}

func signatureFor(output cashu.BlindedMessage, amount cashu.Amount) cashu.BlindedSignature {
	return cashu.BlindedSignature{
		Amount: amount,
		ID:     output.ID,
		C_:     "03" + output.B_[2:],
	}
}

func TestRestoreCorrelatesByBlindedPoint(t *testing.T) {
	outputs := testOutputs(5)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/restore", r.URL.Path)

		var req cashu.PostRestoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Outputs, 5)

		// Signed history exists for outputs 3 and 1 only; return them out
		// of request order on purpose.
		resp := cashu.PostRestoreResponse{
			Outputs:    []cashu.BlindedMessage{req.Outputs[3], req.Outputs[1]},
			Signatures: []cashu.BlindedSignature{signatureFor(req.Outputs[3], 8), signatureFor(req.Outputs[1], 2)},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	pairs, err := client.Restore(context.Background(), outputs)
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	// sorted by request index, each signature attached to its own output
	assert.Equal(t, 1, pairs[0].Index)
	assert.Equal(t, outputs[1].B_, pairs[0].Message.B_)
	assert.Equal(t, cashu.Amount(2), pairs[0].Signature.Amount)

	assert.Equal(t, 3, pairs[1].Index)
	assert.Equal(t, outputs[3].B_, pairs[1].Message.B_)
	assert.Equal(t, cashu.Amount(8), pairs[1].Signature.Amount)
}

func TestRestoreAcceptsLegacyPromises(t *testing.T) {
	outputs := testOutputs(3)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req cashu.PostRestoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		body := map[string]interface{}{
			"outputs":  []cashu.BlindedMessage{req.Outputs[0]},
			"promises": []cashu.BlindedSignature{signatureFor(req.Outputs[0], 4)},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	pairs, err := client.Restore(context.Background(), outputs)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, 0, pairs[0].Index)
	assert.Equal(t, cashu.Amount(4), pairs[0].Signature.Amount)
}

func TestRestoreEmptyBatchSkipsNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty batch")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	pairs, err := client.Restore(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestRestoreRejectsMisalignedResponse(t *testing.T) {
	outputs := testOutputs(2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req cashu.PostRestoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		body := map[string]interface{}{
			"outputs":    req.Outputs,
			"signatures": []cashu.BlindedSignature{signatureFor(req.Outputs[0], 1)},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Restore(context.Background(), outputs)
	require.Error(t, err)

	var protocol *mint.ProtocolError
	require.True(t, errors.As(err, &protocol))
	assert.Contains(t, protocol.Reason, "signatures")
}

func TestRestoreRejectsUnknownBlindedPoint(t *testing.T) {
	outputs := testOutputs(2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stranger := cashu.BlindedMessage{Amount: 0, ID: outputs[0].ID, B_: "02" + "ff" + outputs[0].B_[4:]}
		resp := cashu.PostRestoreResponse{
			Outputs:    []cashu.BlindedMessage{stranger},
			Signatures: []cashu.BlindedSignature{signatureFor(stranger, 1)},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Restore(context.Background(), outputs)
	require.Error(t, err)

	var protocol *mint.ProtocolError
	require.True(t, errors.As(err, &protocol))
	assert.Contains(t, protocol.Reason, "never submitted")
}

func TestRestoreRejectsDuplicatedBlindedPoint(t *testing.T) {
	outputs := testOutputs(2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req cashu.PostRestoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := cashu.PostRestoreResponse{
			Outputs:    []cashu.BlindedMessage{req.Outputs[0], req.Outputs[0]},
			Signatures: []cashu.BlindedSignature{signatureFor(req.Outputs[0], 1), signatureFor(req.Outputs[0], 1)},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Restore(context.Background(), outputs)
	require.Error(t, err)

	var protocol *mint.ProtocolError
	require.True(t, errors.As(err, &protocol))
	assert.Contains(t, protocol.Reason, "repeats")
}

func TestRestoreRejectsOversizedEcho(t *testing.T) {
	outputs := testOutputs(1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		extra := testOutputs(2)
		resp := cashu.PostRestoreResponse{
			Outputs:    extra,
			Signatures: []cashu.BlindedSignature{signatureFor(extra[0], 1), signatureFor(extra[1], 1)},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Restore(context.Background(), outputs)
	require.Error(t, err)

	var protocol *mint.ProtocolError
	require.True(t, errors.As(err, &protocol))
}

func TestSignAlignsSignatures(t *testing.T) {
	outputs := testOutputs(3)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/sign", r.URL.Path)

		var req cashu.PostSignRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := cashu.PostSignResponse{}
		for _, output := range req.Outputs {
			resp.Signatures = append(resp.Signatures, signatureFor(output, output.Amount))
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	signatures, err := client.Sign(context.Background(), outputs)
	require.NoError(t, err)
	require.Len(t, signatures, 3)
	for i, signature := range signatures {
		assert.Equal(t, "03"+outputs[i].B_[2:], signature.C_)
	}
}

func TestSignRejectsShortResponse(t *testing.T) {
	outputs := testOutputs(2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := cashu.PostSignResponse{Signatures: []cashu.BlindedSignature{signatureFor(outputs[0], 1)}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Sign(context.Background(), outputs)
	require.Error(t, err)

	var protocol *mint.ProtocolError
	require.True(t, errors.As(err, &protocol))
}

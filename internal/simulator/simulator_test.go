package simulator_test

import (
	"context"
	"encoding/hex"
	"net/http"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/crypto"
	"github.com/398ja/cashu-recovery/internal/derivation"
	"github.com/398ja/cashu-recovery/internal/mint"
	"github.com/398ja/cashu-recovery/internal/recovery"
	"github.com/398ja/cashu-recovery/internal/simulator"
	"github.com/398ja/cashu-recovery/internal/test"
)

// buildOutputs derives blinded messages for the given counters exactly the
// way a wallet would, so the simulator's ledger sees the same points the
// recovery engine will later ask about.
func buildOutputs(t *testing.T, master *derivation.MasterKey, id cashu.ID, history map[uint32]cashu.Amount) ([]cashu.BlindedMessage, map[uint32]cashu.Secret) {
	t.Helper()

	counters := make([]uint32, 0, len(history))
	for counter := range history {
		counters = append(counters, counter)
	}
	sort.Slice(counters, func(i, j int) bool { return counters[i] < counters[j] })

	outputs := make([]cashu.BlindedMessage, 0, len(counters))
	secrets := make(map[uint32]cashu.Secret, len(counters))
	for _, counter := range counters {
		secret, err := master.DeriveSecret(id, counter)
		require.NoError(t, err)
		factor, err := master.DeriveBlindingFactor(id, counter)
		require.NoError(t, err)
		point, err := crypto.BlindMessage(secret.Value, factor)
		require.NoError(t, err)

		outputs = append(outputs, cashu.NewBlindedMessage(history[counter], id, point))
		secrets[counter] = secret
	}
	return outputs, secrets
}

func yFor(t *testing.T, secret cashu.Secret) string {
	t.Helper()
	point, err := crypto.HashToCurve([]byte(secret.Value))
	require.NoError(t, err)
	return hex.EncodeToString(point.SerializeCompressed())
}

func TestInfoAdvertisesRestoreNuts(t *testing.T) {
	test.WithSimServer(t, func(s *simulator.Server) {
		res := test.PerformRequest(t, s, "GET", "/v1/info", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var info cashu.GetInfoResponse
		test.ParseResponseBody(t, res, &info)

		assert.NotEmpty(t, info.Name)
		assert.True(t, info.NutSupported("7"))
		assert.True(t, info.NutSupported("9"))
		assert.True(t, info.NutSupported("13"))
	})
}

func TestKeysetListings(t *testing.T) {
	test.WithSimServer(t, func(s *simulator.Server) {
		res := test.PerformRequest(t, s, "GET", "/v1/keysets", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var listing cashu.GetKeysetsResponse
		test.ParseResponseBody(t, res, &listing)
		require.Len(t, listing.Keysets, 2)
		assert.True(t, listing.Keysets[0].Active)
		assert.False(t, listing.Keysets[1].Active)
		for _, info := range listing.Keysets {
			_, err := cashu.ParseID(info.ID)
			require.NoError(t, err)
			assert.Equal(t, "sat", info.Unit)
		}

		// /v1/keys serves the active generation only.
		res = test.PerformRequest(t, s, "GET", "/v1/keys", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var active cashu.GetKeysResponse
		test.ParseResponseBody(t, res, &active)
		require.Len(t, active.Keysets, 1)
		assert.Equal(t, listing.Keysets[0].ID, active.Keysets[0].ID)
		assert.Len(t, active.Keysets[0].Keys, 64)

		// The retired generation stays fetchable by ID.
		res = test.PerformRequest(t, s, "GET", "/v1/keys/"+listing.Keysets[1].ID, nil, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var retired cashu.GetKeysResponse
		test.ParseResponseBody(t, res, &retired)
		require.Len(t, retired.Keysets, 1)

		keyset, err := cashu.KeysetFromWire(retired.Keysets[0])
		require.NoError(t, err)
		amounts := keyset.Amounts()
		assert.Equal(t, cashu.Amount(1), amounts[0])
		assert.Equal(t, cashu.Amount(1)<<63, amounts[len(amounts)-1])
	})
}

func TestKeysetLookupRejections(t *testing.T) {
	test.WithSimServer(t, func(s *simulator.Server) {
		res := test.PerformRequest(t, s, "GET", "/v1/keys/not-a-keyset-id!", nil, nil)
		test.RequireErrorResponse(t, res, http.StatusBadRequest, cashu.ErrCodeKeysetUnknown)

		res = test.PerformRequest(t, s, "GET", "/v1/keys/00deadbeefdeadbe", nil, nil)
		test.RequireErrorResponse(t, res, http.StatusNotFound, cashu.ErrCodeKeysetUnknown)
	})
}

func TestKeysetsAreDeterministicAcrossRestarts(t *testing.T) {
	var first cashu.ID
	test.WithSimServer(t, func(s *simulator.Server) {
		first = s.Mint.ActiveKeyset().ID
	})
	test.WithSimServer(t, func(s *simulator.Server) {
		assert.Equal(t, first, s.Mint.ActiveKeyset().ID)
	})
}

func TestSignThenRestoreRoundTrip(t *testing.T) {
	test.WithSimServer(t, func(s *simulator.Server) {
		master, err := derivation.NewMasterKeyFromMnemonic(test.TestMnemonic, "")
		require.NoError(t, err)
		defer master.Zero()

		id := s.Mint.ActiveKeyset().ID
		signed, _ := buildOutputs(t, master, id, map[uint32]cashu.Amount{0: 1, 1: 2, 2: 4, 3: 8})

		res := test.PerformRequest(t, s, "POST", "/v1/sign", cashu.PostSignRequest{Outputs: signed}, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var issued cashu.PostSignResponse
		test.ParseResponseBody(t, res, &issued)
		require.Len(t, issued.Signatures, 4)
		for i, sig := range issued.Signatures {
			assert.Equal(t, signed[i].Amount, sig.Amount)
			assert.Equal(t, id.String(), sig.ID)
			_, err := sig.Point()
			require.NoError(t, err)
		}

		// Restore over a wider counter span only echoes what was signed.
		probe, _ := buildOutputs(t, master, id, map[uint32]cashu.Amount{
			0: 0, 1: 0, 2: 0, 3: 0, 4: 0, 5: 0, 6: 0, 7: 0, 8: 0, 9: 0,
		})
		res = test.PerformRequest(t, s, "POST", "/v1/restore", cashu.PostRestoreRequest{Outputs: probe}, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var restored cashu.PostRestoreResponse
		test.ParseResponseBody(t, res, &restored)
		require.Len(t, restored.Outputs, 4)
		require.Len(t, restored.Signatures, 4)

		amounts := make([]cashu.Amount, 0, 4)
		for i, output := range restored.Outputs {
			assert.Equal(t, probe[i].B_, output.B_)
			amounts = append(amounts, restored.Signatures[i].Amount)
		}
		assert.Equal(t, []cashu.Amount{1, 2, 4, 8}, amounts)
	})
}

func TestSignRefusesDoubleSigning(t *testing.T) {
	test.WithSimServer(t, func(s *simulator.Server) {
		master, err := derivation.NewMasterKeyFromMnemonic(test.TestMnemonic, "")
		require.NoError(t, err)
		defer master.Zero()

		outputs, _ := buildOutputs(t, master, s.Mint.ActiveKeyset().ID, map[uint32]cashu.Amount{0: 1})

		res := test.PerformRequest(t, s, "POST", "/v1/sign", cashu.PostSignRequest{Outputs: outputs}, nil)
		require.Equal(t, http.StatusOK, res.Code)

		res = test.PerformRequest(t, s, "POST", "/v1/sign", cashu.PostSignRequest{Outputs: outputs}, nil)
		test.RequireErrorResponse(t, res, http.StatusBadRequest, cashu.ErrCodeBlindedMessageSigned)
	})
}

func TestSignRejectsUnknownKeysetAndAmount(t *testing.T) {
	test.WithSimServer(t, func(s *simulator.Server) {
		master, err := derivation.NewMasterKeyFromMnemonic(test.TestMnemonic, "")
		require.NoError(t, err)
		defer master.Zero()

		id := s.Mint.ActiveKeyset().ID
		outputs, _ := buildOutputs(t, master, id, map[uint32]cashu.Amount{0: 1})

		foreign := outputs[0]
		foreign.ID = "00deadbeefdeadbe"
		res := test.PerformRequest(t, s, "POST", "/v1/sign", cashu.PostSignRequest{Outputs: []cashu.BlindedMessage{foreign}}, nil)
		test.RequireErrorResponse(t, res, http.StatusBadRequest, cashu.ErrCodeKeysetUnknown)

		odd := outputs[0]
		odd.Amount = 3
		res = test.PerformRequest(t, s, "POST", "/v1/sign", cashu.PostSignRequest{Outputs: []cashu.BlindedMessage{odd}}, nil)
		test.RequireErrorResponse(t, res, http.StatusBadRequest, cashu.ErrCodeGeneric)
	})
}

func TestRestoreIgnoresUnknownOutputs(t *testing.T) {
	test.WithSimServer(t, func(s *simulator.Server) {
		master, err := derivation.NewMasterKeyFromMnemonic(test.TestMnemonic, "")
		require.NoError(t, err)
		defer master.Zero()

		probe, _ := buildOutputs(t, master, s.Mint.ActiveKeyset().ID, map[uint32]cashu.Amount{10: 0, 11: 0})

		res := test.PerformRequest(t, s, "POST", "/v1/restore", cashu.PostRestoreRequest{Outputs: probe}, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var restored cashu.PostRestoreResponse
		test.ParseResponseBody(t, res, &restored)
		assert.Empty(t, restored.Outputs)
		assert.Empty(t, restored.Signatures)
	})
}

func TestRestoreRejectsOversizedBatch(t *testing.T) {
	test.WithSimServer(t, func(s *simulator.Server) {
		outputs := make([]cashu.BlindedMessage, simulator.MaxBatchOutputs+1)
		for i := range outputs {
			outputs[i] = cashu.BlindedMessage{ID: s.Mint.ActiveKeyset().ID.String(), B_: "02ff"}
		}

		res := test.PerformRequest(t, s, "POST", "/v1/restore", cashu.PostRestoreRequest{Outputs: outputs}, nil)
		test.RequireErrorResponse(t, res, http.StatusRequestEntityTooLarge, cashu.ErrCodeGeneric)
	})
}

func TestCheckStateReflectsSpentLedger(t *testing.T) {
	test.WithSimServer(t, func(s *simulator.Server) {
		master, err := derivation.NewMasterKeyFromMnemonic(test.TestMnemonic, "")
		require.NoError(t, err)
		defer master.Zero()

		outputs, secrets := buildOutputs(t, master, s.Mint.ActiveKeyset().ID, map[uint32]cashu.Amount{0: 1})
		_, err = s.Mint.Sign(outputs)
		require.NoError(t, err)

		y := yFor(t, secrets[0])

		res := test.PerformRequest(t, s, "POST", "/v1/checkstate", cashu.PostCheckStateRequest{Ys: []string{y}}, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var states cashu.PostCheckStateResponse
		test.ParseResponseBody(t, res, &states)
		require.Len(t, states.States, 1)
		assert.Equal(t, cashu.ProofStateUnspent, states.States[0].State)

		require.NoError(t, s.Mint.MarkSpent(y))

		res = test.PerformRequest(t, s, "POST", "/v1/checkstate", cashu.PostCheckStateRequest{Ys: []string{y}}, nil)
		require.Equal(t, http.StatusOK, res.Code)
		test.ParseResponseBody(t, res, &states)
		require.Len(t, states.States, 1)
		assert.Equal(t, cashu.ProofStateSpent, states.States[0].State)

		res = test.PerformRequest(t, s, "POST", "/v1/checkstate", cashu.PostCheckStateRequest{Ys: []string{"zz"}}, nil)
		test.RequireErrorResponse(t, res, http.StatusBadRequest, cashu.ErrCodeGeneric)
	})
}

func TestBoltLedgerSurvivesRestart(t *testing.T) {
	cfg := test.SimConfig()
	cfg.Simulator.DatabasePath = filepath.Join(t.TempDir(), "sim.db")

	master, err := derivation.NewMasterKeyFromMnemonic(test.TestMnemonic, "")
	require.NoError(t, err)
	defer master.Zero()

	first, err := simulator.NewServer(cfg)
	require.NoError(t, err)

	id := first.Mint.ActiveKeyset().ID
	outputs, _ := buildOutputs(t, master, id, map[uint32]cashu.Amount{0: 2})
	_, err = first.Mint.Sign(outputs)
	require.NoError(t, err)
	require.NoError(t, first.Mint.Close())

	second, err := simulator.NewServer(cfg)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, second.Mint.Close())
	}()

	restore, _ := buildOutputs(t, master, id, map[uint32]cashu.Amount{0: 0, 1: 0})
	resp, err := second.Mint.Restore(restore)
	require.NoError(t, err)
	require.Len(t, resp.Signatures, 1)
	assert.Equal(t, cashu.Amount(2), resp.Signatures[0].Amount)
}

func TestSignAllModeSignsUnknownOutputs(t *testing.T) {
	cfg := test.SimConfig()
	cfg.Simulator.SignAll = true

	test.WithSimServerConfigurable(t, cfg, func(s *simulator.Server) {
		master, err := derivation.NewMasterKeyFromMnemonic(test.TestMnemonic, "")
		require.NoError(t, err)
		defer master.Zero()

		probe, _ := buildOutputs(t, master, s.Mint.ActiveKeyset().ID, map[uint32]cashu.Amount{0: 0, 1: 0})

		resp, err := s.Mint.Restore(probe)
		require.NoError(t, err)
		require.Len(t, resp.Signatures, 2)
		for _, sig := range resp.Signatures {
			assert.Equal(t, cashu.Amount(1), sig.Amount)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	test.WithSimServer(t, func(s *simulator.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/healthy", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)

		res = test.PerformRequest(t, s, "GET", "/-/ready", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)

		res = test.PerformRequest(t, s, "GET", "/metrics", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)
	})
}

// TestEngineRecoversFromSimulator drives the full loop: wallet history seeded
// into the simulated mint across two keyset generations, then recovered over
// real HTTP by the engine from nothing but the mnemonic.
func TestEngineRecoversFromSimulator(t *testing.T) {
	test.WithRunningSimServer(t, func(s *simulator.Server, baseURL string) {
		master, err := derivation.NewMasterKeyFromMnemonic(test.TestMnemonic, "")
		require.NoError(t, err)
		defer master.Zero()

		active := s.Mint.ActiveKeyset().ID
		var retired cashu.ID
		for _, keyset := range s.Mint.Keysets() {
			if !keyset.Active {
				retired = keyset.ID
			}
		}

		activeOutputs, _ := buildOutputs(t, master, active, map[uint32]cashu.Amount{
			0: 1, 1: 2, 2: 4, 3: 8, 4: 16,
		})
		_, err = s.Mint.Sign(activeOutputs)
		require.NoError(t, err)

		retiredOutputs, _ := buildOutputs(t, master, retired, map[uint32]cashu.Amount{0: 32, 1: 64})
		_, err = s.Mint.Sign(retiredOutputs)
		require.NoError(t, err)

		client, err := mint.New(baseURL, mint.Options{Timeout: 10 * time.Second})
		require.NoError(t, err)

		engine, err := recovery.NewEngine(client, recovery.Options{
			BatchSize:           25,
			EmptyBatchThreshold: 2,
		})
		require.NoError(t, err)

		result, err := engine.Recover(context.Background(), master, []cashu.ID{active, retired})
		require.NoError(t, err)

		require.Len(t, result.Reports, 2)
		require.Empty(t, result.Failed())
		assert.Equal(t, cashu.Amount(127), result.TotalAmount())

		for _, report := range result.Reports {
			// Matches land in the first window; two empty windows then
			// settle the scan.
			assert.Equal(t, 3, report.Batches)
			assert.Equal(t, uint32(75), report.NextCounter)
		}

		// Every recovered secret re-derives from the mnemonic.
		for _, report := range result.Reports {
			for _, proof := range report.Proofs {
				secret, err := master.DeriveSecret(report.KeysetID, proof.Counter)
				require.NoError(t, err)
				assert.Equal(t, secret.Value, proof.Proof.Secret)
			}
		}
	})
}

func TestEngineFlagsSpentAgainstSimulator(t *testing.T) {
	test.WithRunningSimServer(t, func(s *simulator.Server, baseURL string) {
		master, err := derivation.NewMasterKeyFromMnemonic(test.TestMnemonic, "")
		require.NoError(t, err)
		defer master.Zero()

		active := s.Mint.ActiveKeyset().ID
		outputs, secrets := buildOutputs(t, master, active, map[uint32]cashu.Amount{0: 8, 1: 2})
		_, err = s.Mint.Sign(outputs)
		require.NoError(t, err)
		require.NoError(t, s.Mint.MarkSpent(yFor(t, secrets[0])))

		client, err := mint.New(baseURL, mint.Options{Timeout: 10 * time.Second})
		require.NoError(t, err)

		engine, err := recovery.NewEngine(client, recovery.Options{
			BatchSize:           25,
			EmptyBatchThreshold: 2,
			CheckSpent:          true,
		})
		require.NoError(t, err)

		result, err := engine.Recover(context.Background(), master, []cashu.ID{active})
		require.NoError(t, err)

		// The spent proof stays in the result, flagged, and drops out of
		// the spendable view.
		assert.Equal(t, cashu.Amount(10), result.TotalAmount())
		spendable := result.Spendable()
		require.Len(t, spendable, 1)
		assert.Equal(t, cashu.Amount(2), spendable.Amount())
	})
}

// Package recovery implements the deterministic wallet-recovery engine:
// it walks counter windows per keyset, asks the mint to restore blind
// signatures, unblinds them into proofs and decides via gap tracking when
// a keyset's history is exhausted.
package recovery

import (
	"context"
	"encoding/hex"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/crypto"
	"github.com/398ja/cashu-recovery/internal/derivation"
	"github.com/398ja/cashu-recovery/internal/metrics"
	"github.com/398ja/cashu-recovery/internal/mint"
	"github.com/398ja/cashu-recovery/internal/util"
	"github.com/dropbox/godropbox/time2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is the protocol-recommended restore batch size.
	DefaultBatchSize = 100
	// DefaultEmptyBatchThreshold is how many consecutive empty windows
	// exhaust a keyset.
	DefaultEmptyBatchThreshold = 3
	// DefaultMaxParallelKeysets bounds concurrent keyset scans.
	DefaultMaxParallelKeysets = 4
)

// RestoreClient is the slice of the mint API the engine needs. *mint.Client
// implements it; tests substitute scripted fakes.
type RestoreClient interface {
	Keys(ctx context.Context, id cashu.ID) (*cashu.Keyset, error)
	Restore(ctx context.Context, outputs []cashu.BlindedMessage) ([]mint.RestoredPair, error)
	CheckState(ctx context.Context, ys []string) ([]cashu.ProofState, error)
}

// ProofSink receives each keyset's proofs once its scan settles. Sinks must
// tolerate seeing the same proof again on a re-run.
type ProofSink interface {
	SaveProofs(ctx context.Context, keysetID cashu.ID, proofs []RecoveredProof) error
}

// Options tunes an Engine. Zero values fall back to the protocol defaults.
type Options struct {
	BatchSize           uint32
	EmptyBatchThreshold int
	MaxParallelKeysets  int
	// CheckSpent asks the mint for each recovered proof's spend state and
	// flags the results; nothing is ever dropped for being spent.
	CheckSpent bool
	Clock      time2.Clock
	Metrics    *metrics.Recovery
	// Sink, when set, receives every keyset's proofs as the scan settles.
	Sink ProofSink
}

// Engine orchestrates recovery across keysets. Within one keyset batches
// are strictly sequential because the gap decision for window N+1 depends
// on window N; across keysets scans share nothing but the client.
type Engine struct {
	client     RestoreClient
	batchSize  uint32
	threshold  int
	parallel   int
	checkSpent bool
	clock      time2.Clock
	metrics    *metrics.Recovery
	sink       ProofSink
}

func NewEngine(client RestoreClient, opts Options) (*Engine, error) {
	if client == nil {
		return nil, errors.New("restore client is nil")
	}

	e := &Engine{
		client:     client,
		batchSize:  opts.BatchSize,
		threshold:  opts.EmptyBatchThreshold,
		parallel:   opts.MaxParallelKeysets,
		checkSpent: opts.CheckSpent,
		clock:      opts.Clock,
		metrics:    opts.Metrics,
		sink:       opts.Sink,
	}

	if e.batchSize == 0 {
		e.batchSize = DefaultBatchSize
	}
	if e.threshold <= 0 {
		e.threshold = DefaultEmptyBatchThreshold
	}
	if e.parallel <= 0 {
		e.parallel = DefaultMaxParallelKeysets
	}
	if e.clock == nil {
		e.clock = time2.DefaultClock
	}

	return e, nil
}

// Recover scans all given keysets from counter zero and aggregates their
// proofs. Keysets fail independently: an errored scan surfaces in its own
// report and never cancels, blocks or empties the others. Only a nil
// master key aborts the call itself.
func (e *Engine) Recover(ctx context.Context, master *derivation.MasterKey, ids []cashu.ID) (*Result, error) {
	if master == nil {
		return nil, errors.New("master key is nil")
	}

	runID := uuid.New().String()
	logger := util.LogFromContext(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().Int("keysets", len(ids)).Msg("Starting recovery run")
	startedAt := e.clock.Now()

	reports := make([]*Report, len(ids))

	// Deliberately not errgroup.WithContext: workers never return errors,
	// and one keyset's failure must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(e.parallel)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			reports[i] = e.scanKeyset(ctx, master, id, 0)
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{
		RunID:    runID,
		Reports:  reports,
		Duration: e.clock.Now().Sub(startedAt),
	}
	e.metrics.ScanObserved(result.Duration)

	logger.Info().
		Int("proofs", len(result.Proofs())).
		Uint64("amount", uint64(result.TotalAmount())).
		Int("failed_keysets", len(result.Failed())).
		Dur("duration", result.Duration).
		Msg("Recovery run finished")

	return result, nil
}

// RecoverMnemonic builds the master key from mnemonic material, recovers
// the given keysets and wipes the key before returning.
func (e *Engine) RecoverMnemonic(ctx context.Context, mnemonic string, passphrase string, ids []cashu.ID) (*Result, error) {
	master, err := derivation.NewMasterKeyFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build master key from mnemonic")
	}
	defer master.Zero()

	return e.Recover(ctx, master, ids)
}

// RecoverKeyset scans a single keyset starting at startCounter. It exists
// for resumable recovery: feed it the NextCounter of an interrupted run.
func (e *Engine) RecoverKeyset(ctx context.Context, master *derivation.MasterKey, id cashu.ID, startCounter uint32) (*Report, error) {
	if master == nil {
		return nil, errors.New("master key is nil")
	}
	return e.scanKeyset(ctx, master, id, startCounter), nil
}

// ScanRange recovers a fixed counter span [start, start+span) without gap
// termination, chunked into batch-size windows. It serves forensic scans
// where the caller already knows the bounds.
func (e *Engine) ScanRange(ctx context.Context, master *derivation.MasterKey, id cashu.ID, start uint32, span uint32) (*Report, error) {
	if master == nil {
		return nil, errors.New("master key is nil")
	}

	report := e.runKeyset(ctx, id, start, func(ctx context.Context, keyset *cashu.Keyset, report *Report) {
		end := uint64(start) + uint64(span)
		if limit := uint64(derivation.MaxCounter) + 1; end > limit {
			end = limit
		}

		for next := uint64(start); next < end; {
			if err := ctx.Err(); err != nil {
				report.Err = err
				return
			}

			count := e.batchSize
			if remaining := end - next; uint64(count) > remaining {
				count = uint32(remaining)
			}

			proofs, matches, err := e.scanBatch(ctx, master, keyset, uint32(next), count)
			if err != nil {
				report.Err = err
				return
			}

			report.Batches++
			report.Matches += matches
			report.Proofs = append(report.Proofs, proofs...)
			next += uint64(count)
			report.NextCounter = uint32(next)

			e.metrics.BatchIssued(id.String())
			e.metrics.MatchesFound(id.String(), matches)
			e.metrics.ProofsRecovered(id.String(), len(proofs))
		}
	})

	return report, nil
}

func (e *Engine) scanKeyset(ctx context.Context, master *derivation.MasterKey, id cashu.ID, start uint32) *Report {
	return e.runKeyset(ctx, id, start, func(ctx context.Context, keyset *cashu.Keyset, report *Report) {
		logger := util.LogFromContext(ctx)
		gap := newGapTracker(start, e.threshold)

		for gap.active() {
			// Cancellation is honored between batches only, so an
			// in-flight unblind never gets torn down halfway.
			if err := ctx.Err(); err != nil {
				report.Err = err
				return
			}

			windowStart, count := gap.window(e.batchSize)
			if count == 0 {
				return
			}

			proofs, matches, err := e.scanBatch(ctx, master, keyset, windowStart, count)
			if err != nil {
				report.Err = err
				return
			}

			report.Batches++
			report.Matches += matches
			report.Proofs = append(report.Proofs, proofs...)
			gap.record(count, matches)
			report.NextCounter = gap.next

			e.metrics.BatchIssued(id.String())
			e.metrics.MatchesFound(id.String(), matches)
			e.metrics.ProofsRecovered(id.String(), len(proofs))

			logger.Debug().
				Uint32("window_start", windowStart).
				Uint32("window_size", count).
				Int("matches", matches).
				Int("empty_run", gap.emptyRun).
				Msg("Scanned counter window")
		}
	})
}

// runKeyset wraps one keyset scan with its shared plumbing: scoped logger,
// key fetch, sink flush and the settle log line.
func (e *Engine) runKeyset(ctx context.Context, id cashu.ID, start uint32, loop func(ctx context.Context, keyset *cashu.Keyset, report *Report)) *Report {
	logger := util.LogFromContext(ctx).With().Str("keyset_id", id.String()).Logger()
	ctx = logger.WithContext(ctx)

	report := &Report{KeysetID: id, FirstCounter: start, NextCounter: start}

	keyset, err := e.client.Keys(ctx, id)
	if err != nil {
		report.Err = errors.Wrapf(err, "failed to fetch keys for keyset %s", id)
	} else {
		loop(ctx, keyset, report)
	}

	e.flush(ctx, report)
	e.metrics.KeysetScanned()

	event := logger.Info()
	if report.Err != nil {
		event = logger.Warn().Err(report.Err)
	}
	event.
		Int("batches", report.Batches).
		Int("proofs", len(report.Proofs)).
		Uint64("amount", uint64(report.Amount())).
		Uint32("next_counter", report.NextCounter).
		Msg("Keyset scan settled")

	return report
}

// scanBatch runs one derive → blind → restore → reconstruct round. The
// match count feeds gap tracking and counts returned signatures, not
// reconstructed proofs: a window with history is not an empty window even
// if some of its items fail to unblind.
func (e *Engine) scanBatch(ctx context.Context, master *derivation.MasterKey, keyset *cashu.Keyset, start uint32, count uint32) ([]RecoveredProof, int, error) {
	set, err := buildOutputs(master, keyset.ID, start, count)
	if err != nil {
		return nil, 0, err
	}

	pairs, err := e.client.Restore(ctx, set.messages)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "restore failed for window [%d,%d)", start, uint64(start)+uint64(count))
	}
	if len(pairs) == 0 {
		return nil, 0, nil
	}

	proofs := reconstruct(ctx, keyset, set, pairs)
	if e.checkSpent {
		e.flagSpent(ctx, proofs)
	}

	return proofs, len(pairs), nil
}

// flagSpent decorates proofs with the mint's spend states. The check is
// advisory: a failing checkstate call leaves proofs unflagged rather than
// failing the scan.
func (e *Engine) flagSpent(ctx context.Context, proofs []RecoveredProof) {
	if len(proofs) == 0 {
		return
	}

	ys := make([]string, len(proofs))
	for i, p := range proofs {
		point, err := crypto.HashToCurve([]byte(p.Proof.Secret))
		if err != nil {
			util.LogFromContext(ctx).Warn().Err(err).Msg("Failed to hash a secret for the spent check")
			return
		}
		ys[i] = hex.EncodeToString(point.SerializeCompressed())
	}

	states, err := e.client.CheckState(ctx, ys)
	if err != nil {
		util.LogFromContext(ctx).Warn().Err(err).Msg("Spent check failed, leaving proofs unflagged")
		return
	}

	for i := range proofs {
		proofs[i].State = states[i].State
	}
}

func (e *Engine) flush(ctx context.Context, report *Report) {
	if e.sink == nil || len(report.Proofs) == 0 {
		return
	}

	if err := e.sink.SaveProofs(ctx, report.KeysetID, report.Proofs); err != nil {
		util.LogFromContext(ctx).Error().Err(err).Msg("Failed to persist recovered proofs")
		if report.Err == nil {
			report.Err = errors.Wrap(err, "failed to persist recovered proofs")
		}
	}
}

package recovery

import (
	"time"

	"github.com/398ja/cashu-recovery/internal/cashu"
)

// RecoveredProof is a reconstructed proof together with where it came from
// and, when the spent check ran, the spend status the mint reported.
type RecoveredProof struct {
	Proof   cashu.Proof
	Counter uint32
	// State is empty when the spent check was disabled or unreachable.
	State cashu.ProofStateValue
}

// Spendable reports whether the proof is worth redeeming. Without a spent
// check the answer is optimistic; the mint has the final word on redeem.
func (p RecoveredProof) Spendable() bool {
	return p.State == "" || p.State == cashu.ProofStateUnspent
}

// Report is the outcome of one keyset's scan. A non-nil Err means the scan
// terminated early; Proofs still holds everything recovered before that.
type Report struct {
	KeysetID     cashu.ID
	Proofs       []RecoveredProof
	Batches      int
	Matches      int
	FirstCounter uint32
	// NextCounter is where a resumed scan of this keyset should start.
	NextCounter uint32
	Err         error
}

// Amount sums the recovered proofs, spendable or not.
func (r *Report) Amount() cashu.Amount {
	var total cashu.Amount
	for _, p := range r.Proofs {
		total += p.Proof.Amount
	}
	return total
}

// WireProofs strips the recovery bookkeeping down to protocol proofs.
func (r *Report) WireProofs() cashu.Proofs {
	proofs := make(cashu.Proofs, 0, len(r.Proofs))
	for _, p := range r.Proofs {
		proofs = append(proofs, p.Proof)
	}
	return proofs
}

// Result aggregates a whole recovery run. Per-keyset failures live in the
// individual reports; a Result with Failed() entries still carries every
// proof the healthy keysets produced.
type Result struct {
	RunID    string
	Reports  []*Report
	Duration time.Duration
}

// Proofs flattens all recovered proofs across keysets.
func (r *Result) Proofs() []RecoveredProof {
	var proofs []RecoveredProof
	for _, report := range r.Reports {
		proofs = append(proofs, report.Proofs...)
	}
	return proofs
}

// Spendable returns the wire proofs believed redeemable.
func (r *Result) Spendable() cashu.Proofs {
	var proofs cashu.Proofs
	for _, report := range r.Reports {
		for _, p := range report.Proofs {
			if p.Spendable() {
				proofs = append(proofs, p.Proof)
			}
		}
	}
	return proofs
}

// TotalAmount sums every recovered proof across keysets.
func (r *Result) TotalAmount() cashu.Amount {
	var total cashu.Amount
	for _, report := range r.Reports {
		total += report.Amount()
	}
	return total
}

// Failed lists the reports whose scans terminated early with an error, so
// callers can decide which keysets to retry.
func (r *Result) Failed() []*Report {
	var failed []*Report
	for _, report := range r.Reports {
		if report.Err != nil {
			failed = append(failed, report)
		}
	}
	return failed
}

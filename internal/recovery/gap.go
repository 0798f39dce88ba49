package recovery

import (
	"github.com/398ja/cashu-recovery/internal/derivation"
)

// gapTracker decides when a keyset's signature history is exhausted. It is
// pure bookkeeping: the scan loop owns all I/O.
//
// The counter always advances by the full window regardless of how many
// matches came back, so usage gaps inside a keyset's history cannot
// terminate the scan early; only a run of completely empty windows can.
type gapTracker struct {
	next      uint32
	emptyRun  int
	threshold int
}

func newGapTracker(start uint32, threshold int) *gapTracker {
	return &gapTracker{next: start, threshold: threshold}
}

// window returns the next counter window, truncated so it never crosses
// the end of the derivable range. A zero count means the range is spent.
func (g *gapTracker) window(batchSize uint32) (uint32, uint32) {
	if g.next > derivation.MaxCounter {
		return g.next, 0
	}
	remaining := derivation.MaxCounter - g.next + 1
	if batchSize > remaining {
		batchSize = remaining
	}
	return g.next, batchSize
}

// record advances past an issued window and folds its match count into the
// empty-run streak. Any match at all resets the streak.
func (g *gapTracker) record(issued uint32, matches int) {
	g.next += issued
	if matches > 0 {
		g.emptyRun = 0
		return
	}
	g.emptyRun++
}

// active reports whether the scan should issue another window.
func (g *gapTracker) active() bool {
	return g.emptyRun < g.threshold && g.next <= derivation.MaxCounter
}

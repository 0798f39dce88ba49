// Package derivation turns seed material into the deterministic secrets and
// blinding factors ecash outputs are built from. Every child sits under a
// dedicated purpose branch, keyed by keyset and counter, so a wallet can
// rebuild everything it ever created from the mnemonic alone.
package derivation

import (
	"fmt"
	"strings"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/pkg/errors"
)

const (
	// Purpose is the BIP-43 purpose index reserved for deterministic
	// ecash secrets.
	Purpose = 129372

	// CoinType is fixed at zero regardless of the keyset's unit.
	CoinType = 0
)

// Leaf discriminators. The secret and its blinding factor are siblings
// differing only in the final, non-hardened component.
const (
	leafSecret         uint32 = 0
	leafBlindingFactor uint32 = 1
)

// MaxCounter is the largest counter that may appear in a path. One short of
// the hardened-index ceiling, so every counter in range maps to a valid
// hardened child.
const MaxCounter uint32 = 1<<31 - 2

// ErrCounterRange rejects counters that cannot become hardened child
// indices.
var ErrCounterRange = errors.New("counter outside derivable range")

// Path is a fully resolved derivation path for one leaf:
// m/purpose'/coin'/keyset'/counter'/leaf.
type Path struct {
	components [5]uint32
}

func newPath(keysetIndex, counter, leaf uint32) Path {
	return Path{components: [5]uint32{
		hdkeychain.HardenedKeyStart + Purpose,
		hdkeychain.HardenedKeyStart + CoinType,
		hdkeychain.HardenedKeyStart + keysetIndex,
		hdkeychain.HardenedKeyStart + counter,
		leaf,
	}}
}

func pathFor(keyset cashu.ID, counter uint32, leaf uint32) (Path, error) {
	if counter > MaxCounter {
		return Path{}, errors.Wrapf(ErrCounterRange, "counter %d exceeds %d", counter, MaxCounter)
	}

	keysetIndex, err := keyset.PathIndex()
	if err != nil {
		return Path{}, err
	}
	return newPath(keysetIndex, counter, leaf), nil
}

// SecretPath is the path of the secret derived for (keyset, counter).
func SecretPath(keyset cashu.ID, counter uint32) (Path, error) {
	return pathFor(keyset, counter, leafSecret)
}

// BlindingFactorPath is the path of the blinding factor paired with the
// secret at the same (keyset, counter).
func BlindingFactorPath(keyset cashu.ID, counter uint32) (Path, error) {
	return pathFor(keyset, counter, leafBlindingFactor)
}

// Components returns the child indices in derivation order, hardened bits
// included.
func (p Path) Components() [5]uint32 {
	return p.components
}

// String renders the conventional notation, e.g. m/129372'/0'/864559728'/5'/0.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, component := range p.components {
		if component >= hdkeychain.HardenedKeyStart {
			fmt.Fprintf(&b, "/%d'", component-hdkeychain.HardenedKeyStart)
		} else {
			fmt.Fprintf(&b, "/%d", component)
		}
	}
	return b.String()
}

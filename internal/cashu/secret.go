package cashu

// SecretKind tags how a proof secret was produced. The wire format does not
// distinguish kinds; wallets need the tag to know whether a secret can be
// rebuilt from seed material or is gone once its proof is lost.
type SecretKind uint8

const (
	// SecretKindRandom marks one-off secrets with no derivation trail.
	SecretKindRandom SecretKind = iota
	// SecretKindDeterministic marks counter-derived secrets reproducible
	// from a seed, a keyset ID and a counter.
	SecretKindDeterministic
	// SecretKindVoucher marks secrets bound to an externally issued
	// voucher preimage.
	SecretKindVoucher
)

func (k SecretKind) String() string {
	switch k {
	case SecretKindRandom:
		return "random"
	case SecretKindDeterministic:
		return "deterministic"
	case SecretKindVoucher:
		return "voucher"
	default:
		return "unknown"
	}
}

// Secret is the x value a proof commits to, tagged with its provenance.
// Value is the exact UTF-8 string that gets hashed to the curve.
type Secret struct {
	Value string
	Kind  SecretKind
}

// NewDeterministicSecret tags a counter-derived secret string.
func NewDeterministicSecret(value string) Secret {
	return Secret{Value: value, Kind: SecretKindDeterministic}
}

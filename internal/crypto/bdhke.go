// Package crypto implements the blind Diffie-Hellman key exchange ecash
// rests on: the wallet blinds a secret's curve point with a random factor,
// the mint signs the blinded point without learning the secret, and the
// wallet strips the factor to obtain an unblinded signature the mint will
// later recognize as its own.
package crypto

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
)

// hashToCurveDomainSeparator keeps ecash curve points disjoint from any
// other protocol hashing the same bytes.
const hashToCurveDomainSeparator = "Secp256k1_HashToCurve_Cashu_"

// hashToCurveMaxIterations bounds the try-and-increment loop. The chance of
// getting anywhere near it is negligible; hitting it means the input is
// adversarial or the implementation is broken.
const hashToCurveMaxIterations = 1 << 16

// HashToCurve maps a message to a secp256k1 point nobody knows the discrete
// log of: Y = PublicKey(0x02 || sha256(msgHash || counter)) for the first
// counter (little-endian uint32, starting at 0) that yields a valid point,
// where msgHash = sha256(domainSeparator || message).
func HashToCurve(message []byte) (*secp256k1.PublicKey, error) {
	msgHash := sha256.Sum256(append([]byte(hashToCurveDomainSeparator), message...))

	counterBytes := make([]byte, 4)
	candidate := make([]byte, 0, 33)
	for counter := uint32(0); counter < hashToCurveMaxIterations; counter++ {
		binary.LittleEndian.PutUint32(counterBytes, counter)
		hash := sha256.Sum256(append(msgHash[:], counterBytes...))

		candidate = append(candidate[:0], 0x02)
		candidate = append(candidate, hash[:]...)
		if pubkey, err := secp256k1.ParsePubKey(candidate); err == nil {
			return pubkey, nil
		}
	}

	return nil, errors.Errorf("no curve point for message after %d iterations", hashToCurveMaxIterations)
}

// BlindMessage computes B_ = hashToCurve(secret) + r*G. The secret is the
// exact UTF-8 string the proof will later commit to.
func BlindMessage(secret string, r *secp256k1.PrivateKey) (*secp256k1.PublicKey, error) {
	Y, err := HashToCurve([]byte(secret))
	if err != nil {
		return nil, err
	}

	var Yj, rGj, sum secp256k1.JacobianPoint
	Y.AsJacobian(&Yj)
	r.PubKey().AsJacobian(&rGj)
	secp256k1.AddNonConst(&Yj, &rGj, &sum)
	sum.ToAffine()

	return secp256k1.NewPublicKey(&sum.X, &sum.Y), nil
}

// SignBlindedMessage is the mint side: C_ = k*B_ where k is the mint's
// private key for the output's amount.
func SignBlindedMessage(B_ *secp256k1.PublicKey, k *secp256k1.PrivateKey) *secp256k1.PublicKey {
	var Bj, result secp256k1.JacobianPoint
	B_.AsJacobian(&Bj)
	secp256k1.ScalarMultNonConst(&k.Key, &Bj, &result)
	result.ToAffine()

	return secp256k1.NewPublicKey(&result.X, &result.Y)
}

// UnblindSignature strips the blinding factor off a mint signature:
// C = C_ - r*K where K is the mint public key for the signed amount.
func UnblindSignature(C_ *secp256k1.PublicKey, r *secp256k1.PrivateKey, K *secp256k1.PublicKey) (*secp256k1.PublicKey, error) {
	var Kj, rK secp256k1.JacobianPoint
	K.AsJacobian(&Kj)
	secp256k1.ScalarMultNonConst(&r.Key, &Kj, &rK)
	rK.ToAffine()
	rK.Y.Negate(1)
	rK.Y.Normalize()

	var Cj, sum secp256k1.JacobianPoint
	C_.AsJacobian(&Cj)
	secp256k1.AddNonConst(&Cj, &rK, &sum)
	if (sum.X.IsZero() && sum.Y.IsZero()) || sum.Z.IsZero() {
		return nil, errors.New("unblinded signature is the point at infinity")
	}
	sum.ToAffine()

	return secp256k1.NewPublicKey(&sum.X, &sum.Y), nil
}

// Verify is the mint-side check a proof passes at spend time:
// C == k*hashToCurve(secret).
func Verify(secret string, k *secp256k1.PrivateKey, C *secp256k1.PublicKey) bool {
	Y, err := HashToCurve([]byte(secret))
	if err != nil {
		return false
	}

	var Yj, kY secp256k1.JacobianPoint
	Y.AsJacobian(&Yj)
	secp256k1.ScalarMultNonConst(&k.Key, &Yj, &kY)
	kY.ToAffine()

	return C.IsEqual(secp256k1.NewPublicKey(&kY.X, &kY.Y))
}

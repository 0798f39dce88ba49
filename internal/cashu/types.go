package cashu

import (
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// BlindedMessage is an output submitted to a mint for signing,
// B_ = hashToCurve(secret) + r*G. On restore requests the amount is zero
// because the wallet cannot know what the output was originally worth.
type BlindedMessage struct {
	Amount Amount `json:"amount"`
	ID     string `json:"id"`
	B_     string `json:"B_"`
}

// NewBlindedMessage encodes a blinded point for the wire.
func NewBlindedMessage(amount Amount, keysetID ID, B_ *secp256k1.PublicKey) BlindedMessage {
	return BlindedMessage{
		Amount: amount,
		ID:     keysetID.String(),
		B_:     hex.EncodeToString(B_.SerializeCompressed()),
	}
}

// Point parses the blinded point back off the wire.
func (m BlindedMessage) Point() (*secp256k1.PublicKey, error) {
	return ParsePublicKey(m.B_)
}

// BlindedSignature is a mint's signature over a blinded message,
// C_ = k*B_ where k is the mint key for the signature's amount.
type BlindedSignature struct {
	Amount Amount `json:"amount"`
	ID     string `json:"id"`
	C_     string `json:"C_"`
}

// Point parses the signature point off the wire.
func (s BlindedSignature) Point() (*secp256k1.PublicKey, error) {
	return ParsePublicKey(s.C_)
}

// Proof is a spendable ecash note: the secret together with the unblinded
// mint signature C over it.
type Proof struct {
	Amount Amount `json:"amount"`
	ID     string `json:"id"`
	Secret string `json:"secret"`
	C      string `json:"C"`
}

// Proofs is a bundle of proofs, usually everything recovered for one mint.
type Proofs []Proof

// Amount sums the bundle.
func (p Proofs) Amount() Amount {
	var total Amount
	for _, proof := range p {
		total += proof.Amount
	}
	return total
}

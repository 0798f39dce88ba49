// genvectors prints derivation and blinding vectors for a mnemonic, in the
// shape the package tests consume. Run it when adding fixtures for a new
// keyset or counter range and paste the output into the test file.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/crypto"
	"github.com/398ja/cashu-recovery/internal/derivation"
)

type vector struct {
	Counter        uint32 `json:"counter"`
	Secret         string `json:"secret"`
	BlindingFactor string `json:"blinding_factor"`
	BlindedPoint   string `json:"blinded_point"`
	Y              string `json:"y"`
}

func main() {
	mnemonic := flag.String("mnemonic", "", "BIP-39 mnemonic to derive from")
	passphrase := flag.String("passphrase", "", "optional BIP-39 passphrase")
	keyset := flag.String("keyset", "009a1f293253e41e", "keyset ID")
	start := flag.Uint("start", 0, "first counter")
	count := flag.Uint("count", 3, "number of counters")
	flag.Parse()

	if *mnemonic == "" {
		log.Fatal("missing -mnemonic")
	}

	id, err := cashu.ParseID(*keyset)
	if err != nil {
		log.Fatalf("invalid keyset: %v", err)
	}

	master, err := derivation.NewMasterKeyFromMnemonic(*mnemonic, *passphrase)
	if err != nil {
		log.Fatalf("invalid mnemonic: %v", err)
	}
	defer master.Zero()

	vectors := make([]vector, 0, *count)
	for i := uint(0); i < *count; i++ {
		counter := uint32(*start + i)

		secret, err := master.DeriveSecret(id, counter)
		if err != nil {
			log.Fatalf("derive secret at %d: %v", counter, err)
		}
		factor, err := master.DeriveBlindingFactor(id, counter)
		if err != nil {
			log.Fatalf("derive blinding factor at %d: %v", counter, err)
		}
		blinded, err := crypto.BlindMessage(secret.Value, factor)
		if err != nil {
			log.Fatalf("blind at %d: %v", counter, err)
		}
		y, err := crypto.HashToCurve([]byte(secret.Value))
		if err != nil {
			log.Fatalf("hash to curve at %d: %v", counter, err)
		}

		vectors = append(vectors, vector{
			Counter:        counter,
			Secret:         secret.Value,
			BlindingFactor: hex.EncodeToString(factor.Serialize()),
			BlindedPoint:   hex.EncodeToString(blinded.SerializeCompressed()),
			Y:              hex.EncodeToString(y.SerializeCompressed()),
		})
	}

	out, err := json.MarshalIndent(vectors, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))
}

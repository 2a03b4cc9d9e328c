package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// LoadSigner resolves the signing identity from either a base58-encoded
// private key or a solana-keygen JSON file. Exactly one source must be
// provided; a bad key is a configuration error and aborts before any
// network call is made.
func LoadSigner(privateKey, keypairFile string) (solana.PrivateKey, error) {
	switch {
	case privateKey != "" && keypairFile != "":
		return nil, fmt.Errorf("both a private key and a keypair file were provided; pick one")
	case privateKey != "":
		key, err := solana.PrivateKeyFromBase58(privateKey)
		if err != nil {
			return nil, fmt.Errorf("invalid base58 private key: %w", err)
		}
		return key, nil
	case keypairFile != "":
		key, err := solana.PrivateKeyFromSolanaKeygenFile(keypairFile)
		if err != nil {
			return nil, fmt.Errorf("invalid keypair file %q: %w", keypairFile, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("no signer configured: set SOLANA_PRIVATE_KEY or SOLANA_KEYPAIR_FILE")
	}
}

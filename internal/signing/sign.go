package signing

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"streampay-relayer-go/internal/models"
)

// ParsePrivateKey parses a hex-encoded secp256k1 private key.
func ParsePrivateKey(keyHex string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// AccountOf derives the canonical account identity for a private key.
func AccountOf(key *ecdsa.PrivateKey) string {
	return NormalizeAccount(crypto.PubkeyToAddress(key.PublicKey).Hex())
}

// SignIntent signs the intent's digest under the given context and returns
// the 0x-prefixed hex signature, with V in the legacy 27/28 convention.
func SignIntent(c *Context, intent models.PaymentIntent, key *ecdsa.PrivateKey) (string, error) {
	digest, err := IntentDigest(c, intent)
	if err != nil {
		return "", err
	}

	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return "", fmt.Errorf("failed to sign intent: %w", err)
	}
	sig[64] += 27

	return "0x" + hex.EncodeToString(sig), nil
}

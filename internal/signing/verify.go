package signing

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidSignatureEncoding indicates a signature that could not be
// decoded or recovered: wrong length, bad hex, or an unrecoverable curve
// point. It says nothing about who signed; that is the validator's job.
var ErrInvalidSignatureEncoding = errors.New("invalid signature encoding")

const signatureLength = 65 // R(32) || S(32) || V(1)

// DecodeSignature decodes a 0x-prefixed hex signature into the 65-byte
// [R || S || V] form expected by RecoverSigner, normalizing V from the
// legacy 27/28 convention to 0/1.
func DecodeSignature(signature string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignatureEncoding, err)
	}
	if len(raw) != signatureLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignatureEncoding, signatureLength, len(raw))
	}
	if raw[64] >= 27 {
		raw[64] -= 27
	}
	if raw[64] > 1 {
		return nil, fmt.Errorf("%w: invalid recovery id %d", ErrInvalidSignatureEncoding, raw[64])
	}
	return raw, nil
}

// RecoverSigner returns the account that produced the given signature over
// the given digest. Pure and deterministic; authorization (does the signer
// match the claimed payer?) is decided by the caller.
func RecoverSigner(digest []byte, sig []byte) (common.Address, error) {
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignatureEncoding, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package signing

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"streampay-relayer-go/internal/models"
)

// accountRegex matches a 0x-prefixed 20-byte hex address.
var accountRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ParseAccount validates and parses an account identity string.
func ParseAccount(account string) (common.Address, error) {
	if !accountRegex.MatchString(account) {
		return common.Address{}, fmt.Errorf("invalid account %q: expected 0x followed by 40 hex characters", account)
	}
	return common.HexToAddress(account), nil
}

// NormalizeAccount returns the canonical (lower-case) form of an account
// identity. All storage and comparison uses this form.
func NormalizeAccount(account string) string {
	return strings.ToLower(account)
}

// IntentDigest computes the 32-byte digest a payer signs to authorize an
// intent. The digest covers a structured, fixed-width encoding of the
// intent fields under the context's domain separator; the raw intent is
// never hashed directly, so signed data cannot be reinterpreted with a
// different field order or in a different deployment.
//
// Layout: keccak256(0x19 || 0x01 || domainSeparator || structHash) where
// structHash = keccak256(payer(20) || keccak256(sessionId)(32) ||
// amount(8,BE) || deadline(8,BE) || nonce(8,BE)).
func IntentDigest(c *Context, intent models.PaymentIntent) ([]byte, error) {
	payer, err := ParseAccount(intent.Payer)
	if err != nil {
		return nil, fmt.Errorf("cannot compute intent digest: %w", err)
	}

	var fields [8]byte
	buf := make([]byte, 0, 20+32+8*3)
	buf = append(buf, payer.Bytes()...)
	buf = append(buf, crypto.Keccak256([]byte(intent.SessionId))...)
	binary.BigEndian.PutUint64(fields[:], uint64(intent.Amount))
	buf = append(buf, fields[:]...)
	binary.BigEndian.PutUint64(fields[:], uint64(intent.Deadline))
	buf = append(buf, fields[:]...)
	binary.BigEndian.PutUint64(fields[:], intent.Nonce)
	buf = append(buf, fields[:]...)

	structHash := crypto.Keccak256(buf)
	return crypto.Keccak256([]byte{0x19, 0x01}, c.separator[:], structHash), nil
}

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

// Package signing implements the payment intent signing scheme: a
// process-wide domain separator, the structured intent digest, and
// secp256k1 sign/recover over that digest. Verification is pure; nothing
// in this package reads or writes ledger state.
package signing

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Context binds protocol name, version, and ledger instance identity into
// every signature digest, so an intent signed for one deployment cannot be
// replayed against another. It is immutable after construction and is
// injected where needed rather than held as ambient global state.
type Context struct {
	protocol  string
	version   string
	ledgerId  string
	separator [32]byte
}

// NewContext builds a signing context. All three components are required.
func NewContext(protocol, version, ledgerId string) (*Context, error) {
	if protocol == "" || version == "" || ledgerId == "" {
		return nil, fmt.Errorf("signing context requires protocol, version, and ledger id, got (%q, %q, %q)",
			protocol, version, ledgerId)
	}

	c := &Context{
		protocol: protocol,
		version:  version,
		ledgerId: ledgerId,
	}

	// Hash each component individually before combining so that no pair of
	// (protocol, version, ledgerId) triples can collide by ambiguous
	// concatenation.
	sep := crypto.Keccak256(
		crypto.Keccak256([]byte(protocol)),
		crypto.Keccak256([]byte(version)),
		crypto.Keccak256([]byte(ledgerId)),
	)
	copy(c.separator[:], sep)

	return c, nil
}

// DomainSeparator returns a copy of the 32-byte domain separator.
func (c *Context) DomainSeparator() []byte {
	sep := make([]byte, len(c.separator))
	copy(sep, c.separator[:])
	return sep
}

func (c *Context) String() string {
	return fmt.Sprintf("%s/%s/%s", c.protocol, c.version, c.ledgerId)
}

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

// Package protocol holds the payment authorization rules shared by the
// relayer's optimistic pre-check and the ledger's authoritative commit-time
// check. Both sides call the same ValidateIntent so the two can never
// drift; an optimistic accept fails authoritatively only on a genuine race.
package protocol

import (
	"fmt"
	"time"

	"streampay-relayer-go/internal/models"
	"streampay-relayer-go/internal/signing"
)

// ValidateIntent decides whether an intent may settle against the given
// account snapshot. It returns nil to accept, or a *Rejection.
//
// Checks run cheapest and most informative first: deadline, settled
// session, signature, nonce, balance. The order also determines which
// rejection a caller sees when several conditions fail at once.
func ValidateIntent(sc *signing.Context, intent models.PaymentIntent, state models.AccountState, sessionSettled bool, now time.Time) error {
	if now.Unix() > intent.Deadline {
		return NewRejection(ReasonExpired,
			fmt.Sprintf("intent expired at %d, current time %d", intent.Deadline, now.Unix()))
	}

	if sessionSettled {
		return NewRejection(ReasonAlreadySettled,
			fmt.Sprintf("session %s has already been settled", intent.SessionId))
	}

	digest, err := signing.IntentDigest(sc, intent)
	if err != nil {
		return &Rejection{Reason: ReasonInvalidSignature, Detail: "cannot compute intent digest", Err: err}
	}
	sig, err := signing.DecodeSignature(intent.Signature)
	if err != nil {
		return &Rejection{Reason: ReasonInvalidSignature, Detail: "malformed signature encoding", Err: err}
	}
	signer, err := signing.RecoverSigner(digest, sig)
	if err != nil {
		return &Rejection{Reason: ReasonInvalidSignature, Detail: "signature recovery failed", Err: err}
	}
	if signing.NormalizeAccount(signer.Hex()) != signing.NormalizeAccount(intent.Payer) {
		return NewRejection(ReasonInvalidSignature,
			fmt.Sprintf("intent not signed by claimed payer %s", signing.NormalizeAccount(intent.Payer)))
	}

	if intent.Nonce != state.Nonce {
		return NewRejection(ReasonNonceMismatch,
			fmt.Sprintf("expected nonce %d, got %d", state.Nonce, intent.Nonce))
	}

	if state.Balance < intent.Amount {
		return NewRejection(ReasonInsufficientBalance,
			fmt.Sprintf("required %d, available %d", intent.Amount, state.Balance))
	}

	return nil
}

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

package protocol

import "errors"

// Reason classifies why an intent was rejected, for programmatic handling.
type Reason string

const (
	// ReasonMalformedRequest indicates a structurally invalid request.
	// Caller error; no ledger state was touched.
	ReasonMalformedRequest Reason = "MALFORMED_REQUEST"

	// ReasonExpired indicates the intent's deadline has passed.
	ReasonExpired Reason = "EXPIRED"

	// ReasonAlreadySettled indicates the session id has already settled;
	// retrying it is a no-op failure, never a second transfer.
	ReasonAlreadySettled Reason = "ALREADY_SETTLED"

	// ReasonInvalidSignature indicates the signature does not recover to
	// the claimed payer, or could not be decoded at all.
	ReasonInvalidSignature Reason = "INVALID_SIGNATURE"

	// ReasonNonceMismatch indicates the intent nonce is not the account's
	// next expected nonce: either a replay or out-of-order submission.
	ReasonNonceMismatch Reason = "NONCE_MISMATCH"

	// ReasonInsufficientBalance indicates the escrow balance cannot cover
	// the intent amount.
	ReasonInsufficientBalance Reason = "INSUFFICIENT_BALANCE"

	// ReasonSubmissionFailed indicates an environment or transport fault
	// distinct from a validation rejection. Retryable, but only after the
	// caller re-confirms the session is still unsettled.
	ReasonSubmissionFailed Reason = "SUBMISSION_FAILED"
)

// Rejection is a semantic rejection of a payment intent: a machine-readable
// reason plus human-readable detail. Validation rejections are authoritative
// and must never be retried automatically.
type Rejection struct {
	Reason Reason
	Detail string
	Err    error
}

func (r *Rejection) Error() string {
	if r.Detail != "" {
		return string(r.Reason) + ": " + r.Detail
	}
	return string(r.Reason)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// NewRejection creates a Rejection with the given reason and detail.
func NewRejection(reason Reason, detail string) *Rejection {
	return &Rejection{Reason: reason, Detail: detail}
}

// AsRejection unwraps err into a *Rejection if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

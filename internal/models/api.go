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

package models

// ChargeRequest is a client's request to the relayer: a signed payment
// intent plus the service it pays for and optional caller metadata.
type ChargeRequest struct {
	Intent       PaymentIntent     `json:"intent"`
	ServiceLabel string            `json:"serviceLabel"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ChargeResponse is the relayer's outcome for a charge request. Exactly one
// of the success or failure field sets is populated, keyed by Settled.
type ChargeResponse struct {
	Settled bool `json:"settled"`

	// Success fields.
	ReceiptId    string            `json:"receiptId,omitempty"`
	Amount       int64             `json:"amount,omitempty"`
	ServiceLabel string            `json:"serviceLabel,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Cost         int64             `json:"cost,omitempty"`
	ElapsedMs    int64             `json:"elapsedMs,omitempty"`

	// Failure fields.
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// MutationRequest is an operator request to credit or debit escrow.
type MutationRequest struct {
	Amount int64 `json:"amount"`
}

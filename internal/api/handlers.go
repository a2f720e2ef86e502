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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"streampay-relayer-go/internal/models"
	"streampay-relayer-go/internal/protocol"
	"streampay-relayer-go/internal/relayer"
	"streampay-relayer-go/internal/store"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relayer_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	relayer *relayer.Service
	ledger  store.AccountLedger
}

func NewHandler(r *relayer.Service, l store.AccountLedger) *Handler {
	return &Handler{relayer: r, ledger: l}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	// Exercise the ledger with a cheap read so a wedged database fails the
	// probe rather than reporting ok.
	if _, err := h.ledger.IsSettled(r.Context(), "health-probe"); err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "ledger unavailable")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ChargeHandler executes a signed payment intent.
func (h *Handler) ChargeHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/v1/charges"))
	defer timer.ObserveDuration()

	var req models.ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpRequestsTotal.WithLabelValues("POST", "/v1/charges", "400").Inc()
		respondWithJSON(w, http.StatusBadRequest, models.ChargeResponse{
			Settled: false,
			Reason:  string(protocol.ReasonMalformedRequest),
			Detail:  "malformed JSON body",
		})
		return
	}

	result := h.relayer.Execute(r.Context(), req)
	status := statusForResult(result)
	httpRequestsTotal.WithLabelValues("POST", "/v1/charges", strconv.Itoa(status)).Inc()
	respondWithJSON(w, status, result.Response())
}

func statusForResult(result *relayer.Result) int {
	if result.Settled {
		return http.StatusOK
	}
	switch result.Reason {
	case protocol.ReasonMalformedRequest:
		return http.StatusBadRequest
	case protocol.ReasonInvalidSignature:
		return http.StatusUnauthorized
	case protocol.ReasonAlreadySettled, protocol.ReasonNonceMismatch:
		return http.StatusConflict
	case protocol.ReasonExpired, protocol.ReasonInsufficientBalance:
		return http.StatusUnprocessableEntity
	case protocol.ReasonSubmissionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AccountHandler returns an account's escrow balance and next nonce.
func (h *Handler) AccountHandler(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	balance, err := h.ledger.GetBalance(r.Context(), address)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to read balance")
		return
	}
	nonce, err := h.ledger.GetNonce(r.Context(), address)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to read nonce")
		return
	}

	respondWithJSON(w, http.StatusOK, models.AccountState{Address: address, Balance: balance, Nonce: nonce})
}

// DepositHandler credits an account's escrow.
func (h *Handler) DepositHandler(w http.ResponseWriter, r *http.Request) {
	h.mutateBalance(w, r, h.ledger.Deposit)
}

// WithdrawHandler debits an account's escrow.
func (h *Handler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	h.mutateBalance(w, r, h.ledger.Withdraw)
}

func (h *Handler) mutateBalance(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, account string, amount int64) (*models.AccountState, error)) {
	address := mux.Vars(r)["address"]

	var req models.MutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	state, err := op(r.Context(), address, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidAmount):
			respondWithError(w, http.StatusBadRequest, "positive amount required")
		case errors.Is(err, store.ErrAccountNotFound):
			respondWithError(w, http.StatusBadRequest, "invalid account address")
		case errors.Is(err, store.ErrInsufficientFunds):
			respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, state)
}

// HistoryHandler returns an account's audit trail, newest first.
func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit <= 0 || limit > 500 || offset < 0 {
		respondWithError(w, http.StatusBadRequest, "limit must be 1-500 and offset non-negative")
		return
	}

	entries, err := h.ledger.SettlementHistory(r.Context(), address, limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}

	respondWithJSON(w, http.StatusOK, entries)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return value
}

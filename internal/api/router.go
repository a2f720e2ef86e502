package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter wires the relayer's HTTP surface.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.HealthCheckHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/charges", h.ChargeHandler).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{address}", h.AccountHandler).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{address}/deposit", h.DepositHandler).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{address}/withdraw", h.WithdrawHandler).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{address}/history", h.HistoryHandler).Methods(http.MethodGet)

	return r
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}

package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Reymilan15/milos-cuentas/internal/logging"
)

// rateState is the quote served on the official endpoint. Setting failing
// makes the endpoint answer 503 so the API's fallback path can be exercised.
type rateState struct {
	mu       sync.RWMutex
	promedio decimal.Decimal
	failing  bool
	updated  time.Time
}

type quote struct {
	Fuente             string          `json:"fuente"`
	Nombre             string          `json:"nombre"`
	Promedio           decimal.Decimal `json:"promedio"`
	FechaActualizacion string          `json:"fechaActualizacion"`
}

type adminRequest struct {
	Promedio *decimal.Decimal `json:"promedio"`
	Failing  *bool            `json:"failing"`
}

func main() {
	logging.Init("mock-rates", "info", os.Getenv("APP_ENV"))

	// DolarAPI sends promedio as a bare JSON number.
	decimal.MarshalJSONWithoutQuotes = true

	initial := decimal.RequireFromString("36.30")
	if v := os.Getenv("MOCK_USD_RATE"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || !d.IsPositive() {
			slog.Error("invalid MOCK_USD_RATE", "value", v)
			os.Exit(1)
		}
		initial = d
	}
	state := &rateState{promedio: initial, updated: time.Now().UTC()}

	addr := ":8081"
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /v1/dolares/oficial", state.official)
	mux.HandleFunc("PUT /admin/rate", state.admin)

	slog.Info("mock rates provider started", "addr", addr, "promedio", initial.String())
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func (s *rateState) official(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failing {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "upstream unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, quote{
		Fuente:             "oficial",
		Nombre:             "Oficial",
		Promedio:           s.promedio,
		FechaActualizacion: s.updated.Format(time.RFC3339),
	})
}

func (s *rateState) admin(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if req.Promedio != nil && !req.Promedio.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "promedio must be positive"})
		return
	}

	s.mu.Lock()
	if req.Promedio != nil {
		s.promedio = *req.Promedio
		s.updated = time.Now().UTC()
	}
	if req.Failing != nil {
		s.failing = *req.Failing
	}
	promedio, failing := s.promedio, s.failing
	s.mu.Unlock()

	slog.Info("mock rate updated", "promedio", promedio.String(), "failing", failing)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

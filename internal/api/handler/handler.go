package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"zapstream/internal/api"
	"zapstream/internal/fiat"
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	store     *api.Store
	converter *fiat.Converter
}

// New creates a new Handler instance
func New(store *api.Store, converter *fiat.Converter) *Handler {
	return &Handler{
		store:     store,
		converter: converter,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ConvertResponse represents a sat → fiat conversion response
type ConvertResponse struct {
	AmountSats int64                      `json:"amountSats"`
	Currency   string                     `json:"currency"`
	Fiat       string                     `json:"fiat,omitempty"`
	Historical *fiat.HistoricalConversion `json:"historical,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Register wires all routes onto mux with CORS applied.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", corsMiddleware(h.Health))
	mux.HandleFunc("/leaderboard", corsMiddleware(h.Leaderboard))
	mux.HandleFunc("/grid", corsMiddleware(h.Grid))
	mux.HandleFunc("/notifications", corsMiddleware(h.Notifications))
	mux.HandleFunc("/session", corsMiddleware(h.Session))
	mux.HandleFunc("/convert", corsMiddleware(h.Convert))
}

// corsMiddleware adds CORS headers to allow cross-origin requests
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// Health handles GET /health requests
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	})
}

// Leaderboard handles GET /leaderboard?n=5 requests
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	n := 0
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		parsed, err := strconv.Atoi(nStr)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Parameter 'n' must be a positive integer")
			return
		}
		n = parsed
	}

	writeJSON(w, http.StatusOK, h.store.Leaderboard(n))
}

// Grid handles GET /grid requests
func (h *Handler) Grid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, h.store.Grid())
}

// Notifications handles GET /notifications requests
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, h.store.Notifications())
}

// Session handles GET /session requests
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, h.store.Session())
}

// Convert handles GET /convert?amount=2100&currency=USD[&timestamp=...].
// With a timestamp, the response includes the point-in-time conversion.
// A missing price degrades to an empty fiat field; sats stay authoritative.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil || amount < 0 {
		writeError(w, http.StatusBadRequest, "Parameter 'amount' must be a non-negative integer")
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	if currency == "" {
		writeError(w, http.StatusBadRequest, "Parameter 'currency' is required")
		return
	}

	resp := ConvertResponse{AmountSats: amount, Currency: currency}

	formatted, err := h.converter.Convert(amount, currency)
	if err != nil && !errors.Is(err, fiat.ErrNoPrice) {
		log.Printf("[API] Convert failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Conversion failed")
		return
	}
	resp.Fiat = formatted

	if tsStr := r.URL.Query().Get("timestamp"); tsStr != "" {
		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil || ts <= 0 {
			writeError(w, http.StatusBadRequest, "Parameter 'timestamp' must be a positive unix timestamp")
			return
		}
		historical, err := h.converter.ConvertHistorical(amount, ts, currency)
		if err != nil {
			// Best-effort enrichment only.
			log.Printf("[API] Historical conversion failed: %v", err)
		} else {
			resp.Historical = historical
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] Error encoding JSON: %v", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}
	writeJSON(w, status, response)
}

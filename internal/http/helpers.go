package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"reservas/internal/core"
	"reservas/internal/ledger"
	applog "reservas/internal/log"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("Failed to encode response", applog.FieldError, err)
		}
	}
}

// writeError maps domain sentinels to HTTP statuses: unknown entities 404,
// duplicates 409, validation failures 422.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrProfileNotFound),
		errors.Is(err, ledger.ErrBookingNotFound),
		errors.Is(err, ledger.ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrProfileExists):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrEmptyProfileName),
		errors.Is(err, core.ErrInvalidCurrency),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrNegativeValue),
		errors.Is(err, core.ErrEmptyItemName),
		errors.Is(err, core.ErrEmptyReservation):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path, applog.FieldError, err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

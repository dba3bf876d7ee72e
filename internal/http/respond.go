package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"familybudget/internal/budget"
	"familybudget/internal/core"
	"familybudget/internal/log"
	"familybudget/internal/services"
	"familybudget/internal/storage"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// errBadRequest marks malformed input that never reached the services.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// respondError maps service errors to status codes. Internal failures are
// logged and never echoed to the caller.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, budget.ErrCrossFamily):
		fields := log.NewFields().WithFamily(familyID(ctx), userID(ctx))
		fields[log.FieldErrorType] = log.ErrorTypeContract
		s.events.LogError(ctx, "Cross-family data reached evaluation", err, log.ComponentHTTP, log.OpEvaluate, fields)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		s.logger.ErrorContext(ctx, "Request failed",
			log.FieldFamilyID, familyID(ctx),
			log.FieldErrorType, log.ErrorTypeInternal,
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads one JSON object from the body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return badRequest("body must contain a single JSON object")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}

// parseAmount accepts a decimal amount such as "12.50" or "12,50".
func parseAmount(field, raw string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(raw))
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %s: %w", services.ErrValidation, field, err)
	}
	return core.Money{Cents: cents}, nil
}

// parseOptionalDate parses YYYY-MM-DD; empty input yields the zero date.
func parseOptionalDate(field, raw string) (core.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, badRequest("%s: %v", field, err)
	}
	return d, nil
}

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"kashela/internal/auth"
	"kashela/internal/core"
	"kashela/internal/extract"
	"kashela/internal/parse"
	"kashela/internal/payments"
	"kashela/internal/services"
	"kashela/internal/store"
	"kashela/internal/uploads"
)

// errorBody is the shape every error response has.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeServiceError maps domain errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500 without details.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := classify(err)
	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
	}
	writeError(w, status, detail)
}

func classify(err error) (int, string) {
	var (
		pe     *parse.ParseError
		br     errBadRequest
		apiErr *auth.APIError
	)
	switch {
	case errors.As(err, &br):
		return http.StatusUnprocessableEntity, br.msg
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge, "File too large"
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity, pe.Error()
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrDescriptionLong),
		errors.Is(err, services.ErrInvalidPeriod),
		errors.Is(err, payments.ErrInvalidPhone),
		errors.Is(err, uploads.ErrEmptyFile),
		errors.Is(err, extract.ErrEmptyResult):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Transaction not found"
	case errors.Is(err, uploads.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, uploads.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, extract.ErrUnavailable):
		return http.StatusNotImplemented, err.Error()
	case errors.As(err, &apiErr):
		return http.StatusBadRequest, apiErr.Message
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

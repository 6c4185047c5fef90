// Package httpx holds the HTTP plumbing shared by the storefront handlers:
// JSON responses, error classification and the request interceptor chain.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

// MessageBody is the {success, message} envelope used by errors and by
// deletes.
type MessageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteMessage(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	WriteJSON(w, logger, status, MessageBody{Success: status < 400, Message: message})
}

// WriteError classifies err, logs server-side failures and writes the error
// body. Messages of 5xx responses are not exposed.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		message = "internal server error"
	}
	WriteMessage(w, logger, status, message)
}

// StatusFor maps the domain error classes to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidCredential):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDataIntegrity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// MaxJSONBody bounds the request bodies DecodeJSON will read.
const MaxJSONBody = 1 << 20

// DecodeJSON reads a JSON request body of at most MaxJSONBody bytes into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes: %w", tooLarge.Limit, domain.ErrValidation)
		}
		return fmt.Errorf("invalid request body: %w", domain.ErrValidation)
	}
	return nil
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kalambet/lifetale/internal/deepseek"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// completionError maps a completion client failure onto an HTTP status
// and error type, passing the client's message through unchanged.
func completionError(w http.ResponseWriter, err error) {
	var (
		authErr *deepseek.AuthError
		rateErr *deepseek.RateLimitError
		apiErr  *deepseek.APIError
		trErr   *deepseek.TransientError
		envErr  *deepseek.EnvelopeError
		outErr  *deepseek.OutputError
	)
	switch {
	case errors.Is(err, deepseek.ErrNoAPIKey):
		httpError(w, http.StatusServiceUnavailable, "configuration_error", "%v", err)
	case errors.As(err, &authErr):
		httpError(w, http.StatusBadGateway, "authentication_error", "%v", err)
	case errors.As(err, &rateErr):
		httpError(w, http.StatusTooManyRequests, "rate_limit_error", "%v", err)
	case errors.As(err, &trErr):
		httpError(w, http.StatusGatewayTimeout, "transient_error", "%v", err)
	case errors.As(err, &envErr), errors.As(err, &outErr):
		httpError(w, http.StatusBadGateway, "model_output_error", "%v", err)
	case errors.As(err, &apiErr):
		httpError(w, http.StatusBadGateway, "api_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"appdl/internal/logging"
	"appdl/internal/services"
)

const maxBodyBytes = 1 << 20

// StatusForKind maps a classified error kind onto an HTTP status code.
func StatusForKind(kind services.Kind) int {
	switch kind {
	case services.KindInvalidURL, services.KindValidation:
		return http.StatusBadRequest
	case services.KindUnsupportedPlatform:
		return http.StatusUnprocessableEntity
	case services.KindQueueFull:
		return http.StatusTooManyRequests
	case services.KindInvalidState:
		return http.StatusConflict
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.KindOf(err)
	status := StatusForKind(kind)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "request failed", "http_error",
			logging.String("path", r.URL.Path),
			logging.String(logging.FieldErrorKind, string(kind)),
			logging.Error(err),
		)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: string(kind)})
}

// decodeBody reads a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return services.Wrap(services.ErrValidation, "api", "decode", "request body is empty", nil)
		}
		return services.Wrap(services.ErrValidation, "api", "decode", "invalid JSON body", err)
	}
	return nil
}

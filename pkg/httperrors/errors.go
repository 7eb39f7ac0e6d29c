package httperrors

import (
	"encoding/json"
	"errors"
	"net/http"
	"pixelperfect/internal/core/domain"
)

type response struct {
	Error string `json:"error"`
}

// Write maps err to a status code and writes it as a JSON error body.
func Write(w http.ResponseWriter, err error) {
	status, msg := Classify(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{Error: msg})
}

// Classify returns the status code for err and the message that may be shown to a client.
func Classify(err error) (int, string) {
	msg, ok := domain.UserMessage(err)
	if !ok {
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}

	switch {
	case errors.Is(err, domain.ErrUpscaleFailed):
		return http.StatusUnprocessableEntity, msg
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, msg
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, msg
	case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrStaleResult):
		return http.StatusConflict, msg
	default:
		return http.StatusInternalServerError, msg
	}
}

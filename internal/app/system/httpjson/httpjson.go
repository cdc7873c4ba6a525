// internal/app/system/httpjson/httpjson.go

// Package httpjson writes JSON API responses and maps workflow errors to
// HTTP statuses, so every feature reports failures the same way.
package httpjson

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/peerhub/peerhub/internal/app/workflows"
	"go.uber.org/zap"
)

// Write encodes v as the response body with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the uniform error envelope.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteError maps err onto the workflow error taxonomy and writes the
// matching status:
//
//	ValidationError          422, with per-field messages
//	ErrNotFound              404
//	ErrDuplicate             409
//	InvalidTransitionError   409
//	UnauthorizedError        403
//	StoreError               503
//	anything else            500, details withheld from the client
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		valErr   *workflows.ValidationError
		transErr *workflows.InvalidTransitionError
		authErr  *workflows.UnauthorizedError
		storeErr *workflows.StoreError
	)

	switch {
	case errors.As(err, &valErr):
		Write(w, http.StatusUnprocessableEntity, errorBody{Error: valErr.Error(), Fields: valErr.Fields})
	case errors.Is(err, workflows.ErrNotFound):
		Write(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, workflows.ErrDuplicate):
		Write(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.As(err, &transErr):
		Write(w, http.StatusConflict, errorBody{Error: transErr.Error()})
	case errors.As(err, &authErr):
		Write(w, http.StatusForbidden, errorBody{Error: authErr.Error()})
	case errors.As(err, &storeErr):
		log.Error("store unavailable", zap.Error(err))
		Write(w, http.StatusServiceUnavailable, errorBody{Error: "service temporarily unavailable"})
	default:
		log.Error("unhandled error", zap.Error(err))
		Write(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// Decode reads a JSON request body into v. A malformed body reports 422
// to the client and returns false.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Write(w, http.StatusUnprocessableEntity, errorBody{Error: "malformed JSON body"})
		return false
	}
	return true
}

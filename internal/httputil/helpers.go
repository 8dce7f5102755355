package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/cambio-network/exchange_layer/internal/logging"
)

// DecodeJSON decodes the request body into v, writing a 400 on failure.
// Returns false when decoding failed and a response has been written.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteErrorResponse(w, r, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return false
	}
	return true
}

// RequireUserID extracts the authenticated account id from the request
// context, writing a 401 when absent.
func RequireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := logging.GetUserID(r.Context())
	if userID == "" {
		Unauthorized(w, "")
		return "", false
	}
	return userID, true
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, message string) {
	WriteErrorResponse(w, nil, http.StatusBadRequest, "INVALID_INPUT", message, nil)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "resource not found"
	}
	WriteErrorResponse(w, nil, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// Forbidden writes a 403 response.
func Forbidden(w http.ResponseWriter, message string) {
	if message == "" {
		message = "access denied"
	}
	WriteErrorResponse(w, nil, http.StatusForbidden, "FORBIDDEN", message, nil)
}

// InternalError writes a 500 response.
func InternalError(w http.ResponseWriter, message string) {
	if message == "" {
		message = "internal error"
	}
	WriteErrorResponse(w, nil, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
}

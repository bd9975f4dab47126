package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/soundwave"
)

// CodeUnauthorized is returned when a route needs a caller identity and none
// was resolved.
const CodeUnauthorized = "UNAUTHORIZED"

// ErrorBody is the JSON error envelope of every rejection.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes {"error": code, "message": message} with status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: code, Message: message})
}

// errorResponse maps an engine error onto status, code and client message.
// Internal failures get a fixed message.
func errorResponse(err error) (int, ErrorBody) {
	status := soundwave.HTTPStatus(err)
	code := soundwave.Code(err)

	var msg string
	switch code {
	case soundwave.CodeMissingCredentials:
		msg = "session credentials required"
	case soundwave.CodeInvalidSession:
		msg = "session is invalid or expired"
	case soundwave.CodeAccountDeactivated:
		msg = "account has been deactivated"
	case soundwave.CodeInvalidToken:
		msg = "access token is invalid"
	case soundwave.CodeInternal:
		msg = "internal error"
	default:
		msg = err.Error()
	}
	return status, ErrorBody{Error: code, Message: msg}
}

// WriteEngineError writes the response for an engine error.
func WriteEngineError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	WriteError(w, status, body.Error, body.Message)
}

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
)

// ErrorResponse is the JSON envelope used for all error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Respond writes v as a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// RespondError writes a JSON error envelope with the given status code.
func RespondError(w http.ResponseWriter, status int, errCode, message string) {
	Respond(w, status, ErrorResponse{Error: errCode, Message: message})
}

// RespondAppError maps an apperr.Error (or any error, wrapped as Internal) to
// its HTTP status and writes the JSON error envelope.
func RespondAppError(w http.ResponseWriter, err error) {
	e := apperr.As(err)
	RespondError(w, e.Kind.HTTPStatus(), string(e.Kind), e.Message)
}

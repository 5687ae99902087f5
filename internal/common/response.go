package common

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the error shape of the callable protocol. Status carries the
// canonical error kind (for example UNAUTHENTICATED or INVALID_ARGUMENT).
type ErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CallRequest is the callable request envelope: the payload lives under "data".
type CallRequest[T any] struct {
	Data T `json:"data"`
}

// CallResult is the callable success envelope.
type CallResult[T any] struct {
	Result T `json:"result"`
}

// CallError is the callable error envelope.
type CallError struct {
	Error ErrorBody `json:"error"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Result renders a successful callable response.
func Result[T any](w http.ResponseWriter, v T) {
	JSON(w, http.StatusOK, CallResult[T]{Result: v})
}

// JSONError renders an error response using the callable error shape.
func JSONError(w http.ResponseWriter, status int, kind, message string) {
	JSON(w, status, CallError{Error: ErrorBody{Status: kind, Message: message}})
}

// ErrorPayload returns the encoded callable error envelope. Transports that do
// not write to an http.ResponseWriter use it to build their bodies.
func ErrorPayload(kind, message string) []byte {
	b, _ := json.Marshal(CallError{Error: ErrorBody{Status: kind, Message: message}})
	return b
}

// ResultPayload returns the encoded callable success envelope.
func ResultPayload[T any](v T) ([]byte, error) {
	return json.Marshal(CallResult[T]{Result: v})
}

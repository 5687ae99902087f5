package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-payintent/internal/auth"
	"github.com/noah-isme/backend-payintent/internal/common"
)

const msgInvalidPayload = "Invalid request payload."

// Handler exposes createPaymentIntent over the callable HTTP protocol.
type Handler struct {
	Svc *Service
}

// CreatePaymentIntent handles POST {"data": {...}} and answers with
// {"result": {"clientSecret": ...}} or a callable error envelope.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil || h.Svc.Processor == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "payment handler unavailable")
		return
	}
	caller, _ := auth.CallerFrom(r.Context())

	req, err := DecodeRequest(r.Body, caller)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("caller_id", caller.ID).Msg("payment_intent_bad_payload")
		WriteError(w, err)
		return
	}
	result, err := h.Svc.Create(r.Context(), caller, req)
	if err != nil {
		WriteError(w, err)
		return
	}
	common.Result(w, result)
}

// DecodeRequest reads a callable request envelope. An empty body yields an
// empty Request. A malformed body is INVALID_ARGUMENT for authenticated
// callers; anonymous callers get an empty Request so identity is still
// checked first.
func DecodeRequest(body io.Reader, caller auth.Caller) (Request, error) {
	if body == nil {
		return Request{}, nil
	}
	var call common.CallRequest[Request]
	err := json.NewDecoder(body).Decode(&call)
	switch {
	case err == nil:
		return call.Data, nil
	case errors.Is(err, io.EOF):
		return Request{}, nil
	case !caller.Authenticated():
		return Request{}, nil
	default:
		return Request{}, invalidArgument(msgInvalidPayload, err)
	}
}

// WriteError renders err as a callable error envelope.
func WriteError(w http.ResponseWriter, err error) {
	status, kind, message := ErrorResponse(err)
	common.JSONError(w, status, kind, message)
}

// ErrorResponse maps err onto an HTTP status, error kind and message. Errors
// that are not *Error are reported as INTERNAL without leaking their text.
func ErrorResponse(err error) (int, string, string) {
	if pe, ok := AsError(err); ok {
		return pe.Kind.HTTPStatus(), string(pe.Kind), pe.Message
	}
	return http.StatusInternalServerError, "INTERNAL", "internal error"
}

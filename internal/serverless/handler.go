// Package serverless serves createPaymentIntent behind an API Gateway HTTP API
// with a JWT authorizer.
package serverless

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-payintent/internal/auth"
	"github.com/noah-isme/backend-payintent/internal/common"
	"github.com/noah-isme/backend-payintent/internal/payment"
)

// SubjectClaim names the authorizer claim that identifies the caller.
const SubjectClaim = "sub"

// Handler adapts API Gateway v2 events onto the payment service.
type Handler struct {
	Svc    *payment.Service
	Logger zerolog.Logger
}

// Handle answers one invocation. Failures are encoded in the response so the
// returned error is always nil once the handler is configured.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if h == nil || h.Svc == nil || h.Svc.Processor == nil {
		return respond(http.StatusInternalServerError, common.ErrorPayload("INTERNAL", "payment handler unavailable")), nil
	}
	if req.RequestContext.HTTP.Method != "" && !strings.EqualFold(req.RequestContext.HTTP.Method, http.MethodPost) {
		return respond(http.StatusMethodNotAllowed, common.ErrorPayload("INVALID_ARGUMENT", "Only POST is supported.")), nil
	}

	caller := callerFromAuthorizer(req)
	logger := h.Logger.With().
		Str("request_id", req.RequestContext.RequestID).
		Str("route", req.RouteKey).
		Logger()
	if caller.Authenticated() {
		logger = logger.With().Str("caller_id", caller.ID).Logger()
	}
	ctx = logger.WithContext(ctx)

	body, err := decodeBody(req)
	if err != nil && caller.Authenticated() {
		logger.Warn().Err(err).Msg("payment_intent_bad_payload")
		return errorResponse(&payment.Error{Kind: payment.KindInvalidArgument, Message: "Invalid request payload.", Err: err}), nil
	}
	call, err := payment.DecodeRequest(bytes.NewReader(body), caller)
	if err != nil {
		logger.Warn().Err(err).Msg("payment_intent_bad_payload")
		return errorResponse(err), nil
	}

	result, err := h.Svc.Create(ctx, caller, call)
	if err != nil {
		return errorResponse(err), nil
	}
	payload, err := common.ResultPayload(result)
	if err != nil {
		logger.Error().Err(err).Msg("payment_intent_encode_failed")
		return respond(http.StatusInternalServerError, common.ErrorPayload("INTERNAL", "internal error")), nil
	}
	return respond(http.StatusOK, payload), nil
}

// callerFromAuthorizer reads the identity API Gateway already verified.
func callerFromAuthorizer(req events.APIGatewayV2HTTPRequest) auth.Caller {
	authz := req.RequestContext.Authorizer
	if authz == nil || authz.JWT == nil {
		return auth.Caller{}
	}
	return auth.Caller{ID: strings.TrimSpace(authz.JWT.Claims[SubjectClaim])}
}

func decodeBody(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return nil, errors.Join(errors.New("decode base64 body"), err)
	}
	return decoded, nil
}

func errorResponse(err error) events.APIGatewayV2HTTPResponse {
	status, kind, message := payment.ErrorResponse(err)
	return respond(status, common.ErrorPayload(kind, message))
}

func respond(status int, body []byte) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Cache-Control": "no-store",
		},
		Body: string(body),
	}
}

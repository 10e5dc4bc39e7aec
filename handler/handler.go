package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"dms-comments/internal/domain"
	"dms-comments/internal/logging"
	"dms-comments/internal/usecase"
)

const (
	correlationHeader     = "X-Correlation-Id"
	defaultRequestTimeout = 5 * time.Second
)

// CommentUseCase is the set of comment operations the handler routes to.
type CommentUseCase interface {
	ListComments(ctx context.Context, documentID string) ([]domain.Comment, error)
	CreateComment(ctx context.Context, in usecase.CreateCommentInput) (domain.Comment, error)
	DeleteComment(ctx context.Context, documentID, commentID string) error
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler serves API Gateway HTTP API (payload v2) requests for comments.
type Handler struct {
	uc      CommentUseCase
	timeout time.Duration
}

func NewHandler(uc CommentUseCase, timeout time.Duration) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: comment use case must not be nil")
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Handler{uc: uc, timeout: timeout}, nil
}

// Handle routes one request. Failures are reported in the response; the
// returned error is always nil so API Gateway never sees a Lambda error.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	method := req.RequestContext.HTTP.Method
	path := stripStage(req.RawPath, req.RequestContext.Stage)

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	ctx = logging.WithFields(ctx, "correlation_id", correlationID, "method", method, "path", path)

	resp := h.dispatch(ctx, req, method, path)
	resp.Headers[correlationHeader] = correlationID
	return resp, nil
}

func (h *Handler) dispatch(ctx context.Context, req events.APIGatewayV2HTTPRequest, method, path string) events.APIGatewayV2HTTPResponse {
	rt, allow, err := resolveRoute(method, path)
	if err != nil {
		resp := h.fail(ctx, err)
		if len(allow) > 0 {
			resp.Headers["Allow"] = strings.Join(allow, ", ")
		}
		return resp
	}

	switch rt.op {
	case opListComments:
		comments, err := h.uc.ListComments(ctx, rt.documentID)
		if err != nil {
			return h.fail(ctx, err)
		}
		return jsonResponse(http.StatusOK, comments)

	case opCreateComment:
		body, err := requestBody(req)
		if err != nil {
			return h.fail(ctx, err)
		}
		comment, err := h.uc.CreateComment(ctx, usecase.CreateCommentInput{
			DocumentID: rt.documentID,
			Identity:   identityOf(req),
			Body:       body,
		})
		if err != nil {
			return h.fail(ctx, err)
		}
		return jsonResponse(http.StatusOK, comment)

	case opDeleteComment:
		if err := h.uc.DeleteComment(ctx, rt.documentID, rt.commentID); err != nil {
			return h.fail(ctx, err)
		}
		return jsonResponse(http.StatusOK, struct{}{})
	}

	return h.fail(ctx, usecase.NewError(usecase.ErrorNotFound, "unknown_route"))
}

func (h *Handler) fail(ctx context.Context, err error) events.APIGatewayV2HTTPResponse {
	code, reason := usecase.CodeOf(err)
	status := statusFor(code)

	log := logging.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(ctx, "request failed", "code", code, "reason", reason, "err", err)
	} else {
		log.InfoContext(ctx, "request rejected", "code", code, "reason", reason)
	}

	return jsonResponse(status, errorResponse{Error: string(code), Message: reason})
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

func jsonResponse(status int, v any) events.APIGatewayV2HTTPResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR","message":"encode_error"}`)
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func requestBody(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	body, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return nil, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "malformed_body", Err: err}
	}
	return body, nil
}

// identityOf reads the caller from the JWT authorizer's sub claim.
func identityOf(req events.APIGatewayV2HTTPRequest) domain.Identity {
	auth := req.RequestContext.Authorizer
	if auth == nil || auth.JWT == nil {
		return domain.Anonymous()
	}
	return domain.Authenticated(strings.TrimSpace(auth.JWT.Claims["sub"]))
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

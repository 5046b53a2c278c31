// Package questionnaire adapts the questionnaire service to the API
// Gateway style event contract and to plain HTTP through a chi router.
package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"vendorq/internal/questionnaire"
	"vendorq/pkg/domain"
)

// Service is the subset of questionnaire.Service the dispatcher calls.
type Service interface {
	Submit(ctx context.Context, vendorID string, form questionnaire.FormData) (questionnaire.SubmitResult, error)
	Latest(ctx context.Context, vendorID string) (domain.Questionnaire, error)
}

// Request is the invocation event.
type Request struct {
	HTTPMethod     string            `json:"httpMethod"`
	PathParameters map[string]string `json:"pathParameters"`
	// Body is either a JSON object or a JSON string holding an encoded object.
	Body           json.RawMessage `json:"body,omitempty"`
	RequestContext RequestContext  `json:"requestContext"`
}

// RequestContext carries caller supplied correlation data.
type RequestContext struct {
	RequestID string `json:"requestId,omitempty"`
}

// Response is the structured result returned for every event.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// Error messages returned to callers.
const (
	MsgVendorIDRequired = "vendor_id is required"
	MsgNotFound         = "Questionnaire not found"
	MsgVendorNotFound   = "Vendor not found"
	MsgInternal         = "Internal server error"
	MsgSubmitted        = "Questionnaire submitted successfully"
)

type questionnaireBody struct {
	ID                   string            `json:"id"`
	Questions            []domain.Question `json:"questions"`
	AutoFilled           bool              `json:"auto_filled"`
	TotalQuestions       int               `json:"total_questions"`
	AnsweredQuestions    int               `json:"answered_questions"`
	CompletionPercentage float64           `json:"completion_percentage"`
	CompletedAt          *string           `json:"completed_at"`
}

type submitBody struct {
	Message              string  `json:"message"`
	QuestionnaireID      string  `json:"questionnaire_id"`
	CompletionPercentage float64 `json:"completion_percentage"`
	AnsweredQuestions    int     `json:"answered_questions"`
	TotalQuestions       int     `json:"total_questions"`
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// Dispatcher routes events to the service by method and shapes responses.
type Dispatcher struct {
	svc    Service
	logger *slog.Logger
	newID  func() string
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger used for failures.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher returns a dispatcher over svc.
func NewDispatcher(svc Service, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{svc: svc, logger: slog.Default(), newID: uuid.NewString}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle processes one event. It never panics and always returns a response
// with the JSON and CORS headers set.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (resp Response) {
	requestID := req.RequestContext.RequestID
	if requestID == "" {
		requestID = d.newID()
	}
	logger := d.logger.With("request_id", requestID)
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorContext(ctx, "questionnaire handler panic",
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			resp = internalError(requestID)
		}
		logger.DebugContext(ctx, "questionnaire request handled",
			"method", req.HTTPMethod,
			"status", resp.StatusCode,
			"duration", time.Since(start),
		)
	}()

	vendorID := vendorIDFrom(req.PathParameters)
	if vendorID == "" {
		return jsonResponse(http.StatusBadRequest, errorBody{Error: MsgVendorIDRequired})
	}
	logger = logger.With("vendor_id", vendorID)

	method := strings.ToUpper(strings.TrimSpace(req.HTTPMethod))
	if method == "" {
		method = http.MethodPost
	}
	switch method {
	case http.MethodGet:
		return d.get(ctx, logger, requestID, vendorID)
	case http.MethodPost:
		return d.post(ctx, logger, requestID, vendorID, req.Body)
	default:
		return jsonResponse(http.StatusMethodNotAllowed, errorBody{Error: fmt.Sprintf("Method %s not allowed", req.HTTPMethod)})
	}
}

func (d *Dispatcher) get(ctx context.Context, logger *slog.Logger, requestID, vendorID string) Response {
	q, err := d.svc.Latest(ctx, vendorID)
	if err != nil {
		var ve domain.ValidationError
		switch {
		case domain.IsNotFound(err, ""):
			return jsonResponse(http.StatusNotFound, errorBody{Error: MsgNotFound})
		case errors.As(err, &ve):
			return jsonResponse(http.StatusBadRequest, errorBody{Error: ve.Message})
		}
		logger.ErrorContext(ctx, "get questionnaire failed", "error", err)
		return internalError(requestID)
	}
	return jsonResponse(http.StatusOK, toQuestionnaireBody(q))
}

func (d *Dispatcher) post(ctx context.Context, logger *slog.Logger, requestID, vendorID string, raw json.RawMessage) Response {
	form, err := questionnaire.ParseBody(raw)
	if err == nil {
		var res questionnaire.SubmitResult
		res, err = d.svc.Submit(ctx, vendorID, form)
		if err == nil {
			return jsonResponse(http.StatusOK, submitBody{
				Message:              MsgSubmitted,
				QuestionnaireID:      res.QuestionnaireID,
				CompletionPercentage: res.Stats.CompletionPercentage,
				AnsweredQuestions:    res.Stats.AnsweredQuestions,
				TotalQuestions:       res.Stats.TotalQuestions,
			})
		}
	}
	var ve domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return jsonResponse(http.StatusBadRequest, errorBody{Error: ve.Message})
	case domain.IsNotFound(err, domain.EntityVendor):
		return jsonResponse(http.StatusBadRequest, errorBody{Error: MsgVendorNotFound})
	}
	logger.ErrorContext(ctx, "save questionnaire failed", "error", err)
	return internalError(requestID)
}

func vendorIDFrom(params map[string]string) string {
	if id := strings.TrimSpace(params["vendor_id"]); id != "" {
		return id
	}
	return strings.TrimSpace(params["id"])
}

func toQuestionnaireBody(q domain.Questionnaire) questionnaireBody {
	questions := q.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	body := questionnaireBody{
		ID:                   q.ID,
		Questions:            questions,
		AutoFilled:           q.AutoFilled,
		TotalQuestions:       q.TotalQuestions,
		AnsweredQuestions:    q.AnsweredQuestions,
		CompletionPercentage: q.CompletionPercentage,
	}
	if q.CompletedAt != nil {
		ts := q.CompletedAt.UTC().Format(time.RFC3339Nano)
		body.CompletedAt = &ts
	}
	return body
}

func internalError(requestID string) Response {
	return jsonResponse(http.StatusInternalServerError, errorBody{Error: MsgInternal, RequestID: requestID})
}

func responseHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": "*",
	}
}

func jsonResponse(status int, payload any) Response {
	b, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"` + MsgInternal + `"}`)
	}
	return Response{StatusCode: status, Headers: responseHeaders(), Body: string(b)}
}

package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vendorq/internal/blob"
	"vendorq/internal/questionnaire"
)

// DefaultMaxBodyBytes caps submission bodies read by the HTTP adapter.
const DefaultMaxBodyBytes int64 = 1 << 20

// HTTPObserver records completed HTTP requests.
type HTTPObserver interface {
	ObserveHTTP(route, method string, status int, duration time.Duration)
}

// HistorySource lists archived submission snapshots for a vendor.
type HistorySource interface {
	History(ctx context.Context, vendorID string) ([]blob.Info, error)
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Logger       *slog.Logger
	Catalog      questionnaire.Catalog
	Metrics      http.Handler  // served on /metrics when set
	History      HistorySource // served on /vendors/{vendor_id}/questionnaire/history when set
	Observer     HTTPObserver
	MaxBodyBytes int64
}

type handler struct {
	dispatcher *Dispatcher
	catalog    questionnaire.Catalog
	history    HistorySource
	logger     *slog.Logger
	maxBody    int64
}

// NewRouter exposes the dispatcher over HTTP:
//
//	GET|POST /vendors/{vendor_id}/questionnaire
//	GET      /questionnaire/fields
//	GET      /vendors/{vendor_id}/questionnaire/history (when opts.History is set)
//	GET      /healthz
//	GET      /metrics (when opts.Metrics is set)
func NewRouter(d *Dispatcher, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{
		dispatcher: d,
		catalog:    opts.Catalog,
		history:    opts.History,
		logger:     logger,
		maxBody:    opts.MaxBodyBytes,
	}
	if len(h.catalog) == 0 {
		h.catalog = questionnaire.DefaultCatalog()
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger, opts.Observer))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/questionnaire/fields", h.handleFields)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.HandleFunc("/vendors/{vendor_id}/questionnaire", h.handleQuestionnaire)
	if h.history != nil {
		r.Get("/vendors/{vendor_id}/questionnaire/history", h.handleHistory)
	}
	return r
}

func (h *handler) handleQuestionnaire(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp := h.dispatcher.Handle(r.Context(), Request{
		HTTPMethod:     r.Method,
		PathParameters: map[string]string{"vendor_id": chi.URLParam(r, "vendor_id")},
		Body:           body,
		RequestContext: RequestContext{RequestID: middleware.GetReqID(r.Context())},
	})
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}

type historyResponse struct {
	VendorID  string      `json:"vendor_id"`
	Snapshots []blob.Info `json:"snapshots"`
}

func (h *handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	vendorID := strings.TrimSpace(chi.URLParam(r, "vendor_id"))
	if vendorID == "" {
		writeError(w, http.StatusBadRequest, MsgVendorIDRequired)
		return
	}
	snapshots, err := h.history.History(r.Context(), vendorID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list questionnaire history failed",
			"vendor_id", vendorID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list questionnaire history")
		return
	}
	if snapshots == nil {
		snapshots = []blob.Info{}
	}
	writeJSON(w, http.StatusOK, historyResponse{VendorID: vendorID, Snapshots: snapshots})
}

type fieldsResponse struct {
	Sections []string                        `json:"sections"`
	Fields   []questionnaire.FieldDefinition `json:"fields"`
	Required int                             `json:"required"`
}

func (h *handler) handleFields(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, fieldsResponse{
		Sections: h.catalog.Sections(),
		Fields:   h.catalog,
		Required: h.catalog.Required(),
	})
}

// requestLogger logs one line per request and reports it to obs.
func requestLogger(logger *slog.Logger, obs HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				elapsed := time.Since(start)
				route := r.URL.Path
				if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
					route = rctx.RoutePattern()
				}
				logger.InfoContext(r.Context(), "http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"duration", elapsed.Round(time.Millisecond),
					"request_id", middleware.GetReqID(r.Context()),
				)
				if obs != nil {
					obs.ObserveHTTP(route, r.Method, status, elapsed)
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// Package handler serves published relations over HTTP and lets operators
// trigger a level run.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"acspop/internal/platform/metrics"
	"acspop/internal/platform/middleware"
	"acspop/internal/population/events"
	"acspop/internal/population/models"
	"acspop/internal/population/service"
	"acspop/internal/population/sink"
	dErrors "acspop/pkg/domain-errors"
	"acspop/pkg/platform/httputil"
	"acspop/pkg/platform/middleware/requesttime"
	"acspop/pkg/platform/sentinel"
)

// Runner runs ingestion for one level.
type Runner interface {
	RunLevel(ctx context.Context, level models.Level) (*service.LevelResult, error)
}

// Handler handles relation endpoints.
type Handler struct {
	logger  *slog.Logger
	reader  sink.Reader
	runner  Runner
	metrics *metrics.Metrics
}

type Option func(*Handler)

// WithRunner enables POST /runs/{level}.
func WithRunner(r Runner) Option {
	return func(h *Handler) {
		h.runner = r
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

func New(reader sink.Reader, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{reader: reader, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the relation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(requesttime.Middleware)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(h.metrics))

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/relations", h.handleListRelations)
		r.Get("/relations/{name}", h.handleGetRelation)
	})
	if h.runner != nil {
		router.Post("/runs/{level}", h.handleRunLevel)
	}

	r.Mount("/", router)
}

func (h *Handler) handleListRelations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pubs, err := h.reader.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list relations",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list relations"))
		return
	}
	if pubs == nil {
		pubs = []sink.Publication{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"relations": pubs})
}

// handleGetRelation returns a published table. ?state_fips= restricts rows
// to one state.
func (h *Handler) handleGetRelation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	table, err := h.reader.Table(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "relation %s is not published", name))
			return
		}
		h.logger.ErrorContext(ctx, "failed to read relation",
			"request_id", middleware.GetRequestID(ctx),
			"relation", name,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to read relation"))
		return
	}

	if state := r.URL.Query().Get(models.ColStateFIPS); state != "" {
		table = filterRows(table, models.ColStateFIPS, state)
	}
	httputil.WriteJSON(w, http.StatusOK, table)
}

func filterRows(t *models.Table, column, value string) *models.Table {
	idx := -1
	for i, c := range t.Columns {
		if c.Name == column {
			idx = i
			break
		}
	}
	out := &models.Table{Name: t.Name, Columns: t.Columns, Rows: [][]any{}}
	if idx < 0 {
		return out
	}
	for _, row := range t.Rows {
		if s, ok := row[idx].(string); ok && s == value {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

type runResponse struct {
	RunID      string                `json:"run_id"`
	Level      string                `json:"level"`
	Relations  []events.RelationInfo `json:"relations"`
	DurationMS int64                 `json:"duration_ms"`
}

func (h *Handler) handleRunLevel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	level, err := models.ParseLevel(chi.URLParam(r, "level"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.runner.RunLevel(ctx, level)
	if err != nil {
		h.logger.WarnContext(ctx, "level run request failed",
			"request_id", middleware.GetRequestID(ctx),
			"level", level,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, runResponse{
		RunID:      res.RunID.String(),
		Level:      string(res.Level),
		Relations:  res.Relations,
		DurationMS: res.Duration.Milliseconds(),
	})
}

// Package service runs ingestion: for each geography level it loads and
// standardizes every concept, builds the five breakdown relations, publishes
// them as one batch and announces the publication.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"acspop/internal/population/assembler"
	"acspop/internal/population/census"
	"acspop/internal/population/events"
	"acspop/internal/population/metrics"
	"acspop/internal/population/models"
	"acspop/internal/population/sink"
	dErrors "acspop/pkg/domain-errors"
	"acspop/pkg/requestcontext"
)

const tracerName = "acspop/ingest"

// EventPublisher announces a published level. Announcing happens after the
// sink committed, so a failed announcement is logged and does not fail the
// run.
type EventPublisher interface {
	Publish(ctx context.Context, event events.RelationsPublished) error
}

// LevelResult summarizes one successful level run.
type LevelResult struct {
	RunID     uuid.UUID
	Level     models.Level
	Relations []events.RelationInfo
	Duration  time.Duration
}

// Ingester coordinates level runs.
type Ingester struct {
	source    census.Source
	resolver  census.Resolver
	sink      sink.Sink
	publisher EventPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	// parallel bounds concurrent level runs; 0 means unbounded
	parallel int
}

type Option func(*Ingester)

func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingester) {
		i.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Ingester) {
		i.metrics = m
	}
}

// WithPublisher enables publication events.
func WithPublisher(p EventPublisher) Option {
	return func(i *Ingester) {
		i.publisher = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(i *Ingester) {
		i.tracer = t
	}
}

// WithParallelism bounds how many levels RunAll builds at once.
func WithParallelism(n int) Option {
	return func(i *Ingester) {
		i.parallel = n
	}
}

func New(source census.Source, resolver census.Resolver, s sink.Sink, opts ...Option) (*Ingester, error) {
	if source == nil {
		return nil, errors.New("raw table source is required")
	}
	if resolver == nil {
		return nil, errors.New("variable resolver is required")
	}
	if s == nil {
		return nil, errors.New("sink is required")
	}
	i := &Ingester{
		source:   source,
		resolver: resolver,
		sink:     s,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// RunLevel builds and publishes every relation of level. Nothing is
// published unless all five relations were built. The run ID and clock
// already on ctx are reused; otherwise fresh ones are stamped.
func (i *Ingester) RunLevel(ctx context.Context, level models.Level) (*LevelResult, error) {
	ctx = stampRun(ctx)
	runID := requestcontext.RunID(ctx)
	start := time.Now()

	ctx, span := i.tracer.Start(ctx, "ingest.RunLevel", trace.WithAttributes(
		attribute.String("acs.level", string(level)),
		attribute.String("acs.run_id", runID.String()),
	))
	defer span.End()

	logger := i.logger.With("run_id", runID.String(), "level", string(level))
	logger.InfoContext(ctx, "level run started")

	infos, err := i.runLevel(ctx, level)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.metrics.IncrementRunFailure(string(level), string(dErrors.CodeOf(err)))
		logger.ErrorContext(ctx, "level run failed", "error", err, "code", dErrors.CodeOf(err))
		return nil, err
	}

	elapsed := time.Since(start)
	i.metrics.ObserveRunDuration(string(level), elapsed)
	for _, info := range infos {
		i.metrics.AddRowsPublished(string(level), info.Name, info.Rows)
	}
	i.announce(ctx, logger, level, infos)

	logger.InfoContext(ctx, "level run published",
		"relations", len(infos),
		"duration", elapsed,
	)
	return &LevelResult{RunID: runID, Level: level, Relations: infos, Duration: elapsed}, nil
}

func (i *Ingester) runLevel(ctx context.Context, level models.Level) ([]events.RelationInfo, error) {
	asm, err := assembler.New(level)
	if err != nil {
		return nil, err
	}
	in, err := assembler.LoadInputs(ctx, i.source, i.resolver, level)
	if err != nil {
		return nil, err
	}
	rels, err := asm.Build(in)
	if err != nil {
		return nil, fmt.Errorf("build %s relations: %w", level, err)
	}

	all := rels.All()
	tables := make([]models.Table, 0, len(all))
	infos := make([]events.RelationInfo, 0, len(all))
	for _, rel := range all {
		tables = append(tables, rel.Table())
		infos = append(infos, events.RelationInfo{Name: rel.Name, Rows: len(rel.Rows)})
	}

	pubCtx, span := i.tracer.Start(ctx, "ingest.Publish", trace.WithAttributes(
		attribute.Int("acs.tables", len(tables)),
	))
	defer span.End()
	if err := i.sink.Publish(pubCtx, level, tables); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("publish %s relations: %w", level, err)
	}
	return infos, nil
}

func (i *Ingester) announce(ctx context.Context, logger *slog.Logger, level models.Level, infos []events.RelationInfo) {
	if i.publisher == nil {
		return
	}
	event := events.RelationsPublished{
		Type:        events.TypeRelationsPublished,
		RunID:       requestcontext.RunID(ctx).String(),
		Level:       level,
		Relations:   infos,
		PublishedAt: requestcontext.Now(ctx),
	}
	if err := i.publisher.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "publication event not delivered", "error", err)
	}
}

// RunAll runs levels concurrently. Levels are independent: a failing level
// neither cancels nor rolls back the others. Results are returned in level
// order with nil entries for failed levels, alongside the joined errors.
func (i *Ingester) RunAll(ctx context.Context, levels []models.Level) ([]*LevelResult, error) {
	ctx = stampRun(ctx)
	results := make([]*LevelResult, len(levels))
	errs := make([]error, len(levels))

	var g errgroup.Group
	if i.parallel > 0 {
		g.SetLimit(i.parallel)
	}
	for n, level := range levels {
		g.Go(func() error {
			res, err := i.RunLevel(ctx, level)
			if err != nil {
				errs[n] = fmt.Errorf("level %s: %w", level, err)
				return nil
			}
			results[n] = res
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// stampRun gives ctx a run ID and a fixed clock unless it already has them.
func stampRun(ctx context.Context) context.Context {
	if requestcontext.RunID(ctx) == uuid.Nil {
		ctx = requestcontext.WithRunID(ctx, uuid.New())
	}
	if _, ok := ctx.Value(requestcontext.ContextKeyRequestTime).(time.Time); !ok {
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())
	}
	return ctx
}

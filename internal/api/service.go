package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/meshlink-planner/core"
	"github.com/signalsfoundry/meshlink-planner/internal/logging"
	"github.com/signalsfoundry/meshlink-planner/internal/observability"
	"github.com/signalsfoundry/meshlink-planner/radio"
)

// Service fronts the estimation engine for both transports: it validates
// requests, consults the result cache, records metrics and refuses to hand
// out non-finite summaries.
type Service struct {
	engine  *core.Engine
	cache   *ResultCache
	metrics *observability.EstimatorCollector
	log     logging.Logger
}

// ServiceOptions carries the optional collaborators of a Service. Nil
// fields disable the corresponding feature.
type ServiceOptions struct {
	Cache   *ResultCache
	Metrics *observability.EstimatorCollector
	Log     logging.Logger
}

// NewService constructs a Service around engine. A nil engine uses the
// built-in radio catalog.
func NewService(engine *core.Engine, opts ServiceOptions) *Service {
	if engine == nil {
		engine = core.NewEngine(nil)
	}
	if opts.Log == nil {
		opts.Log = logging.Noop()
	}
	opts.Metrics.SetCatalogVariants(len(engine.Catalog().IDs()))
	return &Service{
		engine:  engine,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		log:     opts.Log,
	}
}

// Estimate validates req and returns the estimation summary for it.
func (s *Service) Estimate(ctx context.Context, req EstimateRequest) (*core.EstimationSummary, error) {
	reqLog := logging.LoggerFromContext(ctx, s.log).With(
		logging.String("operation", "estimate"),
	)

	norm, err := ValidateRequest(req)
	if err != nil {
		reqLog.Debug(ctx, "estimate validation failed", logging.Err(err))
		s.metrics.ObserveEstimation(modeLabel(req.Mode), entryLabel(req.Entry), observability.OutcomeInvalid)
		return nil, err
	}
	mode := core.Mode(norm.Mode)
	reqLog = reqLog.With(
		logging.String("variant", norm.Variant),
		logging.String("mode", norm.Mode),
		logging.String("entry", norm.Entry),
	)

	variant, err := s.engine.Catalog().Lookup(norm.Variant)
	if err != nil {
		reqLog.Debug(ctx, "estimate for unknown variant", logging.Err(err))
		s.metrics.ObserveEstimation(norm.Mode, norm.Entry, observability.OutcomeNotFound)
		return nil, err
	}

	key := cacheKey(norm.Entry, mode, norm.LinkParameters.Normalize(variant))
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.ObserveCache(true)
		s.metrics.ObserveEstimation(norm.Mode, norm.Entry, observability.OutcomeOK)
		reqLog.Debug(ctx, "estimate served from cache", logging.Int("final_mcs", cached.FinalMCS))
		return cached, nil
	}
	if s.cache != nil {
		s.metrics.ObserveCache(false)
	}

	ctx, span := StartChildSpan(ctx, "estimation/compute",
		attribute.String("variant", norm.Variant),
		attribute.String("mode", norm.Mode),
		attribute.String("entry", norm.Entry),
	)
	defer span.End()

	start := time.Now()
	var summary *core.EstimationSummary
	if norm.Entry == EntryThroughput {
		summary, err = s.engine.EstimateThroughput(norm.LinkParameters, mode)
	} else {
		summary, err = s.engine.EstimateRange(norm.LinkParameters, mode)
	}
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.ObserveEstimation(norm.Mode, norm.Entry, outcomeFor(err))
		reqLog.Warn(ctx, "estimation failed", logging.Err(err))
		return nil, err
	}
	if !summary.Finite() {
		err := fmt.Errorf("%w: variant %q at %v MHz", ErrNonFiniteResult, norm.Variant, norm.FrequencyMHz)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.ObserveEstimation(norm.Mode, norm.Entry, observability.OutcomeNonFinite)
		reqLog.Warn(ctx, "estimation rejected", logging.Err(err))
		return nil, err
	}

	s.metrics.ObserveDuration(norm.Mode, elapsed)
	for _, r := range summary.Results {
		s.metrics.ObserveSolver(r.SolverIterations, r.SolverConverged)
	}
	s.metrics.ObserveFinalMCS(summary.Variant, summary.FinalMCS)
	s.metrics.ObserveEstimation(norm.Mode, norm.Entry, observability.OutcomeOK)
	span.SetAttributes(
		attribute.Int("final_mcs", summary.FinalMCS),
		attribute.Float64("final_range_m", summary.FinalRangeMeters),
	)

	s.cache.Add(key, summary)

	reqLog.Info(ctx, "estimation computed",
		logging.Int("final_mcs", summary.FinalMCS),
		logging.Float64("final_range_m", summary.FinalRangeMeters),
		logging.Float64("throughput_delta_mbps", summary.ThroughputDeltaMbps),
		logging.Duration("elapsed", elapsed),
	)
	return summary, nil
}

// Variants lists the catalog in catalog order.
func (s *Service) Variants(ctx context.Context) []radio.RadioVariant {
	return s.engine.Catalog().All()
}

// Variant returns one catalog entry.
func (s *Service) Variant(ctx context.Context, id string) (radio.RadioVariant, error) {
	return s.engine.Catalog().Lookup(id)
}

func outcomeFor(err error) string {
	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		return observability.OutcomeInvalid
	case http.StatusNotFound:
		return observability.OutcomeNotFound
	default:
		return observability.OutcomeError
	}
}

// modeLabel and entryLabel bound metric label cardinality for requests that
// failed validation.
func modeLabel(mode string) string {
	if m, err := core.ParseMode(mode); err == nil {
		return string(m)
	}
	return "invalid"
}

func entryLabel(entry string) string {
	switch entry {
	case "", EntryRange:
		return EntryRange
	case EntryThroughput:
		return EntryThroughput
	default:
		return "invalid"
	}
}

package observability

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Estimation outcomes used for the outcome label.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeNotFound  = "not_found"
	OutcomeNonFinite = "non_finite"
	OutcomeError     = "error"
)

// EstimatorCollector exposes engine-level Prometheus metrics.
type EstimatorCollector struct {
	Estimations        *prometheus.CounterVec
	EstimationDuration *prometheus.HistogramVec
	SolverIterations   prometheus.Histogram
	SolverCapped       prometheus.Counter
	FinalMCS           *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
	CatalogVariants    prometheus.Gauge
}

// NewEstimatorCollector registers estimator metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewEstimatorCollector(reg prometheus.Registerer) (*EstimatorCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	estimations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meshlink_estimations_total",
		Help: "Link estimations served, labeled by MCS mode, entry point, and outcome.",
	}, []string{"mode", "entry", "outcome"}), "meshlink_estimations_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meshlink_estimation_duration_seconds",
		Help:    "Time spent computing one estimation summary, cache misses only.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}, []string{"mode"}), "meshlink_estimation_duration_seconds")
	if err != nil {
		return nil, err
	}

	iterations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "meshlink_solver_iterations",
		Help:    "Range solver iterations per MCS evaluation.",
		Buckets: []float64{1, 2, 3, 4, 5},
	}), "meshlink_solver_iterations")
	if err != nil {
		return nil, err
	}

	capped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meshlink_solver_capped_total",
		Help: "MCS evaluations where the range solver stopped at the iteration cap before converging.",
	}), "meshlink_solver_capped_total")
	if err != nil {
		return nil, err
	}

	finalMCS, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meshlink_final_mcs_total",
		Help: "Selected operating points, labeled by radio variant and MCS index.",
	}, []string{"variant", "mcs"}), "meshlink_final_mcs_total")
	if err != nil {
		return nil, err
	}

	cache, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meshlink_result_cache_lookups_total",
		Help: "Result cache lookups, labeled hit or miss.",
	}, []string{"result"}), "meshlink_result_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	variants, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "meshlink_catalog_variants",
		Help: "Number of radio variants in the loaded catalog.",
	}), "meshlink_catalog_variants")
	if err != nil {
		return nil, err
	}

	return &EstimatorCollector{
		Estimations:        estimations,
		EstimationDuration: duration,
		SolverIterations:   iterations,
		SolverCapped:       capped,
		FinalMCS:           finalMCS,
		CacheLookups:       cache,
		CatalogVariants:    variants,
	}, nil
}

// ObserveEstimation counts one estimation request.
func (c *EstimatorCollector) ObserveEstimation(mode, entry, outcome string) {
	if c == nil || c.Estimations == nil {
		return
	}
	c.Estimations.WithLabelValues(mode, entry, outcome).Inc()
}

// ObserveDuration records the compute time of a cache miss.
func (c *EstimatorCollector) ObserveDuration(mode string, d time.Duration) {
	if c == nil || c.EstimationDuration == nil {
		return
	}
	c.EstimationDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveSolver records one range solve.
func (c *EstimatorCollector) ObserveSolver(iterations int, converged bool) {
	if c == nil {
		return
	}
	if c.SolverIterations != nil {
		c.SolverIterations.Observe(float64(iterations))
	}
	if !converged && c.SolverCapped != nil {
		c.SolverCapped.Inc()
	}
}

// ObserveFinalMCS counts the selected operating point.
func (c *EstimatorCollector) ObserveFinalMCS(variant string, mcs int) {
	if c == nil || c.FinalMCS == nil {
		return
	}
	c.FinalMCS.WithLabelValues(variant, strconv.Itoa(mcs)).Inc()
}

// ObserveCache counts a result cache lookup.
func (c *EstimatorCollector) ObserveCache(hit bool) {
	if c == nil || c.CacheLookups == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(result).Inc()
}

// SetCatalogVariants updates the catalog size gauge.
func (c *EstimatorCollector) SetCatalogVariants(n int) {
	if c == nil || c.CatalogVariants == nil {
		return
	}
	c.CatalogVariants.Set(float64(n))
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/meshlink-planner/radio"
)

// boltzmannNoiseDBmHz is the thermal noise density kT at 290 K in dBm/Hz.
const boltzmannNoiseDBmHz = -174.0

// Engine evaluates link budgets for every MCS of a radio variant. An Engine
// holds no per-call state and may be shared between goroutines.
type Engine struct {
	catalog *radio.Catalog
}

// NewEngine returns an engine resolving variants against cat. A nil catalog
// selects radio.Default().
func NewEngine(cat *radio.Catalog) *Engine {
	if cat == nil {
		cat = radio.Default()
	}
	return &Engine{catalog: cat}
}

// Catalog returns the catalog the engine resolves variants against.
func (e *Engine) Catalog() *radio.Catalog {
	return e.catalog
}

// EstimateRange runs Compute with the environment (terrain model, climate,
// temperature) taken from params.
func (e *Engine) EstimateRange(params LinkParameters, mode Mode) (*EstimationSummary, error) {
	return e.compute(params, mode, true)
}

// EstimateThroughput runs Compute in free space under clear sky at the
// neutral temperature, so only hardware and MAC parameters shape the
// result.
func (e *Engine) EstimateThroughput(params LinkParameters, mode Mode) (*EstimationSummary, error) {
	params.PathLossModel = ModelFreeSpace
	params.Climate = ClimateClear
	params.TemperatureC = neutralTemperatureC
	return e.compute(params, mode, false)
}

// Compute evaluates MCS 0-7 (or 8-15) for params and selects the operating
// point. Only an unknown variant or mode is an error; nonsensical numbers
// propagate into the summary as NaN or Inf, which EstimationSummary.Finite
// detects.
func (e *Engine) Compute(params LinkParameters, mode Mode) (*EstimationSummary, error) {
	return e.compute(params, mode, true)
}

func (e *Engine) compute(params LinkParameters, mode Mode, environment bool) (*EstimationSummary, error) {
	if mode != ModeSingleStream && mode != ModeDualStream {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	variant, err := e.catalog.Lookup(params.Variant)
	if err != nil {
		return nil, err
	}
	p := params.Normalize(variant)

	streams := p.Streams
	if mode == ModeSingleStream {
		streams = 1
	}
	aggregation := p.AggregationCeiling
	correction := 0.0
	if p.NearGround {
		aggregation = min(aggregation, nearGroundAggregation)
		correction = FrequencyCorrection(p.FrequencyMHz)
	}

	env := PathLossInput{
		FrequencyMHz: p.FrequencyMHz,
		Model:        p.PathLossModel,
		Climate:      p.Climate,
		TemperatureC: p.TemperatureC,
		HeightMeters: p.HeightAGLMeters,
	}
	noise := ThermalNoiseFloor(p.BandwidthMHz)
	requested := p.Required.TotalMbps()

	results := make([]MCSResult, 0, radio.MCSLevels)
	for i := 0; i < radio.MCSLevels; i++ {
		power := EffectivePower(variant.Power[i], p.PowerLimitDBm)
		solved := SolveRange(SolverInput{
			PowerDBm:            power,
			SensitivityDBm:      EffectiveSensitivity(variant.Sensitivity[i], p.Antennas, streams, p.BandwidthMHz),
			FadeMarginDB:        p.FadeMarginDB,
			AntennaGainDBi:      p.AntennaGainDBi,
			FrequencyCorrection: correction,
			PathLoss:            env,
		})
		r := solved.RangeMeters

		tp := EstimateThroughput(ThroughputInput{
			BitsPerSymbol:      variant.BitsPerSymbol[i],
			CodingRate:         variant.CodingRate[i],
			Streams:            streams,
			BandwidthMHz:       p.BandwidthMHz,
			PayloadBytes:       p.PayloadBytes,
			AggregationCeiling: aggregation,
		}, r)

		loss := PathLoss(r, env)
		clearance := FresnelClearance(r, p.FrequencyMHz, p.ClearancePercent)

		results = append(results, MCSResult{
			MCS:                         i + mode.MCSOffset(),
			Modulation:                  variant.Modulation[i],
			CodingRate:                  variant.CodingRate[i],
			RangeMeters:                 r,
			ThroughputMbps:              tp.ThroughputMbps,
			FresnelClearanceMeters:      clearance,
			SNRDB:                       power + p.AntennaGainDBi - loss - noise,
			WithinThroughputRequirement: requested <= tp.ThroughputMbps,
			WithinClearanceRequirement:  p.HeightAGLMeters >= clearance,
			WithinTargetRange:           p.TargetRangeMeters <= 0 || r >= p.TargetRangeMeters,
			LinkSpeedMbps:               tp.LinkSpeedMbps,
			IdealThroughputMbps:         tp.IdealMbps,
			AirtimeMicros:               tp.TotalMicros,
			AggregatedFrames:            tp.Frames,
			PathLossDB:                  loss,
			SolverIterations:            solved.Iterations,
			SolverConverged:             solved.Converged,
		})
	}

	final := SelectOperatingPoint(results, requested, p.HeightAGLMeters)
	chosen := results[final]

	summary := &EstimationSummary{
		Mode:                    mode,
		Variant:                 variant.ID,
		EnvironmentApplied:      environment,
		FinalMCS:                chosen.MCS,
		FinalRangeMeters:        chosen.RangeMeters,
		MaxMCS:                  results[0].MCS,
		MaxRangeMeters:          results[0].RangeMeters,
		RequestedThroughputMbps: requested,
		ThroughputDeltaMbps:     chosen.ThroughputMbps - requested,
		CurrentAGLMeters:        p.HeightAGLMeters,
		RequiredAGLMeters:       chosen.FresnelClearanceMeters,
		AGLDeltaMeters:          p.HeightAGLMeters - chosen.FresnelClearanceMeters,
		Results:                 results,
	}
	if p.TargetRangeMeters > 0 {
		summary.TargetRangeMeters = p.TargetRangeMeters
		summary.RangeDeltaMeters = chosen.RangeMeters - p.TargetRangeMeters
	}
	return summary, nil
}

// SelectOperatingPoint walks the results from the most robust MCS upwards
// and returns the index of the final operating point. Index i is selected
// whenever its predecessor fails the throughput or clearance requirement;
// the walk continues to the end, so the last such index wins. The check is
// against the predecessor, not the candidate itself, and dashboards rely on
// exactly this behaviour.
func SelectOperatingPoint(results []MCSResult, requestedMbps, currentAGLMeters float64) int {
	final := 0
	for i := 1; i < len(results); i++ {
		prev := results[i-1]
		if requestedMbps > prev.ThroughputMbps || currentAGLMeters < prev.FresnelClearanceMeters {
			final = i
		}
	}
	return final
}

// ThermalNoiseFloor returns kTB in dBm for a channel of bandwidthMHz.
func ThermalNoiseFloor(bandwidthMHz float64) float64 {
	return boltzmannNoiseDBmHz + 10*math.Log10(bandwidthMHz*1e6)
}

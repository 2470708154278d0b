package core

import "math"

// MCSResult is the engine's estimate for one MCS index.
type MCSResult struct {
	MCS                    int     `json:"mcs"`
	Modulation             string  `json:"modulation"`
	CodingRate             float64 `json:"codingRate"`
	RangeMeters            float64 `json:"rangeMeters"`
	ThroughputMbps         float64 `json:"throughputMbps"`
	FresnelClearanceMeters float64 `json:"fresnelClearanceMeters"`
	SNRDB                  float64 `json:"snrDB"`

	WithinThroughputRequirement bool `json:"withinThroughputRequirement"`
	WithinClearanceRequirement  bool `json:"withinClearanceRequirement"`
	// WithinTargetRange is true when no target range was requested.
	WithinTargetRange bool `json:"withinTargetRange"`

	LinkSpeedMbps       float64 `json:"linkSpeedMbps"`
	IdealThroughputMbps float64 `json:"idealThroughputMbps"`
	AirtimeMicros       float64 `json:"airtimeMicros"`
	AggregatedFrames    int     `json:"aggregatedFrames"`
	PathLossDB          float64 `json:"pathLossDB"`
	SolverIterations    int     `json:"solverIterations"`
	SolverConverged     bool    `json:"solverConverged"`
}

// EstimationSummary is the complete answer to one Compute call.
type EstimationSummary struct {
	Mode               Mode   `json:"mode"`
	Variant            string `json:"variant"`
	EnvironmentApplied bool   `json:"environmentApplied"`

	FinalMCS         int     `json:"finalMCS"`
	FinalRangeMeters float64 `json:"finalRangeMeters"`
	MaxMCS           int     `json:"maxMCS"`
	MaxRangeMeters   float64 `json:"maxRangeMeters"`

	RequestedThroughputMbps float64 `json:"requestedThroughputMbps"`
	ThroughputDeltaMbps     float64 `json:"throughputDeltaMbps"`

	CurrentAGLMeters  float64 `json:"currentAGLMeters"`
	RequiredAGLMeters float64 `json:"requiredAGLMeters"`
	AGLDeltaMeters    float64 `json:"aglDeltaMeters"`

	TargetRangeMeters float64 `json:"targetRangeMeters,omitempty"`
	RangeDeltaMeters  float64 `json:"rangeDeltaMeters,omitempty"`

	Results []MCSResult `json:"results"`
}

// Final returns the selected operating point.
func (s *EstimationSummary) Final() MCSResult {
	return s.Results[s.FinalMCS-s.Mode.MCSOffset()]
}

// Finite reports whether every numeric field of the summary is a finite
// number. Callers must not present a summary that fails this check.
func (s *EstimationSummary) Finite() bool {
	if s == nil {
		return false
	}
	vals := []float64{
		s.FinalRangeMeters, s.MaxRangeMeters, s.RequestedThroughputMbps,
		s.ThroughputDeltaMbps, s.CurrentAGLMeters, s.RequiredAGLMeters,
		s.AGLDeltaMeters, s.TargetRangeMeters, s.RangeDeltaMeters,
	}
	for _, r := range s.Results {
		vals = append(vals,
			r.CodingRate, r.RangeMeters, r.ThroughputMbps, r.FresnelClearanceMeters,
			r.SNRDB, r.LinkSpeedMbps, r.IdealThroughputMbps, r.AirtimeMicros, r.PathLossDB,
		)
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

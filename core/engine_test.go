package core

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/meshlink-planner/radio"
)

// defaultParams is a 2.4 GHz, 20 MHz dual-antenna link at 10 m AGL asking
// for 3.05 Mbps (50 kbps telemetry plus 3 Mbps video).
func defaultParams() LinkParameters {
	return LinkParameters{
		FrequencyMHz:       2450,
		BandwidthMHz:       20,
		Antennas:           2,
		Streams:            2,
		FadeMarginDB:       10,
		AntennaGainDBi:     6,
		PowerLimitDBm:      33,
		PayloadBytes:       1470,
		AggregationCeiling: 64,
		Variant:            "2L",
		HeightAGLMeters:    10,
		Climate:            ClimateClear,
		TemperatureC:       25,
		PathLossModel:      ModelFreeSpace,
		ClearancePercent:   60,
		Required:           Throughput{TelemetryKbps: 50, VideoMbps: 3},
	}
}

func mustCompute(t *testing.T, p LinkParameters, mode Mode) *EstimationSummary {
	t.Helper()
	s, err := NewEngine(nil).Compute(p, mode)
	if err != nil {
		t.Fatalf("Compute error = %v", err)
	}
	return s
}

func TestComputeDefaultScenario(t *testing.T) {
	s := mustCompute(t, defaultParams(), ModeSingleStream)

	wantRanges := []float64{
		4357.729857656186, 3085.0364822125844, 2450.531582975931, 1946.5264264413722,
		1094.612250163076, 615.545703326294, 435.77298576561867, 274.9541658948797,
	}
	wantThroughput := []float64{
		5.461736693727821, 10.903588611794573, 16.312614519261487, 21.695503106564054,
		32.386169267477214, 42.98287344026892, 48.24680675878093, 53.4812776525135,
	}
	wantFresnel := []float64{
		6.929729020017039, 5.830640330360056, 5.196563664353853, 4.631442240927107,
		3.47309171732897, 2.604451367305509, 2.1913727271020402, 1.740669229941898,
	}

	if len(s.Results) != radio.MCSLevels {
		t.Fatalf("len(Results) = %d, want %d", len(s.Results), radio.MCSLevels)
	}
	for i, r := range s.Results {
		if r.MCS != i {
			t.Fatalf("Results[%d].MCS = %d, want %d", i, r.MCS, i)
		}
		if !approxEqual(r.RangeMeters, wantRanges[i], 1e-6) {
			t.Fatalf("MCS%d range = %v, want %v", i, r.RangeMeters, wantRanges[i])
		}
		if !approxEqual(r.ThroughputMbps, wantThroughput[i], 1e-6) {
			t.Fatalf("MCS%d throughput = %v, want %v", i, r.ThroughputMbps, wantThroughput[i])
		}
		if !approxEqual(r.FresnelClearanceMeters, wantFresnel[i], 1e-6) {
			t.Fatalf("MCS%d clearance = %v, want %v", i, r.FresnelClearanceMeters, wantFresnel[i])
		}
		if r.SolverIterations != 1 || !r.SolverConverged {
			t.Fatalf("MCS%d solver = %d/%v, want 1/true", i, r.SolverIterations, r.SolverConverged)
		}
		if !r.WithinThroughputRequirement || !r.WithinClearanceRequirement || !r.WithinTargetRange {
			t.Fatalf("MCS%d requirement flags = %+v, want all true", i, r)
		}
	}

	if !approxEqual(s.Results[0].SNRDB, 20.971172272769053, 1e-9) {
		t.Fatalf("MCS0 SNR = %v, want 20.97", s.Results[0].SNRDB)
	}
	if s.Results[0].AggregatedFrames != 51 || s.Results[1].AggregatedFrames != 64 {
		t.Fatalf("frames = %d/%d, want 51/64", s.Results[0].AggregatedFrames, s.Results[1].AggregatedFrames)
	}
	if s.Results[0].Modulation != "BPSK" || s.Results[7].CodingRate != 5.0/6 {
		t.Fatalf("MCS labels = %q/%v", s.Results[0].Modulation, s.Results[7].CodingRate)
	}

	if s.FinalMCS != 0 || s.MaxMCS != 0 {
		t.Fatalf("final/max MCS = %d/%d, want 0/0", s.FinalMCS, s.MaxMCS)
	}
	if s.FinalRangeMeters != s.Results[0].RangeMeters || s.MaxRangeMeters != s.Results[0].RangeMeters {
		t.Fatalf("final/max range = %v/%v, want MCS0 range", s.FinalRangeMeters, s.MaxRangeMeters)
	}
	if !approxEqual(s.RequestedThroughputMbps, 3.05, 1e-12) {
		t.Fatalf("RequestedThroughputMbps = %v, want 3.05", s.RequestedThroughputMbps)
	}
	if !approxEqual(s.ThroughputDeltaMbps, wantThroughput[0]-3.05, 1e-6) {
		t.Fatalf("ThroughputDeltaMbps = %v, want %v", s.ThroughputDeltaMbps, wantThroughput[0]-3.05)
	}
	if !approxEqual(s.AGLDeltaMeters, 10-wantFresnel[0], 1e-6) || s.RequiredAGLMeters != s.Results[0].FresnelClearanceMeters {
		t.Fatalf("AGL summary = %v required / %v delta", s.RequiredAGLMeters, s.AGLDeltaMeters)
	}
	if !s.EnvironmentApplied || s.Variant != "2L" || s.Mode != ModeSingleStream {
		t.Fatalf("summary header = %+v", s)
	}
	if !s.Finite() {
		t.Fatalf("Finite() = false for a valid scenario")
	}
	if got := s.Final(); got.MCS != s.FinalMCS {
		t.Fatalf("Final().MCS = %d, want %d", got.MCS, s.FinalMCS)
	}
}

func TestComputeMCS0MatchesLinkBudgetClosedForm(t *testing.T) {
	s := mustCompute(t, defaultParams(), ModeSingleStream)

	// 27 dBm, -87 dBm improved by 3 dB of receive diversity, 10 dB fade
	// margin, 6 dBi gain.
	budget := 27 - (-87 - 10*math.Log10(2)) - 10 + 6
	want := math.Pow(10, budget/20) * 300 / (2450 * 4 * math.Pi)
	if !approxEqual(s.Results[0].RangeMeters, want, 1e-6) {
		t.Fatalf("MCS0 range = %v, want %v", s.Results[0].RangeMeters, want)
	}
}

func TestComputeSelection(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*LinkParameters)
		wantFinal int
	}{
		{name: "low mast", mutate: func(p *LinkParameters) { p.HeightAGLMeters = 5 }, wantFinal: 3},
		{name: "12 Mbps", mutate: func(p *LinkParameters) { p.Required = Throughput{VideoMbps: 12} }, wantFinal: 2},
		{name: "20 Mbps", mutate: func(p *LinkParameters) { p.Required = Throughput{VideoMbps: 20} }, wantFinal: 3},
		{name: "two-ray", mutate: func(p *LinkParameters) { p.PathLossModel = ModelTwoRayGround }, wantFinal: 7},
		{name: "5 MHz channel", mutate: func(p *LinkParameters) { p.BandwidthMHz = 5 }, wantFinal: 2},
		{name: "near ground", mutate: func(p *LinkParameters) { p.NearGround = true }, wantFinal: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := defaultParams()
			tc.mutate(&p)
			s := mustCompute(t, p, ModeSingleStream)
			if s.FinalMCS != tc.wantFinal {
				t.Fatalf("FinalMCS = %d, want %d", s.FinalMCS, tc.wantFinal)
			}
			if s.FinalRangeMeters != s.Results[tc.wantFinal].RangeMeters {
				t.Fatalf("FinalRangeMeters = %v, want %v", s.FinalRangeMeters, s.Results[tc.wantFinal].RangeMeters)
			}
		})
	}
}

func TestSelectOperatingPointUsesPredecessor(t *testing.T) {
	results := []MCSResult{
		{ThroughputMbps: 10, FresnelClearanceMeters: 1},
		{ThroughputMbps: 1, FresnelClearanceMeters: 1},
		{ThroughputMbps: 20, FresnelClearanceMeters: 1},
	}
	// MCS1 itself fails the 5 Mbps requirement, but it is selected-through
	// because only the predecessor's throughput decides index 2.
	if got := SelectOperatingPoint(results, 5, 10); got != 2 {
		t.Fatalf("SelectOperatingPoint = %d, want 2", got)
	}
	if got := SelectOperatingPoint(results, 0.5, 10); got != 0 {
		t.Fatalf("SelectOperatingPoint with a met requirement = %d, want 0", got)
	}
	if got := SelectOperatingPoint(results[:1], 100, 0); got != 0 {
		t.Fatalf("SelectOperatingPoint with one result = %d, want 0", got)
	}
}

func TestComputeNearGround(t *testing.T) {
	p := defaultParams()
	p.NearGround = true
	s := mustCompute(t, p, ModeSingleStream)

	if !approxEqual(s.Results[0].RangeMeters, 127.6558035065522, 1e-6) {
		t.Fatalf("near-ground MCS0 range = %v, want 127.66", s.Results[0].RangeMeters)
	}
	for i, r := range s.Results {
		if r.AggregatedFrames > 2 {
			t.Fatalf("MCS%d aggregated %d frames near ground, want <= 2", i, r.AggregatedFrames)
		}
	}
}

func TestComputeSingleAntennaVariantIsCapped(t *testing.T) {
	p := defaultParams()
	p.Variant = "1L"
	p.PowerLimitDBm = 40
	s := mustCompute(t, p, ModeSingleStream)

	// Limit is capped at 30 dBm, so every MCS transmits at most 27 dBm and
	// no diversity gain applies.
	budget := 26.0 + 86 - 10 + 6
	want := math.Pow(10, budget/20) * 300 / (2450 * 4 * math.Pi)
	if !approxEqual(s.Results[0].RangeMeters, want, 1e-6) {
		t.Fatalf("1L MCS0 range = %v, want %v", s.Results[0].RangeMeters, want)
	}
	if !approxEqual(s.Results[0].RangeMeters, 2447.6274003686426, 1e-6) {
		t.Fatalf("1L MCS0 range = %v, want 2447.63", s.Results[0].RangeMeters)
	}
}

func TestComputePowerLimit(t *testing.T) {
	p := defaultParams()
	p.PowerLimitDBm = 20
	s := mustCompute(t, p, ModeSingleStream)
	if !approxEqual(s.Results[0].RangeMeters, 1378.035177791489, 1e-6) {
		t.Fatalf("MCS0 range with 20 dBm limit = %v, want 1378.04", s.Results[0].RangeMeters)
	}
}

func TestComputeDualStream(t *testing.T) {
	s := mustCompute(t, defaultParams(), ModeDualStream)

	for i, r := range s.Results {
		if r.MCS != i+8 {
			t.Fatalf("Results[%d].MCS = %d, want %d", i, r.MCS, i+8)
		}
	}
	if s.MaxMCS != 8 || s.FinalMCS != 8 {
		t.Fatalf("max/final MCS = %d/%d, want 8/8", s.MaxMCS, s.FinalMCS)
	}
	if !approxEqual(s.Results[0].RangeMeters, 3081.3803329277775, 1e-6) {
		t.Fatalf("MCS8 range = %v, want 3081.38", s.Results[0].RangeMeters)
	}
	if !approxEqual(s.Results[0].ThroughputMbps, 10.89850970390287, 1e-6) {
		t.Fatalf("MCS8 throughput = %v, want 10.90", s.Results[0].ThroughputMbps)
	}
	if got := s.Final(); got.MCS != 8 {
		t.Fatalf("Final().MCS = %d, want 8", got.MCS)
	}
}

func TestComputeRangeMonotonicForContinuousModels(t *testing.T) {
	variants := radio.Default().IDs()
	models := []PathLossModelKind{ModelFreeSpace, ModelTwoRayGround}
	climates := []Climate{ClimateClear, ClimateRain, ClimateFog, ClimateSnow, ClimateHumid}
	bandwidths := []float64{5, 20, 40}

	for _, id := range variants {
		for _, m := range models {
			for _, c := range climates {
				for _, bw := range bandwidths {
					p := defaultParams()
					p.Variant = id
					p.PathLossModel = m
					p.Climate = c
					p.BandwidthMHz = bw
					p.TemperatureC = 35
					s := mustCompute(t, p, ModeSingleStream)

					for i := 1; i < len(s.Results); i++ {
						if s.Results[i].RangeMeters > s.Results[i-1].RangeMeters {
							t.Fatalf("%s/%s/%s/%vMHz: MCS%d range %v > MCS%d range %v", id, m, c, bw,
								i, s.Results[i].RangeMeters, i-1, s.Results[i-1].RangeMeters)
						}
					}
					if !s.Finite() {
						t.Fatalf("%s/%s/%s/%vMHz: summary not finite", id, m, c, bw)
					}
				}
			}
		}
	}
}

func TestComputeUrbanCapsIterations(t *testing.T) {
	p := defaultParams()
	p.PathLossModel = ModelUrban
	s := mustCompute(t, p, ModeSingleStream)

	r := s.Results[0]
	if r.SolverIterations != MaxSolverIterations || r.SolverConverged {
		t.Fatalf("urban MCS0 solver = %d/%v, want %d/false", r.SolverIterations, r.SolverConverged, MaxSolverIterations)
	}
	if !approxEqual(r.RangeMeters, 435.77298576561867, 1e-6) {
		t.Fatalf("urban MCS0 range = %v, want 435.77", r.RangeMeters)
	}
	if !s.Finite() {
		t.Fatalf("urban summary not finite")
	}
}

func TestComputeUrbanRangeNotMonotonic(t *testing.T) {
	// MCS5 starts beyond the 500 m step and is left on the penalised side
	// by the iteration cap. MCS6 starts inside the step and converges at
	// once, so it reports the longer range.
	p := defaultParams()
	p.PathLossModel = ModelUrban
	s := mustCompute(t, p, ModeSingleStream)

	mcs5, mcs6 := s.Results[5], s.Results[6]
	if !approxEqual(mcs5.RangeMeters, 61.55457033262933, 1e-6) {
		t.Fatalf("urban MCS5 range = %v, want 61.55", mcs5.RangeMeters)
	}
	if mcs5.SolverIterations != MaxSolverIterations || mcs5.SolverConverged {
		t.Fatalf("urban MCS5 solver = %d/%v, want %d/false", mcs5.SolverIterations, mcs5.SolverConverged, MaxSolverIterations)
	}
	if !approxEqual(mcs6.RangeMeters, 435.77298576561867, 1e-6) {
		t.Fatalf("urban MCS6 range = %v, want 435.77", mcs6.RangeMeters)
	}
	if mcs6.SolverIterations != 1 || !mcs6.SolverConverged {
		t.Fatalf("urban MCS6 solver = %d/%v, want 1/true", mcs6.SolverIterations, mcs6.SolverConverged)
	}
	if mcs6.RangeMeters <= mcs5.RangeMeters {
		t.Fatalf("urban MCS6 range %v <= MCS5 range %v, want the inversion", mcs6.RangeMeters, mcs5.RangeMeters)
	}
}

func TestComputeTargetRange(t *testing.T) {
	p := defaultParams()
	p.TargetRangeMeters = 1000
	s := mustCompute(t, p, ModeSingleStream)

	for i, r := range s.Results {
		want := i <= 4
		if r.WithinTargetRange != want {
			t.Fatalf("MCS%d WithinTargetRange = %v, want %v", i, r.WithinTargetRange, want)
		}
	}
	if s.TargetRangeMeters != 1000 {
		t.Fatalf("TargetRangeMeters = %v, want 1000", s.TargetRangeMeters)
	}
	if !approxEqual(s.RangeDeltaMeters, 3357.729857656186, 1e-6) {
		t.Fatalf("RangeDeltaMeters = %v, want 3357.73", s.RangeDeltaMeters)
	}
}

func TestComputeErrors(t *testing.T) {
	e := NewEngine(nil)

	p := defaultParams()
	p.Variant = "9X"
	if _, err := e.Compute(p, ModeSingleStream); !errors.Is(err, radio.ErrUnknownVariant) {
		t.Fatalf("Compute(unknown variant) error = %v, want ErrUnknownVariant", err)
	}
	if _, err := e.Compute(defaultParams(), Mode("mcs16_23")); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("Compute(bad mode) error = %v, want ErrInvalidMode", err)
	}
}

func TestComputePropagatesNonFinite(t *testing.T) {
	p := defaultParams()
	p.FrequencyMHz = 0
	s, err := NewEngine(nil).Compute(p, ModeSingleStream)
	if err != nil {
		t.Fatalf("Compute error = %v, want nil", err)
	}
	if s.Finite() {
		t.Fatalf("Finite() = true for a zero-frequency link")
	}
}

func TestEstimateThroughputIgnoresEnvironment(t *testing.T) {
	e := NewEngine(nil)

	harsh := defaultParams()
	harsh.PathLossModel = ModelUrban
	harsh.Climate = ClimateSnow
	harsh.TemperatureC = -30

	got, err := e.EstimateThroughput(harsh, ModeSingleStream)
	if err != nil {
		t.Fatalf("EstimateThroughput error = %v", err)
	}
	want, err := e.EstimateRange(defaultParams(), ModeSingleStream)
	if err != nil {
		t.Fatalf("EstimateRange error = %v", err)
	}

	if got.EnvironmentApplied {
		t.Fatalf("EnvironmentApplied = true for a throughput estimate")
	}
	want.EnvironmentApplied = false
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("EstimateThroughput mismatch (-want +got):\n%s", diff)
	}
	if harsh.PathLossModel != ModelUrban || harsh.Climate != ClimateSnow {
		t.Fatalf("EstimateThroughput mutated caller params: %+v", harsh)
	}
}

func TestEstimateRangeAppliesClimate(t *testing.T) {
	p := defaultParams()
	p.Climate = ClimateRain
	s, err := NewEngine(nil).EstimateRange(p, ModeSingleStream)
	if err != nil {
		t.Fatalf("EstimateRange error = %v", err)
	}
	if !approxEqual(s.Results[0].RangeMeters, 4331.1921209161455, 1e-6) {
		t.Fatalf("rain MCS0 range = %v, want 4331.19", s.Results[0].RangeMeters)
	}
	if s.Results[0].SolverIterations != 3 {
		t.Fatalf("rain MCS0 iterations = %d, want 3", s.Results[0].SolverIterations)
	}
}

func TestComputeIsDeterministicAcrossGoroutines(t *testing.T) {
	e := NewEngine(nil)
	p := defaultParams()
	p.Climate = ClimateSnow
	p.PathLossModel = ModelTwoRayGround

	want, err := e.Compute(p, ModeDualStream)
	if err != nil {
		t.Fatalf("Compute error = %v", err)
	}

	const workers = 16
	got := make([]*EstimationSummary, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := e.Compute(p, ModeDualStream)
			if err != nil {
				t.Errorf("worker %d: Compute error = %v", i, err)
				return
			}
			got[i] = s
		}(i)
	}
	wg.Wait()

	for i, s := range got {
		if diff := cmp.Diff(want, s); diff != "" {
			t.Fatalf("worker %d result differs (-want +got):\n%s", i, diff)
		}
	}
}

func TestComputeCustomCatalog(t *testing.T) {
	v := mustVariant(t, "2L")
	v.ID = "lab"
	cat, err := radio.NewCatalog(v)
	if err != nil {
		t.Fatalf("NewCatalog error = %v", err)
	}
	e := NewEngine(cat)

	p := defaultParams()
	p.Variant = "lab"
	s, err := e.Compute(p, ModeSingleStream)
	if err != nil {
		t.Fatalf("Compute error = %v", err)
	}
	if s.Variant != "lab" {
		t.Fatalf("Variant = %q, want lab", s.Variant)
	}
	if _, err := e.Compute(defaultParams(), ModeSingleStream); !errors.Is(err, radio.ErrUnknownVariant) {
		t.Fatalf("Compute(2L) against custom catalog error = %v, want ErrUnknownVariant", err)
	}
}

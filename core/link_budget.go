package core

import "math"

const (
	// MaxSolverIterations bounds the range/path-loss refinement loop.
	MaxSolverIterations = 5
	// convergenceMeters is the step size below which the solver stops.
	convergenceMeters = 0.1

	// speedOfLightMMHz is c expressed in metres times megahertz, so that
	// 300/f_MHz is the wavelength in metres.
	speedOfLightMMHz = 300.0
)

// SolverInput holds the per-MCS link budget terms, already adjusted for
// power capping and antenna/stream/bandwidth corrections.
type SolverInput struct {
	PowerDBm       float64
	SensitivityDBm float64
	FadeMarginDB   float64
	AntennaGainDBi float64
	// FrequencyCorrection is the ground-proximity exponent correction
	// (see FrequencyCorrection); zero when the link is not near ground.
	FrequencyCorrection float64
	PathLoss            PathLossInput
}

// SolverResult is the solver's best estimate. Converged is false when the
// iteration cap was hit before the step fell under 0.1 m; the range is
// still usable, only less precise.
type SolverResult struct {
	RangeMeters float64
	Iterations  int
	Converged   bool
}

// budgetRange inverts the power budget into a distance. With a zero
// correction and zero excess loss it inverts 20·log10(4π·d·f/300), which
// matches FreeSpaceLoss to within 0.01 dB: the 92.45 dB constant there
// uses the exact speed of light, this uses 300 m·MHz.
func budgetRange(in SolverInput, excessLossDB float64) float64 {
	budget := in.PowerDBm - in.SensitivityDBm - in.FadeMarginDB + in.AntennaGainDBi - excessLossDB
	return math.Pow(10, budget/(20+in.FrequencyCorrection)) *
		speedOfLightMMHz / (in.PathLoss.FrequencyMHz * 4 * math.Pi)
}

// SolveRange finds the distance at which the received signal drops to the
// sensitivity threshold plus fade margin. It starts from the free-space
// estimate and re-applies the environment's excess loss at each new
// distance, stopping after MaxSolverIterations.
func SolveRange(in SolverInput) SolverResult {
	r := budgetRange(in, 0)
	res := SolverResult{RangeMeters: r}

	for i := 0; i < MaxSolverIterations; i++ {
		excess := PathLoss(r, in.PathLoss) - FreeSpaceLoss(r, in.PathLoss.FrequencyMHz)
		next := budgetRange(in, excess)
		res.Iterations = i + 1
		step := math.Abs(next - r)
		r = next
		if step < convergenceMeters {
			res.Converged = true
			break
		}
	}

	res.RangeMeters = r
	return res
}

// FrequencyCorrection returns the empirical path-loss exponent correction
// for antennas mounted close to the ground, as a cubic in f_GHz fitted over
// 0.4-6 GHz. It never goes negative.
func FrequencyCorrection(frequencyMHz float64) float64 {
	f := frequencyMHz / 1000
	c := 2.0 + 3.2*f - 0.45*f*f + 0.021*f*f*f
	return math.Max(c, 0)
}

// EffectiveSensitivity applies the receive diversity and channel width
// corrections to a datasheet sensitivity.
func EffectiveSensitivity(sensitivityDBm float64, antennas, streams int, bandwidthMHz float64) float64 {
	return sensitivityDBm -
		10*math.Log10(float64(antennas)/float64(streams)) -
		10*math.Log10(20/bandwidthMHz)
}

// EffectivePower caps the datasheet power 3 dB below the configured limit.
func EffectivePower(catalogPowerDBm, powerLimitDBm float64) float64 {
	return math.Min(catalogPowerDBm, powerLimitDBm-3)
}

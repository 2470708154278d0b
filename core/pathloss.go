package core

import "math"

const (
	// fsplConstantDB is the free-space path loss constant for distance in
	// kilometres and frequency in GHz.
	fsplConstantDB = 92.45

	twoRayExcessDB         = 10.0
	urbanPenaltyDB         = 20.0
	urbanPenaltyDistanceM  = 500.0
	minAntennaHeightMeters = 1.0

	// neutralTemperatureC is the reference point of the humidity term.
	neutralTemperatureC = 25.0
)

// PathLossInput bundles the environment that PathLoss needs besides distance.
type PathLossInput struct {
	FrequencyMHz float64
	Model        PathLossModelKind
	Climate      Climate
	TemperatureC float64
	HeightMeters float64
}

// FreeSpaceLoss returns the free-space path loss in dB:
// 92.45 + 20 log10(d_km) + 20 log10(f_GHz).
func FreeSpaceLoss(distanceMeters, frequencyMHz float64) float64 {
	dKm := distanceMeters / 1000
	fGHz := frequencyMHz / 1000
	return 20*math.Log10(dKm) + 20*math.Log10(fGHz) + fsplConstantDB
}

// PathLoss returns the propagation loss in dB for the selected terrain
// model, plus climate attenuation and temperature derating. It is pure and
// cheap; callers evaluate it again whenever the distance changes.
func PathLoss(distanceMeters float64, in PathLossInput) float64 {
	base := FreeSpaceLoss(distanceMeters, in.FrequencyMHz)

	switch in.Model {
	case ModelTwoRayGround:
		// Both ends are assumed to sit at the same height above ground.
		h := math.Max(in.HeightMeters, minAntennaHeightMeters)
		base = base - 20*math.Log10(h*h) + twoRayExcessDB
	case ModelUrban:
		if distanceMeters >= urbanPenaltyDistanceM {
			base += urbanPenaltyDB
		}
	}

	return base +
		ClimateAttenuation(distanceMeters, in.FrequencyMHz, in.Climate, in.TemperatureC) +
		TemperatureDerating(in.TemperatureC)
}

// ClimateAttenuation returns the weather-dependent excess loss in dB over
// the given distance.
func ClimateAttenuation(distanceMeters, frequencyMHz float64, climate Climate, temperatureC float64) float64 {
	dKm := distanceMeters / 1000
	f := frequencyMHz / 1000

	switch climate {
	case ClimateRain:
		if f > 5 {
			return 0.01 * math.Pow(f, 1.6) * dKm
		}
		return 0.005 * f * dKm
	case ClimateFog:
		return 0.0001 * f * f * dKm
	case ClimateSnow:
		return 0.02 * math.Pow(f, 1.6) * dKm
	case ClimateHumid:
		return 0.0003 * f * f * math.Abs(temperatureC-neutralTemperatureC) / 10 * dKm
	default:
		return 0
	}
}

// TemperatureDerating returns the extra loss in dB for operating outside
// the 0-40 °C band.
func TemperatureDerating(temperatureC float64) float64 {
	switch {
	case temperatureC < 0:
		return 0.05 * math.Abs(temperatureC)
	case temperatureC > 40:
		return 0.1 * (temperatureC - 40)
	default:
		return 0
	}
}

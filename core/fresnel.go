package core

import "math"

// FresnelClearance returns the radius in metres that must be kept clear at
// the midpoint of a link of rangeMeters, as percent of the first Fresnel
// zone. 8.66 sqrt(d_km/f_GHz) is the full first-zone midpoint radius.
func FresnelClearance(rangeMeters, frequencyMHz, percent float64) float64 {
	return 8.66 * math.Sqrt(rangeMeters/frequencyMHz) * percent / 100
}

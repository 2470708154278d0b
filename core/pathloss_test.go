package core

import (
	"math"
	"testing"
)

const eps = 1e-9

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestFreeSpaceLossKnownValue(t *testing.T) {
	got := FreeSpaceLoss(1000, 2450)
	if !approxEqual(got, 100.23332168729065, 1e-9) {
		t.Fatalf("FreeSpaceLoss(1 km, 2450 MHz) = %v, want 100.2333", got)
	}

	// Doubling distance adds 20 log10(2) ~ 6.02 dB.
	if diff := FreeSpaceLoss(2000, 2450) - got; !approxEqual(diff, 20*math.Log10(2), eps) {
		t.Fatalf("doubling distance added %v dB, want 6.02", diff)
	}
}

func TestPathLossClearSkyNeutralTemperatureIsBaseModel(t *testing.T) {
	d, f, h := 1500.0, 2450.0, 12.0
	free := FreeSpaceLoss(d, f)

	tests := []struct {
		model PathLossModelKind
		want  float64
	}{
		{model: ModelFreeSpace, want: free},
		{model: ModelTwoRayGround, want: free - 20*math.Log10(h*h) + 10},
		{model: ModelUrban, want: free + 20},
	}

	for _, tc := range tests {
		got := PathLoss(d, PathLossInput{
			FrequencyMHz: f,
			Model:        tc.model,
			Climate:      ClimateClear,
			TemperatureC: 25,
			HeightMeters: h,
		})
		if !approxEqual(got, tc.want, eps) {
			t.Fatalf("PathLoss(%s, clear, 25C) = %v, want %v", tc.model, got, tc.want)
		}
	}
}

func TestPathLossUrbanPenaltyThreshold(t *testing.T) {
	in := PathLossInput{FrequencyMHz: 2450, Model: ModelUrban, Climate: ClimateClear, TemperatureC: 20}

	if got, want := PathLoss(499, in), FreeSpaceLoss(499, 2450); !approxEqual(got, want, eps) {
		t.Fatalf("urban loss at 499 m = %v, want free-space %v", got, want)
	}
	if got, want := PathLoss(500, in), FreeSpaceLoss(500, 2450)+20; !approxEqual(got, want, eps) {
		t.Fatalf("urban loss at 500 m = %v, want free-space + 20 = %v", got, want)
	}
}

func TestPathLossTwoRayFloorsHeight(t *testing.T) {
	in := PathLossInput{FrequencyMHz: 2450, Model: ModelTwoRayGround, Climate: ClimateClear, TemperatureC: 25}

	got := PathLoss(1000, in)
	want := FreeSpaceLoss(1000, 2450) + 10
	if !approxEqual(got, want, eps) {
		t.Fatalf("two-ray loss at zero height = %v, want %v", got, want)
	}
	if math.IsInf(got, 0) || math.IsNaN(got) {
		t.Fatalf("two-ray loss at zero height is not finite: %v", got)
	}

	in.HeightMeters = 10
	if got, want := PathLoss(1000, in), FreeSpaceLoss(1000, 2450)-30; !approxEqual(got, want, eps) {
		t.Fatalf("two-ray loss at 10 m = %v, want %v", got, want)
	}
}

func TestClimateAttenuation(t *testing.T) {
	tests := []struct {
		name    string
		f       float64
		climate Climate
		temp    float64
		want    float64
	}{
		{name: "clear", f: 2450, climate: ClimateClear, temp: 25, want: 0},
		{name: "rain below 5 GHz", f: 2450, climate: ClimateRain, temp: 25, want: 0.0245},
		{name: "rain above 5 GHz", f: 5800, climate: ClimateRain, temp: 25, want: 0.333054100796159},
		{name: "fog", f: 2450, climate: ClimateFog, temp: 25, want: 0.0012005},
		{name: "snow", f: 2450, climate: ClimateSnow, temp: 25, want: 0.16777441234564522},
		{name: "humid warm", f: 2450, climate: ClimateHumid, temp: 35, want: 0.0036015},
		{name: "humid neutral", f: 2450, climate: ClimateHumid, temp: 25, want: 0},
		{name: "unknown", f: 2450, climate: Climate("hail"), temp: 25, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClimateAttenuation(2000, tc.f, tc.climate, tc.temp)
			if !approxEqual(got, tc.want, 1e-12) {
				t.Fatalf("ClimateAttenuation(2 km, %v MHz, %s, %v) = %v, want %v", tc.f, tc.climate, tc.temp, got, tc.want)
			}
		})
	}
}

func TestTemperatureDerating(t *testing.T) {
	tests := []struct {
		temp float64
		want float64
	}{
		{temp: -10, want: 0.5},
		{temp: 0, want: 0},
		{temp: 25, want: 0},
		{temp: 40, want: 0},
		{temp: 50, want: 1},
	}
	for _, tc := range tests {
		if got := TemperatureDerating(tc.temp); !approxEqual(got, tc.want, eps) {
			t.Fatalf("TemperatureDerating(%v) = %v, want %v", tc.temp, got, tc.want)
		}
	}
}

func TestPathLossAddsClimateAndTemperature(t *testing.T) {
	in := PathLossInput{FrequencyMHz: 2450, Model: ModelFreeSpace, Climate: ClimateFog, TemperatureC: -10}
	got := PathLoss(2000, in)
	want := FreeSpaceLoss(2000, 2450) + 0.0012005 + 0.5
	if !approxEqual(got, want, 1e-12) {
		t.Fatalf("PathLoss(fog, -10C) = %v, want %v", got, want)
	}
}

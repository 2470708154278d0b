package core

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/signalsfoundry/meshlink-planner/radio"
)

var (
	ErrInvalidParameter = errors.New("invalid link parameter")
	ErrInvalidMode      = errors.New("invalid estimation mode")
)

// PathLossModelKind selects the terrain model used by PathLoss.
type PathLossModelKind string

const (
	ModelFreeSpace    PathLossModelKind = "free"
	ModelTwoRayGround PathLossModelKind = "two-ray"
	ModelUrban        PathLossModelKind = "urban"
)

// ParsePathLossModel accepts the canonical names plus a few aliases used by
// older dashboards ("free-space", "tworay", ...).
func ParsePathLossModel(s string) (PathLossModelKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "free", "free-space", "freespace", "fspl":
		return ModelFreeSpace, nil
	case "two-ray", "tworay", "two-ray-ground", "2ray":
		return ModelTwoRayGround, nil
	case "urban":
		return ModelUrban, nil
	default:
		return "", fmt.Errorf("%w: unknown path loss model %q", ErrInvalidParameter, s)
	}
}

// Climate selects the weather attenuation term added to the base path loss.
type Climate string

const (
	ClimateClear Climate = "clear"
	ClimateRain  Climate = "rain"
	ClimateFog   Climate = "fog"
	ClimateSnow  Climate = "snow"
	ClimateHumid Climate = "humid"
)

// ParseClimate maps a user-supplied climate name onto a Climate.
func ParseClimate(s string) (Climate, error) {
	switch c := Climate(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return ClimateClear, nil
	case ClimateClear, ClimateRain, ClimateFog, ClimateSnow, ClimateHumid:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown climate %q", ErrInvalidParameter, s)
	}
}

// Mode selects which MCS table the engine evaluates.
type Mode string

const (
	// ModeSingleStream evaluates MCS 0-7 with one spatial stream.
	ModeSingleStream Mode = "mcs0_7"
	// ModeDualStream evaluates MCS 8-15 with the configured streams.
	ModeDualStream Mode = "mcs8_15"
)

// ParseMode validates a mode string. Empty selects ModeSingleStream.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeSingleStream, nil
	case ModeSingleStream, ModeDualStream:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// MCSOffset returns the index offset of the first MCS in the mode's table.
func (m Mode) MCSOffset() int {
	if m == ModeDualStream {
		return radio.MCSLevels
	}
	return 0
}

// Bandwidths lists the channel widths (MHz) the radios can be configured to.
var Bandwidths = []float64{3, 5, 10, 15, 20, 26, 40}

const (
	DefaultClearancePercent   = 60.0
	DefaultPayloadBytes       = 1470
	DefaultAggregationCeiling = 64

	singleAntennaPowerCapDBm = 30.0
	multiAntennaPowerCapDBm  = 33.0
)

// Throughput is the traffic a link must carry.
type Throughput struct {
	TelemetryKbps float64 `json:"telemetryKbps"`
	VideoMbps     float64 `json:"videoMbps"`
	OtherMbps     float64 `json:"otherMbps,omitempty"`
}

// TotalMbps returns the summed requirement in Mbps.
func (t Throughput) TotalMbps() float64 {
	return t.TelemetryKbps/1000 + t.VideoMbps + t.OtherMbps
}

// LinkParameters is the per-request input to the engine. It is a value type;
// the engine never mutates the caller's copy.
type LinkParameters struct {
	FrequencyMHz       float64 `json:"frequencyMHz"`
	BandwidthMHz       float64 `json:"bandwidthMHz"`
	Antennas           int     `json:"antennas"`
	Streams            int     `json:"streams"`
	FadeMarginDB       float64 `json:"fadeMarginDB"`
	AntennaGainDBi     float64 `json:"antennaGainDBi"`
	// PowerLimitDBm is the regulatory power limit. Zero means unset and
	// falls back to the hardware cap (30 dBm single-antenna, 33 dBm
	// otherwise), so a literal 0 dBm limit cannot be expressed.
	PowerLimitDBm      float64 `json:"powerLimitDBm"`
	PayloadBytes       int     `json:"payloadBytes"`
	AggregationCeiling int     `json:"aggregationCeiling"`
	Variant            string  `json:"variant"`

	NearGround      bool              `json:"nearGround"`
	HeightAGLMeters float64           `json:"heightAGLMeters"`
	Climate         Climate           `json:"climate"`
	TemperatureC    float64           `json:"temperatureC"`
	PathLossModel   PathLossModelKind `json:"pathLossModel"`

	ClearancePercent  float64    `json:"clearancePercent"`
	Required          Throughput `json:"required"`
	TargetRangeMeters float64    `json:"targetRangeMeters,omitempty"`
}

// Normalize returns a copy of p with defaults filled in and the hardware
// limits of v applied.
func (p LinkParameters) Normalize(v radio.RadioVariant) LinkParameters {
	out := p
	out.Variant = v.ID

	powerCap := multiAntennaPowerCapDBm
	if v.SingleAntenna {
		powerCap = singleAntennaPowerCapDBm
		out.Antennas = 1
		out.Streams = 1
	} else {
		if out.Antennas < 2 {
			out.Antennas = 2
		}
		if out.Streams <= 0 {
			out.Streams = 2
		}
		if out.Streams > out.Antennas {
			out.Streams = out.Antennas
		}
	}
	// A zero limit means "not set" and falls back to the hardware cap.
	if out.PowerLimitDBm == 0 {
		out.PowerLimitDBm = powerCap
	}
	out.PowerLimitDBm = math.Min(out.PowerLimitDBm, powerCap)

	if out.ClearancePercent == 0 {
		out.ClearancePercent = DefaultClearancePercent
	}
	if out.PayloadBytes == 0 {
		out.PayloadBytes = DefaultPayloadBytes
	}
	if out.AggregationCeiling == 0 {
		out.AggregationCeiling = DefaultAggregationCeiling
	}
	if out.PathLossModel == "" {
		out.PathLossModel = ModelFreeSpace
	}
	if out.Climate == "" {
		out.Climate = ClimateClear
	}
	return out
}

// Validate reports the first structural problem with p. The engine does not
// call it; callers run it at their boundary so that NaN/Inf results only
// come from inputs that slipped past them.
func Validate(p LinkParameters) error {
	if !(p.FrequencyMHz > 0) || math.IsInf(p.FrequencyMHz, 0) {
		return fmt.Errorf("%w: frequency must be positive, got %v", ErrInvalidParameter, p.FrequencyMHz)
	}
	if !validBandwidth(p.BandwidthMHz) {
		return fmt.Errorf("%w: bandwidth %v MHz not in %v", ErrInvalidParameter, p.BandwidthMHz, Bandwidths)
	}
	if p.Antennas < 0 || p.Antennas > 2 {
		return fmt.Errorf("%w: antennas must be 1 or 2, got %d", ErrInvalidParameter, p.Antennas)
	}
	if p.Streams < 0 || p.Streams > 2 {
		return fmt.Errorf("%w: streams must be 1 or 2, got %d", ErrInvalidParameter, p.Streams)
	}
	if p.Antennas > 0 && p.Streams > p.Antennas {
		return fmt.Errorf("%w: streams (%d) exceed antennas (%d)", ErrInvalidParameter, p.Streams, p.Antennas)
	}
	if p.FadeMarginDB < 0 {
		return fmt.Errorf("%w: fade margin must be >= 0, got %v", ErrInvalidParameter, p.FadeMarginDB)
	}
	if p.AntennaGainDBi < 0 {
		return fmt.Errorf("%w: antenna gain must be >= 0, got %v", ErrInvalidParameter, p.AntennaGainDBi)
	}
	if p.PayloadBytes < 0 || p.PayloadBytes > 1500 {
		return fmt.Errorf("%w: payload must be within [0,1500] bytes, got %d", ErrInvalidParameter, p.PayloadBytes)
	}
	if p.AggregationCeiling < 0 {
		return fmt.Errorf("%w: aggregation ceiling must be >= 0, got %d", ErrInvalidParameter, p.AggregationCeiling)
	}
	if p.HeightAGLMeters < 0 {
		return fmt.Errorf("%w: height above ground must be >= 0, got %v", ErrInvalidParameter, p.HeightAGLMeters)
	}
	if p.ClearancePercent < 0 || p.ClearancePercent > 100 {
		return fmt.Errorf("%w: clearance percent must be within [0,100], got %v", ErrInvalidParameter, p.ClearancePercent)
	}
	if p.Required.TelemetryKbps < 0 || p.Required.VideoMbps < 0 || p.Required.OtherMbps < 0 {
		return fmt.Errorf("%w: required throughput must be >= 0", ErrInvalidParameter)
	}
	if p.TargetRangeMeters < 0 {
		return fmt.Errorf("%w: target range must be >= 0, got %v", ErrInvalidParameter, p.TargetRangeMeters)
	}
	if _, err := ParseClimate(string(p.Climate)); err != nil {
		return err
	}
	if _, err := ParsePathLossModel(string(p.PathLossModel)); err != nil {
		return err
	}
	return nil
}

func validBandwidth(bw float64) bool {
	for _, b := range Bandwidths {
		if bw == b {
			return true
		}
	}
	return false
}

package core

import "math"

// 802.11n timing and framing constants. Times are microseconds, sizes bytes.
const (
	txopLimitMicros     = 100000.0
	mpduDelimiterMicros = 0.0
	aifsSlots           = 8
	cwSlots             = 15
	phyHeader11nMicros  = 40.0
	ltfMicros           = 4.0
	sifsMicros          = 10.0
	blockAckBytes       = 32.0

	// packetSuccessRatio scales the theoretical maximum to what links
	// deliver in the field.
	packetSuccessRatio = 0.9

	// nearGroundAggregation caps A-MPDU length for links near the ground.
	nearGroundAggregation = 2
)

// Per-frame header overhead carried over the air for every UDP payload.
const (
	ipv4HeaderBytes   = 20
	eth2HeaderBytes   = 14
	batAdvHeaderBytes = 10
	llcHeaderBytes    = 8
	wifiHeaderBytes   = 42
	phyTrailerBytes   = 4

	FrameOverheadBytes = ipv4HeaderBytes + eth2HeaderBytes + batAdvHeaderBytes +
		llcHeaderBytes + wifiHeaderBytes + phyTrailerBytes
)

// ThroughputInput describes the MAC/PHY configuration for one MCS.
type ThroughputInput struct {
	BitsPerSymbol      int
	CodingRate         float64
	Streams            int
	BandwidthMHz       float64
	PayloadBytes       int
	AggregationCeiling int
}

// ThroughputResult breaks an aggregated exchange down into its airtime
// components. Throughputs are Mbps (bits per microsecond).
type ThroughputResult struct {
	LinkSpeedMbps  float64
	BasicSpeedMbps float64
	Frames         int

	PhyMicros      float64
	OverheadMicros float64
	BlockAckMicros float64
	TransitMicros  float64
	TotalMicros    float64

	IdealMbps      float64
	MaxMbps        float64
	ThroughputMbps float64
}

// LinkSpeed returns the PHY data rate in Mbps.
func LinkSpeed(bitsPerSymbol int, codingRate float64, streams int, bandwidthMHz float64) float64 {
	giRate := 13.0
	if bandwidthMHz == 40 {
		giRate = 14.4
	}
	return float64(bitsPerSymbol) * codingRate * float64(streams) * giRate * bandwidthMHz / 20
}

// EstimateThroughput converts a link speed into end-to-end UDP throughput
// for one TXOP carrying an A-MPDU, its Block-ACK and the propagation delay
// over rangeMeters.
func EstimateThroughput(in ThroughputInput, rangeMeters float64) ThroughputResult {
	var res ThroughputResult

	scale := in.BandwidthMHz / 20
	res.LinkSpeedMbps = LinkSpeed(in.BitsPerSymbol, in.CodingRate, in.Streams, in.BandwidthMHz)
	res.BasicSpeedMbps = 12 * scale * float64(in.BitsPerSymbol) * math.Min(in.CodingRate, 0.75)

	// The A-MPDU window counts on-air frame bytes: payload plus header.
	frameBits := float64(in.PayloadBytes+FrameOverheadBytes) * 8
	fit := math.Floor(txopLimitMicros / (frameBits / res.LinkSpeedMbps))
	res.Frames = int(math.Max(1, math.Min(float64(in.AggregationCeiling), fit)))

	ampduBits := frameBits * float64(res.Frames)
	res.PhyMicros = float64(in.AggregationCeiling-1)*mpduDelimiterMicros + ceil4(ampduBits/res.LinkSpeedMbps)

	preamble := phyHeader11nMicros + float64(in.Streams)*ltfMicros
	res.OverheadMicros = (aifsSlots+cwSlots)*SlotTime(in.BandwidthMHz) + preamble/scale
	res.BlockAckMicros = sifsMicros + preamble + math.Ceil(blockAckBytes*8/(res.BasicSpeedMbps*scale))
	res.TransitMicros = TransitDelay(rangeMeters)
	res.TotalMicros = res.PhyMicros + res.OverheadMicros + res.BlockAckMicros + res.TransitMicros

	payloadBits := float64(res.Frames) * float64(in.PayloadBytes) * 8
	res.IdealMbps = payloadBits / (res.PhyMicros + res.OverheadMicros + res.BlockAckMicros)
	res.MaxMbps = payloadBits / res.TotalMicros
	res.ThroughputMbps = res.MaxMbps * packetSuccessRatio
	return res
}

// SlotTime returns the slot duration in microseconds for a channel width;
// 9 µs at 20 MHz and wider, longer for narrow channels.
func SlotTime(bandwidthMHz float64) float64 {
	return 4 + math.Ceil(17*5/math.Min(bandwidthMHz, 20))
}

// TransitDelay returns the propagation allowance for rangeMeters in
// microseconds, rounded to the nanosecond.
func TransitDelay(rangeMeters float64) float64 {
	return math.Round(1000*4*rangeMeters/speedOfLightMMHz) / 1000
}

func ceil4(x float64) float64 {
	return 4 * math.Ceil(x/4)
}

package core

import "testing"

func TestLinkSpeed(t *testing.T) {
	tests := []struct {
		name string
		bps  int
		rate float64
		st   int
		bw   float64
		want float64
	}{
		{name: "mcs0 20MHz", bps: 1, rate: 0.5, st: 1, bw: 20, want: 6.5},
		{name: "mcs7 20MHz", bps: 6, rate: 5.0 / 6, st: 1, bw: 20, want: 65},
		{name: "mcs15 20MHz", bps: 6, rate: 5.0 / 6, st: 2, bw: 20, want: 130},
		{name: "mcs0 40MHz", bps: 1, rate: 0.5, st: 1, bw: 40, want: 14.4},
		{name: "mcs0 5MHz", bps: 1, rate: 0.5, st: 1, bw: 5, want: 1.625},
	}
	for _, tc := range tests {
		if got := LinkSpeed(tc.bps, tc.rate, tc.st, tc.bw); !approxEqual(got, tc.want, 1e-9) {
			t.Fatalf("%s: LinkSpeed = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSlotTimeAndTransitDelay(t *testing.T) {
	slots := map[float64]float64{40: 9, 20: 9, 15: 10, 10: 13, 5: 21, 3: 33}
	for bw, want := range slots {
		if got := SlotTime(bw); got != want {
			t.Fatalf("SlotTime(%v) = %v, want %v", bw, got, want)
		}
	}

	if got := TransitDelay(300); got != 4 {
		t.Fatalf("TransitDelay(300) = %v, want 4", got)
	}
	if got := TransitDelay(0); got != 0 {
		t.Fatalf("TransitDelay(0) = %v, want 0", got)
	}
	if got := TransitDelay(4357.729857656186); !approxEqual(got, 58.103, 1e-9) {
		t.Fatalf("TransitDelay(4357.73) = %v, want 58.103", got)
	}
}

func TestEstimateThroughputFullWindow(t *testing.T) {
	res := EstimateThroughput(ThroughputInput{
		BitsPerSymbol:      1,
		CodingRate:         0.5,
		Streams:            1,
		BandwidthMHz:       20,
		PayloadBytes:       1470,
		AggregationCeiling: 64,
	}, 4357.729857656186)

	if res.Frames != 51 {
		t.Fatalf("Frames = %d, want 51 (TXOP limited)", res.Frames)
	}
	if res.PhyMicros != 98424 {
		t.Fatalf("PhyMicros = %v, want 98424", res.PhyMicros)
	}
	if res.OverheadMicros != 251 {
		t.Fatalf("OverheadMicros = %v, want 251", res.OverheadMicros)
	}
	if res.BlockAckMicros != 97 {
		t.Fatalf("BlockAckMicros = %v, want 97", res.BlockAckMicros)
	}
	if !approxEqual(res.TotalMicros, 98830.103, 1e-6) {
		t.Fatalf("TotalMicros = %v, want 98830.103", res.TotalMicros)
	}
	if !approxEqual(res.ThroughputMbps, 5.461736693727821, 1e-9) {
		t.Fatalf("ThroughputMbps = %v, want 5.4617", res.ThroughputMbps)
	}
	if !approxEqual(res.ThroughputMbps, res.MaxMbps*0.9, 1e-12) {
		t.Fatalf("ThroughputMbps = %v, want 0.9 x MaxMbps (%v)", res.ThroughputMbps, res.MaxMbps)
	}
	if res.IdealMbps <= res.MaxMbps {
		t.Fatalf("IdealMbps = %v, want > MaxMbps %v", res.IdealMbps, res.MaxMbps)
	}
}

func TestEstimateThroughputAggregationCeiling(t *testing.T) {
	res := EstimateThroughput(ThroughputInput{
		BitsPerSymbol:      6,
		CodingRate:         5.0 / 6,
		Streams:            1,
		BandwidthMHz:       20,
		PayloadBytes:       1470,
		AggregationCeiling: 2,
	}, 100)

	if res.Frames != 2 {
		t.Fatalf("Frames = %d, want 2", res.Frames)
	}
	if res.PhyMicros != 388 || res.BlockAckMicros != 59 {
		t.Fatalf("PhyMicros/BlockAckMicros = %v/%v, want 388/59", res.PhyMicros, res.BlockAckMicros)
	}
	if !approxEqual(res.TotalMicros, 699.333, 1e-9) {
		t.Fatalf("TotalMicros = %v, want 699.333", res.TotalMicros)
	}
	if !approxEqual(res.ThroughputMbps, 30.268841882193463, 1e-9) {
		t.Fatalf("ThroughputMbps = %v, want 30.2688", res.ThroughputMbps)
	}
}

func TestEstimateThroughputAtLeastOneFrame(t *testing.T) {
	res := EstimateThroughput(ThroughputInput{
		BitsPerSymbol: 1,
		CodingRate:    0.5,
		Streams:       1,
		BandwidthMHz:  20,
		PayloadBytes:  1470,
	}, 0)

	if res.Frames != 1 {
		t.Fatalf("Frames = %d, want 1 when the aggregation ceiling is zero", res.Frames)
	}
	if res.PhyMicros != 1932 || res.TotalMicros != 2280 {
		t.Fatalf("PhyMicros/TotalMicros = %v/%v, want 1932/2280", res.PhyMicros, res.TotalMicros)
	}
	if !approxEqual(res.ThroughputMbps, 4.6421052631578945, 1e-12) {
		t.Fatalf("ThroughputMbps = %v, want 4.6421", res.ThroughputMbps)
	}
}

func TestEstimateThroughputDecreasesWithRange(t *testing.T) {
	in := ThroughputInput{BitsPerSymbol: 4, CodingRate: 0.75, Streams: 1, BandwidthMHz: 20, PayloadBytes: 1470, AggregationCeiling: 64}
	near := EstimateThroughput(in, 10)
	far := EstimateThroughput(in, 50000)
	if far.ThroughputMbps >= near.ThroughputMbps {
		t.Fatalf("throughput at 50 km = %v, want < %v at 10 m", far.ThroughputMbps, near.ThroughputMbps)
	}
	if far.Frames != near.Frames {
		t.Fatalf("frame count changed with range: %d vs %d", far.Frames, near.Frames)
	}
}

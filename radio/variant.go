package radio

// MCSLevels is the number of MCS entries per spatial-stream group. Index i
// covers MCS i for single-stream operation and MCS i+8 for dual-stream.
const MCSLevels = 8

// RadioVariant describes the RF characteristics of one hardware SKU. The
// per-MCS tables encode datasheet values; callers that need to adjust them
// (power capping, sensitivity correction) work on a Clone.
type RadioVariant struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// SingleAntenna marks SKUs with one RF chain. The engine forces one
	// antenna and one stream for them and caps the power limit lower.
	SingleAntenna bool `json:"singleAntenna"`

	Power         [MCSLevels]float64 `json:"power"`       // dBm
	Sensitivity   [MCSLevels]float64 `json:"sensitivity"` // dBm
	Modulation    [MCSLevels]string  `json:"modulation"`
	CodingRate    [MCSLevels]float64 `json:"codingRate"`
	BitsPerSymbol [MCSLevels]int     `json:"bitsPerSymbol"`
}

// Clone returns an independent copy of the variant. The tables are arrays,
// so a value copy is already deep.
func (v RadioVariant) Clone() RadioVariant {
	return v
}

// LinkBudget returns power minus sensitivity for the given MCS index, in dB.
func (v RadioVariant) LinkBudget(mcs int) float64 {
	return v.Power[mcs] - v.Sensitivity[mcs]
}

// 802.11n single-stream modulation ladder shared by every built-in SKU.
var (
	ht20Modulation    = [MCSLevels]string{"BPSK", "QPSK", "QPSK", "16-QAM", "16-QAM", "64-QAM", "64-QAM", "64-QAM"}
	ht20CodingRate    = [MCSLevels]float64{1.0 / 2, 1.0 / 2, 3.0 / 4, 1.0 / 2, 3.0 / 4, 2.0 / 3, 3.0 / 4, 5.0 / 6}
	ht20BitsPerSymbol = [MCSLevels]int{1, 2, 2, 4, 4, 6, 6, 6}
)

func builtinVariants() []RadioVariant {
	return []RadioVariant{
		{
			ID:            "1L",
			Name:          "Single-antenna mesh radio",
			SingleAntenna: true,
			Power:         [MCSLevels]float64{26, 26, 25, 25, 24, 23, 22, 20},
			Sensitivity:   [MCSLevels]float64{-86, -84, -82, -80, -76, -72, -70, -68},
			Modulation:    ht20Modulation,
			CodingRate:    ht20CodingRate,
			BitsPerSymbol: ht20BitsPerSymbol,
		},
		{
			ID:            "2L",
			Name:          "Dual-antenna mesh radio",
			Power:         [MCSLevels]float64{27, 26, 26, 26, 25, 24, 23, 21},
			Sensitivity:   [MCSLevels]float64{-87, -85, -83, -81, -77, -73, -71, -69},
			Modulation:    ht20Modulation,
			CodingRate:    ht20CodingRate,
			BitsPerSymbol: ht20BitsPerSymbol,
		},
		{
			ID:            "2KO",
			Name:          "Dual-antenna long-range radio, outdoor enclosure",
			Power:         [MCSLevels]float64{30, 30, 29, 29, 28, 27, 26, 25},
			Sensitivity:   [MCSLevels]float64{-91, -89, -87, -84, -81, -77, -75, -73},
			Modulation:    ht20Modulation,
			CodingRate:    ht20CodingRate,
			BitsPerSymbol: ht20BitsPerSymbol,
		},
		{
			ID:            "2KW",
			Name:          "Dual-antenna long-range radio, wearable",
			Power:         [MCSLevels]float64{29, 29, 28, 28, 27, 26, 25, 24},
			Sensitivity:   [MCSLevels]float64{-90, -88, -86, -83, -80, -76, -74, -72},
			Modulation:    ht20Modulation,
			CodingRate:    ht20CodingRate,
			BitsPerSymbol: ht20BitsPerSymbol,
		},
	}
}

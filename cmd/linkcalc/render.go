package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/signalsfoundry/meshlink-planner/core"
	"github.com/signalsfoundry/meshlink-planner/radio"
)

var (
	colorAccent = lipgloss.Color("#00CC33")
	colorMax    = lipgloss.Color("#FFCC00")
	colorDim    = lipgloss.Color("#808080")
	colorBorder = lipgloss.Color("#00AA22")
)

var summaryHeaders = []string{"MCS", "Modulation", "Rate", "Range (m)", "Throughput (Mbps)", "Fresnel (m)", "SNR (dB)", "Meets"}

// renderSummary writes the per-MCS table followed by the operating point
// and deltas. The selected row is highlighted and the maximum-range row is
// drawn in gold.
func renderSummary(w io.Writer, s *core.EstimationSummary) {
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Bold(true).Foreground(colorAccent)
	label := r.NewStyle().Foreground(colorDim)
	header := r.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	final := cell.Bold(true).Foreground(colorAccent)
	maxRow := cell.Foreground(colorMax)

	rows := make([][]string, 0, len(s.Results))
	for _, res := range s.Results {
		rows = append(rows, []string{
			strconv.Itoa(res.MCS),
			res.Modulation,
			formatRate(res.CodingRate),
			fmt.Sprintf("%.1f", res.RangeMeters),
			fmt.Sprintf("%.2f", res.ThroughputMbps),
			fmt.Sprintf("%.2f", res.FresnelClearanceMeters),
			fmt.Sprintf("%.1f", res.SNRDB),
			meets(res),
		})
	}

	offset := s.Mode.MCSOffset()
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.NewStyle().Foreground(colorBorder)).
		Headers(summaryHeaders...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case row+offset == s.FinalMCS:
				return final
			case row+offset == s.MaxMCS:
				return maxRow
			default:
				return cell
			}
		})

	entry := "range"
	if !s.EnvironmentApplied {
		entry = "throughput"
	}
	fmt.Fprintln(w, title.Render(fmt.Sprintf("Radio %s, %s, %s entry", s.Variant, s.Mode, entry)))
	fmt.Fprintln(w, t.Render())

	lines := [][2]string{
		{"Operating point", fmt.Sprintf("MCS %d at %.1f m", s.FinalMCS, s.FinalRangeMeters)},
		{"Maximum range", fmt.Sprintf("MCS %d at %.1f m", s.MaxMCS, s.MaxRangeMeters)},
		{"Requested", fmt.Sprintf("%.3f Mbps (delta %+.2f)", s.RequestedThroughputMbps, s.ThroughputDeltaMbps)},
		{"Antenna height", fmt.Sprintf("%.1f m, need %.1f m (delta %+.1f)", s.CurrentAGLMeters, s.RequiredAGLMeters, s.AGLDeltaMeters)},
	}
	if s.TargetRangeMeters > 0 {
		lines = append(lines, [2]string{"Target range", fmt.Sprintf("%.1f m (delta %+.1f)", s.TargetRangeMeters, s.RangeDeltaMeters)})
	}
	for _, l := range lines {
		fmt.Fprintf(w, "%s %s\n", label.Render(fmt.Sprintf("%-16s", l[0])), l[1])
	}
}

func renderVariants(w io.Writer, variants []radio.RadioVariant) {
	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(variants))
	for _, v := range variants {
		antennas := "2"
		if v.SingleAntenna {
			antennas = "1"
		}
		rows = append(rows, []string{
			v.ID,
			v.Name,
			antennas,
			fmt.Sprintf("%g..%g", v.Power[radio.MCSLevels-1], v.Power[0]),
			fmt.Sprintf("%g..%g", v.Sensitivity[0], v.Sensitivity[radio.MCSLevels-1]),
			fmt.Sprintf("%g..%g", v.LinkBudget(0), v.LinkBudget(radio.MCSLevels-1)),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.NewStyle().Foreground(colorBorder)).
		Headers("ID", "Name", "Antennas", "Power (dBm)", "Sensitivity (dBm)", "Budget (dB)").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	fmt.Fprintln(w, t.Render())
}

func formatRate(cr float64) string {
	for _, den := range []int{2, 3, 4, 6} {
		num := cr * float64(den)
		if n := int(num + 0.5); n > 0 && math.Abs(num-float64(n)) < 1e-9 {
			return fmt.Sprintf("%d/%d", n, den)
		}
	}
	return strconv.FormatFloat(cr, 'f', 3, 64)
}

func meets(res core.MCSResult) string {
	var flags []string
	if res.WithinThroughputRequirement {
		flags = append(flags, "rate")
	}
	if res.WithinClearanceRequirement {
		flags = append(flags, "height")
	}
	if res.WithinTargetRange {
		flags = append(flags, "range")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

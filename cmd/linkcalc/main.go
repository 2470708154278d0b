package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/meshlink-planner/core"
	"github.com/signalsfoundry/meshlink-planner/internal/api"
	"github.com/signalsfoundry/meshlink-planner/internal/logging"
	"github.com/signalsfoundry/meshlink-planner/radio"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type estimateFlags struct {
	entry     string
	mode      string
	asJSON    bool
	climate   string
	model     string
	telemetry float64
	video     float64
	other     float64
	params    core.LinkParameters
}

func newRootCmd(out io.Writer) *cobra.Command {
	var catalogPath string

	rootCmd := &cobra.Command{
		Use:   "linkcalc",
		Short: "Mesh radio link budget calculator",
		Long: `linkcalc estimates per-MCS range and throughput for a mesh radio link
and picks the operating point that carries the requested traffic.

Radio variants come from the built-in catalog, optionally extended with a
YAML catalog passed via --catalog.`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "YAML radio catalog merged over the built-in variants")

	newService := func() (*api.Service, error) {
		cat, err := radio.LoadCatalogFile(catalogPath)
		if err != nil {
			return nil, err
		}
		return api.NewService(core.NewEngine(cat), api.ServiceOptions{Log: logging.Noop()}), nil
	}

	rootCmd.AddCommand(newEstimateCmd(newService), newVariantsCmd(newService))
	return rootCmd
}

func newEstimateCmd(newService func() (*api.Service, error)) *cobra.Command {
	f := &estimateFlags{}

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate range and throughput for every MCS of a radio variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			req := api.EstimateRequest{Entry: f.entry, Mode: f.mode, LinkParameters: f.params}
			req.Climate = core.Climate(f.climate)
			req.PathLossModel = core.PathLossModelKind(f.model)
			req.Required = core.Throughput{TelemetryKbps: f.telemetry, VideoMbps: f.video, OtherMbps: f.other}

			summary, err := svc.Estimate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if f.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			renderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.entry, "entry", api.EntryRange, "Entry point: range (full environment) or throughput (free space, clear sky)")
	fl.StringVar(&f.mode, "mode", string(core.ModeSingleStream), "MCS table: mcs0_7 or mcs8_15")
	fl.BoolVar(&f.asJSON, "json", false, "Print the summary as JSON")

	p := &f.params
	fl.StringVar(&p.Variant, "variant", "2L", "Radio variant ID")
	fl.Float64Var(&p.FrequencyMHz, "frequency", 2450, "Carrier frequency in MHz")
	fl.Float64Var(&p.BandwidthMHz, "bandwidth", 20, "Channel bandwidth in MHz")
	fl.IntVar(&p.Antennas, "antennas", 2, "Number of antennas")
	fl.IntVar(&p.Streams, "streams", 2, "Number of spatial streams")
	fl.Float64Var(&p.FadeMarginDB, "fade-margin", 10, "Fade margin in dB")
	fl.Float64Var(&p.AntennaGainDBi, "gain", 6, "Antenna gain in dBi")
	fl.Float64Var(&p.PowerLimitDBm, "power-limit", 0, "Regulatory power limit in dBm (0 uses the hardware cap)")
	fl.IntVar(&p.PayloadBytes, "payload", core.DefaultPayloadBytes, "MSDU payload size in bytes")
	fl.IntVar(&p.AggregationCeiling, "aggregation", core.DefaultAggregationCeiling, "A-MPDU aggregation ceiling in frames")
	fl.Float64Var(&p.HeightAGLMeters, "height", 10, "Antenna height above ground in metres")
	fl.BoolVar(&p.NearGround, "near-ground", false, "Apply the near-ground range correction")
	fl.Float64Var(&p.TemperatureC, "temperature", 25, "Ambient temperature in degrees Celsius")
	fl.Float64Var(&p.ClearancePercent, "clearance", core.DefaultClearancePercent, "Required Fresnel zone clearance in percent")
	fl.Float64Var(&p.TargetRangeMeters, "target-range", 0, "Target link distance in metres (0 disables the check)")
	fl.StringVar(&f.climate, "climate", string(core.ClimateClear), "Climate: clear, rain, fog, snow or humid")
	fl.StringVar(&f.model, "model", string(core.ModelFreeSpace), "Path loss model: free, two-ray or urban")
	fl.Float64Var(&f.telemetry, "telemetry-kbps", 50, "Required telemetry throughput in kbps")
	fl.Float64Var(&f.video, "video-mbps", 3, "Required video throughput in Mbps")
	fl.Float64Var(&f.other, "other-mbps", 0, "Other required throughput in Mbps")

	return cmd
}

func newVariantsCmd(newService func() (*api.Service, error)) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "variants",
		Short: "List the radio variants in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			variants := svc.Variants(cmd.Context())
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(api.VariantsResponse{Variants: variants})
			}
			if len(variants) == 0 {
				return fmt.Errorf("catalog is empty")
			}
			renderVariants(cmd.OutOrStdout(), variants)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the variants as JSON")
	return cmd
}

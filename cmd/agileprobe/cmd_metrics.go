package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"agileprobe/pkg/metrics"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Export estimation metrics and generate the dashboard",
}

var metricsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write pert.json, cocomo.json and evm.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := metrics.DefaultExportInputs()
		if cmd.Flags().Changed("optimistic") {
			in.Optimistic, _ = cmd.Flags().GetFloat64("optimistic")
		}
		if cmd.Flags().Changed("likely") {
			in.Likely, _ = cmd.Flags().GetFloat64("likely")
		}
		if cmd.Flags().Changed("pessimistic") {
			in.Pessimistic, _ = cmd.Flags().GetFloat64("pessimistic")
		}
		if cmd.Flags().Changed("size-kloc") {
			in.SizeKLOC, _ = cmd.Flags().GetFloat64("size-kloc")
		}
		if cmd.Flags().Changed("ev") {
			in.EV, _ = cmd.Flags().GetFloat64("ev")
		}
		if cmd.Flags().Changed("ac") {
			in.AC, _ = cmd.Flags().GetFloat64("ac")
		}
		if cmd.Flags().Changed("pv") {
			in.PV, _ = cmd.Flags().GetFloat64("pv")
		}

		exporter := metrics.NewExporter(cfg.Metrics.OutputDir)
		if err := exporter.ExportAll(in); err != nil {
			return err
		}
		return printJSON(map[string]string{"metrics_dir": cfg.Metrics.OutputDir})
	},
}

var metricsDashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Generate the combined HTML metrics dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := metrics.GenerateDashboard(cfg.Metrics.OutputDir, cfg.Metrics.DashboardFile)
		if err != nil {
			return err
		}

		fmt.Println("\n=== Combined Metrics Summary ===")
		fmt.Printf("CPI: %v\n", summary.CPI)
		fmt.Printf("SPI: %v\n", summary.SPI)
		fmt.Printf("Expected Duration: %v\n", summary.ExpectedDuration)
		fmt.Printf("Effort Estimation: %v\n", summary.EffortEstimation)
		fmt.Println("================================")
		fmt.Printf("Dashboard generated at %s\n", cfg.Metrics.DashboardFile)
		return nil
	},
}

func init() {
	metricsExportCmd.Flags().Float64("optimistic", 10, "PERT optimistic estimate")
	metricsExportCmd.Flags().Float64("likely", 15, "PERT most likely estimate")
	metricsExportCmd.Flags().Float64("pessimistic", 20, "PERT pessimistic estimate")
	metricsExportCmd.Flags().Float64("size-kloc", 10, "COCOMO size in KLOC")
	metricsExportCmd.Flags().Float64("ev", 90, "Earned value")
	metricsExportCmd.Flags().Float64("ac", 100, "Actual cost")
	metricsExportCmd.Flags().Float64("pv", 95, "Planned value")

	metricsCmd.AddCommand(metricsExportCmd, metricsDashboardCmd)
	rootCmd.AddCommand(metricsCmd)
}

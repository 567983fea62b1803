package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/umbra-dev/umbra/internal/export"
	"github.com/umbra-dev/umbra/internal/health"
	"github.com/umbra-dev/umbra/internal/insights"
	"github.com/umbra-dev/umbra/internal/scan"
)

var (
	dashboardInput string
	dashboardName  string
	dashboardPath  string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard [output-file]",
	Short: "Export the HTML dashboard with a fresh analysis",
	Long: `Analyze the project and render the dashboard. Unlike 'umbra export'
this runs the insights analysis so health score and issues are current.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		projectRoot, err := resolveRoot(nil)
		if dashboardPath != "" {
			projectRoot, err = resolveRoot([]string{dashboardPath})
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cfg := loadConfig(projectRoot)
		cfg.OutputFile = outputPath(projectRoot, cfg)

		input := dashboardInput
		if input == "" {
			input = cfg.OutputFile
		}
		output := cfg.DashboardFile()
		if len(args) > 0 {
			output = args[0]
		}
		name := dashboardName
		if name == "" {
			name = projectName(projectRoot)
		}

		files, err := scan.Load(projectRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		healthReport := health.NewMonitor(name).Scan(files)
		in := export.Input{
			ProjectName: name,
			Report:      insights.Analyze(files),
			Health:      &healthReport,
			Changes:     loadSessionChanges(context.Background(), cfg, 10),
		}
		if err := export.HTML(input, output, in); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		abs, _ := filepath.Abs(output)
		fmt.Printf("%s Dashboard written to %s\n", green("✓"), abs)
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().StringVarP(&dashboardInput, "input", "i", "", "Architecture markdown to read (default from OUTPUT_FILE)")
	dashboardCmd.Flags().StringVarP(&dashboardName, "name", "n", "", "Project name shown on the dashboard")
	dashboardCmd.Flags().StringVarP(&dashboardPath, "path", "p", "", "Project root to analyze (default current directory)")
}

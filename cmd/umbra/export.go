package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/umbra-dev/umbra/internal/export"
)

var (
	exportInput string
	exportName  string
)

var exportCmd = &cobra.Command{
	Use:   "export [output-file]",
	Short: "Export the HTML dashboard from the architecture file",
	Long: `Render the dashboard straight from LIVE_ARCHITECTURE.md without
re-analyzing the project. Health and metrics panels stay empty.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root, err := resolveRoot(nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cfg := loadConfig(root)
		cfg.OutputFile = outputPath(root, cfg)

		input := exportInput
		if input == "" {
			input = cfg.OutputFile
		}
		output := cfg.DashboardFile()
		if len(args) > 0 {
			output = args[0]
		}
		name := exportName
		if name == "" {
			name = projectName(root)
		}

		if err := export.HTML(input, output, export.Input{ProjectName: name}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		abs, _ := filepath.Abs(output)
		fmt.Printf("%s Dashboard written to %s\n", green("✓"), abs)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportInput, "input", "i", "", "Architecture markdown to read (default from OUTPUT_FILE)")
	exportCmd.Flags().StringVarP(&exportName, "name", "n", "", "Project name shown on the dashboard")
}

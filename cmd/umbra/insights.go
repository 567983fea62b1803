package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/umbra-dev/umbra/internal/insights"
	"github.com/umbra-dev/umbra/internal/scan"
	"github.com/umbra-dev/umbra/internal/tracker"
)

var insightsJSON bool

var insightsCmd = &cobra.Command{
	Use:   "insights [path]",
	Short: "Analyze project structure and print a health report",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root, err := resolveRoot(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		files, err := scan.Load(root)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		report := insights.Analyze(files)

		if insightsJSON {
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(out))
			return
		}

		printInsightsReport(report)

		cfg := loadConfig(root)
		cfg.OutputFile = outputPath(root, cfg)
		printSessionChanges(loadSessionChanges(context.Background(), cfg, 10))
	},
}

// printSessionChanges shows the last watch session's history when one
// is persisted next to the output file.
func printSessionChanges(changes []tracker.Change) {
	if len(changes) == 0 {
		return
	}
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("%s\n", yellow("Recent changes (last session):"))
	for _, ch := range changes {
		fmt.Printf("  %s %-8s %s %s\n",
			gray(ch.Timestamp.Local().Format("15:04")), ch.Type, ch.Path, gray(ch.Description))
	}
	fmt.Println()
}

func printInsightsReport(report insights.Report) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Project Insights ==="))

	h := report.Health
	gradeColor := green
	if h.Score < 75 {
		gradeColor = yellow
	}
	if h.Score < 60 {
		gradeColor = red
	}
	fmt.Printf("Health: %s (%d/100, %s)\n", gradeColor(h.Grade), h.Score, h.Status)
	fmt.Printf("Files:  %d (%d lines)\n\n", report.Metrics.TotalFiles, report.Metrics.TotalLines)

	if len(report.Metrics.LargestFiles) > 0 {
		fmt.Printf("%s\n", yellow("Largest files:"))
		for _, f := range report.Metrics.LargestFiles {
			fmt.Printf("  %s %s\n", gray(fmt.Sprintf("%5d", f.Lines)), f.Path)
		}
		fmt.Println()
	}

	if len(report.Insights) == 0 {
		fmt.Printf("%s No issues found\n\n", green("✓"))
		return
	}

	fmt.Printf("%s\n", yellow("Issues:"))
	for _, ins := range report.Insights {
		marker := gray("·")
		switch ins.Severity {
		case insights.SeverityCritical:
			marker = red("✗")
		case insights.SeverityWarning:
			marker = yellow("!")
		}
		fmt.Printf("  %s %s\n", marker, ins.Title)
		fmt.Printf("    %s\n", gray(ins.Recommendation))
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(insightsCmd)
	insightsCmd.Flags().BoolVar(&insightsJSON, "json", false, "Output the full report as JSON")
}

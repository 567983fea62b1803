package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	scanOutput     string
	scanDocs       bool
	scanNoDocs     bool
	scanSecurity   bool
	scanNoSecurity bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a project once and generate all artifacts",
	Long: `Run a one-shot scan: build the architecture diagram, the project
summary and the knowledge base without starting the watcher.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root, err := resolveRoot(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cfg := loadConfig(root)
		if scanOutput != "" {
			cfg.OutputFile = scanOutput
		}
		cfg.OutputFile = outputPath(root, cfg)
		if scanNoDocs {
			scanDocs = false
		}
		if scanNoSecurity {
			scanSecurity = false
		}

		ctx := context.Background()
		gen := mustGenerator(ctx, cfg)

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("\n%s %s\n", cyan("Scanning"), root)

		res, err := runFullScan(ctx, gen, root, cfg, scanOptions{Docs: scanDocs, Security: scanSecurity})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n%s Scan complete\n", green("✓"))
		fmt.Printf("  Architecture: %s\n", cfg.OutputFile)
		fmt.Printf("  Knowledge:    %s\n", cfg.KnowledgeFile())
		fmt.Printf("  Files:        %d\n\n", len(res.Files))
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "Architecture file path (default from OUTPUT_FILE)")
	scanCmd.Flags().BoolVar(&scanDocs, "docs", true, "Generate module documentation")
	scanCmd.Flags().BoolVar(&scanNoDocs, "no-docs", false, "Skip module documentation")
	scanCmd.Flags().BoolVar(&scanSecurity, "security", true, "Run the security scan")
	scanCmd.Flags().BoolVar(&scanNoSecurity, "no-security", false, "Skip the security scan")
}

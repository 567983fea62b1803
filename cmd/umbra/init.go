package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/umbra-dev/umbra/internal/knowledge"
)

var initOutput string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a seed architecture file in the current project",
	Long: `Write a starter LIVE_ARCHITECTURE.md with an empty diagram. The
watch and scan commands grow the diagram from there.

Example:
  cd ~/myproject
  umbra init
  umbra watch`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root, err := resolveRoot(nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cfg := loadConfig(root)
		if initOutput != "" {
			cfg.OutputFile = initOutput
		}
		cfg.OutputFile = outputPath(root, cfg)

		if _, err := os.Stat(cfg.OutputFile); err == nil {
			fmt.Printf("%s already exists. Overwrite? [y/N] ", cfg.OutputFile)
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			if answer != "y" && answer != "yes" {
				fmt.Println("Aborted.")
				return
			}
		}

		if err := knowledge.WriteSeedArchitecture(cfg.OutputFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s Initialized %s\n\n", green("✓"), cfg.OutputFile)
		fmt.Printf("%s Next steps:\n", gray("→"))
		fmt.Printf("  %s\n", gray("export GOOGLE_API_KEY=...   # or put it in .env"))
		fmt.Printf("  %s\n", gray("umbra watch"))
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "", "Architecture file path (default from OUTPUT_FILE)")
}

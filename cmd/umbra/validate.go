package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/umbra-dev/umbra/internal/mermaid"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a Mermaid diagram",
	Long: `Check a .mmd file or a markdown file with a fenced mermaid block
for syntax problems. Exit code 1 when the diagram is invalid.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		src := string(raw)
		if strings.Contains(src, "```mermaid") {
			src = mermaid.ExtractFromMarkdown(src)
			if src == "" {
				fmt.Fprintf(os.Stderr, "Error: no mermaid block found in %s\n", args[0])
				os.Exit(1)
			}
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		result := mermaid.Validate(src)
		for _, warn := range result.Warnings {
			fmt.Printf("%s %s\n", yellow("warning:"), warn)
		}
		if !result.Valid {
			for _, e := range result.Errors {
				fmt.Printf("%s %s\n", red("error:"), e)
			}
			os.Exit(1)
		}
		fmt.Printf("%s %s is valid\n", green("✓"), args[0])
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

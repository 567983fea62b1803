package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/umbra-dev/umbra/internal/chat"
)

var askQuestion string

var askCmd = &cobra.Command{
	Use:   "ask [path]",
	Short: "Chat with your codebase",
	Long: `Ask questions about the project. With -q a single question is
answered and the command exits; without it an interactive session starts.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root, err := resolveRoot(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cfg := loadConfig(root)
		cfg.OutputFile = outputPath(root, cfg)

		ctx := context.Background()
		gen := mustGenerator(ctx, cfg)
		session := chat.NewSession(gen, root, cfg.OutputFile)

		if askQuestion != "" {
			answer, err := session.Ask(ctx, askQuestion)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
			fmt.Printf("\n%s %s\n\n", cyan("Umbra:"), answer)
			return
		}

		if err := session.RunInteractive(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "Ask a single question and exit")
}

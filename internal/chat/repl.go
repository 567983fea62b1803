package chat

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

// RunInteractive starts the interactive chat loop and blocks until the
// user exits.
func (s *Session) RunInteractive(ctx context.Context) error {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen, color.Bold).SprintFunc()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            green("You: "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("%s\nChat with your codebase. Type 'exit' to quit.\n\n", cyan("Ask Umbra"))

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		question := strings.TrimSpace(line)
		if question == "" {
			continue
		}
		switch strings.ToLower(question) {
		case "exit", "quit", "q":
			fmt.Println("Goodbye!")
			return nil
		}

		fmt.Printf("\n%s\n", cyan("Umbra:"))
		answer, err := s.Ask(ctx, question)
		if err != nil {
			color.Red("Error: %v", err)
			continue
		}
		fmt.Println(answer)
		fmt.Println()
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/umbra-dev/umbra/internal/chat"
	"github.com/umbra-dev/umbra/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve [path]",
	Short: "Run the chat and project API server without watching",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root, err := resolveRoot(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cfg := loadConfig(root)
		cfg.OutputFile = outputPath(root, cfg)

		ctx := context.Background()

		// The project endpoint works without a key; chat needs one.
		var answerer server.Answerer
		if cfg.APIKey != "" {
			answerer = chat.NewSession(mustGenerator(ctx, cfg), root, cfg.OutputFile)
		} else {
			fmt.Fprintln(os.Stderr, "Warning: GOOGLE_API_KEY not set, /chat will return 503")
		}

		srv := server.New(server.Config{Root: root, ArchFile: cfg.OutputFile, Chat: answerer})

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(servePort) }()

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Serving %s on http://localhost:%d\n", green("✓"), root, servePort)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		case <-sigCh:
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8765, "Port to listen on")
}

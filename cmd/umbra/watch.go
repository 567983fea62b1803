package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/umbra-dev/umbra/internal/ai"
	"github.com/umbra-dev/umbra/internal/chat"
	"github.com/umbra-dev/umbra/internal/config"
	"github.com/umbra-dev/umbra/internal/diffutil"
	"github.com/umbra-dev/umbra/internal/export"
	"github.com/umbra-dev/umbra/internal/health"
	"github.com/umbra-dev/umbra/internal/insights"
	"github.com/umbra-dev/umbra/internal/knowledge"
	"github.com/umbra-dev/umbra/internal/pipeline"
	"github.com/umbra-dev/umbra/internal/scan"
	"github.com/umbra-dev/umbra/internal/server"
	"github.com/umbra-dev/umbra/internal/tracker"
	"github.com/umbra-dev/umbra/internal/watcher"
)

var (
	watchOutput      string
	watchDebounce    float64
	watchNoScan      bool
	watchDashboard   bool
	watchNoDashboard bool
	watchOpen        bool
	watchPort        int
	watchDocs        bool
	watchNoDocs      bool
	watchSecurity    bool
	watchNoSecurity  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a project and keep its architecture diagram alive",
	Long: `Watch a directory for changes. Every structural change updates the
architecture diagram, the knowledge base and the HTML dashboard. A chat
API server runs alongside for dashboard and editor integrations.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root, err := resolveRoot(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cfg := loadConfig(root)
		if watchOutput != "" {
			cfg.OutputFile = watchOutput
		}
		cfg.OutputFile = outputPath(root, cfg)
		if cmd.Flags().Changed("debounce") {
			cfg.DebounceSeconds = watchDebounce
		}
		if watchNoDashboard {
			watchDashboard = false
		}
		if watchNoDocs {
			watchDocs = false
		}
		if watchNoSecurity {
			watchSecurity = false
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		gen := mustGenerator(ctx, cfg)
		w := newWatchSession(root, cfg, gen)
		if err := w.run(ctx, cancel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Architecture file path (default from OUTPUT_FILE)")
	watchCmd.Flags().Float64VarP(&watchDebounce, "debounce", "d", 2.0, "Debounce window in seconds")
	watchCmd.Flags().BoolVar(&watchNoScan, "no-scan", false, "Skip the initial scan")
	watchCmd.Flags().BoolVar(&watchDashboard, "dashboard", true, "Regenerate the HTML dashboard on changes")
	watchCmd.Flags().BoolVar(&watchNoDashboard, "no-dashboard", false, "Disable dashboard regeneration")
	watchCmd.Flags().BoolVar(&watchOpen, "open", false, "Open the dashboard in a browser after the initial scan")
	watchCmd.Flags().IntVarP(&watchPort, "port", "p", 8765, "Chat server port")
	watchCmd.Flags().BoolVar(&watchDocs, "docs", true, "Generate module docs during the initial scan")
	watchCmd.Flags().BoolVar(&watchNoDocs, "no-docs", false, "Skip module docs during the initial scan")
	watchCmd.Flags().BoolVar(&watchSecurity, "security", true, "Run the security scan during the initial scan")
	watchCmd.Flags().BoolVar(&watchNoSecurity, "no-security", false, "Skip the security scan during the initial scan")
}

// watchSession holds everything the watch loop touches. Events arrive on
// the watcher goroutine; the cache and diagram are guarded by mu.
type watchSession struct {
	root string
	cfg  *config.Config
	gen  ai.Generator

	track *tracker.Tracker
	store *tracker.Store
	pipe  *pipeline.Pipeline
	srv   *server.Server

	mu    sync.Mutex
	cache map[string]string
}

func newWatchSession(root string, cfg *config.Config, gen ai.Generator) *watchSession {
	return &watchSession{
		root:  root,
		cfg:   cfg,
		gen:   gen,
		pipe:  pipeline.New(gen),
		cache: make(map[string]string),
	}
}

func (w *watchSession) run(ctx context.Context, cancel context.CancelFunc) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	name := projectName(w.root)
	fmt.Printf("\n%s\n", cyan("=== Umbra ==="))
	fmt.Printf("  Project:  %s\n", name)
	fmt.Printf("  Output:   %s\n", w.cfg.OutputFile)
	fmt.Printf("  Model:    %s\n\n", w.cfg.Model)

	// Change history persists next to the output file.
	store, err := tracker.OpenStore(historyPath(w.cfg))
	if err != nil {
		return fmt.Errorf("opening change history: %w", err)
	}
	defer store.Close()
	w.store = store
	w.track = tracker.New(w.gen, store)

	files, err := scan.Load(w.root)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", w.root, err)
	}
	w.prefill(files)

	if _, statErr := os.Stat(w.cfg.OutputFile); os.IsNotExist(statErr) {
		if err := knowledge.WriteSeedArchitecture(w.cfg.OutputFile); err != nil {
			return fmt.Errorf("seeding architecture file: %w", err)
		}
	}

	if !watchNoScan {
		fmt.Printf("%s Running initial scan...\n", gray("→"))
		opts := scanOptions{Docs: watchDocs, Security: watchSecurity}
		if _, err := runFullScan(ctx, w.gen, w.root, w.cfg, opts); err != nil {
			slog.Warn("initial scan failed", "error", err)
		}
	}

	w.refreshArtifacts(ctx, files)
	if watchDashboard && watchOpen {
		openBrowser(w.cfg.DashboardFile())
	}

	chatSession := chat.NewSession(w.gen, w.root, w.cfg.OutputFile)
	w.srv = server.New(server.Config{Root: w.root, ArchFile: w.cfg.OutputFile, Chat: chatSession})
	go func() {
		if err := w.srv.Start(watchPort); err != nil {
			slog.Warn("chat server stopped", "error", err)
		}
	}()
	fmt.Printf("%s Chat server on http://localhost:%d\n", green("✓"), watchPort)

	fsw, err := watcher.New(w.root, w.onEvent, time.Duration(w.cfg.DebounceSeconds*float64(time.Second)))
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Start(); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	fmt.Printf("%s Watching %s\n\n", green("✓"), w.root)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Printf("\n%s Shutting down...\n", gray("→"))
	fsw.Stop()
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = w.srv.Shutdown(shutdownCtx)
	fmt.Printf("%s\n", w.track.Summary())
	return nil
}

func (w *watchSession) prefill(files []scan.File) {
	contents := make(map[string]string, len(files))
	w.mu.Lock()
	for _, f := range files {
		w.cache[f.Rel] = f.Content
		contents[f.Rel] = f.Content
	}
	w.mu.Unlock()
	w.track.Prefill(contents)
}

// onEvent runs on the watcher goroutine, one debounced event at a time.
func (w *watchSession) onEvent(ev watcher.Event) {
	ctx, cancelEvent := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancelEvent()

	rel, err := filepath.Rel(w.root, ev.Path)
	if err != nil {
		rel = ev.Path
	}
	rel = filepath.ToSlash(rel)

	switch ev.Type {
	case watcher.Deleted:
		w.handleDelete(ctx, rel)
	default:
		w.handleWrite(ctx, rel, ev.Path)
	}

	if files, err := scan.Load(w.root); err == nil {
		w.refreshArtifacts(ctx, files)
	}
	if w.srv != nil {
		w.srv.NotifyChange(map[string]string{"path": rel, "type": string(ev.Type)})
	}
}

func (w *watchSession) handleDelete(ctx context.Context, rel string) {
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	w.mu.Lock()
	old := w.cache[rel]
	delete(w.cache, rel)
	w.mu.Unlock()

	ch := w.track.Record(ctx, rel, tracker.ChangeDeleted, old, "")
	fmt.Printf("%s %s deleted\n", yellow("−"), rel)
	for _, warn := range ch.Warnings {
		fmt.Printf("  %s %s\n", red("!"), warn)
	}

	if err := knowledge.RemoveFromDiagram(w.cfg.OutputFile, filepath.Base(rel)); err != nil {
		slog.Warn("could not update diagram after delete", "file", rel, "error", err)
	}
	_ = knowledge.RecordChange(w.cfg.OutputFile, rel, "File deleted")
}

func (w *watchSession) handleWrite(ctx context.Context, rel, absPath string) {
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	raw, err := os.ReadFile(absPath)
	if err != nil {
		slog.Warn("could not read changed file", "file", rel, "error", err)
		return
	}
	content := string(raw)

	w.mu.Lock()
	old, existed := w.cache[rel]
	w.cache[rel] = content
	w.mu.Unlock()

	typ := tracker.ChangeModified
	if !existed {
		typ = tracker.ChangeCreated
	}
	if existed && old == content {
		return
	}

	diff := diffutil.Compute(old, content)
	diagram := knowledge.LoadDiagram(w.cfg.OutputFile)

	res, err := w.pipe.Run(ctx, pipeline.Input{
		Path:           rel,
		Content:        content,
		Diff:           diff.Text,
		CurrentDiagram: diagram,
	})
	if err != nil {
		slog.Warn("pipeline failed", "file", rel, "error", err)
	}

	ch := w.track.Record(ctx, rel, typ, old, content)
	fmt.Printf("%s %s %s\n", green("✓"), rel, gray(ch.Description))
	for _, warn := range ch.Warnings {
		fmt.Printf("  %s %s\n", red("!"), warn)
	}

	if res.Updated {
		if err := knowledge.SaveDiagram(w.cfg.OutputFile, res.UpdatedDiagram, rel, ch.Description); err != nil {
			slog.Warn("could not save diagram", "error", err)
		} else {
			fmt.Printf("  %s diagram updated (%s)\n", gray("↻"), res.Analysis.ChangeType)
		}
	} else {
		_ = knowledge.RecordChange(w.cfg.OutputFile, rel, ch.Description)
	}
}

// refreshArtifacts regenerates dashboard.html and the knowledge base
// from the current tree. The score card comes from the deep health scan;
// expensive knowledge sections are reused, never regenerated here.
// Failures are logged and skipped so the loop keeps running.
func (w *watchSession) refreshArtifacts(ctx context.Context, files []scan.File) {
	name := projectName(w.root)
	healthReport := health.NewMonitor(name).Scan(files)

	if watchDashboard {
		in := export.Input{
			ProjectName: name,
			Report:      insights.Analyze(files),
			Health:      &healthReport,
			Changes:     w.track.Recent(10),
		}
		if err := export.HTML(w.cfg.OutputFile, w.cfg.DashboardFile(), in); err != nil {
			slog.Warn("dashboard refresh failed", "error", err)
		}
	}

	diagram := knowledge.LoadDiagram(w.cfg.OutputFile)
	opts := scanOptions{Incremental: true}
	if err := writeKnowledge(ctx, w.gen, w.cfg, name, diagram, "", files, w.track.Recent(10), opts); err != nil {
		slog.Warn("knowledge refresh failed", "error", err)
	}
}

func openBrowser(path string) {
	url := "file://" + path
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		slog.Debug("could not open browser", "error", err)
	}
}

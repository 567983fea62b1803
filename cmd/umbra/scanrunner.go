package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/umbra-dev/umbra/internal/ai"
	"github.com/umbra-dev/umbra/internal/config"
	"github.com/umbra-dev/umbra/internal/diffutil"
	"github.com/umbra-dev/umbra/internal/docs"
	"github.com/umbra-dev/umbra/internal/knowledge"
	"github.com/umbra-dev/umbra/internal/pipeline"
	"github.com/umbra-dev/umbra/internal/scan"
	"github.com/umbra-dev/umbra/internal/tracker"
)

const (
	// Module docs are only generated for small projects; beyond this
	// the initial scan would take too long and cost too much.
	moduleDocsProjectCap = 50
	moduleDocsFileCap    = 20
	securityFileCap      = 30
)

type scanOptions struct {
	Docs     bool
	Security bool
	// Incremental refreshes reuse every cached section and never call
	// the model, so they are safe to run on each watch event.
	Incremental bool
}

type scanResult struct {
	Files   []scan.File
	Diagram string
	Summary string
}

// runFullScan discovers the project, builds the architecture diagram by
// feeding every file through the pipeline, and writes both markdown
// artifacts. The generator may be slow; errors from individual files are
// logged and skipped so one bad file never sinks the scan.
func runFullScan(ctx context.Context, gen ai.Generator, root string, cfg *config.Config, opts scanOptions) (scanResult, error) {
	gray := color.New(color.FgHiBlack).SprintFunc()

	files, err := scan.Load(root)
	if err != nil {
		return scanResult{}, fmt.Errorf("scanning %s: %w", root, err)
	}
	fmt.Printf("  %s\n", gray(fmt.Sprintf("Found %d files", len(files))))

	fileList := make([]string, len(files))
	for i, f := range files {
		fileList[i] = f.Rel
	}

	// Important files first so the diagram grows around the core.
	ordered := make([]scan.File, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		return filePriority(ordered[i].Rel) < filePriority(ordered[j].Rel)
	})

	diagram := knowledge.LoadDiagram(cfg.OutputFile)
	pipe := pipeline.New(gen)
	for _, f := range ordered {
		diff := diffutil.Compute("", f.Content)
		res, err := pipe.Run(ctx, pipeline.Input{
			Path:           f.Rel,
			Content:        f.Content,
			Diff:           diff.Text,
			CurrentDiagram: diagram,
		})
		if err != nil {
			fmt.Printf("  %s\n", gray(fmt.Sprintf("skipped %s: %v", f.Rel, err)))
			continue
		}
		if res.Updated {
			diagram = res.UpdatedDiagram
			fmt.Printf("  %s %s\n", gray("+"), f.Rel)
		}
	}

	name := projectName(root)
	summary := docs.ProjectSummary(ctx, gen, name, diagram, fileList)
	if err := knowledge.WriteArchitecture(cfg.OutputFile, summary, diagram, len(files)); err != nil {
		return scanResult{}, fmt.Errorf("writing architecture file: %w", err)
	}

	if err := writeKnowledge(ctx, gen, cfg, name, diagram, summary, files, nil, opts); err != nil {
		return scanResult{}, err
	}

	return scanResult{Files: files, Diagram: diagram, Summary: summary}, nil
}

// writeKnowledge regenerates the knowledge base. Expensive sections are
// reused from the existing file when the options say not to regenerate.
func writeKnowledge(ctx context.Context, gen ai.Generator, cfg *config.Config, name, diagram, summary string, files []scan.File, changes []tracker.Change, opts scanOptions) error {
	existing := knowledge.LoadSections(cfg.KnowledgeFile())

	fileList := make([]string, len(files))
	totalLines := 0
	for i, f := range files {
		fileList[i] = f.Rel
		totalLines += f.Lines
	}

	quickCtx := existing.QuickContext
	if quickCtx == "" && !opts.Incremental {
		if qc, err := docs.QuickContext(ctx, gen, summary, fileList); err == nil {
			quickCtx = qc
		}
	}

	moduleDocs := existing.ModuleDocs
	if opts.Docs && moduleDocs == "" && len(files) <= moduleDocsProjectCap {
		moduleDocs = generateModuleDocs(ctx, gen, files)
	}

	var security []docs.SecurityReport
	if opts.Security {
		for i, f := range files {
			if i >= securityFileCap {
				break
			}
			security = append(security, docs.ScanSecurity(ctx, gen, f.Rel, f.Content))
		}
	}

	recent := make([]knowledge.RecentChange, 0, len(changes))
	for _, ch := range changes {
		recent = append(recent, knowledge.RecentChange{
			Timestamp:   ch.Timestamp,
			Path:        ch.Path,
			Type:        string(ch.Type),
			Description: ch.Description,
		})
	}

	return knowledge.Generate(cfg.KnowledgeFile(), knowledge.Data{
		ProjectName:  name,
		Diagram:      diagram,
		QuickContext: quickCtx,
		ModuleDocs:   moduleDocs,
		APIReference: docs.APIReference(files),
		Security:     security,
		Metrics: knowledge.Metrics{
			TotalFiles: len(files),
			TotalLines: totalLines,
		},
		RecentChanges: recent,
		Files:         fileList,
	})
}

func generateModuleDocs(ctx context.Context, gen ai.Generator, files []scan.File) string {
	var b strings.Builder
	for i, f := range files {
		if i >= moduleDocsFileCap {
			break
		}
		doc, err := docs.GenerateModuleDoc(ctx, gen, f.Rel, f.Content)
		if err != nil {
			continue
		}
		b.WriteString(doc)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// filePriority mirrors the ordering the chat context uses: entry points
// and config files before everything else.
var priorityStems = []string{"main", "app", "index", "server", "api", "route", "config"}

func filePriority(rel string) int {
	lower := strings.ToLower(rel)
	for i, p := range priorityStems {
		if strings.Contains(lower, p) {
			return i
		}
	}
	return len(priorityStems)
}

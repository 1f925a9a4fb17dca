// Package pipeline runs one full extraction: scanner selection, orchestrated
// scanning, aggregation and quality reporting.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"archscan/internal/aggregate"
	"archscan/internal/config"
	"archscan/internal/logging"
	"archscan/internal/model"
	"archscan/internal/orchestrator"
	"archscan/internal/quality"
	"archscan/internal/scanner"
	"archscan/internal/scanners"

	"github.com/phuslu/log"
)

// Pipeline wires configuration, registry and logger for a scan.
type Pipeline struct {
	Config   *config.Config
	Registry *scanner.Registry
	Logger   *log.Logger
}

// Outcome is everything a scan produced.
type Outcome struct {
	Results      *scanner.Results
	Architecture *model.Architecture
	Report       *quality.Report
	Diagnostics  []aggregate.Diagnostic
	Summary      aggregate.Summary
	// Warnings are run-level problems that did not stop the scan, such as a
	// repository path that does not exist.
	Warnings []string
	Duration time.Duration
}

// New builds a pipeline over the built-in scanners.
func New(cfg *config.Config, logger *log.Logger) (*Pipeline, error) {
	registry, err := scanners.Discover()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{Config: cfg, Registry: registry, Logger: logger}, nil
}

// Run scans the configured project. Scanner faults end up in the outcome;
// only setup problems are returned as errors.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	started := time.Now()

	selected, err := p.selectStage()
	if err != nil {
		return nil, err
	}
	base, project, err := p.contextStage()
	if err != nil {
		return nil, err
	}
	warnings, err := p.indexStage(base)
	if err != nil {
		return nil, err
	}

	p.Logger.Info().
		Str("root", base.Root()).
		Int("scanners", len(selected)).
		Msg("scan started")

	results, err := p.orchestrateStage(ctx, selected, base)
	if err != nil {
		return nil, err
	}

	arch := aggregate.Aggregate(project, results)
	out := &Outcome{
		Results:      results,
		Architecture: arch,
		Report:       quality.Calculate(results, arch, base.Files()),
		Diagnostics:  aggregate.Diagnostics(results),
		Summary:      aggregate.Summarize(results),
		Warnings:     warnings,
		Duration:     time.Since(started),
	}

	p.Logger.Info().
		Int("components", len(arch.Components)).
		Int("endpoints", len(arch.APIEndpoints)).
		Int("gaps", len(out.Report.Gaps)).
		Dur("duration", out.Duration).
		Msg("scan aggregated")
	return out, nil
}

func (p *Pipeline) selectStage() ([]scanner.Scanner, error) {
	c := p.Config.Scanners
	selected, err := scanners.Selected(p.Registry, c.Mode, c.Enabled, c.Groups)
	if err != nil {
		return nil, fmt.Errorf("select scanners: %w", err)
	}
	return selected, nil
}

func (p *Pipeline) contextStage() (*scanner.Context, aggregate.Project, error) {
	root, err := filepath.Abs(p.Config.Project.Root)
	if err != nil {
		return nil, aggregate.Project{}, fmt.Errorf("resolve project root: %w", err)
	}

	name := p.Config.Project.Name
	if name == "" {
		name = filepath.Base(root)
	}
	project := aggregate.Project{Name: name, Version: p.Config.Project.Version}
	for _, r := range p.Config.Repositories {
		project.Repositories = append(project.Repositories, model.Repository{Name: r.Name, Path: r.Path, URL: r.URL})
	}

	base := scanner.NewContext(scanner.Options{
		Root:        root,
		SourcePaths: append([]string{root}, p.Config.RepositoryPaths()...),
		Config:      p.Config.ScannerConfig(),
		Settings:    map[string]string{"project.name": name, "project.version": p.Config.Project.Version},
		Logger:      p.Logger,
	})
	return base, project, nil
}

// indexStage builds the file index up front. A project root that cannot be
// walked is a setup error: otherwise every scanner would look inapplicable
// and the run would report nothing instead of failing.
func (p *Pipeline) indexStage(base *scanner.Context) ([]string, error) {
	files, err := base.Files().Files()
	if err != nil {
		return nil, fmt.Errorf("index project files: %w", err)
	}
	var warnings []string
	for _, src := range base.Files().Missing() {
		p.Logger.Warn().Str("path", src).Msg("repository path does not exist, skipped")
		warnings = append(warnings, fmt.Sprintf("repository path %s does not exist", src))
	}
	p.Logger.Debug().Int("files", len(files)).Msg("project indexed")
	return warnings, nil
}

func (p *Pipeline) orchestrateStage(ctx context.Context, selected []scanner.Scanner, base *scanner.Context) (*scanner.Results, error) {
	timeout, err := p.Config.ScannerTimeout()
	if err != nil {
		return nil, err
	}
	o := orchestrator.New(orchestrator.Options{
		Concurrency:    p.Config.Scanners.Concurrency,
		ScannerTimeout: timeout,
		Logger:         p.Logger,
	})
	return o.Run(ctx, selected, base), nil
}

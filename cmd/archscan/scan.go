package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"archscan/internal/config"
	"archscan/internal/pipeline"
	"archscan/internal/quality"

	"github.com/spf13/cobra"
)

var (
	outputPath string
	saveRun    bool
	failOnGate bool
)

var errGateFailed = errors.New("quality gate failed")

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a project and print its architecture summary and quality report",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.Project.Root = args[0]
		}

		out, err := runScan(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		printOutcome(w, out)

		if outputPath != "" {
			if err := writeModel(w, outputPath, out); err != nil {
				return err
			}
		}

		if saveRun {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			id, err := store.SaveSnapshot(cmd.Context(), out.Architecture, out.Report)
			if err != nil {
				return fmt.Errorf("failed to save snapshot: %w", err)
			}
			fmt.Fprintf(w, "Snapshot saved: %s (%s)\n", id, cfg.Storage.Path)
		}

		verdict := cfg.Gate().Evaluate(out.Report)
		printVerdict(w, verdict)
		if failOnGate && !verdict.Passed {
			return errGateFailed
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the architecture model as JSON to this file (- for stdout)")
	scanCmd.Flags().BoolVar(&saveRun, "save", false, "Save the run as a snapshot for history and diff")
	scanCmd.Flags().BoolVar(&failOnGate, "fail-on-gate", false, "Exit non-zero when the quality gate fails")
}

// runScan validates the config and runs the pipeline. Ctrl-C cancels the
// remaining scanners.
func runScan(ctx context.Context, cfg *config.Config) (*pipeline.Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	p, err := pipeline.New(cfg, newLogger(cfg))
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}

func printOutcome(w io.Writer, out *pipeline.Outcome) {
	arch := out.Architecture
	fmt.Fprintf(w, "Project: %s\n", arch.ProjectName)
	fmt.Fprintf(w, "Scanners: %d completed (%d succeeded, %d failed), %d skipped in %s\n",
		out.Summary.Completed, out.Summary.Succeeded, out.Summary.Failed, out.Summary.Skipped, out.Duration.Round(time.Millisecond))

	for _, e := range out.Results.Entries() {
		status := "ok"
		if !e.Result.Success {
			status = "FAILED"
		}
		fmt.Fprintf(w, "  %-26s %-6s %4d findings  %s\n", e.ScannerID, status, e.Result.FindingsCount(), e.Result.Statistics.Summary())
	}

	fmt.Fprintf(w, "Model: %d components, %d dependencies, %d endpoints, %d message flows, %d entities, %d relationships\n",
		len(arch.Components), len(arch.Dependencies), len(arch.APIEndpoints),
		len(arch.MessageFlows), len(arch.DataEntities), len(arch.Relationships))

	for _, warning := range out.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	if len(out.Diagnostics) > 0 {
		fmt.Fprintln(w, "Diagnostics:")
		for _, d := range out.Diagnostics {
			fmt.Fprintf(w, "  %-7s %s: %s\n", d.Severity, d.ScannerID, d.Message)
		}
	}
	fmt.Fprintln(w)
	_ = out.Report.Write(w)
}

func printVerdict(w io.Writer, v quality.Verdict) {
	if v.Passed {
		fmt.Fprintln(w, "Quality gate: passed")
		return
	}
	fmt.Fprintf(w, "Quality gate: failed (%s)\n", strings.Join(v.Reasons, "; "))
}

func writeModel(w io.Writer, path string, out *pipeline.Outcome) error {
	data, err := json.MarshalIndent(out.Architecture, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	fmt.Fprintf(w, "Model written to %s\n", path)
	return nil
}

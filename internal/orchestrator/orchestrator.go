package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"archscan/internal/logging"
	"archscan/internal/scanner"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"
)

// Options tunes a run.
type Options struct {
	// Concurrency > 1 runs scanners of the same priority tier in parallel.
	// Every scanner in a tier then sees only the results of earlier tiers.
	Concurrency int
	// ScannerTimeout bounds a single scanner turn. Zero means no limit.
	ScannerTimeout time.Duration
	Logger         *log.Logger
}

// Orchestrator drives scanners over a project in priority order.
type Orchestrator struct {
	opts   Options
	logger *log.Logger
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Orchestrator{opts: opts, logger: logger}
}

// Run executes every scanner and returns the completed results in execution
// order. A scanner that errors, panics or times out gets a failed result; it
// never stops the remaining scanners. Ids must be unique: a later scanner
// reusing an id is not run and is logged as an error.
func (o *Orchestrator) Run(ctx context.Context, scanners []scanner.Scanner, base *scanner.Context) *scanner.Results {
	results := scanner.NewResults()
	started := time.Now()

	for _, tier := range tiers(scanner.SortByPriority(o.unique(scanners))) {
		if o.opts.Concurrency > 1 && len(tier) > 1 {
			results = o.runTier(ctx, tier, base, results)
			continue
		}
		for _, s := range tier {
			res, applied := o.turn(ctx, s, base.WithPrevious(results))
			if !applied {
				results = results.Skip(s.ID())
				continue
			}
			results = results.Append(scanner.Entry{ScannerID: s.ID(), Priority: s.Priority(), Result: res})
		}
	}

	o.logger.Info().
		Int("completed", results.Len()).
		Int("skipped", len(results.Skipped())).
		Dur("duration", time.Since(started)).
		Msg("scan finished")
	return results
}

// runTier runs one priority tier concurrently against the same previous-results
// view and merges in discovery order.
func (o *Orchestrator) runTier(ctx context.Context, tier []scanner.Scanner, base *scanner.Context, results *scanner.Results) *scanner.Results {
	type outcome struct {
		res     *scanner.Result
		applied bool
	}
	view := base.WithPrevious(results)
	outcomes := make([]outcome, len(tier))

	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, s := range tier {
		g.Go(func() error {
			res, applied := o.turn(ctx, s, view)
			outcomes[i] = outcome{res: res, applied: applied}
			return nil
		})
	}
	_ = g.Wait()

	for i, s := range tier {
		if !outcomes[i].applied {
			results = results.Skip(s.ID())
			continue
		}
		results = results.Append(scanner.Entry{ScannerID: s.ID(), Priority: s.Priority(), Result: outcomes[i].res})
	}
	return results
}

// turn evaluates applicability and scans. applied is false only for a scanner
// that reported it does not apply.
func (o *Orchestrator) turn(ctx context.Context, s scanner.Scanner, sc *scanner.Context) (*scanner.Result, bool) {
	id := s.ID()
	logger := o.logger

	if err := ctx.Err(); err != nil {
		return scanner.Failed(id, fmt.Sprintf("scan cancelled: %v", err)), true
	}

	applies, fault := o.applies(s, sc)
	if fault != nil {
		return fault, true
	}
	if !applies {
		logger.Debug().Str("scanner", id).Msg("scanner not applicable")
		return nil, false
	}

	logger.Debug().Str("scanner", id).Int("priority", s.Priority()).Msg("scanner started")
	started := time.Now()
	res := o.scan(ctx, s, sc)
	res.Duration = time.Since(started)

	if res.Success {
		logger.Info().
			Str("scanner", id).
			Int("findings", res.FindingsCount()).
			Int("warnings", len(res.Warnings)).
			Dur("duration", res.Duration).
			Msg("scanner completed")
	} else {
		logger.Warn().
			Str("scanner", id).
			Strs("errors", res.Errors).
			Dur("duration", res.Duration).
			Msg("scanner failed")
	}
	return res, true
}

func (o *Orchestrator) applies(s scanner.Scanner, sc *scanner.Context) (ok bool, fault *scanner.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logPanic(s.ID(), r)
			ok, fault = false, scanner.Failed(s.ID(), fmt.Sprintf("applicability check panicked: %v", r))
		}
	}()
	return s.AppliesTo(sc), nil
}

// scan runs one scanner inside the fault boundary. With a timeout the scanner
// runs in its own goroutine; a scanner that ignores cancellation keeps running
// in the background after its turn has been recorded as failed.
func (o *Orchestrator) scan(ctx context.Context, s scanner.Scanner, sc *scanner.Context) *scanner.Result {
	if o.opts.ScannerTimeout <= 0 {
		return o.guarded(ctx, s, sc)
	}

	runCtx, cancel := context.WithTimeout(ctx, o.opts.ScannerTimeout)
	defer cancel()

	done := make(chan *scanner.Result, 1)
	go func() {
		done <- o.guarded(runCtx, s, sc)
	}()

	select {
	case res := <-done:
		if res.Success || !errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return res
		}
	case <-runCtx.Done():
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		o.logger.Error().Str("scanner", s.ID()).Dur("timeout", o.opts.ScannerTimeout).Msg("scanner timed out")
		return scanner.Failed(s.ID(), fmt.Sprintf("scanner timed out after %s", o.opts.ScannerTimeout))
	}
	return scanner.Failed(s.ID(), fmt.Sprintf("scan cancelled: %v", runCtx.Err()))
}

func (o *Orchestrator) guarded(ctx context.Context, s scanner.Scanner, sc *scanner.Context) (res *scanner.Result) {
	id := s.ID()
	defer func() {
		if r := recover(); r != nil {
			o.logPanic(id, r)
			res = scanner.Failed(id, fmt.Sprintf("scanner panicked: %v", r))
		}
	}()

	res, err := s.Scan(ctx, sc)
	if err != nil {
		return scanner.Failed(id, err.Error())
	}
	if res == nil {
		return scanner.Failed(id, "scanner returned no result")
	}
	res = res.Clone()
	res.ScannerID = id
	res.Normalize()
	return res
}

func (o *Orchestrator) logPanic(id string, r any) {
	o.logger.Error().
		Str("scanner", id).
		Interface("panic", r).
		Str("stack", string(debug.Stack())).
		Msg("scanner panic recovered")
}

// unique drops scanners whose id was already seen, keeping the first.
func (o *Orchestrator) unique(scanners []scanner.Scanner) []scanner.Scanner {
	seen := make(map[string]struct{}, len(scanners))
	out := make([]scanner.Scanner, 0, len(scanners))
	for _, s := range scanners {
		if _, dup := seen[s.ID()]; dup {
			o.logger.Error().Str("scanner", s.ID()).Msg("duplicate scanner id, not run")
			continue
		}
		seen[s.ID()] = struct{}{}
		out = append(out, s)
	}
	return out
}

// tiers splits priority-sorted scanners into runs of equal priority.
func tiers(sorted []scanner.Scanner) [][]scanner.Scanner {
	var out [][]scanner.Scanner
	for i, s := range sorted {
		if i == 0 || s.Priority() != sorted[i-1].Priority() {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], s)
	}
	return out
}

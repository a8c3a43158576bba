package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bit2swaz/rotate-backups/internal/rotation"
	"github.com/bit2swaz/rotate-backups/pkg/observability"
)

const (
	DefaultConcurrency   = 4
	DefaultDeleteWorkers = 4
)

// Options configures an Executor.
type Options struct {
	Opener        Opener
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Concurrency   int
	DeleteWorkers int
}

// Executor lists targets, plans their rotation and removes discarded backups.
type Executor struct {
	open          Opener
	logger        *zap.Logger
	metrics       *observability.Metrics
	concurrency   int
	deleteWorkers int
}

// NewExecutor creates an Executor, filling unset options with defaults.
func NewExecutor(opts Options) *Executor {
	if opts.Opener == nil {
		opts.Opener = NewOpener(BackendOptions{})
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.DeleteWorkers < 1 {
		opts.DeleteWorkers = DefaultDeleteWorkers
	}
	return &Executor{
		open:          opts.Opener,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		concurrency:   opts.Concurrency,
		deleteWorkers: opts.DeleteWorkers,
	}
}

// Run rotates every target, at most Concurrency at a time. A failing target
// never stops the others; results keep the order of targets.
func (e *Executor) Run(ctx context.Context, targets []Target) RunSummary {
	runID := uuid.NewString()
	results := make([]TargetResult, len(targets))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, target := range targets {
		g.Go(func() error {
			results[i] = e.runTarget(ctx, runID, target)
			return nil
		})
	}
	_ = g.Wait()

	return RunSummary{RunID: runID, Results: results}
}

// RunTarget rotates a single target under a fresh run ID.
func (e *Executor) RunTarget(ctx context.Context, target Target) TargetResult {
	return e.runTarget(ctx, uuid.NewString(), target)
}

func (e *Executor) runTarget(ctx context.Context, runID string, target Target) TargetResult {
	start := time.Now()
	result := TargetResult{Location: target.Location, RunID: runID}
	logger := e.logger.With(zap.String("location", target.Location), zap.String("run_id", runID))

	defer func() {
		result.Elapsed = time.Since(start)
		e.metrics.ObserveTarget(result.Location, result.Elapsed, result.Failed())
		if result.Err != nil {
			logger.Error("rotation failed", zap.Error(result.Err))
		}
	}()

	rotator, err := newRotator(target)
	if err != nil {
		result.Err = err
		return result
	}

	driver, err := e.open(ctx, target.Location)
	if err != nil {
		result.Err = &rotation.StorageError{Operation: "open", Location: target.Location, Err: err}
		return result
	}
	result.Location = driver.Location()

	logger.Info("scanning for backups", zap.Stringer("scheme", rotator.Scheme()), zap.Bool("dry_run", target.DryRun))
	names, err := driver.List(ctx)
	if err != nil {
		result.Err = &rotation.StorageError{Operation: "list", Location: result.Location, Err: err}
		return result
	}

	plan, excluded := rotator.Plan(result.Location, names)
	result.Plan = plan
	result.Excluded = excluded

	e.metrics.ObserveExcluded(result.Location, len(excluded))
	for _, ex := range excluded {
		logger.Debug("excluded from rotation", zap.String("name", ex.Name), zap.String("reason", ex.Reason))
	}
	for _, d := range plan.Decisions {
		e.metrics.ObserveDecision(result.Location, d.Action.String())
		if d.Action == rotation.Keep {
			logger.Debug("preserving", zap.String("name", d.Name), zap.String("reason", d.Reason()))
		}
	}

	discarded := plan.Discarded()
	logger.Info("rotation planned",
		zap.Int("candidates", len(plan.Decisions)),
		zap.Int("keep", len(plan.Decisions)-len(discarded)),
		zap.Int("discard", len(discarded)),
		zap.Int("excluded", len(excluded)),
	)
	if len(discarded) == 0 {
		logger.Info("nothing to do")
		return result
	}

	if plan.DryRun {
		for _, d := range discarded {
			logger.Info(plan.Verb(), zap.String("name", d.Name), zap.String("reason", d.Reason()))
		}
		return result
	}

	names = make([]string, len(discarded))
	for i, d := range discarded {
		names[i] = d.Name
	}
	result.Deleted, result.Failures = e.deleteAll(ctx, logger, driver, names)
	return result
}

func newRotator(target Target) (*rotation.Rotator, error) {
	scheme, err := rotation.NewScheme(target.Retention)
	if err != nil {
		return nil, err
	}
	rules, err := readIgnoreFile(target.ExcludeFile)
	if err != nil {
		return nil, err
	}
	return rotation.NewRotator(rotation.Options{
		Scheme:      scheme,
		Include:     target.Include,
		Exclude:     target.Exclude,
		IgnoreRules: rules,
		DryRun:      target.DryRun,
	})
}

func readIgnoreFile(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &rotation.ConfigurationError{Field: "exclude-file", Value: path, Reason: "file does not exist"}
		}
		return nil, fmt.Errorf("read exclude file %s: %w", path, err)
	}
	return strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"), nil
}

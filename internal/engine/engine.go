// Package engine orchestrates the analysis pipeline: symbol extraction,
// classification, anti-pattern detection, scoring, optional baseline
// diffing, and report compilation.
//
// Stage ordering is strict. The detector never starts before classification
// has fully completed, since it reads (and never alters) classifications.
package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"dddlens/internal/antipattern"
	"dddlens/internal/baseline"
	"dddlens/internal/classify"
	"dddlens/internal/config"
	"dddlens/internal/report"
	"dddlens/internal/rules"
	"dddlens/internal/symbol"
)

// Options selects per-run behavior.
type Options struct {
	// Baseline enables diff mode. Nil runs fresh-mode only.
	Baseline *baseline.Artifact

	// Aliases are explicit rename hints for the differ (old ID -> new ID).
	Aliases map[symbol.ID]symbol.ID
}

// Result carries the compiled report plus the artifacts a caller may want to
// persist for the next run.
type Result struct {
	Report   *report.Report
	Graph    *symbol.Graph
	Snapshot *baseline.Artifact
}

// Engine wires the pipeline stages around one immutable config and registry.
type Engine struct {
	cfg *config.Config
	reg *rules.Registry
	log *zap.Logger
}

// New creates an engine. The registry must already be validated; NewRegistry
// guarantees that.
func New(cfg *config.Config, reg *rules.Registry, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cfg: cfg, reg: reg, log: log}
}

// NewWithBuiltinRules builds an engine over the builtin registry, applying
// the configured weight overrides if any. Registry problems abort before any
// symbol is processed.
func NewWithBuiltinRules(cfg *config.Config, log *zap.Logger) (*Engine, error) {
	ruleSet := rules.Builtin()
	if cfg.RuleOverrides != "" {
		weights, err := rules.LoadOverrides(cfg.RuleOverrides)
		if err != nil {
			return nil, err
		}
		ruleSet, err = rules.ApplyOverrides(ruleSet, weights)
		if err != nil {
			return nil, err
		}
	}
	reg, err := rules.NewRegistry(ruleSet)
	if err != nil {
		return nil, err
	}
	return New(cfg, reg, log), nil
}

// Registry exposes the frozen rule set, for listings.
func (e *Engine) Registry() *rules.Registry {
	return e.reg
}

// Run executes the pipeline over the given source units.
//
// Recoverable per-unit failures surface as Skipped diagnostics in the
// report. Whole-run cancellation stops in-flight workers promptly and
// yields a partial report explicitly marked incomplete, covering only the
// units finished so far. Structural errors (schema mismatch in diff mode)
// abort with no report.
func (e *Engine) Run(ctx context.Context, units []symbol.SourceUnit, opts Options) (*Result, error) {
	e.log.Info("starting analysis run",
		zap.Int("units", len(units)),
		zap.Int("rules", e.reg.Len()),
		zap.Bool("diff_mode", opts.Baseline != nil))

	// Stage 1: symbol graph.
	builder := symbol.NewBuilder(e.cfg.Scan.Workers, e.cfg.UnitTimeoutDuration(), e.log)
	graph, buildErr := builder.Build(ctx, units)
	incomplete := false
	if buildErr != nil {
		if !errors.Is(buildErr, context.Canceled) && !errors.Is(buildErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("symbol extraction failed: %w", buildErr)
		}
		incomplete = true
		e.log.Warn("run cancelled during symbol extraction; continuing with partial graph",
			zap.Int("symbols", graph.Len()))
	}

	// Stage 2: classification against the read-only graph snapshot.
	// A cancelled build still classifies what finished; classification
	// itself runs under a background context so the partial report is
	// internally consistent.
	classifyCtx := ctx
	if incomplete {
		classifyCtx = context.Background()
	}
	classifier := classify.New(e.reg, e.cfg.Thresholds, e.cfg.Scan.Workers, e.log)
	cls, err := classifier.Classify(classifyCtx, graph)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Cancelled mid-classification: emit what we can, sequentially.
			incomplete = true
			cls, err = classifier.Classify(context.Background(), graph)
		}
		if err != nil {
			return nil, fmt.Errorf("classification failed: %w", err)
		}
	}

	// Stage barrier: detection starts only after classification completed.
	detector := antipattern.New(e.cfg.AntiPatterns, e.log)
	findings := detector.Detect(graph, cls)

	snapshot := baseline.Snapshot(graph, cls)

	// Stage 3 (diff mode): compare against the stored baseline.
	var changes []baseline.ChangeRecord
	if opts.Baseline != nil {
		differ := baseline.NewDiffer(e.log)
		changes, err = differ.Diff(opts.Baseline, snapshot, opts.Aliases)
		if err != nil {
			return nil, err
		}
	}

	rep := report.Compile(cls, findings, changes, graph.Skipped(), incomplete)
	e.log.Info("analysis run complete",
		zap.String("run_id", rep.RunID),
		zap.Int("classifications", len(cls)),
		zap.Int("findings", len(findings)),
		zap.Int("changes", len(changes)),
		zap.Int("skipped", len(rep.Skipped)),
		zap.Bool("incomplete", incomplete))

	return &Result{Report: rep, Graph: graph, Snapshot: snapshot}, nil
}

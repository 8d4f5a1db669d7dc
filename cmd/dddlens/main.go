// dddlens scans parsed source declarations, classifies them into tactical
// DDD roles, flags structural anti-patterns, and diffs classified graphs
// across revisions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dddlens/internal/baseline"
	"dddlens/internal/config"
	"dddlens/internal/engine"
	"dddlens/internal/frontend"
	"dddlens/internal/symbol"
	"dddlens/internal/watch"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Scan/diff flags
	descriptorPath string
	outputPath     string
	saveBaseline   string
	baselinePath   string
	storePath      string
	storeLabel     string
	aliasFlags     []string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dddlens",
	Short: "dddlens - tactical DDD pattern classification for source code",
	Long: `dddlens classifies type declarations into tactical Domain-Driven-Design
roles (aggregate root, entity, value object, domain service, ...) using a
weighted heuristic rule registry, detects structural anti-patterns over the
classified graph, and diffs classifications between revisions.

Input is either a directory of Go source or a JSON descriptor of pre-parsed
declarations produced by an external front end.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// scanCmd runs a fresh analysis pass
var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Classify declarations and detect anti-patterns",
	Long: `Runs the full pipeline over a source tree or descriptor:
  1. Extract: normalize pre-parsed declarations into a symbol graph
  2. Classify: score every symbol against the rule registry
  3. Detect: run anti-pattern checks over the classified graph
  4. Report: emit classifications, findings, and skipped-unit diagnostics

Example:
  dddlens scan ./internal --save-baseline baseline.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

// diffCmd runs analysis and compares against a stored baseline
var diffCmd = &cobra.Command{
	Use:   "diff [path]",
	Short: "Classify and diff against a prior baseline",
	Long: `Runs the full pipeline, then diffs the classified graph against a
baseline from --baseline (JSON file) or --store/--label (SQLite store).

Renames are not matched automatically; pass explicit hints:
  dddlens diff ./internal --baseline prior.json --alias 'a.go#OrderId=a.go#OrderIdentifier'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiff,
}

// rulesCmd lists the rule registry
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the classification rule registry",
	RunE:  runRules,
}

// watchCmd rescans on source changes
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Rescan on change and log classification drift",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config")

	for _, c := range []*cobra.Command{scanCmd, diffCmd} {
		c.Flags().StringVar(&descriptorPath, "descriptor", "", "JSON descriptor of pre-parsed units (instead of a source path)")
		c.Flags().StringVarP(&outputPath, "output", "o", "", "write the report to a file instead of stdout")
	}
	scanCmd.Flags().StringVar(&saveBaseline, "save-baseline", "", "write the classified graph to a baseline JSON file")
	scanCmd.Flags().StringVar(&storePath, "store", "", "baseline store database path")
	scanCmd.Flags().StringVar(&storeLabel, "label", "", "label to save this run under in the store")

	diffCmd.Flags().StringVar(&baselinePath, "baseline", "", "baseline JSON file to diff against")
	diffCmd.Flags().StringVar(&storePath, "store", "", "baseline store database path")
	diffCmd.Flags().StringVar(&storeLabel, "label", "", "baseline label to diff against")
	diffCmd.Flags().StringArrayVar(&aliasFlags, "alias", nil, "rename hint old-id=new-id (repeatable)")

	rootCmd.AddCommand(scanCmd, diffCmd, rulesCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildEngine loads config and freezes the rule registry.
func buildEngine() (*engine.Engine, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.NewWithBuiltinRules(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return eng, cfg, nil
}

// loadUnits resolves the input: a descriptor file or a Go source tree.
func loadUnits(cfg *config.Config, args []string) ([]symbol.SourceUnit, error) {
	if descriptorPath != "" {
		return frontend.LoadDescriptor(descriptorPath)
	}
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	extractor := frontend.NewGoExtractor(cfg.Scan.IgnorePatterns, logger)
	return extractor.Walk(root)
}

// signalContext cancels on SIGINT/SIGTERM so a run degrades to a partial
// report instead of dying mid-write.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

func runScan(cmd *cobra.Command, args []string) error {
	eng, cfg, err := buildEngine()
	if err != nil {
		return err
	}
	units, err := loadUnits(cfg, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	res, err := eng.Run(ctx, units, engine.Options{})
	if err != nil {
		return err
	}

	if saveBaseline != "" {
		if err := res.Snapshot.SaveFile(saveBaseline); err != nil {
			return err
		}
		logger.Info("baseline saved", zap.String("path", saveBaseline))
	}
	if storePath != "" && storeLabel != "" {
		store, err := baseline.NewStore(storePath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(storeLabel, res.Snapshot); err != nil {
			return err
		}
		logger.Info("baseline stored", zap.String("label", storeLabel))
	}

	return emitReport(res)
}

func runDiff(cmd *cobra.Command, args []string) error {
	eng, cfg, err := buildEngine()
	if err != nil {
		return err
	}

	var base *baseline.Artifact
	switch {
	case baselinePath != "":
		base, err = baseline.LoadFile(baselinePath)
	case storePath != "" && storeLabel != "":
		var store *baseline.Store
		store, err = baseline.NewStore(storePath)
		if err != nil {
			return err
		}
		defer store.Close()
		base, err = store.Load(storeLabel)
	default:
		return fmt.Errorf("diff requires --baseline or --store with --label")
	}
	if err != nil {
		return err
	}

	aliases, err := parseAliases(aliasFlags)
	if err != nil {
		return err
	}

	units, err := loadUnits(cfg, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	res, err := eng.Run(ctx, units, engine.Options{Baseline: base, Aliases: aliases})
	if err != nil {
		return err
	}
	return emitReport(res)
}

func runRules(cmd *cobra.Command, args []string) error {
	eng, _, err := buildEngine()
	if err != nil {
		return err
	}
	for _, r := range eng.Registry().Rules() {
		fmt.Printf("%-42s  %-22s  weight=%-4.1f  %s\n", r.ID, r.Role, r.Weight, r.Doc)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	eng, cfg, err := buildEngine()
	if err != nil {
		return err
	}
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	extractor := frontend.NewGoExtractor(cfg.Scan.IgnorePatterns, logger)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	logger.Info("watching for changes", zap.String("root", root))
	w := watch.New(root, eng, extractor, 0, logger)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// parseAliases parses repeated "old=new" rename hints.
func parseAliases(flags []string) (map[symbol.ID]symbol.ID, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(map[symbol.ID]symbol.ID, len(flags))
	for _, f := range flags {
		parts := strings.SplitN(f, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid alias %q: expected old-id=new-id", f)
		}
		out[symbol.ID(parts[0])] = symbol.ID(parts[1])
	}
	return out, nil
}

// emitReport writes the compiled report to the selected destination.
func emitReport(res *engine.Result) error {
	data, err := res.Report.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		logger.Info("report written", zap.String("path", outputPath))
		return nil
	}
	fmt.Println(string(data))
	return nil
}

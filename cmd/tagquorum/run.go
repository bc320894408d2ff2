package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tagquorum/tagquorum/internal/config"
	"github.com/tagquorum/tagquorum/internal/consensus"
	"github.com/tagquorum/tagquorum/internal/database"
	"github.com/tagquorum/tagquorum/internal/log"
	"github.com/tagquorum/tagquorum/internal/model"
	"github.com/tagquorum/tagquorum/internal/pipeline"
	"github.com/tagquorum/tagquorum/internal/report"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [batch-file...]",
		Short: "Compute consensus for one or more task batches",
		Long: `Run computes highlight consensus for task annotation batches.

Each batch file is a JSON document holding one task's annotations:

  {
    "task_uuid": "4b33...",
    "annotations": [
      {"start_pos": 0, "end_pos": 4, "target_text": "What", ...},
      ...
    ]
  }

Annotations below the minimum redundancy are dropped, the remaining
contributors' highlights are reduced to per-position agreement counts,
and positions that clear the pass threshold are emitted as maximal
contiguous ranges with reconstructed text.

Examples:
  # Compute highlight consensus for a single task
  tagquorum run task.json

  # Compute answer consensus (placeholder rows for highlight-free answers)
  tagquorum run --answers task.json

  # Process many tasks concurrently with custom thresholds
  tagquorum run --batch 8 --pass-threshold 3 tasks/*.json

  # Output a Markdown report to a file
  tagquorum run --markdown -o report.md task.json

Configuration file (.tagquorum) example:
  defaults:
    minimum_redundancy: 3
    pass_threshold: 2
  tasks:
    "4b3341c4-16b8-43d4-bb83-5e9ee8d3d81c":
      pass_threshold: 3`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	// Agreement flags
	cmd.Flags().IntP("min-redundancy", "r", config.DefaultMinimumRedundancy,
		"Minimum taskrun count an annotation needs to be trusted")
	cmd.Flags().IntP("pass-threshold", "p", config.DefaultPassThreshold,
		"Distinct-contributor agreement count a position must reach")
	cmd.Flags().BoolP("answers", "a", false,
		"Answer-consensus mode: emit placeholder rows for highlight-free answers")

	// Batch processing flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of task batches processed concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .tagquorum in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Persistence flags
	cmd.Flags().Bool("no-db", false,
		"Do not save run results to the history database")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with contributor-identity redaction
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runConsensus(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.MinimumRedundancy, err = cmd.Flags().GetInt("min-redundancy")
	if err != nil {
		return nil, err
	}

	cfg.PassThreshold, err = cmd.Flags().GetInt("pass-threshold")
	if err != nil {
		return nil, err
	}

	cfg.AnswerMode, err = cmd.Flags().GetBool("answers")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load per-task configurations from the config file.
	// If the user explicitly specified a path, error if it is missing;
	// otherwise silently fall back to an empty config.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.TaskConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.TaskConfigs = &config.File{
			Tasks: make(map[string]config.TaskConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.DBDir = config.XDGDataDir()

	cfg.Verbose = getVerboseFlag(cmd)

	// Positional arguments are the task batch files
	cfg.Inputs = args

	return cfg, nil
}

// runConsensus executes the consensus runs.
func runConsensus(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if len(cfg.Inputs) == 0 {
		return errors.New("no inputs provided (specify one or more task batch files as arguments)")
	}

	logger.Info("starting consensus processing",
		"inputs", len(cfg.Inputs),
		"answerMode", cfg.AnswerMode,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.ConsensusDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close() //nolint:errcheck // Best-effort close on exit
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	factory := pipelineFactory(cfg, db, logger)

	// Use batch processor for parallel processing if multiple inputs
	if len(cfg.Inputs) > 1 && cfg.BatchSize > 1 {
		return runBatch(ctx, cfg, factory, logger)
	}

	return runSequential(ctx, cfg, factory, logger)
}

// pipelineFactory builds the per-task pipeline constructor.
func pipelineFactory(cfg *config.Config, db *database.ConsensusDB, logger *slog.Logger) func(path string) *pipeline.Pipeline {
	settingsFor := func(taskUUID string) consensus.Settings {
		return cfg.Settings(taskUUID)
	}

	return func(path string) *pipeline.Pipeline {
		p := pipeline.New(pipeline.WithLogger(logger))
		p.AddSteps(
			pipeline.NewLoadStep(path, pipeline.WithLoadLogger(logger)),
			pipeline.NewConsensusStep(settingsFor,
				pipeline.WithAnswerMode(cfg.AnswerMode),
				pipeline.WithConsensusLogger(logger),
			),
			pipeline.NewStoreStep(db, pipeline.WithStoreLogger(logger)),
		)
		return p
	}
}

// runSequential processes task batches one at a time.
func runSequential(ctx context.Context, cfg *config.Config, factory func(string) *pipeline.Pipeline, logger *slog.Logger) error {
	var failed int
	for _, path := range cfg.Inputs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result := model.NewTaskResult("")
		result.SourcePath = path

		fmt.Printf("Processing %s...\n", path)
		startTime := time.Now()

		if err := factory(path).Execute(ctx, result); err != nil {
			logger.Error("processing failed", "path", path, "error", err)
			fmt.Fprintf(os.Stderr, "Processing error for %s: %v\n", path, err)
			failed++
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Processed in %s\n\n", elapsed.Round(time.Millisecond))

		if err := outputReport(cfg, result); err != nil {
			logger.Error("report failed", "path", path, "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d task batch(es) failed", failed, len(cfg.Inputs))
	}
	return nil
}

// runBatch processes task batches concurrently using BatchProcessor.
func runBatch(ctx context.Context, cfg *config.Config, factory func(string) *pipeline.Pipeline, logger *slog.Logger) error {
	fmt.Printf("Starting batch processing of %d tasks (concurrency: %d)...\n\n",
		len(cfg.Inputs), cfg.BatchSize)

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.BatchSize),
	)

	results, err := bp.ProcessBatch(ctx, cfg.Inputs)
	if err != nil {
		return err
	}

	var failed int
	for _, result := range results {
		if result == nil {
			continue
		}
		if result.Err != nil {
			fmt.Fprintf(os.Stderr, "Processing error for %s: %s\n", result.SourcePath, result.ErrorMessage)
			failed++
			continue
		}
		if err := outputReport(cfg, result); err != nil {
			logger.Error("report failed", "path", result.SourcePath, "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d task batch(es) failed", failed, len(cfg.Inputs))
	}
	return nil
}

// outputReport writes the result in the configured format to stdout and,
// if requested, to the report file.
func outputReport(cfg *config.Config, result *model.TaskResult) error {
	writers := []report.Writer{newReportWriter(cfg, os.Stdout)}

	var file *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}

		var err error
		file, err = os.OpenFile(cfg.ReportFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to open report file: %w", err)
		}
		defer file.Close() //nolint:errcheck // Error on close of output file is not actionable
		writers = append(writers, newReportWriter(cfg, file))
	}

	_, err := report.NewMultiWriter(writers...).Write(result)
	return err
}

// newReportWriter creates the writer matching the configured format.
func newReportWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out)
	}
}

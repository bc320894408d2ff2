package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tagquorum/tagquorum/internal/consensus"
	"github.com/tagquorum/tagquorum/internal/database"
	"github.com/tagquorum/tagquorum/internal/model"
)

// LoadStep reads and validates one task batch file.
// It fills the result's task identity, source path, and raw annotations.
type LoadStep struct {
	// path is the batch file to read.
	path string

	// logger for structured logging.
	logger *slog.Logger
}

// LoadStepOption configures a LoadStep.
type LoadStepOption func(*LoadStep)

// WithLoadLogger sets a custom logger for the load step.
func WithLoadLogger(logger *slog.Logger) LoadStepOption {
	return func(s *LoadStep) {
		s.logger = logger
	}
}

// NewLoadStep creates a step that loads the batch file at path.
func NewLoadStep(path string, opts ...LoadStepOption) *LoadStep {
	s := &LoadStep{
		path:   path,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	return "load"
}

// Do reads the batch file and validates its records.
func (s *LoadStep) Do(_ context.Context, result *model.TaskResult) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	batch, err := model.ReadBatch(f)
	if err != nil {
		return fmt.Errorf("failed to read batch %s: %w", s.path, err)
	}

	result.TaskUUID = batch.TaskUUID
	result.SourcePath = s.path
	result.Annotations = batch.Annotations
	result.AnnotationCount = len(batch.Annotations)

	s.logger.Debug("batch loaded",
		"task_uuid", batch.TaskUUID,
		"path", s.path,
		"annotations", len(batch.Annotations),
	)

	return nil
}

// ConsensusStep runs the aggregation core over the loaded annotations and
// stores the output rows in the result.
type ConsensusStep struct {
	// settingsFor resolves the agreement settings for a task, applying
	// per-task configuration overrides.
	settingsFor func(taskUUID string) consensus.Settings

	// answerMode selects answer-consensus extraction.
	answerMode bool

	// logger for structured logging.
	logger *slog.Logger
}

// ConsensusStepOption configures a ConsensusStep.
type ConsensusStepOption func(*ConsensusStep)

// WithAnswerMode selects answer-consensus extraction, which emits a
// placeholder row for topics chosen by enough contributors even without
// passing highlights.
func WithAnswerMode(answerMode bool) ConsensusStepOption {
	return func(s *ConsensusStep) {
		s.answerMode = answerMode
	}
}

// WithConsensusLogger sets a custom logger for the consensus step.
func WithConsensusLogger(logger *slog.Logger) ConsensusStepOption {
	return func(s *ConsensusStep) {
		s.logger = logger
	}
}

// NewConsensusStep creates the aggregation step. settingsFor is called once
// per task with the task's UUID and must return the agreement settings to
// use; pass a function returning the zero value to use defaults.
func NewConsensusStep(settingsFor func(taskUUID string) consensus.Settings, opts ...ConsensusStepOption) *ConsensusStep {
	s := &ConsensusStep{
		settingsFor: settingsFor,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ConsensusStep) Name() string {
	return "consensus"
}

// Do ingests the annotations and extracts consensus rows.
func (s *ConsensusStep) Do(_ context.Context, result *model.TaskResult) error {
	started := time.Now()

	settings := s.settingsFor(result.TaskUUID)
	proc := consensus.NewProcessor(result.TaskUUID, settings, consensus.WithLogger(s.logger))

	dropped, err := proc.Consider(result.Annotations)
	if err != nil {
		return fmt.Errorf("ingestion failed for task %s: %w", result.TaskUUID, err)
	}

	var rows []model.ConsensusRow
	if s.answerMode {
		rows, err = proc.AnswerConsensus()
	} else {
		rows, err = proc.Consensus()
	}
	if err != nil {
		return fmt.Errorf("extraction failed for task %s: %w", result.TaskUUID, err)
	}

	result.AnswerMode = s.answerMode
	result.DroppedCount = dropped
	result.TopicCount = proc.TopicCount()
	result.ArticleSHA256 = proc.Article().SHA256()
	result.ArticleFilename = proc.Article().Filename()
	result.Rows = rows
	result.Elapsed = time.Since(started)

	s.logger.Debug("consensus computed",
		"task_uuid", result.TaskUUID,
		"dropped", dropped,
		"topics", result.TopicCount,
		"rows", len(rows),
		"elapsed", result.Elapsed,
	)

	return nil
}

// StoreStep persists the result in the history database.
type StoreStep struct {
	// db is the history database; nil disables persistence.
	db *database.ConsensusDB

	// logger for structured logging.
	logger *slog.Logger
}

// StoreStepOption configures a StoreStep.
type StoreStepOption func(*StoreStep)

// WithStoreLogger sets a custom logger for the store step.
func WithStoreLogger(logger *slog.Logger) StoreStepOption {
	return func(s *StoreStep) {
		s.logger = logger
	}
}

// NewStoreStep creates the persistence step. A nil db makes the step a
// no-op, which keeps pipeline assembly uniform whether or not persistence
// is enabled.
func NewStoreStep(db *database.ConsensusDB, opts ...StoreStepOption) *StoreStep {
	s := &StoreStep{
		db:     db,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return "store"
}

// Do saves the result, if a database is configured.
func (s *StoreStep) Do(ctx context.Context, result *model.TaskResult) error {
	if s.db == nil {
		return nil
	}

	runID, err := s.db.SaveRun(ctx, result)
	if err != nil {
		return fmt.Errorf("failed to save run for task %s: %w", result.TaskUUID, err)
	}

	s.logger.Debug("run saved",
		"task_uuid", result.TaskUUID,
		"run_id", runID,
	)

	return nil
}

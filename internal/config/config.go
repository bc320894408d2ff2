package config

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/tagquorum/tagquorum/internal/consensus"
)

// Default configuration values.
const (
	// DefaultMinimumRedundancy mirrors the aggregation core's default:
	// annotations backed by fewer independent task attempts are dropped
	// before aggregation.
	DefaultMinimumRedundancy = consensus.DefaultMinimumRedundancy

	// DefaultPassThreshold mirrors the aggregation core's default: the
	// distinct-contributor agreement count a position must reach.
	DefaultPassThreshold = consensus.DefaultPassThreshold

	// DefaultBatchSize is the number of task batches processed
	// concurrently. Each task gets its own processor instance, so
	// concurrency across tasks is safe; within a task processing is
	// strictly sequential.
	DefaultBatchSize = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "tagquorum"
)

// Config holds all configuration options for a tagquorum invocation.
// It is populated from CLI flags and the optional config file, validated
// once, and passed through the application by value reference rather than
// global state.
type Config struct {
	// MinimumRedundancy is the taskrun-count floor below which
	// annotations are discarded.
	MinimumRedundancy int

	// PassThreshold is the distinct-contributor agreement count a
	// position must reach to count toward consensus.
	PassThreshold int

	// AnswerMode selects answer-consensus extraction: topics chosen by
	// enough contributors emit a placeholder row even without passing
	// highlight positions.
	AnswerMode bool

	// BatchSize is the number of task batches processed concurrently.
	BatchSize int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty,
	// the tool searches for .tagquorum in the current directory and then
	// in the user's home directory.
	ConfigFilePath string

	// TaskConfigs holds per-task overrides loaded from the config file.
	TaskConfigs *File

	// JSONReport enables JSON report output instead of the
	// human-readable format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report. When set, the
	// report is written there instead of stdout.
	ReportFile string

	// Inputs is the list of task batch files to process. Each file
	// holds the complete annotation batch for one task.
	Inputs []string

	// DBDir is the directory for the SQLite history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether to persist run results to the database.
	SaveToDB bool
}

// NewConfig creates a Config with default values. Many defaults are
// non-zero, so relying on zero values would be wrong; this constructor also
// documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		MinimumRedundancy: DefaultMinimumRedundancy,
		PassThreshold:     DefaultPassThreshold,
		BatchSize:         DefaultBatchSize,
	}
}

// Settings resolves the agreement settings for one task, applying the
// config file's per-task overrides on top of the command-line values.
func (c *Config) Settings(taskUUID string) consensus.Settings {
	s := consensus.Settings{
		MinimumRedundancy: c.MinimumRedundancy,
		PassThreshold:     c.PassThreshold,
	}
	if c.TaskConfigs != nil {
		tc := c.TaskConfigs.GetTaskConfig(taskUUID)
		if tc.MinimumRedundancy != 0 {
			s.MinimumRedundancy = tc.MinimumRedundancy
		}
		if tc.PassThreshold != 0 {
			s.PassThreshold = tc.PassThreshold
		}
	}
	return s
}

// XDGDataDir returns the XDG data directory for tagquorum.
// On Linux: ~/.local/share/tagquorum
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for tagquorum.
// On Linux: ~/.config/tagquorum
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid. It is called once after
// CLI parsing, before any processing begins, and returns the first error
// found.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInput
	}

	if c.MinimumRedundancy < 1 {
		return ErrInvalidRedundancy
	}

	if c.PassThreshold < 1 {
		return ErrInvalidThreshold
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

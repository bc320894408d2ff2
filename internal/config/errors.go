package config

import "errors"

// Configuration validation errors.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoInput is returned when no task batch file is specified.
	ErrNoInput = errors.New("no input specified: provide one or more task batch files")

	// ErrInvalidRedundancy is returned when the minimum redundancy is
	// below one. A floor of zero would admit annotations with no backing
	// task attempts at all.
	ErrInvalidRedundancy = errors.New("invalid minimum redundancy: must be at least 1")

	// ErrInvalidThreshold is returned when the pass threshold is below
	// one. A threshold of zero would mark every mentioned position as
	// consensus.
	ErrInvalidThreshold = errors.New("invalid pass threshold: must be at least 1")

	// ErrInvalidBatchSize is returned when the batch size is not
	// positive. A batch size of zero would mean no tasks are processed.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used at a
	// time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)

// Package model defines the core data structures for tagquorum.
// It contains the annotation input records, the consensus output rows,
// and the per-task result structure passed through the processing pipeline.
//
// Design decision: Data structures are kept separate from the logic that
// produces them (internal/consensus) and the logic that renders them
// (internal/report) so that new input sources and output formats can be
// added without touching the aggregation core.
package model

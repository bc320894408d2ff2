// Package consensus computes crowd-sourced agreement over character-level
// text highlights submitted by independent contributors.
//
// The aggregation works on sparse position sets rather than on the article
// text itself: the full document is never materialized, only the characters
// that at least one annotation covered. Per topic, each contributor's
// highlights are flattened into a single position set (so overlapping
// submissions cannot inflate their weight), the sets are multiset-summed
// into per-position agreement counts, positions that clear the pass
// threshold are kept, and the survivors are converted into maximal
// contiguous ranges numbered sequentially by start offset.
//
// The package is single-threaded and batch-oriented: construct a Processor
// per task, feed it one complete annotation batch via Consider, then query
// Consensus or AnswerConsensus as often as needed. A Processor must not be
// shared across tasks or across goroutines; hosts that parallelize work
// give each task its own instance.
package consensus

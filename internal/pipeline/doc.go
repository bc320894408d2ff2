// Package pipeline orchestrates consensus processing for task batches.
//
// A run for one task is a sequence of steps executed against a shared
// TaskResult: load the annotation batch, compute consensus, persist the
// result. The BatchProcessor runs the same pipeline across many tasks
// concurrently; each task gets its own pipeline and its own consensus
// processor, so no mutable state is shared between tasks.
package pipeline

// Package main provides the entry point for the tagquorum CLI.
//
// Tagquorum computes crowd-sourced consensus over character-level text
// highlights submitted by independent contributors working on the same
// article and labeling topic.
//
// Usage:
//
//	tagquorum run <batch-file>
//	tagquorum run --answers <batch-file> [<batch-file>...]
//
// See --help for all available options.
package main

// main is the entry point for tagquorum.
func main() {
	Execute()
}

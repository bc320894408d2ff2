package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for tagquorum.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tagquorum",
		Short: "Crowd consensus over text highlight annotations",
		Long: `Tagquorum computes consensus over character-level text highlights
submitted by multiple independent contributors.

Given a batch of possibly overlapping, possibly inconsistent highlight
annotations for one article, it reconstructs the agreed text of the
highlighted spans, counts per-position contributor agreement, and emits
maximal contiguous ranges that cleared the agreement threshold.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

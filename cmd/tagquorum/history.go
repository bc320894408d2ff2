package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tagquorum/tagquorum/internal/config"
	"github.com/tagquorum/tagquorum/internal/database"
	"github.com/tagquorum/tagquorum/internal/model"
)

// NewHistoryCmd creates the history command.
// This command inspects consensus runs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [task-uuid]",
		Short: "Inspect stored consensus runs",
		Long: `History lists and compares consensus runs saved in the database.

Runs are saved automatically by 'tagquorum run' unless --no-db is used.
With a task UUID, history lists that task's runs; --diff additionally
shows which consensus ranges appeared or disappeared between the latest
two runs, which is useful after annotation batches grow or thresholds
change.

Examples:
  # List runs for a task
  tagquorum history 4b3341c4-16b8-43d4-bb83-5e9ee8d3d81c

  # Diff the latest two runs of a task
  tagquorum history --diff 4b3341c4-16b8-43d4-bb83-5e9ee8d3d81c

  # Show the full stored result of a specific run
  tagquorum history --run-id 5 4b3341c4-16b8-43d4-bb83-5e9ee8d3d81c

  # List all tasks present in the database
  tagquorum history --list-tasks`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-tasks", "L", false,
		"List all task UUIDs in the database")
	cmd.Flags().BoolP("diff", "d", false,
		"Diff the consensus rows of the latest two runs")
	cmd.Flags().Int64P("run-id", "i", 0,
		"Show the full stored result of a specific run")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listTasks, err := cmd.Flags().GetBool("list-tasks")
	if err != nil {
		return err
	}
	diff, err := cmd.Flags().GetBool("diff")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetInt64("run-id")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := database.Open(config.XDGDataDir(), database.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return fmt.Errorf("no run history found (run 'tagquorum run' first): %w", err)
	}
	defer db.Close() //nolint:errcheck // Read-only usage

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if listTasks {
		tasks, err := db.ListTasks(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return json.NewEncoder(out).Encode(tasks)
		}
		for _, task := range tasks {
			fmt.Fprintln(out, task)
		}
		return nil
	}

	if len(args) == 0 {
		return errors.New("specify a task UUID, or use --list-tasks")
	}
	taskUUID := args[0]
	if err := model.ValidateTaskUUID(taskUUID); err != nil {
		return err
	}

	switch {
	case runID != 0:
		return showRun(ctx, db, runID, out, asJSON)
	case diff:
		return diffLatestRuns(ctx, db, taskUUID, out, asJSON)
	default:
		return listRuns(ctx, db, taskUUID, out, asJSON)
	}
}

// showRun prints one stored run by ID.
func showRun(ctx context.Context, db *database.ConsensusDB, runID int64, out io.Writer, asJSON bool) error {
	result, err := db.GetRunByID(ctx, runID)
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("run %d not found", runID)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(out, "Run for task %s (%s)\n", result.TaskUUID,
		result.DateProcessed.Format("2006-01-02 15:04:05"))
	for _, row := range result.Rows {
		fmt.Fprintf(out, "  %s case %d: [%d,%d) %q\n",
			row.TopicName, row.CaseNumber, row.StartPos, row.EndPos, row.TargetText)
	}
	return nil
}

// listRuns prints run metadata for a task, newest first.
func listRuns(ctx context.Context, db *database.ConsensusDB, taskUUID string, out io.Writer, asJSON bool) error {
	runs, err := db.GetRunHistory(ctx, taskUUID)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return fmt.Errorf("no runs found for task %s", taskUUID)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	fmt.Fprintf(out, "Runs for task %s:\n", taskUUID)
	for _, run := range runs {
		mode := "highlight"
		if run.AnswerMode {
			mode = "answer"
		}
		fmt.Fprintf(out, "  #%d  %s  %s  annotations=%d topics=%d rows=%d\n",
			run.ID, run.Timestamp.Format("2006-01-02 15:04:05"), mode,
			run.AnnotationCount, run.TopicCount, run.RowCount)
	}
	return nil
}

// rowKey identifies a consensus row for diffing purposes.
type rowKey struct {
	TopicName string `json:"topic_name"`
	StartPos  int    `json:"start_pos"`
	EndPos    int    `json:"end_pos"`
}

// runDiff holds the ranges that changed between two runs.
type runDiff struct {
	Appeared    []rowKey `json:"appeared"`
	Disappeared []rowKey `json:"disappeared"`
}

// diffLatestRuns compares the consensus rows of the latest two runs.
func diffLatestRuns(ctx context.Context, db *database.ConsensusDB, taskUUID string, out io.Writer, asJSON bool) error {
	runs, err := db.GetLatestRuns(ctx, taskUUID, 2)
	if err != nil {
		return err
	}
	if len(runs) < 2 {
		return fmt.Errorf("need at least two stored runs to diff, have %d", len(runs))
	}

	latest, previous := runs[0], runs[1]
	d := diffRows(previous.Rows, latest.Rows)

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	fmt.Fprintf(out, "Diff of latest two runs for task %s\n", taskUUID)
	fmt.Fprintf(out, "  previous: %s (%d rows)\n",
		previous.DateProcessed.Format("2006-01-02 15:04:05"), len(previous.Rows))
	fmt.Fprintf(out, "  latest:   %s (%d rows)\n\n",
		latest.DateProcessed.Format("2006-01-02 15:04:05"), len(latest.Rows))

	if len(d.Appeared) == 0 && len(d.Disappeared) == 0 {
		fmt.Fprintln(out, "No changes in consensus ranges.")
		return nil
	}

	for _, k := range d.Appeared {
		fmt.Fprintf(out, "  + %s [%d,%d)\n", k.TopicName, k.StartPos, k.EndPos)
	}
	for _, k := range d.Disappeared {
		fmt.Fprintf(out, "  - %s [%d,%d)\n", k.TopicName, k.StartPos, k.EndPos)
	}
	return nil
}

// diffRows computes which ranges appeared in next and which disappeared
// from prev. Rows are matched by topic and range; text follows the range,
// so it does not participate in the key.
func diffRows(prev, next []model.ConsensusRow) runDiff {
	prevSet := make(map[rowKey]bool, len(prev))
	for _, row := range prev {
		prevSet[rowKey{row.TopicName, row.StartPos, row.EndPos}] = true
	}
	nextSet := make(map[rowKey]bool, len(next))
	for _, row := range next {
		nextSet[rowKey{row.TopicName, row.StartPos, row.EndPos}] = true
	}

	var d runDiff
	for _, row := range next {
		k := rowKey{row.TopicName, row.StartPos, row.EndPos}
		if !prevSet[k] {
			d.Appeared = append(d.Appeared, k)
		}
	}
	for _, row := range prev {
		k := rowKey{row.TopicName, row.StartPos, row.EndPos}
		if !nextSet[k] {
			d.Disappeared = append(d.Disappeared, k)
		}
	}
	return d
}

package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tagquorum/tagquorum/internal/consensus"
	"github.com/tagquorum/tagquorum/internal/database"
	"github.com/tagquorum/tagquorum/internal/escape"
	"github.com/tagquorum/tagquorum/internal/model"
)

const testTaskUUID = "4fa1c7de-9c6b-4a3f-8f64-2f0d7f9a1b23"

const testArticle = "What is the airspeed velocity of an unladen swallow?"

// testAnnotation cuts a consistent annotation out of testArticle.
func testAnnotation(start, end int, contributor, topic string) model.Annotation {
	return model.Annotation{
		StartPos:        start,
		EndPos:          end,
		TargetText:      escape.Encode(testArticle[start:end]),
		ArticleSHA256:   "abc123",
		ArticleFilename: "article.txt",
		ContributorUUID: contributor,
		TopicName:       topic,
		Namespace:       "ns",
		CaseNumber:      1,
		TaskrunCount:    3,
	}
}

// writeBatchFile serializes a batch to a file in a temp directory.
func writeBatchFile(t *testing.T, batch *model.Batch) string {
	t.Helper()

	data, err := json.Marshal(batch)
	if err != nil {
		t.Fatalf("failed to marshal batch: %v", err)
	}

	path := filepath.Join(t.TempDir(), "batch.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write batch file: %v", err)
	}
	return path
}

// TestLoadStep tests batch file loading.
func TestLoadStep(t *testing.T) {
	t.Parallel()

	t.Run("valid batch file", func(t *testing.T) {
		t.Parallel()

		batch := &model.Batch{
			TaskUUID: testTaskUUID,
			Annotations: []model.Annotation{
				testAnnotation(0, 4, "alice", "T1"),
				testAnnotation(2, 6, "bob", "T1"),
			},
		}
		path := writeBatchFile(t, batch)

		result := model.NewTaskResult("")
		step := NewLoadStep(path)
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.TaskUUID != testTaskUUID {
			t.Errorf("task uuid = %q, want %q", result.TaskUUID, testTaskUUID)
		}
		if result.SourcePath != path {
			t.Errorf("source path = %q, want %q", result.SourcePath, path)
		}
		if result.AnnotationCount != 2 || len(result.Annotations) != 2 {
			t.Errorf("annotation counts = %d/%d, want 2/2", result.AnnotationCount, len(result.Annotations))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		step := NewLoadStep(filepath.Join(t.TempDir(), "missing.json"))
		if err := step.Do(context.Background(), model.NewTaskResult("")); err == nil {
			t.Error("expected an error for a missing file")
		}
	})

	t.Run("invalid batch content", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte(`{"task_uuid": "not-a-uuid"}`), 0600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		step := NewLoadStep(path)
		if err := step.Do(context.Background(), model.NewTaskResult("")); err == nil {
			t.Error("expected a validation error")
		}
	})

	t.Run("step name", func(t *testing.T) {
		t.Parallel()

		if got := NewLoadStep("x").Name(); got != "load" {
			t.Errorf("Name() = %q, want %q", got, "load")
		}
	})
}

// TestConsensusStep tests aggregation over loaded annotations.
func TestConsensusStep(t *testing.T) {
	t.Parallel()

	defaultSettings := func(string) consensus.Settings { return consensus.Settings{} }

	t.Run("fills result from the processor", func(t *testing.T) {
		t.Parallel()

		result := model.NewTaskResult(testTaskUUID)
		result.Annotations = []model.Annotation{
			testAnnotation(0, 4, "alice", "T1"),
			testAnnotation(2, 6, "bob", "T1"),
		}

		step := NewConsensusStep(defaultSettings)
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.AnswerMode {
			t.Error("answer mode should be false")
		}
		if result.TopicCount != 1 {
			t.Errorf("topic count = %d, want 1", result.TopicCount)
		}
		if result.ArticleSHA256 != "abc123" || result.ArticleFilename != "article.txt" {
			t.Errorf("article identity not filled: %q / %q", result.ArticleSHA256, result.ArticleFilename)
		}
		if len(result.Rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(result.Rows))
		}
		if result.Rows[0].StartPos != 2 || result.Rows[0].EndPos != 4 {
			t.Errorf("row range = [%d,%d), want [2,4)", result.Rows[0].StartPos, result.Rows[0].EndPos)
		}
		if result.Elapsed <= 0 {
			t.Error("elapsed duration not recorded")
		}
	})

	t.Run("per-task settings are applied", func(t *testing.T) {
		t.Parallel()

		result := model.NewTaskResult(testTaskUUID)
		thin := testAnnotation(0, 4, "alice", "T1")
		thin.TaskrunCount = 4
		result.Annotations = []model.Annotation{thin}

		var seenTask string
		settingsFor := func(taskUUID string) consensus.Settings {
			seenTask = taskUUID
			return consensus.Settings{MinimumRedundancy: 5, PassThreshold: 1}
		}

		step := NewConsensusStep(settingsFor)
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if seenTask != testTaskUUID {
			t.Errorf("settings resolved for %q, want %q", seenTask, testTaskUUID)
		}
		if result.DroppedCount != 1 {
			t.Errorf("dropped = %d, want 1 under redundancy 5", result.DroppedCount)
		}
	})

	t.Run("answer mode emits placeholders", func(t *testing.T) {
		t.Parallel()

		result := model.NewTaskResult(testTaskUUID)
		result.Annotations = []model.Annotation{
			testAnnotation(0, 2, "alice", "T1"),
			testAnnotation(10, 12, "bob", "T1"),
		}

		step := NewConsensusStep(defaultSettings, WithAnswerMode(true))
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !result.AnswerMode {
			t.Error("answer mode not recorded")
		}
		if len(result.Rows) != 1 || !result.Rows[0].IsPlaceholder() {
			t.Fatalf("expected a placeholder row, got %+v", result.Rows)
		}
	})

	t.Run("contradictory batch fails", func(t *testing.T) {
		t.Parallel()

		result := model.NewTaskResult(testTaskUUID)
		bad := testAnnotation(0, 4, "bob", "T1")
		bad.TargetText = escape.Encode("XXXX")
		result.Annotations = []model.Annotation{
			testAnnotation(0, 4, "alice", "T1"),
			bad,
		}

		step := NewConsensusStep(defaultSettings)
		if err := step.Do(context.Background(), result); err == nil {
			t.Error("expected an integrity error")
		}
	})
}

// TestStoreStep tests result persistence.
func TestStoreStep(t *testing.T) {
	t.Parallel()

	t.Run("nil database is a no-op", func(t *testing.T) {
		t.Parallel()

		step := NewStoreStep(nil)
		if err := step.Do(context.Background(), model.NewTaskResult(testTaskUUID)); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("saves the result", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close() //nolint:errcheck

		result := model.NewTaskResult(testTaskUUID)
		result.Rows = []model.ConsensusRow{
			{StartPos: 2, EndPos: 4, TargetText: "at", TopicName: "T1", Namespace: "ns", CaseNumber: 1, TaskUUID: testTaskUUID},
		}

		step := NewStoreStep(db)
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		history, err := db.GetRunHistory(context.Background(), testTaskUUID)
		if err != nil {
			t.Fatalf("failed to get history: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("expected 1 stored run, got %d", len(history))
		}
		if history[0].RowCount != 1 {
			t.Errorf("stored row count = %d, want 1", history[0].RowCount)
		}
	})
}

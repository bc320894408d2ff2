package model

import (
	"reflect"
	"strings"
	"testing"
)

const testTaskUUID = "4fa1c7de-9c6b-4a3f-8f64-2f0d7f9a1b23"

// TestReadBatch tests decoding and validation of task batch files.
func TestReadBatch(t *testing.T) {
	t.Parallel()

	t.Run("valid batch", func(t *testing.T) {
		t.Parallel()

		input := `{
			"task_uuid": "` + testTaskUUID + `",
			"annotations": [
				{
					"start_pos": 0,
					"end_pos": 4,
					"target_text": "What",
					"article_sha256": "abc",
					"article_filename": "a.txt",
					"contributor_uuid": "c1",
					"topic_name": "T1",
					"namespace": "ns",
					"case_number": 1,
					"taskrun_count": 3
				}
			]
		}`

		b, err := ReadBatch(strings.NewReader(input))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.TaskUUID != testTaskUUID {
			t.Errorf("task uuid = %q, want %q", b.TaskUUID, testTaskUUID)
		}
		if len(b.Annotations) != 1 {
			t.Fatalf("expected 1 annotation, got %d", len(b.Annotations))
		}
		if b.Annotations[0].TargetText != "What" {
			t.Errorf("target text = %q, want %q", b.Annotations[0].TargetText, "What")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()

		if _, err := ReadBatch(strings.NewReader("{not json")); err == nil {
			t.Error("expected a decode error")
		}
	})

	t.Run("missing task uuid", func(t *testing.T) {
		t.Parallel()

		if _, err := ReadBatch(strings.NewReader(`{"annotations": []}`)); err == nil {
			t.Error("expected a validation error")
		}
	})

	t.Run("invalid annotation names its index", func(t *testing.T) {
		t.Parallel()

		input := `{
			"task_uuid": "` + testTaskUUID + `",
			"annotations": [
				{"start_pos": 0, "end_pos": 1, "contributor_uuid": "c1", "topic_name": "T1"},
				{"start_pos": 5, "end_pos": 2, "contributor_uuid": "c1", "topic_name": "T1"}
			]
		}`

		_, err := ReadBatch(strings.NewReader(input))
		if err == nil {
			t.Fatal("expected a validation error")
		}
		if !strings.Contains(err.Error(), "annotation 1") {
			t.Errorf("error does not name the offending record: %v", err)
		}
	})
}

// TestTaskResultRowsByTopic tests grouping of rows for rendering.
func TestTaskResultRowsByTopic(t *testing.T) {
	t.Parallel()

	tr := NewTaskResult(testTaskUUID)
	tr.Rows = []ConsensusRow{
		{TopicName: "B", StartPos: 0, EndPos: 2, CaseNumber: 1},
		{TopicName: "A", StartPos: 5, EndPos: 7, CaseNumber: 1},
		{TopicName: "B", StartPos: 10, EndPos: 12, CaseNumber: 2},
	}

	names, byTopic := tr.RowsByTopic()
	if !reflect.DeepEqual(names, []string{"A", "B"}) {
		t.Errorf("names = %v, want [A B]", names)
	}
	if len(byTopic["B"]) != 2 {
		t.Fatalf("expected 2 rows for B, got %d", len(byTopic["B"]))
	}
	if byTopic["B"][0].CaseNumber != 1 || byTopic["B"][1].CaseNumber != 2 {
		t.Errorf("rows for B out of order: %+v", byTopic["B"])
	}
}

// TestTaskResultHasRows tests the empty-result predicate.
func TestTaskResultHasRows(t *testing.T) {
	t.Parallel()

	tr := NewTaskResult(testTaskUUID)
	if tr.HasRows() {
		t.Error("fresh result should have no rows")
	}
	tr.Rows = append(tr.Rows, ConsensusRow{TopicName: "T1"})
	if !tr.HasRows() {
		t.Error("expected HasRows after appending a row")
	}
}

// TestConsensusRowIsPlaceholder tests placeholder detection.
func TestConsensusRowIsPlaceholder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		row  ConsensusRow
		want bool
	}{
		{name: "zero-length at origin", row: ConsensusRow{StartPos: 0, EndPos: 0}, want: true},
		{name: "real range", row: ConsensusRow{StartPos: 0, EndPos: 4}, want: false},
		{name: "nonzero offsets", row: ConsensusRow{StartPos: 3, EndPos: 7}, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.row.IsPlaceholder(); got != tt.want {
				t.Errorf("IsPlaceholder() = %v, want %v", got, tt.want)
			}
		})
	}
}

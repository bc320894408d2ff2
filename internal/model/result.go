package model

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// Batch is the on-disk input format for one task: the task identity plus
// every annotation record collected for it, already filtered to a single
// article by the upstream collection system.
type Batch struct {
	// TaskUUID identifies the task the annotations belong to.
	TaskUUID string `json:"task_uuid"`

	// Annotations are the raw highlight submissions.
	Annotations []Annotation `json:"annotations"`
}

// ReadBatch decodes a task batch from r and validates the task identity and
// every annotation record. It returns the first validation error found,
// identified by the offending record's index.
func ReadBatch(r io.Reader) (*Batch, error) {
	var b Batch
	dec := json.NewDecoder(r)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode task batch: %w", err)
	}

	if err := ValidateTaskUUID(b.TaskUUID); err != nil {
		return nil, err
	}

	for i := range b.Annotations {
		if err := b.Annotations[i].Validate(); err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
	}

	return &b, nil
}

// TaskResult is the artifact of one consensus run for one task.
// It is passed through the pipeline steps, rendered by the report writers,
// and serialized into the history database.
type TaskResult struct {
	// TaskUUID identifies the processed task.
	TaskUUID string `json:"task_uuid"`

	// SourcePath is the path of the batch file the annotations came from.
	SourcePath string `json:"source_path,omitempty"`

	// DateProcessed is when the run was performed.
	DateProcessed time.Time `json:"date_processed"`

	// AnswerMode is true if the run used answer-consensus extraction.
	AnswerMode bool `json:"answer_mode"`

	// AnnotationCount is the number of annotations read from the batch.
	AnnotationCount int `json:"annotation_count"`

	// DroppedCount is the number of annotations discarded by the
	// minimum-redundancy filter.
	DroppedCount int `json:"dropped_count"`

	// TopicCount is the number of distinct topics that survived the
	// redundancy filter.
	TopicCount int `json:"topic_count"`

	// ArticleSHA256 is the identity of the annotated article, empty when
	// every annotation was filtered out.
	ArticleSHA256 string `json:"article_sha256,omitempty"`

	// ArticleFilename is the human-readable article identity.
	ArticleFilename string `json:"article_filename,omitempty"`

	// Rows are the consensus output rows across all topics.
	Rows []ConsensusRow `json:"rows"`

	// PerformedSteps records which pipeline steps ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration `json:"elapsed"`

	// Annotations holds the decoded batch between the load and consensus
	// steps. It is not serialized; the database stores only the result.
	Annotations []Annotation `json:"-"`

	// Err is the first error that aborted the run, if any.
	// Errors don't serialize cleanly, so ErrorMessage mirrors it.
	Err error `json:"-"`

	// ErrorMessage is the string form of Err for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewTaskResult creates a TaskResult for the given task with the processing
// timestamp set to now.
func NewTaskResult(taskUUID string) *TaskResult {
	return &TaskResult{
		TaskUUID:      taskUUID,
		DateProcessed: time.Now(),
		Rows:          []ConsensusRow{},
	}
}

// RowsByTopic groups the result's rows by topic name. Rows within a topic
// keep their order; topic names are returned sorted for deterministic
// rendering.
func (tr *TaskResult) RowsByTopic() (names []string, byTopic map[string][]ConsensusRow) {
	byTopic = make(map[string][]ConsensusRow)
	for _, row := range tr.Rows {
		byTopic[row.TopicName] = append(byTopic[row.TopicName], row)
	}
	names = make([]string, 0, len(byTopic))
	for name := range byTopic {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, byTopic
}

// HasRows reports whether any topic produced consensus output.
func (tr *TaskResult) HasRows() bool {
	return len(tr.Rows) > 0
}

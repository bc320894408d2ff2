package model

// ConsensusRow is one agreed highlight range produced for a topic.
// Rows for a topic are disjoint, sorted ascending by StartPos, separated by
// at least one non-passing position, and numbered 1..N in that order.
//
// The field names and JSON tags are part of the output contract; downstream
// writers depend on them.
type ConsensusRow struct {
	// StartPos is the inclusive start offset of the consensus range.
	StartPos int `json:"start_pos"`

	// EndPos is the exclusive end offset of the consensus range.
	EndPos int `json:"end_pos"`

	// TargetText is the agreed text of the range in the transport escape
	// encoding, reconstructed from the annotations themselves.
	TargetText string `json:"target_text"`

	// TopicName is the topic the row belongs to.
	TopicName string `json:"topic_name"`

	// Namespace qualifies the topic name.
	Namespace string `json:"namespace"`

	// CaseNumber is the sequential range number within the topic,
	// assigned 1..N in ascending StartPos order.
	CaseNumber int `json:"case_number"`

	// ArticleSHA256 is the identity of the annotated article.
	ArticleSHA256 string `json:"article_sha256"`

	// ArticleFilename is the human-readable article identity.
	ArticleFilename string `json:"article_filename"`

	// TaskUUID is the task this consensus run belongs to.
	TaskUUID string `json:"task_uuid"`

	// Extra carries answer-consensus metadata. It is nil for plain
	// highlight consensus rows.
	Extra *RowExtra `json:"extra,omitempty"`
}

// RowExtra holds additional fields attached in answer-consensus mode.
type RowExtra struct {
	// ContribCount is the number of distinct contributors who submitted
	// at least one annotation for the row's topic.
	ContribCount int `json:"contrib_count"`
}

// IsPlaceholder reports whether the row is the degenerate zero-length range
// synthesized when an answer cleared the threshold without any passing
// highlight positions.
func (r *ConsensusRow) IsPlaceholder() bool {
	return r.StartPos == 0 && r.EndPos == 0
}

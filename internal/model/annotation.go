package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Annotation is a single highlight submission from one contributor.
// It covers the half-open character range [StartPos, EndPos) of one article
// and carries the escaped text of exactly that range, so that consensus can
// be computed without access to the full source document.
//
// Annotations are immutable once received; the aggregation core never
// modifies them.
type Annotation struct {
	// StartPos is the inclusive start offset of the highlight, counted
	// in characters (runes), not bytes.
	StartPos int `json:"start_pos"`

	// EndPos is the exclusive end offset of the highlight.
	EndPos int `json:"end_pos"`

	// TargetText is the escaped text covering exactly [StartPos, EndPos).
	// See the escape package for the transport encoding.
	TargetText string `json:"target_text"`

	// ArticleSHA256 identifies the article the highlight belongs to.
	ArticleSHA256 string `json:"article_sha256"`

	// ArticleFilename is the human-readable article identity.
	ArticleFilename string `json:"article_filename"`

	// ContributorUUID identifies the contributor. A contributor's weight
	// is capped at 1 per position per topic regardless of how many
	// overlapping highlights they submit.
	ContributorUUID string `json:"contributor_uuid"`

	// TopicName is the labeling question this highlight answers.
	// Annotations are grouped and reduced per topic independently.
	TopicName string `json:"topic_name"`

	// Namespace qualifies the topic name within the labeling schema.
	Namespace string `json:"namespace"`

	// CaseNumber is the case grouping proposed by the contributor.
	// Final output numbering is sequential by range order and does not
	// depend on this value.
	CaseNumber int `json:"case_number"`

	// TaskrunCount is the number of independent task attempts backing
	// this annotation. Annotations below the configured minimum
	// redundancy are discarded before aggregation.
	TaskrunCount int `json:"taskrun_count"`
}

// Annotation validation errors.
var (
	// ErrInvalidRange is returned when an annotation's range is inverted.
	ErrInvalidRange = errors.New("invalid annotation range: end_pos must not be less than start_pos")

	// ErrNegativePosition is returned when an annotation starts before offset zero.
	ErrNegativePosition = errors.New("invalid annotation range: start_pos must be non-negative")

	// ErrMissingContributor is returned when the contributor UUID is empty.
	ErrMissingContributor = errors.New("annotation has no contributor_uuid")

	// ErrMissingTopic is returned when the topic name is empty.
	ErrMissingTopic = errors.New("annotation has no topic_name")
)

// Validate checks structural validity of an annotation before aggregation.
// Content-level consistency (character agreement across annotations) is the
// aggregation core's job; this only rejects records that are malformed on
// their own.
func (a *Annotation) Validate() error {
	if a.StartPos < 0 {
		return fmt.Errorf("%w (start_pos=%d)", ErrNegativePosition, a.StartPos)
	}
	if a.EndPos < a.StartPos {
		return fmt.Errorf("%w (start_pos=%d, end_pos=%d)", ErrInvalidRange, a.StartPos, a.EndPos)
	}
	if a.ContributorUUID == "" {
		return ErrMissingContributor
	}
	if a.TopicName == "" {
		return ErrMissingTopic
	}
	return nil
}

// Len returns the number of character positions the annotation covers.
func (a *Annotation) Len() int {
	return a.EndPos - a.StartPos
}

// Range is a half-open character offset range [StartPos, EndPos).
type Range struct {
	// StartPos is the inclusive start offset.
	StartPos int `json:"start_pos"`

	// EndPos is the exclusive end offset.
	EndPos int `json:"end_pos"`
}

// Len returns the number of positions the range covers.
func (r Range) Len() int {
	return r.EndPos - r.StartPos
}

// ValidateTaskUUID reports whether s is a well-formed UUID usable as a task
// identifier. An empty string is rejected.
func ValidateTaskUUID(s string) error {
	if s == "" {
		return errors.New("task_uuid is empty")
	}
	if err := uuid.Validate(s); err != nil {
		return fmt.Errorf("invalid task_uuid %q: %w", s, err)
	}
	return nil
}

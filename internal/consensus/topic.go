package consensus

import (
	"fmt"
	"sort"

	"github.com/tagquorum/tagquorum/internal/model"
)

// TopicAggregate reduces all contributors' submissions for one topic.
// It owns one ContributorSpan per contributor and turns their flattened
// position sets into per-position agreement counts and, from those, into
// consensus ranges.
type TopicAggregate struct {
	// topicName and namespace identify the topic. Set by the first
	// annotation considered; every later annotation must agree.
	topicName string
	namespace string

	// contributors maps contributor UUID to that contributor's
	// accumulated span. Entries are created lazily on first sight and
	// never removed.
	contributors map[string]*ContributorSpan
}

// NewTopicAggregate creates an empty aggregate with no topic identity.
func NewTopicAggregate() *TopicAggregate {
	return &TopicAggregate{
		contributors: make(map[string]*ContributorSpan),
	}
}

// Consider routes one annotation to its contributor's span, creating the
// span on first sight, and validates the topic identity.
// It returns an error wrapping ErrIntegrity if the annotation names a
// different topic or namespace than previous ones.
func (t *TopicAggregate) Consider(anno *model.Annotation) error {
	span, ok := t.contributors[anno.ContributorUUID]
	if !ok {
		span = NewContributorSpan()
		t.contributors[anno.ContributorUUID] = span
	}
	span.Consider(anno)

	if t.topicName == "" {
		t.topicName = anno.TopicName
		t.namespace = anno.Namespace
	} else if t.topicName != anno.TopicName || t.namespace != anno.Namespace {
		return fmt.Errorf("%w: topic identity mismatch: have %s/%s, annotation names %s/%s",
			ErrIntegrity, t.namespace, t.topicName, anno.Namespace, anno.TopicName)
	}

	return nil
}

// SumContributions produces the per-position agreement count: a multiset
// sum of every contributor's flattened set. Each contributor adds at most 1
// to any position, regardless of how many overlapping ranges they
// submitted.
func (t *TopicAggregate) SumContributions() map[int]int {
	counts := make(map[int]int)
	for _, span := range t.contributors {
		span.addTo(counts)
	}
	return counts
}

// convertToRanges turns an arbitrary position set into maximal contiguous
// half-open ranges, sorted ascending by start offset. The result is
// independent of the input's iteration order, and an empty input yields no
// ranges.
func convertToRanges(positions []int) []model.Range {
	if len(positions) == 0 {
		return nil
	}

	indices := make([]int, len(positions))
	copy(indices, positions)
	sort.Ints(indices)

	var ranges []model.Range
	start := indices[0]
	end := start + 1
	for i, pos := range indices {
		if i > 0 && indices[i-1]+1 != pos {
			ranges = append(ranges, model.Range{StartPos: start, EndPos: end})
			start = pos
		}
		end = pos + 1
	}
	ranges = append(ranges, model.Range{StartPos: start, EndPos: end})

	return ranges
}

// Consensus computes agreement counts, keeps positions where the passes
// predicate holds, and converts the survivors into maximal contiguous
// ranges. The predicate is injected by the caller so the same reduction
// serves both highlight and answer consensus.
func (t *TopicAggregate) Consensus(passes func(pos, count int) bool) []model.Range {
	counts := t.SumContributions()

	passing := make([]int, 0, len(counts))
	for pos, count := range counts {
		if passes(pos, count) {
			passing = append(passing, pos)
		}
	}

	return convertToRanges(passing)
}

// DetermineCases turns ranges into output rows, assigning sequential case
// numbers 1..N in the order given and stamping the topic identity. Callers
// must pass ranges sorted ascending by start offset, which Consensus
// already guarantees.
func (t *TopicAggregate) DetermineCases(ranges []model.Range) []model.ConsensusRow {
	rows := make([]model.ConsensusRow, 0, len(ranges))
	for seq, r := range ranges {
		rows = append(rows, model.ConsensusRow{
			StartPos:   r.StartPos,
			EndPos:     r.EndPos,
			TopicName:  t.topicName,
			Namespace:  t.namespace,
			CaseNumber: seq + 1,
		})
	}
	return rows
}

// ContributorCount returns the number of distinct contributors who
// submitted at least one annotation for this topic.
func (t *TopicAggregate) ContributorCount() int {
	return len(t.contributors)
}

// TopicName returns the topic's name, empty until the first annotation is
// considered.
func (t *TopicAggregate) TopicName() string {
	return t.topicName
}

// Namespace returns the topic's namespace.
func (t *TopicAggregate) Namespace() string {
	return t.namespace
}

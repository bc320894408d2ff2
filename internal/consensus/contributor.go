package consensus

import "github.com/tagquorum/tagquorum/internal/model"

// ContributorSpan accumulates one contributor's submissions for one topic.
//
// All of the contributor's highlight ranges are flattened into a single
// position set. This is the anti-gaming property of the whole system: a
// contributor cannot increase the weight of their highlights by submitting
// overlapping ranges, because the flattened set counts each position once
// no matter how many times they covered it.
type ContributorSpan struct {
	// flattened is the union of every range the contributor submitted.
	flattened map[int]struct{}

	// caseNumbers tracks the minimum case number the contributor ever
	// proposed at each position. The front end permits overlapping
	// highlights while case numbers are meant to be disjoint, so on
	// overlap the lowest proposal wins.
	//
	// This bookkeeping is kept for parity with the reference behavior
	// but is not consumed by either consensus-extraction path; final
	// case numbering is sequential by range order.
	caseNumbers map[int]int
}

// NewContributorSpan creates an empty accumulator.
func NewContributorSpan() *ContributorSpan {
	return &ContributorSpan{
		flattened:   make(map[int]struct{}),
		caseNumbers: make(map[int]int),
	}
}

// Consider folds one annotation into the accumulator. The flattened-set
// union and the case-number update are independent operations over the same
// position range; repeated or overlapping submissions are idempotent for
// the flattened set.
func (c *ContributorSpan) Consider(anno *model.Annotation) {
	for pos := anno.StartPos; pos < anno.EndPos; pos++ {
		c.flattened[pos] = struct{}{}

		if existing, ok := c.caseNumbers[pos]; !ok || anno.CaseNumber < existing {
			c.caseNumbers[pos] = anno.CaseNumber
		}
	}
}

// Covers reports whether the contributor highlighted the given position.
func (c *ContributorSpan) Covers(pos int) bool {
	_, ok := c.flattened[pos]
	return ok
}

// PositionCount returns the number of distinct positions the contributor
// highlighted.
func (c *ContributorSpan) PositionCount() int {
	return len(c.flattened)
}

// CaseNumberAt returns the minimum case number the contributor proposed at
// the given position, and whether any submission covered it.
func (c *ContributorSpan) CaseNumberAt(pos int) (int, bool) {
	n, ok := c.caseNumbers[pos]
	return n, ok
}

// addTo adds 1 to counts for every position in the flattened set.
// Used by TopicAggregate's multiset sum.
func (c *ContributorSpan) addTo(counts map[int]int) {
	for pos := range c.flattened {
		counts[pos]++
	}
}

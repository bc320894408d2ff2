package consensus

import "errors"

// Consistency failures inside the aggregation core.
//
// Design decision: We use two sentinel errors and wrap them with positional
// detail rather than panicking on assertion failure. A malformed batch must
// abort cleanly so the caller can skip the task and keep processing others,
// and callers need to distinguish "the input contradicts itself" from "the
// caller asked for a position nothing covered" programmatically via
// errors.Is.
var (
	// ErrIntegrity indicates that the annotation batch contradicts itself:
	// two annotations disagree about a character, an article identity, or
	// a topic identity. The batch cannot produce trustworthy consensus and
	// must be fixed upstream.
	ErrIntegrity = errors.New("data integrity violation")

	// ErrUnknownPosition indicates a request for a character at a position
	// never covered by any accepted annotation. Ranges handed to text
	// reconstruction are always subsets of considered positions, so this
	// is a caller invariant violation, not a data problem.
	ErrUnknownPosition = errors.New("position not covered by any annotation")
)

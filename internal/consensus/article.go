package consensus

import (
	"fmt"
	"strings"

	"github.com/tagquorum/tagquorum/internal/escape"
	"github.com/tagquorum/tagquorum/internal/model"
)

// ArticleMap reconstructs a partial view of the source document from the
// text fragments embedded in annotations. It maps character offsets to
// characters and grows monotonically as annotations are considered; the
// full article is never loaded.
//
// Design decision: The map is sparse (map[int]rune keyed by offset) rather
// than a linear buffer. Articles may be large and annotations cover only
// slivers of them, and the consensus algorithm only ever reads positions
// it has previously written.
type ArticleMap struct {
	// sha256 and filename identify the article. Set by the first
	// annotation considered; every later annotation must agree.
	sha256   string
	filename string

	// chars maps character offset to the character at that offset.
	// A position, once recorded, maps to exactly one character for the
	// lifetime of the instance.
	chars map[int]rune
}

// NewArticleMap creates an empty ArticleMap with no article identity.
func NewArticleMap() *ArticleMap {
	return &ArticleMap{
		chars: make(map[int]rune),
	}
}

// Consider decodes the annotation's target text into per-position
// characters, verifies consistency with everything recorded so far, and
// merges the new positions in.
//
// It returns an error wrapping ErrIntegrity if the decoded text does not
// span exactly [StartPos, EndPos), if any already-known position holds a
// different character, or if the annotation names a different article than
// previous ones.
func (a *ArticleMap) Consider(anno *model.Annotation) error {
	text, err := escape.Decode(anno.TargetText)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	}

	runes := []rune(text)
	if len(runes) != anno.Len() {
		return fmt.Errorf("%w: target_text covers %d characters but range [%d,%d) covers %d",
			ErrIntegrity, len(runes), anno.StartPos, anno.EndPos, anno.Len())
	}

	// Verify overlaps agree with previously recorded text before
	// mutating anything, so a failed Consider leaves the map untouched.
	for i, r := range runes {
		pos := anno.StartPos + i
		if prev, ok := a.chars[pos]; ok && prev != r {
			return fmt.Errorf("%w: conflicting characters %q and %q at position %d",
				ErrIntegrity, prev, r, pos)
		}
	}

	if a.sha256 == "" && a.filename == "" {
		a.sha256 = anno.ArticleSHA256
		a.filename = anno.ArticleFilename
	} else if a.sha256 != anno.ArticleSHA256 || a.filename != anno.ArticleFilename {
		return fmt.Errorf("%w: article identity mismatch: have %s (%s), annotation names %s (%s)",
			ErrIntegrity, a.sha256, a.filename, anno.ArticleSHA256, anno.ArticleFilename)
	}

	for i, r := range runes {
		a.chars[anno.StartPos+i] = r
	}

	return nil
}

// CharAt returns the character at the given position.
// It returns an error wrapping ErrUnknownPosition if no accepted annotation
// ever covered the position.
func (a *ArticleMap) CharAt(pos int) (rune, error) {
	r, ok := a.chars[pos]
	if !ok {
		return 0, fmt.Errorf("%w: position %d", ErrUnknownPosition, pos)
	}
	return r, nil
}

// Text reconstructs the raw (unescaped) article text covering [start, end).
// Every position in the range must have been covered by an accepted
// annotation.
func (a *ArticleMap) Text(start, end int) (string, error) {
	var sb strings.Builder
	for pos := start; pos < end; pos++ {
		r, err := a.CharAt(pos)
		if err != nil {
			return "", err
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}

// ApplyIdentity stamps the article identity fields onto an output row.
func (a *ArticleMap) ApplyIdentity(row *model.ConsensusRow) {
	row.ArticleSHA256 = a.sha256
	row.ArticleFilename = a.filename
}

// SHA256 returns the article's content hash, empty until the first
// annotation is considered.
func (a *ArticleMap) SHA256() string {
	return a.sha256
}

// Filename returns the article's filename, empty until the first annotation
// is considered.
func (a *ArticleMap) Filename() string {
	return a.filename
}

// KnownPositions returns the number of distinct positions recorded so far.
func (a *ArticleMap) KnownPositions() int {
	return len(a.chars)
}

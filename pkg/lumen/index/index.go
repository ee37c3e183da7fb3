package index

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cognicore/lumen/pkg/lumen/internalerr"
)

// separators is the unicode-aware complement of the word-character
// class: anything that is not a letter, digit or underscore.
var separators = regexp.MustCompile(`[^\pL\pN_]+`)

// IndexedText is an immutable index over a single raw document.
//
// The document is split into alternating runs of word and non-word
// characters; concatenating all runs reproduces the raw input
// byte-for-byte. Word runs become addressable features: in
// bag-of-words mode every occurrence of the same word shares one
// feature id, in positional mode every occurrence gets its own id.
// Non-word runs (whitespace, punctuation) are never features but are
// preserved so that removal can reconstruct exact text.
type IndexedText struct {
	raw       string
	fragments []string
	starts    []int   // byte offset of each fragment in raw
	vocab     []string
	positions [][]int // feature id -> fragment indices
	bow       bool
}

// New builds an IndexedText from raw text. When bow is true, repeated
// occurrences of a word collapse into one feature id; otherwise every
// occurrence is its own feature.
func New(raw string, bow bool) *IndexedText {
	t := &IndexedText{raw: raw, bow: bow}
	t.split()
	t.buildVocab()
	return t
}

// split cuts raw into alternating word / separator runs. Empty
// fragments are never emitted, so every fragment is a maximal run of
// one kind.
func (t *IndexedText) split() {
	prev := 0
	for _, m := range separators.FindAllStringIndex(t.raw, -1) {
		if m[0] > prev {
			t.fragments = append(t.fragments, t.raw[prev:m[0]])
		}
		t.fragments = append(t.fragments, t.raw[m[0]:m[1]])
		prev = m[1]
	}
	if prev < len(t.raw) {
		t.fragments = append(t.fragments, t.raw[prev:])
	}

	t.starts = make([]int, len(t.fragments))
	offset := 0
	for i, frag := range t.fragments {
		t.starts[i] = offset
		offset += len(frag)
	}
}

// buildVocab walks the fragments once and assigns dense feature ids in
// first-occurrence order. Separator fragments are classified once and
// remembered in a skip set so repeated identical separators are not
// re-tested; the set is local to construction and discarded after.
func (t *IndexedText) buildVocab() {
	skip := make(map[string]struct{})
	ids := make(map[string]int)

	for i, frag := range t.fragments {
		if _, ok := skip[frag]; ok {
			continue
		}
		if separators.MatchString(frag) {
			skip[frag] = struct{}{}
			continue
		}
		if t.bow {
			id, ok := ids[frag]
			if !ok {
				id = len(t.vocab)
				ids[frag] = id
				t.vocab = append(t.vocab, frag)
				t.positions = append(t.positions, nil)
			}
			t.positions[id] = append(t.positions[id], i)
		} else {
			t.vocab = append(t.vocab, frag)
			t.positions = append(t.positions, []int{i})
		}
	}
}

// RawString returns the original document unchanged.
func (t *IndexedText) RawString() string { return t.raw }

// BagOfWords reports whether the index collapses repeated words.
func (t *IndexedText) BagOfWords() bool { return t.bow }

// NumFeatures returns the number of addressable features.
func (t *IndexedText) NumFeatures() int { return len(t.vocab) }

// FeatureText returns the canonical word text for a feature id.
func (t *IndexedText) FeatureText(id int) (string, error) {
	if err := t.checkID(id); err != nil {
		return "", err
	}
	return t.vocab[id], nil
}

// FeaturePositions returns the byte offsets of every occurrence of a
// feature: a single offset in positional mode, possibly many in
// bag-of-words mode.
func (t *IndexedText) FeaturePositions(id int) ([]int, error) {
	if err := t.checkID(id); err != nil {
		return nil, err
	}
	offsets := make([]int, len(t.positions[id]))
	for i, frag := range t.positions[id] {
		offsets[i] = t.starts[frag]
	}
	return offsets, nil
}

// Remove returns the document text with every occurrence of the given
// features removed. Remaining fragments keep their original order and
// content, so Remove(nil) reproduces the raw string byte-for-byte.
func (t *IndexedText) Remove(featureIDs []int) (string, error) {
	for _, id := range featureIDs {
		if err := t.checkID(id); err != nil {
			return "", err
		}
	}

	removed := make([]bool, len(t.fragments))
	for _, id := range featureIDs {
		for _, frag := range t.positions[id] {
			removed[frag] = true
		}
	}

	var b strings.Builder
	b.Grow(len(t.raw))
	for i, frag := range t.fragments {
		if !removed[i] {
			b.WriteString(frag)
		}
	}
	return b.String(), nil
}

func (t *IndexedText) checkID(id int) error {
	if id < 0 || id >= len(t.vocab) {
		return fmt.Errorf("%w: %d (document has %d features)",
			internalerr.ErrInvalidFeatureID, id, len(t.vocab))
	}
	return nil
}

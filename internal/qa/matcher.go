package qa

import (
	"context"
	"strings"

	"github.com/mohammad-safakhou/govqa/internal/store"
)

// KnowledgeSource looks up at most one knowledge entry for a fragment set.
type KnowledgeSource interface {
	SearchKnowledge(ctx context.Context, fragments []string) (*store.KnowledgeEntry, error)
}

// Fragments splits a question into keyword fragments: question marks (both
// half- and full-width) are stripped, then the remainder is split on
// whitespace. A question that reduces to nothing yields an empty set.
func Fragments(question string) []string {
	cleaned := strings.NewReplacer("?", " ", "？", " ").Replace(question)
	return strings.Fields(cleaned)
}

// Matcher resolves a question against the knowledge store.
type Matcher struct {
	Source KnowledgeSource
}

// Match returns the first entry containing every fragment of the question in
// either its stored question or answer, or nil when there is none. A question
// with no extractable fragments never matches; that degeneration is part of
// the compatibility contract with the legacy service.
func (m *Matcher) Match(ctx context.Context, question string) (*store.KnowledgeEntry, error) {
	frags := Fragments(question)
	if len(frags) == 0 {
		return nil, nil
	}
	return m.Source.SearchKnowledge(ctx, frags)
}

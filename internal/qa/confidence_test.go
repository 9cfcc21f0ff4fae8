package qa

import (
	"strings"
	"testing"

	"github.com/mohammad-safakhou/govqa/internal/store"
)

// fieldsSegmenter stands in for the dictionary tokenizer: words are
// whitespace separated in the fixtures.
type fieldsSegmenter struct{}

func (fieldsSegmenter) Cut(text string) []string { return strings.Fields(text) }

func TestEstimateNoMatchPrior(t *testing.T) {
	e := &Estimator{Seg: fieldsSegmenter{}}

	got := e.Estimate("未收录的问题", nil, Answer{Text: "x", Valid: false})
	if got != 0.5 {
		t.Fatalf("expected 0.5 prior without a match, got %v", got)
	}
}

func TestEstimateIdenticalQuestionFullOverlap(t *testing.T) {
	e := &Estimator{Seg: fieldsSegmenter{}}
	entry := &store.KnowledgeEntry{Question: "社保 断缴 有 什么 影响"}

	got := e.Estimate("社保 断缴 有 什么 影响", entry, Answer{Text: "x", Valid: true})
	if got != 1.0 {
		t.Fatalf("expected 1.0 for identical question, got %v", got)
	}
}

func TestEstimateValidAnswerFloor(t *testing.T) {
	e := &Estimator{Seg: fieldsSegmenter{}}
	// 1 of 5 entry words overlaps: lexical score 0.2.
	entry := &store.KnowledgeEntry{Question: "a b c d e"}

	got := e.Estimate("a x y z", entry, Answer{Text: "answer", Valid: true})
	if got != 0.7 {
		t.Fatalf("expected valid answer to lift 0.2 to the 0.7 floor, got %v", got)
	}

	// Invalid answer keeps the lexical score (clamped at 0.2 here).
	got = e.Estimate("a x y z", entry, Answer{Text: "系统异常", Valid: false})
	if got != 0.2 {
		t.Fatalf("expected raw lexical score for invalid answer, got %v", got)
	}
}

func TestEstimateFloorDoesNotLowerHighOverlap(t *testing.T) {
	e := &Estimator{Seg: fieldsSegmenter{}}
	entry := &store.KnowledgeEntry{Question: "a b c d"}

	got := e.Estimate("a b c d", entry, Answer{Text: "x", Valid: true})
	if got != 1.0 {
		t.Fatalf("floor must never lower the score, got %v", got)
	}
}

func TestEstimateLowerClamp(t *testing.T) {
	e := &Estimator{Seg: fieldsSegmenter{}}
	entry := &store.KnowledgeEntry{Question: "a b c d e f g h i j"}

	got := e.Estimate("完全 无关", entry, Answer{Valid: false})
	if got != 0.1 {
		t.Fatalf("expected zero overlap clamped to 0.1, got %v", got)
	}
}

func TestEstimateEmptyEntryWordSetFallsBack(t *testing.T) {
	e := &Estimator{Seg: fieldsSegmenter{}}
	entry := &store.KnowledgeEntry{Question: "   "}

	got := e.Estimate("任意 问题", entry, Answer{Valid: false})
	if got != 0.5 {
		t.Fatalf("expected 0.5 fallback for empty entry word set, got %v", got)
	}
}

func TestEstimateAlwaysWithinUnitInterval(t *testing.T) {
	e := &Estimator{Seg: fieldsSegmenter{}}
	entries := []*store.KnowledgeEntry{
		nil,
		{Question: ""},
		{Question: "a"},
		{Question: "a b c d e f g h"},
	}
	answers := []Answer{{Valid: true}, {Valid: false}}
	questions := []string{"", "a", "a b c d e f g h", "x y z"}

	for _, entry := range entries {
		for _, ans := range answers {
			for _, q := range questions {
				got := e.Estimate(q, entry, ans)
				if got < 0.0 || got > 1.0 {
					t.Fatalf("confidence out of range: %v (entry=%+v answer=%+v q=%q)", got, entry, ans, q)
				}
			}
		}
	}
}

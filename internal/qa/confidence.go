package qa

import (
	"github.com/mohammad-safakhou/govqa/internal/store"
)

// Segmenter cuts text into words. Government questions are mostly Chinese,
// so a dictionary-backed tokenizer sits behind this in production.
type Segmenter interface {
	Cut(text string) []string
}

// noMatchPrior is the confidence assigned when there is no knowledge entry to
// compare against: no evidence either way.
const noMatchPrior = 0.5

// validAnswerFloor is the minimum reported confidence once generation itself
// succeeded; a well-formed answer is positive evidence independent of lexical
// overlap.
const validAnswerFloor = 0.7

// Estimator merges lexical match strength and answer validity into a single
// [0,1] score.
type Estimator struct {
	Seg Segmenter
}

// Estimate computes |q∩k| / |k| over the word sets of the question and the
// matched entry's stored question, clamped to [0.1,1.0], falling back to the
// 0.5 prior when there is no entry or the entry segments to nothing. A valid
// answer lifts the score to at least 0.7. The result is unrounded; rounding
// belongs to the response boundary.
func (e *Estimator) Estimate(question string, entry *store.KnowledgeEntry, answer Answer) float64 {
	score := noMatchPrior
	if entry != nil {
		entryWords := wordSet(e.Seg.Cut(entry.Question))
		if len(entryWords) > 0 {
			questionWords := wordSet(e.Seg.Cut(question))
			common := 0
			for w := range questionWords {
				if _, ok := entryWords[w]; ok {
					common++
				}
			}
			score = clamp(float64(common)/float64(len(entryWords)), 0.1, 1.0)
		}
	}
	if answer.Valid && score < validAnswerFloor {
		score = validAnswerFloor
	}
	return clamp(score, 0.0, 1.0)
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" || w == " " {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

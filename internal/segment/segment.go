// Package segment wraps the gse tokenizer behind a minimal interface so the
// confidence estimator can be tested with a trivial fake.
package segment

import "github.com/go-ego/gse"

type GSE struct {
	seg gse.Segmenter
}

// NewGSE loads the default Chinese dictionary. Loading is slow (tens of ms),
// so callers should construct one segmenter and share it.
func NewGSE() (*GSE, error) {
	g := &GSE{}
	if err := g.seg.LoadDict(); err != nil {
		return nil, err
	}
	return g, nil
}

// Cut segments text into words using HMM for out-of-dictionary runs.
func (g *GSE) Cut(text string) []string {
	return g.seg.Cut(text, true)
}

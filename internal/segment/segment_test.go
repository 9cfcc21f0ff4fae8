package segment

import (
	"strings"
	"testing"
)

func TestGSECutCoversInput(t *testing.T) {
	if testing.Short() {
		t.Skip("dictionary load is slow")
	}
	g, err := NewGSE()
	if err != nil {
		t.Fatalf("NewGSE: %v", err)
	}

	in := "灵活就业人员如何办理社保参保"
	words := g.Cut(in)
	if len(words) < 2 {
		t.Fatalf("expected multi-word segmentation, got %v", words)
	}
	if strings.Join(words, "") != in {
		t.Fatalf("segmentation must cover the input exactly: %v", words)
	}
}

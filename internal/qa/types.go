// Package qa implements the answer-resolution pipeline: knowledge matching,
// prompt construction, generation, confidence scoring and confidence-gated
// response shaping.
package qa

// Status classifies a final response for the boundary layer.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Answer is the normalized output of the generation client. Valid is false
// for every failure path (timeout, HTTP error, unrecognized payload, upstream
// error); downstream components consult this flag and never re-derive it from
// the text.
type Answer struct {
	Text  string
	Valid bool
}

// FinalResponse is what the boundary layer returns to callers. Confidence is
// already rounded to two decimals.
type FinalResponse struct {
	RequestID     string
	Answer        string
	Confidence    float64
	Status        Status
	ManualChatURL string
}

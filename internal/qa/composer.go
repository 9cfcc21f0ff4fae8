package qa

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/mohammad-safakhou/govqa/internal/store"
)

// failedAnswer is the fixed apology returned whenever resolution fails.
const failedAnswer = "系统异常，请重试"

const degradedNotice = "\n\n提示：当前回答置信度较低（%.2f），若信息不准确，建议咨询人工客服"

// Generator is the generation client as the composer sees it.
type Generator interface {
	Invoke(ctx context.Context, prompt PromptPair) Answer
}

// InteractionRecorder is the append-only log store collaborator.
type InteractionRecorder interface {
	InsertInteractionLog(ctx context.Context, rec store.InteractionRecord) error
	UpdateFeedback(ctx context.Context, requestID, feedbackType, remark string) error
}

// AnswerCache holds previously resolved high-confidence answers. A nil cache
// disables caching.
type AnswerCache interface {
	Get(ctx context.Context, question string) (answer string, confidence float64, ok bool)
	Set(ctx context.Context, question, answer string, confidence float64)
}

// Composer orchestrates one resolution: match, build prompt, invoke, score,
// gate, emit. It never returns an error to the boundary layer; collaborator
// failures degrade to a FAILED response.
type Composer struct {
	Matcher   *Matcher
	Generator Generator
	Estimator *Estimator
	Recorder  InteractionRecorder
	Cache     AnswerCache

	// ConfidenceThreshold gates DEGRADED responses: strictly below degrades,
	// equal or above passes through verbatim.
	ConfidenceThreshold float64
	ManualChatURL       string

	// LogTimeout bounds the detached interaction-log append. Zero means 5s.
	LogTimeout time.Duration
	Logger     *log.Logger
}

// Resolve runs the pipeline for one question and shapes the final response
// according to the confidence-gating policy. Exactly one interaction-log row
// is appended per call, off the request path.
func (c *Composer) Resolve(ctx context.Context, question, userType, requestID, source string) FinalResponse {
	if c.Cache != nil {
		if answer, confidence, ok := c.Cache.Get(ctx, question); ok {
			resp := FinalResponse{
				RequestID:  requestID,
				Answer:     answer,
				Confidence: confidence,
				Status:     StatusSuccess,
			}
			c.record(requestID, question, userType, source, resp.Answer, resp.Confidence)
			return resp
		}
	}

	entry, err := c.Matcher.Match(ctx, question)
	if err != nil {
		c.logger().Printf("knowledge lookup failed: request_id=%s err=%v", requestID, err)
		resp := FinalResponse{RequestID: requestID, Answer: failedAnswer, Confidence: 0, Status: StatusFailed}
		c.record(requestID, question, userType, source, resp.Answer, resp.Confidence)
		return resp
	}

	prompt := BuildPrompt(question, entry)
	answer := c.Generator.Invoke(ctx, prompt)
	confidence := c.Estimator.Estimate(question, entry, answer)
	rounded := round2(confidence)

	resp := FinalResponse{RequestID: requestID, Confidence: rounded}
	switch {
	case !answer.Valid:
		// Failure detection precedes the threshold comparison: a low
		// confidence on a failed answer stays FAILED, never DEGRADED.
		resp.Status = StatusFailed
		resp.Answer = failedAnswer
	case confidence < c.ConfidenceThreshold:
		resp.Status = StatusDegraded
		resp.Answer = answer.Text + fmt.Sprintf(degradedNotice, rounded)
		resp.ManualChatURL = c.ManualChatURL
	default:
		resp.Status = StatusSuccess
		resp.Answer = answer.Text
		if c.Cache != nil {
			c.Cache.Set(ctx, question, resp.Answer, rounded)
		}
	}

	c.record(requestID, question, userType, source, resp.Answer, resp.Confidence)
	return resp
}

// RecordFeedback forwards user feedback to the log store. An unknown request
// id surfaces as store.ErrNotFound.
func (c *Composer) RecordFeedback(ctx context.Context, requestID, feedbackType, remark string) error {
	return c.Recorder.UpdateFeedback(ctx, requestID, feedbackType, remark)
}

// record appends the interaction log detached from the request so a slow log
// store cannot delay the response. Append failures are logged and dropped.
func (c *Composer) record(requestID, question, userType, source, answer string, confidence float64) {
	timeout := c.LogTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := c.Recorder.InsertInteractionLog(ctx, store.InteractionRecord{
			RequestID:  requestID,
			Question:   question,
			UserType:   userType,
			Source:     source,
			Answer:     answer,
			Confidence: confidence,
		})
		if err != nil {
			c.logger().Printf("interaction log append failed: request_id=%s err=%v", requestID, err)
		}
	}()
}

func (c *Composer) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

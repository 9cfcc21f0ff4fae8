package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammad-safakhou/govqa/config"
)

// Failure sentinels. These exact texts reach the user on a failed resolution,
// so they stay aligned with the legacy service.
const (
	timeoutSentinel      = "系统请求超时，请重试"
	emptyContentSentinel = "未获取到回答内容，请重试"
	failureSentinel      = "系统暂时无法生成回答，请重试"
)

// Client talks to a DashScope-style text-generation endpoint. Invoke never
// returns an error: every failure mode is mapped to an Answer with
// Valid=false and a fixed sentinel text.
type Client struct {
	apiKey      string
	apiURL      string
	model       string
	temperature float64
	topP        float64
	maxTokens   int
	httpClient  *http.Client
	logger      *log.Logger
}

func NewClient(cfg config.LLMConfig, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.Writer(), "[LLM] ", log.LstdFlags)
	}
	return &Client{
		apiKey:      cfg.APIKey,
		apiURL:      cfg.APIURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type generationRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []message `json:"messages"`
	} `json:"input"`
	Parameters generationParameters `json:"parameters"`
}

type generationParameters struct {
	ResultFormat string  `json:"result_format"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
	MaxTokens    int     `json:"max_tokens"`
}

// generationResponse covers both the success envelope (an opaque "output"
// object whose shape varies by API version) and the error envelope (top-level
// code and message, no output).
type generationResponse struct {
	Output  map[string]interface{} `json:"output"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// outputProbe recognizes one historical shape of the "output" object. Probes
// are tried in fixed priority order; the first whose container key is present
// claims the response. A claimed response with missing inner fields is a
// format failure, not a fallthrough to later probes.
type outputProbe struct {
	name    string
	extract func(out map[string]interface{}) (text string, claimed bool, err error)
}

var outputProbes = []outputProbe{
	{name: "text", extract: probeText},
	{name: "results", extract: probeMessageList("results")},
	{name: "choices", extract: probeMessageList("choices")},
}

func probeText(out map[string]interface{}) (string, bool, error) {
	raw, ok := out["text"]
	if !ok {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", true, fmt.Errorf("output.text为空")
	}
	return strings.TrimSpace(s), true, nil
}

func probeMessageList(key string) func(out map[string]interface{}) (string, bool, error) {
	return func(out map[string]interface{}) (string, bool, error) {
		raw, ok := out[key]
		if !ok {
			return "", false, nil
		}
		list, ok := raw.([]interface{})
		if !ok || len(list) == 0 {
			return "", true, fmt.Errorf("output.%s为空", key)
		}
		first, ok := list[0].(map[string]interface{})
		if !ok {
			return "", true, fmt.Errorf("output.%s[0]格式异常", key)
		}
		msg, ok := first["message"].(map[string]interface{})
		if !ok {
			return "", true, fmt.Errorf("output.%s[0].message缺失", key)
		}
		content, ok := msg["content"].(string)
		if !ok || strings.TrimSpace(content) == "" {
			return "", true, fmt.Errorf("output.%s[0].message.content缺失", key)
		}
		return strings.TrimSpace(content), true, nil
	}
}

// Invoke sends the prompt to the generation endpoint and normalizes whatever
// comes back. The call is bounded by the configured timeout; once it fires
// the pending request is abandoned and a failure sentinel is returned. No
// retry happens here.
func (c *Client) Invoke(ctx context.Context, prompt PromptPair) Answer {
	reqBody := generationRequest{
		Model: c.model,
		Parameters: generationParameters{
			ResultFormat: "text",
			Temperature:  c.temperature,
			TopP:         c.topP,
			MaxTokens:    c.maxTokens,
		},
	}
	reqBody.Input.Messages = []message{
		{Role: "system", Content: prompt.System},
		{Role: "user", Content: prompt.User},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return c.fail(failureSentinel, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return c.fail(failureSentinel, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &uerr) && uerr.Timeout()) {
			return c.fail(timeoutSentinel, fmt.Errorf("request timed out after %s: %w", c.httpClient.Timeout, err))
		}
		return c.fail(failureSentinel, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(fmt.Sprintf("系统异常（HTTP %d），请重试", resp.StatusCode), fmt.Errorf("API returned status: %s", resp.Status))
	}

	var gr generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return c.fail(failureSentinel, fmt.Errorf("parse response: %w", err))
	}

	if gr.Output != nil {
		for _, p := range outputProbes {
			text, claimed, perr := p.extract(gr.Output)
			if !claimed {
				continue
			}
			if perr != nil {
				return c.fail(fmt.Sprintf("系统异常（%v），请重试", perr), fmt.Errorf("shape %s: %w", p.name, perr))
			}
			return Answer{Text: text, Valid: true}
		}
		return c.fail(emptyContentSentinel, errors.New("no recognized shape under output"))
	}

	if gr.Code != "" && !strings.EqualFold(gr.Code, "success") {
		return c.fail(fmt.Sprintf("系统异常（%s：%s），请重试", gr.Code, gr.Message), fmt.Errorf("upstream error %s: %s", gr.Code, gr.Message))
	}
	return c.fail(failureSentinel, errors.New("unrecognized response payload"))
}

// Timeout reports the per-call bound, mostly for logging at startup.
func (c *Client) Timeout() time.Duration { return c.httpClient.Timeout }

func (c *Client) fail(text string, cause error) Answer {
	c.logger.Printf("generation failed: %v", cause)
	return Answer{Text: text, Valid: false}
}

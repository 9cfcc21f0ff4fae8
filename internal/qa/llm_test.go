package qa

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/govqa/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(config.LLMConfig{
		APIKey:      "test-key",
		APIURL:      srv.URL,
		Model:       "qwen-turbo",
		Temperature: 0.3,
		TopP:        0.8,
		MaxTokens:   512,
		Timeout:     timeout,
	}, log.New(io.Discard, "", 0))
	return c, srv
}

func TestInvokeDirectTextShape(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}
		w.Write([]byte(`{"output":{"text":"办理社保需要身份证。"}}`))
	}, time.Second)

	ans := c.Invoke(context.Background(), PromptPair{System: "s", User: "u"})
	if !ans.Valid {
		t.Fatalf("expected valid answer, got %+v", ans)
	}
	if ans.Text != "办理社保需要身份证。" {
		t.Fatalf("unexpected text: %q", ans.Text)
	}
}

func TestInvokeResultsShape(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":{"results":[{"message":{"content":"结果形态答案"}}]}}`))
	}, time.Second)

	ans := c.Invoke(context.Background(), PromptPair{})
	if !ans.Valid || ans.Text != "结果形态答案" {
		t.Fatalf("unexpected answer: %+v", ans)
	}
}

func TestInvokeLegacyChoicesShape(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":{"choices":[{"message":{"content":" 旧版形态答案 "}}]}}`))
	}, time.Second)

	ans := c.Invoke(context.Background(), PromptPair{})
	if !ans.Valid || ans.Text != "旧版形态答案" {
		t.Fatalf("unexpected answer: %+v", ans)
	}
}

func TestInvokeShapePriorityPrefersText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":{"text":"首选","choices":[{"message":{"content":"次选"}}]}}`))
	}, time.Second)

	ans := c.Invoke(context.Background(), PromptPair{})
	if !ans.Valid || ans.Text != "首选" {
		t.Fatalf("probe order broken: %+v", ans)
	}
}

func TestInvokeUnrecognizedOutput(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":{"something_else":"x"}}`))
	}, time.Second)

	ans := c.Invoke(context.Background(), PromptPair{})
	if ans.Valid {
		t.Fatalf("expected invalid answer, got %+v", ans)
	}
	if ans.Text != "未获取到回答内容，请重试" {
		t.Fatalf("unexpected sentinel: %q", ans.Text)
	}
}

func TestInvokeClaimedShapeMissingField(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":{"choices":[{"no_message":true}]}}`))
	}, time.Second)

	ans := c.Invoke(context.Background(), PromptPair{})
	if ans.Valid {
		t.Fatalf("expected invalid answer, got %+v", ans)
	}
	if !strings.Contains(ans.Text, "choices") {
		t.Fatalf("sentinel should name the missing field: %q", ans.Text)
	}
}

func TestInvokeUpstreamErrorEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"InvalidApiKey","message":"Invalid API-key provided."}`))
	}, time.Second)

	ans := c.Invoke(context.Background(), PromptPair{})
	if ans.Valid {
		t.Fatalf("expected invalid answer, got %+v", ans)
	}
	if !strings.Contains(ans.Text, "InvalidApiKey") || !strings.Contains(ans.Text, "系统异常") {
		t.Fatalf("sentinel should embed the upstream error: %q", ans.Text)
	}
}

func TestInvokeHTTPError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, time.Second)

	ans := c.Invoke(context.Background(), PromptPair{})
	if ans.Valid {
		t.Fatalf("expected invalid answer, got %+v", ans)
	}
	if !strings.Contains(ans.Text, "HTTP 500") {
		t.Fatalf("sentinel should embed the status: %q", ans.Text)
	}
}

func TestInvokeTimeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"output":{"text":"too late"}}`))
	}, 50*time.Millisecond)

	ans := c.Invoke(context.Background(), PromptPair{})
	if ans.Valid {
		t.Fatalf("expected invalid answer, got %+v", ans)
	}
	if ans.Text != "系统请求超时，请重试" {
		t.Fatalf("unexpected sentinel: %q", ans.Text)
	}
}

func TestInvokeMalformedJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}, time.Second)

	ans := c.Invoke(context.Background(), PromptPair{})
	if ans.Valid {
		t.Fatalf("expected invalid answer, got %+v", ans)
	}
	if ans.Text != "系统暂时无法生成回答，请重试" {
		t.Fatalf("unexpected sentinel: %q", ans.Text)
	}
}

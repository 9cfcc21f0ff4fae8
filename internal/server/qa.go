package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/govqa/internal/qa"
	"github.com/mohammad-safakhou/govqa/internal/store"
)

// QAHandler binds the answer-resolution pipeline to the HTTP API.
type QAHandler struct {
	Composer      *qa.Composer
	ManualChatURL string
	Logger        *log.Logger
}

func (h *QAHandler) Register(g *echo.Group) {
	g.POST("/qa", h.handleQA)
	g.POST("/feedback", h.handleFeedback)
	g.POST("/manual", h.handleManual)
}

type qaRequest struct {
	Question string `json:"question"`
	UserType string `json:"user_type"`
	Source   string `json:"source"`
}

// qaResponse keeps the envelope of the legacy service: HTTP status stays 200,
// the code field carries the outcome.
type qaResponse struct {
	Code          int     `json:"code"`
	Msg           string  `json:"msg"`
	RequestID     string  `json:"request_id,omitempty"`
	Answer        string  `json:"answer"`
	Confidence    float64 `json:"confidence"`
	ManualChatURL string  `json:"manual_chat_url,omitempty"`
}

func (h *QAHandler) handleQA(c echo.Context) error {
	var req qaRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, qaResponse{Code: 400, Msg: "请输入问题内容", Answer: "", Confidence: 0})
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return c.JSON(http.StatusOK, qaResponse{Code: 400, Msg: "请输入问题内容", Answer: "", Confidence: 0})
	}
	userType := req.UserType
	if userType == "" {
		userType = "personal"
	}

	requestID := uuid.NewString()
	resp := h.Composer.Resolve(c.Request().Context(), question, userType, requestID, req.Source)

	requestsTotal.WithLabelValues(string(resp.Status)).Inc()
	answerConfidence.Observe(resp.Confidence)

	msg := "success"
	if resp.Status == qa.StatusFailed {
		msg = "生成回答失败"
	}
	return c.JSON(http.StatusOK, qaResponse{
		Code:          200,
		Msg:           msg,
		RequestID:     resp.RequestID,
		Answer:        resp.Answer,
		Confidence:    resp.Confidence,
		ManualChatURL: resp.ManualChatURL,
	})
}

type feedbackRequest struct {
	RequestID    string `json:"request_id"`
	FeedbackType string `json:"feedback_type"`
	Remark       string `json:"remark"`
}

type feedbackResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (h *QAHandler) handleFeedback(c echo.Context) error {
	var req feedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, feedbackResponse{Code: 400, Msg: "参数错误"})
	}
	if strings.TrimSpace(req.RequestID) == "" || strings.TrimSpace(req.FeedbackType) == "" {
		return c.JSON(http.StatusOK, feedbackResponse{Code: 400, Msg: "request_id和feedback_type不能为空"})
	}

	err := h.Composer.RecordFeedback(c.Request().Context(), req.RequestID, req.FeedbackType, req.Remark)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusOK, feedbackResponse{Code: 404, Msg: "请求记录不存在"})
	case err != nil:
		h.Logger.Printf("feedback update failed: request_id=%s err=%v", req.RequestID, err)
		return c.JSON(http.StatusOK, feedbackResponse{Code: 500, Msg: "系统异常"})
	}
	return c.JSON(http.StatusOK, feedbackResponse{Code: 200, Msg: "success"})
}

type manualResponse struct {
	Code          int    `json:"code"`
	Msg           string `json:"msg"`
	ManualChatURL string `json:"manual_chat_url"`
}

// handleManual exposes the human-operator handoff channel.
func (h *QAHandler) handleManual(c echo.Context) error {
	return c.JSON(http.StatusOK, manualResponse{Code: 200, Msg: "success", ManualChatURL: h.ManualChatURL})
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/textbook-rag/internal/core/answer"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
)

// Answerer は質問応答ユースケース
type Answerer interface {
	AnswerQuestion(ctx context.Context, req answer.Request) (*answer.Result, error)
}

// AskRequest は POST /api/ask のリクエストボディ
type AskRequest struct {
	UserID    int64                 `json:"user_id"`
	SubjectID string                `json:"subject_id"`
	Question  string                `json:"question"`
	PageRange *curriculum.PageRange `json:"page_range,omitempty"`
	Username  string                `json:"username,omitempty"`
	Watermark string                `json:"watermark,omitempty"`
}

// AnswerHandler は質問応答 API
type AnswerHandler struct {
	svc    Answerer
	logger *slog.Logger
}

func NewAnswerHandler(svc Answerer, logger *slog.Logger) *AnswerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerHandler{svc: svc, logger: logger}
}

// POST /api/ask
func (h *AnswerHandler) Ask(c *gin.Context) {
	var body AskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	subjectID, err := uuid.Parse(strings.TrimSpace(body.SubjectID))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_subject_id", errors.New("invalid subject id"))
		return
	}

	pageRange := mo.None[curriculum.PageRange]()
	if r := body.PageRange; r != nil {
		if r.Start < 0 || r.End < r.Start {
			RespondError(c, http.StatusBadRequest, "invalid_page_range", fmt.Errorf("invalid page range: %d-%d", r.Start, r.End))
			return
		}
		pageRange = mo.Some(*r)
	}

	res, err := h.svc.AnswerQuestion(c.Request.Context(), answer.Request{
		UserID:    body.UserID,
		SubjectID: subjectID,
		Question:  body.Question,
		PageRange: pageRange,
		Watermark: DefaultWatermark(body.Watermark, body.Username, body.UserID),
	})
	if err != nil {
		if errors.Is(err, answer.ErrEmptyQuestion) || errors.Is(err, answer.ErrEmptySubjectID) {
			RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		h.logger.Error("answer failed", "subjectID", subjectID, "error", err)
		RespondError(c, http.StatusInternalServerError, "answer_failed", err)
		return
	}

	RespondOK(c, res)
}

// DefaultWatermark は透かしが未指定なら質問者を表す既定の透かしを返す
func DefaultWatermark(watermark, username string, userID int64) string {
	if w := strings.TrimSpace(watermark); w != "" {
		return w
	}
	if username = strings.TrimSpace(username); username == "" {
		return fmt.Sprintf("User: unknown / id: %d", userID)
	}
	return fmt.Sprintf("User: @%s / id: %d", strings.TrimPrefix(username, "@"), userID)
}

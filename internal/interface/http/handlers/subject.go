package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/core/navigation"
)

// Navigator は教科・単元・課の閲覧ユースケース
type Navigator interface {
	ListSubjects(ctx context.Context) ([]*curriculum.Subject, error)
	ListUnits(ctx context.Context, subjectID uuid.UUID) ([]*curriculum.TocItem, error)
	ListLessons(ctx context.Context, subjectID, unitID uuid.UUID) ([]*navigation.LessonView, error)
	SearchLessons(ctx context.Context, subjectID uuid.UUID, query string, limit int) ([]*navigation.LessonView, error)
}

// SubjectHandler は教科ナビゲーション API
type SubjectHandler struct {
	svc    Navigator
	logger *slog.Logger
}

func NewSubjectHandler(svc Navigator, logger *slog.Logger) *SubjectHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubjectHandler{svc: svc, logger: logger}
}

// GET /api/subjects
func (h *SubjectHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.svc.ListSubjects(c.Request.Context())
	if err != nil {
		h.logger.Error("list subjects failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	if subjects == nil {
		subjects = []*curriculum.Subject{}
	}
	RespondOK(c, gin.H{"subjects": subjects})
}

// GET /api/subjects/:id/units
func (h *SubjectHandler) ListUnits(c *gin.Context) {
	subjectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	units, err := h.svc.ListUnits(c.Request.Context(), subjectID)
	if err != nil {
		h.logger.Error("list units failed", "subjectID", subjectID, "error", err)
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	if units == nil {
		units = []*curriculum.TocItem{}
	}
	RespondOK(c, gin.H{"units": units})
}

// GET /api/subjects/:id/units/:unitId/lessons
func (h *SubjectHandler) ListLessons(c *gin.Context) {
	subjectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	unitID, ok := parseIDParam(c, "unitId")
	if !ok {
		return
	}
	lessons, err := h.svc.ListLessons(c.Request.Context(), subjectID, unitID)
	if err != nil {
		h.logger.Error("list lessons failed", "subjectID", subjectID, "unitID", unitID, "error", err)
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	if lessons == nil {
		lessons = []*navigation.LessonView{}
	}
	RespondOK(c, gin.H{"lessons": lessons})
}

// GET /api/subjects/:id/lessons/search?q=...&limit=3
func (h *SubjectHandler) SearchLessons(c *gin.Context) {
	subjectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	q := c.Query("q")
	if q == "" {
		RespondError(c, http.StatusBadRequest, "invalid_query", errEmptyQuery)
		return
	}
	limit := navigation.DefaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", errInvalidLimit)
			return
		}
		limit = n
	}
	lessons, err := h.svc.SearchLessons(c.Request.Context(), subjectID, q, limit)
	if err != nil {
		h.logger.Error("search lessons failed", "subjectID", subjectID, "error", err)
		RespondError(c, http.StatusInternalServerError, "search_failed", err)
		return
	}
	if lessons == nil {
		lessons = []*navigation.LessonView{}
	}
	RespondOK(c, gin.H{"lessons": lessons})
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errInvalidID(name))
		return uuid.Nil, false
	}
	return id, true
}

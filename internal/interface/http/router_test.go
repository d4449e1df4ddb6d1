package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/textbook-rag/internal/core/answer"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/core/navigation"
	httpH "github.com/jinford/textbook-rag/internal/interface/http/handlers"
)

type stubAnswerer struct {
	got    answer.Request
	result *answer.Result
	err    error
}

func (s *stubAnswerer) AnswerQuestion(_ context.Context, req answer.Request) (*answer.Result, error) {
	s.got = req
	return s.result, s.err
}

type stubNavigator struct {
	subjects []*curriculum.Subject
	units    []*curriculum.TocItem
	lessons  []*navigation.LessonView
	query    string
	limit    int
}

func (s *stubNavigator) ListSubjects(context.Context) ([]*curriculum.Subject, error) {
	return s.subjects, nil
}

func (s *stubNavigator) ListUnits(context.Context, uuid.UUID) ([]*curriculum.TocItem, error) {
	return s.units, nil
}

func (s *stubNavigator) ListLessons(context.Context, uuid.UUID, uuid.UUID) ([]*navigation.LessonView, error) {
	return s.lessons, nil
}

func (s *stubNavigator) SearchLessons(_ context.Context, _ uuid.UUID, query string, limit int) ([]*navigation.LessonView, error) {
	s.query, s.limit = query, limit
	return s.lessons, nil
}

func newTestRouter(ans *stubAnswerer, nav *stubNavigator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(RouterConfig{
		AnswerHandler:  httpH.NewAnswerHandler(ans, logger),
		SubjectHandler: httpH.NewSubjectHandler(nav, logger),
		HealthHandler:  httpH.NewHealthHandler(),
		Logger:         logger,
	})
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(&stubAnswerer{}, &stubNavigator{})
	rec := do(r, nethttp.MethodGet, "/healthz", "")
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAsk(t *testing.T) {
	subjectID := uuid.New()

	t.Run("answers with default watermark", func(t *testing.T) {
		ans := &stubAnswerer{result: &answer.Result{Answer: "نص\n\nالمراجع:\n- ص 4", Citations: []string{"ص 4"}}}
		r := newTestRouter(ans, &stubNavigator{})

		body := `{"user_id": 7, "subject_id": "` + subjectID.String() + `", "question": "ما هي الحركة", "page_range": {"start": 3, "end": 5}, "username": "ali"}`
		rec := do(r, nethttp.MethodPost, "/api/ask", body)
		require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())

		var got answer.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, []string{"ص 4"}, got.Citations)
		assert.False(t, got.Cached)

		assert.Equal(t, int64(7), ans.got.UserID)
		assert.Equal(t, subjectID, ans.got.SubjectID)
		assert.Equal(t, "User: @ali / id: 7", ans.got.Watermark)
		assert.Equal(t, curriculum.PageRange{Start: 3, End: 5}, ans.got.PageRange.MustGet())
	})

	t.Run("keeps explicit watermark and missing range", func(t *testing.T) {
		ans := &stubAnswerer{result: &answer.Result{}}
		r := newTestRouter(ans, &stubNavigator{})

		body := `{"user_id": 1, "subject_id": "` + subjectID.String() + `", "question": "س", "watermark": "bot"}`
		rec := do(r, nethttp.MethodPost, "/api/ask", body)
		require.Equal(t, nethttp.StatusOK, rec.Code)
		assert.Equal(t, "bot", ans.got.Watermark)
		assert.True(t, ans.got.PageRange.IsAbsent())
	})

	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{name: "malformed json", body: `{`, want: nethttp.StatusBadRequest},
		{name: "bad subject id", body: `{"subject_id": "x", "question": "q"}`, want: nethttp.StatusBadRequest},
		{name: "inverted range", body: `{"subject_id": "` + subjectID.String() + `", "question": "q", "page_range": {"start": 5, "end": 2}}`, want: nethttp.StatusBadRequest},
		{name: "empty question", body: `{"subject_id": "` + subjectID.String() + `"}`, err: answer.ErrEmptyQuestion, want: nethttp.StatusBadRequest},
		{name: "internal failure", body: `{"subject_id": "` + subjectID.String() + `", "question": "q"}`, err: errors.New("db down"), want: nethttp.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&stubAnswerer{err: tt.err}, &stubNavigator{})
			rec := do(r, nethttp.MethodPost, "/api/ask", tt.body)
			assert.Equal(t, tt.want, rec.Code)

			var env httpH.ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.NotEmpty(t, env.Error.Message)
		})
	}
}

func TestNavigationRoutes(t *testing.T) {
	subjectID := uuid.New()
	unitID := uuid.New()
	nav := &stubNavigator{
		subjects: []*curriculum.Subject{{ID: subjectID, Code: "physics", Name: "الفيزياء"}},
		units:    []*curriculum.TocItem{{ID: unitID, Title: "الوحدة الأولى", Level: 1}},
		lessons:  []*navigation.LessonView{{ID: uuid.New(), Title: "الحركة", UnitID: &unitID}},
	}
	r := newTestRouter(&stubAnswerer{}, nav)

	rec := do(r, nethttp.MethodGet, "/api/subjects", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var subjects struct {
		Subjects []*curriculum.Subject `json:"subjects"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subjects))
	require.Len(t, subjects.Subjects, 1)
	assert.Equal(t, "physics", subjects.Subjects[0].Code)

	rec = do(r, nethttp.MethodGet, "/api/subjects/"+subjectID.String()+"/units", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), unitID.String())

	rec = do(r, nethttp.MethodGet, "/api/subjects/"+subjectID.String()+"/units/"+unitID.String()+"/lessons", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "الحركة")

	rec = do(r, nethttp.MethodGet, "/api/subjects/"+subjectID.String()+"/lessons/search?q="+url.QueryEscape("نيوتن")+"&limit=2", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "نيوتن", nav.query)
	assert.Equal(t, 2, nav.limit)

	rec = do(r, nethttp.MethodGet, "/api/subjects/not-a-uuid/units", "")
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	rec = do(r, nethttp.MethodGet, "/api/subjects/"+subjectID.String()+"/lessons/search", "")
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestNavigationRoutes_EmptyListsAreArrays(t *testing.T) {
	r := newTestRouter(&stubAnswerer{}, &stubNavigator{})
	rec := do(r, nethttp.MethodGet, "/api/subjects", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subjects": []}`, rec.Body.String())
}

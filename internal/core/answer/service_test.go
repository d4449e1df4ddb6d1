package answer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubRepo struct {
	subject  *curriculum.Subject
	tocItems []*curriculum.TocItem
	chunks   []*curriculum.Chunk
	tocErr   error
}

func (r *stubRepo) GetSubject(ctx context.Context, id uuid.UUID) (mo.Option[*curriculum.Subject], error) {
	if r.subject == nil || r.subject.ID != id {
		return mo.None[*curriculum.Subject](), nil
	}
	return mo.Some(r.subject), nil
}

func (r *stubRepo) ListTocItems(ctx context.Context, subjectID uuid.UUID) ([]*curriculum.TocItem, error) {
	return r.tocItems, r.tocErr
}

func (r *stubRepo) GetChunksByIDs(ctx context.Context, ids []uuid.UUID) ([]*curriculum.Chunk, error) {
	want := map[uuid.UUID]struct{}{}
	for _, id := range ids {
		want[id] = struct{}{}
	}
	// 順序を保証しない実装を模して逆順で返す
	var out []*curriculum.Chunk
	for i := len(r.chunks) - 1; i >= 0; i-- {
		if _, ok := want[r.chunks[i].ID]; ok {
			out = append(out, r.chunks[i])
		}
	}
	return out, nil
}

type stubRetriever struct {
	result []*curriculum.Chunk
	calls  int
}

func (r *stubRetriever) RetrieveChunks(ctx context.Context, subjectID uuid.UUID, query string, pageRange mo.Option[curriculum.PageRange], topK int) ([]*curriculum.Chunk, error) {
	r.calls++
	return r.result, nil
}

type mapCache struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMapCache() *mapCache {
	return &mapCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Get(ctx context.Context, key string) (mo.Option[string], error) {
	if c.getErr != nil {
		return mo.None[string](), c.getErr
	}
	if v, ok := c.values[key]; ok {
		return mo.Some(v), nil
	}
	return mo.None[string](), nil
}

func (c *mapCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.values[key] = value
	c.ttls[key] = ttl
	return nil
}

type fixture struct {
	repo      *stubRepo
	retriever *stubRetriever
	cache     *mapCache
	svc       *Service
	lesson    *curriculum.TocItem
}

func newFixture(t *testing.T, contents ...string) *fixture {
	t.Helper()
	subject := &curriculum.Subject{ID: uuid.New(), Code: "physics", Name: "فيزياء", ContentVersion: 1}
	unit := &curriculum.TocItem{ID: uuid.New(), SubjectID: subject.ID, Title: "الوحدة الأولى", Level: 1, OrderIndex: 0, StartPDFPage: curriculum.IntPtr(0)}
	lesson := &curriculum.TocItem{ID: uuid.New(), SubjectID: subject.ID, ParentID: &unit.ID, Title: "الدرس 1", Level: 2, OrderIndex: 1, StartPDFPage: curriculum.IntPtr(1)}

	var chunks []*curriculum.Chunk
	for i, content := range contents {
		chunks = append(chunks, &curriculum.Chunk{
			ID:                uuid.New(),
			SubjectID:         subject.ID,
			TocItemID:         &lesson.ID,
			PDFPageIndex:      3 + i,
			PrintedPageNumber: curriculum.IntPtr(12 + i),
			Ordinal:           i,
			Content:           content,
		})
	}

	f := &fixture{
		repo:      &stubRepo{subject: subject, tocItems: []*curriculum.TocItem{unit, lesson}, chunks: chunks},
		retriever: &stubRetriever{result: chunks},
		cache:     newMapCache(),
		lesson:    lesson,
	}
	f.svc = NewService(f.repo, f.retriever, f.cache, WithAnswerLogger(discardLogger()))
	return f
}

func (f *fixture) request(question string) Request {
	return Request{
		UserID:    1,
		SubjectID: f.repo.subject.ID,
		Question:  question,
		PageRange: mo.Some(curriculum.PageRange{Start: 0, End: 10}),
	}
}

func TestAnswerQuestion_StructuredCitations(t *testing.T) {
	f := newFixture(t, "النص العلمي عن الحركه")

	out, err := f.svc.AnswerQuestion(context.Background(), f.request("الحركة"))
	require.NoError(t, err)

	assert.False(t, out.Cached)
	assert.Contains(t, out.Answer, ReferencesMarker)
	assert.Contains(t, out.Answer, "فيزياء")
	assert.Contains(t, out.Answer, "الوحدة الأولى / الدرس 1")
	assert.Contains(t, out.Answer, "PDF p4")
	assert.Contains(t, out.Answer, "ص12")
	assert.Contains(t, out.Answer, "النص العلمي عن الحركه")
	assert.Equal(t, []string{"فيزياء | الوحدة الأولى / الدرس 1 | ص12 (PDF p4)"}, out.Citations)
}

func TestAnswerQuestion_RefusesWithoutRetrieval(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.AnswerQuestion(context.Background(), f.request("تفاضل"))
	require.NoError(t, err)

	assert.Contains(t, out.Answer, "لا أملك مراجع كافية")
	assert.Equal(t, []string{}, out.Citations)
	assert.False(t, out.Cached)
	assert.True(t, IsRefusal(out.Answer))
	assert.Empty(t, f.cache.values, "拒否回答も空の検索結果もキャッシュしない")
}

func TestAnswerQuestion_RefusesWhenBodyIsEmpty(t *testing.T) {
	f := newFixture(t, "12 - 13 ... ٤٥", "قصير")

	out, err := f.svc.AnswerQuestion(context.Background(), f.request("الحركة"))
	require.NoError(t, err)
	assert.Equal(t, RefusalInsufficientEvidence, out.Answer)
	assert.Empty(t, out.Citations)
}

func TestAnswerQuestion_CacheRoundTrip(t *testing.T) {
	f := newFixture(t, "الحركه هي تغير موضع الجسم مع الزمن.", "السرعه المتوسطه تساوي المسافه على الزمن.")
	ctx := context.Background()
	req := f.request("الحركة")

	first, err := f.svc.AnswerQuestion(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.AnswerQuestion(ctx, req)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, first.Citations, second.Citations)
	assert.Equal(t, 1, f.retriever.calls)

	answerKey := CacheKey(KeyParams{
		Operation:      OperationExplain,
		SubjectID:      req.SubjectID,
		PageRange:      req.PageRange,
		Question:       "الحركة",
		EmbeddingMode:  DefaultEmbeddingMode,
		ContentVersion: 1,
	})
	assert.Equal(t, DefaultAnswerTTL, f.cache.ttls[answerKey])

	// 再取り込みでバージョンが上がると新しいキーになる
	f.repo.subject.ContentVersion = 2
	third, err := f.svc.AnswerQuestion(ctx, req)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, f.retriever.calls)
}

func TestAnswerQuestion_RetrievalCacheHit(t *testing.T) {
	f := newFixture(t, "الحركه هي تغير موضع الجسم مع الزمن.", "الحركه المنتظمه تكون بسرعه ثابته.")
	ctx := context.Background()
	req := f.request("الحركة")

	retrieveKey := CacheKey(KeyParams{
		Operation:      OperationRetrieve,
		SubjectID:      req.SubjectID,
		PageRange:      req.PageRange,
		Question:       "الحركة",
		EmbeddingMode:  DefaultEmbeddingMode,
		ContentVersion: 1,
	})
	f.cache.values[retrieveKey] = EncodeChunkIDs(f.repo.chunks)

	out, err := f.svc.AnswerQuestion(ctx, req)
	require.NoError(t, err)
	assert.Zero(t, f.retriever.calls)
	require.Len(t, out.Citations, 2)
	assert.Contains(t, out.Citations[0], "PDF p4", "キャッシュされた ID の順序を保つ")
	assert.Contains(t, out.Citations[1], "PDF p5")
}

func TestAnswerQuestion_RetrievalCacheWritten(t *testing.T) {
	f := newFixture(t, "الحركه هي تغير موضع الجسم مع الزمن.")
	req := f.request("الحركة")

	_, err := f.svc.AnswerQuestion(context.Background(), req)
	require.NoError(t, err)

	retrieveKey := CacheKey(KeyParams{
		Operation:      OperationRetrieve,
		SubjectID:      req.SubjectID,
		PageRange:      req.PageRange,
		Question:       "الحركة",
		EmbeddingMode:  DefaultEmbeddingMode,
		ContentVersion: 1,
	})
	assert.Equal(t, f.repo.chunks[0].ID.String(), f.cache.values[retrieveKey])
	assert.Equal(t, DefaultRetrievalTTL, f.cache.ttls[retrieveKey])
}

func TestAnswerQuestion_Watermark(t *testing.T) {
	f := newFixture(t, "الحركه هي تغير موضع الجسم مع الزمن.")
	ctx := context.Background()

	req := f.request("الحركة")
	req.Watermark = "User: @ali / id: 1"
	first, err := f.svc.AnswerQuestion(ctx, req)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(first.Answer, "\n\nUser: @ali / id: 1"))

	for _, v := range f.cache.values {
		assert.NotContains(t, v, "@ali", "透かしはキャッシュに含めない")
	}

	other := f.request("الحركة")
	other.UserID = 2
	other.Watermark = "User: @sara / id: 2"
	second, err := f.svc.AnswerQuestion(ctx, other)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.NotContains(t, second.Answer, "@ali")
	assert.True(t, strings.HasSuffix(second.Answer, "User: @sara / id: 2"))
	assert.Equal(t, first.Citations, second.Citations)
}

func TestAnswerQuestion_CacheFailureIsMiss(t *testing.T) {
	f := newFixture(t, "الحركه هي تغير موضع الجسم مع الزمن.")
	f.cache.getErr = errors.New("cache down")
	f.cache.setErr = errors.New("cache down")
	ctx := context.Background()

	for range 2 {
		out, err := f.svc.AnswerQuestion(ctx, f.request("الحركة"))
		require.NoError(t, err)
		assert.False(t, out.Cached)
		assert.NotEmpty(t, out.Citations)
	}
	assert.Equal(t, 2, f.retriever.calls)
}

func TestAnswerQuestion_UnknownSubjectUsesDefaultVersion(t *testing.T) {
	f := newFixture(t, "الحركه هي تغير موضع الجسم مع الزمن.")
	f.repo.tocErr = errors.New("toc unavailable")
	req := f.request("الحركة")
	req.SubjectID = uuid.New()

	out, err := f.svc.AnswerQuestion(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, out.Citations, 1)
	assert.Contains(t, out.Citations[0], "درس غير محدد", "目次を読めなくても回答は返す")
}

func TestAnswerQuestion_ContractErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AnswerQuestion(ctx, Request{SubjectID: uuid.New(), Question: "  "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = f.svc.AnswerQuestion(ctx, Request{Question: "الحركة"})
	assert.ErrorIs(t, err, ErrEmptySubjectID)
}

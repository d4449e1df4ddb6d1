package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/core/ingestion"
	"github.com/jinford/textbook-rag/internal/infra/postgres/sqlc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingQuerier は呼び出しを記録する sqlc.Querier のスタブ
type recordingQuerier struct {
	sqlc.Querier

	calls      []string
	tocItems   []sqlc.CreateTocItemParams
	chunkRows  []sqlc.CreateChunkBatchParams
	embeddings []sqlc.CreateLessonEmbeddingParams
	upserted   sqlc.UpsertSubjectParams
	cache      map[string]sqlc.UpsertCacheEntryParams
	now        time.Time
	failOn     string
	failErr    error
}

func (q *recordingQuerier) record(name string) error {
	q.calls = append(q.calls, name)
	if q.failOn == name {
		if q.failErr != nil {
			return q.failErr
		}
		return errors.New("boom")
	}
	return nil
}

func (q *recordingQuerier) UpsertSubject(_ context.Context, arg sqlc.UpsertSubjectParams) (sqlc.Subject, error) {
	q.upserted = arg
	return sqlc.Subject{
		ID:             arg.ID,
		Code:           arg.Code,
		Name:           arg.Name,
		PdfPath:        arg.PdfPath,
		ContentVersion: arg.ContentVersion,
	}, q.record("UpsertSubject")
}

func (q *recordingQuerier) DeleteLessonEmbeddingsBySubject(context.Context, pgtype.UUID) error {
	return q.record("DeleteLessonEmbeddingsBySubject")
}

func (q *recordingQuerier) DeleteChunksBySubject(context.Context, pgtype.UUID) error {
	return q.record("DeleteChunksBySubject")
}

func (q *recordingQuerier) DeleteTocItemsBySubject(context.Context, pgtype.UUID) error {
	return q.record("DeleteTocItemsBySubject")
}

func (q *recordingQuerier) CreateTocItem(_ context.Context, arg sqlc.CreateTocItemParams) error {
	q.tocItems = append(q.tocItems, arg)
	return q.record("CreateTocItem")
}

func (q *recordingQuerier) CreateChunkBatch(_ context.Context, arg []sqlc.CreateChunkBatchParams) (int64, error) {
	q.chunkRows = append(q.chunkRows, arg...)
	return int64(len(arg)), q.record("CreateChunkBatch")
}

func (q *recordingQuerier) CreateLessonEmbedding(_ context.Context, arg sqlc.CreateLessonEmbeddingParams) error {
	q.embeddings = append(q.embeddings, arg)
	return q.record("CreateLessonEmbedding")
}

func (q *recordingQuerier) GetCacheEntry(_ context.Context, key string) (string, error) {
	e, ok := q.cache[key]
	if !ok || !e.ExpiresAt.Time.After(q.now) {
		return "", pgx.ErrNoRows
	}
	return e.Value, nil
}

func (q *recordingQuerier) DeleteExpiredCacheEntry(_ context.Context, key string) (int64, error) {
	e, ok := q.cache[key]
	if !ok || e.ExpiresAt.Time.After(q.now) {
		return 0, q.record("DeleteExpiredCacheEntry")
	}
	delete(q.cache, key)
	return 1, q.record("DeleteExpiredCacheEntry")
}

func (q *recordingQuerier) UpsertCacheEntry(_ context.Context, arg sqlc.UpsertCacheEntryParams) error {
	if q.cache == nil {
		q.cache = map[string]sqlc.UpsertCacheEntryParams{}
	}
	q.cache[arg.CacheKey] = arg
	return q.record("UpsertCacheEntry")
}

func TestReplaceSubjectContent(t *testing.T) {
	unitID := uuid.New()
	lessonID := uuid.New()
	content := &ingestion.SubjectContent{
		Subject: &curriculum.Subject{Code: "physics", Name: "الفيزياء", PDFPath: "physics.pdf", ContentVersion: 3},
		TocItems: []*curriculum.TocItem{
			{ID: unitID, Title: "الوحدة الأولى", Level: 1, OrderIndex: 0, StartPDFPage: curriculum.IntPtr(3)},
			{ID: lessonID, ParentID: &unitID, Title: "الدرس الأول", Level: 2, OrderIndex: 1, StartPDFPage: curriculum.IntPtr(4)},
		},
		Chunks: []*curriculum.Chunk{
			{ID: uuid.New(), TocItemID: &lessonID, PDFPageIndex: 4, PrintedPageNumber: curriculum.IntPtr(12), Content: "x", TokenCount: 7},
		},
		LessonEmbeddings: []*curriculum.LessonEmbedding{
			{TocItemID: lessonID, Summary: "s", Vector: []float32{0.6, 0.8}},
		},
	}

	t.Run("writes in order", func(t *testing.T) {
		q := &recordingQuerier{}
		saved, err := replaceSubjectContent(context.Background(), q, content)
		require.NoError(t, err)

		assert.Equal(t, []string{
			"UpsertSubject",
			"DeleteLessonEmbeddingsBySubject",
			"DeleteChunksBySubject",
			"DeleteTocItemsBySubject",
			"CreateTocItem",
			"CreateTocItem",
			"CreateChunkBatch",
			"CreateLessonEmbedding",
		}, q.calls)

		assert.NotEqual(t, uuid.Nil, saved.ID)
		assert.Equal(t, 3, saved.ContentVersion)
		assert.Equal(t, int32(3), q.upserted.ContentVersion)

		require.Len(t, q.tocItems, 2)
		assert.False(t, q.tocItems[0].ParentID.Valid)
		assert.Equal(t, UUIDToPgtype(unitID), q.tocItems[1].ParentID)
		assert.False(t, q.tocItems[1].EndPdfPage.Valid)

		require.Len(t, q.chunkRows, 1)
		assert.Equal(t, int32(12), q.chunkRows[0].PrintedPageNumber.Int32)
		assert.Equal(t, q.upserted.ID, q.chunkRows[0].SubjectID)

		require.Len(t, q.embeddings, 1)
		assert.Equal(t, []float32{0.6, 0.8}, q.embeddings[0].Embedding.Slice())
	})

	t.Run("stops on failure", func(t *testing.T) {
		q := &recordingQuerier{failOn: "CreateChunkBatch"}
		_, err := replaceSubjectContent(context.Background(), q, content)
		require.Error(t, err)
		assert.NotContains(t, q.calls, "CreateLessonEmbedding")
		assert.NotErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("marks unique violations", func(t *testing.T) {
		q := &recordingQuerier{
			failOn:  "CreateLessonEmbedding",
			failErr: &pgconn.PgError{Code: "23505", ConstraintName: "lesson_embeddings_pkey"},
		}
		_, err := replaceSubjectContent(context.Background(), q, content)
		require.ErrorIs(t, err, ErrDuplicateKey)

		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, "lesson_embeddings_pkey", pgErr.ConstraintName)
	})
}

func TestCache(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	q := &recordingQuerier{now: fixed}
	cache := NewCache(q)
	cache.now = func() time.Time { return fixed }
	ctx := context.Background()

	miss, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, miss.IsAbsent())

	require.NoError(t, cache.Set(ctx, "k", "v", time.Hour))
	assert.Equal(t, fixed.Add(time.Hour), q.cache["k"].ExpiresAt.Time)

	q.calls = nil
	hit, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", hit.MustGet())
	assert.Empty(t, q.calls)
}

func TestCache_EvictsExpiredOnRead(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	q := &recordingQuerier{now: fixed}
	cache := NewCache(q)
	cache.now = func() time.Time { return fixed }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "old", "v", -time.Minute))
	require.Contains(t, q.cache, "old")

	got, err := cache.Get(ctx, "old")
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
	assert.NotContains(t, q.cache, "old")
	assert.Equal(t, "DeleteExpiredCacheEntry", q.calls[len(q.calls)-1])

	t.Run("delete failure surfaces", func(t *testing.T) {
		q := &recordingQuerier{now: fixed, failOn: "DeleteExpiredCacheEntry"}
		_, err := NewCache(q).Get(ctx, "missing")
		require.Error(t, err)
	})
}

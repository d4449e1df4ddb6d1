// Package postgres は pgx と pgvector を使った永続化層を提供する
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"

	"github.com/jinford/textbook-rag/internal/core/answer"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/core/ingestion"
	"github.com/jinford/textbook-rag/internal/core/navigation"
	"github.com/jinford/textbook-rag/internal/core/retrieval"
	"github.com/jinford/textbook-rag/internal/infra/postgres/sqlc"
	"github.com/jinford/textbook-rag/internal/platform/database"
)

// Store は教科データの PostgreSQL リポジトリです
type Store struct {
	q  sqlc.Querier
	tx *database.TransactionProvider
}

// NewStore は接続プールから Store を作成します
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		q:  sqlc.New(pool),
		tx: database.NewTransactionProvider(pool),
	}
}

// コンパイル時の型チェック
var (
	_ ingestion.Repository  = (*Store)(nil)
	_ retrieval.Repository  = (*Store)(nil)
	_ answer.Repository     = (*Store)(nil)
	_ navigation.Repository = (*Store)(nil)
)

// === Subject ===

func (s *Store) GetSubject(ctx context.Context, id uuid.UUID) (mo.Option[*curriculum.Subject], error) {
	row, err := s.q.GetSubject(ctx, UUIDToPgtype(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*curriculum.Subject](), nil
		}
		return mo.None[*curriculum.Subject](), fmt.Errorf("failed to get subject: %w", err)
	}
	return mo.Some(convertSubject(row)), nil
}

func (s *Store) GetSubjectByCode(ctx context.Context, code string) (mo.Option[*curriculum.Subject], error) {
	row, err := s.q.GetSubjectByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*curriculum.Subject](), nil
		}
		return mo.None[*curriculum.Subject](), fmt.Errorf("failed to get subject by code: %w", err)
	}
	return mo.Some(convertSubject(row)), nil
}

func (s *Store) ListSubjects(ctx context.Context) ([]*curriculum.Subject, error) {
	rows, err := s.q.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}

	subjects := make([]*curriculum.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, convertSubject(row))
	}
	return subjects, nil
}

// ReplaceSubjectContent は教科を upsert し、目次・チャンク・課 Embedding を
// 1トランザクションで入れ替えます
func (s *Store) ReplaceSubjectContent(ctx context.Context, content *ingestion.SubjectContent) (*curriculum.Subject, error) {
	return database.Transact(ctx, s.tx, func(a *database.Adapter) (*curriculum.Subject, error) {
		return replaceSubjectContent(ctx, a.Queries, content)
	})
}

func replaceSubjectContent(ctx context.Context, q sqlc.Querier, content *ingestion.SubjectContent) (*curriculum.Subject, error) {
	sub := content.Subject
	id := sub.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row, err := q.UpsertSubject(ctx, sqlc.UpsertSubjectParams{
		ID:             UUIDToPgtype(id),
		Code:           sub.Code,
		Name:           sub.Name,
		PdfPath:        sub.PDFPath,
		ContentVersion: int32(sub.ContentVersion),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subject: %w", err)
	}
	subjectID := row.ID

	if err := q.DeleteLessonEmbeddingsBySubject(ctx, subjectID); err != nil {
		return nil, fmt.Errorf("failed to delete lesson embeddings: %w", err)
	}
	if err := q.DeleteChunksBySubject(ctx, subjectID); err != nil {
		return nil, fmt.Errorf("failed to delete chunks: %w", err)
	}
	if err := q.DeleteTocItemsBySubject(ctx, subjectID); err != nil {
		return nil, fmt.Errorf("failed to delete toc items: %w", err)
	}

	// 親は子より前に並んでいる
	for _, it := range content.TocItems {
		if err := q.CreateTocItem(ctx, sqlc.CreateTocItemParams{
			ID:               UUIDToPgtype(it.ID),
			SubjectID:        subjectID,
			ParentID:         UUIDPtrToPgtype(it.ParentID),
			Title:            it.Title,
			Level:            int32(it.Level),
			OrderIndex:       int32(it.OrderIndex),
			StartPdfPage:     IntPtrToPgInt4(it.StartPDFPage),
			EndPdfPage:       IntPtrToPgInt4(it.EndPDFPage),
			PrintedPageStart: IntPtrToPgInt4(it.PrintedPageStart),
		}); err != nil {
			return nil, fmt.Errorf("failed to create toc item %q: %w", it.Title, classifyPgError(err))
		}
	}

	if len(content.Chunks) > 0 {
		rows := make([]sqlc.CreateChunkBatchParams, 0, len(content.Chunks))
		for _, c := range content.Chunks {
			rows = append(rows, sqlc.CreateChunkBatchParams{
				ID:                UUIDToPgtype(c.ID),
				SubjectID:         subjectID,
				TocItemID:         UUIDPtrToPgtype(c.TocItemID),
				PdfPageIndex:      int32(c.PDFPageIndex),
				PrintedPageNumber: IntPtrToPgInt4(c.PrintedPageNumber),
				Ordinal:           int32(c.Ordinal),
				Content:           c.Content,
				ContentHash:       c.ContentHash,
				TokenCount:        int32(c.TokenCount),
			})
		}
		if _, err := q.CreateChunkBatch(ctx, rows); err != nil {
			return nil, fmt.Errorf("failed to batch create chunks: %w", classifyPgError(err))
		}
	}

	for _, le := range content.LessonEmbeddings {
		if err := q.CreateLessonEmbedding(ctx, sqlc.CreateLessonEmbeddingParams{
			TocItemID: UUIDToPgtype(le.TocItemID),
			SubjectID: subjectID,
			Summary:   le.Summary,
			Embedding: pgvector.NewVector(le.Vector),
		}); err != nil {
			return nil, fmt.Errorf("failed to create lesson embedding: %w", classifyPgError(err))
		}
	}

	return convertSubject(row), nil
}

// === TocItem ===

func (s *Store) ListTocItems(ctx context.Context, subjectID uuid.UUID) ([]*curriculum.TocItem, error) {
	rows, err := s.q.ListTocItemsBySubject(ctx, UUIDToPgtype(subjectID))
	if err != nil {
		return nil, fmt.Errorf("failed to list toc items: %w", err)
	}

	items := make([]*curriculum.TocItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, convertTocItem(row))
	}
	return items, nil
}

// === Chunk ===

func (s *Store) ListChunksForRetrieval(ctx context.Context, subjectID uuid.UUID, pageRange mo.Option[curriculum.PageRange], limit int) ([]*curriculum.Chunk, error) {
	params := sqlc.ListChunksForRetrievalParams{
		SubjectID: UUIDToPgtype(subjectID),
		RowLimit:  int32(limit),
	}
	if r, ok := pageRange.Get(); ok {
		params.StartPage = IntToPgtype(r.Start)
		params.EndPage = IntToPgtype(r.End)
	}

	rows, err := s.q.ListChunksForRetrieval(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks for retrieval: %w", err)
	}
	return convertChunks(rows), nil
}

func (s *Store) GetChunksByIDs(ctx context.Context, ids []uuid.UUID) ([]*curriculum.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pgIDs := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		pgIDs = append(pgIDs, UUIDToPgtype(id))
	}

	rows, err := s.q.GetChunksByIDs(ctx, pgIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks by ids: %w", err)
	}
	return convertChunks(rows), nil
}

func (s *Store) ListLessonChunks(ctx context.Context, subjectID uuid.UUID, limit int) ([]*curriculum.Chunk, error) {
	rows, err := s.q.ListLessonChunks(ctx, sqlc.ListLessonChunksParams{
		SubjectID: UUIDToPgtype(subjectID),
		RowLimit:  int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list lesson chunks: %w", err)
	}
	return convertChunks(rows), nil
}

func (s *Store) LastPDFPage(ctx context.Context, subjectID uuid.UUID) (mo.Option[int], error) {
	last, err := s.q.GetLastPDFPage(ctx, UUIDToPgtype(subjectID))
	if err != nil {
		return mo.None[int](), fmt.Errorf("failed to get last pdf page: %w", err)
	}
	if last < 0 {
		return mo.None[int](), nil
	}
	return mo.Some(int(last)), nil
}

// === LessonEmbedding ===

func (s *Store) NearestLessons(ctx context.Context, subjectID uuid.UUID, vector []float32, limit int) ([]navigation.LessonMatch, error) {
	rows, err := s.q.NearestLessons(ctx, sqlc.NearestLessonsParams{
		QueryVector: pgvector.NewVector(vector),
		SubjectID:   UUIDToPgtype(subjectID),
		RowLimit:    int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search nearest lessons: %w", err)
	}

	matches := make([]navigation.LessonMatch, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, navigation.LessonMatch{
			TocItemID:  PgtypeToUUID(row.TocItemID),
			Similarity: row.Similarity,
		})
	}
	return matches, nil
}

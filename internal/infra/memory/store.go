// Package memory はプロセス内に保持するストア実装を提供する。
// テストと STORE_BACKEND=memory でのローカル実行に使う。
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/textbook-rag/internal/core/answer"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/core/ingestion"
	"github.com/jinford/textbook-rag/internal/core/navigation"
	"github.com/jinford/textbook-rag/internal/core/retrieval"
	"github.com/samber/mo"
)

// Store はメモリ上の教科データストア
type Store struct {
	mu       sync.RWMutex
	subjects map[uuid.UUID]*curriculum.Subject
	toc      map[uuid.UUID][]*curriculum.TocItem
	chunks   map[uuid.UUID][]*curriculum.Chunk
	lessons  map[uuid.UUID][]*curriculum.LessonEmbedding
	byID     map[uuid.UUID]*curriculum.Chunk
	now      func() time.Time
}

var (
	_ ingestion.Repository  = (*Store)(nil)
	_ retrieval.Repository  = (*Store)(nil)
	_ answer.Repository     = (*Store)(nil)
	_ navigation.Repository = (*Store)(nil)
)

// NewStore は空の Store を作成する
func NewStore() *Store {
	return &Store{
		subjects: make(map[uuid.UUID]*curriculum.Subject),
		toc:      make(map[uuid.UUID][]*curriculum.TocItem),
		chunks:   make(map[uuid.UUID][]*curriculum.Chunk),
		lessons:  make(map[uuid.UUID][]*curriculum.LessonEmbedding),
		byID:     make(map[uuid.UUID]*curriculum.Chunk),
		now:      time.Now,
	}
}

// GetSubjectByCode は教科コードで教科を取得する
func (s *Store) GetSubjectByCode(_ context.Context, code string) (mo.Option[*curriculum.Subject], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subjects {
		if sub.Code == code {
			return mo.Some(copySubject(sub)), nil
		}
	}
	return mo.None[*curriculum.Subject](), nil
}

// GetSubject は ID で教科を取得する
func (s *Store) GetSubject(_ context.Context, id uuid.UUID) (mo.Option[*curriculum.Subject], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subjects[id]
	if !ok {
		return mo.None[*curriculum.Subject](), nil
	}
	return mo.Some(copySubject(sub)), nil
}

// ListSubjects は教科コード順に全教科を返す
func (s *Store) ListSubjects(_ context.Context) ([]*curriculum.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*curriculum.Subject, 0, len(s.subjects))
	for _, sub := range s.subjects {
		result = append(result, copySubject(sub))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// ReplaceSubjectContent は教科を upsert し、関連データを丸ごと置き換える
func (s *Store) ReplaceSubjectContent(_ context.Context, content *ingestion.SubjectContent) (*curriculum.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := copySubject(content.Subject)
	now := s.now()
	// コードが一致する既存教科の ID を引き継ぐ
	for id, existing := range s.subjects {
		if existing.Code == sub.Code {
			sub.ID = id
			sub.CreatedAt = existing.CreatedAt
		}
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	for _, c := range s.chunks[sub.ID] {
		delete(s.byID, c.ID)
	}

	toc := make([]*curriculum.TocItem, 0, len(content.TocItems))
	for _, it := range content.TocItems {
		cp := *it
		cp.SubjectID = sub.ID
		toc = append(toc, &cp)
	}
	sort.SliceStable(toc, func(i, j int) bool { return toc[i].OrderIndex < toc[j].OrderIndex })

	chunks := make([]*curriculum.Chunk, 0, len(content.Chunks))
	for _, c := range content.Chunks {
		cp := *c
		cp.SubjectID = sub.ID
		chunks = append(chunks, &cp)
		s.byID[cp.ID] = &cp
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].PDFPageIndex != chunks[j].PDFPageIndex {
			return chunks[i].PDFPageIndex < chunks[j].PDFPageIndex
		}
		return chunks[i].Ordinal < chunks[j].Ordinal
	})

	lessons := make([]*curriculum.LessonEmbedding, 0, len(content.LessonEmbeddings))
	for _, le := range content.LessonEmbeddings {
		cp := *le
		cp.SubjectID = sub.ID
		lessons = append(lessons, &cp)
	}

	s.subjects[sub.ID] = sub
	s.toc[sub.ID] = toc
	s.chunks[sub.ID] = chunks
	s.lessons[sub.ID] = lessons
	return copySubject(sub), nil
}

// ListTocItems は order_index 順の目次項目を返す
func (s *Store) ListTocItems(_ context.Context, subjectID uuid.UUID) ([]*curriculum.TocItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.toc[subjectID]
	result := make([]*curriculum.TocItem, 0, len(items))
	for _, it := range items {
		cp := *it
		result = append(result, &cp)
	}
	return result, nil
}

// ListChunksForRetrieval は (pdf_page_index, ordinal) 順のチャンクを最大 limit 件返す
func (s *Store) ListChunksForRetrieval(_ context.Context, subjectID uuid.UUID, pageRange mo.Option[curriculum.PageRange], limit int) ([]*curriculum.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*curriculum.Chunk
	for _, c := range s.chunks[subjectID] {
		if limit > 0 && len(result) >= limit {
			break
		}
		if r, ok := pageRange.Get(); ok && !r.Contains(c.PDFPageIndex) {
			continue
		}
		cp := *c
		result = append(result, &cp)
	}
	return result, nil
}

// GetChunksByIDs は存在するチャンクのみを返す（順序は保証しない）
func (s *Store) GetChunksByIDs(_ context.Context, ids []uuid.UUID) ([]*curriculum.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*curriculum.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.byID[id]; ok {
			cp := *c
			result = append(result, &cp)
		}
	}
	return result, nil
}

// ListLessonChunks は目次項目に割り当て済みのチャンクを最大 limit 件返す
func (s *Store) ListLessonChunks(_ context.Context, subjectID uuid.UUID, limit int) ([]*curriculum.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*curriculum.Chunk
	for _, c := range s.chunks[subjectID] {
		if limit > 0 && len(result) >= limit {
			break
		}
		if c.TocItemID == nil {
			continue
		}
		cp := *c
		result = append(result, &cp)
	}
	return result, nil
}

// NearestLessons はコサイン類似度の高い順に課を返す
func (s *Store) NearestLessons(_ context.Context, subjectID uuid.UUID, vector []float32, limit int) ([]navigation.LessonMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]navigation.LessonMatch, 0, len(s.lessons[subjectID]))
	for _, le := range s.lessons[subjectID] {
		matches = append(matches, navigation.LessonMatch{
			TocItemID:  le.TocItemID,
			Similarity: cosine(vector, le.Vector),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// LastPDFPage はチャンクが存在する最大の PDF ページを返す
func (s *Store) LastPDFPage(_ context.Context, subjectID uuid.UUID) (mo.Option[int], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := s.chunks[subjectID]
	if len(chunks) == 0 {
		return mo.None[int](), nil
	}
	return mo.Some(chunks[len(chunks)-1].PDFPageIndex), nil
}

func copySubject(sub *curriculum.Subject) *curriculum.Subject {
	cp := *sub
	return &cp
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

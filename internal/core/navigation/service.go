// Package navigation は教科の単元・課の一覧と課の検索を提供する
package navigation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/core/textnorm"
	"github.com/samber/mo"
)

const (
	DefaultSearchLimit = 3

	titleScoreThreshold   = 20.0
	contentScoreThreshold = 35.0
	contentScanLimit      = 2500
	contentWindowChars    = 400
)

// LessonView は前段（CLI/API）向けの課の表示情報
type LessonView struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	UnitID           *uuid.UUID `json:"unitId,omitempty"`
	UnitTitle        string     `json:"unitTitle,omitempty"`
	StartPDFPage     *int       `json:"startPdfPage,omitempty"`
	EndPDFPage       *int       `json:"endPdfPage,omitempty"`
	PrintedPageStart *int       `json:"printedPageStart,omitempty"`
	Score            float64    `json:"score,omitempty"`

	pageRange mo.Option[curriculum.PageRange]
}

// PageRange は質問の絞り込みに使うページ範囲を返す
func (v *LessonView) PageRange() mo.Option[curriculum.PageRange] {
	return v.pageRange
}

// Service はナビゲーションのユースケースを提供する
type Service struct {
	repo     Repository
	scorer   LexicalScorer
	embedder Embedder
	logger   *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*Service)

// WithNavigationLogger はロガーを設定する
func WithNavigationLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEmbedder は課要約 Embedding による近傍検索を有効にする
func WithEmbedder(embedder Embedder) ServiceOption {
	return func(s *Service) {
		s.embedder = embedder
	}
}

// NewService は新しい Service を作成する
func NewService(repo Repository, scorer LexicalScorer, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, scorer: scorer, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListSubjects は教科一覧を返す
func (s *Service) ListSubjects(ctx context.Context) ([]*curriculum.Subject, error) {
	subjects, err := s.repo.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	return subjects, nil
}

// ListUnits は単元一覧を返す
func (s *Service) ListUnits(ctx context.Context, subjectID uuid.UUID) ([]*curriculum.TocItem, error) {
	outline, err := s.outline(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return outline.Units(), nil
}

// ListLessons は単元に属する課を返す。単元が存在しなければ空。
func (s *Service) ListLessons(ctx context.Context, subjectID, unitID uuid.UUID) ([]*LessonView, error) {
	outline, err := s.outline(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	unit, ok := outline.Item(unitID).Get()
	if !ok {
		return nil, nil
	}
	lastPage, err := s.lastPage(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	ends := outline.EndPages()
	lessons := outline.LessonsOf(unitID)
	views := make([]*LessonView, 0, len(lessons))
	for _, ls := range lessons {
		views = append(views, newLessonView(ls, unit, ends[ls.ID], lastPage))
	}
	return views, nil
}

// SearchLessons は質問に近い課を最大 limit 件返す。
// 課名のあいまい一致、本文チャンクのあいまい一致、課要約 Embedding の近傍の順に候補を補い、
// 何も見つからなければ先頭の課を返す。
func (s *Service) SearchLessons(ctx context.Context, subjectID uuid.UUID, query string, limit int) ([]*LessonView, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	outline, err := s.outline(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	lastPage, err := s.lastPage(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	q := textnorm.NormalizeArabic(query)
	unitIDs := map[uuid.UUID]struct{}{}
	for _, u := range outline.Units() {
		unitIDs[u.ID] = struct{}{}
	}
	isCandidate := func(it *curriculum.TocItem) bool {
		if _, unit := unitIDs[it.ID]; unit {
			return false
		}
		return !(it.Level <= 1 && it.ParentID == nil)
	}

	best := map[uuid.UUID]float64{}
	for _, it := range outline.Items() {
		if !isCandidate(it) {
			continue
		}
		if score := s.scorer.Score(q, textnorm.NormalizeArabic(it.Title)); score >= titleScoreThreshold {
			best[it.ID] = score
		}
	}

	if len(best) < limit {
		if err := s.scoreByContent(ctx, subjectID, q, outline, unitIDs, best); err != nil {
			return nil, err
		}
	}

	ranked := rankLessons(outline, best, limit)
	if len(ranked) < limit {
		ranked = s.appendNearest(ctx, subjectID, q, outline, isCandidate, ranked, limit)
	}
	if len(ranked) == 0 {
		for _, it := range outline.Items() {
			if _, unit := unitIDs[it.ID]; unit {
				continue
			}
			ranked = append(ranked, it)
			if len(ranked) >= limit {
				break
			}
		}
	}

	ends := outline.EndPages()
	views := make([]*LessonView, 0, len(ranked))
	for _, it := range ranked {
		v := newLessonView(it, outline.Parent(it).OrElse(nil), ends[it.ID], lastPage)
		v.Score = best[it.ID]
		views = append(views, v)
	}
	return views, nil
}

// scoreByContent は課に属するチャンク先頭のあいまい一致で課のスコアを補う（課ごとに最大値）
func (s *Service) scoreByContent(ctx context.Context, subjectID uuid.UUID, q string, outline *curriculum.Outline, unitIDs map[uuid.UUID]struct{}, best map[uuid.UUID]float64) error {
	chunks, err := s.repo.ListLessonChunks(ctx, subjectID, contentScanLimit)
	if err != nil {
		return fmt.Errorf("failed to list lesson chunks: %w", err)
	}
	for _, c := range chunks {
		if c.TocItemID == nil {
			continue
		}
		item, ok := outline.Item(*c.TocItemID).Get()
		if !ok {
			continue
		}
		if _, unit := unitIDs[item.ID]; unit {
			continue
		}
		score := s.scorer.Score(q, headRunes(c.Content, contentWindowChars))
		if score < contentScoreThreshold {
			continue
		}
		if prev, ok := best[item.ID]; !ok || score > prev {
			best[item.ID] = score
		}
	}
	return nil
}

// appendNearest は課要約 Embedding の近傍で不足分を補う。失敗しても検索は続ける。
func (s *Service) appendNearest(ctx context.Context, subjectID uuid.UUID, q string, outline *curriculum.Outline, isCandidate func(*curriculum.TocItem) bool, ranked []*curriculum.TocItem, limit int) []*curriculum.TocItem {
	if s.embedder == nil {
		return ranked
	}
	vector, err := s.embedder.Embed(ctx, q)
	if err != nil {
		s.logger.Warn("failed to embed lesson query", "error", err)
		return ranked
	}
	matches, err := s.repo.NearestLessons(ctx, subjectID, vector, limit)
	if err != nil {
		s.logger.Warn("nearest lesson search failed", "subjectID", subjectID, "error", err)
		return ranked
	}

	included := map[uuid.UUID]struct{}{}
	for _, it := range ranked {
		included[it.ID] = struct{}{}
	}
	for _, m := range matches {
		if len(ranked) >= limit {
			break
		}
		item, ok := outline.Item(m.TocItemID).Get()
		if !ok || !isCandidate(item) {
			continue
		}
		if _, dup := included[item.ID]; dup {
			continue
		}
		included[item.ID] = struct{}{}
		ranked = append(ranked, item)
	}
	return ranked
}

func rankLessons(outline *curriculum.Outline, best map[uuid.UUID]float64, limit int) []*curriculum.TocItem {
	var ranked []*curriculum.TocItem
	for _, it := range outline.Items() {
		if _, ok := best[it.ID]; ok {
			ranked = append(ranked, it)
		}
	}
	// 同点は目次順
	sort.SliceStable(ranked, func(i, j int) bool {
		return best[ranked[i].ID] > best[ranked[j].ID]
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func (s *Service) outline(ctx context.Context, subjectID uuid.UUID) (*curriculum.Outline, error) {
	items, err := s.repo.ListTocItems(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list toc items: %w", err)
	}
	return curriculum.NewOutline(items), nil
}

func (s *Service) lastPage(ctx context.Context, subjectID uuid.UUID) (int, error) {
	last, err := s.repo.LastPDFPage(ctx, subjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to get last pdf page: %w", err)
	}
	return last.OrElse(0), nil
}

func newLessonView(item, unit *curriculum.TocItem, end *int, lastPage int) *LessonView {
	v := &LessonView{
		ID:               item.ID,
		Title:            item.Title,
		StartPDFPage:     item.StartPDFPage,
		EndPDFPage:       end,
		PrintedPageStart: item.PrintedPageStart,
		pageRange:        curriculum.LessonRange(item, end, lastPage+1),
	}
	if unit != nil {
		id := unit.ID
		v.UnitID = &id
		v.UnitTitle = unit.Title
	}
	return v
}

func headRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

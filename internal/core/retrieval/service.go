// Package retrieval は語彙ゲートと意味的再ランキングの2段階でチャンクを検索する
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/core/textnorm"
	"github.com/samber/mo"
)

const (
	DefaultCandidateLimit  = 1200
	DefaultTopK            = 5
	DefaultMinTermOverlap  = 1
	DefaultMinLexicalScore = 20.0

	lexicalWindowChars  = 300
	semanticWindowChars = 500
)

// Config は検索の閾値設定
type Config struct {
	CandidateLimit  int
	TopK            int
	MinTermOverlap  int
	MinLexicalScore float64
}

// DefaultConfig はデフォルトの検索設定を返す
func DefaultConfig() Config {
	return Config{
		CandidateLimit:  DefaultCandidateLimit,
		TopK:            DefaultTopK,
		MinTermOverlap:  DefaultMinTermOverlap,
		MinLexicalScore: DefaultMinLexicalScore,
	}
}

// ScoredChunk はゲートを通過したチャンクとそのスコア
type ScoredChunk struct {
	Chunk         *curriculum.Chunk
	TermOverlap   int
	LexicalScore  float64
	SemanticScore float64
}

// Service はチャンク検索を提供する
type Service struct {
	repo     Repository
	scorer   LexicalScorer
	embedder Embedder
	config   Config
	logger   *slog.Logger
}

type serviceOptions struct {
	config *Config
	logger *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*serviceOptions)

// WithRetrievalLogger はロガーを設定する
func WithRetrievalLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithConfig は閾値設定を上書きする
func WithConfig(cfg Config) ServiceOption {
	return func(o *serviceOptions) {
		o.config = &cfg
	}
}

// NewService は新しい Service を作成する
func NewService(repo Repository, scorer LexicalScorer, embedder Embedder, opts ...ServiceOption) *Service {
	options := serviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	cfg := DefaultConfig()
	if options.config != nil {
		cfg = *options.config
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultCandidateLimit
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MinTermOverlap < 1 {
		cfg.MinTermOverlap = DefaultMinTermOverlap
	}

	return &Service{
		repo:     repo,
		scorer:   scorer,
		embedder: embedder,
		config:   cfg,
		logger:   options.logger,
	}
}

// RetrieveChunks は質問に関連するチャンクを最大 topK 件返す（0 以下なら設定値）。
// 質問語が1つも含まれない、または語彙スコアが閾値未満の候補は捨てる。
// 何も残らなければ空を返す。
func (s *Service) RetrieveChunks(ctx context.Context, subjectID uuid.UUID, query string, pageRange mo.Option[curriculum.PageRange], topK int) ([]*curriculum.Chunk, error) {
	scored, err := s.Rank(ctx, subjectID, query, pageRange, topK)
	if err != nil {
		return nil, err
	}
	chunks := make([]*curriculum.Chunk, len(scored))
	for i, sc := range scored {
		chunks[i] = sc.Chunk
	}
	return chunks, nil
}

// Rank は RetrieveChunks と同じ検索を行い、スコア付きで返す
func (s *Service) Rank(ctx context.Context, subjectID uuid.UUID, query string, pageRange mo.Option[curriculum.PageRange], topK int) ([]*ScoredChunk, error) {
	if subjectID == uuid.Nil {
		return nil, fmt.Errorf("subjectID is required")
	}
	if topK <= 0 {
		topK = s.config.TopK
	}

	normalizedQuery := textnorm.NormalizeArabic(query)
	terms := textnorm.QueryTerms(normalizedQuery)
	if len(terms) == 0 {
		s.logger.Debug("no meaningful query terms", "query", query)
		return nil, nil
	}

	candidates, err := s.repo.ListChunksForRetrieval(ctx, subjectID, pageRange, s.config.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate chunks: %w", err)
	}

	lexicalQuery := strings.ToLower(normalizedQuery)
	var survivors []*ScoredChunk
	for _, c := range candidates {
		text := strings.ToLower(textnorm.NormalizeArabic(c.Content))
		overlap := textnorm.CountTermOverlap(terms, text)
		if overlap < s.config.MinTermOverlap {
			continue
		}
		lexical := s.scorer.Score(lexicalQuery, headRunes(text, lexicalWindowChars))
		if lexical < s.config.MinLexicalScore {
			continue
		}
		survivors = append(survivors, &ScoredChunk{Chunk: c, TermOverlap: overlap, LexicalScore: lexical})
	}

	s.logger.Debug("lexical gate applied",
		"subjectID", subjectID,
		"terms", terms,
		"candidates", len(candidates),
		"survivors", len(survivors),
	)
	if len(survivors) == 0 {
		return nil, nil
	}

	s.scoreSemantic(ctx, normalizedQuery, survivors)

	sort.SliceStable(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if a.TermOverlap != b.TermOverlap {
			return a.TermOverlap > b.TermOverlap
		}
		if a.LexicalScore != b.LexicalScore {
			return a.LexicalScore > b.LexicalScore
		}
		if a.SemanticScore != b.SemanticScore {
			return a.SemanticScore > b.SemanticScore
		}
		if a.Chunk.PDFPageIndex != b.Chunk.PDFPageIndex {
			return a.Chunk.PDFPageIndex < b.Chunk.PDFPageIndex
		}
		return a.Chunk.Ordinal < b.Chunk.Ordinal
	})

	if len(survivors) > topK {
		survivors = survivors[:topK]
	}
	return survivors, nil
}

// scoreSemantic は質問とチャンク先頭の Embedding の内積を設定する。
// Embedding に失敗した場合は 0 のままにし、順位は語彙スコアだけで決まる。
func (s *Service) scoreSemantic(ctx context.Context, query string, survivors []*ScoredChunk) {
	if s.embedder == nil {
		return
	}
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("failed to embed query", "error", err)
		return
	}
	for _, sc := range survivors {
		cv, err := s.embedder.Embed(ctx, headRunes(sc.Chunk.Content, semanticWindowChars))
		if err != nil {
			s.logger.Warn("failed to embed chunk", "chunkID", sc.Chunk.ID, "error", err)
			continue
		}
		sc.SemanticScore = Dot(qv, cv)
	}
}

// Dot は2つのベクトルの内積を返す。長さが異なる場合は短い方に合わせる。
func Dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
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

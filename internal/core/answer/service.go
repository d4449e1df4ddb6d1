// Package answer は検索結果から出典付きの回答を組み立て、結果をキャッシュする
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/textbook-rag/internal/core/citation"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/core/textnorm"
	"github.com/samber/mo"
)

var (
	// ErrEmptyQuestion は質問が空の場合のエラー
	ErrEmptyQuestion = errors.New("question is required")
	// ErrEmptySubjectID は教科 ID 未指定のエラー
	ErrEmptySubjectID = errors.New("subject id is required")
)

// DefaultEmbeddingMode はキャッシュキーに含める Embedding 方式の既定値
const DefaultEmbeddingMode = "det"

// Repository は回答生成が必要とするデータアクセス
// テスト時のモック用に消費者側で定義
type Repository interface {
	GetSubject(ctx context.Context, id uuid.UUID) (mo.Option[*curriculum.Subject], error)
	ListTocItems(ctx context.Context, subjectID uuid.UUID) ([]*curriculum.TocItem, error)
	GetChunksByIDs(ctx context.Context, ids []uuid.UUID) ([]*curriculum.Chunk, error)
}

// Retriever はチャンク検索のインターフェース
type Retriever interface {
	RetrieveChunks(ctx context.Context, subjectID uuid.UUID, query string, pageRange mo.Option[curriculum.PageRange], topK int) ([]*curriculum.Chunk, error)
}

// Request は質問のパラメータ
type Request struct {
	UserID    int64
	SubjectID uuid.UUID
	Question  string
	PageRange mo.Option[curriculum.PageRange]
	Watermark string
}

// Result は回答
type Result struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
	Cached    bool     `json:"cached"`
}

// Config は回答生成の設定
type Config struct {
	DefaultContentVersion int
	EmbeddingMode         string
	TopK                  int
	RetrievalTTL          time.Duration
	AnswerTTL             time.Duration
}

// DefaultConfig はデフォルトの設定を返す
func DefaultConfig() Config {
	return Config{
		DefaultContentVersion: 1,
		EmbeddingMode:         DefaultEmbeddingMode,
		TopK:                  5,
		RetrievalTTL:          DefaultRetrievalTTL,
		AnswerTTL:             DefaultAnswerTTL,
	}
}

// Service は質問への回答ユースケースを提供する
type Service struct {
	repo      Repository
	retriever Retriever
	cache     CacheStore
	config    Config
	logger    *slog.Logger
}

type serviceOptions struct {
	config *Config
	logger *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*serviceOptions)

// WithAnswerLogger はロガーを設定する
func WithAnswerLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithConfig は設定を上書きする
func WithConfig(cfg Config) ServiceOption {
	return func(o *serviceOptions) {
		o.config = &cfg
	}
}

// NewService は新しい Service を作成する。cache が nil の場合はキャッシュしない。
func NewService(repo Repository, retriever Retriever, cache CacheStore, opts ...ServiceOption) *Service {
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
	if cfg.EmbeddingMode == "" {
		cfg.EmbeddingMode = DefaultEmbeddingMode
	}
	if cfg.DefaultContentVersion <= 0 {
		cfg.DefaultContentVersion = 1
	}
	if cfg.RetrievalTTL <= 0 {
		cfg.RetrievalTTL = DefaultRetrievalTTL
	}
	if cfg.AnswerTTL <= 0 {
		cfg.AnswerTTL = DefaultAnswerTTL
	}

	return &Service{
		repo:      repo,
		retriever: retriever,
		cache:     cache,
		config:    cfg,
		logger:    options.logger,
	}
}

// AnswerQuestion は質問に出典付きで回答する。
// 根拠が無い場合は定型の拒否回答を返し、キャッシュしない。
// 拒否でない回答は必ず出典マーカーと1件以上の出典を含む。
func (s *Service) AnswerQuestion(ctx context.Context, req Request) (*Result, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if req.SubjectID == uuid.Nil {
		return nil, ErrEmptySubjectID
	}

	subjectOpt, err := s.repo.GetSubject(ctx, req.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("教科の取得に失敗: %w", err)
	}
	version := s.config.DefaultContentVersion
	subject, found := subjectOpt.Get()
	if found {
		version = subject.ContentVersion
	} else {
		s.logger.Warn("subject not found, using default content version", "subjectID", req.SubjectID, "contentVersion", version)
		subject = &curriculum.Subject{ID: req.SubjectID}
	}

	keyParams := KeyParams{
		Operation:      OperationExplain,
		SubjectID:      req.SubjectID,
		PageRange:      req.PageRange,
		Question:       question,
		EmbeddingMode:  s.config.EmbeddingMode,
		ContentVersion: version,
	}
	answerKey := CacheKey(keyParams)

	if cached, ok := s.cacheGet(ctx, answerKey).Get(); ok {
		s.logger.Debug("answer cache hit", "subjectID", req.SubjectID, "contentVersion", version)
		return &Result{
			Answer:    WithWatermark(cached, req.Watermark),
			Citations: ParseReferences(cached),
			Cached:    true,
		}, nil
	}

	keyParams.Operation = OperationRetrieve
	chunks, err := s.retrieve(ctx, req, question, CacheKey(keyParams))
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return s.refuse(req, RefusalInsufficientEvidence, "no evidence"), nil
	}

	outline := s.loadOutline(ctx, req.SubjectID)
	citations := citation.BuildAll(subject, chunks, outline)
	if len(citations) == 0 {
		return s.refuse(req, RefusalInsufficientEvidence, "no citations"), nil
	}

	body := ExtractLines(chunks, textnorm.QueryTerms(question))
	if len(body) == 0 {
		return s.refuse(req, RefusalInsufficientEvidence, "empty body"), nil
	}

	answer := FormatAnswer(body, citations)
	if !hasReferences(answer, citations) {
		return s.refuse(req, RefusalUndocumented, "references invariant violated"), nil
	}

	s.cacheSet(ctx, answerKey, answer, s.config.AnswerTTL)

	return &Result{
		Answer:    WithWatermark(answer, req.Watermark),
		Citations: citations,
		Cached:    false,
	}, nil
}

// retrieve は検索結果キャッシュを引き、無ければ検索して ID 列を保存する
func (s *Service) retrieve(ctx context.Context, req Request, question, key string) ([]*curriculum.Chunk, error) {
	if value, ok := s.cacheGet(ctx, key).Get(); ok {
		chunks, err := s.loadCachedChunks(ctx, value)
		if err == nil && len(chunks) > 0 {
			s.logger.Debug("retrieval cache hit", "subjectID", req.SubjectID, "chunks", len(chunks))
			return chunks, nil
		}
		s.logger.Warn("stale retrieval cache entry ignored", "subjectID", req.SubjectID, "error", err)
	}

	chunks, err := s.retriever.RetrieveChunks(ctx, req.SubjectID, question, req.PageRange, s.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("チャンク検索に失敗: %w", err)
	}
	if len(chunks) > 0 {
		s.cacheSet(ctx, key, EncodeChunkIDs(chunks), s.config.RetrievalTTL)
	}
	return chunks, nil
}

// loadCachedChunks はキャッシュされた ID 順にチャンクを並べて返す
func (s *Service) loadCachedChunks(ctx context.Context, value string) ([]*curriculum.Chunk, error) {
	ids, err := DecodeChunkIDs(value)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	rows, err := s.repo.GetChunksByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*curriculum.Chunk, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}
	chunks := make([]*curriculum.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			chunks = append(chunks, c)
		}
	}
	return chunks, nil
}

func (s *Service) loadOutline(ctx context.Context, subjectID uuid.UUID) *curriculum.Outline {
	items, err := s.repo.ListTocItems(ctx, subjectID)
	if err != nil {
		s.logger.Warn("failed to load toc items", "subjectID", subjectID, "error", err)
		return nil
	}
	return curriculum.NewOutline(items)
}

func (s *Service) refuse(req Request, message, reason string) *Result {
	s.logger.Info("回答を拒否", "subjectID", req.SubjectID, "userID", req.UserID, "reason", reason)
	return &Result{Answer: message, Citations: []string{}, Cached: false}
}

// cacheGet はキャッシュ障害をミスとして扱う
func (s *Service) cacheGet(ctx context.Context, key string) mo.Option[string] {
	if s.cache == nil {
		return mo.None[string]()
	}
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache get failed", "error", err)
		return mo.None[string]()
	}
	if v, ok := value.Get(); !ok || strings.TrimSpace(v) == "" {
		return mo.None[string]()
	}
	return value
}

func (s *Service) cacheSet(ctx context.Context, key, value string, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("cache set failed", "error", err)
	}
}

package container

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jinford/textbook-rag/internal/core/answer"
	"github.com/jinford/textbook-rag/internal/core/ingestion"
	"github.com/jinford/textbook-rag/internal/core/ingestion/chunk"
	"github.com/jinford/textbook-rag/internal/core/navigation"
	"github.com/jinford/textbook-rag/internal/core/retrieval"
	"github.com/jinford/textbook-rag/internal/infra/fuzzy"
	"github.com/jinford/textbook-rag/internal/infra/hashembed"
	"github.com/jinford/textbook-rag/internal/infra/memory"
	"github.com/jinford/textbook-rag/internal/infra/ocr"
	"github.com/jinford/textbook-rag/internal/infra/openai"
	"github.com/jinford/textbook-rag/internal/infra/pdf"
	"github.com/jinford/textbook-rag/internal/infra/postgres"
	"github.com/jinford/textbook-rag/internal/infra/postgres/sqlc"
	"github.com/jinford/textbook-rag/internal/infra/redis"
	"github.com/jinford/textbook-rag/internal/platform/config"
	"github.com/jinford/textbook-rag/internal/platform/database"
)

// Store は各ユースケースが必要とするリポジトリをまとめたもの
type Store interface {
	ingestion.Repository
	retrieval.Repository
	answer.Repository
	navigation.Repository
}

// ServiceContainer はアプリケーションの依存関係を保持する
type ServiceContainer struct {
	IngestService     *ingestion.IngestService
	RetrievalService  *retrieval.Service
	AnswerService     *answer.Service
	NavigationService *navigation.Service
	Opener            ingestion.DocumentOpener
	Store             Store
	Cache             answer.CacheStore

	logger   *slog.Logger
	database *database.DB
	closers  []io.Closer
}

type containerOptions struct {
	logger       *slog.Logger
	store        Store
	cache        answer.CacheStore
	embedder     ingestion.Embedder
	opener       ingestion.DocumentOpener
	recognizer   ingestion.PageRecognizer
	tokenCounter chunk.TokenCounter
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerStore はストアを差し替える
func WithContainerStore(store Store) ContainerOption {
	return func(opts *containerOptions) {
		opts.store = store
	}
}

// WithContainerCache はキャッシュを差し替える
func WithContainerCache(cache answer.CacheStore) ContainerOption {
	return func(opts *containerOptions) {
		opts.cache = cache
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder ingestion.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerOpener は PDF の読み込みを差し替える
func WithContainerOpener(opener ingestion.DocumentOpener) ContainerOption {
	return func(opts *containerOptions) {
		opts.opener = opener
	}
}

// WithContainerPageRecognizer は OCR 実装を差し替える
func WithContainerPageRecognizer(recognizer ingestion.PageRecognizer) ContainerOption {
	return func(opts *containerOptions) {
		opts.recognizer = recognizer
	}
}

// WithContainerTokenCounter は TokenCounter を差し替える
func WithContainerTokenCounter(counter chunk.TokenCounter) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokenCounter = counter
	}
}

// NewContainer は設定からコンテナを生成する。
// STORE_BACKEND=postgres の場合のみデータベースへ接続する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	c := &ServiceContainer{logger: options.logger}

	// Store
	store := options.store
	if store == nil {
		switch cfg.StoreBackend {
		case config.StoreBackendMemory:
			store = memory.NewStore()
		default:
			db, err := database.New(ctx, database.ConnectionParams{
				Host:     cfg.Database.Host,
				Port:     cfg.Database.Port,
				User:     cfg.Database.User,
				Password: cfg.Database.Password,
				DBName:   cfg.Database.DBName,
				SSLMode:  cfg.Database.SSLMode,
			})
			if err != nil {
				return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
			}
			c.database = db
			store = postgres.NewStore(db.Pool)
		}
	}
	c.Store = store

	// Cache
	cache, err := c.buildCache(ctx, cfg, options.cache)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Cache = cache

	// TokenCounter (tiktoken)
	tokenCounter := options.tokenCounter
	if tokenCounter == nil {
		counter, err := chunk.NewTiktokenCounter()
		if err != nil {
			// トークン数は参考値なので取得できなくても続行する
			options.logger.Warn("TokenCounter 初期化に失敗しました", "error", err)
		} else {
			tokenCounter = counter
		}
	}

	// Embedder
	embedder := options.embedder
	if embedder == nil {
		embedder, err = newEmbedder(cfg, tokenCounter)
		if err != nil {
			c.Close()
			return nil, err
		}
	}

	// PDF / OCR
	opener := options.opener
	if opener == nil {
		opener = pdf.Opener
	}
	c.Opener = opener

	ingestOpts := []ingestion.IngestServiceOption{
		ingestion.WithIngestLogger(options.logger),
		ingestion.WithTokenCounter(tokenCounter),
		ingestion.WithChunkConfig(chunk.Config{
			MinWords:     cfg.Chunk.MinWords,
			MaxWords:     cfg.Chunk.MaxWords,
			OverlapWords: cfg.Chunk.OverlapWords,
		}),
		ingestion.WithTocDebugDir(cfg.TocDebugDir),
	}
	if cfg.PDF.UseOCR {
		recognizer := options.recognizer
		if recognizer == nil {
			recognizer = ocr.NewRecognizer(
				ocr.WithTimeout(cfg.PDF.OCRTimeout),
				ocr.WithLogger(options.logger),
			)
		}
		ingestOpts = append(ingestOpts,
			ingestion.WithPageRecognizer(recognizer),
			ingestion.WithOCRSourceDir(cfg.PDF.OCRDir),
		)
	}

	// IngestService
	c.IngestService = ingestion.NewIngestService(store, opener, embedder, ingestOpts...)

	// RetrievalService
	scorer := fuzzy.NewTokenSetScorer()
	c.RetrievalService = retrieval.NewService(store, scorer, embedder,
		retrieval.WithRetrievalLogger(options.logger),
		retrieval.WithConfig(retrieval.Config{
			CandidateLimit:  cfg.Retrieval.CandidateLimit,
			TopK:            cfg.Retrieval.TopK,
			MinTermOverlap:  cfg.Retrieval.MinTermOverlap,
			MinLexicalScore: cfg.Retrieval.MinLexicalScore,
		}),
	)

	// AnswerService
	c.AnswerService = answer.NewService(store, c.RetrievalService, cache,
		answer.WithAnswerLogger(options.logger),
		answer.WithConfig(answer.Config{
			DefaultContentVersion: cfg.ContentVersion,
			EmbeddingMode:         cfg.Embedding.Mode,
			TopK:                  cfg.Retrieval.TopK,
			RetrievalTTL:          cfg.Retrieval.RetrievalTTL,
			AnswerTTL:             cfg.Retrieval.AnswerTTL,
		}),
	)

	// NavigationService
	c.NavigationService = navigation.NewService(store, scorer,
		navigation.WithNavigationLogger(options.logger),
		navigation.WithEmbedder(embedder),
	)

	return c, nil
}

func (c *ServiceContainer) buildCache(ctx context.Context, cfg *config.Config, override answer.CacheStore) (answer.CacheStore, error) {
	if override != nil {
		return override, nil
	}
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		rdb, err := redis.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("Redis 初期化に失敗しました: %w", err)
		}
		c.closers = append(c.closers, rdb)
		return redis.NewCache(rdb), nil
	case config.CacheBackendMemory:
		return memory.NewCache(), nil
	default:
		if c.database == nil {
			c.logger.Warn("データベース未接続のためメモリキャッシュを使用します", "cacheBackend", cfg.CacheBackend)
			return memory.NewCache(), nil
		}
		return postgres.NewCache(sqlc.New(c.database.Pool)), nil
	}
}

func newEmbedder(cfg *config.Config, tokenCounter chunk.TokenCounter) (ingestion.Embedder, error) {
	switch cfg.Embedding.Mode {
	case config.EmbeddingModeOpenAI:
		opts := []openai.EmbedderOption{
			openai.WithEmbeddingModel(cfg.Embedding.Model),
			openai.WithEmbeddingDimension(cfg.Embedding.Dimension),
		}
		if tokenCounter != nil {
			opts = append(opts, openai.WithTokenTrimmer(tokenCounter))
		}
		embedder, err := openai.NewEmbedder(cfg.Embedding.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("OpenAI Embedder 初期化に失敗しました: %w", err)
		}
		return embedder, nil
	default:
		return hashembed.NewEmbedder(hashembed.DefaultDimension), nil
	}
}

// Migrate はデータベーススキーマを適用する。メモリストアでは何もしない。
func (c *ServiceContainer) Migrate(ctx context.Context) error {
	if c.database == nil {
		return nil
	}
	return postgres.Migrate(ctx, c.database.Pool)
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c == nil {
		return
	}
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.Logger().Warn("リソースの解放に失敗しました", "error", err)
		}
	}
	if c.database != nil {
		c.database.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Database はデータベースを返す。
func (c *ServiceContainer) Database() *database.DB {
	if c == nil {
		return nil
	}
	return c.database
}

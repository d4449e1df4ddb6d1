package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jinford/textbook-rag/internal/core/ingestion"
	"github.com/jinford/textbook-rag/internal/core/navigation"
	"github.com/jinford/textbook-rag/internal/core/retrieval"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// DefaultEmbeddingModel はモデル未指定時のデフォルトモデル
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultEmbeddingDimension はOpenAI推奨のデフォルト次元
	DefaultEmbeddingDimension = 1536
	// MaxInputTokens は text-embedding-3 系の入力上限
	MaxInputTokens = 8191

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3
	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second
	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")
	// ErrMaxRetriesExceeded は最大リトライ回数を超過した場合のエラー
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// TokenTrimmer は入力をトークン上限で切り詰める
type TokenTrimmer interface {
	TrimToTokenLimit(text string, maxTokens int) string
}

// Embedder は OpenAI API を使用してテキストを単位ベクトルに変換する
type Embedder struct {
	client      openai.Client
	model       string
	dimension   int
	trimmer     TokenTrimmer
	baseBackoff time.Duration
}

type embedderOptions struct {
	model         string
	dimension     int
	trimmer       TokenTrimmer
	baseBackoff   time.Duration
	clientOptions []option.RequestOption
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		o.model = model
	}
}

// WithEmbeddingDimension はベクトル次元を上書きする
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// WithTokenTrimmer は入力のトークン切り詰めを設定する
func WithTokenTrimmer(trimmer TokenTrimmer) EmbedderOption {
	return func(o *embedderOptions) {
		o.trimmer = trimmer
	}
}

// WithBaseBackoff はレート制限時の待機時間の基底を上書きする
func WithBaseBackoff(d time.Duration) EmbedderOption {
	return func(o *embedderOptions) {
		o.baseBackoff = d
	}
}

// WithRequestOptions は OpenAI クライアントのオプションを追加する（エンドポイント差し替え等）
func WithRequestOptions(opts ...option.RequestOption) EmbedderOption {
	return func(o *embedderOptions) {
		o.clientOptions = append(o.clientOptions, opts...)
	}
}

// NewEmbedder は新しい Embedder を作成する
func NewEmbedder(apiKey string, opts ...EmbedderOption) (*Embedder, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := embedderOptions{
		model:       DefaultEmbeddingModel,
		dimension:   DefaultEmbeddingDimension,
		baseBackoff: BaseBackoff,
	}
	for _, opt := range opts {
		opt(&options)
	}

	clientOptions := append([]option.RequestOption{option.WithAPIKey(apiKey)}, options.clientOptions...)

	return &Embedder{
		client:      openai.NewClient(clientOptions...),
		model:       options.model,
		dimension:   options.dimension,
		trimmer:     options.trimmer,
		baseBackoff: options.baseBackoff,
	}, nil
}

// Embed は単一テキストの Embedding を生成し、L2 ノルム 1 に正規化して返す
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.trimmer != nil {
		text = e.trimmer.TrimToTokenLimit(text, MaxInputTokens)
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.createWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings generated")
	}

	return normalize(resp.Data[0].Embedding), nil
}

func (e *Embedder) createWithRetry(ctx context.Context, params openai.EmbeddingNewParams) (*openai.CreateEmbeddingResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(math.Pow(2, float64(attempt-1))) * e.baseBackoff
			if backoffDuration > MaxBackoff {
				backoffDuration = MaxBackoff
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffDuration):
			}
		}

		resp, err := e.client.Embeddings.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		return resp, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

func normalize(values []float64) []float32 {
	var sum float64
	for _, v := range values {
		sum += v * v
	}
	norm := math.Sqrt(sum)

	vector := make([]float32, len(values))
	for i, v := range values {
		if norm > 0 {
			v /= norm
		}
		vector[i] = float32(v)
	}
	return vector
}

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return e.model
}

// Dimension はベクトル次元数を返す
func (e *Embedder) Dimension() int {
	return e.dimension
}

// インターフェース実装の確認
var (
	_ ingestion.Embedder  = (*Embedder)(nil)
	_ retrieval.Embedder  = (*Embedder)(nil)
	_ navigation.Embedder = (*Embedder)(nil)
)

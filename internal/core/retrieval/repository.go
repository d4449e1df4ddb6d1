package retrieval

import (
	"context"

	"github.com/google/uuid"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/samber/mo"
)

// Repository は検索が必要とするデータアクセス
// テスト時のモック用に消費者側で定義
type Repository interface {
	// ListChunksForRetrieval は教科のチャンクを (pdf_page_index, ordinal) 順に最大 limit 件返す。
	// pageRange があれば PDF ページがその範囲（両端含む）のものに限る。
	ListChunksForRetrieval(ctx context.Context, subjectID uuid.UUID, pageRange mo.Option[curriculum.PageRange], limit int) ([]*curriculum.Chunk, error)
}

// LexicalScorer はあいまい一致の類似度を 0〜100 で返す
type LexicalScorer interface {
	Score(query, candidate string) float64
}

// Embedder はテキストの Embedding 生成インターフェース
type Embedder interface {
	// Embed は単位ベクトルの Embedding を生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}

package navigation

import (
	"context"

	"github.com/google/uuid"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/samber/mo"
)

// LessonMatch は課要約 Embedding の近傍検索結果
type LessonMatch struct {
	TocItemID  uuid.UUID
	Similarity float64
}

// Repository はナビゲーションが必要とするデータアクセス
// テスト時のモック用に消費者側で定義
type Repository interface {
	ListSubjects(ctx context.Context) ([]*curriculum.Subject, error)
	// ListTocItems は order_index 順の目次項目を返す
	ListTocItems(ctx context.Context, subjectID uuid.UUID) ([]*curriculum.TocItem, error)
	// ListLessonChunks は課に割り当て済みのチャンクを最大 limit 件返す
	ListLessonChunks(ctx context.Context, subjectID uuid.UUID, limit int) ([]*curriculum.Chunk, error)
	// NearestLessons は課要約 Embedding のコサイン類似度が高い順に返す
	NearestLessons(ctx context.Context, subjectID uuid.UUID, vector []float32, limit int) ([]LessonMatch, error)
	// LastPDFPage はチャンクが存在する最後の PDF ページを返す
	LastPDFPage(ctx context.Context, subjectID uuid.UUID) (mo.Option[int], error)
}

// LexicalScorer はあいまい一致の類似度を 0〜100 で返す
type LexicalScorer interface {
	Score(query, candidate string) float64
}

// Embedder はテキストの Embedding 生成インターフェース
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

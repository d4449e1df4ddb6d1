// Package hashembed はテキストのハッシュから決定的なベクトルを生成する Embedder を提供する。
// 実モデルの代用であり、同じ入力には常にビット単位で同じ単位ベクトルを返す。
package hashembed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"

	"github.com/jinford/textbook-rag/internal/core/ingestion"
	"github.com/jinford/textbook-rag/internal/core/navigation"
	"github.com/jinford/textbook-rag/internal/core/retrieval"
)

// DefaultDimension はベクトル次元のデフォルト値
const DefaultDimension = 1536

// ModeTag はキャッシュキーに含める Embedding 方式名
const ModeTag = "det"

// Embedder は SHA-256 をシードにした正規乱数ベクトルを返す
type Embedder struct {
	dimension int
}

// NewEmbedder は新しい Embedder を作成する。dimension が 0 以下ならデフォルト次元を使う。
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Embed はテキストの Embedding を返す。エラーを返すことはない。
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.Vector(text), nil
}

// Vector はハッシュ先頭8バイト（ビッグエンディアン）をシードに正規分布の成分を引き、L2 正規化する
func (e *Embedder) Vector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	rng := rand.New(rand.NewSource(seed))

	raw := make([]float64, e.dimension)
	var sq float64
	for i := range raw {
		raw[i] = rng.NormFloat64()
		sq += raw[i] * raw[i]
	}
	norm := math.Sqrt(sq)
	if norm == 0 {
		norm = 1
	}

	vector := make([]float32, e.dimension)
	for i, v := range raw {
		vector[i] = float32(v / norm)
	}
	return vector
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

package answer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/samber/mo"
)

const (
	OperationExplain  = "explain"
	OperationRetrieve = "retrieve"

	DefaultRetrievalTTL = 7 * 24 * time.Hour
	DefaultAnswerTTL    = 30 * 24 * time.Hour

	keySeparator = "||"
	idSeparator  = ","
)

// CacheStore は期限付きのキー・バリューキャッシュ。
// 期限切れのエントリは読み取り時に無いものとして扱う。
type CacheStore interface {
	Get(ctx context.Context, key string) (mo.Option[string], error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// KeyParams はキャッシュキーの構成要素
type KeyParams struct {
	Operation      string
	SubjectID      uuid.UUID
	PageRange      mo.Option[curriculum.PageRange]
	Question       string
	EmbeddingMode  string
	ContentVersion int
}

// CacheKey は構成要素を "||" で連結した文字列の SHA-256（16進）を返す
func CacheKey(p KeyParams) string {
	raw := strings.Join([]string{
		p.Operation,
		p.SubjectID.String(),
		curriculum.RangeKey(p.PageRange),
		p.Question,
		p.EmbeddingMode,
		strconv.Itoa(p.ContentVersion),
	}, keySeparator)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// EncodeChunkIDs は検索結果のチャンク ID をカンマ区切りにする
func EncodeChunkIDs(chunks []*curriculum.Chunk) string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID.String()
	}
	return strings.Join(ids, idSeparator)
}

// DecodeChunkIDs はカンマ区切りのチャンク ID を解析する。空要素は読み飛ばす。
func DecodeChunkIDs(value string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(value, idSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

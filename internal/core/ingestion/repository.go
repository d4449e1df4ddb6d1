package ingestion

import (
	"context"
	"errors"

	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/samber/mo"
)

var (
	// ErrEmptySubjectCode は教科コード未指定のエラー
	ErrEmptySubjectCode = errors.New("subject code is required")
	// ErrEmptyPDFPath は PDF パス未指定のエラー
	ErrEmptyPDFPath = errors.New("pdf path is required")
)

// SubjectContent は1教科分の取り込み結果一式
type SubjectContent struct {
	Subject          *curriculum.Subject
	TocItems         []*curriculum.TocItem // 文書順（親は子より前）
	Chunks           []*curriculum.Chunk
	LessonEmbeddings []*curriculum.LessonEmbedding
}

// Repository は取り込み処理が必要とするデータアクセス
// テスト時のモック用に消費者側で定義
type Repository interface {
	// GetSubjectByCode は教科コードで教科を取得する
	GetSubjectByCode(ctx context.Context, code string) (mo.Option[*curriculum.Subject], error)

	// ReplaceSubjectContent は教科を upsert し、目次・チャンク・課 Embedding を
	// 1トランザクション内で削除してから挿入し直す
	ReplaceSubjectContent(ctx context.Context, content *SubjectContent) (*curriculum.Subject, error)
}

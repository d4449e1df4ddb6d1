package ingestion

import (
	"context"

	"github.com/jinford/textbook-rag/internal/core/document"
)

// IngestParams は教科取り込みのパラメータ
type IngestParams struct {
	Code           string // 教科コード（一意）
	Name           string // 教科名（アラビア語）
	PDFPath        string // 元 PDF のパス
	ContentVersion int    // 希望するコンテンツバージョン
}

// DocumentOpener は PDF を開いて Document を返す
type DocumentOpener interface {
	Open(path string) (document.Document, error)
}

// DocumentOpenerFunc は関数を DocumentOpener として扱うアダプタ
type DocumentOpenerFunc func(path string) (document.Document, error)

// Open は f(path) を呼び出す
func (f DocumentOpenerFunc) Open(path string) (document.Document, error) {
	return f(path)
}

// PageRecognizer は1ページをラスタライズして OCR する
type PageRecognizer interface {
	RecognizePage(ctx context.Context, pdfPath string, page int) (string, error)
}

// Embedder はテキストの Embedding 生成インターフェース
type Embedder interface {
	// Embed は単一テキストの Embedding を生成する（単位ベクトル）
	Embed(ctx context.Context, text string) ([]float32, error)
}

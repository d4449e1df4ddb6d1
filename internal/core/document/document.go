// Package document は取り込み処理が必要とする PDF の機能を定義する。
// 具体的な PDF ライブラリには依存しない。
package document

import "errors"

// ErrPageOutOfRange はページ番号が範囲外の場合のエラー
var ErrPageOutOfRange = errors.New("page index out of range")

// Block はページ上のテキストブロック（上端基準の座標を持つ）
type Block struct {
	Text string
	X    float64
	Y    float64
}

// Span はフォントサイズ付きのテキスト断片
type Span struct {
	Text     string
	FontSize float64
	X        float64
	Y        float64
}

// OutlineEntry は PDF ネイティブのしおり（アウトライン）ノード
type OutlineEntry struct {
	Title    string
	Page     *int // 0始まり。解決できない場合は nil
	Children []OutlineEntry
}

// Document は1冊の PDF に対する読み取り機能。
// ページ番号はすべて 0 始まり。
type Document interface {
	// Path は元ファイルのパスを返す（ラスタライズ等の外部ツール用）
	Path() string
	// PageCount はページ数を返す
	PageCount() int
	// PageBlocks はレイアウト情報付きのテキストブロックを返す
	PageBlocks(page int) ([]Block, error)
	// PageText は順序を保証しないプレーンテキストを返す
	PageText(page int) (string, error)
	// PageSpans はフォントサイズ付きのテキスト断片を返す
	PageSpans(page int) ([]Span, error)
	// Outline はしおりツリーを返す
	Outline() ([]OutlineEntry, error)
	// Close はリソースを解放する
	Close() error
}

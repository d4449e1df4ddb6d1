// Package pdf は ledongthuc/pdf を使って document.Document を実装する。
package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jinford/textbook-rag/internal/core/document"
	"github.com/jinford/textbook-rag/internal/core/ingestion"
)

// defaultPageHeight は MediaBox が取得できない場合の高さ（A4）
const defaultPageHeight = 842.0

// Document は ledongthuc/pdf の Reader を保持する PDF
type Document struct {
	path   string
	file   *os.File
	reader *pdf.Reader
}

var _ document.Document = (*Document)(nil)

// Opener は ingestion.DocumentOpener の実装
var Opener ingestion.DocumentOpener = ingestion.DocumentOpenerFunc(func(path string) (document.Document, error) {
	return Open(path)
})

// Open は PDF ファイルを開く
func Open(path string) (doc *Document, err error) {
	defer recoverInto(&err, "open pdf")

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	return &Document{path: path, file: f, reader: r}, nil
}

// Path は元ファイルのパスを返す
func (d *Document) Path() string {
	return d.path
}

// PageCount はページ数を返す
func (d *Document) PageCount() int {
	return d.reader.NumPage()
}

// PageBlocks は同じ行のスパンを結合して行単位のブロックを返す
func (d *Document) PageBlocks(page int) (blocks []document.Block, err error) {
	defer recoverInto(&err, "read page blocks")

	spans, err := d.PageSpans(page)
	if err != nil {
		return nil, err
	}
	return joinLines(spans), nil
}

// PageText はページのプレーンテキストを返す
func (d *Document) PageText(page int) (text string, err error) {
	defer recoverInto(&err, "read page text")

	p, err := d.page(page)
	if err != nil {
		return "", err
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("failed to read text of page %d: %w", page, err)
	}
	return text, nil
}

// PageSpans はグリフを同じフォント・同じ行ごとにまとめたスパンを返す。
// Y 座標はページ上端からの距離に変換する。
func (d *Document) PageSpans(page int) (spans []document.Span, err error) {
	defer recoverInto(&err, "read page spans")

	p, err := d.page(page)
	if err != nil {
		return nil, err
	}
	glyphs := make([]glyph, 0, len(p.Content().Text))
	for _, t := range p.Content().Text {
		glyphs = append(glyphs, glyph{
			font: t.Font,
			size: t.FontSize,
			x:    t.X,
			y:    t.Y,
			w:    t.W,
			s:    t.S,
		})
	}
	return groupSpans(glyphs, pageHeight(p)), nil
}

// Outline はしおりツリーを返す。
// ledongthuc/pdf はリンク先を解決しないため Page は常に nil。
func (d *Document) Outline() (entries []document.OutlineEntry, err error) {
	defer recoverInto(&err, "read outline")

	root := d.reader.Outline()
	return convertOutline(root.Child), nil
}

// Close はファイルを閉じる
func (d *Document) Close() error {
	if d.file == nil {
		return nil
	}
	if err := d.file.Close(); err != nil {
		return fmt.Errorf("failed to close pdf %s: %w", d.path, err)
	}
	d.file = nil
	return nil
}

func (d *Document) page(page int) (pdf.Page, error) {
	if page < 0 || page >= d.reader.NumPage() {
		return pdf.Page{}, fmt.Errorf("page %d: %w", page, document.ErrPageOutOfRange)
	}
	p := d.reader.Page(page + 1)
	if p.V.IsNull() {
		return pdf.Page{}, fmt.Errorf("page %d: %w", page, document.ErrPageOutOfRange)
	}
	return p, nil
}

func convertOutline(items []pdf.Outline) []document.OutlineEntry {
	if len(items) == 0 {
		return nil
	}
	entries := make([]document.OutlineEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, document.OutlineEntry{
			Title:    strings.Join(strings.Fields(item.Title), " "),
			Children: convertOutline(item.Child),
		})
	}
	return entries
}

// pageHeight は MediaBox（ページ自身または親ノード）から高さを求める
func pageHeight(p pdf.Page) float64 {
	for _, v := range []pdf.Value{p.V.Key("MediaBox"), p.V.Key("Parent").Key("MediaBox")} {
		if v.Len() < 4 {
			continue
		}
		if h := v.Index(3).Float64() - v.Index(1).Float64(); h > 0 {
			return h
		}
	}
	return defaultPageHeight
}

// recoverInto は ledongthuc/pdf の panic をエラーに変換する
func recoverInto(err *error, op string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("failed to %s: %v", op, r)
	}
}

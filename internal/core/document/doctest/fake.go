// Package doctest はテスト用のインメモリ document.Document を提供する
package doctest

import (
	"errors"
	"fmt"

	"github.com/jinford/textbook-rag/internal/core/document"
)

// Page は Fake の1ページ分の内容
type Page struct {
	Text   string
	Blocks []document.Block
	Spans  []document.Span
	Err    error // 設定するとページ読み取りがこのエラーで失敗する
}

// Fake はテスト用の Document 実装
type Fake struct {
	FilePath   string
	Pages      []Page
	Entries    []document.OutlineEntry
	OutlineErr error
	Closed     bool
}

// New はプレーンテキストのページから Fake を作成する
func New(texts ...string) *Fake {
	pages := make([]Page, len(texts))
	for i, t := range texts {
		pages[i] = Page{Text: t}
	}
	return &Fake{FilePath: "fake.pdf", Pages: pages}
}

func (f *Fake) page(i int) (*Page, error) {
	if i < 0 || i >= len(f.Pages) {
		return nil, fmt.Errorf("page %d: %w", i, document.ErrPageOutOfRange)
	}
	p := &f.Pages[i]
	if p.Err != nil {
		return nil, p.Err
	}
	return p, nil
}

func (f *Fake) Path() string   { return f.FilePath }
func (f *Fake) PageCount() int { return len(f.Pages) }

func (f *Fake) PageBlocks(i int) ([]document.Block, error) {
	p, err := f.page(i)
	if err != nil {
		return nil, err
	}
	return p.Blocks, nil
}

func (f *Fake) PageText(i int) (string, error) {
	p, err := f.page(i)
	if err != nil {
		return "", err
	}
	return p.Text, nil
}

func (f *Fake) PageSpans(i int) ([]document.Span, error) {
	p, err := f.page(i)
	if err != nil {
		return nil, err
	}
	return p.Spans, nil
}

func (f *Fake) Outline() ([]document.OutlineEntry, error) {
	if f.OutlineErr != nil {
		return nil, f.OutlineErr
	}
	return f.Entries, nil
}

func (f *Fake) Close() error {
	if f.Closed {
		return errors.New("already closed")
	}
	f.Closed = true
	return nil
}

var _ document.Document = (*Fake)(nil)

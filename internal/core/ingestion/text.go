package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jinford/textbook-rag/internal/core/document"
)

// DefaultOCRMinChars はこの文字数未満のページで OCR を試みる
const DefaultOCRMinChars = 8

// PageTextExtractor はページ本文をレイアウト順に抽出する。
// OCR が設定されている場合、テキスト層がほぼ空のページは OCR 結果で補う。
type PageTextExtractor struct {
	ocr      PageRecognizer
	minChars int
	logger   *slog.Logger
}

// NewPageTextExtractor は新しい PageTextExtractor を作成する。ocr が nil なら OCR は行わない。
func NewPageTextExtractor(ocr PageRecognizer, logger *slog.Logger) *PageTextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageTextExtractor{ocr: ocr, minChars: DefaultOCRMinChars, logger: logger}
}

// Extract はページ本文を返す。読み取りに失敗したページは空文字列になる。
func (e *PageTextExtractor) Extract(ctx context.Context, doc document.Document, page int) string {
	text, err := layoutText(doc, page)
	if err != nil {
		e.logger.Warn("page text extraction failed", "page", page, "error", err)
		text = ""
	}

	if e.ocr == nil || utf8.RuneCountInString(strings.TrimSpace(text)) >= e.minChars {
		return text
	}

	ocrText, err := e.ocr.RecognizePage(ctx, doc.Path(), page)
	if err != nil {
		e.logger.Warn("ocr failed", "page", page, "error", err)
		return text
	}
	if utf8.RuneCountInString(strings.TrimSpace(ocrText)) > utf8.RuneCountInString(strings.TrimSpace(text)) {
		return ocrText
	}
	return text
}

// layoutText はブロックを (Y, X) 昇順に並べて改行で連結する。
// ブロックが無ければプレーンテキストに切り替える。PDF パーサの panic はエラーとして返す。
func layoutText(doc document.Document, page int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("panic while reading page %d: %v", page, r)
		}
	}()

	blocks, err := doc.PageBlocks(page)
	if err != nil {
		return "", err
	}

	ordered := make([]document.Block, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Y != ordered[j].Y {
			return ordered[i].Y < ordered[j].Y
		}
		return ordered[i].X < ordered[j].X
	})

	parts := make([]string, 0, len(ordered))
	for _, b := range ordered {
		if t := strings.TrimSpace(b.Text); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n"), nil
	}

	return doc.PageText(page)
}

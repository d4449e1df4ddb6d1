package ingestion

import (
	"fmt"

	"github.com/jinford/textbook-rag/internal/core/document"
	"github.com/jinford/textbook-rag/internal/core/textnorm"
)

// DefaultDiagnosisPages は品質診断で標本にするページ（1始まり）
var DefaultDiagnosisPages = []int{1, 5, 10, 20}

// PageDiagnosis は1ページ分の品質指標
type PageDiagnosis struct {
	Page        int `json:"page"` // 1始まり
	BlocksCount int `json:"blocksCount"`
	textnorm.TextQualityMetrics
}

// Diagnosis は PDF のテキスト層の品質診断結果
type Diagnosis struct {
	Path      string           `json:"path"`
	PageCount int              `json:"pageCount"`
	Pages     []PageDiagnosis  `json:"pages"`
	Quality   textnorm.Quality `json:"quality"`
}

// DiagnosePDF は標本ページのテキスト品質を測り、A/B/C に分類する。
// 範囲外の標本ページは無視し、読み取りに失敗したページは空テキストとして数える。
func DiagnosePDF(opener DocumentOpener, path string, samplePages []int) (*Diagnosis, error) {
	if len(samplePages) == 0 {
		samplePages = DefaultDiagnosisPages
	}

	doc, err := opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("PDFのオープンに失敗: %w", err)
	}
	defer doc.Close()

	diag := &Diagnosis{Path: path, PageCount: doc.PageCount()}
	metrics := make([]textnorm.TextQualityMetrics, 0, len(samplePages))
	for _, p := range samplePages {
		idx := p - 1
		if idx < 0 || idx >= doc.PageCount() {
			continue
		}
		blocks, text := samplePage(doc, idx)
		m := textnorm.ComputeTextQualityMetrics(text)
		metrics = append(metrics, m)
		diag.Pages = append(diag.Pages, PageDiagnosis{
			Page:               p,
			BlocksCount:        blocks,
			TextQualityMetrics: m,
		})
	}
	diag.Quality = textnorm.ClassifyPDFQuality(metrics)
	return diag, nil
}

func samplePage(doc document.Document, page int) (int, string) {
	blocks, err := doc.PageBlocks(page)
	if err != nil {
		blocks = nil
	}
	text, err := layoutText(doc, page)
	if err != nil {
		text = ""
	}
	return len(blocks), text
}

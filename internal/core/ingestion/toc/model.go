// Package toc は PDF から目次を抽出し、印刷ページ番号と PDF ページを対応付ける
package toc

// Method は目次の抽出方式
type Method string

const (
	MethodOutline          Method = "outline"
	MethodTocPages         Method = "toc_pages"
	MethodHeadingHeuristic Method = "heading_heuristic"
	MethodSyntheticGrid    Method = "synthetic_grid"
	MethodNone             Method = "none"
)

// Item は抽出された目次項目
type Item struct {
	Title       string `json:"title"`
	Level       int    `json:"level"`
	Page        *int   `json:"page,omitempty"`         // 0始まりの PDF ページ
	PrintedPage *int   `json:"printed_page,omitempty"` // 本に印刷されたページ番号
}

// ValidationSample は印刷ページの解決結果のサンプル（診断用）
type ValidationSample struct {
	Title   string `json:"title"`
	Printed *int   `json:"printed"`
	PDF     *int   `json:"pdf"`
}

// Result は目次抽出の結果
type Result struct {
	Method      Method             `json:"method"`
	Items       []Item             `json:"items"`
	PageMapping PageMapping        `json:"page_mapping"`
	Validation  []ValidationSample `json:"validation"`
}

func intPtr(v int) *int {
	return &v
}

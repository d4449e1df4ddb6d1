package toc

import (
	"context"
	"unicode"
	"unicode/utf8"

	"github.com/jinford/textbook-rag/internal/core/document"
	"github.com/jinford/textbook-rag/internal/core/textnorm"
)

const (
	pageFooterChars   = 500
	validationSamples = 5
)

// PageMapping は印刷ページ番号から PDF ページ（0始まり）への対応表
type PageMapping map[int]int

// Reverse は PDF ページから印刷ページ番号への逆引き表を返す
func (m PageMapping) Reverse() map[int]int {
	rev := make(map[int]int, len(m))
	for printed, pdfIdx := range m {
		if cur, ok := rev[pdfIdx]; ok && cur < printed {
			continue
		}
		rev[pdfIdx] = printed
	}
	return rev
}

// ComputePageMapping は各ページ末尾の約500文字から最後の1〜3桁の数字を拾い、
// そのページの印刷ページ番号とみなす。同じ番号が複数ページで見つかった場合は後勝ち。
// 読み取りに失敗したページは無視する。
func ComputePageMapping(ctx context.Context, doc document.Document) PageMapping {
	mapping := PageMapping{}
	for i := 0; i < doc.PageCount(); i++ {
		if ctx.Err() != nil {
			break
		}
		text, err := doc.PageText(i)
		if err != nil {
			continue
		}
		if num, ok := lastPageNumber(tailRunes(textnorm.FoldDigits(text), pageFooterChars)); ok {
			mapping[num] = i
		}
	}
	return mapping
}

func tailRunes(s string, n int) string {
	count := utf8.RuneCountInString(s)
	if count <= n {
		return s
	}
	skip := count - n
	for i := range s {
		if skip == 0 {
			return s[i:]
		}
		skip--
	}
	return ""
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// lastPageNumber は単語境界で区切られた1〜3桁の数字のうち最後のものを返す
func lastPageNumber(s string) (int, bool) {
	runes := []rune(s)
	found, last := false, 0
	for i := 0; i < len(runes); {
		if runes[i] < '0' || runes[i] > '9' {
			i++
			continue
		}
		j := i
		for j < len(runes) && runes[j] >= '0' && runes[j] <= '9' {
			j++
		}
		leftOK := i == 0 || !isWordRune(runes[i-1])
		rightOK := j == len(runes) || !isWordRune(runes[j])
		if n := j - i; n <= 3 && leftOK && rightOK {
			v := 0
			for _, r := range runes[i:j] {
				v = v*10 + int(r-'0')
			}
			found, last = true, v
		}
		i = j
	}
	return last, found
}

// ResolveStartPage は項目の開始 PDF ページを決定する。
// 既知のページがあればそれを、無ければ印刷ページを対応表で引き、見つからなければ nil。
func ResolveStartPage(item Item, mapping PageMapping) *int {
	if item.Page != nil {
		return intPtr(*item.Page)
	}
	if item.PrintedPage != nil {
		if idx, ok := mapping[*item.PrintedPage]; ok {
			return intPtr(idx)
		}
	}
	return nil
}

// Validate は先頭の数件について印刷ページの解決結果を返す（診断用）
func Validate(items []Item, mapping PageMapping) []ValidationSample {
	n := min(validationSamples, len(items))
	samples := make([]ValidationSample, 0, n)
	for _, it := range items[:n] {
		s := ValidationSample{Title: it.Title, Printed: it.PrintedPage}
		if it.PrintedPage != nil {
			if idx, ok := mapping[*it.PrintedPage]; ok {
				s.PDF = intPtr(idx)
			}
		} else if it.Page != nil {
			s.PDF = intPtr(*it.Page)
		}
		samples = append(samples, s)
	}
	return samples
}

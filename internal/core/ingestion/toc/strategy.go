package toc

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/core/document"
	"github.com/jinford/textbook-rag/internal/core/textnorm"
)

// Strategy は1つの目次抽出方式
type Strategy struct {
	Method  Method
	Extract func(ctx context.Context, doc document.Document) ([]Item, error)
}

var (
	tocLineRe = regexp.MustCompile(`^(.+?)\s+([0-9]{1,3})$`)

	tocKeywords = normalizeAll([]string{"الفهرس", "المحتويات", curriculum.UnitKeyword, curriculum.LessonKeyword})
	// 目次ページ自体（しおりタイトルの本文照合で除外する）
	indexKeywords = normalizeAll([]string{"الفهرس", "المحتويات"})
	headingWords  = normalizeAll([]string{curriculum.LessonKeyword, curriculum.UnitKeyword})
)

func normalizeAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = textnorm.NormalizeArabic(w)
	}
	return out
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// OutlineStrategy は PDF のしおりツリーを目次として使う。
// 深さが level になる。ページ先が無いしおりは本文中のタイトル出現位置で補う。
func OutlineStrategy() Strategy {
	return Strategy{
		Method: MethodOutline,
		Extract: func(ctx context.Context, doc document.Document) ([]Item, error) {
			entries, err := doc.Outline()
			if err != nil {
				return nil, err
			}

			var items []Item
			var walk func(nodes []document.OutlineEntry, level int)
			walk = func(nodes []document.OutlineEntry, level int) {
				for _, n := range nodes {
					if title := strings.TrimSpace(n.Title); title != "" {
						items = append(items, Item{Title: title, Level: level, Page: n.Page})
					}
					walk(n.Children, level+1)
				}
			}
			walk(entries, 1)

			resolveOutlinePages(ctx, doc, items)
			return items, nil
		},
	}
}

// resolveOutlinePages はページ未解決のしおりについて、直前に解決済みのページ以降で
// 正規化タイトルを含む最初の本文ページを探す。目次ページはスキップする。
func resolveOutlinePages(ctx context.Context, doc document.Document, items []Item) {
	unresolved := false
	for _, it := range items {
		if it.Page == nil {
			unresolved = true
			break
		}
	}
	if !unresolved {
		return
	}

	pages := make([]string, doc.PageCount())
	for i := range pages {
		if ctx.Err() != nil {
			return
		}
		text, err := doc.PageText(i)
		if err != nil {
			continue
		}
		normalized := textnorm.NormalizeArabic(text)
		if containsAny(normalized, indexKeywords) {
			continue
		}
		pages[i] = normalized
	}

	cursor := 0
	for i := range items {
		if items[i].Page != nil {
			cursor = *items[i].Page
			continue
		}
		title := textnorm.NormalizeArabic(items[i].Title)
		for p := cursor; p < len(pages); p++ {
			if pages[p] != "" && strings.Contains(pages[p], title) {
				items[i].Page = intPtr(p)
				cursor = p
				break
			}
		}
	}
}

// TocPagesStrategy は先頭 maxPages ページの印刷目次から「タイトル ページ番号」の行を拾う
func TocPagesStrategy(maxPages int) Strategy {
	return Strategy{
		Method: MethodTocPages,
		Extract: func(ctx context.Context, doc document.Document) ([]Item, error) {
			var items []Item
			limit := min(maxPages, doc.PageCount())
			for i := 0; i < limit; i++ {
				if err := ctx.Err(); err != nil {
					return items, err
				}
				text, err := doc.PageText(i)
				if err != nil {
					continue
				}
				if !containsAny(textnorm.NormalizeArabic(text), tocKeywords) {
					continue
				}
				for _, line := range strings.Split(text, "\n") {
					m := tocLineRe.FindStringSubmatch(textnorm.FoldDigits(strings.TrimSpace(line)))
					if m == nil {
						continue
					}
					title := strings.Trim(m[1], " .")
					if title == "" {
						continue
					}
					printed, err := strconv.Atoi(m[2])
					if err != nil {
						continue
					}
					items = append(items, Item{Title: title, Level: 2, PrintedPage: intPtr(printed)})
				}
			}
			return items, nil
		},
	}
}

// HeadingStrategy は大きなフォントで書かれた単元・課の見出しを拾う
func HeadingStrategy(minFontSize float64) Strategy {
	return Strategy{
		Method: MethodHeadingHeuristic,
		Extract: func(ctx context.Context, doc document.Document) ([]Item, error) {
			var items []Item
			for i := 0; i < doc.PageCount(); i++ {
				if err := ctx.Err(); err != nil {
					return items, err
				}
				spans, err := doc.PageSpans(i)
				if err != nil {
					continue
				}
				seen := map[string]struct{}{}
				for _, s := range spans {
					title := strings.TrimSpace(s.Text)
					if s.FontSize < minFontSize || utf8.RuneCountInString(title) <= 4 {
						continue
					}
					if !containsAny(textnorm.NormalizeArabic(title), headingWords) {
						continue
					}
					if _, dup := seen[title]; dup {
						continue
					}
					seen[title] = struct{}{}
					items = append(items, Item{Title: title, Level: 2, Page: intPtr(i)})
				}
			}
			return items, nil
		},
	}
}

// SyntheticGrid は目次の手掛かりが無い文書向けに、12ページごとの課と
// 4課ごとの単元からなる規則的な目次を生成する
func SyntheticGrid(pageCount int) []Item {
	const (
		lessonSpan = 12
		unitSize   = 4
	)
	if pageCount <= 0 {
		return nil
	}

	var items []Item
	lessonIdx, unitIdx := 0, 0
	for start := 0; start < pageCount; start += lessonSpan {
		if lessonIdx%unitSize == 0 {
			unitIdx++
			items = append(items, Item{Title: curriculum.UnitKeyword + " " + strconv.Itoa(unitIdx), Level: 1, Page: intPtr(start)})
		}
		lessonIdx++
		items = append(items, Item{Title: curriculum.LessonKeyword + " " + strconv.Itoa(lessonIdx), Level: 2, Page: intPtr(start)})
	}
	return items
}

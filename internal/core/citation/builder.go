// Package citation はチャンクの出典ラベルを組み立てる
package citation

import (
	"fmt"
	"strings"

	"github.com/jinford/textbook-rag/internal/core/curriculum"
)

const (
	// UnknownUnit は単元が解決できない場合の表記
	UnknownUnit = "وحدة غير محددة"
	// UnknownLesson は課が解決できない場合の表記
	UnknownLesson = "درس غير محدد"

	separator = " | "
)

// Build は "<教科名> | <単元> / <課> | <ページ>" 形式の出典ラベルを返す。
// ページ表記は印刷ページが分かれば "ص<印刷ページ> (PDF p<n>)"、無ければ "PDF p<n>"。
// outline が nil の場合や課が見つからない場合は未確定の表記を使う。
func Build(subject *curriculum.Subject, chunk *curriculum.Chunk, outline *curriculum.Outline) string {
	subjectName := ""
	if subject != nil {
		subjectName = subject.Name
	}

	unitTitle, lessonTitle := UnknownUnit, UnknownLesson
	if outline != nil && chunk.TocItemID != nil {
		if lesson, ok := outline.Item(*chunk.TocItemID).Get(); ok {
			lessonTitle = lesson.Title
			if unit, ok := outline.UnitOf(lesson).Get(); ok {
				unitTitle = unit.Title
			}
		}
	}

	return strings.Join([]string{
		subjectName,
		unitTitle + " / " + lessonTitle,
		PageLabel(chunk),
	}, separator)
}

// PageLabel はチャンクのページ表記を返す
func PageLabel(chunk *curriculum.Chunk) string {
	pdf := fmt.Sprintf("PDF p%d", chunk.PDFPageIndex+1)
	if chunk.PrintedPageNumber != nil {
		return fmt.Sprintf("ص%d (%s)", *chunk.PrintedPageNumber, pdf)
	}
	return pdf
}

// BuildAll はチャンク順に出典ラベルを作り、同一ラベルは最初の1件だけ残す
func BuildAll(subject *curriculum.Subject, chunks []*curriculum.Chunk, outline *curriculum.Outline) []string {
	seen := map[string]struct{}{}
	var labels []string
	for _, c := range chunks {
		if c == nil {
			continue
		}
		label := Build(subject, c, outline)
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}

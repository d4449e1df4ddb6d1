package ingestion

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/core/ingestion/toc"
)

const (
	// DefaultEmbeddingWorkerCount は課要約の Embedding を並行生成するワーカー数
	DefaultEmbeddingWorkerCount = 8

	summaryChunkLimit = 15
	summaryChunkChars = 200
	summaryMaxChars   = 2000
)

// PipelineConfig はパイプライン処理の設定
type PipelineConfig struct {
	// EmbeddingWorkerCount は Embedding 生成ワーカー数（I/O バウンド処理用）
	EmbeddingWorkerCount int
}

// DefaultPipelineConfig はデフォルトのパイプライン設定を返す
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		EmbeddingWorkerCount: DefaultEmbeddingWorkerCount,
	}
}

type stackEntry struct {
	level int
	node  *curriculum.TocItem
}

// BuildForest は文書順の目次項目から TocItem の森を構築する。
// レベルをキーにしたスタックを保持し、新しい項目のレベル以上のノードを閉じてから
// スタック先頭を親として接続する。開始ページは対応表で解決し、最後に終了ページを埋める。
func BuildForest(subjectID uuid.UUID, items []toc.Item, mapping toc.PageMapping) []*curriculum.TocItem {
	nodes := make([]*curriculum.TocItem, 0, len(items))
	var stack []stackEntry

	for i, it := range items {
		level := it.Level
		if level < 1 {
			level = 2
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}

		// 出典の箇条書きは1行1件なので、タイトル内の改行や連続空白は1つに畳む
		title := strings.Join(strings.Fields(it.Title), " ")
		if title == "" {
			title = fmt.Sprintf("Item %d", i+1)
		}

		node := &curriculum.TocItem{
			ID:           uuid.New(),
			SubjectID:    subjectID,
			Title:        title,
			Level:        level,
			OrderIndex:   i,
			StartPDFPage: toc.ResolveStartPage(it, mapping),
		}
		if it.PrintedPage != nil {
			node.PrintedPageStart = curriculum.IntPtr(*it.PrintedPage)
		}
		if len(stack) > 0 {
			parentID := stack[len(stack)-1].node.ID
			node.ParentID = &parentID
		}

		nodes = append(nodes, node)
		stack = append(stack, stackEntry{level: level, node: node})
	}

	curriculum.FillEndPages(nodes)
	return nodes
}

// lessonLocator はページから所属する課を引く
type lessonLocator struct {
	lessons   []*curriculum.TocItem
	pageCount int
}

// newLessonLocator は開始ページが既知の課（level >= 2）を開始ページ昇順に並べる
func newLessonLocator(items []*curriculum.TocItem, pageCount int) *lessonLocator {
	var lessons []*curriculum.TocItem
	for _, it := range items {
		if it.IsLesson() && it.StartPDFPage != nil {
			lessons = append(lessons, it)
		}
	}
	sort.SliceStable(lessons, func(i, j int) bool {
		return *lessons[i].StartPDFPage < *lessons[j].StartPDFPage
	})
	return &lessonLocator{lessons: lessons, pageCount: pageCount}
}

// Locate はページ範囲 [start, end（無ければ文書末尾）] にページを含む最初の課を返す
func (l *lessonLocator) Locate(page int) *curriculum.TocItem {
	for _, ls := range l.lessons {
		end := l.pageCount - 1
		if ls.EndPDFPage != nil {
			end = *ls.EndPDFPage
		}
		if *ls.StartPDFPage <= page && page <= end {
			return ls
		}
	}
	return nil
}

// BuildLessonSummary は先頭15チャンクを各200文字に切り詰めて連結し、全体を2000文字に収める
func BuildLessonSummary(contents []string) string {
	parts := make([]string, 0, min(len(contents), summaryChunkLimit))
	for _, c := range contents[:min(len(contents), summaryChunkLimit)] {
		parts = append(parts, truncateRunes(c, summaryChunkChars))
	}
	return truncateRunes(strings.Join(parts, "\n"), summaryMaxChars)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

package pdf

import (
	"math"
	"sort"
	"strings"

	"github.com/jinford/textbook-rag/internal/core/document"
)

const (
	// lineTolerance は同じ行とみなす Y 座標の差
	lineTolerance = 2.0
	// spaceGapRatio はフォントサイズに対する単語間の隙間の比率
	spaceGapRatio = 0.2
)

// glyph は ledongthuc/pdf の Text 1件分
type glyph struct {
	font string
	size float64
	x    float64
	y    float64
	w    float64
	s    string
}

// groupSpans はコンテンツストリーム順のグリフを連続する同一フォント・同一行ごとにまとめる
func groupSpans(glyphs []glyph, height float64) []document.Span {
	var spans []document.Span
	var b strings.Builder
	var cur *glyph
	var minX, prevEnd float64

	flush := func() {
		if cur == nil {
			return
		}
		text := strings.TrimSpace(b.String())
		if text != "" {
			spans = append(spans, document.Span{
				Text:     text,
				FontSize: cur.size,
				X:        minX,
				Y:        height - cur.y,
			})
		}
		b.Reset()
		cur = nil
	}

	for i := range glyphs {
		g := glyphs[i]
		if cur != nil && (g.font != cur.font || g.size != cur.size || math.Abs(g.y-cur.y) > lineTolerance) {
			flush()
		}
		if cur == nil {
			cur = &glyphs[i]
			minX = g.x
		} else if needsSpace(prevEnd, g) {
			b.WriteByte(' ')
		}
		b.WriteString(g.s)
		minX = math.Min(minX, g.x)
		prevEnd = g.x + g.w
	}
	flush()
	return spans
}

// needsSpace は直前のグリフ終端から離れている場合に単語境界とみなす
func needsSpace(prevEnd float64, g glyph) bool {
	if g.s == " " {
		return false
	}
	gap := g.x - prevEnd
	limit := g.size * spaceGapRatio
	return gap > limit || gap < -(g.w+limit)
}

// joinLines は同じ行のスパンを X 昇順で結合して行ブロックにする
func joinLines(spans []document.Span) []document.Block {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]document.Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) > lineTolerance {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var blocks []document.Block
	var parts []string
	lineY, lineX := sorted[0].Y, sorted[0].X
	for i, s := range sorted {
		if i > 0 && math.Abs(s.Y-lineY) > lineTolerance {
			blocks = append(blocks, document.Block{Text: strings.Join(parts, " "), X: lineX, Y: lineY})
			parts = parts[:0]
			lineY, lineX = s.Y, s.X
		}
		parts = append(parts, s.Text)
	}
	blocks = append(blocks, document.Block{Text: strings.Join(parts, " "), X: lineX, Y: lineY})
	return blocks
}

package answer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/core/textnorm"
)

const (
	// ReferencesMarker は回答中の出典ブロックの見出し
	ReferencesMarker = "المراجع:"
	// AnswerHeader は回答本文の前置き
	AnswerHeader = "بناءً على محتوى الكتاب:"

	// RefusalInsufficientEvidence は根拠が見つからない場合の定型回答
	RefusalInsufficientEvidence = "لا أملك مراجع كافية من الكتاب للإجابة عن هذا السؤال. رجاءً حدّد درساً أو صفحات أدق، أو أعد صياغة السؤال."
	// RefusalUndocumented は出典を付けられない回答を差し替える定型回答
	RefusalUndocumented = "لا أملك مراجع كافية لتوثيق الإجابة من الكتاب. من فضلك أعد صياغة السؤال داخل نطاق الدرس."

	MaxBodyLines     = 5
	MinLineChars     = 20
	fallbackPerChunk = 2
	referenceBullet  = "- "
)

var (
	lineSplitRe = regexp.MustCompile(`[\n.!?؟؛]+`)
	noiseLineRe = regexp.MustCompile(`^[\p{N}\p{P}\p{S}\s\-ـ]*$`)
)

// IsRefusal は定型の拒否回答かどうかを返す
func IsRefusal(answer string) bool {
	return strings.HasPrefix(answer, RefusalInsufficientEvidence) || strings.HasPrefix(answer, RefusalUndocumented)
}

// isNoiseLine は数字・記号・ダッシュだけの行、または短すぎる行を判定する
func isNoiseLine(line string) bool {
	return utf8.RuneCountInString(line) < MinLineChars || noiseLineRe.MatchString(line)
}

func splitLines(content string) []string {
	var lines []string
	for _, l := range lineSplitRe.Split(content, -1) {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// ExtractLines はチャンクごとに質問語を含む行を選ぶ。
// 一致する行が無いチャンクからは先頭のノイズでない行を補う。
// 同一行は最初の出現だけ残し、全体で MaxBodyLines 行までにする。
func ExtractLines(chunks []*curriculum.Chunk, terms []string) []string {
	seen := map[string]struct{}{}
	var body []string
	add := func(line string) bool {
		if _, dup := seen[line]; dup {
			return false
		}
		seen[line] = struct{}{}
		body = append(body, line)
		return true
	}

	for _, c := range chunks {
		if len(body) >= MaxBodyLines {
			break
		}
		var matched, fallback []string
		for _, line := range splitLines(c.Content) {
			if isNoiseLine(line) {
				continue
			}
			if textnorm.CountTermOverlap(terms, strings.ToLower(textnorm.NormalizeArabic(line))) > 0 {
				matched = append(matched, line)
			} else if len(fallback) < fallbackPerChunk {
				fallback = append(fallback, line)
			}
		}
		picked := matched
		if len(picked) == 0 {
			picked = fallback
		}
		for _, line := range picked {
			if len(body) >= MaxBodyLines {
				break
			}
			add(line)
		}
	}
	return body
}

// FormatAnswer は本文と出典ブロックから回答を組み立てる
func FormatAnswer(body, citations []string) string {
	var b strings.Builder
	b.WriteString(AnswerHeader)
	b.WriteString("\n")
	b.WriteString(strings.Join(body, "\n"))
	b.WriteString("\n\n")
	b.WriteString(ReferencesMarker)
	for _, c := range citations {
		b.WriteString("\n")
		b.WriteString(referenceBullet)
		b.WriteString(c)
	}
	return b.String()
}

// ParseReferences は回答の出典ブロックから出典ラベルを取り出す
func ParseReferences(answer string) []string {
	idx := strings.LastIndex(answer, ReferencesMarker)
	if idx < 0 {
		return nil
	}
	var refs []string
	for _, line := range strings.Split(answer[idx+len(ReferencesMarker):], "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, referenceBullet) {
			continue
		}
		if ref := strings.TrimSpace(strings.TrimPrefix(line, referenceBullet)); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// WithWatermark は空でない透かしを回答末尾に付ける
func WithWatermark(answer, watermark string) string {
	watermark = strings.TrimSpace(watermark)
	if watermark == "" {
		return answer
	}
	return answer + "\n\n" + watermark
}

// hasReferences は出典の不変条件（マーカーと1件以上の出典）を検査する
func hasReferences(answer string, citations []string) bool {
	return strings.Contains(answer, ReferencesMarker) && len(citations) > 0 && len(ParseReferences(answer)) > 0
}

package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Quality は PDF テキスト層の品質クラス
type Quality string

const (
	// QualityScanned はテキスト層が無い（スキャン画像）可能性が高い
	QualityScanned Quality = "A"
	// QualityNoisy はテキストはあるがノイズが多い
	QualityNoisy Quality = "B"
	// QualityAcceptable は検索に使える品質
	QualityAcceptable Quality = "C"
)

var gibberishTokenRe = regexp.MustCompile(`\x{FFFD}|[A-Za-z0-9]{14,}|[^\p{L}\p{N}_\s\x{0600}-\x{06FF}]{6,}`)

// TextQualityMetrics はページ単位のテキスト品質指標
type TextQualityMetrics struct {
	TextLen         int     `json:"textLen"`
	ArabicCharRatio float64 `json:"arabicCharRatio"`
	GibberishRatio  float64 `json:"gibberishRatio"`
}

func isArabicRune(r rune) bool {
	return r >= 0x0600 && r <= 0x06FF
}

// ComputeTextQualityMetrics はテキストの長さ、アラビア文字比率、意味不明トークン比率を計算する
func ComputeTextQualityMetrics(text string) TextQualityMetrics {
	nonSpace, arabic := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		nonSpace++
		if isArabicRune(r) {
			arabic++
		}
	}

	words := strings.Fields(text)
	gibberish := 0
	for _, w := range words {
		if gibberishTokenRe.MatchString(w) {
			gibberish++
		}
	}

	return TextQualityMetrics{
		TextLen:         utf8.RuneCountInString(text),
		ArabicCharRatio: float64(arabic) / float64(max(1, nonSpace)),
		GibberishRatio:  float64(gibberish) / float64(max(1, len(words))),
	}
}

// ClassifyPDFQuality はページ指標の平均から PDF の品質クラスを判定する。
// ページが無い場合は最悪ケースとして A を返す。
func ClassifyPDFQuality(pages []TextQualityMetrics) Quality {
	if len(pages) == 0 {
		return QualityScanned
	}

	var sumLen, sumAr, sumGib float64
	for _, m := range pages {
		sumLen += float64(m.TextLen)
		sumAr += m.ArabicCharRatio
		sumGib += m.GibberishRatio
	}
	n := float64(len(pages))
	avgLen, avgAr, avgGib := sumLen/n, sumAr/n, sumGib/n

	if avgLen < 120 || avgAr < 0.25 {
		return QualityScanned
	}
	if avgLen < 250 || avgGib > 0.15 {
		return QualityNoisy
	}
	return QualityAcceptable
}

package textnorm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var termRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// 疑問詞・前置詞・汎用動詞など、検索語として意味を持たない語
var rawStopWords = []string{
	// Arabic
	"ما", "ماذا", "من", "في", "على", "الى", "إلى", "عن", "هل", "كيف", "لماذا", "متى",
	"أين", "اين", "هو", "هي", "هم", "التي", "الذي", "الذين", "ذلك", "تلك", "هذا", "هذه",
	"مع", "أو", "او", "ثم", "كان", "كانت", "يكون", "تكون", "بين", "عند", "كل", "بعض",
	"اشرح", "وضح", "عرف", "اذكر", "قارن", "احسب", "أعط", "اعط", "لي", "لنا", "معنى",
	"المقصود", "يقصد", "بماذا", "لما", "فما", "وما", "أي", "اي", "ايش", "شو", "ممكن",
	"الدرس", "الوحدة", "سؤال", "جواب", "اجابة", "إجابة",
	// English
	"the", "and", "what", "which", "who", "whom", "whose", "why", "how", "when", "where",
	"does", "did", "are", "was", "were", "with", "from", "into", "about", "this", "that",
	"these", "those", "explain", "define", "describe", "tell", "give", "please", "can",
	"could", "would", "should", "lesson", "unit",
}

var stopWords = func() map[string]struct{} {
	m := make(map[string]struct{}, len(rawStopWords))
	for _, w := range rawStopWords {
		m[strings.ToLower(NormalizeArabic(w))] = struct{}{}
	}
	return m
}()

// IsStopWord は語がストップワードかどうかを返す（正規化後の形で比較する）
func IsStopWord(term string) bool {
	_, ok := stopWords[strings.ToLower(NormalizeArabic(term))]
	return ok
}

// QueryTerms は質問文から検索に意味のある語を抽出する。
// 語は正規化・小文字化され、3文字未満の語とストップワードは除外される。
// 出現順を保ったまま重複を除く。
func QueryTerms(query string) []string {
	normalized := strings.ToLower(NormalizeArabic(query))
	seen := map[string]struct{}{}
	var terms []string
	for _, tok := range termRe.FindAllString(normalized, -1) {
		if utf8.RuneCountInString(tok) < 3 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}

// CountTermOverlap は text（小文字化済み想定）に含まれる語の数を返す
func CountTermOverlap(terms []string, text string) int {
	count := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			count++
		}
	}
	return count
}

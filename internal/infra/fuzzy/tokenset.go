// Package fuzzy はトークン集合ベースのあいまい一致スコアを提供する
package fuzzy

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// TokenSetScorer は空白区切りトークンの集合で比較する 0〜100 のスコアラー。
// 一方のトークン集合が他方に含まれていれば 100 になる。
type TokenSetScorer struct{}

// NewTokenSetScorer は新しい TokenSetScorer を作成する
func NewTokenSetScorer() *TokenSetScorer {
	return &TokenSetScorer{}
}

// Score は TokenSetRatio を返す
func (TokenSetScorer) Score(query, candidate string) float64 {
	return TokenSetRatio(query, candidate)
}

// TokenSetRatio は2つの文字列のトークン集合類似度（0〜100）を返す。
// 共通トークン、片側だけのトークンをそれぞれソートして連結し、
// その組み合わせ同士の Indel 類似度のうち最大のものを採用する。
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var sect, onlyA, onlyB []string
	for t := range ta {
		if _, ok := tb[t]; ok {
			sect = append(sect, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if _, ok := ta[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}
	if len(sect) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	sectStr, aStr, bStr := joinSorted(sect), joinSorted(onlyA), joinSorted(onlyB)
	sectLen, aLen, bLen := utf8.RuneCountInString(sectStr), utf8.RuneCountInString(aStr), utf8.RuneCountInString(bStr)

	sep := 0
	if sectLen > 0 {
		sep = 1
	}
	sectALen := sectLen + sep + aLen
	sectBLen := sectLen + sep + bLen

	best := normalizedIndelSimilarity(indelDistance(aStr, bStr), sectALen+sectBLen)
	if sectLen > 0 {
		best = max(best,
			normalizedIndelSimilarity(sep+aLen, sectLen+sectALen),
			normalizedIndelSimilarity(sep+bLen, sectLen+sectBLen),
		)
	}
	return best * 100
}

func tokenSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, f := range strings.Fields(s) {
		set[f] = struct{}{}
	}
	return set
}

func joinSorted(tokens []string) string {
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// indelDistance は挿入と削除のみを許す編集距離
func indelDistance(a, b string) int {
	return utf8.RuneCountInString(a) + utf8.RuneCountInString(b) - 2*edlib.LCS(a, b)
}

func normalizedIndelSimilarity(dist, total int) float64 {
	if total == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(total)
}

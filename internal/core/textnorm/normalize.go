// Package textnorm はアラビア語テキストの正規化と品質判定を提供する
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	tashkeelRe   = regexp.MustCompile(`[\x{0617}-\x{061A}\x{064B}-\x{0652}\x{0670}\x{06D6}-\x{06ED}]`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	letterReplacer = strings.NewReplacer(
		"أ", "ا",
		"إ", "ا",
		"آ", "ا",
		"ى", "ي",
		"ة", "ه",
		"ـ", "",
	)

	digitReplacer = strings.NewReplacer(
		"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
		"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
		"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
		"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	)
)

// NormalizeArabic は検索用にアラビア語テキストを正規化する。
// 表示形（プレゼンテーションフォーム）を NFKC で基本字形に戻した上で、
// タシュキールを除去し、アリフ・ヤー・ターマルブータの異体を統一し、
// タトウィールを削除して空白を1つに畳む。
func NormalizeArabic(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFKC.String(text)
	text = tashkeelRe.ReplaceAllString(text, "")
	text = letterReplacer.Replace(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// FoldDigits はアラビア・インド数字を ASCII 数字に置き換える
func FoldDigits(text string) string {
	return digitReplacer.Replace(text)
}

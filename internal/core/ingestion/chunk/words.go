package chunk

import "strings"

// Config は語数ベースのチャンク分割設定
type Config struct {
	MinWords     int
	MaxWords     int
	OverlapWords int
}

// DefaultConfig はデフォルトのチャンク設定（300 / 700 / 90 語）
func DefaultConfig() Config {
	return Config{
		MinWords:     300,
		MaxWords:     700,
		OverlapWords: 90,
	}
}

// ChunkWords はテキストを重なりのある語ウィンドウに分割する。
// 語数が maxWords 以下なら全体を1チャンクとして返す。
// 最後のウィンドウが minWords 未満の場合は直前のチャンクに未出力の語だけを連結する。
// 空のチャンクは返さない。
func ChunkWords(text string, minWords, maxWords, overlapWords int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxWords < 1 {
		maxWords = 1
	}
	if len(words) <= maxWords {
		return []string{strings.Join(words, " ")}
	}

	overlapWords = min(max(overlapWords, 0), maxWords-1)
	step := max(1, maxWords-overlapWords)

	var (
		out     []string
		prevEnd int
	)
	n := len(words)
	for i := 0; i < n; i += step {
		j := min(n, i+maxWords)
		if j == n && j-i < minWords && len(out) > 0 {
			if j > prevEnd {
				out[len(out)-1] += " " + strings.Join(words[prevEnd:j], " ")
			}
			break
		}
		out = append(out, strings.Join(words[i:j], " "))
		prevEnd = j
		if j >= n {
			break
		}
	}
	return out
}

// Chunk は Config に従って ChunkWords を呼び出す
func (c Config) Chunk(text string) []string {
	return ChunkWords(text, c.MinWords, c.MaxWords, c.OverlapWords)
}

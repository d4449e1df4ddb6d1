package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter はトークン数の計測とトークン上限での切り詰めを行う
type TokenCounter interface {
	CountTokens(text string) int
	TrimToTokenLimit(text string, maxTokens int) string
}

// TiktokenCounter は tiktoken を利用した TokenCounter 実装
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter は cl100k_base エンコーディングの TokenCounter を作成する
func NewTiktokenCounter() (*TiktokenCounter, error) {
	// cl100k_baseエンコーダを使用（OpenAIのtext-embedding-3-smallと互換）
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &TiktokenCounter{encoding: enc}, nil
}

// CountTokens はトークン数を返す
func (t *TiktokenCounter) CountTokens(text string) int {
	if t == nil || t.encoding == nil {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// TrimToTokenLimit は maxTokens を超える部分を切り捨てる
func (t *TiktokenCounter) TrimToTokenLimit(text string, maxTokens int) string {
	if t == nil || t.encoding == nil {
		return text
	}
	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.encoding.Decode(tokens[:maxTokens])
}

var _ TokenCounter = (*TiktokenCounter)(nil)

// HashContent はチャンク本文の SHA256 ハッシュを返す
func HashContent(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryTerms(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "stop words removed", query: "ما هي الحركة؟", want: []string{"الحركه"}},
		{name: "short terms removed", query: "ما عاصمة اليابان؟", want: []string{"عاصمه", "اليابان"}},
		{name: "english lowercased", query: "What is Newton's LAW of motion", want: []string{"newton", "law", "motion"}},
		{name: "duplicates collapsed", query: "السرعة والسرعة السرعة", want: []string{"السرعه", "والسرعه"}},
		{name: "empty", query: "  ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QueryTerms(tt.query))
		})
	}
}

func TestCountTermOverlap(t *testing.T) {
	terms := QueryTerms("السرعة المتوسطة")
	text := NormalizeArabic("السرعة المتوسطة تساوي المسافة على الزمن")
	assert.Equal(t, 2, CountTermOverlap(terms, text))
	assert.Equal(t, 0, CountTermOverlap(terms, "الحركة"))
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("إلى"))
	assert.True(t, IsStopWord("What"))
	assert.False(t, IsStopWord("نيوتن"))
}

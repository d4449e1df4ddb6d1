package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTextQualityMetrics(t *testing.T) {
	m := ComputeTextQualityMetrics("")
	assert.Equal(t, 0, m.TextLen)
	assert.Zero(t, m.ArabicCharRatio)
	assert.Zero(t, m.GibberishRatio)

	m = ComputeTextQualityMetrics("الحركة abc")
	assert.Equal(t, 10, m.TextLen)
	assert.InDelta(t, 6.0/9.0, m.ArabicCharRatio, 1e-9)
	assert.Zero(t, m.GibberishRatio)

	m = ComputeTextQualityMetrics("نص � ABCDEFGHIJKLMN12 ###$$$")
	assert.InDelta(t, 3.0/4.0, m.GibberishRatio, 1e-9)
}

func TestClassifyPDFQuality(t *testing.T) {
	arabicPage := strings.Repeat("الحركة هي تغير موضع الجسم ", 20)
	shortArabic := strings.Repeat("الحركة ", 25)

	tests := []struct {
		name  string
		pages []TextQualityMetrics
		want  Quality
	}{
		{name: "no pages", pages: nil, want: QualityScanned},
		{name: "empty text", pages: []TextQualityMetrics{ComputeTextQualityMetrics("")}, want: QualityScanned},
		{name: "latin only", pages: []TextQualityMetrics{ComputeTextQualityMetrics(strings.Repeat("latin text ", 40))}, want: QualityScanned},
		{name: "short arabic", pages: []TextQualityMetrics{ComputeTextQualityMetrics(shortArabic)}, want: QualityNoisy},
		{name: "gibberish", pages: []TextQualityMetrics{{TextLen: 600, ArabicCharRatio: 0.8, GibberishRatio: 0.3}}, want: QualityNoisy},
		{name: "acceptable", pages: []TextQualityMetrics{ComputeTextQualityMetrics(arabicPage)}, want: QualityAcceptable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPDFQuality(tt.pages))
		})
	}
}

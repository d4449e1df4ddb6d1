package citation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func physicsOutline() (*curriculum.Subject, *curriculum.Outline, *curriculum.TocItem) {
	subject := &curriculum.Subject{ID: uuid.New(), Code: "physics", Name: "فيزياء"}
	unit := &curriculum.TocItem{ID: uuid.New(), SubjectID: subject.ID, Title: "الوحدة الأولى", Level: 1, OrderIndex: 0, StartPDFPage: curriculum.IntPtr(0)}
	lesson := &curriculum.TocItem{ID: uuid.New(), SubjectID: subject.ID, ParentID: &unit.ID, Title: "قوانين نيوتن", Level: 2, OrderIndex: 1, StartPDFPage: curriculum.IntPtr(1)}
	return subject, curriculum.NewOutline([]*curriculum.TocItem{unit, lesson}), lesson
}

func TestBuild(t *testing.T) {
	subject, outline, lesson := physicsOutline()
	chunk := &curriculum.Chunk{ID: uuid.New(), TocItemID: &lesson.ID, PDFPageIndex: 4, PrintedPageNumber: curriculum.IntPtr(13)}

	label := Build(subject, chunk, outline)

	assert.Equal(t, "فيزياء | الوحدة الأولى / قوانين نيوتن | ص13 (PDF p5)", label)
	for _, want := range []string{"فيزياء", "الوحدة الأولى", "قوانين نيوتن", "PDF p5", "13"} {
		assert.Contains(t, label, want)
	}
}

func TestBuild_Unresolved(t *testing.T) {
	subject, outline, _ := physicsOutline()

	t.Run("課なし", func(t *testing.T) {
		chunk := &curriculum.Chunk{PDFPageIndex: 0}
		assert.Equal(t, "فيزياء | "+UnknownUnit+" / "+UnknownLesson+" | PDF p1", Build(subject, chunk, outline))
	})

	t.Run("存在しない課", func(t *testing.T) {
		missing := uuid.New()
		chunk := &curriculum.Chunk{TocItemID: &missing, PDFPageIndex: 9}
		assert.Contains(t, Build(subject, chunk, outline), UnknownLesson)
	})

	t.Run("親の無い課", func(t *testing.T) {
		orphan := &curriculum.TocItem{ID: uuid.New(), Title: "الدرس 1", Level: 2}
		chunk := &curriculum.Chunk{TocItemID: &orphan.ID, PDFPageIndex: 3}
		label := Build(subject, chunk, curriculum.NewOutline([]*curriculum.TocItem{orphan}))
		assert.Equal(t, "فيزياء | "+UnknownUnit+" / الدرس 1 | PDF p4", label)
	})

	t.Run("目次なし", func(t *testing.T) {
		chunk := &curriculum.Chunk{PDFPageIndex: 2, PrintedPageNumber: curriculum.IntPtr(7)}
		assert.Equal(t, "فيزياء | "+UnknownUnit+" / "+UnknownLesson+" | ص7 (PDF p3)", Build(subject, chunk, nil))
	})
}

func TestBuildAll_DeduplicatesLabels(t *testing.T) {
	subject, outline, lesson := physicsOutline()
	chunks := []*curriculum.Chunk{
		{TocItemID: &lesson.ID, PDFPageIndex: 4, Ordinal: 0},
		{TocItemID: &lesson.ID, PDFPageIndex: 4, Ordinal: 1},
		{TocItemID: &lesson.ID, PDFPageIndex: 5, Ordinal: 2},
		nil,
	}

	labels := BuildAll(subject, chunks, outline)
	require.Len(t, labels, 2)
	assert.Contains(t, labels[0], "PDF p5")
	assert.Contains(t, labels[1], "PDF p6")
}

package curriculum

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// ErrSubjectNotFound は教科が存在しない場合のエラー
var ErrSubjectNotFound = errors.New("subject not found")

// Subject は1冊のPDFに対応する教科を表す
type Subject struct {
	ID             uuid.UUID `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	PDFPath        string    `json:"pdfPath"`
	ContentVersion int       `json:"contentVersion"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TocItem は教科の目次ツリーのノード（単元・課）を表す
type TocItem struct {
	ID               uuid.UUID  `json:"id"`
	SubjectID        uuid.UUID  `json:"subjectID"`
	ParentID         *uuid.UUID `json:"parentID,omitempty"`
	Title            string     `json:"title"`
	Level            int        `json:"level"`
	OrderIndex       int        `json:"orderIndex"`
	StartPDFPage     *int       `json:"startPdfPage,omitempty"`
	EndPDFPage       *int       `json:"endPdfPage,omitempty"`
	PrintedPageStart *int       `json:"printedPageStart,omitempty"`
}

// IsUnit は単元レベルのノードかどうかを返す
func (t *TocItem) IsUnit() bool {
	return t.Level <= 1
}

// IsLesson は課レベル（level >= 2）のノードかどうかを返す
func (t *TocItem) IsLesson() bool {
	return t.Level >= 2
}

// Chunk はページ本文の正規化済みスライス
type Chunk struct {
	ID                uuid.UUID  `json:"id"`
	SubjectID         uuid.UUID  `json:"subjectID"`
	TocItemID         *uuid.UUID `json:"tocItemID,omitempty"`
	PDFPageIndex      int        `json:"pdfPageIndex"`
	PrintedPageNumber *int       `json:"printedPageNumber,omitempty"`
	Ordinal           int        `json:"ordinal"`
	Content           string     `json:"content"`
	ContentHash       string     `json:"contentHash"`
	TokenCount        int        `json:"tokenCount"`
}

// LessonEmbedding は課ごとの要約とそのベクトル
type LessonEmbedding struct {
	TocItemID uuid.UUID `json:"tocItemID"`
	SubjectID uuid.UUID `json:"subjectID"`
	Summary   string    `json:"summary"`
	Vector    []float32 `json:"-"`
}

// PageRange はPDFページインデックスの閉区間 [Start, End]
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains はページが区間内にあるかを返す
func (r PageRange) Contains(page int) bool {
	return page >= r.Start && page <= r.End
}

// Key はキャッシュキー用の文字列表現を返す
func (r PageRange) Key() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// RangeKey は任意のページ範囲をキャッシュキー用に文字列化する
func RangeKey(r mo.Option[PageRange]) string {
	if v, ok := r.Get(); ok {
		return v.Key()
	}
	return "all"
}

// IntPtr は int のポインタを返す
func IntPtr(v int) *int {
	return &v
}

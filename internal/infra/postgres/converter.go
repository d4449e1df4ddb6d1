package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/jinford/textbook-rag/internal/infra/postgres/sqlc"
)

// UUIDToPgtype converts uuid.UUID to pgtype.UUID
func UUIDToPgtype(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// PgtypeToUUID converts pgtype.UUID to uuid.UUID
func PgtypeToUUID(id pgtype.UUID) uuid.UUID {
	return id.Bytes
}

// UUIDPtrToPgtype converts *uuid.UUID to pgtype.UUID
func UUIDPtrToPgtype(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

// PgtypeToUUIDPtr converts pgtype.UUID to *uuid.UUID
func PgtypeToUUIDPtr(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	uid := uuid.UUID(id.Bytes)
	return &uid
}

// PgtypeToTime converts pgtype.Timestamp to time.Time
func PgtypeToTime(t pgtype.Timestamp) time.Time {
	return t.Time
}

// IntToPgtype converts int to pgtype.Int4
func IntToPgtype(i int) pgtype.Int4 {
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

// IntPtrToPgInt4 converts *int to pgtype.Int4
func IntPtrToPgInt4(i *int) pgtype.Int4 {
	if i == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*i), Valid: true}
}

// PgtypeToIntPtr converts pgtype.Int4 to *int
func PgtypeToIntPtr(i pgtype.Int4) *int {
	if !i.Valid {
		return nil
	}
	val := int(i.Int32)
	return &val
}

func convertSubject(s sqlc.Subject) *curriculum.Subject {
	return &curriculum.Subject{
		ID:             PgtypeToUUID(s.ID),
		Code:           s.Code,
		Name:           s.Name,
		PDFPath:        s.PdfPath,
		ContentVersion: int(s.ContentVersion),
		CreatedAt:      PgtypeToTime(s.CreatedAt),
		UpdatedAt:      PgtypeToTime(s.UpdatedAt),
	}
}

func convertTocItem(t sqlc.TocItem) *curriculum.TocItem {
	return &curriculum.TocItem{
		ID:               PgtypeToUUID(t.ID),
		SubjectID:        PgtypeToUUID(t.SubjectID),
		ParentID:         PgtypeToUUIDPtr(t.ParentID),
		Title:            t.Title,
		Level:            int(t.Level),
		OrderIndex:       int(t.OrderIndex),
		StartPDFPage:     PgtypeToIntPtr(t.StartPdfPage),
		EndPDFPage:       PgtypeToIntPtr(t.EndPdfPage),
		PrintedPageStart: PgtypeToIntPtr(t.PrintedPageStart),
	}
}

func convertChunk(c sqlc.Chunk) *curriculum.Chunk {
	return &curriculum.Chunk{
		ID:                PgtypeToUUID(c.ID),
		SubjectID:         PgtypeToUUID(c.SubjectID),
		TocItemID:         PgtypeToUUIDPtr(c.TocItemID),
		PDFPageIndex:      int(c.PdfPageIndex),
		PrintedPageNumber: PgtypeToIntPtr(c.PrintedPageNumber),
		Ordinal:           int(c.Ordinal),
		Content:           c.Content,
		ContentHash:       c.ContentHash,
		TokenCount:        int(c.TokenCount),
	}
}

func convertChunks(rows []sqlc.Chunk) []*curriculum.Chunk {
	chunks := make([]*curriculum.Chunk, 0, len(rows))
	for _, row := range rows {
		chunks = append(chunks, convertChunk(row))
	}
	return chunks
}

package repositories

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"photoadmit/internal/records"
)

func TestImageRowToRecordNullHandling(t *testing.T) {
	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	row := imageRow{
		ID:           id,
		OriginalName: "photo.jpg",
		OriginalSize: 2048,
		OriginalPath: "original/abc.jpg",
		FileType:     "jpg",
		Status:       "PENDING",
		MetaData:     []byte(`{}`),
		CreatedAt:    sql.NullTime{Time: now, Valid: true},
		UpdatedAt:    sql.NullTime{Time: now, Valid: true},
		// ProcessedPath, ProcessedSize, Width, Height left as their zero
		// (invalid/NULL) values, mirroring a freshly inserted record.
	}

	rec, err := row.toRecord()
	if err != nil {
		t.Fatalf("toRecord() error = %v", err)
	}
	if rec.ProcessedPath != "" {
		t.Errorf("toRecord() ProcessedPath = %q, want empty for a NULL column", rec.ProcessedPath)
	}
	if rec.ProcessedSize != 0 {
		t.Errorf("toRecord() ProcessedSize = %d, want 0 for a NULL column", rec.ProcessedSize)
	}
	if rec.Width != 0 || rec.Height != 0 {
		t.Errorf("toRecord() Width/Height = %d/%d, want 0/0 for NULL columns", rec.Width, rec.Height)
	}
	if rec.Status != records.StatusPending {
		t.Errorf("toRecord() Status = %v, want %v", rec.Status, records.StatusPending)
	}
}

func TestImageRowToRecordWithProcessedFields(t *testing.T) {
	row := imageRow{
		ID:            uuid.New(),
		OriginalName:  "photo.jpg",
		OriginalSize:  2048,
		OriginalPath:  "original/abc.jpg",
		ProcessedPath: sql.NullString{String: "processed/abc.jpg", Valid: true},
		ProcessedSize: sql.NullInt64{Int64: 1024, Valid: true},
		FileType:      "jpg",
		Width:         sql.NullInt32{Int32: 1920, Valid: true},
		Height:        sql.NullInt32{Int32: 1080, Valid: true},
		Status:        "PROCESSED",
		MetaData:      []byte(`{"pHash":"abc123","width":1920,"height":1080}`),
	}

	rec, err := row.toRecord()
	if err != nil {
		t.Fatalf("toRecord() error = %v", err)
	}
	if rec.ProcessedPath != "processed/abc.jpg" {
		t.Errorf("toRecord() ProcessedPath = %q", rec.ProcessedPath)
	}
	if rec.ProcessedSize != 1024 {
		t.Errorf("toRecord() ProcessedSize = %d, want 1024", rec.ProcessedSize)
	}
	if rec.Width != 1920 || rec.Height != 1080 {
		t.Errorf("toRecord() Width/Height = %d/%d, want 1920/1080", rec.Width, rec.Height)
	}
	if rec.MetaData.PHash != "abc123" {
		t.Errorf("toRecord() MetaData.PHash = %q, want abc123", rec.MetaData.PHash)
	}
}

func TestImageRowToRecordInvalidMetaData(t *testing.T) {
	row := imageRow{
		ID:       uuid.New(),
		Status:   "PENDING",
		MetaData: []byte(`not-json`),
	}

	if _, err := row.toRecord(); err == nil {
		t.Errorf("toRecord() should error on malformed meta_data JSON")
	}
}

// Package records defines the persistent Image Record entity and the
// store contract the admission pipeline runs against.
package records

import (
	"time"

	"github.com/google/uuid"
)

// Status is the canonical lifecycle state of an image record.
//
// The source system mixes legacy status strings ("REJECTED", "ERROR")
// alongside these four; NormalizeStatus folds any of those onto the
// canonical set on read.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusProcessed  Status = "PROCESSED"
	StatusFailed     Status = "FAILED"
)

// NormalizeStatus maps legacy or unrecognized status strings onto the
// canonical enum. Anything not recognized as a legacy alias falls back to
// FAILED, since an unknown terminal state is never safe to treat as
// still-pending.
func NormalizeStatus(raw string) Status {
	switch Status(raw) {
	case StatusPending, StatusProcessing, StatusProcessed, StatusFailed:
		return Status(raw)
	}
	switch raw {
	case "REJECTED", "ERROR", "error", "rejected", "failed":
		return StatusFailed
	case "done", "complete", "completed", "ready":
		return StatusProcessed
	case "pending":
		return StatusPending
	case "processing", "running":
		return StatusProcessing
	default:
		return StatusFailed
	}
}

// Validation error codes, the closed set referenced by
// metaData.validationErrors.
const (
	CodeSizeValidationFailed   = "size_validation_failed"
	CodeMultipleFacesDetected  = "multiple_faces_detected"
	CodeBlurryImageDetected    = "blurry_image_detected"
	CodeDuplicateImageDetected = "duplicate_image_detected"
	CodeFormatValidationFailed = "format_validation_failed"
	CodeProcessingError        = "processing_error"
)

// MetaData is the structured, JSONB-persisted side-channel attached to
// every record. All fields are optional and are written atomically with
// Status by the pipeline orchestrator.
type MetaData struct {
	RejectionReason  string         `json:"rejectionReason,omitempty"`
	ValidationErrors []string       `json:"validationErrors,omitempty"`
	PHash            string         `json:"pHash,omitempty"`
	SimilarTo        string         `json:"similarTo,omitempty"`
	Width            int            `json:"width,omitempty"`
	Height           int            `json:"height,omitempty"`
	Format           string         `json:"format,omitempty"`
	Diagnostics      map[string]any `json:"diagnostics,omitempty"`
}

// Record is the only persistent entity in the admission pipeline.
type Record struct {
	ID            uuid.UUID `db:"id" json:"id"`
	OriginalName  string    `db:"original_name" json:"originalName"`
	OriginalSize  int64     `db:"original_size" json:"originalSize"`
	OriginalPath  string    `db:"original_path" json:"originalPath"`
	ProcessedPath string    `db:"processed_path" json:"processedPath,omitempty"`
	ProcessedSize int64     `db:"processed_size" json:"processedSize,omitempty"`
	FileType      string    `db:"file_type" json:"fileType"`
	Width         int       `db:"width" json:"width,omitempty"`
	Height        int       `db:"height" json:"height,omitempty"`
	Status        Status    `db:"status" json:"status"`
	MetaData      MetaData  `db:"meta_data" json:"metaData"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// Patch is a shallow set of fields to merge into an existing record.
// Nil pointers/zero-value fields that are not explicitly set are left
// untouched by Store.Update implementations.
type Patch struct {
	Status        *Status
	ProcessedPath *string
	ProcessedSize *int64
	Width         *int
	Height        *int
	MetaData      *MetaData
}

// HashCandidate is the narrow projection FindProcessedWithHash returns:
// just enough to run the fast-path filename check and the Hamming-distance
// scan without paying for the full record.
type HashCandidate struct {
	ID           uuid.UUID `db:"id"`
	OriginalName string    `db:"original_name"`
	MetaData     MetaData  `db:"meta_data"`
}

// Package admission implements the Admission Facade (C5): the
// request-facing surface that turns uploads into scheduled pipeline
// runs and serves list/get/delete/reprocess operations, generalized
// from the teacher's UploadHandler + Service.QueueProcessing split.
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"photoadmit/internal/blobstore"
	"photoadmit/internal/pipeline"
	"photoadmit/internal/records"
)

// UploadResult is the per-file summary returned immediately from
// UploadBatch, before the pipeline run completes.
type UploadResult struct {
	ID           uuid.UUID `json:"id"`
	Status       records.Status `json:"status"`
	OriginalName string    `json:"originalName"`
	Error        string    `json:"error,omitempty"`
}

// UploadFile is a single file of an upload batch, already read into
// memory by the (fixed-interface) multipart layer.
type UploadFile struct {
	OriginalName string
	Data         []byte
	ContentType  string
}

// RecordWithURLs bundles a record with its minted signed URLs, the
// shape returned by List/GetByID.
type RecordWithURLs struct {
	records.Record
	OriginalURL  string `json:"originalUrl"`
	ProcessedURL string `json:"processedUrl,omitempty"`
}

// Facade is the admission pipeline's request-facing entry point.
type Facade struct {
	store        records.Store
	blobs        blobstore.BlobStore
	orchestrator *pipeline.Orchestrator
}

// New builds a Facade over an already-constructed Orchestrator.
func New(store records.Store, blobs blobstore.BlobStore, orchestrator *pipeline.Orchestrator) *Facade {
	return &Facade{store: store, blobs: blobs, orchestrator: orchestrator}
}

// uploadConcurrency bounds how many blob writes a single UploadBatch call
// drives at once, so a 10-file request doesn't serialize 10 round trips
// to the blob backend.
const uploadConcurrency = 4

// UploadBatch stores each file's bytes, creates a PENDING record, and
// schedules a pipeline run, per §4.5. Partial failure is per-file: a
// failure storing or recording one file does not prevent the others
// from succeeding. Files are admitted concurrently, bounded by
// uploadConcurrency, since blob writes dominate the wall clock here.
func (f *Facade) UploadBatch(ctx context.Context, files []UploadFile) []UploadResult {
	results := make([]UploadResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			result, err := f.uploadOne(gctx, file)
			if err != nil {
				slog.Error("upload failed", "original_name", file.OriginalName, "error", err)
				results[i] = UploadResult{OriginalName: file.OriginalName, Error: err.Error()}
				return nil
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (f *Facade) uploadOne(ctx context.Context, file UploadFile) (UploadResult, error) {
	key := fmt.Sprintf("%s%s", uuid.New().String(), strings.ToLower(filepath.Ext(file.OriginalName)))

	storedKey, err := f.blobs.Put(ctx, blobstore.NamespaceOriginal, key, file.Data, file.ContentType)
	if err != nil {
		return UploadResult{}, fmt.Errorf("store original: %w", err)
	}

	rec := &records.Record{
		OriginalName: file.OriginalName,
		OriginalSize: int64(len(file.Data)),
		OriginalPath: storedKey,
		FileType:     strings.TrimPrefix(strings.ToLower(filepath.Ext(file.OriginalName)), "."),
	}

	id, err := f.store.Create(ctx, rec)
	if err != nil {
		return UploadResult{}, fmt.Errorf("create record: %w", err)
	}

	f.orchestrator.Schedule(id)

	return UploadResult{ID: id, Status: records.StatusPending, OriginalName: file.OriginalName}, nil
}

// List returns a page of records with signed URLs minted, per §4.5.
func (f *Facade) List(ctx context.Context, statusFilter records.Status, page, limit, offset int) ([]RecordWithURLs, int, error) {
	recs, total, err := f.store.List(ctx, records.ListFilter{Status: statusFilter}, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	out := make([]RecordWithURLs, 0, len(recs))
	for _, rec := range recs {
		withURLs, err := f.withSignedURLs(ctx, rec)
		if err != nil {
			slog.Warn("failed to mint signed url", "image_id", rec.ID, "error", err)
			withURLs = RecordWithURLs{Record: rec}
		}
		out = append(out, withURLs)
	}
	return out, total, nil
}

// GetByID returns a single record with signed URLs, or records.ErrNotFound.
func (f *Facade) GetByID(ctx context.Context, id uuid.UUID) (*RecordWithURLs, error) {
	rec, err := f.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	withURLs, err := f.withSignedURLs(ctx, *rec)
	if err != nil {
		return nil, err
	}
	return &withURLs, nil
}

func (f *Facade) withSignedURLs(ctx context.Context, rec records.Record) (RecordWithURLs, error) {
	out := RecordWithURLs{Record: rec}

	originalURL, err := f.blobs.SignedURL(ctx, rec.OriginalPath, blobstore.SignedURLTTL)
	if err != nil {
		return out, fmt.Errorf("sign original url: %w", err)
	}
	out.OriginalURL = originalURL

	if rec.ProcessedPath != "" {
		processedURL, err := f.blobs.SignedURL(ctx, rec.ProcessedPath, blobstore.SignedURLTTL)
		if err != nil {
			return out, fmt.Errorf("sign processed url: %w", err)
		}
		out.ProcessedURL = processedURL
	}
	return out, nil
}

// Delete removes a record's blobs then the record itself, per §3
// invariant 5: a blob-delete failure is logged but does not block the
// record's removal.
func (f *Facade) Delete(ctx context.Context, id uuid.UUID) error {
	rec, err := f.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := f.blobs.Delete(ctx, rec.OriginalPath); err != nil {
		slog.Warn("failed to delete original blob", "image_id", id, "error", err)
	}
	if rec.ProcessedPath != "" {
		if err := f.blobs.Delete(ctx, rec.ProcessedPath); err != nil {
			slog.Warn("failed to delete processed blob", "image_id", id, "error", err)
		}
	}

	return f.store.Delete(ctx, id)
}

// ErrAlreadyProcessed is returned by Reprocess when the record is
// already PROCESSED.
var ErrAlreadyProcessed = fmt.Errorf("record already processed")

// Reprocess transitions a record back to PENDING and schedules a new
// pipeline run, per §4.5. PROCESSED records are rejected outright.
func (f *Facade) Reprocess(ctx context.Context, id uuid.UUID) error {
	rec, err := f.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status == records.StatusProcessed {
		return ErrAlreadyProcessed
	}

	pending := records.StatusPending
	if _, err := f.store.Update(ctx, id, records.Patch{Status: &pending}); err != nil {
		return err
	}

	f.orchestrator.Schedule(id)
	return nil
}

// Shutdown drains in-flight pipeline runs, bounded by ctx's deadline.
func (f *Facade) Shutdown(ctx context.Context) error {
	return f.orchestrator.Shutdown(ctx)
}

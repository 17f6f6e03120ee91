package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"photoadmit/internal/blobstore"
	"photoadmit/internal/pipeline/analyzers"
	"photoadmit/internal/records"
)

// fakeStore is a minimal in-memory records.Store double for exercising the
// orchestrator's control flow without a database.
type fakeStore struct {
	mu sync.Mutex

	rec *records.Record

	updateCalls int
	// failOnCall, when non-zero, makes the Update call at that 1-indexed
	// position return records.ErrNotFound, simulating a record deleted
	// mid-run.
	failOnCall int
}

func (s *fakeStore) Create(ctx context.Context, rec *records.Record) (uuid.UUID, error) {
	return rec.ID, nil
}

func (s *fakeStore) Get(ctx context.Context, id uuid.UUID) (*records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil || s.rec.ID != id {
		return nil, records.ErrNotFound
	}
	cp := *s.rec
	return &cp, nil
}

func (s *fakeStore) Update(ctx context.Context, id uuid.UUID, patch records.Patch) (*records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.failOnCall != 0 && s.updateCalls == s.failOnCall {
		return nil, records.ErrNotFound
	}
	if s.rec == nil || s.rec.ID != id {
		return nil, records.ErrNotFound
	}
	if patch.Status != nil {
		s.rec.Status = *patch.Status
	}
	if patch.ProcessedPath != nil {
		s.rec.ProcessedPath = *patch.ProcessedPath
	}
	if patch.ProcessedSize != nil {
		s.rec.ProcessedSize = *patch.ProcessedSize
	}
	if patch.Width != nil {
		s.rec.Width = *patch.Width
	}
	if patch.Height != nil {
		s.rec.Height = *patch.Height
	}
	if patch.MetaData != nil {
		s.rec.MetaData = *patch.MetaData
	}
	cp := *s.rec
	return &cp, nil
}

func (s *fakeStore) List(ctx context.Context, filter records.ListFilter, offset, limit int) ([]records.Record, int, error) {
	return nil, 0, nil
}

func (s *fakeStore) FindProcessedWithHash(ctx context.Context) ([]records.HashCandidate, error) {
	return nil, nil
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

// fakeBlobs is a minimal blobstore.BlobStore double.
type fakeBlobs struct {
	getErr error
	data   []byte
}

func (b *fakeBlobs) Put(ctx context.Context, ns blobstore.Namespace, key string, data []byte, contentType string) (string, error) {
	return key, nil
}

func (b *fakeBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	if b.getErr != nil {
		return nil, b.getErr
	}
	return b.data, nil
}

func (b *fakeBlobs) Delete(ctx context.Context, key string) error { return nil }

func (b *fakeBlobs) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", nil
}

func TestRunIsIdempotentOnNonPendingStatus(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{rec: &records.Record{ID: id, Status: records.StatusProcessed, OriginalName: "a.jpg"}}
	blobs := &fakeBlobs{}

	o := &Orchestrator{store: store, blobs: blobs, cfg: analyzers.Default(), ctx: context.Background()}

	rec, err := o.Run(context.Background(), id)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rec.Status != records.StatusProcessed {
		t.Errorf("Run() status = %v, want unchanged %v", rec.Status, records.StatusProcessed)
	}
	if store.updateCalls != 0 {
		t.Errorf("Run() on a non-pending record should not call Update, got %d calls", store.updateCalls)
	}
}

func TestRunToleratesRecordDeletedMidRun(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{
		rec:        &records.Record{ID: id, Status: records.StatusPending, OriginalName: "a.jpg", OriginalPath: "original/a.jpg"},
		failOnCall: 2, // the Processing->Failed transition inside fail()
	}
	blobs := &fakeBlobs{getErr: errors.New("object store unreachable")}

	o := &Orchestrator{store: store, blobs: blobs, cfg: analyzers.Default(), ctx: context.Background()}

	rec, err := o.Run(context.Background(), id)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (tolerated no-op)", err)
	}
	if rec != nil {
		t.Errorf("Run() record = %v, want nil for a record deleted mid-run", rec)
	}
	if store.updateCalls != 2 {
		t.Errorf("Run() expected exactly 2 Update calls (pending->processing, processing->failed), got %d", store.updateCalls)
	}
}

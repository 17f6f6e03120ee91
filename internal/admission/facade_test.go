package admission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"photoadmit/internal/blobstore"
	"photoadmit/internal/pipeline"
	"photoadmit/internal/pipeline/analyzers"
	"photoadmit/internal/records"
)

// fakeStore is a minimal in-memory records.Store double.
type fakeStore struct {
	mu   sync.Mutex
	recs map[uuid.UUID]*records.Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: make(map[uuid.UUID]*records.Record)}
}

func (s *fakeStore) Create(ctx context.Context, rec *records.Record) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	cp := *rec
	s.recs[rec.ID] = &cp
	return rec.ID, nil
}

func (s *fakeStore) Get(ctx context.Context, id uuid.UUID) (*records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, records.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) Update(ctx context.Context, id uuid.UUID, patch records.Patch) (*records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, records.ErrNotFound
	}
	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) List(ctx context.Context, filter records.ListFilter, offset, limit int) ([]records.Record, int, error) {
	return nil, 0, nil
}

func (s *fakeStore) FindProcessedWithHash(ctx context.Context) ([]records.HashCandidate, error) {
	return nil, nil
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, id)
	return nil
}

// fakeBlobs is a minimal blobstore.BlobStore double. A file whose content
// is exactly "FAIL" is rejected by Put, to exercise per-file partial
// failure in UploadBatch.
type fakeBlobs struct{}

func (b *fakeBlobs) Put(ctx context.Context, ns blobstore.Namespace, key string, data []byte, contentType string) (string, error) {
	if string(data) == "FAIL" {
		return "", errors.New("backend unavailable")
	}
	return key, nil
}

func (b *fakeBlobs) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }

func (b *fakeBlobs) Delete(ctx context.Context, key string) error { return nil }

func (b *fakeBlobs) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://example.test/" + key, nil
}

// newTestFacade builds a Facade over a real Orchestrator with zero workers,
// so Schedule enqueues without any background processing racing the
// assertions below.
func newTestFacade() (*Facade, *fakeStore) {
	store := newFakeStore()
	blobs := &fakeBlobs{}
	orch := pipeline.New(store, blobs, analyzers.Default(), 0)
	return New(store, blobs, orch), store
}

func TestUploadBatchPartialFailure(t *testing.T) {
	facade, _ := newTestFacade()

	files := []UploadFile{
		{OriginalName: "a.jpg", Data: []byte("ok-a"), ContentType: "image/jpeg"},
		{OriginalName: "b.jpg", Data: []byte("FAIL"), ContentType: "image/jpeg"},
		{OriginalName: "c.jpg", Data: []byte("ok-c"), ContentType: "image/jpeg"},
	}

	results := facade.UploadBatch(context.Background(), files)
	if len(results) != 3 {
		t.Fatalf("UploadBatch() returned %d results, want 3", len(results))
	}

	if results[0].Error != "" {
		t.Errorf("UploadBatch() file 0 = %+v, want no error", results[0])
	}
	if results[0].ID == uuid.Nil || results[0].Status != records.StatusPending {
		t.Errorf("UploadBatch() file 0 = %+v, want a pending id", results[0])
	}

	if results[1].Error == "" {
		t.Errorf("UploadBatch() file 1 should have failed to store")
	}
	if results[1].ID != uuid.Nil {
		t.Errorf("UploadBatch() file 1 should not have an id on failure, got %v", results[1].ID)
	}

	if results[2].Error != "" {
		t.Errorf("UploadBatch() file 2 = %+v, want no error", results[2])
	}

	// Results stay ordered by input index regardless of concurrent
	// completion order.
	if results[0].OriginalName != "a.jpg" || results[1].OriginalName != "b.jpg" || results[2].OriginalName != "c.jpg" {
		t.Errorf("UploadBatch() results are not index-ordered: %+v", results)
	}
}

func TestReprocessRejectsAlreadyProcessed(t *testing.T) {
	facade, store := newTestFacade()

	id := uuid.New()
	store.recs[id] = &records.Record{ID: id, Status: records.StatusProcessed, OriginalName: "done.jpg"}

	err := facade.Reprocess(context.Background(), id)
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("Reprocess() error = %v, want ErrAlreadyProcessed", err)
	}
	if store.recs[id].Status != records.StatusProcessed {
		t.Errorf("Reprocess() should not change the status of a processed record")
	}
}

func TestReprocessRestartsFailedRecord(t *testing.T) {
	facade, store := newTestFacade()

	id := uuid.New()
	store.recs[id] = &records.Record{ID: id, Status: records.StatusFailed, OriginalName: "failed.jpg"}

	if err := facade.Reprocess(context.Background(), id); err != nil {
		t.Fatalf("Reprocess() error = %v", err)
	}
	if store.recs[id].Status != records.StatusPending {
		t.Errorf("Reprocess() status = %v, want %v", store.recs[id].Status, records.StatusPending)
	}
}

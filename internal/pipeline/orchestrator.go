// Package pipeline implements the admission pipeline orchestrator (C4):
// the status-machine sequencing of the C3 analyzer stages against a
// single pending image record, plus the background worker pool that
// drives it. Generalized from the teacher's internal/imaging.Service.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"photoadmit/internal/blobstore"
	"photoadmit/internal/pipeline/analyzers"
	"photoadmit/internal/records"
)

// runTimeout bounds a single pipeline run, mirroring the teacher's
// per-job context timeout.
const runTimeout = 5 * time.Minute

// Orchestrator runs the admission pipeline against pending records and
// owns the background worker pool that drives it.
type Orchestrator struct {
	store records.Store
	blobs blobstore.BlobStore
	cfg   analyzers.Config

	jobQueue chan uuid.UUID

	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates an Orchestrator, starts its worker pool, and kicks off a
// background resume of any record stuck in PENDING from a prior process
// lifetime.
func New(store records.Store, blobs blobstore.BlobStore, cfg analyzers.Config, workerCount int) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		store:       store,
		blobs:       blobs,
		cfg:         cfg,
		jobQueue:    make(chan uuid.UUID, 1000),
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
	}

	o.startWorkers()
	go o.resumePending()

	return o
}

func (o *Orchestrator) startWorkers() {
	for i := 0; i < o.workerCount; i++ {
		o.wg.Add(1)
		go o.worker(i)
	}
}

func (o *Orchestrator) worker(id int) {
	defer o.wg.Done()
	l := slog.With("worker_id", id)

	for imageID := range o.jobQueue {
		select {
		case <-o.ctx.Done():
			return
		default:
		}

		l.Info("running pipeline", "image_id", imageID)
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		if _, err := o.Run(ctx, imageID); err != nil {
			l.Error("pipeline run failed", "image_id", imageID, "error", err)
		}
		cancel()
	}
}

// resumePending re-queues any record left in PENDING by a previous
// process lifetime, mirroring the teacher's resumePendingJobs.
func (o *Orchestrator) resumePending() {
	time.Sleep(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pending, _, err := o.store.List(ctx, records.ListFilter{Status: records.StatusPending}, 0, 1000)
	if err != nil {
		slog.Error("failed to list pending records", "error", err)
		return
	}

	slog.Info("found pending records", "count", len(pending))
	for _, rec := range pending {
		select {
		case o.jobQueue <- rec.ID:
			slog.Info("resumed pending record", "image_id", rec.ID)
		case <-o.ctx.Done():
			return
		case <-ctx.Done():
			slog.Warn("timeout resuming pending records")
			return
		}
	}
}

// Schedule enqueues a run for imageID. The record is already durably
// PENDING in the store, so a full queue is not data loss: a later
// resumePending pass (or an explicit reprocess) picks it up.
func (o *Orchestrator) Schedule(imageID uuid.UUID) {
	select {
	case o.jobQueue <- imageID:
	default:
		slog.Warn("pipeline queue full, record will resume on next restart", "image_id", imageID)
	}
}

// Shutdown stops accepting new runs and waits for in-flight runs to
// finish, bounded by ctx's deadline.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancel()
	close(o.jobQueue)

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes the §4.4 flow against a single record. If the record is
// not PENDING, it returns the record unchanged as a no-op (idempotent on
// any status != PENDING, per §8); an unknown id returns the store's error.
func (o *Orchestrator) Run(ctx context.Context, imageID uuid.UUID) (*records.Record, error) {
	rec, err := o.store.Get(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if rec.Status != records.StatusPending {
		return rec, nil
	}

	processing := records.StatusProcessing
	rec, err = o.store.Update(ctx, imageID, records.Patch{Status: &processing})
	if err != nil {
		return nil, err
	}

	data, err := o.blobs.Get(ctx, rec.OriginalPath)
	if err != nil {
		return o.fail(ctx, imageID, records.CodeProcessingError, "Image could not be loaded for processing.", nil)
	}

	for _, step := range []func(context.Context, []byte) (analyzers.Verdict, error){
		func(c context.Context, d []byte) (analyzers.Verdict, error) { return analyzers.Size(c, d, o.cfg) },
		func(c context.Context, d []byte) (analyzers.Verdict, error) {
			return analyzers.GuardedFace(c, d, o.cfg), nil
		},
		func(c context.Context, d []byte) (analyzers.Verdict, error) { return analyzers.Blur(c, d, o.cfg) },
		func(c context.Context, d []byte) (analyzers.Verdict, error) {
			return o.phashStage(c, d, rec.OriginalName)
		},
	} {
		verdict, stepErr := step(ctx, data)
		if stepErr != nil {
			code, message := classifyError(stepErr)
			return o.fail(ctx, imageID, code, message, nil)
		}
		if !verdict.Accept {
			meta := &records.MetaData{
				RejectionReason:  verdict.Message,
				ValidationErrors: []string{verdict.Code},
				Diagnostics:      verdict.Diagnostics,
			}
			if hash, ok := verdict.Diagnostics["pHash"].(string); ok {
				meta.PHash = hash
			}
			if similarTo, ok := verdict.Diagnostics["similarTo"].(string); ok {
				meta.SimilarTo = similarTo
			}
			return o.fail(ctx, imageID, verdict.Code, verdict.Message, meta)
		}
	}

	return o.succeed(ctx, imageID, rec, data)
}

// phashStage wraps the perceptual-hash duplicate stage with the store
// read it needs, keeping the stage function itself pure over bytes.
func (o *Orchestrator) phashStage(ctx context.Context, data []byte, originalName string) (analyzers.Verdict, error) {
	hashCandidates, err := o.store.FindProcessedWithHash(ctx)
	if err != nil {
		// Fail open: a store error here must not surface as a
		// user-facing rejection (§4.3.4).
		return analyzers.Verdict{Accept: true}, nil
	}

	candidates := make([]analyzers.DuplicateCandidate, 0, len(hashCandidates))
	for _, c := range hashCandidates {
		candidates = append(candidates, analyzers.DuplicateCandidate{
			ID:           c.ID.String(),
			OriginalName: c.OriginalName,
			PHash:        c.MetaData.PHash,
		})
	}

	return analyzers.PHashDuplicate(ctx, data, originalName, candidates, o.cfg)
}

func (o *Orchestrator) fail(ctx context.Context, imageID uuid.UUID, code, message string, meta *records.MetaData) (*records.Record, error) {
	failed := records.StatusFailed
	if meta == nil {
		meta = &records.MetaData{
			RejectionReason:  message,
			ValidationErrors: []string{code},
		}
	}
	rec, err := o.store.Update(ctx, imageID, records.Patch{Status: &failed, MetaData: meta})
	if err != nil {
		if err == records.ErrNotFound {
			// Deleted mid-run: tolerated no-op per §5 "Cancellation".
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (o *Orchestrator) succeed(ctx context.Context, imageID uuid.UUID, rec *records.Record, data []byte) (*records.Record, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return o.fail(ctx, imageID, records.CodeProcessingError, "Image processing failed", nil)
	}

	der, err := buildDerivative(img)
	if err != nil {
		return o.fail(ctx, imageID, records.CodeProcessingError, "Image processing failed", nil)
	}

	pHash, err := analyzers.ComputePHash(data)
	if err != nil {
		pHash = ""
	}

	timestamp := time.Now().UTC().Format("20060102150405")
	baseName := filepath.Base(rec.OriginalName)
	processedKey := fmt.Sprintf("%s-%s.jpg", strings.TrimSuffix(baseName, extOf(baseName)), timestamp)

	storedKey, err := o.blobs.Put(ctx, blobstore.NamespaceProcessed, processedKey, der.Data, "image/jpeg")
	if err != nil {
		return o.fail(ctx, imageID, records.CodeProcessingError, "Image processing failed", nil)
	}

	processed := records.StatusProcessed
	processedSize := int64(len(der.Data))
	width := der.Width
	height := der.Height

	rec, err = o.store.Update(ctx, imageID, records.Patch{
		Status:        &processed,
		ProcessedPath: &storedKey,
		ProcessedSize: &processedSize,
		Width:         &width,
		Height:        &height,
		MetaData: &records.MetaData{
			PHash:  pHash,
			Width:  der.Width,
			Height: der.Height,
			Format: der.Format,
		},
	})
	if err != nil {
		if err == records.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func extOf(name string) string {
	if idx := strings.LastIndex(name, "."); idx != -1 {
		return name[idx:]
	}
	return ""
}

// classifyError implements the §4.4 step 6 substring-to-taxonomy map for
// uncaught exceptions.
func classifyError(err error) (code, message string) {
	text := strings.ToLower(err.Error())

	switch {
	case strings.Contains(text, "duplicate"):
		return records.CodeDuplicateImageDetected, "This image appears to be a duplicate of an existing photo."
	case strings.Contains(text, "resolution"), strings.Contains(text, "dimensions"):
		return records.CodeSizeValidationFailed, "Image resolution is too low."
	case strings.Contains(text, "size"):
		return records.CodeSizeValidationFailed, "Image file size is too small."
	case strings.Contains(text, "format"), strings.Contains(text, "unsupported"):
		return records.CodeFormatValidationFailed, "Unsupported image format."
	case strings.Contains(text, "face"):
		return records.CodeMultipleFacesDetected, "Multiple faces detected."
	default:
		return records.CodeProcessingError, "Image processing failed"
	}
}

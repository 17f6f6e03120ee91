package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"photoadmit/internal/database"
	"photoadmit/internal/records"

	"github.com/google/uuid"
)

// ImageRepository is the PostgreSQL-backed records.Store (C1),
// generalized from the teacher's ImagingRepository.
type ImageRepository struct {
	db *database.DB
}

// NewImageRepository creates a new image record repository.
func NewImageRepository(db *database.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

var _ records.Store = (*ImageRepository)(nil)

type imageRow struct {
	ID            uuid.UUID      `db:"id"`
	OriginalName  string         `db:"original_name"`
	OriginalSize  int64          `db:"original_size"`
	OriginalPath  string         `db:"original_path"`
	ProcessedPath sql.NullString `db:"processed_path"`
	ProcessedSize sql.NullInt64  `db:"processed_size"`
	FileType      string         `db:"file_type"`
	Width         sql.NullInt32  `db:"width"`
	Height        sql.NullInt32  `db:"height"`
	Status        string         `db:"status"`
	MetaData      []byte         `db:"meta_data"`
	CreatedAt     sql.NullTime   `db:"created_at"`
	UpdatedAt     sql.NullTime   `db:"updated_at"`
}

func (r imageRow) toRecord() (*records.Record, error) {
	var meta records.MetaData
	if len(r.MetaData) > 0 {
		if err := json.Unmarshal(r.MetaData, &meta); err != nil {
			return nil, fmt.Errorf("decode meta_data: %w", err)
		}
	}
	rec := &records.Record{
		ID:           r.ID,
		OriginalName: r.OriginalName,
		OriginalSize: r.OriginalSize,
		OriginalPath: r.OriginalPath,
		FileType:     r.FileType,
		Status:       records.NormalizeStatus(r.Status),
		MetaData:     meta,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
	if r.ProcessedPath.Valid {
		rec.ProcessedPath = r.ProcessedPath.String
	}
	if r.ProcessedSize.Valid {
		rec.ProcessedSize = r.ProcessedSize.Int64
	}
	if r.Width.Valid {
		rec.Width = int(r.Width.Int32)
	}
	if r.Height.Valid {
		rec.Height = int(r.Height.Int32)
	}
	return rec, nil
}

const recordColumns = `id, original_name, original_size, original_path, processed_path,
	processed_size, file_type, width, height, status, meta_data, created_at, updated_at`

// Create inserts a new PENDING image record and assigns its id and
// timestamps.
func (r *ImageRepository) Create(ctx context.Context, rec *records.Record) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.Status = records.StatusPending

	meta, err := json.Marshal(rec.MetaData)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode meta_data: %w", err)
	}

	query := `
		INSERT INTO image_records (
			id, original_name, original_size, original_path, file_type, status, meta_data, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query,
		rec.ID, rec.OriginalName, rec.OriginalSize, rec.OriginalPath, rec.FileType, rec.Status, meta)

	if err := row.Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return uuid.Nil, fmt.Errorf("create image record: %w", err)
	}
	return rec.ID, nil
}

// Get retrieves a record by id.
func (r *ImageRepository) Get(ctx context.Context, id uuid.UUID) (*records.Record, error) {
	var row imageRow
	query := `SELECT ` + recordColumns + ` FROM image_records WHERE id = $1`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, records.ErrNotFound
		}
		return nil, fmt.Errorf("get image record: %w", err)
	}
	return row.toRecord()
}

// Update writes only the non-nil patch fields in a single UPDATE built
// from the caller-supplied values, with no read-before-write. This keeps
// the operation atomic per record (§4.1): two concurrent Update calls on
// the same id (e.g. a Reprocess racing the orchestrator's own fail/succeed
// write) each apply just their own columns instead of clobbering one
// another with a stale in-memory snapshot of the whole row.
func (r *ImageRepository) Update(ctx context.Context, id uuid.UUID, patch records.Patch) (*records.Record, error) {
	var setClauses []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.Status != nil {
		setClauses = append(setClauses, "status = "+arg(*patch.Status))
	}
	if patch.ProcessedPath != nil {
		setClauses = append(setClauses, "processed_path = "+arg(*patch.ProcessedPath))
	}
	if patch.ProcessedSize != nil {
		setClauses = append(setClauses, "processed_size = "+arg(*patch.ProcessedSize))
	}
	if patch.Width != nil {
		setClauses = append(setClauses, "width = "+arg(*patch.Width))
	}
	if patch.Height != nil {
		setClauses = append(setClauses, "height = "+arg(*patch.Height))
	}
	if patch.MetaData != nil {
		meta, err := json.Marshal(*patch.MetaData)
		if err != nil {
			return nil, fmt.Errorf("encode meta_data: %w", err)
		}
		setClauses = append(setClauses, "meta_data = "+arg(meta))
	}

	if len(setClauses) == 0 {
		return r.Get(ctx, id)
	}
	setClauses = append(setClauses, "updated_at = now()")

	query := `UPDATE image_records SET ` + strings.Join(setClauses, ", ") +
		` WHERE id = ` + arg(id) + ` RETURNING ` + recordColumns

	var row imageRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, records.ErrNotFound
		}
		return nil, fmt.Errorf("update image record: %w", err)
	}
	return row.toRecord()
}

// List returns a page of records, newest first, optionally filtered by
// status, plus the total matching count.
func (r *ImageRepository) List(ctx context.Context, filter records.ListFilter, offset, limit int) ([]records.Record, int, error) {
	var rows []imageRow
	var total int

	if filter.Status != "" {
		countQuery := `SELECT count(*) FROM image_records WHERE status = $1`
		if err := r.db.GetContext(ctx, &total, countQuery, filter.Status); err != nil {
			return nil, 0, fmt.Errorf("count image records: %w", err)
		}

		query := `SELECT ` + recordColumns + ` FROM image_records WHERE status = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`
		if err := r.db.SelectContext(ctx, &rows, query, filter.Status, offset, limit); err != nil {
			return nil, 0, fmt.Errorf("list image records: %w", err)
		}
	} else {
		countQuery := `SELECT count(*) FROM image_records`
		if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
			return nil, 0, fmt.Errorf("count image records: %w", err)
		}

		query := `SELECT ` + recordColumns + ` FROM image_records ORDER BY created_at DESC OFFSET $1 LIMIT $2`
		if err := r.db.SelectContext(ctx, &rows, query, offset, limit); err != nil {
			return nil, 0, fmt.Errorf("list image records: %w", err)
		}
	}

	out := make([]records.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rec)
	}
	return out, total, nil
}

// FindProcessedWithHash returns a snapshot projection of every PROCESSED
// record carrying a pHash, for duplicate-detection scans. It does not
// hold any lock across the read; concurrent inserts are allowed to race
// the next pipeline run.
func (r *ImageRepository) FindProcessedWithHash(ctx context.Context) ([]records.HashCandidate, error) {
	type candidateRow struct {
		ID           uuid.UUID `db:"id"`
		OriginalName string    `db:"original_name"`
		MetaData     []byte    `db:"meta_data"`
	}

	var rows []candidateRow
	query := `
		SELECT id, original_name, meta_data FROM image_records
		WHERE status = $1 AND meta_data->>'pHash' IS NOT NULL`

	if err := r.db.SelectContext(ctx, &rows, query, records.StatusProcessed); err != nil {
		return nil, fmt.Errorf("find processed with hash: %w", err)
	}

	out := make([]records.HashCandidate, 0, len(rows))
	for _, row := range rows {
		var meta records.MetaData
		if err := json.Unmarshal(row.MetaData, &meta); err != nil {
			return nil, fmt.Errorf("decode meta_data: %w", err)
		}
		out = append(out, records.HashCandidate{
			ID:           row.ID,
			OriginalName: row.OriginalName,
			MetaData:     meta,
		})
	}
	return out, nil
}

// Delete removes a record. Callers are responsible for deleting the
// corresponding blobs first, per the documented deletion order.
func (r *ImageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM image_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete image record: %w", err)
	}
	return nil
}

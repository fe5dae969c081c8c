package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. The conditional claim relies on
// the atomicity of a single UPDATE with a status/version predicate; no
// cross-document transaction is needed because each run writes at most
// one processed document.
type PGRepo struct {
	DB *sql.DB
}

// CreateRaw inserts a new raw resume.
func (r *PGRepo) CreateRaw(ctx context.Context, raw RawResume) error {
	const query = `
INSERT INTO raw_resumes (id, filename, uploaded_at, status, raw_text, error_message, version, storage_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`
	_, err := r.DB.ExecContext(ctx, query,
		raw.ID,
		raw.Filename,
		raw.UploadedAt,
		raw.Status,
		raw.RawText,
		nullString(raw.Error),
		raw.Version,
		nullString(raw.StorageKey),
	)
	return err
}

// GetRaw returns a raw resume by ID.
func (r *PGRepo) GetRaw(ctx context.Context, id string) (RawResume, error) {
	const query = `
SELECT id, filename, uploaded_at, status, raw_text, error_message, version, storage_key, created_at, updated_at
FROM raw_resumes
WHERE id = $1
LIMIT 1`
	return scanRaw(r.DB.QueryRowContext(ctx, query, id))
}

// ListRaw returns raw resumes newest-first, optionally filtered by status.
func (r *PGRepo) ListRaw(ctx context.Context, statusFilter string, limit int) ([]RawResume, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
SELECT id, filename, uploaded_at, status, raw_text, error_message, version, storage_key, created_at, updated_at
FROM raw_resumes`
	args := []any{}
	if statusFilter != "" {
		query += ` WHERE status = $1`
		args = append(args, statusFilter)
	}
	query += fmt.Sprintf(` ORDER BY uploaded_at DESC LIMIT %d`, limit)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RawResume
	for rows.Next() {
		raw, err := scanRaw(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

// ClaimProcessing performs the conditional pending/failed -> processing
// transition as a single atomic UPDATE.
func (r *PGRepo) ClaimProcessing(ctx context.Context, id string, version int64) (RawResume, error) {
	const query = `
UPDATE raw_resumes
SET status = $1, error_message = NULL, version = version + 1, updated_at = now()
WHERE id = $2 AND version = $3 AND status IN ($4, $5)
RETURNING id, filename, uploaded_at, status, raw_text, error_message, version, storage_key, created_at, updated_at`
	raw, err := scanRaw(r.DB.QueryRowContext(ctx, query, StatusProcessing, id, version, StatusPending, StatusFailed))
	if err == nil {
		return raw, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return RawResume{}, err
	}

	// The UPDATE matched nothing: distinguish a missing record from a
	// lost claim race.
	if _, getErr := r.GetRaw(ctx, id); getErr != nil {
		return RawResume{}, getErr
	}
	return RawResume{}, ErrClaimConflict
}

// MarkCompleted transitions processing -> completed.
func (r *PGRepo) MarkCompleted(ctx context.Context, id string) error {
	return r.finish(ctx, id, StatusCompleted, "")
}

// MarkFailed transitions processing -> failed and records the error.
func (r *PGRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.finish(ctx, id, StatusFailed, errMsg)
}

func (r *PGRepo) finish(ctx context.Context, id, status, errMsg string) error {
	const query = `
UPDATE raw_resumes
SET status = $1, error_message = $2, version = version + 1, updated_at = now()
WHERE id = $3`
	res, err := r.DB.ExecContext(ctx, query, status, nullString(errMsg), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PutProcessed upserts the full processed record in one statement.
func (r *PGRepo) PutProcessed(ctx context.Context, processed ProcessedResume) error {
	payload, err := json.Marshal(processed.Data)
	if err != nil {
		return fmt.Errorf("marshal processed data: %w", err)
	}

	const query = `
INSERT INTO processed_resumes (id, filename, uploaded_at, status, data, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
ON CONFLICT (id) DO UPDATE
SET filename = EXCLUDED.filename,
    uploaded_at = EXCLUDED.uploaded_at,
    status = EXCLUDED.status,
    data = EXCLUDED.data,
    updated_at = now()`
	_, err = r.DB.ExecContext(ctx, query,
		processed.ID,
		processed.Filename,
		processed.UploadedAt,
		processed.Status,
		payload,
	)
	return err
}

// GetProcessed returns the processed record by ID.
func (r *PGRepo) GetProcessed(ctx context.Context, id string) (ProcessedResume, error) {
	const query = `
SELECT id, filename, uploaded_at, status, data
FROM processed_resumes
WHERE id = $1
LIMIT 1`
	var p ProcessedResume
	var payload []byte
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Filename, &p.UploadedAt, &p.Status, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ProcessedResume{}, ErrNotFound
	}
	if err != nil {
		return ProcessedResume{}, err
	}
	if err := json.Unmarshal(payload, &p.Data); err != nil {
		return ProcessedResume{}, fmt.Errorf("unmarshal processed data: %w", err)
	}
	return p, nil
}

// DeleteProcessed removes only the processed record. Missing rows are not
// an error.
func (r *PGRepo) DeleteProcessed(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM processed_resumes WHERE id = $1`, id)
	return err
}

// Delete removes the raw record; the processed record cascades.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM raw_resumes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReapStale rewrites stale processing records back to failed.
func (r *PGRepo) ReapStale(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
UPDATE raw_resumes
SET status = $1, error_message = $2, version = version + 1, updated_at = now()
WHERE status = $3 AND updated_at < $4`
	res, err := r.DB.ExecContext(ctx, query, StatusFailed, "processing timed out", StatusProcessing, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRaw(row rowScanner) (RawResume, error) {
	var raw RawResume
	var errMsg sql.NullString
	var storageKey sql.NullString
	err := row.Scan(
		&raw.ID,
		&raw.Filename,
		&raw.UploadedAt,
		&raw.Status,
		&raw.RawText,
		&errMsg,
		&raw.Version,
		&storageKey,
		&raw.CreatedAt,
		&raw.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return RawResume{}, ErrNotFound
	}
	if err != nil {
		return RawResume{}, err
	}
	raw.Error = errMsg.String
	raw.StorageKey = storageKey.String
	return raw, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repo = (*PGRepo)(nil)

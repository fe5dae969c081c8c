package resumes

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func rawColumns() []string {
	return []string{"id", "filename", "uploaded_at", "status", "raw_text", "error_message", "version", "storage_key", "created_at", "updated_at"}
}

func rawRow(id, status string, version int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(rawColumns()).
		AddRow(id, "resume.pdf", now, status, "text", nil, version, nil, now, now)
}

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGClaimProcessingSucceeds(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE raw_resumes").
		WithArgs(StatusProcessing, "r1", int64(1), StatusPending, StatusFailed).
		WillReturnRows(rawRow("r1", StatusProcessing, 2))

	claimed, err := repo.ClaimProcessing(context.Background(), "r1", 1)
	if err != nil {
		t.Fatalf("ClaimProcessing: %v", err)
	}
	if claimed.Status != StatusProcessing || claimed.Version != 2 {
		t.Fatalf("claimed = %+v", claimed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGClaimProcessingConflictWhenRecordExists(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE raw_resumes").
		WithArgs(StatusProcessing, "r1", int64(1), StatusPending, StatusFailed).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM raw_resumes").
		WithArgs("r1").
		WillReturnRows(rawRow("r1", StatusProcessing, 2))

	_, err := repo.ClaimProcessing(context.Background(), "r1", 1)
	if !errors.Is(err, ErrClaimConflict) {
		t.Fatalf("err = %v, want ErrClaimConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGClaimProcessingNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE raw_resumes").
		WithArgs(StatusProcessing, "missing", int64(1), StatusPending, StatusFailed).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM raw_resumes").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.ClaimProcessing(context.Background(), "missing", 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGPutProcessedUpserts(t *testing.T) {
	repo, mock := newMockRepo(t)

	processed := ProcessedResume{
		ID:         "r1",
		Filename:   "resume.pdf",
		UploadedAt: time.Now().UTC(),
		Status:     StatusCompleted,
		Data:       ResumeData{Summary: "summary"},
	}

	mock.ExpectExec("INSERT INTO processed_resumes").
		WithArgs(processed.ID, processed.Filename, processed.UploadedAt, processed.Status, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.PutProcessed(context.Background(), processed); err != nil {
		t.Fatalf("PutProcessed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGGetProcessedRoundTripsData(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	payload := []byte(`{"summary": "text", "skillsKeywords": ["go"]}`)
	mock.ExpectQuery("SELECT (.+) FROM processed_resumes").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "filename", "uploaded_at", "status", "data"}).
			AddRow("r1", "resume.pdf", now, StatusCompleted, payload))

	got, err := repo.GetProcessed(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetProcessed: %v", err)
	}
	if got.Data.Summary != "text" || len(got.Data.SkillsKeywords) != 1 {
		t.Fatalf("data = %+v", got.Data)
	}
}

func TestPGMarkFailedNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE raw_resumes").
		WithArgs(StatusFailed, "boom", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkFailed(context.Background(), "missing", "boom"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGReapStaleCountsRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	cutoff := time.Now().UTC().Add(-30 * time.Minute)
	mock.ExpectExec("UPDATE raw_resumes").
		WithArgs(StatusFailed, "processing timed out", StatusProcessing, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	reaped, err := repo.ReapStale(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ReapStale: %v", err)
	}
	if reaped != 2 {
		t.Fatalf("reaped = %d, want 2", reaped)
	}
}

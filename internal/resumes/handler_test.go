package resumes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resume-processor/internal/shared/storage/object/local"
)

func newTestRouter(t *testing.T) (*gin.Engine, *MemoryRepo, *recordingTrigger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewMemoryRepo()
	trigger := &recordingTrigger{}
	svc := NewService(repo, local.New(t.TempDir()), trigger.fire)
	handler := NewHandler(svc)

	r := gin.New()
	api := r.Group("/api/v1")
	handler.RegisterRoutes(api)
	return r, repo, trigger
}

func multipartBody(t *testing.T, fileName, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + fileName + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestUploadEndpointCreatesPendingRecord(t *testing.T) {
	r, repo, trigger := newTestRouter(t)

	body, contentType := multipartBody(t, "resume.txt", "text/plain", []byte("Jane Doe, engineer"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != StatusPending {
		t.Fatalf("status = %q, want pending", resp.Status)
	}
	if _, err := repo.GetRaw(context.Background(), resp.ID); err != nil {
		t.Fatalf("record missing: %v", err)
	}
	if trigger.count() != 1 {
		t.Fatalf("trigger fired %d times, want 1", trigger.count())
	}
}

func TestUploadEndpointRejectsMissingFile(t *testing.T) {
	r, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes/upload", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUploadEndpointRejectsUnsupportedType(t *testing.T) {
	r, _, _ := newTestRouter(t)

	body, contentType := multipartBody(t, "resume.bin", "application/x-unknown", []byte{0x01})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415; body = %s", w.Code, w.Body.String())
	}
}

func TestListEndpointFiltersByStatus(t *testing.T) {
	r, repo, _ := newTestRouter(t)

	for id, status := range map[string]string{"a": StatusPending, "b": StatusCompleted} {
		raw := RawResume{ID: id, Status: status, Version: 1, UploadedAt: time.Now().UTC()}
		if err := repo.CreateRaw(context.Background(), raw); err != nil {
			t.Fatalf("CreateRaw: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resumes?status=completed", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var items []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 1 || items[0]["id"] != "b" {
		t.Fatalf("items = %v", items)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/resumes?status=bogus", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetEndpointIncludesProcessedData(t *testing.T) {
	r, repo, _ := newTestRouter(t)

	raw := RawResume{ID: "r1", Status: StatusCompleted, Version: 3, UploadedAt: time.Now().UTC()}
	if err := repo.CreateRaw(context.Background(), raw); err != nil {
		t.Fatalf("CreateRaw: %v", err)
	}
	if err := repo.PutProcessed(context.Background(), ProcessedResume{
		ID: "r1", Status: StatusCompleted,
		Data: ResumeData{Summary: "summary", SanitizedSummary: "[NAME] summary"},
	}); err != nil {
		t.Fatalf("PutProcessed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resumes/r1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Status string `json:"status"`
		Data   *struct {
			Summary string `json:"summary"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Data == nil || resp.Data.Summary != "summary" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestGetEndpointNotFound(t *testing.T) {
	r, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resumes/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestProcessEndpointAcceptsAndConflicts(t *testing.T) {
	r, repo, trigger := newTestRouter(t)

	raw := RawResume{ID: "r1", Status: StatusPending, Version: 1, UploadedAt: time.Now().UTC()}
	if err := repo.CreateRaw(context.Background(), raw); err != nil {
		t.Fatalf("CreateRaw: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes/r1/process", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if trigger.count() != 1 {
		t.Fatalf("trigger fired %d times, want 1", trigger.count())
	}

	if _, err := repo.ClaimProcessing(context.Background(), "r1", 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/resumes/r1/process", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestDeleteEndpoint(t *testing.T) {
	r, repo, _ := newTestRouter(t)

	raw := RawResume{ID: "r1", Status: StatusCompleted, Version: 3, UploadedAt: time.Now().UTC()}
	if err := repo.CreateRaw(context.Background(), raw); err != nil {
		t.Fatalf("CreateRaw: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/resumes/r1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/resumes/r1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

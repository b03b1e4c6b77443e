package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/athlos/athlos/internal/platform/apperror"
	"github.com/athlos/athlos/internal/platform/auth"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func seedBlob(t *testing.T, store BlobStore, ownerID, category, fileName, contentType, content string) *BlobMetadata {
	t.Helper()
	meta := BlobMetadata{
		FileName:    fileName,
		ContentType: contentType,
		OwnerID:     ownerID,
		Category:    category,
		CreatedBy:   ownerID,
	}
	result, err := store.Upload(context.Background(), meta, strings.NewReader(content))
	if err != nil {
		t.Fatalf("seedBlob: %v", err)
	}
	return result
}

// ---------------------------------------------------------------------------
// Store tests
// ---------------------------------------------------------------------------

func TestInMemoryBlobStore_Upload(t *testing.T) {
	store := NewInMemoryBlobStore()
	content := "hello world"

	meta := BlobMetadata{
		FileName:    "test.txt",
		ContentType: "text/plain",
		OwnerID:     "athlete-1",
		Category:    "other",
		CreatedBy:   "athlete-1",
	}

	result, err := store.Upload(context.Background(), meta, strings.NewReader(content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ID == "" {
		t.Fatal("expected non-empty ID")
	}
	if result.FileName != "test.txt" {
		t.Errorf("expected FileName=test.txt, got %s", result.FileName)
	}
	if result.Size != int64(len(content)) {
		t.Errorf("expected Size=%d, got %d", len(content), result.Size)
	}
	if result.Hash == "" {
		t.Fatal("expected non-empty Hash")
	}
	if result.CreatedAt.IsZero() {
		t.Fatal("expected non-zero CreatedAt")
	}
	if result.OwnerID != "athlete-1" {
		t.Errorf("expected OwnerID=athlete-1, got %s", result.OwnerID)
	}
}

func TestInMemoryBlobStore_Download(t *testing.T) {
	store := NewInMemoryBlobStore()
	content := "binary-content-here"

	uploaded := seedBlob(t, store, "a1", "injury-image", "knee.jpeg", "image/jpeg", content)

	rc, meta, err := store.Download(context.Background(), uploaded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("error reading content: %v", err)
	}

	if string(data) != content {
		t.Errorf("expected content=%q, got %q", content, string(data))
	}
	if meta.FileName != "knee.jpeg" {
		t.Errorf("expected FileName=knee.jpeg, got %s", meta.FileName)
	}
}

func TestInMemoryBlobStore_DownloadNotFound(t *testing.T) {
	store := NewInMemoryBlobStore()

	_, _, err := store.Download(context.Background(), "nonexistent-id")
	if err != ErrBlobNotFound {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestInMemoryBlobStore_Delete(t *testing.T) {
	store := NewInMemoryBlobStore()
	uploaded := seedBlob(t, store, "a1", "other", "file.txt", "text/plain", "data")

	if err := store.Delete(context.Background(), uploaded.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify it's gone.
	_, _, err := store.Download(context.Background(), uploaded.ID)
	if err != ErrBlobNotFound {
		t.Errorf("expected ErrBlobNotFound after delete, got %v", err)
	}
}

func TestInMemoryBlobStore_DeleteNotFound(t *testing.T) {
	store := NewInMemoryBlobStore()

	if err := store.Delete(context.Background(), "nonexistent-id"); err != ErrBlobNotFound {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestInMemoryBlobStore_GetMetadata(t *testing.T) {
	store := NewInMemoryBlobStore()
	uploaded := seedBlob(t, store, "a1", "checkup-attachment", "scan.png", "image/png", "image-data")

	meta, err := store.GetMetadata(context.Background(), uploaded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.ID != uploaded.ID {
		t.Errorf("expected ID=%s, got %s", uploaded.ID, meta.ID)
	}
	if meta.Category != "checkup-attachment" {
		t.Errorf("expected Category=checkup-attachment, got %s", meta.Category)
	}
}

func TestInMemoryBlobStore_Upload_FileTooLarge(t *testing.T) {
	store := NewInMemoryBlobStore()
	largeContent := make([]byte, MaxFileSize+1)

	meta := BlobMetadata{
		FileName:    "huge.bin",
		ContentType: "application/pdf",
		Category:    "other",
		CreatedBy:   "user",
	}

	_, err := store.Upload(context.Background(), meta, bytes.NewReader(largeContent))
	if err != ErrFileTooLarge {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestInMemoryBlobStore_Upload_MissingFileName(t *testing.T) {
	store := NewInMemoryBlobStore()

	meta := BlobMetadata{
		ContentType: "text/plain",
		Category:    "other",
		CreatedBy:   "user",
	}

	_, err := store.Upload(context.Background(), meta, strings.NewReader("data"))
	if err != ErrMissingFileName {
		t.Errorf("expected ErrMissingFileName, got %v", err)
	}
}

func TestInMemoryBlobStore_Upload_InvalidContentType(t *testing.T) {
	store := NewInMemoryBlobStore()

	meta := BlobMetadata{
		FileName:    "payload.exe",
		ContentType: "application/x-msdownload",
		Category:    "other",
		CreatedBy:   "user",
	}

	_, err := store.Upload(context.Background(), meta, strings.NewReader("data"))
	if err != ErrInvalidContentType {
		t.Errorf("expected ErrInvalidContentType, got %v", err)
	}
}

func TestInMemoryBlobStore_SHA256Hash(t *testing.T) {
	store := NewInMemoryBlobStore()
	content := "compute-my-hash"

	uploaded := seedBlob(t, store, "a1", "other", "hash.txt", "text/plain", content)

	h := sha256.Sum256([]byte(content))
	expected := fmt.Sprintf("%x", h)

	if uploaded.Hash != expected {
		t.Errorf("expected hash=%s, got %s", expected, uploaded.Hash)
	}
}

func TestInMemoryBlobStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryBlobStore()
	var wg sync.WaitGroup
	const goroutines = 50

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(n int) {
			defer wg.Done()
			meta := BlobMetadata{
				FileName:    fmt.Sprintf("file-%d.txt", n),
				ContentType: "text/plain",
				OwnerID:     "concurrent-athlete",
				Category:    "other",
				CreatedBy:   "user",
			}
			result, err := store.Upload(context.Background(), meta, strings.NewReader(fmt.Sprintf("content-%d", n)))
			if err != nil {
				t.Errorf("upload goroutine %d: %v", n, err)
				return
			}

			rc, _, err := store.Download(context.Background(), result.ID)
			if err != nil {
				t.Errorf("download goroutine %d: %v", n, err)
				return
			}
			rc.Close()

			if _, err := store.GetMetadata(context.Background(), result.ID); err != nil {
				t.Errorf("getmetadata goroutine %d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()
}

// ---------------------------------------------------------------------------
// Handler tests
// ---------------------------------------------------------------------------

func identityMiddleware(id auth.Identity) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithIdentity(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func newTestServer(store BlobStore, id auth.Identity) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(zerolog.Nop())
	g := e.Group("/attachments", identityMiddleware(id))
	NewHandler(store).Register(g)
	return e
}

func TestHandler_Upload(t *testing.T) {
	store := NewInMemoryBlobStore()
	athleteID := uuid.New()
	e := newTestServer(store, auth.Identity{ID: athleteID, Role: auth.RoleAthlete})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("category", "injury-image")

	part, err := writer.CreateFormFile("file", "knee-swelling.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("png-bytes"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var result BlobMetadata
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("error unmarshaling response: %v", err)
	}
	if result.ID == "" {
		t.Error("expected non-empty ID in response")
	}
	if result.FileName != "knee-swelling.png" {
		t.Errorf("expected FileName=knee-swelling.png, got %s", result.FileName)
	}
	if result.OwnerID != athleteID.String() {
		t.Errorf("expected OwnerID=%s, got %s", athleteID, result.OwnerID)
	}
}

func TestHandler_Upload_UnknownCategory(t *testing.T) {
	store := NewInMemoryBlobStore()
	e := newTestServer(store, auth.Identity{ID: uuid.New(), Role: auth.RoleAthlete})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("category", "selfies")
	part, _ := writer.CreateFormFile("file", "pic.png")
	part.Write([]byte("data"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Download_Owner(t *testing.T) {
	store := NewInMemoryBlobStore()
	athleteID := uuid.New()
	e := newTestServer(store, auth.Identity{ID: athleteID, Role: auth.RoleAthlete})

	uploaded := seedBlob(t, store, athleteID.String(), "other", "download.txt", "text/plain", "download-me")

	req := httptest.NewRequest(http.MethodGet, "/attachments/"+uploaded.ID, nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "download-me" {
		t.Errorf("expected body=download-me, got %s", rec.Body.String())
	}
}

func TestHandler_Download_OtherAthleteForbidden(t *testing.T) {
	store := NewInMemoryBlobStore()
	e := newTestServer(store, auth.Identity{ID: uuid.New(), Role: auth.RoleAthlete})

	uploaded := seedBlob(t, store, uuid.New().String(), "other", "private.txt", "text/plain", "secret")

	req := httptest.NewRequest(http.MethodGet, "/attachments/"+uploaded.ID, nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Download_DoctorAllowed(t *testing.T) {
	store := NewInMemoryBlobStore()
	e := newTestServer(store, auth.Identity{ID: uuid.New(), Role: auth.RoleDoctor})

	uploaded := seedBlob(t, store, uuid.New().String(), "injury-image", "xray.png", "image/png", "xray-data")

	req := httptest.NewRequest(http.MethodGet, "/attachments/"+uploaded.ID, nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_GetMetadata(t *testing.T) {
	store := NewInMemoryBlobStore()
	athleteID := uuid.New()
	e := newTestServer(store, auth.Identity{ID: athleteID, Role: auth.RoleAthlete})

	uploaded := seedBlob(t, store, athleteID.String(), "injury-image", "xray.png", "image/png", "xray-data")

	req := httptest.NewRequest(http.MethodGet, "/attachments/"+uploaded.ID+"/metadata", nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result BlobMetadata
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("error unmarshaling: %v", err)
	}
	if result.ID != uploaded.ID {
		t.Errorf("expected ID=%s, got %s", uploaded.ID, result.ID)
	}
	if result.Category != "injury-image" {
		t.Errorf("expected Category=injury-image, got %s", result.Category)
	}
}

func TestHandler_Delete_Owner(t *testing.T) {
	store := NewInMemoryBlobStore()
	athleteID := uuid.New()
	e := newTestServer(store, auth.Identity{ID: athleteID, Role: auth.RoleAthlete})

	uploaded := seedBlob(t, store, athleteID.String(), "other", "delete-me.txt", "text/plain", "bye")

	req := httptest.NewRequest(http.MethodDelete, "/attachments/"+uploaded.ID, nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Delete_NonOwnerForbidden(t *testing.T) {
	store := NewInMemoryBlobStore()
	e := newTestServer(store, auth.Identity{ID: uuid.New(), Role: auth.RoleDoctor})

	uploaded := seedBlob(t, store, uuid.New().String(), "other", "keep.txt", "text/plain", "mine")

	req := httptest.NewRequest(http.MethodDelete, "/attachments/"+uploaded.ID, nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Download_NotFound(t *testing.T) {
	store := NewInMemoryBlobStore()
	e := newTestServer(store, auth.Identity{ID: uuid.New(), Role: auth.RoleAdmin})

	req := httptest.NewRequest(http.MethodGet, "/attachments/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

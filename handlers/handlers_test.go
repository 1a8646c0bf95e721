package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"photo-annotation-pipeline/config"
	"photo-annotation-pipeline/database"
	"photo-annotation-pipeline/service"
)

func setupRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	wrapped := database.NewWithDB(db)
	cfg := &config.Config{
		UploadPath:       t.TempDir(),
		CaptionProvider:  config.ProviderStub,
		DetectorProvider: config.ProviderStub,
		AnnotateInterval: time.Minute,
		CaptionMaxLength: 500,
	}
	svc := service.NewService(cfg, wrapped)
	h := NewHandlers(wrapped, svc)

	router := gin.New()
	api := router.Group("/api/v1")
	api.GET("/health", h.HealthCheck)
	api.GET("/status", h.GetAnnotationStatus)
	api.GET("/annotations/:id", h.GetAnnotationByPhoto)
	api.GET("/photos/search", h.SearchPhotos)

	return router, mock
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", body["status"])
	}
	if body["caption_available"] != true || body["detection_available"] != true {
		t.Errorf("expected both capabilities available, got %v", body)
	}
}

func TestGetAnnotationStatus(t *testing.T) {
	router, mock := setupRouter(t)

	mock.ExpectQuery("SELECT MAX").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(17))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["last_annotated_id"] != float64(17) {
		t.Errorf("expected last_annotated_id 17, got %v", body["last_annotated_id"])
	}
	if body["pending_photos"] != float64(3) {
		t.Errorf("expected pending_photos 3, got %v", body["pending_photos"])
	}
}

func TestGetAnnotationByPhoto(t *testing.T) {
	router, mock := setupRouter(t)

	rows := sqlmock.NewRows([]string{"photo_id", "caption_source", "detector_source", "alt_text", "detected_objects", "created_at"}).
		AddRow(5, "Ollama", "Azure", "a cat on a sofa", `[{"name":"cat","confidence":0.91}]`, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	mock.ExpectQuery("SELECT photo_id, caption_source").
		WithArgs(5).
		WillReturnRows(rows)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/annotations/5", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["alt_text"] != "a cat on a sofa" {
		t.Errorf("unexpected alt_text: %v", body["alt_text"])
	}
}

func TestGetAnnotationByPhotoNotFound(t *testing.T) {
	router, mock := setupRouter(t)

	mock.ExpectQuery("SELECT photo_id, caption_source").
		WithArgs(999).
		WillReturnRows(sqlmock.NewRows([]string{"photo_id"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/annotations/999", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestGetAnnotationByPhotoInvalidID(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/annotations/abc", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestSearchPhotosRequiresQuery(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/photos/search", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestSearchPhotos(t *testing.T) {
	router, mock := setupRouter(t)

	rows := sqlmock.NewRows([]string{"id", "author_id", "filename", "description", "alt_text", "detected_objects", "created_at"}).
		AddRow(5, 1, "cat.jpg", nil, "a cat on a sofa", `[{"name":"cat","confidence":0.91}]`, time.Now())
	mock.ExpectQuery("MATCH").
		WithArgs("cat", 50).
		WillReturnRows(rows)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/photos/search?q=cat", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["count"] != float64(1) {
		t.Errorf("expected 1 result, got %v", body["count"])
	}
}

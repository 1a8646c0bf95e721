package azure

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-annotation-pipeline/vision"
)

func TestDetectObjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vision/v3.2/detect", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"objects": [
				{"rectangle": {"x": 10, "y": 20, "w": 100, "h": 50}, "object": "cat", "confidence": 0.912},
				{"rectangle": {"x": 0, "y": 0, "w": 640, "h": 480}, "object": "sofa", "confidence": 0.514},
				{"rectangle": {"x": 5, "y": 5, "w": 10, "h": 10}, "object": "", "confidence": 0.9}
			],
			"requestId": "abc123"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	detections, err := client.DetectObjects([]byte("fake-jpeg-bytes"))
	require.NoError(t, err)

	assert.Equal(t, []vision.Detection{
		{Name: "cat", Confidence: 0.912},
		{Name: "sofa", Confidence: 0.514},
	}, detections)
}

func TestDetectObjectsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"401","message":"Access denied"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key")
	_, err := client.DetectObjects([]byte("fake"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestCaption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vision/v3.2/describe", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("maxCandidates"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"description": {
				"tags": ["cat", "indoor", "sofa"],
				"captions": [{"text": "a cat sitting on a sofa ", "confidence": 0.84}]
			},
			"requestId": "def456"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	caption, err := client.Caption([]byte("fake-jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "a cat sitting on a sofa", caption)
}

func TestCaptionNoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"description": {"tags": [], "captions": []}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.Caption([]byte("fake"))
	require.Error(t, err)
}

func TestEndpointTrailingSlash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vision/v3.2/detect", r.URL.Path)
		w.Write([]byte(`{"objects": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "test-key")
	detections, err := client.DetectObjects([]byte("fake"))
	require.NoError(t, err)
	assert.Empty(t, detections)
}

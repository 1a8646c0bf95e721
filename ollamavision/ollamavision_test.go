package ollamavision

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-annotation-pipeline/vision"
)

// chatServer fakes the Ollama /api/chat endpoint with a fixed answer.
func chatServer(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		messages, ok := req["messages"].([]any)
		require.True(t, ok)
		require.NotEmpty(t, messages)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model": req["model"],
			"message": map[string]any{
				"role":    "assistant",
				"content": answer,
			},
			"done": true,
		})
	}))
}

func TestCaption(t *testing.T) {
	server := chatServer(t, " A tabby cat sleeping on a striped sofa. ")
	defer server.Close()

	client, err := NewClient(server.URL, "llava")
	require.NoError(t, err)

	caption, err := client.Caption([]byte("fake-image"))
	require.NoError(t, err)
	assert.Equal(t, "A tabby cat sleeping on a striped sofa.", caption)
}

func TestCaptionEmptyAnswer(t *testing.T) {
	server := chatServer(t, "   ")
	defer server.Close()

	client, err := NewClient(server.URL, "llava")
	require.NoError(t, err)

	_, err = client.Caption([]byte("fake-image"))
	require.Error(t, err)
}

func TestDetectObjects(t *testing.T) {
	server := chatServer(t, "```json\n[{\"name\":\"cat\",\"confidence\":0.9},{\"name\":\"sofa\",\"confidence\":0.6}]\n```")
	defer server.Close()

	client, err := NewClient(server.URL, "llava")
	require.NoError(t, err)

	detections, err := client.DetectObjects([]byte("fake-image"))
	require.NoError(t, err)
	assert.Equal(t, []vision.Detection{
		{Name: "cat", Confidence: 0.9},
		{Name: "sofa", Confidence: 0.6},
	}, detections)
}

func TestDetectObjectsUnparseableAnswer(t *testing.T) {
	server := chatServer(t, "I see a cat and a sofa.")
	defer server.Close()

	client, err := NewClient(server.URL, "llava")
	require.NoError(t, err)

	_, err = client.DetectObjects([]byte("fake-image"))
	require.Error(t, err)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("://not-a-url", "llava")
	require.Error(t, err)
}

package detector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompletionServer serves an OpenAI-compatible chat completion endpoint
// returning the given message content.
func fakeCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"model":   req.Model,
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]string{
					"role":    "assistant",
					"content": content,
				},
			}},
		})
	}))
}

func TestLLMDetectorDetect(t *testing.T) {
	srv := fakeCompletionServer(t,
		`[{"label":"PERSON","text":"Jane Doe","score":0.9},{"label":"LOCATION","text":"Berlin","score":0.8}]`)
	defer srv.Close()

	d := NewLLMDetector(srv.URL, "", "test-model")
	detections, err := d.Detect(context.Background(), "Jane Doe lives in Berlin")
	require.NoError(t, err)

	require.Len(t, detections, 2)
	assert.Equal(t, Detection{Label: "PERSON", Start: 0, End: 8, Score: 0.9}, detections[0])
	assert.Equal(t, Detection{Label: "LOCATION", Start: 18, End: 24, Score: 0.8}, detections[1])
}

func TestLLMDetectorFencedResponse(t *testing.T) {
	srv := fakeCompletionServer(t,
		"```json\n[{\"label\":\"PERSON\",\"text\":\"Jane Doe\",\"score\":0.9}]\n```")
	defer srv.Close()

	d := NewLLMDetector(srv.URL, "", "test-model")
	detections, err := d.Detect(context.Background(), "Jane Doe wrote in.")
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.Equal(t, "PERSON", detections[0].Label)
}

func TestLLMDetectorUnreachableEndpoint(t *testing.T) {
	srv := fakeCompletionServer(t, "[]")
	srv.Close() // immediately: connection refused

	d := NewLLMDetector(srv.URL, "", "test-model")
	_, err := d.Detect(context.Background(), "text")
	assert.Error(t, err)
}

package openaiapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSendsTaskCall(t *testing.T) {
	const envKey = "STAGEHAND_OPENAI_TEST_KEY"
	t.Setenv(envKey, "test-api-key")

	var gotAuth, gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"error": {"code": "", "message": ""},
			"output": [
				{
					"type": "message",
					"role": "assistant",
					"content": [
						{"type": "output_text", "text": "{\"success\":true}", "annotations": []}
					]
				}
			]
		}`))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		Model:     "gpt-5",
		BaseURL:   srv.URL,
		APIKeyEnv: envKey,
	}, srv.Client())
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), TaskCall{
		Prompt:       "You are a cost analyst.\n",
		OutputSchema: `{"type":"object","required":["success"]}`,
		ContextJSON:  `{"task":"inventory"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"success":true}`, out.OutputText)

	assert.Equal(t, "Bearer test-api-key", gotAuth)
	assert.Equal(t, "/responses", gotPath)
	assert.Equal(t, "gpt-5", gotBody["model"])
	assert.Equal(t, `{"task":"inventory"}`, gotBody["input"])
	assert.Contains(t, gotBody["instructions"], "cost analyst")
	assert.Contains(t, gotBody["instructions"], `"required":["success"]`)
}

func TestNewClientRequiresModelAndKey(t *testing.T) {
	const envKey = "STAGEHAND_OPENAI_MISSING_KEY"
	require.NoError(t, os.Unsetenv(envKey))

	_, err := NewClient(Config{BaseURL: "http://127.0.0.1", APIKey: "k"}, nil)
	require.Error(t, err)

	_, err = NewClient(Config{
		Model:     "gpt-5",
		BaseURL:   "http://127.0.0.1",
		APIKeyEnv: envKey,
	}, nil)
	require.Error(t, err)
}

func TestCompleteErrorsWithoutOutputText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"error": {"code": "", "message": ""},
			"output": []
		}`))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		Model:   "gpt-5",
		BaseURL: srv.URL,
		APIKey:  "test-api-key",
	}, srv.Client())
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), TaskCall{Prompt: "p", ContextJSON: "{}"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output text")
}

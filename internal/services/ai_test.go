package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flash-quiz/internal/models"
)

// newChatServer fakes the chat completions endpoint, replying with content
// (or status when it is not 200) and capturing the decoded request.
func newChatServer(t *testing.T, status int, content string, captured *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []map[string]any{},
		}
		if content != "" {
			resp["choices"] = []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCallModel(t *testing.T) {
	var captured openai.ChatCompletionRequest
	srv := newChatServer(t, http.StatusOK, "Q1: What is X?\nA1: Y", &captured)

	ai := NewAIService("test-key", "test-model", srv.URL+"/v1")
	require.True(t, ai.Available())

	raw, err := ai.CallModel(context.Background(), "make questions")
	require.NoError(t, err)
	assert.Equal(t, "Q1: What is X?\nA1: Y", raw)

	assert.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, captured.Messages[0].Role)
	assert.Equal(t, "make questions", captured.Messages[1].Content)
	assert.Equal(t, 2000, captured.MaxTokens)
}

func TestCallModelProviderErrors(t *testing.T) {
	t.Run("non-success status", func(t *testing.T) {
		srv := newChatServer(t, http.StatusInternalServerError, "", nil)
		ai := NewAIService("test-key", "test-model", srv.URL+"/v1")
		_, err := ai.CallModel(context.Background(), "prompt")
		assert.ErrorIs(t, err, ErrProviderError)
	})

	t.Run("no choices", func(t *testing.T) {
		srv := newChatServer(t, http.StatusOK, "", nil)
		ai := NewAIService("test-key", "test-model", srv.URL+"/v1")
		_, err := ai.CallModel(context.Background(), "prompt")
		assert.ErrorIs(t, err, ErrProviderError)
	})

	t.Run("missing credentials", func(t *testing.T) {
		ai := NewAIService("", "test-model", "")
		assert.False(t, ai.Available())
		_, err := ai.CallModel(context.Background(), "prompt")
		assert.ErrorIs(t, err, ErrAIUnavailable)
	})
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("Cells divide.", 5, models.DifficultyHard, []string{models.TypeTrueFalse, "matching"})
	assert.Contains(t, prompt, "generate 5 hard difficulty questions that test analysis, synthesis, and evaluation.")
	assert.Contains(t, prompt, "Question types to include: true/false questions, matching")
	assert.Contains(t, prompt, "Content:\nCells divide.\n")
	assert.Contains(t, prompt, "Q1: [Question text]\nA1: [Answer]\nE1: [Brief explanation if helpful]")
	assert.Contains(t, prompt, "- Appropriate for hard difficulty level")

	long := strings.Repeat("a", maxPromptContent+50)
	prompt = BuildPrompt(long, 1, models.DifficultyEasy, models.DefaultQuestionTypes())
	assert.Contains(t, prompt, strings.Repeat("a", maxPromptContent)+"...\n")
	assert.NotContains(t, prompt, strings.Repeat("a", maxPromptContent+1))
}

package tagging

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/ph-ai-tracker/internal/models"
)

func chatReply(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q}}]}`, content)
}

func taggingProduct(t *testing.T) models.Product {
	t.Helper()
	p, err := models.NewProduct("Cursor", models.WithTagline("The AI code editor"))
	require.NoError(t, err)
	return p
}

func TestNoOpReturnsNothing(t *testing.T) {
	assert.Nil(t, NoOp{}.Categorize(context.Background(), taggingProduct(t)))
}

func TestFromConfig(t *testing.T) {
	assert.IsType(t, NoOp{}, FromConfig("", LLMOptions{}))
	assert.IsType(t, NoOp{}, FromConfig("   ", LLMOptions{}))
	assert.IsType(t, &LLMService{}, FromConfig("sk-test", LLMOptions{}))
}

func TestCategorize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		fmt.Fprint(w, chatReply(`{"tags": ["Coding", "AI", "coding"]}`))
	}))
	defer server.Close()

	s := NewLLMService("sk-test", LLMOptions{BaseURL: server.URL})
	tags := s.Categorize(context.Background(), taggingProduct(t))
	assert.Equal(t, []string{"coding", "ai"}, tags, "tags are lowercased and deduplicated")
}

func TestCategorizeNeverErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"non-JSON body", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>oops</html>")
		}},
		{"model returned prose", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatReply("Sure! Here are some tags: coding, ai"))
		}},
		{"extra keys in the object", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatReply(`{"tags": ["coding"], "confidence": 0.9}`))
		}},
		{"tags is not an array", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatReply(`{"tags": "coding"}`))
		}},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices": []}`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			s := NewLLMService("sk-test", LLMOptions{BaseURL: server.URL})
			assert.Nil(t, s.Categorize(context.Background(), taggingProduct(t)))
		})
	}
}

func TestCleanTags(t *testing.T) {
	got := cleanTags([]string{
		" Coding ",
		"AI",
		"ai",
		"",
		"a-tag-that-is-way-too-long-to-keep",
	})
	assert.Equal(t, []string{"coding", "ai"}, got)

	assert.Nil(t, cleanTags(nil))
	assert.Nil(t, cleanTags([]string{"", "  "}))
}

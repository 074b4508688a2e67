package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-studio/artwork-pipeline/internal/domain/vision"
)

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "bare object",
			in:   `{"title":"x"}`,
			want: `{"title":"x"}`,
			ok:   true,
		},
		{
			name: "chatter around the object",
			in:   "Sure! Here is the analysis:\n{\"title\":\"x\"}\nHope that helps.",
			want: `{"title":"x"}`,
			ok:   true,
		},
		{
			name: "nested objects",
			in:   `prefix {"a":{"b":1},"c":2} suffix`,
			want: `{"a":{"b":1},"c":2}`,
			ok:   true,
		},
		{
			name: "braces inside string literals",
			in:   `{"title":"curly } brace { soup","n":1}`,
			want: `{"title":"curly } brace { soup","n":1}`,
			ok:   true,
		},
		{
			name: "escaped quote inside string",
			in:   `{"title":"she said \"}\"","n":1}`,
			want: `{"title":"she said \"}\"","n":1}`,
			ok:   true,
		},
		{
			name: "no object at all",
			in:   "cannot analyze this image",
			ok:   false,
		},
		{
			name: "unbalanced",
			in:   `{"title":"x"`,
			ok:   false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractJSONObject(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestParseResultStampsAnalyzedAt(t *testing.T) {
	res, err := parseResult(`Here you go: {"title":"Mountain Logo","keywords":["mountain"],"quality_score":"good"}`)
	require.NoError(t, err)
	assert.Equal(t, "Mountain Logo", res.Title)
	assert.Equal(t, []string{"mountain"}, res.Keywords)
	assert.False(t, res.AnalyzedAt.IsZero())
	assert.WithinDuration(t, time.Now(), res.AnalyzedAt, time.Minute)
}

func TestParseResultRejectsGarbage(t *testing.T) {
	_, err := parseResult("no json here")
	assert.ErrorIs(t, err, vision.ErrNoResult)

	_, err = parseResult(`{"keywords":"not-an-array"}`)
	assert.ErrorIs(t, err, vision.ErrNoResult)
}

func TestAnalyzeDisabledWithoutKey(t *testing.T) {
	c := NewClient("", "", "", time.Second)

	res, err := c.Analyze(context.Background(), "http://example.com/a.png")
	require.NoError(t, err)
	assert.Nil(t, res, "no key means analysis is a no-op, not an error")
}

func TestAnalyzeSkipsNonImageURL(t *testing.T) {
	c := NewClient("test-key", "", "", time.Second)

	res, err := c.Analyze(context.Background(), "http://example.com/brief.pdf")
	require.NoError(t, err)
	assert.Nil(t, res)
}

// fakeCompletion spins an image host plus a chat-completions endpoint and
// returns a client wired to both.
func fakeCompletion(t *testing.T, handler http.HandlerFunc) (*Client, string) {
	t.Helper()
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG fake bytes"))
	}))
	t.Cleanup(images.Close)

	api := httptest.NewServer(handler)
	t.Cleanup(api.Close)

	c := NewClient("test-key", "gpt-4o-mini", api.URL+"/v1", 5*time.Second)
	return c, images.URL + "/art.png"
}

func TestAnalyzeRoundTrip(t *testing.T) {
	c, imageURL := fakeCompletion(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			assert.Equal(t, "gpt-4o-mini", req["model"])
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"choices": [{"message": {"role": "assistant",
				"content": "{\"title\":\"Neon Cat\",\"category\":\"illustration\",\"keywords\":[\"cat\",\"neon\"],\"quality_score\":\"excellent\"}"}}]
		}`)
	})

	res, err := c.Analyze(context.Background(), imageURL)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Neon Cat", res.Title)
	assert.Equal(t, "illustration", res.Category)
	assert.False(t, res.AnalyzedAt.IsZero())
}

func TestAnalyzeMapsRateLimitToQuotaError(t *testing.T) {
	c, imageURL := fakeCompletion(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limit reached", "type": "requests"}}`)
	})

	_, err := c.Analyze(context.Background(), imageURL)
	assert.ErrorIs(t, err, vision.ErrQuotaExceeded)
}

func TestAnalyzeNoChoices(t *testing.T) {
	c, imageURL := fakeCompletion(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices": []}`)
	})

	_, err := c.Analyze(context.Background(), imageURL)
	assert.ErrorIs(t, err, vision.ErrNoResult)
}

func TestAnalyzeImageFetchFailure(t *testing.T) {
	c, _ := fakeCompletion(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("completion endpoint must not be reached when the image fetch fails")
	})
	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer missing.Close()

	_, err := c.Analyze(context.Background(), missing.URL+"/gone.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch image")
}

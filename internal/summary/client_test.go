package summary

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL
	return NewClient(cfg)
}

func TestSummarizeSendsPromptAndSettings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-1.5-flash:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "the prompt" {
			t.Errorf("contents = %+v", req.Contents)
		}
		if req.GenerationConfig.TopK != 40 || req.GenerationConfig.MaxOutputTokens != 150 {
			t.Errorf("generation config = %+v", req.GenerationConfig)
		}

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"**Good morning** from _Paris_.\nIt is `+"`"+`18 degrees`+"`"+`.\n"}]},"finishReason":"STOP"}]}`))
	})

	got, err := c.Summarize(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "Good morning from Paris. It is 18 degrees."; got != want {
		t.Fatalf("summary = %q, want %q", got, want)
	}
}

func TestSummarizeFallbackWhenBlocked(t *testing.T) {
	tests := map[string]string{
		"no candidates":  `{"promptFeedback":{"blockReason":"SAFETY"}}`,
		"safety finish":  `{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`,
		"empty response": `{}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})

			got, err := c.Summarize(context.Background(), "prompt")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != FallbackSummary {
				t.Fatalf("summary = %q, want fallback", got)
			}
		})
	}
}

func TestSummarizeUnavailable(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"error envelope": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		},
		"empty text": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  "}]},"finishReason":"MAX_TOKENS"}]}`))
		},
	}

	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, handler)
			if _, err := c.Summarize(context.Background(), "prompt"); !errors.Is(err, ErrUnavailable) {
				t.Fatalf("error = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestSummarizeWithoutKey(t *testing.T) {
	c := NewClient(DefaultConfig())
	if _, err := c.Summarize(context.Background(), "prompt"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"plain text":                 "plain text",
		"*bold* and __under__":       "bold and under",
		"line one\nline two\r\nend":  "line one line two end",
		"  padded   `code`  spaces ": "padded code spaces",
	}
	for in, want := range tests {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

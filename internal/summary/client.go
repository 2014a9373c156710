package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"

	"github.com/i474232898/weather-voice/internal/common"
)

// FallbackSummary is returned when the generator withholds its output.
const FallbackSummary = "The weather summary could not be generated due to content restrictions."

var (
	// ErrUnavailable marks any generator failure other than a content block.
	ErrUnavailable = errors.New("failed to generate summary from AI service")
	// ErrNotConfigured is returned when no generator API key is set.
	ErrNotConfigured = errors.New("summarization api key is not configured")
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Config describes the generator endpoint and sampling settings.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float64
	TopK            int
	MaxOutputTokens int
	MaxRetries      int
	Timeout         time.Duration
}

// DefaultConfig favours short, repeatable output.
func DefaultConfig() Config {
	return Config{
		BaseURL:         defaultBaseURL,
		Model:           "gemini-1.5-flash",
		Temperature:     0.4,
		TopK:            40,
		MaxOutputTokens: 150,
		Timeout:         15 * time.Second,
	}
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	cfg  Config
	http *retryablehttp.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}

	return &Client{cfg: cfg, http: rc}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Summarize sends prompt to the generator and returns sanitized text.
// An answer withheld by content filtering yields FallbackSummary without error.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     c.cfg.Temperature,
			TopK:            c.cfg.TopK,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	req, err := retryablehttp.NewRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	var result generateResponse
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || (decodeErr == nil && result.Error != nil) {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && result.Error != nil {
			msg = result.Error.Message
		}
		log.WithFields(log.Fields{"status": resp.StatusCode, "error": msg}).Error("generator request failed")
		return "", fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, decodeErr)
	}

	if len(result.Candidates) == 0 {
		reason := ""
		if result.PromptFeedback != nil {
			reason = result.PromptFeedback.BlockReason
		}
		log.WithFields(log.Fields{"blockReason": reason}).Warn("generator returned no candidates")
		return FallbackSummary, nil
	}

	cand := result.Candidates[0]
	var text strings.Builder
	for _, p := range cand.Content.Parts {
		text.WriteString(p.Text)
	}

	if strings.TrimSpace(text.String()) == "" {
		if common.HasAny(cand.FinishReason, "SAFETY", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII", "RECITATION") {
			log.WithFields(log.Fields{"finishReason": cand.FinishReason}).Warn("generator withheld candidate")
			return FallbackSummary, nil
		}
		return "", fmt.Errorf("%w: empty candidate (finish reason %q)", ErrUnavailable, cand.FinishReason)
	}

	return Sanitize(text.String()), nil
}

var emphasis = strings.NewReplacer("*", "", "_", "", "`", "")

// Sanitize strips markdown emphasis and folds the text onto one line.
func Sanitize(s string) string {
	return strings.Join(strings.Fields(emphasis.Replace(s)), " ")
}

package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
	"github.com/inkwell-studio/artwork-pipeline/internal/domain/vision"
	"github.com/inkwell-studio/artwork-pipeline/internal/infra/vision/prompt"
)

const maxTokens = 2048

// maxImageBytes caps how much we inline into a single request.
const maxImageBytes = 20 << 20

type Client struct {
	api		*openai.Client
	model	string
	timeout time.Duration
	fetch	*http.Client
	enabled bool
}

// NewClient builds the vision client. An empty apiKey disables analysis:
// Analyze becomes a no-op so uploads keep working without a credential.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	c := &Client{
		model:	 model,
		timeout: timeout,
		fetch:	 &http.Client{Timeout: timeout},
		enabled: apiKey != "",
	}
	if !c.enabled {
		return c
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	c.api = openai.NewClientWithConfig(cfg)
	return c
}

// Analyze fetches the image, inlines it as a base64 data URL and asks the
// model for one JSON object per schema. Returns (nil, nil) when analysis is
// disabled or the URL is not an allow-listed image. No retry di layer ini.
func (c *Client) Analyze(ctx context.Context, imageURL string) (*domain.AnalysisResult, error) {
	if !c.enabled {
		log.Printf("vision: no api key configured, skipping analysis url=%s", imageURL)
		return nil, nil
	}
	if !domain.IsImageName(imageURL) {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, contentType, err := c.fetchImage(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))

	model := c.model
	if model == "" {
		model = "gpt-4o-mini"
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt.GetUserPrompt(path.Base(imageURL))},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:	dataURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %v", vision.ErrQuotaExceeded, err)
		}
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, vision.ErrNoResult
	}

	return parseResult(resp.Choices[0].Message.Content)
}

func (c *Client) fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.fetch.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxImageBytes {
		return nil, "", fmt.Errorf("image larger than %d bytes", int64(maxImageBytes))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(imageURL))); byExt != "" {
			contentType = byExt
		} else {
			contentType = "image/png"
		}
	}
	return data, contentType, nil
}

// parseResult extracts the first balanced {...} block from the model's free
// text and decodes it. Model kadang nambah basa-basi di luar JSON-nya.
func parseResult(content string) (*domain.AnalysisResult, error) {
	block, ok := extractJSONObject(content)
	if !ok {
		return nil, vision.ErrNoResult
	}
	var res domain.AnalysisResult
	if err := json.Unmarshal([]byte(block), &res); err != nil {
		return nil, fmt.Errorf("%w: %v", vision.ErrNoResult, err)
	}
	res.AnalyzedAt = time.Now()
	return &res, nil
}

// extractJSONObject scans for the first balanced top-level JSON object,
// ignoring braces inside string literals.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

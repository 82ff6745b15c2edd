package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nao1215/socaudit/internal/httputil"
)

// NoOpenAIText is returned as the analysis when the response has no text.
const NoOpenAIText = "No text output parsed from OpenAI response."

// maxErrorBody caps how much of an error response is kept in the error.
const maxErrorBody = 500

// OpenAIProvider calls the OpenAI Responses API.
type OpenAIProvider struct {
	client          *http.Client
	baseURL         string
	apiKey          string
	model           string
	temperature     float64
	maxOutputTokens int
	maxRetries      int
}

// responsesRequest is the body of POST /responses.
type responsesRequest struct {
	Model           string  `json:"model"`
	Input           string  `json:"input"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens,omitempty"`
}

// responsesReply holds the parts of the response we read.
type responsesReply struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// text returns output_text, or the output_text content items joined.
func (r *responsesReply) text() string {
	if r.OutputText != "" {
		return r.OutputText
	}
	var b strings.Builder
	for _, item := range r.Output {
		for _, c := range item.Content {
			if c.Type == "output_text" {
				b.WriteString(c.Text)
			}
		}
	}
	return b.String()
}

// Name returns "openai".
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Close is a no-op.
func (p *OpenAIProvider) Close() error {
	return nil
}

// Analyze sends prompt to the Responses API.
func (p *OpenAIProvider) Analyze(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(responsesRequest{
		Model:           p.model,
		Input:           prompt,
		Temperature:     p.temperature,
		MaxOutputTokens: p.maxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := strings.TrimRight(p.baseURL, "/") + "/responses"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, p.client, req, p.maxRetries)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s: %s", ErrAPIStatus, resp.Status, truncate(string(data), maxErrorBody))
	}

	var reply responsesReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	text := reply.text()
	if strings.TrimSpace(text) == "" {
		return NoOpenAIText, nil
	}
	return text, nil
}

// truncate shortens s to n bytes, marking the cut.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

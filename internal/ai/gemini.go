package ai

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nao1215/socaudit/internal/httputil"
)

// NoGoogleText is returned as the analysis when Gemini returns no text.
const NoGoogleText = "No text output parsed from Google response."

// contentGenerator is satisfied by *genai.GenerativeModel.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiProvider calls Gemini through the generative-ai-go client.
type GeminiProvider struct {
	client     *genai.Client
	generator  contentGenerator
	model      string
	maxRetries int
}

// Name returns "google".
func (p *GeminiProvider) Name() string {
	return "google"
}

// Model returns the model name.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Close closes the underlying client.
func (p *GeminiProvider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

// Analyze sends prompt to Gemini. Rate limit and quota errors are retried
// with the same backoff as the OpenAI client.
func (p *GeminiProvider) Analyze(ctx context.Context, prompt string) (string, error) {
	for attempt := 0; ; attempt++ {
		resp, err := p.generator.GenerateContent(ctx, genai.Text(prompt))
		if err == nil {
			return extractText(resp), nil
		}
		if !isRateLimit(err) || attempt >= p.maxRetries {
			return "", err
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * httputil.RetryBaseDelay
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// extractText joins the text parts of the first candidate that has any.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return NoGoogleText
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return NoGoogleText
}

// isRateLimit reports whether err is an HTTP 429 from the REST transport or
// a RESOURCE_EXHAUSTED status from gRPC.
func isRateLimit(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	if s, ok := status.FromError(err); ok {
		return s.Code() == codes.ResourceExhausted
	}
	return false
}

package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/nao1215/socaudit/internal/config"
	"github.com/nao1215/socaudit/internal/secrets"
)

// API key names, tried in order. Each is looked up as an environment
// variable and then as a file in the secrets directory.
var (
	openAIKeyNames = []string{"OPENAI_API_KEY"}
	googleKeyNames = []string{"GOOGLE_API_KEY", "GOOGLEAI_API_KEY", "GEMINI_API_KEY"}
)

// Options configures NewProvider.
type Options struct {
	// Provider is "openai" or "google"; empty means openai.
	Provider string

	// Model overrides the provider's default model.
	Model string

	// BaseURL overrides the OpenAI API base URL.
	BaseURL string

	Temperature     float64
	MaxOutputTokens int
	MaxRetries      int
	Timeout         time.Duration

	// Secrets supplies keys that are not set in the environment.
	Secrets secrets.Store

	// HTTPClient replaces the OpenAI HTTP client (tests).
	HTTPClient *http.Client
}

// OptionsFromConfig maps a validated Config to provider Options.
func OptionsFromConfig(cfg *config.Config, store secrets.Store) Options {
	return Options{
		Provider:        cfg.NormalizedProvider(),
		Model:           cfg.ResolvedModel(),
		BaseURL:         cfg.OpenAIBaseURL,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.ResolvedMaxOutputTokens(),
		MaxRetries:      cfg.MaxRetries,
		Timeout:         cfg.Timeout,
		Secrets:         store,
	}
}

// NewProvider creates the provider named in opts.
func NewProvider(ctx context.Context, opts Options) (Provider, error) {
	switch normalize(opts.Provider) {
	case config.ProviderOpenAI:
		return newOpenAI(opts)
	case config.ProviderGoogle:
		return newGemini(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q (use openai or google)", ErrUnknownProvider, opts.Provider)
	}
}

// APIKeyNames returns the key names searched for provider.
func APIKeyNames(provider string) []string {
	if normalize(provider) == config.ProviderGoogle {
		return googleKeyNames
	}
	return openAIKeyNames
}

func normalize(provider string) string {
	p := strings.ToLower(strings.TrimSpace(provider))
	switch p {
	case "":
		return config.ProviderOpenAI
	case "gemini":
		return config.ProviderGoogle
	default:
		return p
	}
}

func newOpenAI(opts Options) (*OpenAIProvider, error) {
	key, ok := opts.Secrets.Lookup(openAIKeyNames...)
	if !ok {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set in environment", ErrMissingAPIKey)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &OpenAIProvider{
		client:          client,
		baseURL:         withDefault(opts.BaseURL, config.DefaultOpenAIBaseURL),
		apiKey:          key,
		model:           withDefault(opts.Model, config.DefaultOpenAIModel),
		temperature:     opts.Temperature,
		maxOutputTokens: opts.MaxOutputTokens,
		maxRetries:      opts.MaxRetries,
	}, nil
}

func newGemini(ctx context.Context, opts Options) (*GeminiProvider, error) {
	key, ok := opts.Secrets.Lookup(googleKeyNames...)
	if !ok {
		return nil, fmt.Errorf("%w: GOOGLE_API_KEY not set in environment", ErrMissingAPIKey)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	modelName := withDefault(opts.Model, config.DefaultGoogleModel)
	m := client.GenerativeModel(modelName)
	m.SetTemperature(float32(opts.Temperature))
	if opts.MaxOutputTokens > 0 {
		m.SetMaxOutputTokens(int32(opts.MaxOutputTokens)) //nolint:gosec // validated token count
	}

	return &GeminiProvider{
		client:     client,
		generator:  m,
		model:      modelName,
		maxRetries: opts.MaxRetries,
	}, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

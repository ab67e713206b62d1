package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"medcare/internal/logger"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultMaxTokens      = 2048
)

var (
	// ErrCallFailed covers transport errors and non-2xx replies.
	ErrCallFailed = errors.New("llm call failed")
	// ErrMalformedResponse means the reply was not a JSON object.
	ErrMalformedResponse = errors.New("malformed llm response")
)

// Request is one completion. The model is asked for a single JSON object.
type Request struct {
	System    string
	User      string
	MaxTokens int
}

type Response struct {
	Text     string
	Provider string
	Model    string
	Usage    Usage
}

type Usage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

// Client sends exactly one request per call. Implementations never retry.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Options selects and configures a provider.
type Options struct {
	Provider  string
	Model     string
	MaxTokens int
	APIKey    string
	BaseURL   string
}

// New returns the client for opts.Provider ("anthropic" or "openai").
func New(opts Options, httpClient *http.Client, log *logger.Logger) (Client, error) {
	if log == nil {
		log = logger.Discard()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	switch opts.Provider {
	case "anthropic", "":
		if opts.Model == "" {
			opts.Model = defaultAnthropicModel
		}
		return NewAnthropic(opts, httpClient, log), nil
	case "openai":
		if opts.Model == "" {
			opts.Model = defaultOpenAIModel
		}
		return NewOpenAI(opts, httpClient, log), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}

func callFailed(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCallFailed, provider, err)
}

package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"medcare/internal/logger"
)

type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
	log       *logger.Logger
}

func NewAnthropic(opts Options, httpClient *http.Client, log *logger.Logger) *AnthropicClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(reqOpts...),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		log:       log.With(logger.Fields{"provider": "anthropic", "model": opts.Model}),
	}
}

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: req.System, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	})
	if err != nil {
		c.log.Error(fmt.Sprintf("llm anthropic error: %v", err))
		return Response{}, callFailed("anthropic", err)
	}
	usage := Usage{
		InputTokens:              message.Usage.InputTokens,
		OutputTokens:             message.Usage.OutputTokens,
		CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			c.log.Info("llm anthropic response", logger.Fields{
				"size":         len(block.Text),
				"tokens_in":    usage.InputTokens,
				"tokens_out":   usage.OutputTokens,
				"cache_create": usage.CacheCreationInputTokens,
				"cache_read":   usage.CacheReadInputTokens,
			})
			return Response{Text: block.Text, Provider: "anthropic", Model: c.model, Usage: usage}, nil
		}
	}
	return Response{Provider: "anthropic", Model: c.model, Usage: usage},
		fmt.Errorf("%w: no text content in anthropic response", ErrMalformedResponse)
}

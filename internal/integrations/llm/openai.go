package llm

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"medcare/internal/logger"
)

type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	log       *logger.Logger
}

func NewOpenAI(opts Options, httpClient *http.Client, log *logger.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.HTTPClient = httpClient
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &OpenAIClient{
		client:    openai.NewClientWithConfig(cfg),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		log:       log.With(logger.Fields{"provider": "openai", "model": opts.Model}),
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.log.Error(fmt.Sprintf("llm openai error: %v", err))
		return Response{}, callFailed("openai", err)
	}

	usage := Usage{
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
	}
	if len(resp.Choices) == 0 {
		return Response{Provider: "openai", Model: c.model, Usage: usage},
			fmt.Errorf("%w: no choices in openai response", ErrMalformedResponse)
	}

	text := resp.Choices[0].Message.Content
	c.log.Info("llm openai response", logger.Fields{
		"size":       len(text),
		"tokens_in":  usage.InputTokens,
		"tokens_out": usage.OutputTokens,
	})
	return Response{Text: text, Provider: "openai", Model: c.model, Usage: usage}, nil
}

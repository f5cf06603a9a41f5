// Package completion is the LLM capability the relay forwards messages to.
package completion

import (
	"context"
	"strings"

	relayerrors "github.com/jrsteele09/go-relay-server/internal/errors"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// Completer turns one prompt into one reply. Every call is single turn.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Factory builds a Completer bound to one API key.
type Factory interface {
	New(apiKey string) (Completer, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(apiKey string) (Completer, error)

func (f FactoryFunc) New(apiKey string) (Completer, error) {
	return f(apiKey)
}

// OpenAIFactory builds completers for any OpenAI compatible chat completions endpoint.
type OpenAIFactory struct {
	BaseURL string
	Model   string
}

func NewOpenAIFactory(baseURL, model string) *OpenAIFactory {
	return &OpenAIFactory{BaseURL: baseURL, Model: model}
}

func (f *OpenAIFactory) New(apiKey string) (Completer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.Wrap(relayerrors.ErrInvalidCredentials, "[OpenAIFactory.New] api key is required")
	}
	if f.Model == "" {
		return nil, errors.New("[OpenAIFactory.New] model is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if f.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(f.BaseURL, "/")
	}
	return &OpenAICompleter{client: openai.NewClientWithConfig(cfg), model: f.Model}, nil
}

type OpenAICompleter struct {
	client *openai.Client
	model  string
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", errors.Wrapf(relayerrors.ErrCompletionFailed, "[OpenAICompleter.Complete] %v", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.Wrap(relayerrors.ErrCompletionFailed, "[OpenAICompleter.Complete] empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

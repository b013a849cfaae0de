// Package llmsvc relays chat transcripts to Anthropic's Messages API.
package llmsvc

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/chat"
)

type messagesAPI interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicCompleter struct {
	messages  messagesAPI
	model     string
	maxTokens int64
	timeout   time.Duration
}

var _ chat.Completer = (*AnthropicCompleter)(nil) // interface compliance check

func NewAnthropicCompleter(conf *core.Config) *AnthropicCompleter {
	client := anthropic.NewClient(option.WithAPIKey(conf.Anthropic.APIKey))
	return &AnthropicCompleter{
		messages:  &client.Messages,
		model:     conf.Anthropic.Model,
		maxTokens: conf.Anthropic.MaxTokens,
		timeout:   conf.Anthropic.Timeout,
	}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, system string, turns []chat.Turn) (chat.Completion, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  toMessageParams(turns),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return chat.Completion{}, errors.Wrap(err, "creating message")
	}

	completion := chat.Completion{Blocks: make([]chat.ContentBlock, 0, len(msg.Content))}
	for _, block := range msg.Content {
		completion.Blocks = append(completion.Blocks, chat.ContentBlock{Type: block.Type, Text: block.Text})
	}
	return completion, nil
}

func toMessageParams(turns []chat.Turn) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == chat.RoleAssistant {
			params = append(params, anthropic.NewAssistantMessage(block))
		} else {
			params = append(params, anthropic.NewUserMessage(block))
		}
	}
	return params
}

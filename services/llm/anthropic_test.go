package llmsvc

import (
	"context"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/aicanvas/core/chat"
)

type messagesAPIMock struct {
	params anthropic.MessageNewParams
	res    *anthropic.Message
	err    error
}

func (m *messagesAPIMock) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	m.params = params
	return m.res, m.err
}

func TestAnthropicCompleter_Complete(t *testing.T) {
	api := &messagesAPIMock{res: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "thinking"},
			{Type: "text", Text: "Sorting and graphs."},
		},
	}}
	c := &AnthropicCompleter{messages: api, model: "claude-test", maxTokens: 4096}

	turns := []chat.Turn{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: "hello"},
		{Role: chat.RoleUser, Content: "what is covered?"},
	}
	completion, err := c.Complete(context.Background(), "system prompt", turns)
	require.NoError(t, err)

	text, ok := completion.Text()
	assert.True(t, ok)
	assert.Equal(t, "Sorting and graphs.", text)

	assert.Equal(t, anthropic.Model("claude-test"), api.params.Model)
	assert.Equal(t, int64(4096), api.params.MaxTokens)
	require.Len(t, api.params.System, 1)
	assert.Equal(t, "system prompt", api.params.System[0].Text)
	require.Len(t, api.params.Messages, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, api.params.Messages[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, api.params.Messages[1].Role)
	assert.Equal(t, anthropic.MessageParamRoleUser, api.params.Messages[2].Role)
}

func TestAnthropicCompleter_CompleteError(t *testing.T) {
	c := &AnthropicCompleter{messages: &messagesAPIMock{err: errors.New("overloaded")}, model: "claude-test"}
	_, err := c.Complete(context.Background(), "", []chat.Turn{{Role: chat.RoleUser, Content: "hi"}})
	assert.Error(t, err)
}

package core

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfs "github.com/trezcool/aicanvas/fs"
)

func TestEmailMessage_Render(t *testing.T) {
	parsed, err := parseTemplates(appfs.FS)
	require.NoError(t, err)
	templates = parsed

	conf := &Config{AppName: "AI Canvas", BaseURL: "http://canvas.test"}

	t.Run("templated", func(t *testing.T) {
		msg := &EmailMessage{
			To:           []mail.Address{{Address: "p@x.com"}},
			Subject:      "Login",
			TemplateName: "magic_link",
			TemplateData: map[string]string{"Link": "http://canvas.test/api/auth/verify?token=abc", "ExpiresIn": "24 hours"},
		}
		require.NoError(t, msg.Render(conf))
		assert.True(t, msg.HasRecipients())
		assert.True(t, msg.HasContent())
		assert.Contains(t, msg.TextContent, "http://canvas.test/api/auth/verify?token=abc")
		assert.Contains(t, msg.TextContent, "24 hours")
		assert.Contains(t, msg.HTMLContent, `href="http://canvas.test/api/auth/verify?token=abc"`)
		assert.Contains(t, msg.HTMLContent, "AI Canvas")
	})

	t.Run("plain body", func(t *testing.T) {
		msg := &EmailMessage{BodyStr: "hello"}
		require.NoError(t, msg.Render(conf))
		assert.Equal(t, "hello", msg.TextContent)
		assert.Empty(t, msg.HTMLContent)
		assert.False(t, msg.HasRecipients())
	})

	t.Run("prepare", func(t *testing.T) {
		to := []mail.Address{{Address: "p@x.com"}}
		assert.NoError(t, (&EmailMessage{To: to, BodyStr: "hello"}).Prepare(conf))
		assert.ErrorIs(t, (&EmailMessage{BodyStr: "hello"}).Prepare(conf), ErrNoRecipients)
		assert.ErrorIs(t, (&EmailMessage{To: to, TemplateName: "unknown"}).Prepare(conf), ErrEmptyEmail)
	})

	t.Run("missing template data", func(t *testing.T) {
		msg := &EmailMessage{TemplateName: "magic_link", TemplateData: map[string]string{}}
		assert.Error(t, msg.Render(conf))
	})
}

package core

import (
	"bytes"
	"context"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/aicanvas/fs"
)

const emailTemplatesDir = "templates/email"

var (
	templates tmplCache
	tmplMu    sync.RWMutex

	// errors
	ErrNoRecipients = errors.New("email has no recipients")
	ErrEmptyEmail   = errors.New("email has no content")
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	EmailMessage struct {
		To      []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName string
		BaseURL string
		Data    interface{}
	}

	// EmailService is any service that can deliver emails.
	EmailService interface {
		// SendMessages renders and delivers messages, returning the first delivery error.
		SendMessages(ctx context.Context, messages ...*EmailMessage) error
	}
)

func (m *EmailMessage) getTemplate(ext string) (interface{}, bool) {
	tmplMu.RLock()
	defer tmplMu.RUnlock()

	cache, ok := templates[m.TemplateName]
	if !ok {
		return nil, ok
	}
	tmplEntry, ok := cache[ext]
	return tmplEntry, ok
}

func (m *EmailMessage) renderText(data ContextData) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".txt")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*texttmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, "base", data); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML(data ContextData) error {
	if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".gohtml")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*htmltmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, "base", data); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

// Render fills TextContent and HTMLContent from BodyStr or the message template.
func (m *EmailMessage) Render(conf *Config) error {
	data := ContextData{AppName: conf.AppName, BaseURL: conf.BaseURL, Data: m.TemplateData}
	if err := m.renderText(data); err != nil {
		return errors.Wrap(err, "rendering text content")
	}
	return errors.Wrap(m.renderHTML(data), "rendering html content")
}

// Prepare renders the message and checks it can be delivered.
// A templated message whose template is unknown, or was never parsed, renders empty and is rejected.
func (m *EmailMessage) Prepare(conf *Config) error {
	if err := m.Render(conf); err != nil {
		return err
	}
	if !m.HasRecipients() {
		return errors.Wrapf(ErrNoRecipients, "email %q", m.Subject)
	}
	if !m.HasContent() {
		return errors.Wrapf(ErrEmptyEmail, "email %q (template %q)", m.Subject, m.TemplateName)
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseEmailTemplates parses the embedded email templates. Files prefixed with "_" are layouts.
func ParseEmailTemplates(logger Logger) {
	parsed, err := parseTemplates(appfs.FS)
	if err != nil {
		logger.Error("parsing email templates", err)
	}
	tmplMu.Lock()
	templates = parsed
	tmplMu.Unlock()
}

func parseTemplates(fsys fs.FS) (tmplCache, error) {
	cache := make(tmplCache)

	fps, err := fs.Glob(fsys, path.Join(emailTemplatesDir, "*"))
	if err != nil {
		return cache, errors.Wrap(err, "listing email templates")
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := cache[name]
		if !ok {
			entry = make(tmplCacheEntry)
			cache[name] = entry
		}
		base := path.Join(emailTemplatesDir, "_base"+ext)
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(fsys, base, fp)
			if err != nil {
				return cache, errors.Wrapf(err, "parsing %s", fp)
			}
			entry[ext] = tmpl.Option("missingkey=error")
		} else {
			tmpl, err := htmltmpl.ParseFS(fsys, base, fp)
			if err != nil {
				return cache, errors.Wrapf(err, "parsing %s", fp)
			}
			entry[ext] = tmpl.Option("missingkey=error")
		}
	}
	return cache, nil
}

package core

import (
	"bytes"
	"embed"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

//go:embed all:templates/email
var emailTemplatesFS embed.FS

var (
	templates tmplCache
	tmplErr   error
	tmplInit  sync.Once
)

type (
	tmplCacheEntry struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}
	tmplCache map[string]*tmplCacheEntry // {name: entry}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName   string
		Recipient string
		Data      interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessage renders and sends msg, returning once it is handed over for delivery.
		SendMessage(msg *EmailMessage) error
		// SendMessages sends messages concurrently; failures are logged
		SendMessages(messages ...*EmailMessage)
	}
)

// ErrNothingToSend is returned for messages without recipients or content.
var ErrNothingToSend = errors.New("email has no recipient or no content")

func (m *EmailMessage) contextData(appName string) ContextData {
	var recipient string
	if len(m.To) > 0 {
		recipient = m.To[0].Name
	}
	if recipient == "" {
		recipient = "there"
	}
	return ContextData{AppName: appName, Recipient: recipient, Data: m.TemplateData}
}

// Render fills TextContent and HTMLContent from BodyStr or the named template.
func (m *EmailMessage) Render(appName string) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if m.TemplateName == "" {
		return nil
	}

	tmplInit.Do(parseTemplates) // only execute once during first render
	if tmplErr != nil {
		return errors.Wrap(tmplErr, "parsing email templates")
	}
	entry, ok := templates[m.TemplateName]
	if !ok {
		return errors.Errorf("unknown email template %q", m.TemplateName)
	}

	data := m.contextData(appName)
	var buff bytes.Buffer
	if entry.text != nil {
		if err := entry.text.ExecuteTemplate(&buff, "base", data); err != nil {
			return errors.Wrap(err, "rendering text template")
		}
		m.TextContent = buff.String()
		buff.Reset()
	}
	if entry.html != nil {
		if err := entry.html.ExecuteTemplate(&buff, "base", data); err != nil {
			return errors.Wrap(err, "rendering html template")
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

func parseTemplates() {
	templates = make(tmplCache)
	root := "templates/email"

	fps, err := fs.Glob(emailTemplatesFS, path.Join(root, "*"))
	if err != nil {
		tmplErr = err
		return
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := templates[name]
		if !ok {
			entry = new(tmplCacheEntry)
			templates[name] = entry
		}
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(emailTemplatesFS, path.Join(root, "_base.txt"), fp)
			if err != nil {
				tmplErr = err
				return
			}
			entry.text = tmpl.Option("missingkey=error")
		} else {
			tmpl, err := htmltmpl.ParseFS(emailTemplatesFS, path.Join(root, "_base.gohtml"), fp)
			if err != nil {
				tmplErr = err
				return
			}
			entry.html = tmpl.Option("missingkey=error")
		}
	}
}

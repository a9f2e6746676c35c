package core

import (
	"bytes"
	"encoding/base64"
	"fmt"
	htmltmpl "html/template"
	"io"
	"net/http"
	"net/mail"
	"path/filepath"
	"strings"
	"sync"
	texttmpl "text/template"
)

const (
	extText = ".txt"
	extHTML = ".gohtml"
)

// mailTemplates is the registry filled by ParseEmailTemplates.
var mailTemplates = &templateRegistry{byName: make(map[string]map[string]templateExecutor)}

type (
	// satisfied by both *text/template.Template and *html/template.Template
	templateExecutor interface {
		ExecuteTemplate(w io.Writer, name string, data interface{}) error
	}

	templateRegistry struct {
		mu              sync.RWMutex
		frontendBaseURL string
		byName          map[string]map[string]templateExecutor // {name: {ext: tmpl}}
	}

	Attachment struct {
		Content     *bytes.Buffer // base64 encoded
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // plain text, bypasses the templates
		Attachments []Attachment

		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// ContextData is what the templates are executed with.
	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (reg *templateRegistry) lookup(name, ext string) (templateExecutor, string) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.byName[name][ext], reg.frontendBaseURL
}

// render executes the template registered under name and ext, if any.
func (reg *templateRegistry) render(name, ext string, data interface{}) (string, error) {
	tmpl, baseURL := reg.lookup(name, ext)
	if tmpl == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", ContextData{FrontendBaseURL: baseURL, Data: data}); err != nil {
		return "", fmt.Errorf("executing %s%s: %w", name, ext, err)
	}
	return buf.String(), nil
}

func (reg *templateRegistry) load(dir string, strict bool) []error {
	fps, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return []error{err}
	}

	byName := make(map[string]map[string]templateExecutor)
	var errs []error
	for _, fp := range fps {
		fname := filepath.Base(fp)
		ext := filepath.Ext(fname)
		if strings.HasPrefix(fname, "_") || (ext != extText && ext != extHTML) {
			continue
		}

		tmpl, err := parseTemplate(filepath.Join(dir, "_base"+ext), fp, strict)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", fname, err))
			continue
		}

		name := strings.TrimSuffix(fname, ext)
		if byName[name] == nil {
			byName[name] = make(map[string]templateExecutor)
		}
		byName[name][ext] = tmpl
	}

	reg.mu.Lock()
	reg.byName = byName
	reg.mu.Unlock()
	return errs
}

func parseTemplate(base, fp string, strict bool) (templateExecutor, error) {
	if filepath.Ext(fp) == extText {
		t, err := texttmpl.ParseFiles(base, fp)
		if err != nil {
			return nil, err
		}
		if strict {
			t = t.Option("missingkey=error")
		}
		return t, nil
	}
	t, err := htmltmpl.ParseFiles(base, fp)
	if err != nil {
		return nil, err
	}
	if strict {
		t = t.Option("missingkey=error")
	}
	return t, nil
}

// ParseEmailTemplates loads <WorkDir>/assets/templates/email/*.{txt,gohtml}.
// Each template is parsed along with the _base template of the same extension.
func ParseEmailTemplates(conf *Config, logger Logger) {
	mailTemplates.mu.Lock()
	mailTemplates.frontendBaseURL = conf.FrontendBaseURL
	mailTemplates.mu.Unlock()

	dir := filepath.Join(conf.WorkDir, "assets", "templates", "email")
	for _, err := range mailTemplates.load(dir, conf.Debug || conf.TestMode) {
		logger.Error(fmt.Sprintf("parsing email templates: %v", err), err)
	}
}

// Render fills TextContent and HTMLContent from BodyStr or the message template.
func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	} else if m.TemplateName != "" {
		txt, err := mailTemplates.render(m.TemplateName, extText, m.TemplateData)
		if err != nil {
			return err
		}
		m.TextContent = txt
	}
	if m.TemplateName == "" {
		return nil
	}
	html, err := mailTemplates.render(m.TemplateName, extHTML, m.TemplateData)
	if err != nil {
		return err
	}
	m.HTMLContent = html
	return nil
}

// Attach reads r into a base64 encoded attachment. The content type is sniffed unless given.
func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}
	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err = encoder.Write(content); err != nil {
		return err
	}
	if err = encoder.Close(); err != nil {
		return err
	}

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

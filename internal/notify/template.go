package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/osteele/liquid"

	"github.com/nuwe/site-forms/internal/domain"
)

const contactBody = `
<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #4A90A4;">NUWE 網站收到新訊息</h2>
  <hr style="border: 1px solid #eee;" />
  <p><strong>姓名：</strong>{{ name | escape }}</p>
  <p><strong>Email：</strong>{{ email | escape }}</p>
  <p><strong>主旨：</strong>{{ subject | escape }}</p>
  <p><strong>訊息內容：</strong></p>
  <div style="background: #f9f9f9; padding: 15px; border-radius: 8px;">
    {{ message | escape | nl2br }}
  </div>
  <hr style="border: 1px solid #eee; margin-top: 20px;" />
  <p style="color: #666; font-size: 12px;">此郵件由 NUWE 網站自動發送</p>
</div>
`

// Template renders notification bodies with Liquid.
type Template struct {
	engine  *liquid.Engine
	contact *liquid.Template
}

// NewTemplate parses the built-in notification templates. It panics if they
// fail to parse, which can only happen if contactBody itself is broken.
func NewTemplate() *Template {
	engine := liquid.NewEngine()

	// HTML escape: {{ user_input | escape }}
	engine.RegisterFilter("escape", func(s string) string {
		return html.EscapeString(s)
	})
	// Line breaks to HTML: {{ message | nl2br }}
	engine.RegisterFilter("nl2br", func(s string) string {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return strings.ReplaceAll(s, "\n", "<br>")
	})

	tpl, err := engine.ParseString(contactBody)
	if err != nil {
		panic(fmt.Sprintf("notify: parse contact template: %v", err))
	}
	return &Template{engine: engine, contact: tpl}
}

// RenderContact renders the HTML body for a contact notification.
func (t *Template) RenderContact(sub domain.ContactSubmission) (string, error) {
	out, err := t.contact.RenderString(liquid.Bindings{
		"name":    sub.Name,
		"email":   sub.Email,
		"subject": sub.Subject,
		"message": sub.Message,
	})
	if err != nil {
		return "", fmt.Errorf("render contact notification: %w", err)
	}
	return out, nil
}

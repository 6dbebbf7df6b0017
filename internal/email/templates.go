package email

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"
)

// Message es un correo ya armado.
type Message struct {
	Subject string
	Text    string
	HTML    string
	Link    string
}

// Renderer arma el contenido de cada tipo de correo.
type Renderer struct {
	baseURL string
}

func NewRenderer(baseURL string) Renderer {
	return Renderer{baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/")}
}

type mailTemplate struct {
	subject string
	path    string
	intro   string
}

var templates = map[Kind]mailTemplate{
	KindVerification: {
		subject: "Confirm your email",
		path:    "/auth/new-verification",
		intro:   "Use this code to confirm your email address",
	},
	KindPasswordReset: {
		subject: "Reset your password",
		path:    "/auth/new-password",
		intro:   "Use this code to choose a new password",
	},
	KindDoctorRegistration: {
		subject: "Confirm your doctor account",
		path:    "/auth/doctor-verification",
		intro:   "Use this code to confirm your doctor registration",
	},
}

func (r Renderer) Render(n Notification) (Message, error) {
	tpl, ok := templates[n.Kind]
	if !ok {
		return Message{}, fmt.Errorf("unknown email kind %q", n.Kind)
	}
	if strings.TrimSpace(n.To) == "" {
		return Message{}, fmt.Errorf("to email is required")
	}

	link := fmt.Sprintf("%s%s?token=%s", r.baseURL, tpl.path, url.QueryEscape(n.Token))
	greeting := "Hi,"
	if name := strings.TrimSpace(n.Name); name != "" {
		greeting = fmt.Sprintf("Hi %s,", name)
	}
	expires := n.ExpiresAt.UTC().Format(time.RFC1123)

	text := fmt.Sprintf(
		"%s\n\n%s: %s\n\nOr open %s\n\nThe code expires at %s.\n",
		greeting, tpl.intro, n.Token, link, expires,
	)
	body := fmt.Sprintf(`
		<p>%s</p>
		<p>%s: <strong style="font-size: 24px;">%s</strong></p>
		<p><a href="%s">Continue</a></p>
		<p>The code expires at %s.</p>
		<p>If you did not request this, you can ignore this email.</p>
	`, html.EscapeString(greeting), tpl.intro, html.EscapeString(n.Token), html.EscapeString(link), expires)

	return Message{
		Subject: tpl.subject,
		Text:    text,
		HTML:    body,
		Link:    link,
	}, nil
}

package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

// MailerSendSender envia correos por la API de MailerSend.
type MailerSendSender struct {
	client   *mailersend.Mailersend
	from     mailersend.From
	renderer Renderer
}

func NewMailerSendSender(apiKey, fromEmail, fromName string, renderer Renderer) (*MailerSendSender, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("mailersend api key is required")
	}
	if strings.TrimSpace(fromEmail) == "" {
		return nil, fmt.Errorf("mailersend from is required")
	}
	return &MailerSendSender{
		client: mailersend.NewMailersend(apiKey),
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
		renderer: renderer,
	}, nil
}

func (m *MailerSendSender) Send(ctx context.Context, n Notification) error {
	content, err := m.renderer.Render(n)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: n.Name, Email: n.To}})
	msg.SetSubject(content.Subject)
	msg.SetText(content.Text)
	msg.SetHTML(content.HTML)

	if _, err := m.client.Email.Send(ctx, msg); err != nil {
		return fmt.Errorf("mailersend send: %w", err)
	}
	return nil
}

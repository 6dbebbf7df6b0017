package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
)

// SMTPSender envia correos via SMTP.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	useTLS   bool
	renderer Renderer
}

func NewSMTPSender(host string, port int, username, password, from, fromName string, useTLS bool, renderer Renderer) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if port == 0 {
		port = 587
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
		useTLS:   useTLS,
		renderer: renderer,
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, n Notification) error {
	content, err := s.renderer.Render(n)
	if err != nil {
		return err
	}
	msg, err := s.buildMessage(n.To, content)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

func (s *SMTPSender) buildMessage(to string, content Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if strings.TrimSpace(s.fromName) != "" {
		if err := msg.FromFormat(s.fromName, s.from); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}
	msg.Subject(content.Subject)
	msg.SetBodyString(mail.TypeTextPlain, content.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, content.HTML)
	return msg, nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithPort(s.port)}
	if s.useTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// 465 usa TLS implicito, el resto STARTTLS
		if s.port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if s.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.username),
			mail.WithPassword(s.password),
		)
	}
	return opts
}

package notify

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/placement-engine/pkg/config"
)

// EmailMessage is a single outbound HTML email.
type EmailMessage struct {
	To             string
	ToName         string
	Subject        string
	HTMLBody       string
	AttachmentURLs []string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers email through an SMTP relay.
type SMTPMailer struct {
	cfg      config.SMTPConfig
	logger   *zap.Logger
	sendMail sendMailFunc
}

// NewSMTPMailer constructs a mailer. Without credentials messages are only logged.
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPMailer{cfg: cfg, logger: logger, sendMail: smtp.SendMail}
}

// Send hands the message to the relay.
func (m *SMTPMailer) Send(ctx context.Context, msg EmailMessage) error {
	if msg.To == "" {
		return fmt.Errorf("email recipient missing")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.cfg.Username == "" || m.cfg.Password == "" {
		m.logger.Warn("smtp credentials not configured, email not sent",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Int("attachments", len(msg.AttachmentURLs)),
		)
		return nil
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := m.sendMail(addr, auth, m.cfg.FromEmail, []string{msg.To}, m.compose(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) compose(msg EmailMessage) []byte {
	var buf bytes.Buffer
	from := m.cfg.FromEmail
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", m.cfg.FromName), m.cfg.FromEmail)
	}
	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.ToName), msg.To)
	}

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	buf.WriteString(msg.HTMLBody)

	if len(msg.AttachmentURLs) > 0 {
		buf.WriteString("\r\n<hr><p>Attachments:</p><ul>")
		for _, url := range msg.AttachmentURLs {
			escaped := html.EscapeString(strings.TrimSpace(url))
			fmt.Fprintf(&buf, "<li><a href=\"%s\">%s</a></li>", escaped, escaped)
		}
		buf.WriteString("</ul>")
	}
	return buf.Bytes()
}

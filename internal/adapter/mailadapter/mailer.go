package mailadapter

import (
	"context"
	"fmt"
	"log/slog"
	"mime/quotedprintable"
	"net/smtp"
	"strings"

	"github.com/ppdms/tree-eclass/internal/config"
	"github.com/ppdms/tree-eclass/internal/entity"
)

const mimeBoundary = "tree-eclass-boundary"

// Mailer sends change notifications over SMTP. When the SMTP configuration
// is incomplete, notifications are logged and dropped instead of failing
// the check cycle.
type Mailer struct {
	cfg      *config.SMTPConfig
	renderer *Renderer
	log      *slog.Logger
}

func NewMailer(cfg *config.SMTPConfig, renderer *Renderer, log *slog.Logger) *Mailer {
	return &Mailer{
		cfg:      cfg,
		renderer: renderer,
		log:      log.With(slog.String("item", "Mailer")),
	}
}

// Notify renders and sends one email summarizing all changed courses.
func (m *Mailer) Notify(ctx context.Context, changes map[string][]entity.Change) error {
	if len(changes) == 0 {
		return nil
	}

	if !m.cfg.Enabled() {
		m.log.Warn("SMTP is not configured, notification not sent", slog.Int("courses", len(changes)))

		return nil
	}

	htmlPart, err := m.renderer.HTML(changes)
	if err != nil {
		return fmt.Errorf("cannot render notification: %w", err)
	}

	msg, err := buildMessage(m.cfg.From, m.cfg.To, Subject(changes), Plain(changes), htmlPart)
	if err != nil {
		return fmt.Errorf("cannot build notification message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Server, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Server)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{m.cfg.To}, msg); err != nil {
		return fmt.Errorf("cannot send notification: %w", err)
	}

	m.log.Info("Notification sent", slog.String("to", m.cfg.To), slog.Int("courses", len(changes)))

	return nil
}

// buildMessage assembles a multipart/alternative message with a plain-text
// and an HTML part.
func buildMessage(from, to, subject, plain, html string) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", mimeBoundary)
	b.WriteString("\r\n")

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", plain},
		{"text/html; charset=utf-8", html},
	} {
		fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
		fmt.Fprintf(&b, "Content-Type: %s\r\n", part.contentType)
		b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
		b.WriteString("\r\n")

		qp := quotedprintable.NewWriter(&b)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)

	return []byte(b.String()), nil
}

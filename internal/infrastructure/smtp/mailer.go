package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jerif/verification-api/internal/config"
	"github.com/jerif/verification-api/internal/domain"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg config.SMTPConfig) Mailer {
	return &mailer{
		host:     cfg.Host,
		port:     cfg.Port,
		from:     cfg.From,
		username: cfg.Username,
		password: cfg.Password,
	}
}

func (m *mailer) SendEmail(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

// ResultNotifier emails applicants the outcome of their verification.
type ResultNotifier struct {
	mailer Mailer
}

func NewResultNotifier(m Mailer) *ResultNotifier {
	return &ResultNotifier{mailer: m}
}

func (n *ResultNotifier) NotifyResult(ctx context.Context, to, campaignTitle string, status domain.ResultStatus, message, referenceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body := resultEmail(campaignTitle, status, message, referenceID)
	if err := n.mailer.SendEmail(to, subject, body); err != nil {
		return fmt.Errorf("send result email: %w", err)
	}
	return nil
}

func resultEmail(campaignTitle string, status domain.ResultStatus, message, referenceID string) (string, string) {
	var subject string
	switch status {
	case domain.ResultVerified:
		subject = "Your military status has been verified"
	case domain.ResultPending:
		subject = "Your verification is under review"
	default:
		subject = "We could not verify your military status"
	}
	if campaignTitle != "" {
		subject += " - " + campaignTitle
	}

	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\r\n\r\n")
	if referenceID != "" {
		fmt.Fprintf(&b, "Reference: %s\r\n", referenceID)
	}
	fmt.Fprintf(&b, "Status: %s\r\n", status)
	return subject, b.String()
}

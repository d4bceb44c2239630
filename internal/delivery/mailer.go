package delivery

import (
	"bytes"
	"fmt"
	"net/smtp"

	"gstbill/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer sends invoice emails with PDF attachments over SMTP.
type Mailer struct {
	host     string
	addr     string
	user     string
	password string
	from     string
}

func NewMailer(cfg *config.Config) *Mailer {
	from := cfg.MailFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	if cfg.MailFromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.MailFromName, from)
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     from,
	}
}

// SendInvoice mails the rendered invoice to the customer. pdfData may be nil
// to send a plain notification without an attachment.
func (m *Mailer) SendInvoice(to, subject, body, filename string, pdfData []byte) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if len(pdfData) > 0 {
		if _, err := e.Attach(bytes.NewReader(pdfData), filename, "application/pdf"); err != nil {
			return fmt.Errorf("mailer: attach pdf: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return e.Send(m.addr, auth)
}

package services

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/parolevive/backend/internal/config"
	"github.com/parolevive/backend/internal/models"
	"github.com/parolevive/backend/pkg/logger"
)

// EmailSender sends a single HTML email. SMTPSender is the production
// implementation; tests record messages instead.
type EmailSender interface {
	SendEmail(to, subject, htmlBody string) error
}

type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) SendEmail(to, subject, htmlBody string) error {
	e := email.NewEmail()
	e.From = fmt.Sprintf("%s <%s>", s.cfg.SenderName, s.cfg.From)
	e.To = []string{to}
	e.Subject = subject
	e.HTML = []byte(htmlBody)

	addr := s.cfg.Host + ":" + s.cfg.Port
	auth := smtp.PlainAuth("", s.cfg.From, s.cfg.Password, s.cfg.Host)
	return e.Send(addr, auth)
}

// MailService renders and sends the account emails.
type MailService struct {
	sender      EmailSender
	frontendURL string
}

func NewMailService(sender EmailSender, frontendURL string) *MailService {
	return &MailService{sender: sender, frontendURL: frontendURL}
}

// InviteLink is the deep link embedded in invitation emails.
func (m *MailService) InviteLink(token string) string {
	return m.frontendURL + "/reset-password?token=" + token
}

func (m *MailService) SendInvitation(user *models.User, token string) error {
	link := m.InviteLink(token)
	body := fmt.Sprintf(`
<p>Bonjour %s,</p>
<p>Un compte <strong>%s</strong> vous a été créé sur l'application Parole Vive.</p>
<p>Cliquez sur le lien ci-dessous pour définir votre mot de passe. Ce lien est valable 7 jours.</p>
<p><a href="%s">Définir mon mot de passe</a></p>
<p>Si vous n'êtes pas à l'origine de cette invitation, ignorez ce message.</p>
`, user.DisplayName, user.Role, link)

	err := m.sender.SendEmail(user.Email, "Invitation Parole Vive", body)
	if err != nil {
		logger.Error("invite_email_failed", err, map[string]interface{}{
			"email": user.Email,
		})
		return err
	}

	logger.Info("invite_email_sent", map[string]interface{}{
		"email": user.Email,
		"role":  user.Role,
	})
	return nil
}

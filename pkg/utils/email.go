package utils

import (
	"errors"
	"fmt"
	"html"
	"mime"
	"net/smtp"
	"strings"

	"github.com/chachabrian/mooveit-admin/internal/config"
	"github.com/chachabrian/mooveit-admin/internal/models"
	log "github.com/sirupsen/logrus"
)

const companyName = "MooveIt"

var ErrMailDisabled = errors.New("email configuration not set")

// Common header template for all emails
const emailHeader = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<div style="text-align: center; margin-bottom: 30px; background-color: #f9f9f9; padding: 20px;">
			<h2 style="color: #4CAF50; margin: 0;">MooveIt</h2>
		</div>
`

// Common footer template for all emails
const emailFooter = `
		<div style="text-align: center; margin-top: 20px; font-size: 12px; color: #666; border-top: 1px solid #eee; padding-top: 20px;">
			<p>Ceci est un message automatique, merci de ne pas y répondre.</p>
			<p>© MooveIt. Tous droits réservés.</p>
		</div>
	</div>
</body>
</html>
`

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer emails drivers the outcome of their document verification.
type Mailer struct {
	cfg     config.MailConfig
	baseURL string
	send    sendFunc
}

func NewMailer(cfg config.MailConfig, baseURL string) *Mailer {
	return &Mailer{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		send:    smtp.SendMail,
	}
}

// Enabled is safe on a nil Mailer.
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Enabled()
}

func (m *Mailer) sendEmail(to []string, subject, body string) error {
	if !m.Enabled() {
		return ErrMailDisabled
	}

	headers := [][2]string{
		{"From", fmt.Sprintf("%s <%s>", companyName, m.cfg.From)},
		{"To", strings.Join(to, ",")},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
		{"X-Mailer", "MooveIt-Admin-Mailer"},
	}

	var b strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	b.WriteString("\r\n")
	b.WriteString(body)

	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)
	if err := m.send(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.From, to, []byte(b.String())); err != nil {
		log.WithError(err).WithField("to", to).Error("Failed to send email")
		return err
	}

	log.WithField("to", to).Info("Email sent")
	return nil
}

// SendVerificationDecision tells the driver behind v that their documents
// were approved or rejected.
func (m *Mailer) SendVerificationDecision(v models.DriverVerification) error {
	if v.Driver == nil || v.Driver.Email == "" {
		return fmt.Errorf("verification %s: driver email unknown", v.ID)
	}
	name := html.EscapeString(v.Driver.FullName)

	var subject, content string
	switch v.Status {
	case models.VerificationApproved:
		subject = "Documents approuvés - MooveIt"
		content = fmt.Sprintf(`
				<div style="background-color: #f9f9f9; padding: 20px; border-radius: 5px;">
					<h1 style="color: #2c3e50; text-align: center;">Compte vérifié</h1>
					<p>Bonjour %s,</p>
					<p>Vos documents ont été vérifiés. Vous pouvez désormais accepter des courses sur MooveIt.</p>
					<p>Cordialement,<br>L'équipe MooveIt</p>
				</div>`, name)

	case models.VerificationRejected:
		subject = "Documents refusés - MooveIt"
		content = fmt.Sprintf(`
				<div style="background-color: #f9f9f9; padding: 20px; border-radius: 5px;">
					<h1 style="color: #2c3e50; text-align: center;">Vérification refusée</h1>
					<p>Bonjour %s,</p>
					<p>Vos documents n'ont pas pu être validés pour la raison suivante :</p>
					<p style="background-color: #fff3f3; padding: 10px; border-left: 4px solid #e74c3c;">%s</p>
					<p>Merci de soumettre de nouveaux documents depuis l'application.</p>
					<div style="text-align: center; margin: 30px 0;">
						<a href="%s" style="background-color: #4CAF50; color: white; padding: 12px 25px; text-decoration: none; border-radius: 5px;">Ouvrir MooveIt</a>
					</div>
					<p>Cordialement,<br>L'équipe MooveIt</p>
				</div>`, name, html.EscapeString(v.RejectionReason), m.baseURL)

	default:
		return fmt.Errorf("verification %s: no email for status %q", v.ID, v.Status)
	}

	return m.sendEmail([]string{v.Driver.Email}, subject, emailHeader+content+emailFooter)
}

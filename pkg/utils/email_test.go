package utils

import (
	"net/smtp"
	"testing"

	"github.com/chachabrian/mooveit-admin/internal/config"
	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func testMailer(t *testing.T) (*Mailer, *[]sentMail) {
	t.Helper()
	var sent []sentMail
	m := NewMailer(config.MailConfig{
		From:     "noreply@mooveit.app",
		Password: "pw",
		Host:     "smtp.mooveit.app",
		Port:     "587",
	}, "https://mooveit.app/")
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return m, &sent
}

func TestMailerDisabled(t *testing.T) {
	var nilMailer *Mailer
	assert.False(t, nilMailer.Enabled())

	m := NewMailer(config.MailConfig{Host: "smtp.mooveit.app"}, "")
	assert.False(t, m.Enabled())

	v := models.DriverVerification{
		ID:     "v1",
		Status: models.VerificationApproved,
		Driver: &models.Driver{Email: "d@mooveit.app"},
	}
	assert.ErrorIs(t, m.SendVerificationDecision(v), ErrMailDisabled)
}

func TestSendVerificationApproved(t *testing.T) {
	m, sent := testMailer(t)

	err := m.SendVerificationDecision(models.DriverVerification{
		ID:     "v1",
		Status: models.VerificationApproved,
		Driver: &models.Driver{FullName: "Ibrahima Fall", Email: "ibrahima@mooveit.app"},
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	mail := (*sent)[0]
	assert.Equal(t, "smtp.mooveit.app:587", mail.addr)
	assert.Equal(t, "noreply@mooveit.app", mail.from)
	assert.Equal(t, []string{"ibrahima@mooveit.app"}, mail.to)
	assert.Contains(t, mail.msg, "From: MooveIt <noreply@mooveit.app>\r\n")
	assert.Contains(t, mail.msg, "Subject: =?utf-8?q?")
	assert.Contains(t, mail.msg, "Bonjour Ibrahima Fall")
	assert.Contains(t, mail.msg, "Compte vérifié")
}

func TestSendVerificationRejectedEscapesReason(t *testing.T) {
	m, sent := testMailer(t)

	err := m.SendVerificationDecision(models.DriverVerification{
		ID:              "v1",
		Status:          models.VerificationRejected,
		RejectionReason: "Photo <floue>",
		Driver:          &models.Driver{FullName: "Ousmane Sy", Email: "ousmane@mooveit.app"},
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)
	assert.Contains(t, (*sent)[0].msg, "Photo &lt;floue&gt;")
	assert.Contains(t, (*sent)[0].msg, `href="https://mooveit.app"`)
}

func TestSendVerificationDecisionRejectsUndecided(t *testing.T) {
	m, sent := testMailer(t)

	assert.Error(t, m.SendVerificationDecision(models.DriverVerification{
		ID:     "v1",
		Status: models.VerificationPending,
		Driver: &models.Driver{Email: "d@mooveit.app"},
	}))
	assert.Error(t, m.SendVerificationDecision(models.DriverVerification{
		ID:     "v2",
		Status: models.VerificationApproved,
	}))
	assert.Empty(t, *sent)
}

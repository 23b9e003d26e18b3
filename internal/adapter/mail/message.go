// Package mail собирает и доставляет письма со ссылкой на сброс пароля.
package mail

import (
	"bytes"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/GoArmGo/AuthService/internal/messaging/payloads"
	"github.com/google/uuid"
)

const resetSubject = "Password Reset Request"

// Message — готовое к отправке письмо
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// NewPasswordResetMessage формирует письмо со ссылкой на сброс.
func NewPasswordResetMessage(from string, p payloads.PasswordResetPayload) Message {
	body := fmt.Sprintf(
		"Hi %s,\n\nClick the link below to reset your password:\n%s\n\nIf you did not request this, please ignore this email.\n\nThanks!",
		p.Username, p.ResetLink,
	)
	return Message{
		From:    from,
		To:      p.Email,
		Subject: resetSubject,
		Body:    body,
	}
}

// Bytes отдаёт письмо в формате RFC 5322 с CRLF-переводами строк.
func (m Message) Bytes(now time.Time) []byte {
	var buf bytes.Buffer
	writeHeader := func(k, v string) {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(v)
		buf.WriteString("\r\n")
	}

	writeHeader("From", m.From)
	writeHeader("To", m.To)
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	writeHeader("Date", now.Format(time.RFC1123Z))
	writeHeader("Message-ID", fmt.Sprintf("<%s@authservice>", uuid.NewString()))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", "text/plain; charset=utf-8")
	writeHeader("Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	buf.WriteString("\r\n")
	return buf.Bytes()
}

package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// SMTPTransport отправляет письма через SMTP-релей.
// PLAIN-аутентификация включается, только если задан логин.
type SMTPTransport struct {
	addr     string
	host     string
	username string
	password string

	// sendMail подменяется в тестах
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPTransport(host string, port int, username, password string) *SMTPTransport {
	return &SMTPTransport{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		host:     host,
		username: username,
		password: password,
		sendMail: smtp.SendMail,
	}
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	var auth smtp.Auth
	if t.username != "" {
		auth = smtp.PlainAuth("", t.username, t.password, t.host)
	}

	// net/smtp не принимает context, поэтому ждём в отдельной горутине
	done := make(chan error, 1)
	go func() {
		done <- t.sendMail(t.addr, auth, msg.From, []string{msg.To}, msg.Bytes(time.Now()))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp %s: %w", t.addr, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp %s: %w", t.addr, ctx.Err())
	}
}

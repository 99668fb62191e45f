package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPSender dials the server for every mail
type SMTPSender struct {
	dialer *gomail.Dialer
}

func NewSMTPSender(host string, port int, username, password string) *SMTPSender {
	return &SMTPSender{dialer: gomail.NewDialer(host, port, username, password)}
}

func (s *SMTPSender) Send(ctx context.Context, from string, req EmailRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", req.To...)
	msg.SetHeader("Subject", req.Subject)
	bodyType := req.BodyType
	if bodyType == "" {
		bodyType = BodyPlain
	}
	msg.SetBody(string(bodyType), req.Body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp delivery failed: %w", err)
	}
	return nil
}

package email

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type SendgridSender struct {
	key  string
	host string
}

func NewSendgridSender(key string) *SendgridSender {
	return &SendgridSender{key: key, host: sendgridHost}
}

func (s *SendgridSender) prepare(from string, req EmailRequest) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = req.Subject
	for _, to := range req.To {
		p.AddTos(sgmail.NewEmail("", to))
	}

	bodyType := req.BodyType
	if bodyType == "" {
		bodyType = BodyPlain
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail("", from))
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent(string(bodyType), req.Body))
	return m
}

func (s *SendgridSender) Send(ctx context.Context, from string, req EmailRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	request := sendgrid.GetRequest(s.key, sendgridEndpoint, s.host)
	request.Method = http.MethodPost
	request.Body = sgmail.GetRequestBody(s.prepare(from, req))

	res, err := sendgrid.API(request)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected mail, status: %d, body: %s", res.StatusCode, res.Body)
	}
	return nil
}

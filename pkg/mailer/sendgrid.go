// Package mailer sends transactional e-mail through SendGrid.
package mailer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
)

const (
	defaultHost = "https://api.sendgrid.com"
	endpoint    = "/v3/mail/send"
)

// Message is a single outbound e-mail.
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

// Option customises the mailer.
type Option func(*SendGrid)

// WithHost points the mailer at another API host.
func WithHost(host string) Option {
	return func(s *SendGrid) { s.host = host }
}

// SendGrid delivers messages with the SendGrid v3 API.
type SendGrid struct {
	key  string
	host string
	from *sgmail.Email
}

// NewSendGrid constructs the mailer. Without an API key or sender it returns ErrUnavailable.
func NewSendGrid(key, fromName, fromAddress string, opts ...Option) (*SendGrid, error) {
	if strings.TrimSpace(key) == "" || strings.TrimSpace(fromAddress) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "mail delivery not configured")
	}
	s := &SendGrid{key: key, host: defaultHost, from: sgmail.NewEmail(fromName, fromAddress)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SendGrid) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return m
}

// Send delivers msg. The SendGrid client has no context support, so ctx is only checked up front.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if msg.ToEmail == "" {
		return appErrors.Clone(appErrors.ErrValidation, "recipient address is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(s.key, endpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// Package mailer delivers transactional email.  SendGrid is used when an
// API key is configured; otherwise messages are written to the log.
package mailer

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const appName = "Campus Events"

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// Message is a single plain-text/HTML email.
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns a SendGrid mailer when key is set and a log mailer otherwise.
func New(key, fromEmail string, logger echo.Logger) Mailer {
	if key == "" {
		return &LogMailer{Logger: logger}
	}
	return &SendGrid{key: key, from: sgmail.NewEmail(appName, fromEmail), subjPrefix: "[" + appName + "] "}
}

// SendGrid delivers through the SendGrid v3 API.
type SendGrid struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

func (s *SendGrid) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
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

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	req := sendgrid.GetRequest(s.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return errors.Wrap(err, "sendgrid")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// LogMailer writes messages to the application log instead of sending them.
type LogMailer struct {
	Logger echo.Logger
}

func (l *LogMailer) Send(ctx context.Context, msg Message) error {
	if l.Logger != nil {
		l.Logger.Infof("mail to=%s subject=%q\n%s", msg.ToEmail, msg.Subject, msg.Text)
	}
	return nil
}

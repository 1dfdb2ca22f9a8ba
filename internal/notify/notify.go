// Package notify sends transactional mail. Delivery is best effort: failures
// are logged and never change the outcome of the operation that triggered them.
package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/charmbracelet/log"
	"gopkg.in/gomail.v2"

	"github.com/gravadigital/bienestar-api/internal/config"
	"github.com/gravadigital/bienestar-api/internal/domain/account"
	"github.com/gravadigital/bienestar-api/internal/domain/event"
	"github.com/gravadigital/bienestar-api/internal/logger"
)

// Notifier is told about completed account and enrollment operations
type Notifier interface {
	Welcome(ctx context.Context, a *account.Account)
	Enrolled(ctx context.Context, a *account.Account, e *event.Event)
}

// Mailer delivers notifications over SMTP
type Mailer struct {
	from  string
	send  func(*gomail.Message) error
	async bool
	log   *log.Logger
}

// NewMailer builds a Mailer from the SMTP settings
func NewMailer(cfg *config.Config) *Mailer {
	dialer := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	return &Mailer{
		from:  cfg.SMTP.From,
		send:  func(m *gomail.Message) error { return dialer.DialAndSend(m) },
		async: true,
		log:   logger.Infra("mailer"),
	}
}

// New returns a Mailer when SMTP is configured and a Noop otherwise
func New(cfg *config.Config) Notifier {
	if cfg.SMTP.Host == "" {
		logger.Infra("mailer").Info("SMTP_HOST not set, notifications disabled")
		return Noop{}
	}
	return NewMailer(cfg)
}

func (m *Mailer) Welcome(ctx context.Context, a *account.Account) {
	if a.Email == "" {
		return
	}
	m.dispatch(WelcomeMessage(m.from, a), "welcome", a.Email)
}

func (m *Mailer) Enrolled(ctx context.Context, a *account.Account, e *event.Event) {
	if a.Email == "" {
		return
	}
	m.dispatch(EnrollmentMessage(m.from, a, e), "enrollment", a.Email)
}

func (m *Mailer) dispatch(msg *gomail.Message, kind, to string) {
	deliver := func() {
		if err := m.send(msg); err != nil {
			m.log.Warn("Failed to send mail", "kind", kind, "to", to, "error", err)
			return
		}
		m.log.Debug("Mail sent", "kind", kind, "to", to)
	}

	if m.async {
		go deliver()
		return
	}
	deliver()
}

// WelcomeMessage builds the registration greeting
func WelcomeMessage(from string, a *account.Account) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", a.Email)
	msg.SetHeader("Subject", "Welcome to Bienestar")
	msg.SetBody("text/html", welcomeBody(a))
	return msg
}

func welcomeBody(a *account.Account) string {
	return fmt.Sprintf(
		"<p>Hi %s,</p><p>Your account is ready. Browse nearby venues and sign up for events whenever you like.</p>",
		html.EscapeString(a.Username))
}

// EnrollmentMessage builds the enrollment confirmation
func EnrollmentMessage(from string, a *account.Account, e *event.Event) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", a.Email)
	msg.SetHeader("Subject", "You are enrolled: "+e.Title)
	msg.SetBody("text/html", enrollmentBody(a, e))
	return msg
}

func enrollmentBody(a *account.Account, e *event.Event) string {
	where := ""
	if e.Venue != nil {
		where = fmt.Sprintf(` at <a href="%s">%s</a>`, html.EscapeString(e.Venue.MapURL), html.EscapeString(e.Venue.Name))
	}
	return fmt.Sprintf(
		"<p>Hi %s,</p><p>You are enrolled in <strong>%s</strong>%s, starting %s.</p>",
		html.EscapeString(a.Username),
		html.EscapeString(e.Title),
		where,
		e.StartAt.Format("Mon 02 Jan 2006 15:04 MST"))
}

// Noop drops every notification
type Noop struct{}

func (Noop) Welcome(context.Context, *account.Account)                {}
func (Noop) Enrolled(context.Context, *account.Account, *event.Event) {}

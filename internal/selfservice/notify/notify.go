// Package notify delivers manager notifications. The request path only ever
// queues an email_requested event or logs; SMTP delivery happens in the relay.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/gartstein/selfservice/internal/selfservice/events"
	"go.uber.org/zap"
)

// EventProducer is the part of events.Producer the notifier needs.
type EventProducer interface {
	Produce(event events.Event) error
}

// EventNotifier turns a notification into an email_requested event.
type EventNotifier struct {
	producer EventProducer
}

func NewEventNotifier(producer EventProducer) *EventNotifier {
	return &EventNotifier{producer: producer}
}

func (n *EventNotifier) Send(_ context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("no recipient")
	}
	event, err := events.NewEvent(events.EmailRequested, "", to, events.Email{To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}
	return n.producer.Produce(event)
}

// LogNotifier only logs; used when no delivery channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notifier")}
}

func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.logger.Info("notification",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPSender sends plain-text mail through one SMTP relay.
type SMTPSender struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(to+subject, "\r\n") {
		return fmt.Errorf("header injection in recipient or subject")
	}

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.sendMail(addr, auth, s.cfg.From, []string{to}, s.message(to, subject, body)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

func (s *SMTPSender) message(to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.cfg.From + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RelayHandler returns a consumer handler delivering email_requested events
// through sender. Other event types are acknowledged and ignored.
func RelayHandler(sender Sender, logger *zap.Logger) func(context.Context, events.Event) error {
	logger = logger.Named("relay")
	return func(ctx context.Context, event events.Event) error {
		if event.Type != events.EmailRequested {
			return nil
		}
		var email events.Email
		if err := json.Unmarshal(event.Payload, &email); err != nil {
			logger.Error("dropping malformed email event", zap.Error(err))
			return nil
		}
		if err := sender.Send(ctx, email.To, email.Subject, email.Body); err != nil {
			return err
		}
		logger.Info("email delivered", zap.String("to", email.To), zap.String("subject", email.Subject))
		return nil
	}
}

package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"eventplanner-backend/pkg/logger"
)

const emailMIMEFormat = "From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=\"BOUNDARY\"\r\n\r\n--BOUNDARY\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s\r\n--BOUNDARY\r\nContent-Type: text/html; charset=\"utf-8\"\r\n\r\n%s\r\n--BOUNDARY--\r\n"

// Email represents an email to be sent
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// ConfirmationData carries email-confirmation template fields
type ConfirmationData struct {
	Name       string
	ConfirmURL string
}

// ReminderTask is one task row in a deadline reminder email
type ReminderTask struct {
	Title      string
	DueAt      time.Time
	EventTitle string
	ListTitle  string
}

// PollSummaryOption is one option row in a poll closing summary
type PollSummaryOption struct {
	Label string
	Votes int
}

// PollSummaryData carries poll closing summary template fields
type PollSummaryData struct {
	Question   string
	EventTitle string
	Options    []PollSummaryOption
	TotalVotes int
}

// Sender defines the interface for sending templated emails
type Sender interface {
	Send(ctx context.Context, email *Email) error
	SendConfirmation(ctx context.Context, to string, data *ConfirmationData) error
	SendDeadlineReminder(ctx context.Context, to string, name string, tasks []ReminderTask) error
	SendPollSummary(ctx context.Context, to string, name string, data *PollSummaryData) error
}

// maskToken returns a safe masked version of a token for logging
func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// MockSender logs instead of sending; used for development and tests
type MockSender struct{}

// Send logs the email
func (m *MockSender) Send(ctx context.Context, email *Email) error {
	logger.Info("Mock email sent",
		zap.String("to", email.To),
		zap.String("subject", email.Subject))
	return nil
}

// SendConfirmation logs a confirmation email
func (m *MockSender) SendConfirmation(ctx context.Context, to string, data *ConfirmationData) error {
	logger.Info("Mock confirmation email sent",
		zap.String("to", to),
		zap.String("confirm_url", maskToken(data.ConfirmURL)))
	return nil
}

// SendDeadlineReminder logs a deadline reminder email
func (m *MockSender) SendDeadlineReminder(ctx context.Context, to string, name string, tasks []ReminderTask) error {
	logger.Info("Mock deadline reminder sent",
		zap.String("to", to),
		zap.Int("tasks", len(tasks)))
	return nil
}

// SendPollSummary logs a poll summary email
func (m *MockSender) SendPollSummary(ctx context.Context, to string, name string, data *PollSummaryData) error {
	logger.Info("Mock poll summary sent",
		zap.String("to", to),
		zap.String("question", data.Question))
	return nil
}

// SMTPConfig holds SMTP configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends emails via SMTP server
type SMTPSender struct {
	config *SMTPConfig
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(config *SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

// Send sends an email via SMTP
func (s *SMTPSender) Send(ctx context.Context, email *Email) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)

	message := fmt.Sprintf(emailMIMEFormat,
		s.config.From,
		email.To,
		email.Subject,
		email.Text,
		email.HTML,
	)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		logger.Error("Failed to connect to SMTP server",
			zap.String("host", s.config.Host),
			zap.Int("port", s.config.Port),
			zap.Error(err))
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{
			ServerName: s.config.Host,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if s.config.Username != "" {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(email.To); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	defer wc.Close()

	if _, err := io.WriteString(wc, message); err != nil {
		return fmt.Errorf("failed to write email message: %w", err)
	}

	logger.Info("Email sent",
		zap.String("to", email.To),
		zap.String("subject", email.Subject))
	return nil
}

// SendConfirmation sends an account activation email
func (s *SMTPSender) SendConfirmation(ctx context.Context, to string, data *ConfirmationData) error {
	name := data.Name
	if name == "" {
		name = to
	}
	text := fmt.Sprintf("Hi %s,\n\nConfirm your email address to activate your account:\n%s\n\nIf you did not register, ignore this message.\n", name, data.ConfirmURL)
	html := fmt.Sprintf("<p>Hi %s,</p><p>Confirm your email address to activate your account:</p><p><a href=\"%s\">Confirm email</a></p>", name, data.ConfirmURL)
	return s.Send(ctx, &Email{
		To:      to,
		Subject: "Confirm your email address",
		Text:    text,
		HTML:    html,
	})
}

// SendDeadlineReminder sends an upcoming-deadline digest for the given tasks
func (s *SMTPSender) SendDeadlineReminder(ctx context.Context, to string, name string, tasks []ReminderTask) error {
	var text strings.Builder
	var html strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\nThese tasks are due within the next 24 hours:\n\n", name)
	fmt.Fprintf(&html, "<p>Hi %s,</p><p>These tasks are due within the next 24 hours:</p><ul>", name)
	for _, t := range tasks {
		fmt.Fprintf(&text, "- %s (%s / %s), due %s\n", t.Title, t.EventTitle, t.ListTitle, t.DueAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(&html, "<li><b>%s</b> (%s / %s), due %s</li>", t.Title, t.EventTitle, t.ListTitle, t.DueAt.UTC().Format(time.RFC3339))
	}
	html.WriteString("</ul>")
	return s.Send(ctx, &Email{
		To:      to,
		Subject: "Upcoming task deadlines",
		Text:    text.String(),
		HTML:    html.String(),
	})
}

// SendPollSummary sends the results of a closed poll
func (s *SMTPSender) SendPollSummary(ctx context.Context, to string, name string, data *PollSummaryData) error {
	var text strings.Builder
	var html strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\nVoting has closed for \"%s\" in %s.\n\nResults:\n", name, data.Question, data.EventTitle)
	fmt.Fprintf(&html, "<p>Hi %s,</p><p>Voting has closed for <b>%s</b> in %s.</p><ul>", name, data.Question, data.EventTitle)
	for _, opt := range data.Options {
		fmt.Fprintf(&text, "- %s: %d\n", opt.Label, opt.Votes)
		fmt.Fprintf(&html, "<li>%s: %d</li>", opt.Label, opt.Votes)
	}
	fmt.Fprintf(&text, "\nTotal votes: %d\n", data.TotalVotes)
	fmt.Fprintf(&html, "</ul><p>Total votes: %d</p>", data.TotalVotes)
	return s.Send(ctx, &Email{
		To:      to,
		Subject: "Poll results",
		Text:    text.String(),
		HTML:    html.String(),
	})
}

// Package email sends notification mail over SMTP.
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
)

// Config holds email configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
	UseTLS   bool
}

// Service handles email sending
type Service struct {
	config    *Config
	templates map[string]*template.Template
}

func NewService(config *Config) *Service {
	return &Service{
		config:    config,
		templates: loadTemplates(),
	}
}

// Enabled reports whether an SMTP host is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.config != nil && s.config.Host != ""
}

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// Send delivers one message. It is a no-op when SMTP is not configured.
func (s *Service) Send(email *Email) error {
	if !s.Enabled() {
		logger.Debug().Str("subject", email.Subject).Msg("email not configured, skipping send")
		return nil
	}
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	msg := s.buildMessage(email)
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}

	if !s.config.UseTLS {
		return smtp.SendMail(addr, auth, s.config.From, email.To, msg)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return fmt.Errorf("TLS dial error: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("SMTP client error: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("auth error: %w", err)
		}
	}
	if err = client.Mail(s.config.From); err != nil {
		return fmt.Errorf("mail error: %w", err)
	}
	for _, rcpt := range email.To {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt error: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data error: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close error: %w", err)
	}
	return client.Quit()
}

func (s *Service) buildMessage(email *Email) []byte {
	var msg bytes.Buffer

	fmt.Fprintf(&msg, "From: %s <%s>\r\n", s.config.FromName, s.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(email.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", email.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")

	if email.HTMLBody != "" {
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		msg.WriteString(email.HTMLBody)
	} else {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		msg.WriteString(email.Body)
	}
	return msg.Bytes()
}

// SendWithTemplate renders a named template as the HTML body.
func (s *Service) SendWithTemplate(to []string, subject, templateName string, data interface{}) error {
	body, err := s.Render(templateName, data)
	if err != nil {
		return err
	}
	return s.Send(&Email{
		To:       to,
		Subject:  subject,
		HTMLBody: body,
	})
}

// Render executes a named template.
func (s *Service) Render(templateName string, data interface{}) (string, error) {
	tmpl, ok := s.templates[templateName]
	if !ok {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return body.String(), nil
}

// ============================================
// Convenience Methods
// ============================================

// TaskAssignedData holds data for task assigned email
type TaskAssignedData struct {
	AssigneeName string
	AssignerName string
	TaskTitle    string
	ProjectName  string
	Priority     string
	DueDate      string
	TaskURL      string
}

func (s *Service) SendTaskAssigned(to string, data TaskAssignedData) error {
	return s.SendWithTemplate(
		[]string{to},
		fmt.Sprintf("[ORA] Task Assigned: %s", data.TaskTitle),
		TemplateTaskAssigned,
		data,
	)
}

// DueDateReminderData holds data for due date reminder email
type DueDateReminderData struct {
	UserName    string
	TaskTitle   string
	ProjectName string
	DueDate     string
	TaskURL     string
}

func (s *Service) SendDueDateReminder(to string, data DueDateReminderData) error {
	return s.SendWithTemplate(
		[]string{to},
		fmt.Sprintf("[ORA] Due soon: %s", data.TaskTitle),
		TemplateDueDateReminder,
		data,
	)
}

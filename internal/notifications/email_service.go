package notifications

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"sorso/internal/report"
	"sorso/internal/shared/config"
	"sorso/pkg/logger"
)

// AlertSender delivers a reservation alert to the staff
type AlertSender interface {
	SendReservationAlert(ctx context.Context, alert *ReservationAlert) error
}

// SMTPConfig holds SMTP configuration
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	To        string
	UseTLS    bool
}

// NewSMTPConfig maps the application e-mail settings
func NewSMTPConfig(cfg config.EmailConfig) *SMTPConfig {
	return &SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		FromEmail: cfg.FromEmail,
		FromName:  cfg.FromName,
		To:        cfg.StaffAlertEmail,
		UseTLS:    true,
	}
}

func validateSMTPConfig(config *SMTPConfig) error {
	if config == nil {
		return fmt.Errorf("SMTP config is nil")
	}
	if config.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("SMTP port must be between 1 and 65535")
	}
	if config.Username == "" {
		return fmt.Errorf("SMTP username is required")
	}
	if config.FromEmail == "" {
		return fmt.Errorf("from email is required")
	}
	if config.To == "" {
		return fmt.Errorf("staff alert recipient is required")
	}
	return nil
}

var alertTemplate = template.Must(template.New("alert").Parse(`
<h2>Nuova prenotazione {{.Ref}}</h2>
<p><strong>{{.EventTitle}}</strong> ({{.EventDate}})</p>
<ul>
  <li>Nome: {{.Name}}</li>
  <li>Telefono: {{.Phone}}</li>
  <li>Pacchetto: {{.PackageLabel}}</li>
  <li>Tavoli: {{.Tables}} ({{.People}} persone)</li>
  <li>Totale: {{.Total}}</li>
  {{if .Notes}}<li>Note: {{.Notes}}</li>{{end}}
</ul>
`))

type alertView struct {
	*ReservationAlert
	Total string
}

// AlertSubject is the e-mail subject line of an alert
func AlertSubject(alert *ReservationAlert) string {
	return fmt.Sprintf("Nuova prenotazione: %s – %d tavoli %s", alert.EventTitle, alert.Tables, alert.PackageLabel)
}

// AlertText renders the plain text body of an alert
func AlertText(alert *ReservationAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nuova prenotazione %s\n\n", alert.Ref)
	fmt.Fprintf(&b, "Serata: %s (%s)\n", alert.EventTitle, alert.EventDate)
	fmt.Fprintf(&b, "Nome: %s\n", alert.Name)
	fmt.Fprintf(&b, "Telefono: %s\n", alert.Phone)
	fmt.Fprintf(&b, "Pacchetto: %s\n", alert.PackageLabel)
	fmt.Fprintf(&b, "Tavoli: %d (%d persone)\n", alert.Tables, alert.People)
	fmt.Fprintf(&b, "Totale: %s\n", report.Euro(alert.Total))
	if alert.Notes != "" {
		fmt.Fprintf(&b, "Note: %s\n", alert.Notes)
	}
	return b.String()
}

// AlertHTML renders the HTML body of an alert
func AlertHTML(alert *ReservationAlert) (string, error) {
	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, alertView{ReservationAlert: alert, Total: report.Euro(alert.Total)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SMTPAlertSender mails alerts to the staff mailbox
type SMTPAlertSender struct {
	config *SMTPConfig
	log    *logger.Logger
}

func NewSMTPAlertSender(config *SMTPConfig, log *logger.Logger) (*SMTPAlertSender, error) {
	if err := validateSMTPConfig(config); err != nil {
		return nil, fmt.Errorf("invalid SMTP configuration: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &SMTPAlertSender{config: config, log: log.WithComponent("smtp")}, nil
}

func (s *SMTPAlertSender) SendReservationAlert(ctx context.Context, alert *ReservationAlert) error {
	htmlBody, err := AlertHTML(alert)
	if err != nil {
		return fmt.Errorf("failed to render alert: %w", err)
	}
	message := s.buildMessage(s.config.To, AlertSubject(alert), htmlBody, AlertText(alert))

	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	if s.config.UseTLS {
		err = s.sendWithSTARTTLS(addr, auth, s.config.To, message)
	} else {
		err = smtp.SendMail(addr, auth, s.config.FromEmail, []string{s.config.To}, message)
	}
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.DebugWithContext(ctx, "alert mailed", map[string]interface{}{"ref": alert.Ref})
	return nil
}

func (s *SMTPAlertSender) sendWithSTARTTLS(addr string, auth smtp.Auth, to string, message []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Quit()

	if err = client.StartTLS(&tls.Config{ServerName: s.config.Host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	if err = client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return w.Close()
}

// buildMessage creates a multipart/alternative message
func (s *SMTPAlertSender) buildMessage(to, subject, htmlBody, textBody string) []byte {
	boundary := "boundary_" + strconv.FormatInt(time.Now().UnixNano(), 10)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", s.config.FromName, s.config.FromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, textBody)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, htmlBody)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String())
}

// LogAlertSender writes alerts to the log instead of mailing them
type LogAlertSender struct {
	log *logger.Logger
}

func NewLogAlertSender(log *logger.Logger) *LogAlertSender {
	if log == nil {
		log = logger.Discard()
	}
	return &LogAlertSender{log: log.WithComponent("alert-log")}
}

func (s *LogAlertSender) SendReservationAlert(ctx context.Context, alert *ReservationAlert) error {
	s.log.InfoWithContext(ctx, AlertSubject(alert), map[string]interface{}{
		"ref":     alert.Ref,
		"event":   alert.EventID.String(),
		"package": alert.Package,
		"tables":  alert.Tables,
		"total":   report.Euro(alert.Total),
	})
	return nil
}

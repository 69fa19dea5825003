// Package mailer renders and sends transactional HTML mail.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type OTPData struct {
	Name    string
	OTP     int
	Minutes int
}

type ResetData struct {
	Name    string
	URL     string
	Minutes int
}

func RenderOTP(d OTPData) (string, error) {
	return render("otp.html", d)
}

func RenderReset(d ResetData) (string, error) {
	return render("reset_password.html", d)
}

func render(name string, data any) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return body.String(), nil
}

// SMTP sends mail through an authenticated relay. Port 465 uses implicit TLS,
// any other port upgrades with STARTTLS when the server offers it.
type SMTP struct {
	host     string
	port     int
	user     string
	password string
	from     string
	timeout  time.Duration
}

func NewSMTP(host string, port int, user, password, from string) *SMTP {
	return &SMTP{host: host, port: port, user: user, password: password, from: from, timeout: 30 * time.Second}
}

func (s *SMTP) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := buildMessage(s.from, to, subject, htmlBody)
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if s.port == 465 {
		conn = tls.Client(conn, &tls.Config{ServerName: s.host})
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))
	}

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer c.Close()

	if err := s.deliver(c, to, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return c.Quit()
}

func (s *SMTP) deliver(c *smtp.Client, to string, msg []byte) error {
	if s.port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
				return err
			}
		}
	}
	if s.user != "" {
		if err := c.Auth(smtp.PlainAuth("", s.user, s.password, s.host)); err != nil {
			return err
		}
	}
	if err := c.Mail(s.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// Log writes mail to the logger instead of sending it. Used when no SMTP
// account is configured.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Send(_ context.Context, to, subject, htmlBody string) error {
	l.Logger.Info("mail not sent, no smtp account configured", "to", to, "subject", subject, "bytes", len(htmlBody))
	return nil
}

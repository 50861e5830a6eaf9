// internal/service/email/service.go
package email

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Sender delivers one HTML email.
type Sender interface {
	Send(to, subject, bodyHTML string) error
}

// EmailSender handles outgoing emails via SMTP.
type EmailSender struct {
	smtpHost string
	smtpPort string
	username string
	password string
	fromName string
	secure   bool
}

// NewEmailSender creates a new SMTP email sender.
func NewEmailSender(host, port, user, pass, fromName string, secure bool) *EmailSender {
	return &EmailSender{
		smtpHost: host,
		smtpPort: port,
		username: user,
		password: pass,
		fromName: fromName,
		secure:   secure,
	}
}

// Send sends an email with a subject and body (HTML supported).
func (e *EmailSender) Send(to, subject, bodyHTML string) error {
	from := fmt.Sprintf("%s <%s>", e.fromName, e.username)
	msg := []byte(
		fmt.Sprintf("From: %s\r\n", from) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			buildHTMLTemplate(e.fromName, bodyHTML),
	)

	serverAddr := e.smtpHost + ":" + e.smtpPort
	auth := smtp.PlainAuth("", e.username, e.password, e.smtpHost)

	if !e.secure {
		// Port 587 - STARTTLS
		if err := smtp.SendMail(serverAddr, auth, e.username, []string{to}, msg); err != nil {
			return fmt.Errorf("send mail failed: %w", err)
		}
		return nil
	}

	// Port 465 - implicit TLS
	conn, err := tls.Dial("tcp", serverAddr, &tls.Config{ServerName: e.smtpHost})
	if err != nil {
		return fmt.Errorf("tls dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.smtpHost)
	if err != nil {
		return fmt.Errorf("smtp client failed: %w", err)
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth failed: %w", err)
	}
	return e.sendMail(client, to, msg)
}

func (e *EmailSender) sendMail(client *smtp.Client, to string, msg []byte) error {
	if err := client.Mail(e.username); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

// LogSender writes mail to the log instead of sending it. Used when SMTP is not configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) Send(to, subject, bodyHTML string) error {
	l.logger.Info("email not sent, smtp disabled",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(bodyHTML)))
	return nil
}

// buildHTMLTemplate wraps a body into the branded layout.
func buildHTMLTemplate(brand, content string) string {
	header := `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8" />
	<title>` + brand + `</title>
	<style>
		body { font-family: Arial, sans-serif; background-color: #f6f8fa; padding: 30px; }
		.container { max-width: 600px; margin: auto; background: #fff; border-radius: 10px; overflow: hidden; }
		.header { background: #0f3d2e; color: white; text-align: center; padding: 20px; font-size: 22px; font-weight: bold; }
		.body { padding: 25px; color: #333; line-height: 1.6; }
		.footer { background: #f1f1f1; color: #555; text-align: center; padding: 15px; font-size: 13px; }
		a.button { display: inline-block; background: #0f3d2e; color: white; padding: 10px 20px; border-radius: 5px; text-decoration: none; }
	</style>
</head>
<body>
<div class="container">
	<div class="header">` + brand + `</div>
	<div class="body">
`
	footer := `
	</div>
	<div class="footer"><p>This is an automated email, please do not reply.</p></div>
</div>
</body>
</html>`

	return header + strings.TrimSpace(content) + footer
}

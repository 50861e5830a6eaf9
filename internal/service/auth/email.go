// internal/service/auth/email.go
package auth

import (
	"fmt"
	"html"

	"ledgerdesk/internal/service/email"

	"go.uber.org/zap"
)

// EmailHelper builds account emails and sends them off the request path.
type EmailHelper struct {
	sender  email.Sender
	logger  *zap.Logger
	baseURL string
}

func NewEmailHelper(sender email.Sender, logger *zap.Logger, baseURL string) *EmailHelper {
	return &EmailHelper{
		sender:  sender,
		logger:  logger,
		baseURL: baseURL,
	}
}

// PasswordResetEmail builds a password reset email
func (h *EmailHelper) PasswordResetEmail(fullName, token string) (string, string) {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", h.baseURL, token)

	subject := "Reset your LedgerDesk password"
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>We received a request to reset your password.</p>
		<p><a href="%s" class="button">Reset Password</a></p>
		<p>The link expires in 30 minutes. If you did not ask for this, ignore this email.</p>
		<p>CLI users can run: <code>ledgerctl password reset --token %s</code></p>
	`, html.EscapeString(fullName), resetURL, token)

	return subject, body
}

// NewDeviceEmail warns the owner that a device is waiting for approval.
func (h *EmailHelper) NewDeviceEmail(fullName, deviceName, ip string) (string, string) {
	if deviceName == "" {
		deviceName = "Unknown device"
	}
	subject := "New sign-in waiting for approval"
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p><strong>%s</strong> (%s) signed in to your account and is waiting for approval.</p>
		<p>Approve or revoke it from your main device under Sessions.</p>
	`, html.EscapeString(fullName), html.EscapeString(deviceName), html.EscapeString(ip))

	return subject, body
}

// PasswordChangedEmail confirms a password change.
func (h *EmailHelper) PasswordChangedEmail(fullName string) (string, string) {
	subject := "Your password was changed"
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>Your password was changed and your other devices were signed out.</p>
		<p>If this was not you, reset your password immediately.</p>
	`, html.EscapeString(fullName))

	return subject, body
}

// EmployeeInviteEmail tells a new employee their account exists.
func (h *EmailHelper) EmployeeInviteEmail(fullName, managerName string) (string, string) {
	subject := "You have been added to LedgerDesk"
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>%s added you as an employee. Sign in with the credentials they shared with you.</p>
		<p><a href="%s" class="button">Sign in</a></p>
	`, html.EscapeString(fullName), html.EscapeString(managerName), h.baseURL)

	return subject, body
}

// send delivers asynchronously; failures are logged only.
func (h *EmailHelper) send(to, kind string, build func() (string, string)) {
	subject, body := build()
	go func() {
		if err := h.sender.Send(to, subject, body); err != nil {
			h.logger.Error("failed to send email",
				zap.String("kind", kind),
				zap.String("email", to),
				zap.Error(err),
			)
			return
		}
		h.logger.Info("email sent", zap.String("kind", kind), zap.String("email", to))
	}()
}

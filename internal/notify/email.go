// Package notify sends operator email notifications over SMTP.
package notify

import (
	"fmt"
	"html"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/elicheradice/support-platform/pkg/logger"
)

// Config carries the SMTP settings. An empty AdminEmail or Password
// disables sending entirely.
type Config struct {
	Host        string
	Port        string
	AdminEmail  string
	Password    string
	FrontendURL string
}

// Mailer sends admin notifications. Safe to use when unconfigured:
// sends become logged no-ops.
type Mailer struct {
	cfg    Config
	logger *logger.Logger
}

// NewMailer creates a mailer.
func NewMailer(cfg Config, log *logger.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: log}
}

// Configured reports whether credentials are present.
func (m *Mailer) Configured() bool {
	return m.cfg.AdminEmail != "" && m.cfg.Password != ""
}

// NotifyNewCustomer emails the admin that a new customer started a
// conversation. Returns nil when email is not configured.
func (m *Mailer) NotifyNewCustomer(customerName, customerPhone, conversationID string) error {
	if !m.Configured() {
		m.logger.Info("email not configured, skipping notification",
			zap.String("conversation_id", conversationID),
		)
		return nil
	}

	subject := fmt.Sprintf("New Customer: %s - %s", customerName, customerPhone)
	body := m.newCustomerBody(customerName, customerPhone, conversationID)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: \"Eliche Radice LB Chat\" <%s>\r\n", m.cfg.AdminEmail)
	fmt.Fprintf(&msg, "To: %s\r\n", m.cfg.AdminEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.AdminEmail, m.cfg.Password, m.cfg.Host)

	if err := smtp.SendMail(addr, auth, m.cfg.AdminEmail, []string{m.cfg.AdminEmail}, []byte(msg.String())); err != nil {
		return fmt.Errorf("notify: send mail: %w", err)
	}

	m.logger.Info("admin notification sent",
		zap.String("customer_name", customerName),
		zap.String("conversation_id", conversationID),
	)
	return nil
}

func (m *Mailer) newCustomerBody(customerName, customerPhone, conversationID string) string {
	dashboard := strings.TrimSuffix(m.cfg.FrontendURL, "/") + "/operator"

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; background: #f5f5f5; padding: 20px;">
  <div style="max-width: 600px; margin: 0 auto; background: white; border-radius: 10px; padding: 30px;">
    <h1 style="color: #8B6644;">New Customer Inquiry</h1>
    <p>A new customer has started a conversation and needs assistance.</p>
    <table style="width: 100%%; border-collapse: collapse;">
      <tr><td style="padding: 8px; color: #6B7280;">Customer Name</td><td style="padding: 8px;"><strong>%s</strong></td></tr>
      <tr><td style="padding: 8px; color: #6B7280;">Phone Number</td><td style="padding: 8px;"><strong>%s</strong></td></tr>
      <tr><td style="padding: 8px; color: #6B7280;">Conversation ID</td><td style="padding: 8px;"><code>%s</code></td></tr>
      <tr><td style="padding: 8px; color: #6B7280;">Time</td><td style="padding: 8px;">%s</td></tr>
    </table>
    <p style="text-align: center; margin: 30px 0;">
      <a href="%s" style="background: #D4A574; color: white; text-decoration: none; padding: 12px 30px; border-radius: 6px;">Open Operator Dashboard</a>
    </p>
    <p style="color: #92400E; font-size: 13px;"><strong>Quick Response Required:</strong> Customer is waiting for assistance.</p>
    <hr>
    <p style="color: #6B7280; font-size: 12px; text-align: center;">Eliche Radice LB - This is an automated notification from your customer chat system.</p>
  </div>
</body>
</html>`,
		html.EscapeString(customerName),
		html.EscapeString(customerPhone),
		html.EscapeString(conversationID),
		time.Now().Format("Monday, January 2, 2006 03:04 PM"),
		html.EscapeString(dashboard),
	)
}

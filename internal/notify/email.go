// email.go implements the "email" channel: one plain-text SMTP mail per
// recipient, with recipient addresses resolved from user ids at send time so
// a role change between detection and delivery is picked up automatically.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"

	"github.com/order-sentinel/order-sentinel/internal/config"
	"github.com/order-sentinel/order-sentinel/internal/db/models"
)

// RecipientDirectory resolves recipient user ids to user records. Satisfied
// by repositories.UserRepository.
type RecipientDirectory interface {
	GetUsersByIDs(ctx context.Context, userIDs []string) ([]*models.User, error)
}

// EmailChannel delivers alerts as plain-text email via SMTP.
type EmailChannel struct {
	cfg   config.SMTPConfig
	users RecipientDirectory

	// send is swapped out in tests; defaults to the real SMTP path.
	send func(cfg config.SMTPConfig, toEmail string, msg []byte) error
}

// NewEmailChannel creates the email channel. The channel is constructed even
// when SMTP is unconfigured; Deliver then fails per-alert, which surfaces in
// the notification error counter instead of at startup.
func NewEmailChannel(cfg config.SMTPConfig, users RecipientDirectory) *EmailChannel {
	return &EmailChannel{cfg: cfg, users: users, send: sendSMTP}
}

func (c *EmailChannel) Name() string { return "email" }

// Deliver resolves each recipient's address and sends one mail per recipient.
// Recipients without a resolvable address are skipped; the alert fails only
// when no mail at all could be sent.
func (c *EmailChannel) Deliver(ctx context.Context, recipientIDs []string, p Payload) error {
	if c.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	users, err := c.users.GetUsersByIDs(ctx, recipientIDs)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}

	sent := 0
	for _, u := range users {
		if u.Email == "" {
			continue
		}

		msg := composeAlertMail(c.cfg.From, u, p)
		if err := c.send(c.cfg, u.Email, msg); err != nil {
			slog.Error("alert mail failed", "to", u.Email, "subject", p.Subject, "error", err)
			continue
		}
		sent++
	}

	if sent == 0 {
		return fmt.Errorf("no alert mail could be delivered to %d recipient(s)", len(recipientIDs))
	}
	return nil
}

// composeAlertMail renders a plain-text RFC 5322 message for one recipient.
func composeAlertMail(from string, to *models.User, p Payload) []byte {
	body := strings.Join([]string{
		fmt.Sprintf("Hello %s,", to.Username),
		"",
		p.Message,
		"",
		fmt.Sprintf("Severity: %s", p.Severity),
		"",
		"Review and resolve this finding in the Order Sentinel admin console.",
		"",
		"— Order Sentinel",
	}, "\r\n")

	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		from, to.Email, p.Subject,
	)
	return []byte(headers + body + "\r\n")
}

// sendSMTP delivers one message, choosing the encrypted path when configured.
func sendSMTP(cfg config.SMTPConfig, toEmail string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)

	if cfg.UseTLS {
		return sendMailTLS(addr, cfg.Host, auth, cfg.From, []string{toEmail}, msg)
	}
	return smtp.SendMail(addr, auth, cfg.From, []string{toEmail}, msg)
}

// sendMailTLS connects via implicit TLS (port 465 / SMTPS) and sends a message.
// Use this when UseTLS=true and the port is 465; for port 587 STARTTLS,
// smtp.SendMail handles the upgrade automatically — but we call this path for
// both so the config is unambiguous: UseTLS=true always means an encrypted connection.
func sendMailTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		// Fall back to STARTTLS via the standard smtp.SendMail path (port 587 pattern)
		return smtp.SendMail(addr, auth, from, to, msg)
	}
	defer conn.Close()

	hostname, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, hostname)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, addr := range to {
		if err := c.Rcpt(addr); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", addr, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}

// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/tomtom215/kindred/internal/config"
	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/receipt"
)

var emailBody = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Helvetica, Arial, sans-serif; color: #222;">
<p>Dear {{.Name}},</p>
<p>Thank you for your donation of <strong>{{.Currency}} {{.Amount}}</strong>{{if .Campaign}} to <strong>{{.Campaign}}</strong>{{end}}.</p>
<p>Your receipt for order <strong>{{.OrderID}}</strong> is attached.</p>
<p>With gratitude,<br>{{.OrgName}}</p>
</body>
</html>
`))

// EmailNotifier sends the receipt as a PDF attachment over SMTP.
type EmailNotifier struct {
	cfg  config.EmailConfig
	send func(ctx context.Context, to string, msg []byte) error
	now  func() time.Time
}

// NewEmailNotifier creates an SMTP notifier.
func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	n := &EmailNotifier{cfg: cfg, now: time.Now}
	n.send = n.sendSMTP
	return n
}

// Channel implements Notifier.
func (n *EmailNotifier) Channel() ChannelName { return ChannelEmail }

// Notify implements Notifier.
func (n *EmailNotifier) Notify(ctx context.Context, d *Delivery) ChannelResult {
	if d.DonorEmail == "" {
		return ChannelResult{Channel: ChannelEmail, Skipped: true}
	}
	recipient := logging.SanitizeEmail(d.DonorEmail)
	if _, err := mail.ParseAddress(d.DonorEmail); err != nil {
		return failed(ChannelEmail, recipient, ErrorCodeRejected, fmt.Errorf("invalid recipient address: %w", err))
	}

	msg, err := n.buildMessage(d)
	if err != nil {
		return failed(ChannelEmail, recipient, ErrorCodeUnknown, err)
	}
	if err := n.send(ctx, d.DonorEmail, msg); err != nil {
		return failed(ChannelEmail, recipient, classifyEmailError(err), err)
	}
	return ChannelResult{Channel: ChannelEmail, Success: true, Recipient: recipient}
}

// buildMessage builds a multipart/mixed message with an HTML body and the
// receipt attached.
func (n *EmailNotifier) buildMessage(d *Delivery) ([]byte, error) {
	var html bytes.Buffer
	name := d.DonorName
	if name == "" {
		name = "Donor"
	}
	if err := emailBody.Execute(&html, map[string]string{
		"Name":     name,
		"Currency": d.Currency,
		"Amount":   receipt.FormatAmount(d.Amount),
		"Campaign": d.CampaignTitle,
		"OrderID":  d.OrderID,
		"OrgName":  n.cfg.FromName,
	}); err != nil {
		return nil, fmt.Errorf("render email body: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	var msg bytes.Buffer
	from := (&mail.Address{Name: n.cfg.FromName, Address: n.cfg.From}).String()
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", d.DonorEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", "Your donation receipt "+d.OrderID))
	fmt.Fprintf(&msg, "Date: %s\r\n", n.now().Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "X-Kindred-Order-ID: %s\r\n", d.OrderID)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=UTF-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	writeBase64Lines(htmlPart, html.Bytes())

	filename := d.Filename
	if filename == "" {
		filename = receipt.Filename(d.OrderID)
	}
	attachment, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {fmt.Sprintf("application/pdf; name=%q", filename)},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", filename)},
	})
	if err != nil {
		return nil, err
	}
	writeBase64Lines(attachment, d.Receipt)

	if err := mw.Close(); err != nil {
		return nil, err
	}
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// writeBase64Lines writes data base64-encoded in 76 column lines.
func writeBase64Lines(w io.Writer, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		_, _ = w.Write([]byte(encoded[:76] + "\r\n"))
		encoded = encoded[76:]
	}
	if encoded != "" {
		_, _ = w.Write([]byte(encoded + "\r\n"))
	}
}

func (n *EmailNotifier) sendSMTP(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(n.cfg.Host, fmt.Sprintf("%d", n.cfg.Port))

	dialer := &net.Dialer{Timeout: n.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if n.cfg.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(n.cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if n.cfg.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	if n.cfg.Username != "" && n.cfg.Password != "" {
		if err := client.Auth(smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err := client.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}
	_ = client.Quit()
	return nil
}

func classifyEmailError(err error) string {
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "authentication"):
		return ErrorCodeAuthFailed
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline"):
		return ErrorCodeTimeout
	case strings.Contains(errStr, "connect"):
		return ErrorCodeConnectionFailed
	case strings.Contains(errStr, "recipient"), strings.Contains(errStr, "mailbox"):
		return ErrorCodeRejected
	default:
		return ErrorCodeUnknown
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package send

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/smtp"

	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

// SMTPSender delivers messages through an SMTP relay with STARTTLS and
// PLAIN authentication.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string

	// sendMail is the transport function; tests substitute it.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a sender for the configured relay.
func NewSMTPSender(cfg types.SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("no SMTP host configured")
	}
	port := cfg.Port
	if port <= 0 {
		port = 587
	}
	return &SMTPSender{
		Host:     cfg.Host,
		Port:     port,
		Username: cfg.Username,
		Password: cfg.Password,
		sendMail: smtp.SendMail,
	}, nil
}

func (s *SMTPSender) Name() string {
	return "smtp"
}

// Send encodes the message as multipart/alternative and submits it. The
// relay does not return a message ID, so the returned ID is always empty.
// net/smtp has no context support; cancellation is only checked before
// the submission starts.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := encodeMIME(msg)
	if err != nil {
		return "", fmt.Errorf("encoding message: %w", err)
	}

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	if err := s.sendMail(addr, auth, msg.From, []string{msg.To}, raw); err != nil {
		return "", fmt.Errorf("smtp submission to %s: %w", addr, err)
	}
	return "", nil
}

// mimeBoundary separates the alternative parts. A fixed boundary is safe
// because both parts are quoted-printable encoded and cannot contain it.
const mimeBoundary = "outreach-alt-5c1e9a407b22"

// encodeMIME renders the message as a multipart/alternative document with
// quoted-printable UTF-8 plain-text and HTML parts.
func encodeMIME(msg Message) ([]byte, error) {
	var buf bytes.Buffer

	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.FromName), msg.From)
	}

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	if msg.ReplyTo != "" {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n", mimeBoundary)
	buf.WriteString("\r\n")

	// Plain-text part first so clients prefer the HTML alternative.
	if err := writePart(&buf, "text/plain", msg.Text); err != nil {
		return nil, err
	}
	if err := writePart(&buf, "text/html", msg.HTML); err != nil {
		return nil, err
	}
	fmt.Fprintf(&buf, "--%s--\r\n", mimeBoundary)

	return buf.Bytes(), nil
}

func writePart(buf *bytes.Buffer, contentType, body string) error {
	fmt.Fprintf(buf, "--%s\r\n", mimeBoundary)
	fmt.Fprintf(buf, "Content-Type: %s; charset=\"utf-8\"\r\n", contentType)
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(buf)
	if _, err := qp.Write([]byte(body)); err != nil {
		return fmt.Errorf("encoding %s part: %w", contentType, err)
	}
	if err := qp.Close(); err != nil {
		return fmt.Errorf("finishing %s part: %w", contentType, err)
	}
	buf.WriteString("\r\n")
	return nil
}

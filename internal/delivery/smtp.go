package delivery

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"regexp"
	"strings"
	"time"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

// smtpCodeRe pulls the reply code off an SMTP error string so failures
// can be classified as temporary (4xx) or permanent (5xx).
var smtpCodeRe = regexp.MustCompile(`^(\d{3})[ -]`)

// SMTPTransport delivers mail through the relay described by the active
// transport settings. STARTTLS is used when tls_enabled is set; implicit
// TLS when ssl_enabled is set.
type SMTPTransport struct {
	settings *domain.TransportSettings
	timeout  time.Duration
}

// NewSMTPTransport creates an SMTP transport from settings.
func NewSMTPTransport(settings *domain.TransportSettings) *SMTPTransport {
	return &SMTPTransport{settings: settings, timeout: 30 * time.Second}
}

// Name identifies the transport in logs and rate-limiter keys.
func (t *SMTPTransport) Name() string { return "smtp:" + t.settings.Host }

// Send delivers one message. Connection, handshake, and data errors are
// returned as TransportError so the caller's retry policy can
// distinguish temporary from permanent failures.
func (t *SMTPTransport) Send(ctx context.Context, msg *Message) error {
	addr := net.JoinHostPort(t.settings.Host, fmt.Sprintf("%d", t.settings.Port))

	dialer := &net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return temporaryf("connection failed to %s: %v", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(t.timeout))
	}

	if t.settings.SSLEnabled {
		conn = tls.Client(conn, &tls.Config{ServerName: t.settings.Host})
	}

	client, err := smtp.NewClient(conn, t.settings.Host)
	if err != nil {
		return temporaryf("SMTP handshake with %s: %v", addr, err)
	}
	defer client.Close()

	if t.settings.TLSEnabled && !t.settings.SSLEnabled {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: t.settings.Host}); err != nil {
				return temporaryf("STARTTLS with %s: %v", addr, err)
			}
		}
	}

	if t.settings.Username != "" {
		auth := smtp.PlainAuth("", t.settings.Username, t.settings.Password, t.settings.Host)
		if err := client.Auth(auth); err != nil {
			return categorize(fmt.Sprintf("AUTH with %s: %v", addr, err), err)
		}
	}

	if err := client.Mail(msg.From); err != nil {
		return categorize("MAIL FROM rejected: "+err.Error(), err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return categorize("RCPT TO rejected: "+err.Error(), err)
	}

	w, err := client.Data()
	if err != nil {
		return categorize("DATA rejected: "+err.Error(), err)
	}
	if _, err := w.Write(buildMIME(msg)); err != nil {
		return temporaryf("write message body: %v", err)
	}
	if err := w.Close(); err != nil {
		return categorize("message not accepted: "+err.Error(), err)
	}

	return client.Quit()
}

// categorize maps an SMTP reply to a TransportError: 5xx replies are
// permanent, everything else is worth retrying.
func categorize(msg string, err error) *TransportError {
	code := smtpCodeRe.FindStringSubmatch(strings.TrimSpace(err.Error()))
	if len(code) == 2 && strings.HasPrefix(code[1], "5") {
		return &TransportError{Permanent: true, Message: msg}
	}
	return &TransportError{Permanent: false, Message: msg}
}

func buildMIME(msg *Message) []byte {
	var b strings.Builder
	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.FromName), msg.From)
	}
	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.ToName), msg.To)
	}

	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	if msg.ReplyTo != "" {
		b.WriteString("Reply-To: " + msg.ReplyTo + "\r\n")
	}
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTMLBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}

package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

// SMTPMode selects how the connection is secured.
type SMTPMode string

const (
	// ModeImplicitTLS wraps the connection in TLS before SMTP starts
	// (the 465 style).
	ModeImplicitTLS SMTPMode = "IMPLICIT_TLS"

	// ModeSTARTTLS opens a plaintext connection and upgrades it
	// (the 587 style).
	ModeSTARTTLS SMTPMode = "STARTTLS"
)

// Dialer abstracts net.Dialer to simplify testing.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// SMTPConfig carries relay settings for one port/mode pair.
type SMTPConfig struct {
	Host     string
	Port     int
	Mode     SMTPMode
	Username string
	Password string
}

// SMTPTransport delivers email over a direct relay connection. Each Send
// opens a connection, authenticates, sends one message, and closes; the
// connection is released on every exit path.
type SMTPTransport struct {
	host      string
	port      int
	mode      SMTPMode
	username  string
	password  string
	dialer    Dialer
	tlsConfig *tls.Config
	helloName string
}

func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid smtp port %d", cfg.Port)
	}
	if cfg.Mode != ModeImplicitTLS && cfg.Mode != ModeSTARTTLS {
		return nil, fmt.Errorf("invalid smtp mode %q", cfg.Mode)
	}

	host := strings.TrimSpace(cfg.Host)

	return &SMTPTransport{
		host:     host,
		port:     cfg.Port,
		mode:     cfg.Mode,
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		dialer:   &net.Dialer{Timeout: 10 * time.Second},
		tlsConfig: &tls.Config{
			ServerName: host,
			MinVersion: tls.VersionTLS12,
		},
		helloName: "localhost",
	}, nil
}

// SetDialer swaps the network dialer. Used in tests.
func (t *SMTPTransport) SetDialer(d Dialer) {
	if t != nil && d != nil {
		t.dialer = d
	}
}

func (t *SMTPTransport) Name() string {
	return fmt.Sprintf("smtp-%d", t.port)
}

func (t *SMTPTransport) Send(ctx context.Context, email Email) (*SendReceipt, error) {
	if t == nil || t.dialer == nil {
		return nil, fmt.Errorf("transport is not initialized")
	}
	if t.host == "" || t.username == "" || t.password == "" {
		return nil, &TransportError{
			Reason:  ReasonAuthMissing,
			Message: "smtp credentials are not configured",
		}
	}

	message := buildMessage(email)

	if err := t.deliver(ctx, email.From, email.To, message); err != nil {
		return nil, err
	}

	return &SendReceipt{StatusCode: 250}, nil
}

func (t *SMTPTransport) deliver(ctx context.Context, from, to string, message []byte) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Reason: ReasonNetworkError, Message: "context done before dial", Cause: err}
	}

	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))
	conn, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &TransportError{Reason: ReasonConnectFailed, Message: "smtp dial failed", Cause: err}
	}
	defer conn.Close()

	if t.mode == ModeImplicitTLS {
		tlsConn := tls.Client(conn, t.sessionTLSConfig())
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return &TransportError{Reason: ReasonConnectFailed, Message: "smtp tls handshake failed", Cause: err}
		}
		conn = tlsConn
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// Unblocks protocol reads if the caller gives up mid-session.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		return &TransportError{Reason: ReasonConnectFailed, Message: "smtp greeting failed", Cause: err}
	}
	defer client.Close()

	if err := client.Hello(t.helloName); err != nil {
		return &TransportError{Reason: ReasonNetworkError, Message: "smtp hello failed", Cause: err}
	}

	if t.mode == ModeSTARTTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(t.sessionTLSConfig()); err != nil {
				return &TransportError{Reason: ReasonConnectFailed, Message: "smtp starttls failed", Cause: err}
			}
		}
	}

	auth := smtp.PlainAuth("", t.username, t.password, t.host)
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(auth); err != nil {
			return &TransportError{Reason: ReasonAuthRejected, Message: "smtp auth rejected", Cause: err}
		}
	}

	if err := client.Mail(from); err != nil {
		return smtpProtocolError("smtp mail from failed", err)
	}
	if err := client.Rcpt(to); err != nil {
		return smtpProtocolError("smtp rcpt to failed", err)
	}

	writer, err := client.Data()
	if err != nil {
		return smtpProtocolError("smtp data failed", err)
	}
	if _, err := writer.Write(message); err != nil {
		_ = writer.Close()
		return smtpProtocolError("smtp data write failed", err)
	}
	if err := writer.Close(); err != nil {
		return smtpProtocolError("smtp data close failed", err)
	}

	if err := client.Quit(); err != nil && !errors.Is(err, io.EOF) {
		return smtpProtocolError("smtp quit failed", err)
	}

	if err := ctx.Err(); err != nil {
		return &TransportError{Reason: ReasonNetworkError, Message: "context done during send", Cause: err}
	}

	return nil
}

func (t *SMTPTransport) sessionTLSConfig() *tls.Config {
	cfg := t.tlsConfig.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = t.host
	}
	return cfg
}

func smtpProtocolError(message string, err error) error {
	te := &TransportError{
		Reason:  ReasonNetworkError,
		Message: message,
		Cause:   err,
	}

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		te.Reason = ReasonRemoteRejected
		te.StatusCode = tpErr.Code
	}

	return te
}

func buildMessage(email Email) []byte {
	var buf bytes.Buffer

	writeHeader(&buf, "From", email.From)
	writeHeader(&buf, "To", email.To)
	if email.ReplyTo != "" {
		writeHeader(&buf, "Reply-To", email.ReplyTo)
	}
	writeHeader(&buf, "Subject", email.Subject)
	writeHeader(&buf, "Date", time.Now().UTC().Format(time.RFC1123Z))
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", "text/plain; charset=UTF-8")
	buf.WriteString("\r\n")
	buf.WriteString(normalizeBody(email.Body))

	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	clean := strings.ReplaceAll(value, "\r", " ")
	clean = strings.ReplaceAll(clean, "\n", " ")

	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(strings.TrimSpace(clean))
	buf.WriteString("\r\n")
}

func normalizeBody(body string) string {
	if body == "" {
		return ""
	}
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.ReplaceAll(normalized, "\n", "\r\n")
}

package provider

import "context"

// Email is one formatted notification. Transports send it as-is in a single
// synchronous attempt; none of them buffer or retry internally.
type Email struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Body    string
}

// SendReceipt stores transport call metadata for logs and metrics.
type SendReceipt struct {
	StatusCode int
	MessageID  string
}

// Transport is the outbound email delivery port.
type Transport interface {
	Name() string
	Send(ctx context.Context, email Email) (*SendReceipt, error)
}

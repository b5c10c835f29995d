package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultAPIEndpoint = "https://api.resend.com/emails"
	defaultAPITimeout  = 10 * time.Second
)

type apiSendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

type apiSendResponse struct {
	ID string `json:"id"`
}

// APITransport sends email through a hosted transactional-email HTTP API.
// It exists because some hosts block outbound SMTP ports entirely.
type APITransport struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

func NewAPITransport(endpoint, apiKey string) (*APITransport, error) {
	client := resty.New()
	client.SetTimeout(defaultAPITimeout)
	client.SetRetryCount(0)

	return NewAPITransportWithClient(endpoint, apiKey, client)
}

func NewAPITransportWithClient(endpoint, apiKey string, client *resty.Client) (*APITransport, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		trimmedEndpoint = defaultAPIEndpoint
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid email API endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultAPITimeout)
	}
	client.SetRetryCount(0)

	return &APITransport{
		client:   client,
		endpoint: trimmedEndpoint,
		apiKey:   strings.TrimSpace(apiKey),
	}, nil
}

func (t *APITransport) Name() string { return "email-api" }

func (t *APITransport) Send(ctx context.Context, email Email) (*SendReceipt, error) {
	if t == nil || t.client == nil {
		return nil, fmt.Errorf("transport is not initialized")
	}
	if t.apiKey == "" {
		return nil, &TransportError{
			Reason:  ReasonAuthMissing,
			Message: "email API key is not configured",
		}
	}

	reqBody := apiSendRequest{
		From:    email.From,
		To:      []string{email.To},
		ReplyTo: email.ReplyTo,
		Subject: email.Subject,
		Text:    email.Body,
	}

	response, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(t.apiKey).
		SetBody(reqBody).
		Post(t.endpoint)
	if err != nil {
		reason := ReasonNetworkError
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonConnectFailed
		}
		return nil, &TransportError{
			Reason:  reason,
			Message: "email API request failed",
			Cause:   err,
		}
	}
	if response == nil {
		return nil, &TransportError{
			Reason:  ReasonNetworkError,
			Message: "email API returned empty response",
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &SendReceipt{
			StatusCode: statusCode,
			MessageID:  apiMessageID(response),
		}, nil
	}

	return nil, &TransportError{
		Reason:     ReasonRemoteRejected,
		StatusCode: statusCode,
		Message:    apiErrorMessage(statusCode, strings.TrimSpace(response.String())),
	}
}

func apiErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("email API returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func apiMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	var parsed apiSendResponse
	if err := json.Unmarshal(response.Body(), &parsed); err == nil {
		if id := strings.TrimSpace(parsed.ID); id != "" {
			return id
		}
	}

	for _, key := range []string{"X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}

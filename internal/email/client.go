package email

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

// Client posts notifications to the email service.
type Client struct {
	http *resty.Client
}

type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 200 * time.Millisecond
	}

	hc := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   cfg.Timeout,
	}

	rc := resty.NewWithClient(hc).
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(4 * cfg.RetryWait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{http: rc}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Send delivers n through POST /send. Server errors are retried; client
// errors are returned immediately.
func (c *Client) Send(ctx context.Context, n domain.OrderNotification) error {
	var apiErr errorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(Message{
			OrderID: n.OrderID,
			To:      n.To,
			Subject: n.Subject,
			Body:    n.Body,
			HTML:    n.HTML,
		}).
		SetError(&apiErr).
		Post("/send")
	if err != nil {
		return errors.Wrap(err, "send email")
	}

	if resp.IsError() {
		return errors.Errorf("email service returned status %d: %s", resp.StatusCode(), apiErr.Error)
	}

	return nil
}

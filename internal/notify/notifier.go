// Package notify delivers watchlist alerts to an external webhook.
// Transport beyond the webhook boundary (email, Slack fan-out) is the
// receiver's problem.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/bioma-cli/internal/config"
	"github.com/sells-group/bioma-cli/internal/model"
	"github.com/sells-group/bioma-cli/internal/resilience"
)

// Notifier delivers one alert. Implementations must be safe for
// concurrent use; the watchlist alert sweep calls from many goroutines.
type Notifier interface {
	Notify(ctx context.Context, alert model.AlertNotification) error
}

// Nop discards alerts. Used when no webhook is configured.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, model.AlertNotification) error { return nil }

// Webhook posts alert JSON to a configured URL, rate-limited and
// retried on transient failures.
type Webhook struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewWebhook builds a Webhook notifier from config. Returns a Nop
// notifier when no URL is configured, so callers never branch.
func NewWebhook(cfg config.NotifyConfig) Notifier {
	if cfg.WebhookURL == "" {
		return Nop{}
	}

	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	return &Webhook{
		url:     cfg.WebhookURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(perMinute/60), burst),
		retry:   resilience.DefaultRetryConfig(),
	}
}

// Notify implements Notifier. Blocks on the rate limiter, then posts
// with retry on transient failures.
func (w *Webhook) Notify(ctx context.Context, alert model.AlertNotification) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "notify: rate limit wait")
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "notify: marshal alert")
	}

	err = resilience.Do(ctx, w.retry, func(ctx context.Context) error {
		return w.post(ctx, payload)
	})
	if err != nil {
		return eris.Wrapf(err, "notify: deliver alert %s", alert.ID)
	}

	zap.L().Debug("notify: alert delivered",
		zap.String("alert_id", alert.ID),
		zap.String("company_id", alert.CompanyID),
	)
	return nil
}

func (w *Webhook) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: post webhook")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	err = eris.Errorf("notify: webhook returned %d", resp.StatusCode)
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return resilience.NewTransientError(err, resp.StatusCode)
	}
	return err
}

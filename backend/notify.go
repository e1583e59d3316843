package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Notifier receives alert lifecycle events: raises and every history entry.
type Notifier interface {
	Notify(event string, payload interface{})
}

// WebhookNotifier posts events as JSON to an operator-supplied URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

// NewWebhookNotifier validates rawURL and returns a notifier for it.
func NewWebhookNotifier(rawURL string, log *zap.Logger) (*WebhookNotifier, error) {
	if err := validateWebhookURL(rawURL); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookNotifier{
		url:    rawURL,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    log.Named("webhook"),
	}, nil
}

// Notify sends the event asynchronously. Delivery failures are logged only.
func (n *WebhookNotifier) Notify(event string, payload interface{}) {
	go func() {
		if err := n.send(context.Background(), event, payload); err != nil {
			n.log.Warn("webhook delivery failed", zap.String("event", event), zap.Error(err))
		}
	}()
}

func (n *WebhookNotifier) send(ctx context.Context, event string, payload interface{}) error {
	data, err := json.Marshal(map[string]interface{}{
		"event":   event,
		"payload": payload,
		"ts":      time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return errors.Newf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

// validateWebhookURL requires http(s) and rejects loopback, private,
// link-local and cloud metadata targets.
func validateWebhookURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrap(err, "invalid webhook URL")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return errors.Newf("webhook URL must use http or https scheme, got %q", scheme)
	}
	host := strings.ToLower(u.Hostname())
	switch host {
	case "", "localhost", "metadata.google.internal":
		return errors.Newf("webhook URL host %q is blocked", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return errors.Newf("webhook URL host %q is blocked", host)
		}
	}
	return nil
}

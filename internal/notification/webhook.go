package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Webhook POSTs lab alerts as JSON to an operator-supplied URL, e.g. a chat
// incoming hook. The alert level is repeated in X-Lab-Alert-Level so a relay
// can route without parsing the body.
type Webhook struct {
	endpoint string
	hc       *http.Client
}

// DefaultWebhookTimeout bounds one delivery attempt.
const DefaultWebhookTimeout = 10 * time.Second

// NewWebhook targets endpoint. timeout <= 0 uses DefaultWebhookTimeout.
func NewWebhook(endpoint string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &Webhook{endpoint: endpoint, hc: &http.Client{Timeout: timeout}}
}

func (wh *Webhook) Send(ctx context.Context, a Alert) error {
	if a.TS.IsZero() {
		a.TS = time.Now().UTC()
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode %q alert: %w", a.Title, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "labserver-alerts")
	req.Header.Set("X-Lab-Alert-Level", string(a.Level))

	resp, err := wh.hc.Do(req)
	if err != nil {
		return fmt.Errorf("deliver %q alert: %w", a.Title, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		// first line of the body is usually the receiver's reason
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		reason, _, _ := strings.Cut(string(snippet), "\n")
		return fmt.Errorf("alert endpoint answered %s: %s", resp.Status, reason)
	}

	log.Printf("[notify] %s/%s alert %q delivered to webhook", a.Component, a.Level, a.Title)
	return nil
}

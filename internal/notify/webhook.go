// Package notify pushes catalog change events to an optional external
// webhook. Delivery is fire-and-forget; the mutation path never waits on it.
package notify

import (
	"time"

	"github.com/guonaihong/gout"
	"go.uber.org/zap"
)

// WebhookNotifier POSTs one JSON event per confirmed mutation. A zero URL
// disables it entirely.
type WebhookNotifier struct {
	url     string
	timeout time.Duration
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{url: url, timeout: timeout}
}

// ProductChanged implements catalog.Notifier.
func (n *WebhookNotifier) ProductChanged(action, id string) {
	if n.url == "" {
		return
	}
	go func() {
		err := gout.POST(n.url).
			SetTimeout(n.timeout).
			SetJSON(gout.H{
				"event":  "product." + action,
				"doc_id": id,
				"at":     time.Now().UTC().Format(time.RFC3339),
			}).
			Do()
		if err != nil {
			zap.L().Warn("webhook delivery failed",
				zap.String("action", action),
				zap.String("doc_id", id),
				zap.Error(err),
			)
		}
	}()
}

package notify

import (
	"fmt"
	"time"

	"github.com/sanamente/catalogd/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// MailNotifier emails one message per confirmed catalog mutation. Like the
// webhook, delivery runs off the mutation path and failures only log.
type MailNotifier struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

func NewMailNotifier(cfg config.SmtpConfig) *MailNotifier {
	return &MailNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Passwd),
		from:   cfg.From,
		to:     cfg.To,
	}
}

// ProductChanged implements the catalog notifier contract.
func (n *MailNotifier) ProductChanged(action, id string) {
	m := n.message(action, id)
	go func() {
		if err := n.dialer.DialAndSend(m); err != nil {
			zap.L().Warn("mail notification failed",
				zap.String("action", action),
				zap.String("doc_id", id),
				zap.Error(err),
			)
		}
	}()
}

func (n *MailNotifier) message(action, id string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", fmt.Sprintf("[catalogd] product %s: %s", action, id))
	m.SetBody("text/plain", fmt.Sprintf(
		"Event: product.%s\nDocument: %s\nAt: %s\n",
		action, id, time.Now().UTC().Format(time.RFC3339)))
	return m
}

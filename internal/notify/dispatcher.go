// Package notify delivers alert notifications for anomaly findings over
// multiple channels (email, chat webhook, in-app via Redis pub/sub).
// Delivery is strictly best-effort: every requested channel is attempted for
// every alert, a failing channel is logged and counted but never stops the
// others, and no delivery outcome ever propagates back to detection. The
// finding row in the database is the durable record; notifications are a
// convenience on top of it.
package notify

import (
	"context"
	"log/slog"

	"github.com/order-sentinel/order-sentinel/internal/telemetry"
)

// Payload is the channel-independent content of one alert.
type Payload struct {
	// Subject is a one-line summary (email subject, chat title).
	Subject string
	// Message is the human-readable body.
	Message string
	// Severity mirrors the finding severity (low|medium|high).
	Severity string
	// Metadata carries structured key/value context for channels that can
	// render it (chat webhook, in-app). Email ignores it.
	Metadata map[string]string
}

// Channel delivers an alert to a set of recipients over one transport.
type Channel interface {
	// Name returns the channel id used in notifications.channels config
	// ("email", "chat", "inapp").
	Name() string
	// Deliver sends the payload to the given recipient user ids. How a
	// recipient id maps onto the transport is the channel's concern.
	Deliver(ctx context.Context, recipientIDs []string, p Payload) error
}

// Dispatcher fans one alert out to the requested channels.
type Dispatcher struct {
	channels map[string]Channel
}

// NewDispatcher creates a Dispatcher over the given channels. Passing no
// channels yields a dispatcher that logs and drops every alert, which is the
// notifications-disabled configuration.
func NewDispatcher(channels ...Channel) *Dispatcher {
	d := &Dispatcher{channels: make(map[string]Channel, len(channels))}
	for _, ch := range channels {
		d.channels[ch.Name()] = ch
	}
	return d
}

// Send attempts delivery on every requested channel. Unknown channel ids are
// logged and skipped; a failing channel is logged and counted. Send never
// returns an error — callers have nothing actionable to do with one, and the
// finding itself is already persisted.
func (d *Dispatcher) Send(ctx context.Context, channelNames []string, recipientIDs []string, p Payload) {
	if len(recipientIDs) == 0 {
		slog.Warn("alert has no recipients, skipping notification", "subject", p.Subject)
		return
	}

	for _, name := range channelNames {
		ch, ok := d.channels[name]
		if !ok {
			slog.Warn("unknown notification channel requested, skipping",
				"channel", name, "subject", p.Subject)
			continue
		}

		if err := ch.Deliver(ctx, recipientIDs, p); err != nil {
			telemetry.NotificationErrorsTotal.WithLabelValues(name).Inc()
			slog.Error("notification delivery failed",
				"channel", name, "subject", p.Subject, "recipients", len(recipientIDs), "error", err)
			continue
		}

		telemetry.NotificationsSentTotal.WithLabelValues(name).Inc()
		slog.Debug("notification delivered",
			"channel", name, "subject", p.Subject, "recipients", len(recipientIDs))
	}
}

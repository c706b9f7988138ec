package webhook

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/roomtab/backend/internal/domain/tab"
	"github.com/roomtab/backend/internal/infrastructure/config"
)

// InferKind picks the body shape for a destination URL when none is configured.
// Discord-style webhook URLs take {"content": text}; amqp URLs go to the broker.
func InferKind(rawURL string) tab.DestinationKind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return tab.DestinationJSON
	}
	switch strings.ToLower(u.Scheme) {
	case "amqp", "amqps":
		return tab.DestinationAMQP
	}
	host := strings.ToLower(u.Hostname())
	if (host == "discord.com" || host == "discordapp.com" || strings.HasSuffix(host, ".discord.com")) &&
		strings.HasPrefix(u.Path, "/api/webhooks") {
		return tab.DestinationContent
	}
	return tab.DestinationJSON
}

// Destinations converts configured destinations, inferring missing kinds
func Destinations(cfgs []config.WebhookDestination) []tab.Destination {
	out := make([]tab.Destination, 0, len(cfgs))
	for _, c := range cfgs {
		kind := tab.DestinationKind(c.Kind)
		if kind == "" {
			kind = InferKind(c.URL)
		}
		events := make([]tab.EventType, 0, len(c.Events))
		for _, e := range c.Events {
			events = append(events, tab.EventType(e))
		}
		out = append(out, tab.Destination{
			Name:   c.Name,
			URL:    c.URL,
			Kind:   kind,
			Events: events,
		})
	}
	return out
}

// Router dispatches to the sender registered for each destination kind
type Router struct {
	senders map[tab.DestinationKind]tab.WebhookSender
}

// NewRouter creates a router. JSON and content destinations share httpSender.
// amqpSender may be nil when no broker destination is configured.
func NewRouter(httpSender, amqpSender tab.WebhookSender) *Router {
	r := &Router{senders: make(map[tab.DestinationKind]tab.WebhookSender)}
	if httpSender != nil {
		r.senders[tab.DestinationJSON] = httpSender
		r.senders[tab.DestinationContent] = httpSender
	}
	if amqpSender != nil {
		r.senders[tab.DestinationAMQP] = amqpSender
	}
	return r
}

// Send implements tab.WebhookSender
func (r *Router) Send(ctx context.Context, dest tab.Destination, msg tab.Message) tab.SendResult {
	kind := dest.Kind
	if kind == "" {
		kind = InferKind(dest.URL)
		dest.Kind = kind
	}
	sender, ok := r.senders[kind]
	if !ok {
		return tab.SendResult{Err: fmt.Errorf("webhook: no sender for kind %q", kind)}
	}
	return sender.Send(ctx, dest, msg)
}

var _ tab.WebhookSender = (*Router)(nil)

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"

	"github.com/dgnsrekt/narrator/tts"
)

// NATSSource subscribes to chat events published on a NATS subject.
// Requests carrying a reply subject get the Reply back.
type NATSSource struct {
	url     string
	subject string
	token   string
	log     *log.Logger
}

// NewNATSSource creates a NATS source for cfg.
func NewNATSSource(cfg tts.NATSConfig, token string, logger *log.Logger) *NATSSource {
	if logger == nil {
		logger = log.Default()
	}
	return &NATSSource{
		url:     cfg.URL,
		subject: cfg.Subject,
		token:   token,
		log:     logger.WithPrefix("nats"),
	}
}

// Name returns "nats".
func (s *NATSSource) Name() string { return "nats" }

func (s *NATSSource) options() []nats.Option {
	options := []nats.Option{
		nats.Name("narrator"),
		nats.Timeout(5 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				s.log.Warn("disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.log.Info("reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if s.token != "" {
		options = append(options, nats.Token(s.token))
	}
	return options
}

// Run connects and applies events until ctx is done.
func (s *NATSSource) Run(ctx context.Context, d *Dispatcher) error {
	nc, err := nats.Connect(s.url, s.options()...)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer nc.Close()

	msgs := make(chan *nats.Msg, 64)
	sub, err := nc.ChanSubscribe(s.subject, msgs)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.subject, err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			s.log.Debug("unsubscribe failed", "err", err)
		}
	}()

	s.log.Info("subscribed to chat events", "url", s.url, "subject", s.subject)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			s.handle(ctx, d, msg)
		}
	}
}

func (s *NATSSource) handle(ctx context.Context, d *Dispatcher, msg *nats.Msg) {
	reply := d.HandleJSON(ctx, msg.Data)
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		s.log.Error("failed to encode reply", "err", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		s.log.Debug("failed to respond", "subject", msg.Reply, "err", err)
	}
}

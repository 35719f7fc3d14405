package nats

import (
	"context"
	"flag"

	"github.com/ValerySidorin/einfiler/pkg/queue/message"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

type Config struct {
	Url        string `yaml:"url"`
	QueueGroup string `yaml:"queue_group"`
	Name       string `yaml:"name"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Url, flagPrefix+"url", nats.DefaultURL, "NATS server URL.")
	f.StringVar(&c.QueueGroup, flagPrefix+"queue-group", "einfiler", "Queue group shared by workers, so each case is handled once.")
	f.StringVar(&c.Name, flagPrefix+"name", "einfiler", "Connection name reported to the server.")
}

type NatsClient struct {
	conn  *nats.Conn
	group string
	log   log.Logger
}

func NewNatsClient(cfg Config, logger log.Logger) (*NatsClient, error) {
	conn, err := nats.Connect(cfg.Url, nats.Name(cfg.Name))
	if err != nil {
		return nil, errors.Wrap(err, "initialize nats connection")
	}

	return &NatsClient{
		conn:  conn,
		group: cfg.QueueGroup,
		log:   log.With(logger, "component", "nats"),
	}, nil
}

// Sub delivers decoded cases to action. Malformed messages are logged and dropped.
func (n *NatsClient) Sub(subject string, action func(c *message.Case)) error {
	group := n.group
	if group == "" {
		group = subject
	}

	_, err := n.conn.QueueSubscribe(subject, group, func(msg *nats.Msg) {
		c, err := message.NewCase(msg.Data)
		if err != nil {
			level.Warn(n.log).Log("msg", "dropping malformed case message", "subject", subject, "err", err)
			return
		}
		action(c)
	})
	if err != nil {
		return errors.Wrap(err, "nats subscribe")
	}

	return nil
}

// Pub publishes e and waits until the server has acknowledged it or ctx ends.
func (n *NatsClient) Pub(ctx context.Context, subject string, e *message.Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	if err := n.conn.Publish(subject, data); err != nil {
		return errors.Wrap(err, "nats publish")
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return errors.Wrap(err, "nats flush")
	}

	return nil
}

// Close drains subscriptions and closes the connection.
func (n *NatsClient) Close() error {
	return errors.Wrap(n.conn.Drain(), "nats drain")
}

package queue

import (
	"context"
	"flag"

	"github.com/ValerySidorin/einfiler/pkg/queue/message"
	"github.com/ValerySidorin/einfiler/pkg/queue/nats"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
)

const (
	TypeNats = "nats"
	TypeNone = "none"
)

type Config struct {
	Type          string      `yaml:"type"`
	CasesSubject  string      `yaml:"cases_subject"`
	EventsSubject string      `yaml:"events_subject"`
	Nats          nats.Config `yaml:"nats"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Type, flagPrefix+"type", TypeNone, "Queue backend: nats or none.")
	f.StringVar(&c.CasesSubject, flagPrefix+"cases-subject", "einfiler.cases", "Subject incoming case records arrive on.")
	f.StringVar(&c.EventsSubject, flagPrefix+"events-subject", "einfiler.events", "Subject run events are published to.")
	c.Nats.RegisterFlags(flagPrefix+"nats.", f)
}

type Publisher interface {
	Pub(ctx context.Context, subject string, e *message.Event) error
}

type Subscriber interface {
	Sub(subject string, action func(c *message.Case)) error
	Close() error
}

func NewPublisher(cfg Config, log log.Logger) (Publisher, error) {
	switch cfg.Type {
	case TypeNats:
		return nats.NewNatsClient(cfg.Nats, log)
	case TypeNone, "":
		return nopPublisher{}, nil
	default:
		return nil, errors.New("invalid queue type")
	}
}

func NewSubscriber(cfg Config, log log.Logger) (Subscriber, error) {
	switch cfg.Type {
	case TypeNats:
		return nats.NewNatsClient(cfg.Nats, log)
	default:
		return nil, errors.Errorf("queue type %q cannot subscribe", cfg.Type)
	}
}

type nopPublisher struct{}

func (nopPublisher) Pub(context.Context, string, *message.Event) error { return nil }

// Package journal keeps an optional record of every run's start and terminal status.
package journal

import (
	"context"
	"flag"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/journal/pg"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
)

const (
	TypeNone = "none"
	TypePg   = "pg"
)

type Entry = pg.Entry

type Journal interface {
	Begin(ctx context.Context, e Entry) error
	Finish(ctx context.Context, e Entry) error
	Dispose(ctx context.Context) error
}

type Config struct {
	Store string    `yaml:"store"`
	Pg    pg.Config `yaml:"pg"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	c.Pg.RegisterFlags(flagPrefix, f)

	f.StringVar(&c.Store, flagPrefix+"store", TypeNone, `Store, that will be used to journal runs. Supported: none, pg.`)
}

func New(ctx context.Context, cfg Config, logger log.Logger) (Journal, error) {
	switch cfg.Store {
	case TypePg:
		return pg.NewStore(ctx, cfg.Pg, logger)
	case TypeNone, "":
		return nopJournal{}, nil
	default:
		return nil, errors.Errorf("invalid journal store in config: %s", cfg.Store)
	}
}

// NewEntry starts an entry for a run that begins now.
func NewEntry(runID, recordID, entityName string) Entry {
	return Entry{
		RunID:      runID,
		RecordID:   recordID,
		EntityName: entityName,
		Status:     StatusRunning,
		StartedAt:  time.Now().UTC(),
	}
}

type nopJournal struct{}

func (nopJournal) Begin(context.Context, Entry) error  { return nil }
func (nopJournal) Finish(context.Context, Entry) error { return nil }
func (nopJournal) Dispose(context.Context) error       { return nil }

const (
	StatusRunning = pg.StatusRunning
	StatusSuccess = pg.StatusSuccess
	StatusFail    = pg.StatusFail
)

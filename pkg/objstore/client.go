package objstore

import (
	"context"
	"flag"
	"fmt"

	"github.com/ValerySidorin/einfiler/pkg/objstore/inmemory"
	"github.com/ValerySidorin/einfiler/pkg/objstore/minio"
)

type Config struct {
	Store string       `yaml:"store"`
	Minio minio.Config `yaml:"minio"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Store, flagPrefix+"store", "minio", `Object storage for artifacts and audit records. Supported values are: minio, inmemory.`)
	c.Minio.RegisterFlags(flagPrefix+"minio.", f)
}

// Store is the durable artifact store. Put overwrites an existing object of the same name.
type Store interface {
	Put(ctx context.Context, data []byte, name, contentType string) (string, error)
	Exists(ctx context.Context, container string) (bool, error)
	Create(ctx context.Context, container string) error
}

func New(cfg Config) (Store, error) {
	switch cfg.Store {
	case "minio":
		return minio.NewStore(cfg.Minio)
	case "inmemory":
		return inmemory.NewStore(), nil
	}

	return nil, fmt.Errorf("invalid object store %q", cfg.Store)
}

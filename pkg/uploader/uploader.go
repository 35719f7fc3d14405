// Package uploader wraps object store writes with bounded exponential backoff.
package uploader

import (
	"context"
	"flag"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/objstore"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/backoff"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Config struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.IntVar(&c.MaxAttempts, flagPrefix+"max-attempts", 5, "Attempts per upload before giving up.")
	f.DurationVar(&c.BaseDelay, flagPrefix+"base-delay", 2*time.Second, "Delay before the first retry; doubled on every further retry.")
}

func (c Config) backoffConfig() backoff.Config {
	maxAttempts := c.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	base := c.BaseDelay
	if base <= 0 {
		base = 2 * time.Second
	}

	return backoff.Config{
		MinBackoff: base,
		MaxBackoff: base << uint(maxAttempts-1),
		MaxRetries: maxAttempts,
	}
}

type metrics struct {
	retries  prometheus.Counter
	failures prometheus.Counter
}

// Uploader holds no per-upload state and is safe to share between runs.
type Uploader struct {
	store objstore.Store
	cfg   backoff.Config
	log   log.Logger
	m     metrics
}

func New(cfg Config, store objstore.Store, reg prometheus.Registerer, logger log.Logger) *Uploader {
	f := promauto.With(reg)
	return &Uploader{
		store: store,
		cfg:   cfg.backoffConfig(),
		log:   log.With(logger, "component", "uploader"),
		m: metrics{
			retries: f.NewCounter(prometheus.CounterOpts{
				Name: "einfiler_upload_retries_total",
				Help: "Upload attempts that failed and were retried.",
			}),
			failures: f.NewCounter(prometheus.CounterOpts{
				Name: "einfiler_upload_failures_total",
				Help: "Uploads that failed after exhausting all attempts.",
			}),
		},
	}
}

// UploadWithRetry writes data under name, retrying with exponential backoff.
// Writes overwrite, so a retry repeats the whole write.
func (u *Uploader) UploadWithRetry(ctx context.Context, data []byte, name, contentType string) (string, error) {
	b := backoff.New(ctx, u.cfg)

	var (
		lastErr  error
		attempts int
	)
	for b.Ongoing() {
		attempts++
		attempt := attempts

		url, err := u.store.Put(ctx, data, name, contentType)
		if err == nil {
			level.Debug(u.log).Log("msg", "uploaded object", "name", name, "attempt", attempt, "bytes", len(data))
			return url, nil
		}
		lastErr = err

		if attempt >= u.cfg.MaxRetries {
			break
		}

		u.m.retries.Inc()
		level.Warn(u.log).Log("msg", "upload failed, retrying", "name", name,
			"attempt", attempt, "max_attempts", u.cfg.MaxRetries, "err", err)
		b.Wait()
	}

	u.m.failures.Inc()
	if lastErr == nil {
		lastErr = b.Err()
	} else if ctxErr := ctx.Err(); ctxErr != nil {
		lastErr = errors.Wrap(ctxErr, lastErr.Error())
	}

	level.Error(u.log).Log("msg", "upload failed", "name", name, "attempts", attempts, "err", lastErr)
	return "", errors.Wrapf(lastErr, "upload %s", name)
}

// Package worker consumes case records from the queue and runs them with
// bounded concurrency.
package worker

import (
	"context"
	"flag"
	"sync"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/caserecord"
	"github.com/ValerySidorin/einfiler/pkg/queue"
	"github.com/ValerySidorin/einfiler/pkg/queue/message"
	"github.com/ValerySidorin/einfiler/pkg/workflow"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/atomic"
)

type Config struct {
	Concurrency int           `yaml:"concurrency"`
	RunTimeout  time.Duration `yaml:"run_timeout"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.IntVar(&c.Concurrency, flagPrefix+"concurrency", 2, "Runs in flight at once. Each run owns one browser session.")
	f.DurationVar(&c.RunTimeout, flagPrefix+"run-timeout", 30*time.Minute, "Upper bound for one run.")
}

type Runner interface {
	Run(ctx context.Context, c caserecord.CaseRecord) workflow.Result
}

type Worker struct {
	services.Service

	cfg     Config
	log     log.Logger
	runner  Runner
	sub     queue.Subscriber
	subject string

	workerPool *pool.Pool
	inFlight   *atomic.Int32
	baseCtx    context.Context

	// mu orders submissions to workerPool against stop.
	mu       sync.Mutex
	stopping bool

	runs *prometheus.CounterVec
}

func New(cfg Config, runner Runner, sub queue.Subscriber, subject string, reg prometheus.Registerer, logger log.Logger) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	w := &Worker{
		cfg:        cfg,
		log:        log.With(logger, "service", "worker"),
		runner:     runner,
		sub:        sub,
		subject:    subject,
		workerPool: pool.New().WithMaxGoroutines(cfg.Concurrency),
		inFlight:   atomic.NewInt32(0),
		baseCtx:    context.Background(),
	}

	f := promauto.With(reg)
	w.runs = f.NewCounterVec(prometheus.CounterOpts{
		Name: "einfiler_worker_cases_total",
		Help: "Cases taken from the queue by result.",
	}, []string{"result"})
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "einfiler_worker_runs_in_flight",
		Help: "Runs currently in progress.",
	}, func() float64 { return float64(w.inFlight.Load()) })

	w.Service = services.NewIdleService(w.start, w.stop)
	return w
}

// InFlight returns the number of runs in progress.
func (w *Worker) InFlight() int {
	return int(w.inFlight.Load())
}

func (w *Worker) start(ctx context.Context) error {
	w.baseCtx = context.WithoutCancel(ctx)

	if err := w.sub.Sub(w.subject, w.handle); err != nil {
		return errors.Wrap(err, "worker subscribe")
	}

	level.Info(w.log).Log("msg", "waiting for cases", "subject", w.subject, "concurrency", w.cfg.Concurrency)
	return nil
}

func (w *Worker) handle(c *message.Case) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopping {
		level.Warn(w.log).Log("msg", "worker stopping, case not started", "record_id", c.Record.RecordID)
		w.runs.WithLabelValues("rejected").Inc()
		return
	}

	rec := c.Record
	w.workerPool.Go(func() {
		w.inFlight.Inc()
		defer w.inFlight.Dec()

		ctx := w.baseCtx
		if w.cfg.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, w.cfg.RunTimeout)
			defer cancel()
		}

		res := w.runner.Run(ctx, rec)
		result := "failure"
		if res.Success {
			result = "success"
		}
		w.runs.WithLabelValues(result).Inc()
		level.Info(w.log).Log("msg", "case done", "record_id", rec.RecordID, "success", res.Success, "identifier", res.Identifier)
	})
}

func (w *Worker) stop(_ error) error {
	w.mu.Lock()
	w.stopping = true
	w.mu.Unlock()

	if err := w.sub.Close(); err != nil {
		level.Warn(w.log).Log("msg", "closing subscription", "err", err)
	}

	level.Info(w.log).Log("msg", "waiting for runs in flight", "in_flight", w.inFlight.Load())
	w.workerPool.Wait()
	return nil
}

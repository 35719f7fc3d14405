package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/einfiler"
	util_log "github.com/ValerySidorin/einfiler/pkg/util/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var metricsAddr string

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume case records from the queue until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().StringVar(&metricsAddr, "metrics.listen-address", ":9464", "Address metrics are served on. Empty disables them.")
}

func runWorker(cmd *cobra.Command, _ []string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	e, err := einfiler.New(cfg, reg, util_log.Logger)
	if err != nil {
		return err
	}
	if err := e.InitModuleServices(einfiler.Worker); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr, err := services.NewManager(e.Services()...)
	if err != nil {
		return errors.Wrap(err, "init service manager")
	}
	failed := make(chan struct{})
	mgr.AddListener(&failureListener{failed: failed})
	if err := services.StartManagerAndAwaitHealthy(ctx, mgr); err != nil {
		return errors.Wrap(err, "start services")
	}

	var srv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				level.Error(util_log.Logger).Log("msg", "metrics server stopped", "err", err)
			}
		}()
	}

	level.Info(util_log.Logger).Log("msg", "worker running")
	select {
	case <-ctx.Done():
	case <-failed:
	}
	level.Info(util_log.Logger).Log("msg", "shutting down")

	if srv != nil {
		_ = srv.Shutdown(context.Background())
	}
	return services.StopManagerAndAwaitStopped(context.Background(), mgr)
}

type failureListener struct {
	once   sync.Once
	failed chan struct{}
}

func (*failureListener) Healthy() {}
func (*failureListener) Stopped() {}

func (l *failureListener) Failure(s services.Service) {
	level.Error(util_log.Logger).Log("msg", "service failed", "err", s.FailureCase())
	l.once.Do(func() { close(l.failed) })
}

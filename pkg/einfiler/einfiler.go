// Package einfiler assembles the filing components into runnable targets.
package einfiler

import (
	"github.com/ValerySidorin/einfiler/pkg/capture"
	"github.com/ValerySidorin/einfiler/pkg/crm"
	"github.com/ValerySidorin/einfiler/pkg/filefetcher"
	"github.com/ValerySidorin/einfiler/pkg/journal"
	"github.com/ValerySidorin/einfiler/pkg/notifier"
	"github.com/ValerySidorin/einfiler/pkg/objstore"
	"github.com/ValerySidorin/einfiler/pkg/queue"
	"github.com/ValerySidorin/einfiler/pkg/session"
	"github.com/ValerySidorin/einfiler/pkg/uploader"
	"github.com/ValerySidorin/einfiler/pkg/worker"
	"github.com/ValerySidorin/einfiler/pkg/workflow"
	"github.com/go-kit/log"
	"github.com/grafana/dskit/modules"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type Einfiler struct {
	Cfg        Config
	Registerer prometheus.Registerer
	Log        log.Logger

	// set during initialization
	ServiceMap    map[string]services.Service
	ModuleManager *modules.Manager

	Store     objstore.Store
	Uploader  *uploader.Uploader
	Assets    *filefetcher.FileFetcher
	Capture   *capture.Pipeline
	Sessions  session.Factory
	CRM       *crm.Client
	Publisher queue.Publisher
	Notifier  *notifier.Notifier
	Journal   journal.Journal
	Workflow  *workflow.Workflow
	Worker    *worker.Worker
}

func New(cfg Config, reg prometheus.Registerer, logger log.Logger) (*Einfiler, error) {
	e := &Einfiler{
		Cfg:        cfg,
		Registerer: reg,
		Log:        logger,
	}

	if err := e.setupModuleManager(); err != nil {
		return nil, errors.Wrap(err, "setup module manager")
	}

	return e, nil
}

// InitModuleServices builds target and everything it depends on.
func (e *Einfiler) InitModuleServices(target string) error {
	serviceMap, err := e.ModuleManager.InitModuleServices(target)
	if err != nil {
		return errors.Wrapf(err, "init %s", target)
	}

	e.ServiceMap = serviceMap
	return nil
}

// Services returns the services of the initialized modules.
func (e *Einfiler) Services() []services.Service {
	svcs := make([]services.Service, 0, len(e.ServiceMap))
	for _, s := range e.ServiceMap {
		svcs = append(svcs, s)
	}
	return svcs
}

package einfiler

import (
	"context"
	"io"

	"github.com/ValerySidorin/einfiler/pkg/capture"
	"github.com/ValerySidorin/einfiler/pkg/crm"
	"github.com/ValerySidorin/einfiler/pkg/diagnose"
	"github.com/ValerySidorin/einfiler/pkg/filefetcher"
	"github.com/ValerySidorin/einfiler/pkg/form"
	"github.com/ValerySidorin/einfiler/pkg/journal"
	"github.com/ValerySidorin/einfiler/pkg/notifier"
	"github.com/ValerySidorin/einfiler/pkg/objstore"
	"github.com/ValerySidorin/einfiler/pkg/queue"
	"github.com/ValerySidorin/einfiler/pkg/session/chromedp"
	"github.com/ValerySidorin/einfiler/pkg/uploader"
	"github.com/ValerySidorin/einfiler/pkg/worker"
	"github.com/ValerySidorin/einfiler/pkg/workflow"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/modules"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
)

const (
	Storage  = "storage"
	Assets   = "assets"
	Journal  = "journal"
	Notifier = "notifier"
	Workflow = "workflow"
	Worker   = "worker"
)

func (e *Einfiler) initStorage() (services.Service, error) {
	store, err := objstore.New(e.Cfg.ObjectStore)
	if err != nil {
		return nil, errors.Wrap(err, "init object store")
	}

	e.Store = store
	e.Uploader = uploader.New(e.Cfg.Uploader, store, e.Registerer, e.Log)
	return nil, nil
}

// initAssets fetches the document generator bundle up front so the first
// fallback capture does not wait on the network.
func (e *Einfiler) initAssets() (services.Service, error) {
	e.Assets = filefetcher.NewClient(e.Cfg.Assets, e.Log)

	return services.NewIdleService(func(ctx context.Context) error {
		if _, err := e.Assets.Download(ctx); err != nil {
			level.Warn(e.Log).Log("msg", "generator bundle not prefetched", "err", err)
		}
		return nil
	}, nil), nil
}

func (e *Einfiler) initJournal() (services.Service, error) {
	j, err := journal.New(context.Background(), e.Cfg.Journal, e.Log)
	if err != nil {
		return nil, errors.Wrap(err, "init journal")
	}

	e.Journal = j
	return services.NewIdleService(nil, func(error) error {
		return j.Dispose(context.Background())
	}), nil
}

func (e *Einfiler) initNotifier() (services.Service, error) {
	pub, err := queue.NewPublisher(e.Cfg.Queue, e.Log)
	if err != nil {
		return nil, errors.Wrap(err, "init queue publisher")
	}

	e.CRM = crm.NewClient(e.Cfg.CRM, e.Log)
	e.Publisher = pub
	e.Notifier = notifier.New(e.CRM, pub, e.Cfg.Queue.EventsSubject, e.Log)

	return services.NewIdleService(nil, func(error) error {
		if c, ok := pub.(io.Closer); ok {
			return c.Close()
		}
		return nil
	}), nil
}

func (e *Einfiler) initWorkflow() (services.Service, error) {
	diag := diagnose.New(e.Log)
	e.Capture = capture.New(e.Cfg.captureConfig(), e.Uploader, e.Assets, diag, e.Registerer, e.Log)
	if e.Sessions == nil {
		e.Sessions = chromedp.NewFactory(e.Cfg.Browser, e.Log)
	}

	machine := form.New(e.Cfg.Form, e.Capture, diag, e.Log)
	e.Workflow = workflow.New(e.Cfg.workflowConfig(), workflow.Deps{
		Records:  e.CRM,
		Sessions: e.Sessions,
		Machine:  machine,
		Capturer: e.Capture,
		Uploader: e.Uploader,
		Notifier: e.Notifier,
		Journal:  e.Journal,
	}, e.Registerer, e.Log)

	return nil, nil
}

func (e *Einfiler) initWorker() (services.Service, error) {
	sub, err := queue.NewSubscriber(e.Cfg.Queue, e.Log)
	if err != nil {
		return nil, errors.Wrap(err, "init queue subscriber")
	}

	e.Worker = worker.New(e.Cfg.Worker, e.Workflow, sub, e.Cfg.Queue.CasesSubject, e.Registerer, e.Log)
	return e.Worker, nil
}

func (e *Einfiler) setupModuleManager() error {
	mm := modules.NewManager(e.Log)

	mm.RegisterModule(Storage, e.initStorage, modules.UserInvisibleModule)
	mm.RegisterModule(Assets, e.initAssets, modules.UserInvisibleModule)
	mm.RegisterModule(Journal, e.initJournal, modules.UserInvisibleModule)
	mm.RegisterModule(Notifier, e.initNotifier, modules.UserInvisibleModule)
	mm.RegisterModule(Workflow, e.initWorkflow)
	mm.RegisterModule(Worker, e.initWorker)

	deps := map[string][]string{
		Workflow: {Storage, Assets, Journal, Notifier},
		Worker:   {Workflow},
	}
	for mod, targets := range deps {
		if err := mm.AddDependency(mod, targets...); err != nil {
			return err
		}
	}

	e.ModuleManager = mm
	return nil
}

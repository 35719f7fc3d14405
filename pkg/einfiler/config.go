package einfiler

import (
	"flag"
	"os"

	"github.com/ValerySidorin/einfiler/pkg/artifact"
	"github.com/ValerySidorin/einfiler/pkg/capture"
	"github.com/ValerySidorin/einfiler/pkg/crm"
	"github.com/ValerySidorin/einfiler/pkg/filefetcher"
	"github.com/ValerySidorin/einfiler/pkg/form"
	"github.com/ValerySidorin/einfiler/pkg/journal"
	"github.com/ValerySidorin/einfiler/pkg/objstore"
	"github.com/ValerySidorin/einfiler/pkg/queue"
	"github.com/ValerySidorin/einfiler/pkg/session/chromedp"
	"github.com/ValerySidorin/einfiler/pkg/uploader"
	util_log "github.com/ValerySidorin/einfiler/pkg/util/log"
	"github.com/ValerySidorin/einfiler/pkg/worker"
	"github.com/ValerySidorin/einfiler/pkg/workflow"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Log         util_log.Config    `yaml:",inline"`
	Namespace   string             `yaml:"namespace"`
	ObjectStore objstore.Config    `yaml:"object_store"`
	Uploader    uploader.Config    `yaml:"uploader"`
	Assets      filefetcher.Config `yaml:"assets"`
	Capture     capture.Config     `yaml:"capture"`
	Browser     chromedp.Config    `yaml:"browser"`
	Form        form.Config        `yaml:"form"`
	CRM         crm.Config         `yaml:"crm"`
	Queue       queue.Config       `yaml:"queue"`
	Journal     journal.Config     `yaml:"journal"`
	Workflow    workflow.Config    `yaml:"workflow"`
	Worker      worker.Config      `yaml:"worker"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	c.Log.RegisterFlags(f)
	f.StringVar(&c.Namespace, "namespace", artifact.DefaultNamespace, "Leading path element of stored documents, audit records and session logs.")
	c.ObjectStore.RegisterFlags("object-store.", f)
	c.Uploader.RegisterFlags("uploader.", f)
	c.Assets.RegisterFlags("assets.", f)
	c.Capture.RegisterFlags("capture.", f)
	c.Browser.RegisterFlags("browser.", f)
	c.Form.RegisterFlags("form.", f)
	c.CRM.RegisterFlags("crm.", f)
	c.Queue.RegisterFlags("queue.", f)
	c.Journal.RegisterFlags("journal.", f)
	c.Workflow.RegisterFlags("workflow.", f)
	c.Worker.RegisterFlags("worker.", f)
}

func (c *Config) captureConfig() capture.Config {
	cfg := c.Capture
	cfg.Namespace = c.Namespace
	return cfg
}

func (c *Config) workflowConfig() workflow.Config {
	cfg := c.Workflow
	cfg.Namespace = c.Namespace
	return cfg
}

// LoadConfig overlays the YAML file at path onto cfg. Flags set on the
// command line are applied again by the caller afterwards.
func LoadConfig(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := yaml.UnmarshalStrict(b, cfg); err != nil {
		return errors.Wrap(err, "parse config file")
	}

	return nil
}

// Package capture turns the current page of a session into a stored document.
package capture

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/artifact"
	"github.com/ValerySidorin/einfiler/pkg/session"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	strategyPrint    = "print"
	strategyFallback = "fallback"

	resultSuccess = "success"
	resultFailure = "failure"

	readyPollInterval = 250 * time.Millisecond
)

type Config struct {
	// Namespace is set by the caller from the shared storage namespace.
	Namespace       string        `yaml:"-"`
	SettleDelay     time.Duration `yaml:"settle_delay"`
	ReadyTimeout    time.Duration `yaml:"ready_timeout"`
	FallbackTimeout time.Duration `yaml:"fallback_timeout"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.DurationVar(&c.SettleDelay, flagPrefix+"settle-delay", 2*time.Second, "Pause after the page reports it is loaded.")
	f.DurationVar(&c.ReadyTimeout, flagPrefix+"ready-timeout", 15*time.Second, "How long to wait for the page to finish loading.")
	f.DurationVar(&c.FallbackTimeout, flagPrefix+"fallback-timeout", 30*time.Second, "Upper bound for in-page document generation.")
}

type Uploader interface {
	UploadWithRetry(ctx context.Context, data []byte, name, contentType string) (string, error)
}

// AssetSource provides the in-page document generator bundle.
type AssetSource interface {
	Load(ctx context.Context) ([]byte, error)
}

type Diagnoser interface {
	ExtractFromSession(ctx context.Context, sess session.Session) string
}

// Subject identifies what the document belongs to; it only shapes the object name.
type Subject struct {
	RecordID   string
	EntityName string
}

type Pipeline struct {
	cfg      Config
	uploader Uploader
	assets   AssetSource
	diag     Diagnoser
	log      log.Logger

	captures *prometheus.CounterVec
}

func New(cfg Config, uploader Uploader, assets AssetSource, diag Diagnoser, reg prometheus.Registerer, logger log.Logger) *Pipeline {
	if cfg.Namespace == "" {
		cfg.Namespace = artifact.DefaultNamespace
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 15 * time.Second
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = 30 * time.Second
	}

	return &Pipeline{
		cfg:      cfg,
		uploader: uploader,
		assets:   assets,
		diag:     diag,
		log:      log.With(logger, "component", "capture"),
		captures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "einfiler_capture_total",
			Help: "Document captures by purpose, strategy and result.",
		}, []string{"purpose", "strategy", "result"}),
	}
}

// Capture renders the current page and stores it. A false result is never fatal
// to the caller's run.
func (p *Pipeline) Capture(ctx context.Context, purpose string, sess session.Session, subj Subject) (*artifact.Artifact, bool) {
	logger := log.With(p.log, "record_id", subj.RecordID, "purpose", purpose)

	if purpose == artifact.PurposeFailure && p.diag != nil {
		if msg := p.diag.ExtractFromSession(ctx, sess); msg != "" {
			level.Info(logger).Log("msg", "capturing failure page", "page_error", msg)
		}
	}

	p.waitLoaded(ctx, sess, logger)
	if err := sleepCtx(ctx, p.cfg.SettleDelay); err != nil {
		level.Warn(logger).Log("msg", "capture canceled", "err", err)
		return nil, false
	}

	strategy := strategyPrint
	data, err := sess.PrintToDocument(ctx, session.LetterPrint)
	if err == nil && len(data) == 0 {
		err = errors.New("empty document")
	}
	if err != nil {
		level.Warn(logger).Log("msg", "print to document failed, using in-page generator", "err", err)
		p.captures.WithLabelValues(purpose, strategyPrint, resultFailure).Inc()

		strategy = strategyFallback
		data, err = p.generate(ctx, sess)
		if err != nil {
			level.Error(logger).Log("msg", "capture failed", "err", err)
			p.captures.WithLabelValues(purpose, strategyFallback, resultFailure).Inc()
			return nil, false
		}
	}

	a := &artifact.Artifact{
		Name:        artifact.Name(p.cfg.Namespace, subj.RecordID, subj.EntityName, purpose, artifact.ExtensionFor(artifact.ContentTypePDF)),
		Purpose:     purpose,
		ContentType: artifact.ContentTypePDF,
		Visibility:  artifact.VisibilityFor(purpose),
		Data:        data,
	}

	url, err := p.uploader.UploadWithRetry(ctx, a.Data, a.Name, a.ContentType)
	if err != nil {
		level.Error(logger).Log("msg", "captured document not stored", "name", a.Name, "err", err)
		p.captures.WithLabelValues(purpose, strategy, resultFailure).Inc()
		return nil, false
	}
	a.URL = url

	level.Info(logger).Log("msg", "captured document", "name", a.Name, "strategy", strategy, "bytes", len(data))
	p.captures.WithLabelValues(purpose, strategy, resultSuccess).Inc()
	return a, true
}

const readyStateScript = `document.readyState`

// waitLoaded polls until the document is complete. Timing out is logged, not fatal.
func (p *Pipeline) waitLoaded(ctx context.Context, sess session.Session, logger log.Logger) {
	deadline := time.Now().Add(p.cfg.ReadyTimeout)
	for {
		var state string
		err := sess.ExecuteScript(ctx, readyStateScript, &state)
		if err == nil && state == "complete" {
			return
		}
		if time.Now().After(deadline) {
			level.Warn(logger).Log("msg", "page did not finish loading", "state", state, "err", err)
			return
		}
		if sleepCtx(ctx, readyPollInterval) != nil {
			return
		}
	}
}

const generatorPresentScript = `typeof window.html2pdf === "function"`

const generatorScript = `new Promise(function(resolve, reject) {
	var timer = setTimeout(function() { reject(new Error("document generation timed out")); }, %d);
	try {
		window.html2pdf().set({
			margin: 0.4,
			filename: "page.pdf",
			image: { type: "jpeg", quality: 0.95 },
			html2canvas: { scale: 2, useCORS: true },
			jsPDF: { unit: "in", format: "letter", orientation: "portrait" }
		}).from(document.body).outputPdf("datauristring").then(function(uri) {
			clearTimeout(timer);
			resolve(uri);
		}, function(e) {
			clearTimeout(timer);
			reject(e);
		});
	} catch (e) {
		clearTimeout(timer);
		reject(e);
	}
})`

// generate injects the generator bundle through script evaluation, so the page's
// content security policy does not apply, and awaits its output.
func (p *Pipeline) generate(ctx context.Context, sess session.Session) ([]byte, error) {
	if p.assets == nil {
		return nil, errors.New("no document generator configured")
	}

	var present bool
	if err := sess.ExecuteScript(ctx, generatorPresentScript, &present); err != nil {
		return nil, errors.Wrap(err, "probe document generator")
	}
	if !present {
		bundle, err := p.assets.Load(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "load document generator")
		}
		if err := sess.ExecuteScript(ctx, string(bundle), nil); err != nil {
			return nil, errors.Wrap(err, "inject document generator")
		}
	}

	gctx, cancel := context.WithTimeout(ctx, p.cfg.FallbackTimeout)
	defer cancel()

	var uri string
	if err := sess.ExecuteScript(gctx, fmt.Sprintf(generatorScript, p.cfg.FallbackTimeout.Milliseconds()), &uri); err != nil {
		if ctx.Err() == nil && gctx.Err() != nil {
			return nil, errors.Errorf("generate document: timed out after %s", p.cfg.FallbackTimeout)
		}
		return nil, errors.Wrap(err, "generate document")
	}
	return decodeDataURI(uri)
}

func decodeDataURI(uri string) ([]byte, error) {
	head, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(head, "data:") || !strings.HasSuffix(head, ";base64") {
		return nil, errors.New("generator returned malformed data uri")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(err, "decode generated document")
	}
	if len(data) == 0 {
		return nil, errors.New("generator returned empty document")
	}
	return data, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

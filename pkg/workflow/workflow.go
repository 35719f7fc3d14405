// Package workflow runs one case end to end: it fills the application, stores
// what it produced and reports the result. Run never fails and never panics.
package workflow

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/artifact"
	"github.com/ValerySidorin/einfiler/pkg/audit"
	"github.com/ValerySidorin/einfiler/pkg/capture"
	"github.com/ValerySidorin/einfiler/pkg/caserecord"
	"github.com/ValerySidorin/einfiler/pkg/crm"
	"github.com/ValerySidorin/einfiler/pkg/form"
	"github.com/ValerySidorin/einfiler/pkg/journal"
	"github.com/ValerySidorin/einfiler/pkg/notifier"
	"github.com/ValerySidorin/einfiler/pkg/session"
	util_log "github.com/ValerySidorin/einfiler/pkg/util/log"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result is the terminal value of a run. Identifier is the EIN on success and
// the reference number or error text otherwise.
type Result struct {
	Success     bool   `json:"success"`
	Identifier  string `json:"identifier"`
	ArtifactURL string `json:"artifact_url,omitempty"`
}

type Config struct {
	// Namespace is set by the caller from the shared storage namespace.
	Namespace      string        `yaml:"-"`
	CleanupTimeout time.Duration `yaml:"cleanup_timeout"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.DurationVar(&c.CleanupTimeout, flagPrefix+"cleanup-timeout", 30*time.Second, "Upper bound for releasing the session after a run.")
}

// SystemOfRecord is the case management system runs report to.
type SystemOfRecord interface {
	Authenticate(ctx context.Context) (string, error)
	notifier.CRM
}

type Machine interface {
	Complete(ctx context.Context, sess session.Session, c caserecord.CaseRecord, defaults form.Defaults) form.Outcome
}

type Uploader interface {
	UploadWithRetry(ctx context.Context, data []byte, name, contentType string) (string, error)
}

type Notifier interface {
	Milestone(ctx context.Context, recordID, runID string, a *artifact.Artifact)
	Outcome(ctx context.Context, recordID, runID, status, identifier, errorCode string)
}

type Journal interface {
	Begin(ctx context.Context, e journal.Entry) error
	Finish(ctx context.Context, e journal.Entry) error
}

// Deps are the collaborators of a Workflow. Journal may be nil.
type Deps struct {
	Records  SystemOfRecord
	Sessions session.Factory
	Machine  Machine
	Capturer form.Capturer
	Uploader Uploader
	Notifier Notifier
	Journal  Journal
}

type metrics struct {
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
}

type Workflow struct {
	cfg  Config
	deps Deps
	log  log.Logger
	m    metrics
}

func New(cfg Config, deps Deps, reg prometheus.Registerer, logger log.Logger) *Workflow {
	if cfg.Namespace == "" {
		cfg.Namespace = artifact.DefaultNamespace
	}
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = 30 * time.Second
	}
	if deps.Journal == nil {
		deps.Journal = nopJournal{}
	}

	f := promauto.With(reg)
	return &Workflow{
		cfg:  cfg,
		deps: deps,
		log:  log.With(logger, "component", "workflow"),
		m: metrics{
			runs: f.NewCounterVec(prometheus.CounterOpts{
				Name: "einfiler_workflow_runs_total",
				Help: "Finished runs by outcome.",
			}, []string{"outcome"}),
			duration: f.NewHistogram(prometheus.HistogramOpts{
				Name:    "einfiler_workflow_run_duration_seconds",
				Help:    "Wall time of a run including cleanup.",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1200},
			}),
		},
	}
}

// run is the state of one Run call.
type run struct {
	w      *Workflow
	c      caserecord.CaseRecord
	id     string
	start  time.Time
	log    log.Logger
	rec    *audit.Record
	entry  journal.Entry
	sess   session.Session
	kind   form.Kind
	result Result

	decided   bool
	persisted bool
}

func (w *Workflow) Run(ctx context.Context, c caserecord.CaseRecord) (res Result) {
	r := &run{
		w:     w,
		c:     c,
		id:    uuid.NewString(),
		start: time.Now(),
	}
	r.log = util_log.WithRun(w.log, c.RecordID, r.id)
	defer r.finish(ctx, &res)

	return r.execute(ctx)
}

func (r *run) execute(ctx context.Context) Result {
	r.rec = audit.New(r.c, r.id, r.start)
	if missing := r.rec.MissingFields(); len(missing) > 0 {
		level.Info(r.log).Log("msg", "optional fields absent", "fields", strings.Join(missing, ","))
	}

	r.entry = journal.NewEntry(r.id, r.c.RecordID, r.c.BusinessName)
	if err := r.w.deps.Journal.Begin(ctx, r.entry); err != nil {
		level.Warn(r.log).Log("msg", "run not journaled", "err", err)
	}

	if err := validate(r.c); err != nil {
		return r.fail(ctx, form.Outcome{Kind: form.OutcomeUnexpectedFailure, Err: err, Detail: err.Error()})
	}

	if _, err := r.w.deps.Records.Authenticate(ctx); err != nil {
		err = errors.Wrap(err, "authenticate to system of record")
		return r.fail(ctx, form.Outcome{Kind: form.OutcomeUnexpectedFailure, Err: err, Detail: err.Error()})
	}

	sess, err := r.w.deps.Sessions.New(ctx)
	if err != nil {
		err = errors.Wrap(err, "acquire session")
		return r.fail(ctx, form.Outcome{Kind: form.OutcomeUnexpectedFailure, Err: err, Detail: err.Error()})
	}
	r.sess = sess

	out := r.w.deps.Machine.Complete(ctx, sess, r.c, r.rec)
	if out.Kind == form.OutcomeSuccess {
		return r.succeed(ctx, out)
	}
	return r.fail(ctx, out)
}

// validate rejects cases the application cannot be started for.
func validate(c caserecord.CaseRecord) error {
	if err := c.Validate(); err != nil {
		return errors.Wrap(err, "invalid case record")
	}
	if form.MapCategory(c.EntityType).Category == "" {
		return errors.Errorf("invalid case record: unknown entity type %q", c.EntityType)
	}
	return nil
}

func (r *run) succeed(ctx context.Context, out form.Outcome) Result {
	r.decide(form.OutcomeSuccess, Result{Success: true, Identifier: out.EIN})
	r.rec.Succeed(out.EIN, time.Now())
	if out.Artifact != nil {
		r.result.ArtifactURL = out.Artifact.URL
		r.rec.Set(audit.KeyArtifactURL, out.Artifact.URL)
	}
	level.Info(r.log).Log("msg", "application completed", "ein", out.EIN)

	r.persistAudit(ctx)
	r.w.deps.Notifier.Milestone(ctx, r.c.RecordID, r.id, out.Artifact)
	r.w.deps.Notifier.Outcome(ctx, r.c.RecordID, r.id, crm.StatusCompleted, out.EIN, "")

	return r.result
}

func (r *run) fail(ctx context.Context, out form.Outcome) Result {
	identifier := failureIdentifier(out)
	r.decide(out.Kind, Result{Identifier: identifier})

	detail := ""
	if out.Err != nil {
		detail = out.Err.Error()
	}
	r.rec.Fail(identifier, detail, time.Now())
	if out.ReferenceCode != "" {
		r.rec.Set(audit.KeyReferenceNumber, out.ReferenceCode)
	}
	if out.FailedState != "" {
		r.rec.Set(audit.KeyFailedState, string(out.FailedState))
	}
	level.Error(r.log).Log("msg", "application failed", "outcome", out.Kind, "state", out.FailedState, "identifier", identifier, "err", out.Err)

	a := out.Artifact
	if a == nil && r.sess != nil {
		a = r.captureFailure(ctx)
	}
	if a != nil {
		r.result.ArtifactURL = a.URL
		r.rec.Set(audit.KeyArtifactURL, a.URL)
	}

	r.persistAudit(ctx)
	r.w.deps.Notifier.Milestone(ctx, r.c.RecordID, r.id, a)
	r.w.deps.Notifier.Outcome(ctx, r.c.RecordID, r.id, crm.StatusFailed, "", errorCode(out, identifier))

	return r.result
}

func failureIdentifier(out form.Outcome) string {
	switch {
	case out.ReferenceCode != "":
		return out.ReferenceCode
	case out.Detail != "":
		return out.Detail
	case out.Err != nil:
		return out.Err.Error()
	}
	return "application failed"
}

func errorCode(out form.Outcome, identifier string) string {
	if out.ReferenceCode != "" {
		return out.ReferenceCode
	}
	return identifier
}

func (r *run) decide(kind form.Kind, res Result) {
	r.kind = kind
	r.result = res
	r.decided = true
}

// captureFailure never lets its own errors surface: the run has already failed.
func (r *run) captureFailure(ctx context.Context) (a *artifact.Artifact) {
	defer func() {
		if p := recover(); p != nil {
			level.Error(r.log).Log("msg", "failure capture panicked", "panic", fmt.Sprint(p))
			a = nil
		}
	}()

	subj := capture.Subject{RecordID: r.c.RecordID, EntityName: r.c.BusinessName}
	a, ok := r.w.deps.Capturer.Capture(ctx, artifact.PurposeFailure, r.sess, subj)
	if !ok {
		level.Warn(r.log).Log("msg", "failure page not captured")
		return nil
	}
	return a
}

// persistAudit writes the audit record at most once per run.
func (r *run) persistAudit(ctx context.Context) {
	if r.persisted {
		return
	}
	r.persisted = true

	data, err := r.rec.Encode()
	if err != nil {
		level.Error(r.log).Log("msg", "audit record not encoded", "err", err)
		return
	}

	name := artifact.AuditName(r.w.cfg.Namespace, r.c.RecordID, r.c.BusinessName)
	if _, err := r.w.deps.Uploader.UploadWithRetry(ctx, data, name, artifact.ContentTypeJSON); err != nil {
		level.Error(r.log).Log("msg", "audit record not persisted", "name", name, "err", err)
		return
	}
	level.Info(r.log).Log("msg", "audit record persisted", "name", name, "status", r.rec.Status())
}

// finish runs on every exit path. A panic that escaped execute becomes an
// unexpected failure unless the outcome was already decided.
func (r *run) finish(ctx context.Context, res *Result) {
	if p := recover(); p != nil {
		err := errors.Errorf("run panicked: %v", p)
		level.Error(r.log).Log("msg", "run panicked", "err", err, "stack", string(debug.Stack()))

		if !r.decided {
			r.safely("failure handling", func() {
				if r.rec == nil {
					r.rec = audit.New(r.c, r.id, r.start)
				}
				r.fail(ctx, form.Outcome{Kind: form.OutcomeUnexpectedFailure, Err: err, Detail: err.Error()})
			})
		}
		if !r.decided {
			r.decide(form.OutcomeUnexpectedFailure, Result{Identifier: err.Error()})
		}
		*res = r.result
	}

	r.safely("console log upload", func() { r.uploadConsoleLogs(ctx) })
	r.safely("session release", r.release)
	r.safely("journal", func() { r.finishJournal(ctx) })

	r.w.m.runs.WithLabelValues(r.kind.String()).Inc()
	r.w.m.duration.Observe(time.Since(r.start).Seconds())
	level.Info(r.log).Log("msg", "run finished", "success", res.Success, "duration", time.Since(r.start))
}

func (r *run) safely(what string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			level.Error(r.log).Log("msg", "cleanup step panicked", "step", what, "panic", fmt.Sprint(p))
		}
	}()
	fn()
}

func (r *run) uploadConsoleLogs(ctx context.Context) {
	if r.sess == nil {
		return
	}

	entries, err := r.sess.ConsoleLogs(ctx)
	if err != nil {
		level.Warn(r.log).Log("msg", "console logs unavailable", "err", err)
	}
	if len(entries) == 0 {
		return
	}

	data, err := json.Marshal(entries)
	if err != nil {
		level.Warn(r.log).Log("msg", "console logs not encoded", "err", err)
		return
	}

	name := artifact.Name(r.w.cfg.Namespace, r.c.RecordID, r.c.BusinessName, artifact.PurposeConsoleLogs, artifact.ExtensionFor(artifact.ContentTypeJSON))
	if _, err := r.w.deps.Uploader.UploadWithRetry(ctx, data, name, artifact.ContentTypeJSON); err != nil {
		level.Warn(r.log).Log("msg", "console logs not uploaded", "name", name, "err", err)
		return
	}
	level.Debug(r.log).Log("msg", "console logs uploaded", "name", name, "entries", len(entries))
}

// release quits the session even when the run's context is done.
func (r *run) release() {
	if r.sess == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.w.cfg.CleanupTimeout)
	defer cancel()

	if err := r.sess.Quit(ctx); err != nil {
		level.Warn(r.log).Log("msg", "session did not quit, forcing", "err", err)
		if err := r.sess.ForceQuit(); err != nil {
			level.Error(r.log).Log("msg", "session force quit failed", "err", err)
		}
	}
}

func (r *run) finishJournal(ctx context.Context) {
	if r.entry.RunID == "" {
		return
	}

	e := r.entry
	e.FinishedAt = time.Now().UTC()
	e.Identifier = r.result.Identifier
	e.Status = journal.StatusFail
	if r.result.Success {
		e.Status = journal.StatusSuccess
	}

	if err := r.w.deps.Journal.Finish(context.WithoutCancel(ctx), e); err != nil {
		level.Warn(r.log).Log("msg", "run journal not finished", "err", err)
	}
}

type nopJournal struct{}

func (nopJournal) Begin(context.Context, journal.Entry) error  { return nil }
func (nopJournal) Finish(context.Context, journal.Entry) error { return nil }

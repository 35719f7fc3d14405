// Package form drives a session through the employer identification number
// application, page by page, and classifies where it ended up.
package form

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/artifact"
	"github.com/ValerySidorin/einfiler/pkg/capture"
	"github.com/ValerySidorin/einfiler/pkg/caserecord"
	"github.com/ValerySidorin/einfiler/pkg/diagnose"
	"github.com/ValerySidorin/einfiler/pkg/session"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

type State string

const (
	StateEntityCategory           State = "EntityCategorySelection"
	StateSubCategory              State = "SubCategorySelection"
	StateMemberCount              State = "MemberCountAndJurisdiction"
	StateJurisdictionConfirmation State = "JurisdictionConfirmation"
	StatePurpose                  State = "PurposeSelection"
	StatePartyIdentity            State = "PartyIdentity"
	StateTaxID                    State = "TaxIdEntry"
	StatePhysicalAddress          State = "PhysicalAddress"
	StateCareOf                   State = "CareOfName"
	StateMailingDecision          State = "MailingAddressDecision"
	StateMailingAddress           State = "MailingAddress"
	StateBusinessName             State = "BusinessNameAndTradeName"
	StateFormationDate            State = "FormationDate"
	StateFiscalMonth              State = "FiscalClosingMonth"
	StateActivityQuestionnaire    State = "ActivityQuestionnaire"
	StatePrimaryActivity          State = "PrimaryActivity"
	StateReceiveMethod            State = "ReceiveMethod"
	StateConfirmation             State = "Confirmation"
	StateType1Failure             State = "Type1Failure"
	StateType2Failure             State = "Type2Failure"
)

type Kind int

const (
	OutcomeSuccess Kind = iota
	OutcomeRecoverableFailure
	OutcomeUnexpectedFailure
)

func (k Kind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRecoverableFailure:
		return "recoverable_failure"
	case OutcomeUnexpectedFailure:
		return "unexpected_failure"
	}
	return "unknown"
}

// Outcome is where a traversal ended. EIN is set on success, ReferenceCode on a
// recoverable failure and Err on an unexpected one. Artifact may be nil.
type Outcome struct {
	Kind          Kind
	EIN           string
	Artifact      *artifact.Artifact
	ReferenceCode string
	Detail        string
	Err           error
	FailedState   State
}

type Config struct {
	StartURL            string        `yaml:"start_url"`
	StepTimeout         time.Duration `yaml:"step_timeout"`
	PageTimeout         time.Duration `yaml:"page_timeout"`
	ConfirmationTimeout time.Duration `yaml:"confirmation_timeout"`
	ClickRetries        int           `yaml:"click_retries"`
	ClickDelay          time.Duration `yaml:"click_delay"`
	FiscalMonthRetries  int           `yaml:"fiscal_month_retries"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.StartURL, flagPrefix+"start-url", "https://sa.www4.irs.gov/modiein/individual/index.jsp", "Entry page of the application.")
	f.DurationVar(&c.StepTimeout, flagPrefix+"step-timeout", 300*time.Second, "Upper bound for one page of the application.")
	f.DurationVar(&c.PageTimeout, flagPrefix+"page-timeout", 60*time.Second, "How long to wait for a page's first field.")
	f.DurationVar(&c.ConfirmationTimeout, flagPrefix+"confirmation-timeout", 5*time.Second, "How long to look for the optional ownership confirmation.")
	f.IntVar(&c.ClickRetries, flagPrefix+"click-retries", 3, "Attempts per click.")
	f.DurationVar(&c.ClickDelay, flagPrefix+"click-delay", time.Second, "Pause between click attempts.")
	f.IntVar(&c.FiscalMonthRetries, flagPrefix+"fiscal-month-retries", 2, "Retries of the fiscal month field while it is not ready; negative disables them.")
}

type Capturer interface {
	Capture(ctx context.Context, purpose string, sess session.Session, subj capture.Subject) (*artifact.Artifact, bool)
}

type Diagnoser interface {
	Extract(ctx context.Context, sess session.Session) string
}

type Machine struct {
	cfg     Config
	capture Capturer
	diag    Diagnoser
	log     log.Logger
}

func New(cfg Config, capt Capturer, diag Diagnoser, logger log.Logger) *Machine {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 300 * time.Second
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 60 * time.Second
	}
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = 5 * time.Second
	}
	if cfg.ClickRetries <= 0 {
		cfg.ClickRetries = 3
	}
	switch {
	case cfg.FiscalMonthRetries == 0:
		cfg.FiscalMonthRetries = 2
	case cfg.FiscalMonthRetries < 0:
		cfg.FiscalMonthRetries = 0
	}

	return &Machine{
		cfg:     cfg,
		capture: capt,
		diag:    diag,
		log:     log.With(logger, "component", "form"),
	}
}

// traversal is the per-run state of one Complete call.
type traversal struct {
	cfg    Config
	sess   session.Session
	fields *filler
	plan   *plan
	log    log.Logger
}

func (t *traversal) waitPage(ctx context.Context, loc session.Locator) error {
	return t.sess.WaitFor(ctx, loc, t.cfg.PageTimeout)
}

// Complete walks the application for c. Steps run to completion or to their own
// timeout; ctx is observed between steps.
func (m *Machine) Complete(ctx context.Context, sess session.Session, c caserecord.CaseRecord, defaults Defaults) Outcome {
	logger := log.With(m.log, "record_id", c.RecordID)
	subj := capture.Subject{RecordID: c.RecordID, EntityName: c.BusinessName}

	p, err := newPlan(c, defaults, logger)
	if err != nil {
		level.Error(logger).Log("msg", "case cannot be submitted", "err", err)
		return Outcome{
			Kind:        OutcomeUnexpectedFailure,
			Err:         err,
			Detail:      err.Error(),
			FailedState: StateEntityCategory,
		}
	}

	t := &traversal{
		cfg:  m.cfg,
		sess: sess,
		fields: &filler{
			sess:         sess,
			log:          logger,
			clickRetries: m.cfg.ClickRetries,
			clickDelay:   m.cfg.ClickDelay,
		},
		plan: p,
		log:  logger,
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return m.failed(ctx, sess, subj, s.state, errors.Wrap(err, "traversal canceled"), logger)
		}
		if s.skip != nil && s.skip(p) {
			level.Debug(logger).Log("msg", "state skipped", "state", s.state)
			continue
		}

		level.Info(logger).Log("msg", "entering state", "state", s.state)
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.StepTimeout)
		err := s.run(sctx, t)
		cancel()
		if err != nil {
			return m.failed(ctx, sess, subj, s.state, errors.Wrapf(err, "state %s", s.state), logger)
		}
	}

	return m.classify(ctx, sess, subj, logger)
}

// classify inspects the page reached after the final submission.
func (m *Machine) classify(ctx context.Context, sess session.Session, subj capture.Subject, logger log.Logger) Outcome {
	text, err := sess.PageText(ctx)
	if err != nil {
		return m.failed(ctx, sess, subj, StateConfirmation, errors.Wrap(err, "read confirmation page"), logger)
	}
	if diagnose.DetectType2(text) {
		return m.type2(ctx, sess, subj, text, logger)
	}

	ein := diagnose.EIN(text)
	if ein == "" {
		return m.failed(ctx, sess, subj, StateConfirmation, errors.New("confirmation page carries no EIN"), logger)
	}

	level.Info(logger).Log("msg", "EIN assigned", "state", StateConfirmation)
	out := Outcome{Kind: OutcomeSuccess, EIN: ein}
	if a, ok := m.capture.Capture(ctx, artifact.PurposeLetter, sess, subj); ok {
		out.Artifact = a
	} else {
		level.Warn(logger).Log("msg", "confirmation letter not captured")
	}
	return out
}

// failed classifies a traversal error: the remote refusal page is a recoverable
// failure, anything else is diagnosed and captured as unexpected.
func (m *Machine) failed(ctx context.Context, sess session.Session, subj capture.Subject, state State, cause error, logger log.Logger) Outcome {
	if text, err := sess.PageText(ctx); err == nil && diagnose.DetectType2(text) {
		return m.type2(ctx, sess, subj, text, logger)
	}

	detail := m.diag.Extract(ctx, sess)
	level.Error(logger).Log("msg", "application failed", "state", state, "err", cause, "page_error", detail)

	out := Outcome{
		Kind:        OutcomeUnexpectedFailure,
		Err:         cause,
		Detail:      detail,
		FailedState: state,
	}
	if a, ok := m.capture.Capture(ctx, artifact.PurposeFailure, sess, subj); ok {
		out.Artifact = a
	}
	return out
}

func (m *Machine) type2(ctx context.Context, sess session.Session, subj capture.Subject, text string, logger log.Logger) Outcome {
	src, err := sess.PageSource(ctx)
	if err != nil {
		level.Debug(logger).Log("msg", "page source unavailable", "err", err)
	}

	ref := diagnose.ReferenceNumber(text, src)
	level.Warn(logger).Log("msg", "remote system declined to issue an EIN", "reference_number", ref)

	out := Outcome{
		Kind:          OutcomeRecoverableFailure,
		ReferenceCode: ref,
		Detail:        fmt.Sprintf("unable to provide an EIN, reference number %s", ref),
		FailedState:   StateType2Failure,
	}
	if ref == "" {
		out.Detail = "unable to provide an EIN, no reference number shown"
	}
	if a, ok := m.capture.Capture(ctx, artifact.PurposeFailure, sess, subj); ok {
		out.Artifact = a
	}
	return out
}

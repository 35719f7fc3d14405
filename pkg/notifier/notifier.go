// Package notifier reports milestones and outcomes to the system of record and
// the event queue. Every call is best-effort: failures are logged, never returned.
package notifier

import (
	"context"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/artifact"
	"github.com/ValerySidorin/einfiler/pkg/queue"
	"github.com/ValerySidorin/einfiler/pkg/queue/message"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type CRM interface {
	NotifyMilestone(ctx context.Context, recordID, url, fileName, docType string, hidden bool) error
	UpdateStatus(ctx context.Context, recordID, status, identifier, errorCode string) error
}

type Notifier struct {
	crm     CRM
	pub     queue.Publisher
	subject string
	log     log.Logger
}

func New(crm CRM, pub queue.Publisher, subject string, logger log.Logger) *Notifier {
	return &Notifier{
		crm:     crm,
		pub:     pub,
		subject: subject,
		log:     log.With(logger, "component", "notifier"),
	}
}

// Milestone attaches a stored artifact to the case and announces it.
func (n *Notifier) Milestone(ctx context.Context, recordID, runID string, a *artifact.Artifact) {
	if a == nil || a.URL == "" {
		return
	}
	logger := log.With(n.log, "record_id", recordID, "purpose", a.Purpose)

	if !n.alive(ctx, logger, "milestone") {
		return
	}
	if err := n.crm.NotifyMilestone(ctx, recordID, a.URL, a.FileName(), a.Purpose, a.Hidden()); err != nil {
		level.Error(logger).Log("msg", "milestone notification failed", "err", err)
	}

	n.publish(ctx, logger, &message.Event{
		Kind:        message.KindMilestone,
		RecordID:    recordID,
		RunID:       runID,
		ArtifactURL: a.URL,
		FileName:    a.FileName(),
		DocType:     a.Purpose,
		Hidden:      a.Hidden(),
		Time:        time.Now().UTC(),
	})
}

// Outcome records the terminal status of the case and announces it.
func (n *Notifier) Outcome(ctx context.Context, recordID, runID, status, identifier, errorCode string) {
	logger := log.With(n.log, "record_id", recordID, "status", status)

	if !n.alive(ctx, logger, "status update") {
		return
	}
	if err := n.crm.UpdateStatus(ctx, recordID, status, identifier, errorCode); err != nil {
		level.Error(logger).Log("msg", "status update failed", "err", err)
	}

	n.publish(ctx, logger, &message.Event{
		Kind:       message.KindOutcome,
		RecordID:   recordID,
		RunID:      runID,
		Status:     status,
		Identifier: identifier,
		ErrorCode:  errorCode,
		Time:       time.Now().UTC(),
	})
}

func (n *Notifier) publish(ctx context.Context, logger log.Logger, e *message.Event) {
	if n.pub == nil || !n.alive(ctx, logger, "event") {
		return
	}
	if err := n.pub.Pub(ctx, n.subject, e); err != nil {
		level.Error(logger).Log("msg", "event publish failed", "subject", n.subject, "err", err)
		return
	}
	level.Debug(logger).Log("msg", "event published", "subject", n.subject, "kind", e.Kind)
}

func (n *Notifier) alive(ctx context.Context, logger log.Logger, what string) bool {
	if err := ctx.Err(); err != nil {
		level.Warn(logger).Log("msg", "skipping notification", "what", what, "err", err)
		return false
	}
	return true
}

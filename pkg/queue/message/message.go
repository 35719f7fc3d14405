package message

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/caserecord"
	"github.com/pkg/errors"
)

const (
	KindMilestone = "milestone"
	KindOutcome   = "outcome"
)

// Event reports progress of one run to downstream consumers.
type Event struct {
	Kind        string    `json:"kind"`
	RecordID    string    `json:"record_id"`
	RunID       string    `json:"run_id,omitempty"`
	Status      string    `json:"status,omitempty"`
	Identifier  string    `json:"identifier,omitempty"`
	ErrorCode   string    `json:"error_code,omitempty"`
	ArtifactURL string    `json:"artifact_url,omitempty"`
	FileName    string    `json:"file_name,omitempty"`
	DocType     string    `json:"doc_type,omitempty"`
	Hidden      bool      `json:"hidden,omitempty"`
	Time        time.Time `json:"time"`
}

func (e *Event) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "encode event")
	}
	return b, nil
}

func DecodeEvent(raw []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, errors.Wrap(err, "decode event")
	}
	if e.Kind != KindMilestone && e.Kind != KindOutcome {
		return nil, errors.Errorf("invalid event kind %q", e.Kind)
	}
	return &e, nil
}

// Case is an incoming request to file one case record.
type Case struct {
	Record caserecord.CaseRecord
}

// NewCase decodes and validates raw message data.
func NewCase(raw []byte) (*Case, error) {
	rec, err := caserecord.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "invalid case message")
	}
	if err := rec.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid case message")
	}
	return &Case{Record: rec}, nil
}

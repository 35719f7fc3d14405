// Package audit keeps the mutable record of what happened during one run.
package audit

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/caserecord"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

const (
	KeyStatus          = "response_status"
	KeyEIN             = "ein"
	KeyErrorMessage    = "error_message"
	KeyExceptionDetail = "exception_detail"
	KeyReferenceNumber = "reference_number"
	KeyMissingFields   = "missing_fields"
	KeyDefaultedValues = "defaulted_values"
	KeyRunID           = "run_id"
	KeyStartedAt       = "started_at"
	KeyFinishedAt      = "finished_at"
	KeyArtifactURL     = "artifact_url"
	KeyFailedState     = "failed_state"
)

// Record is a key/value projection of a CaseRecord plus run-time fields.
// It is owned by a single run and not safe for concurrent use.
type Record struct {
	fields    map[string]any
	missing   []string
	defaulted map[string]any
}

// New projects c into a pending record and lists the optional fields that are absent.
func New(c caserecord.CaseRecord, runID string, now time.Time) *Record {
	r := &Record{
		fields:    make(map[string]any),
		defaulted: make(map[string]any),
	}

	r.fields["record_id"] = c.RecordID
	r.fields["form_type"] = c.FormType
	r.fields["entity_type"] = c.EntityType
	r.fields["entity_sub_type"] = c.EntitySubType
	r.fields["business_name"] = c.BusinessName
	r.fields["trade_name"] = c.TradeName
	r.fields["formation_date"] = c.FormationDate
	r.fields["fiscal_closing_month"] = c.FiscalClosingMonth
	r.fields["jurisdiction"] = c.Jurisdiction
	r.fields["primary_activity"] = c.PrimaryActivity
	r.fields["activity_description"] = c.ActivityDescription
	r.fields["contact_first_name"] = c.ContactFirstName
	r.fields["contact_middle_name"] = c.ContactMiddleName
	r.fields["contact_last_name"] = c.ContactLastName
	r.fields["contact_title"] = c.ContactTitle
	r.fields["contact_ssn"] = MaskTaxID(c.ContactSSN)
	r.fields["contact_phone"] = c.ContactPhone
	r.fields["contact_email"] = c.ContactEmail
	r.fields["member_count"] = len(c.Members)
	r.fields["llc_member_count"] = strings.Trim(string(c.LLCMemberCount), `"`)

	if phys, ok := c.PhysicalAddress(); ok {
		r.fields["physical_address"] = phys.Line()
	}
	if mail, ok := c.MailingAddress(); ok {
		r.fields["mailing_address"] = mail.Line()
	}
	if c.ThirdPartyDesignee != nil {
		r.fields["third_party_designee"] = c.ThirdPartyDesignee.Name
	}

	r.fields[KeyStatus] = string(StatusPending)
	r.fields[KeyRunID] = runID
	r.fields[KeyStartedAt] = now.UTC().Format(time.RFC3339)

	for _, f := range absentOptionalFields(c) {
		r.MarkMissing(f)
	}

	return r
}

type fieldCheck struct {
	name   string
	absent bool
}

func absentOptionalFields(c caserecord.CaseRecord) []string {
	checks := []fieldCheck{
		{"trade_name", strings.TrimSpace(c.TradeName) == ""},
		{"formation_date", strings.TrimSpace(c.FormationDate) == ""},
		{"fiscal_closing_month", strings.TrimSpace(c.FiscalClosingMonth) == ""},
		{"jurisdiction", strings.TrimSpace(c.Jurisdiction) == ""},
		{"primary_activity", strings.TrimSpace(c.PrimaryActivity) == ""},
		{"contact_title", strings.TrimSpace(c.ContactTitle) == ""},
		{"contact_phone", strings.TrimSpace(c.ContactPhone) == ""},
		{"physical_address", func() bool { _, ok := c.PhysicalAddress(); return !ok }()},
		{"mailing_address", func() bool { _, ok := c.MailingAddress(); return !ok }()},
		{"members", len(c.Members) == 0},
		{"llc_member_count", len(c.LLCMemberCount) == 0 || string(c.LLCMemberCount) == "null"},
		{"third_party_designee", c.ThirdPartyDesignee == nil},
		{"employment", c.Employment == nil},
	}

	return lo.FilterMap(checks, func(fc fieldCheck, _ int) (string, bool) {
		return fc.name, fc.absent
	})
}

// MarkMissing records an absent field once.
func (r *Record) MarkMissing(field string) {
	if !lo.Contains(r.missing, field) {
		r.missing = append(r.missing, field)
	}
}

// Default records that value was substituted for field.
func (r *Record) Default(field string, value any) {
	r.MarkMissing(field)
	r.defaulted[field] = value
}

func (r *Record) MissingFields() []string {
	return append([]string(nil), r.missing...)
}

func (r *Record) DefaultedValue(field string) (any, bool) {
	v, ok := r.defaulted[field]
	return v, ok
}

func (r *Record) Set(key string, value any) {
	r.fields[key] = value
}

func (r *Record) Get(key string) (any, bool) {
	v, ok := r.fields[key]
	return v, ok
}

func (r *Record) String(key string) string {
	v, _ := r.fields[key].(string)
	return v
}

func (r *Record) Status() Status {
	return Status(r.String(KeyStatus))
}

func (r *Record) SetStatus(s Status) {
	r.fields[KeyStatus] = string(s)
}

// Succeed marks the run as successful.
func (r *Record) Succeed(ein string, now time.Time) {
	r.SetStatus(StatusSuccess)
	r.fields[KeyEIN] = ein
	r.fields[KeyFinishedAt] = now.UTC().Format(time.RFC3339)
}

// Fail marks the run as failed; empty values leave existing fields untouched.
func (r *Record) Fail(message, detail string, now time.Time) {
	r.SetStatus(StatusFail)
	if message != "" {
		r.fields[KeyErrorMessage] = message
	}
	if detail != "" {
		r.fields[KeyExceptionDetail] = detail
	}
	r.fields[KeyFinishedAt] = now.UTC().Format(time.RFC3339)
}

func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.fields)+2)
	for k, v := range r.fields {
		out[k] = v
	}

	missing := r.MissingFields()
	sort.Strings(missing)
	out[KeyMissingFields] = missing
	out[KeyDefaultedValues] = r.defaulted

	return json.Marshal(out)
}

// Encode renders the record as indented JSON.
func (r *Record) Encode() ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode audit record")
	}
	return b, nil
}

// MaskTaxID keeps only the last four digits of a tax id.
func MaskTaxID(id string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, id)
	if len(digits) < 4 {
		return ""
	}
	return "***-**-" + digits[len(digits)-4:]
}

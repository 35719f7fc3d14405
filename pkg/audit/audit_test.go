package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/caserecord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewListsMissingOptionalFields(t *testing.T) {
	rec := New(caserecord.CaseRecord{
		RecordID:     "rec1",
		EntityType:   "LLC",
		BusinessName: "Acme LLC",
		ContactSSN:   "123-45-6789",
	}, "run1", now)

	assert.Equal(t, StatusPending, rec.Status())
	assert.Equal(t, "***-**-6789", rec.String("contact_ssn"))
	assert.Contains(t, rec.MissingFields(), "formation_date")
	assert.Contains(t, rec.MissingFields(), "physical_address")
	assert.Contains(t, rec.MissingFields(), "llc_member_count")
	assert.NotContains(t, rec.MissingFields(), "business_name")
}

func TestDefaultRecordsValueOnce(t *testing.T) {
	rec := New(caserecord.CaseRecord{RecordID: "rec1", EntityType: "LLC"}, "run1", now)
	rec.Default("llc_member_count", 1)
	rec.Default("llc_member_count", 1)

	count := 0
	for _, f := range rec.MissingFields() {
		if f == "llc_member_count" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	v, ok := rec.DefaultedValue("llc_member_count")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTerminalTransitions(t *testing.T) {
	rec := New(caserecord.CaseRecord{RecordID: "rec1", EntityType: "LLC"}, "run1", now)

	rec.Fail("unable to issue", "", now)
	assert.Equal(t, StatusFail, rec.Status())
	assert.Equal(t, "unable to issue", rec.String(KeyErrorMessage))

	rec.Fail("", "stack", now)
	assert.Equal(t, "unable to issue", rec.String(KeyErrorMessage))
	assert.Equal(t, "stack", rec.String(KeyExceptionDetail))

	rec.Succeed("12-3456789", now)
	assert.Equal(t, StatusSuccess, rec.Status())
	assert.Equal(t, "12-3456789", rec.String(KeyEIN))
}

func TestEncode(t *testing.T) {
	rec := New(caserecord.CaseRecord{RecordID: "rec1", EntityType: "LLC"}, "run1", now)
	rec.Default("formation_date", "")

	b, err := rec.Encode()
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "rec1", out["record_id"])
	assert.Equal(t, "pending", out[KeyStatus])
	assert.Equal(t, "2024-03-01T12:00:00Z", out[KeyStartedAt])
	assert.Contains(t, out[KeyMissingFields], "formation_date")
	assert.Contains(t, out[KeyDefaultedValues], "formation_date")
}

func TestMaskTaxID(t *testing.T) {
	assert.Equal(t, "***-**-6789", MaskTaxID("123456789"))
	assert.Equal(t, "", MaskTaxID("12"))
	assert.Equal(t, "", MaskTaxID(""))
}

package caserecord

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "record_id": "a0B5e000001",
  "form_type": "EIN",
  "entity_type": "LLC",
  "business_name": "Acme LLC",
  "contact_first_name": "Jane",
  "contact_last_name": "Doe",
  "addresses": [
    {"location_type": "Mailing", "street": "PO Box 9", "city": "Austin", "state": "TX", "zip_code": "78701"},
    {"location_type": "physical", "street": "123 Main St", "city": "Austin", "state": "TX", "zip_code": "78701"},
    {"location_type": "Physical", "street": "999 Ignored Rd"}
  ],
  "members": [
    {"first_name": "John", "last_name": "Roe", "ssn": "111-11-1111"},
    {"first_name": " jane ", "last_name": "DOE", "ssn": "222-22-2222", "title": "Member"},
    {"first_name": "Jane", "last_name": "Doe", "ssn": "333-33-3333"}
  ],
  "llc_member_count": "2"
}`

func TestDecode(t *testing.T) {
	rec, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "a0B5e000001", rec.RecordID)
	assert.Equal(t, `"2"`, string(rec.LLCMemberCount))
	assert.Nil(t, rec.Employment)
	assert.NoError(t, rec.Validate())
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode(strings.NewReader(`{`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.Error(t, CaseRecord{EntityType: "LLC"}.Validate())
	assert.Error(t, CaseRecord{RecordID: "x", EntityType: "  "}.Validate())
	assert.NoError(t, CaseRecord{RecordID: "x", EntityType: "LLC"}.Validate())
}

func TestAddressSelectionFirstOfEachType(t *testing.T) {
	rec, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	phys, ok := rec.PhysicalAddress()
	require.True(t, ok)
	assert.Equal(t, "123 Main St", phys.Street)

	mail, ok := rec.MailingAddress()
	require.True(t, ok)
	assert.Equal(t, "PO Box 9 Austin TX 78701", mail.Line())

	_, ok = CaseRecord{}.MailingAddress()
	assert.False(t, ok)
}

func TestResponsibleMemberFirstMatchWins(t *testing.T) {
	rec, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	m, ok := rec.ResponsibleMember()
	require.True(t, ok)
	assert.Equal(t, "222-22-2222", m.SSN)

	rec.ContactFirstName = "Nobody"
	_, ok = rec.ResponsibleMember()
	assert.False(t, ok)
}

func TestAddressLine(t *testing.T) {
	a := Address{Street: " 123 Main St ", City: "Austin", ZipCode: "78701"}
	assert.Equal(t, "123 Main St Austin 78701", a.Line())
	assert.True(t, Address{LocationType: LocationMailing}.IsZero())
}

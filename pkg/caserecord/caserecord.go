// Package caserecord holds the immutable input of one filing run.
package caserecord

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const (
	LocationPhysical = "Physical"
	LocationMailing  = "Mailing"
)

type Address struct {
	LocationType string `json:"location_type"`
	Street       string `json:"street"`
	Street2      string `json:"street2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
	Country      string `json:"country,omitempty"`
}

// Line joins the non-empty parts of the address with single spaces.
func (a Address) Line() string {
	parts := lo.Filter([]string{a.Street, a.Street2, a.City, a.State, a.ZipCode}, func(s string, _ int) bool {
		return strings.TrimSpace(s) != ""
	})
	return strings.Join(lo.Map(parts, func(s string, _ int) string { return strings.TrimSpace(s) }), " ")
}

func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Line()) == ""
}

type Member struct {
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name"`
	Title      string `json:"title,omitempty"`
	SSN        string `json:"ssn,omitempty"`
	Ownership  string `json:"ownership,omitempty"`
}

type Designee struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone,omitempty"`
	Fax     string  `json:"fax,omitempty"`
	Address Address `json:"address,omitempty"`
}

type Employment struct {
	HasEmployees     bool   `json:"has_employees"`
	AgricultureCount int    `json:"agriculture_count,omitempty"`
	HouseholdCount   int    `json:"household_count,omitempty"`
	OtherCount       int    `json:"other_count,omitempty"`
	FirstWagesDate   string `json:"first_wages_date,omitempty"`
}

// CaseRecord is read-only for the lifetime of a run.
type CaseRecord struct {
	RecordID string `json:"record_id"`
	FormType string `json:"form_type"`

	EntityType          string `json:"entity_type"`
	EntitySubType       string `json:"entity_sub_type,omitempty"`
	BusinessName        string `json:"business_name"`
	TradeName           string `json:"trade_name,omitempty"`
	FormationDate       string `json:"formation_date,omitempty"`
	FiscalClosingMonth  string `json:"fiscal_closing_month,omitempty"`
	Jurisdiction        string `json:"jurisdiction,omitempty"`
	PrimaryActivity     string `json:"primary_activity,omitempty"`
	ActivityDescription string `json:"activity_description,omitempty"`
	CareOfName          string `json:"care_of_name,omitempty"`

	ContactFirstName  string `json:"contact_first_name"`
	ContactMiddleName string `json:"contact_middle_name,omitempty"`
	ContactLastName   string `json:"contact_last_name"`
	ContactSuffix     string `json:"contact_suffix,omitempty"`
	ContactTitle      string `json:"contact_title,omitempty"`
	ContactSSN        string `json:"contact_ssn,omitempty"`
	ContactPhone      string `json:"contact_phone,omitempty"`
	ContactEmail      string `json:"contact_email,omitempty"`

	Addresses []Address `json:"addresses,omitempty"`
	Members   []Member  `json:"members,omitempty"`

	// LLCMemberCount accepts any JSON scalar; the form coerces it.
	LLCMemberCount     json.RawMessage `json:"llc_member_count,omitempty"`
	ThirdPartyDesignee *Designee       `json:"third_party_designee,omitempty"`
	Employment         *Employment     `json:"employment,omitempty"`
}

// Decode reads one CaseRecord as JSON.
func Decode(r io.Reader) (CaseRecord, error) {
	var rec CaseRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return CaseRecord{}, errors.Wrap(err, "decode case record")
	}
	return rec, nil
}

// Validate performs the input checks an entry point runs before a workflow.
func (c CaseRecord) Validate() error {
	if strings.TrimSpace(c.RecordID) == "" {
		return errors.New("record id is required")
	}
	if strings.TrimSpace(c.EntityType) == "" {
		return errors.New("entity type is required")
	}
	return nil
}

// PhysicalAddress returns the first physical address, if any.
func (c CaseRecord) PhysicalAddress() (Address, bool) {
	return c.addressOf(LocationPhysical)
}

// MailingAddress returns the first mailing address, if any.
func (c CaseRecord) MailingAddress() (Address, bool) {
	return c.addressOf(LocationMailing)
}

func (c CaseRecord) addressOf(typ string) (Address, bool) {
	return lo.Find(c.Addresses, func(a Address) bool {
		return strings.EqualFold(strings.TrimSpace(a.LocationType), typ)
	})
}

// ResponsibleMember returns the first member whose name matches the primary contact.
func (c CaseRecord) ResponsibleMember() (Member, bool) {
	first := normalizeName(c.ContactFirstName)
	last := normalizeName(c.ContactLastName)
	if first == "" && last == "" {
		return Member{}, false
	}

	return lo.Find(c.Members, func(m Member) bool {
		return normalizeName(m.FirstName) == first && normalizeName(m.LastName) == last
	})
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

package form

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/caserecord"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Defaults records values substituted for absent or unusable case fields.
type Defaults interface {
	Default(field string, value any)
}

const (
	defaultFiscalMonth = time.December
	defaultActivity    = "General business"
)

type party struct {
	firstName  string
	middleName string
	lastName   string
	suffix     string
	title      string
	ssn        [3]string
	ssnOK      bool
}

// plan is everything the traversal submits, resolved from the case before the
// first page is touched.
type plan struct {
	mapping       Mapping
	categoryRadio string
	subTypeRadio  string

	memberCount         int
	jurisdiction        string
	confirmJurisdiction bool

	designee *caserecord.Designee
	party    party

	physical   caserecord.Address
	physState  string
	phone      [3]string
	phoneOK    bool
	careOf     string
	mailing    *caserecord.Address
	mailState  string
	legalName  string
	tradeName  string
	startMonth time.Month
	startYear  int

	fiscalMonth time.Month

	employment  *caserecord.Employment
	wagesMonth  time.Month
	wagesYear   int
	activity    string
	description string
}

func (p *plan) isLLC() bool {
	return p.mapping.Category == CategoryLLC
}

func (p *plan) corporationLike() bool {
	return p.mapping.Category == CategoryCorporation || p.mapping.Category == CategoryAdditional
}

func (p *plan) needsSubType() bool {
	return p.mapping.Category != CategoryLLC && p.mapping.Category != CategoryEstate
}

func (p *plan) needsFiscalMonth() bool {
	return p.mapping.Category == CategoryPartnership ||
		p.mapping.SubType == SubTypeCorporation ||
		p.mapping.SubType == SubTypeLLP
}

func newPlan(c caserecord.CaseRecord, defaults Defaults, logger log.Logger) (*plan, error) {
	p := &plan{mapping: MapCategory(c.EntityType)}
	if p.mapping.Category == "" {
		return nil, &AutomationError{
			Message: "map entity category",
			Details: fmt.Sprintf("unknown entity type %q", c.EntityType),
		}
	}
	p.categoryRadio = CategoryRadio(p.mapping.Category)
	if p.needsSubType() {
		if p.mapping.SubType == "" {
			return nil, &AutomationError{
				Message: "map entity sub-type",
				Details: fmt.Sprintf("no sub-type for %q", c.EntityType),
			}
		}
		p.subTypeRadio = SubTypeRadio(p.mapping.SubType)
	}

	phys, ok := c.PhysicalAddress()
	if !ok || phys.IsZero() {
		mail, ok := c.MailingAddress()
		if !ok || mail.IsZero() {
			return nil, &AutomationError{
				Message: "resolve physical address",
				Details: "case has neither a physical nor a mailing address",
			}
		}
		phys = mail
		defaults.Default("physical_address", mail.Line())
	}
	p.physical = phys
	p.physState, _ = NormalizeJurisdiction(phys.State)

	if p.isLLC() {
		n, ok := MemberCount(c.LLCMemberCount)
		if !ok {
			defaults.Default("llc_member_count", n)
		}
		p.memberCount = n

		code, ok := NormalizeJurisdiction(c.Jurisdiction)
		if !ok && p.physState != "" {
			code = p.physState
			defaults.Default("jurisdiction", code)
		}
		p.jurisdiction = code
		p.confirmJurisdiction = IsRestrictedJurisdiction(code)
	}

	p.designee = c.ThirdPartyDesignee
	p.party = resolveParty(c, p, defaults)

	p.phone, p.phoneOK = SplitPhone(c.ContactPhone)
	if p.corporationLike() {
		p.careOf = collapse(c.CareOfName)
	}

	if mail, ok := c.MailingAddress(); ok && !mail.IsZero() && !SameAddress(mail.Line(), p.physical.Line()) {
		p.mailing = &mail
		p.mailState, _ = NormalizeJurisdiction(mail.State)
	}

	p.legalName = NormalizeName(c.BusinessName, p.mapping.Category)
	p.tradeName = TradeNameFor(c.BusinessName, c.TradeName, p.mapping.Category)

	p.startMonth, p.startYear = ParseFormationDate(c.FormationDate)
	if p.startMonth == 0 {
		level.Warn(logger).Log("msg", "formation date not understood", "formation_date", c.FormationDate)
	}

	if p.needsFiscalMonth() {
		m, ok := NormalizeMonth(c.FiscalClosingMonth)
		if !ok {
			m = defaultFiscalMonth
			defaults.Default("fiscal_closing_month", MonthName(m))
		}
		p.fiscalMonth = m
	}

	if c.Employment != nil && c.Employment.HasEmployees {
		p.employment = c.Employment
		p.wagesMonth, p.wagesYear = ParseFormationDate(c.Employment.FirstWagesDate)
	}

	activity, ok := ActivityRadio(c.PrimaryActivity)
	if !ok {
		defaults.Default("primary_activity", activity)
	}
	p.activity = activity
	if activity == ActivityOther {
		p.description = collapse(c.ActivityDescription)
		if p.description == "" {
			p.description = defaultActivity
			defaults.Default("activity_description", defaultActivity)
		}
	}

	return p, nil
}

func resolveParty(c caserecord.CaseRecord, p *plan, defaults Defaults) party {
	pt := party{
		firstName:  collapse(c.ContactFirstName),
		middleName: collapse(c.ContactMiddleName),
		lastName:   collapse(c.ContactLastName),
		suffix:     NormalizeContactSuffix(c.ContactSuffix),
		title:      collapse(c.ContactTitle),
	}

	ssn := c.ContactSSN
	if m, ok := c.ResponsibleMember(); ok {
		if strings.TrimSpace(m.SSN) != "" {
			ssn = m.SSN
		}
		if t := collapse(m.Title); t != "" {
			pt.title = t
		}
	}
	pt.ssn, pt.ssnOK = SplitTaxID(ssn)

	if p.corporationLike() && pt.title == "" {
		pt.title = "President"
		defaults.Default("contact_title", pt.title)
	}
	return pt
}

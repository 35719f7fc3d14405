package form

import (
	"context"
	"strconv"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/session"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

type step struct {
	state State
	skip  func(p *plan) bool
	run   func(ctx context.Context, t *traversal) error
}

// steps is the page order of the application.
var steps = []step{
	{state: StateEntityCategory, run: selectCategory},
	{state: StateSubCategory, skip: func(p *plan) bool { return !p.needsSubType() }, run: selectSubCategory},
	{state: StateMemberCount, skip: func(p *plan) bool { return !p.isLLC() }, run: fillMemberCount},
	{state: StateJurisdictionConfirmation, skip: func(p *plan) bool { return !p.isLLC() || !p.confirmJurisdiction }, run: confirmJurisdiction},
	{state: StatePurpose, run: selectPurpose},
	{state: StatePartyIdentity, run: selectParty},
	{state: StateTaxID, run: fillTaxID},
	{state: StatePhysicalAddress, run: fillPhysicalAddress},
	{state: StateCareOf, skip: func(p *plan) bool { return !p.corporationLike() }, run: fillCareOf},
	{state: StateMailingDecision, run: decideMailing},
	{state: StateMailingAddress, skip: func(p *plan) bool { return p.mailing == nil }, run: fillMailingAddress},
	{state: StateBusinessName, run: fillBusinessName},
	{state: StateFormationDate, run: fillFormationDate},
	{state: StateFiscalMonth, skip: func(p *plan) bool { return !p.needsFiscalMonth() }, run: fillFiscalMonth},
	{state: StateActivityQuestionnaire, run: answerQuestionnaire},
	{state: StatePrimaryActivity, run: selectActivity},
	{state: StateReceiveMethod, run: receiveAndSubmit},
}

func selectCategory(ctx context.Context, t *traversal) error {
	if err := t.sess.Navigate(ctx, t.cfg.StartURL); err != nil {
		return err
	}
	if err := t.fields.Click(ctx, "begin application", beginButton); err != nil {
		return err
	}

	radio := session.ID(t.plan.categoryRadio)
	if err := t.waitPage(ctx, radio); err != nil {
		return err
	}
	if err := t.fields.Choose(ctx, t.plan.mapping.Category, radio); err != nil {
		return err
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

func selectSubCategory(ctx context.Context, t *traversal) error {
	radio := session.ID(t.plan.subTypeRadio)
	if err := t.waitPage(ctx, radio); err != nil {
		return err
	}
	if err := t.fields.Choose(ctx, t.plan.mapping.SubType, radio); err != nil {
		return err
	}
	if err := t.fields.Click(ctx, "continue", continueButton); err != nil {
		return err
	}
	// The sub-type is echoed back on an interstitial page.
	return t.fields.Click(ctx, "confirm sub-type", continueButton)
}

func fillMemberCount(ctx context.Context, t *traversal) error {
	if err := t.waitPage(ctx, llcMemberCount); err != nil {
		return err
	}
	if err := t.fields.Fill(ctx, "llc member count", llcMemberCount, strconv.Itoa(t.plan.memberCount)); err != nil {
		return err
	}
	if err := t.fields.Select(ctx, "llc state", llcState, t.plan.jurisdiction); err != nil {
		return err
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

// confirmJurisdiction answers the ownership question when the form asks it.
func confirmJurisdiction(ctx context.Context, t *traversal) error {
	if err := t.sess.WaitFor(ctx, jurisdictionYes, t.cfg.ConfirmationTimeout); err != nil {
		level.Info(t.log).Log("msg", "ownership confirmation not offered, continuing", "jurisdiction", t.plan.jurisdiction)
		return nil
	}
	if err := t.fields.Choose(ctx, "ownership confirmation", jurisdictionYes); err != nil {
		return err
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

func selectPurpose(ctx context.Context, t *traversal) error {
	if err := t.waitPage(ctx, purposeNewBiz); err != nil {
		return err
	}
	if err := t.fields.Choose(ctx, "started a new business", purposeNewBiz); err != nil {
		return err
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

func selectParty(ctx context.Context, t *traversal) error {
	if err := t.waitPage(ctx, roleResponsible); err != nil {
		return err
	}

	d := t.plan.designee
	if d == nil {
		if err := t.fields.Choose(ctx, "responsible party role", roleResponsible); err != nil {
			return err
		}
		return t.fields.Click(ctx, "continue", continueButton)
	}

	if err := t.fields.Choose(ctx, "third party designee role", roleThirdParty); err != nil {
		return err
	}
	if err := t.fields.Fill(ctx, "designee name", designeeName, d.Name); err != nil {
		return err
	}
	if d.Phone != "" {
		if err := t.fields.Fill(ctx, "designee phone", designeePhone, d.Phone); err != nil {
			return err
		}
	}
	if d.Fax != "" {
		if err := t.fields.Fill(ctx, "designee fax", designeeFax, d.Fax); err != nil {
			return err
		}
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

func fillTaxID(ctx context.Context, t *traversal) error {
	pt := t.plan.party
	if !pt.ssnOK {
		return &AutomationError{Message: "fill responsible party tax id", Details: "tax id is not nine digits"}
	}
	if err := t.waitPage(ctx, partyFirstName); err != nil {
		return err
	}

	if err := t.fields.Fill(ctx, "first name", partyFirstName, pt.firstName); err != nil {
		return err
	}
	if pt.middleName != "" {
		if err := t.fields.Fill(ctx, "middle name", partyMiddleName, pt.middleName); err != nil {
			return err
		}
	}
	if err := t.fields.Fill(ctx, "last name", partyLastName, pt.lastName); err != nil {
		return err
	}
	if pt.suffix != "" {
		if err := t.fields.Select(ctx, "suffix", partySuffix, pt.suffix); err != nil {
			return err
		}
	}

	for i, loc := range []session.Locator{partySSN1, partySSN2, partySSN3} {
		if err := t.fields.Fill(ctx, "tax id part "+strconv.Itoa(i+1), loc, pt.ssn[i]); err != nil {
			return err
		}
	}

	if t.plan.corporationLike() {
		if err := t.fields.Fill(ctx, "title", partyTitle, pt.title); err != nil {
			return err
		}
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

func fillPhysicalAddress(ctx context.Context, t *traversal) error {
	a := t.plan.physical
	if err := t.waitPage(ctx, physStreet); err != nil {
		return err
	}

	if err := t.fields.Fill(ctx, "physical street", physStreet, a.Street); err != nil {
		return err
	}
	if a.Street2 != "" {
		if err := t.fields.Fill(ctx, "physical street 2", physStreet2, a.Street2); err != nil {
			return err
		}
	}
	if err := t.fields.Fill(ctx, "physical city", physCity, a.City); err != nil {
		return err
	}
	if err := t.fields.Select(ctx, "physical state", physState, t.plan.physState); err != nil {
		return err
	}
	if err := t.fields.Fill(ctx, "physical zip", physZip, a.ZipCode); err != nil {
		return err
	}

	if t.plan.phoneOK {
		for i, loc := range []session.Locator{phoneArea, phoneExchange, phoneLine} {
			if err := t.fields.Fill(ctx, "phone part "+strconv.Itoa(i+1), loc, t.plan.phone[i]); err != nil {
				return err
			}
		}
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

func fillCareOf(ctx context.Context, t *traversal) error {
	if err := t.waitPage(ctx, careOfName); err != nil {
		return err
	}
	if t.plan.careOf != "" {
		if err := t.fields.Fill(ctx, "care of name", careOfName, t.plan.careOf); err != nil {
			return err
		}
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

func decideMailing(ctx context.Context, t *traversal) error {
	if err := t.waitPage(ctx, mailingNo); err != nil {
		return err
	}

	choice, loc := "no additional address", mailingNo
	if t.plan.mailing != nil {
		choice, loc = "has additional address", mailingYes
	}
	if err := t.fields.Choose(ctx, choice, loc); err != nil {
		return err
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

func fillMailingAddress(ctx context.Context, t *traversal) error {
	a := t.plan.mailing
	if err := t.waitPage(ctx, mailStreet); err != nil {
		return err
	}

	if err := t.fields.Fill(ctx, "mailing street", mailStreet, a.Street); err != nil {
		return err
	}
	if err := t.fields.Fill(ctx, "mailing city", mailCity, a.City); err != nil {
		return err
	}
	if err := t.fields.Select(ctx, "mailing state", mailState, t.plan.mailState); err != nil {
		return err
	}
	if err := t.fields.Fill(ctx, "mailing zip", mailZip, a.ZipCode); err != nil {
		return err
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

func fillBusinessName(ctx context.Context, t *traversal) error {
	if err := t.waitPage(ctx, legalName); err != nil {
		return err
	}
	if err := t.fields.Fill(ctx, "legal name", legalName, t.plan.legalName); err != nil {
		return err
	}
	if t.plan.tradeName != "" {
		if err := t.fields.Fill(ctx, "trade name", tradeName, t.plan.tradeName); err != nil {
			return err
		}
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

func fillFormationDate(ctx context.Context, t *traversal) error {
	if err := t.waitPage(ctx, startMonth); err != nil {
		return err
	}
	if err := t.fields.Select(ctx, "formation month", startMonth, MonthName(t.plan.startMonth)); err != nil {
		return err
	}
	if err := t.fields.Fill(ctx, "formation year", startYear, yearString(t.plan.startYear)); err != nil {
		return err
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

// fillFiscalMonth retries while the field is not ready; other errors end the step.
func fillFiscalMonth(ctx context.Context, t *traversal) error {
	month := MonthName(t.plan.fiscalMonth)

	var err error
	for attempt := 0; attempt <= t.cfg.FiscalMonthRetries; attempt++ {
		if attempt > 0 {
			level.Debug(t.log).Log("msg", "fiscal month not ready, retrying", "attempt", attempt, "err", err)
			time.Sleep(t.cfg.ClickDelay)
		}

		err = t.waitPage(ctx, fiscalMonth)
		if err == nil {
			err = t.fields.Select(ctx, "fiscal closing month", fiscalMonth, month)
		}
		if err == nil || !errors.Is(err, session.ErrElementNotReady) {
			break
		}
	}
	if err != nil {
		return err
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

func answerQuestionnaire(ctx context.Context, t *traversal) error {
	if err := t.waitPage(ctx, trucksNo); err != nil {
		return err
	}

	for _, q := range []struct {
		name string
		loc  session.Locator
	}{
		{"heavy trucks", trucksNo},
		{"gambling", gamblingNo},
		{"excise tax", exciseNo},
		{"alcohol tobacco firearms", firearmsNo},
	} {
		if err := t.fields.Choose(ctx, q.name, q.loc); err != nil {
			return err
		}
	}

	e := t.plan.employment
	if e == nil {
		if err := t.fields.Choose(ctx, "no employees", employeesNo); err != nil {
			return err
		}
		return t.fields.Click(ctx, "continue", continueButton)
	}

	if err := t.fields.Choose(ctx, "has employees", employeesYes); err != nil {
		return err
	}
	for _, f := range []struct {
		name  string
		loc   session.Locator
		count int
	}{
		{"agricultural employees", employeesAgri, e.AgricultureCount},
		{"household employees", employeesHouse, e.HouseholdCount},
		{"other employees", employeesOther, e.OtherCount},
	} {
		if err := t.fields.Fill(ctx, f.name, f.loc, strconv.Itoa(f.count)); err != nil {
			return err
		}
	}
	if t.plan.wagesMonth != 0 {
		if err := t.fields.Select(ctx, "first wages month", firstWagesMonth, MonthName(t.plan.wagesMonth)); err != nil {
			return err
		}
		if err := t.fields.Fill(ctx, "first wages year", firstWagesYear, yearString(t.plan.wagesYear)); err != nil {
			return err
		}
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

func selectActivity(ctx context.Context, t *traversal) error {
	radio := session.ID(t.plan.activity)
	if err := t.waitPage(ctx, radio); err != nil {
		return err
	}
	if err := t.fields.Choose(ctx, "primary activity", radio); err != nil {
		return err
	}
	if t.plan.activity == ActivityOther {
		if err := t.fields.Fill(ctx, "activity description", activityOtherTxt, t.plan.description); err != nil {
			return err
		}
	}
	return t.fields.Click(ctx, "continue", continueButton)
}

// receiveAndSubmit picks the online letter and submits the application.
func receiveAndSubmit(ctx context.Context, t *traversal) error {
	if err := t.waitPage(ctx, receiveOnline); err != nil {
		return err
	}
	if err := t.fields.Choose(ctx, "receive letter online", receiveOnline); err != nil {
		return err
	}
	if err := t.fields.Click(ctx, "continue", continueButton); err != nil {
		return err
	}

	if err := t.waitPage(ctx, submitButton); err != nil {
		return err
	}
	if err := t.fields.Click(ctx, "submit", submitButton); err != nil {
		return err
	}
	return t.waitPage(ctx, pageBody)
}

func yearString(y int) string {
	if y <= 0 {
		return ""
	}
	return strconv.Itoa(y)
}

package form

import "github.com/ValerySidorin/einfiler/pkg/session"

var (
	beginButton    = session.CSS("a[href*='begin'], input[value='Begin Application']")
	continueButton = session.CSS("input[type='submit'][value^='Continue'], a.continue-button")
	submitButton   = session.CSS("input[type='submit'][value='Submit']")

	llcMemberCount   = session.ID("numbermem")
	llcState         = session.ID("state")
	jurisdictionYes  = session.ID("radioConfirm_y")
	purposeNewBiz    = session.ID("newbiz")
	roleResponsible  = session.ID("iamsole")
	roleThirdParty   = session.ID("iamthirdparty")
	designeeName     = session.ID("thirdPartyName")
	designeePhone    = session.ID("thirdPartyPhone")
	designeeFax      = session.ID("thirdPartyFax")
	partyFirstName   = session.ID("responsiblePartyFirstName")
	partyMiddleName  = session.ID("responsiblePartyMI")
	partyLastName    = session.ID("responsiblePartyLastName")
	partySuffix      = session.ID("responsiblePartySuffix")
	partySSN1        = session.ID("responsiblePartySSN1")
	partySSN2        = session.ID("responsiblePartySSN2")
	partySSN3        = session.ID("responsiblePartySSN3")
	partyTitle       = session.ID("responsiblePartyTitle")
	physStreet       = session.ID("physicalAddressStreet")
	physStreet2      = session.ID("physicalAddressStreet2")
	physCity         = session.ID("physicalAddressCity")
	physState        = session.ID("physicalAddressState")
	physZip          = session.ID("physicalAddressZipCode")
	phoneArea        = session.ID("phoneFirst3")
	phoneExchange    = session.ID("phoneMiddle3")
	phoneLine        = session.ID("phoneLast4")
	careOfName       = session.ID("physicalAddressCareofName")
	mailingYes       = session.ID("radioAnotherAddress_y")
	mailingNo        = session.ID("radioAnotherAddress_n")
	mailStreet       = session.ID("mailingAddressStreet")
	mailCity         = session.ID("mailingAddressCity")
	mailState        = session.ID("mailingAddressState")
	mailZip          = session.ID("mailingAddressPostalCode")
	legalName        = session.ID("businessOperationalLegalName")
	tradeName        = session.ID("businessOperationalTradeName")
	countyName       = session.ID("businessOperationalCounty")
	formationState   = session.ID("businessOperationalState")
	startMonth       = session.ID("BUSINESS_OPERATIONAL_MONTH_ID")
	startYear        = session.ID("BUSINESS_OPERATIONAL_YEAR_ID")
	fiscalMonth      = session.ID("fiscalMonth")
	trucksNo         = session.ID("radioTrucks_n")
	gamblingNo       = session.ID("radioInvolveGambling_n")
	exciseNo         = session.ID("radioExciseTax_n")
	firearmsNo       = session.ID("radioSellAlcohol_n")
	employeesYes     = session.ID("radioHasEmployees_y")
	employeesNo      = session.ID("radioHasEmployees_n")
	employeesAgri    = session.ID("numAgriculturalEmployees")
	employeesHouse   = session.ID("numHouseholdEmployees")
	employeesOther   = session.ID("numOtherEmployees")
	firstWagesMonth  = session.ID("firstWagesMonth")
	firstWagesYear   = session.ID("firstWagesYear")
	activityOtherTxt = session.ID("pleasespecify")
	receiveOnline    = session.ID("receiveonline")
	pageBody         = session.CSS("body")
)

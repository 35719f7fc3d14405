package form

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Mapped categories as labelled on the first page of the form.
const (
	CategorySoleProprietor = "Sole Proprietor"
	CategoryPartnership    = "Partnerships"
	CategoryCorporation    = "Corporations"
	CategoryLLC            = "Limited Liability Company (LLC)"
	CategoryEstate         = "Estate"
	CategoryTrust          = "Trusts"
	CategoryAdditional     = "View Additional Types, Including Tax-Exempt and Governmental Organizations"
)

// Sub-types offered on the second page.
const (
	SubTypeSoleProprietor    = "Sole Proprietor"
	SubTypeHouseholdEmployer = "Household Employer"
	SubTypePartnership       = "Partnership"
	SubTypeJointVenture      = "Joint Venture"
	SubTypeLLP               = "Limited Liability Partnership"
	SubTypeLimitedPartner    = "Limited Partnership"
	SubTypeCorporation       = "Corporation"
	SubTypeSCorporation      = "S Corporation"
	SubTypePersonalService   = "Personal Service Corporation"
	SubTypeIrrevocableTrust  = "Irrevocable Trust"
	SubTypeRevocableTrust    = "Revocable Trust"
	SubTypeNonProfit         = "Non-Profit/Tax-Exempt Organization"
	SubTypeChurch            = "Church-Controlled Organization"
)

// Mapping is the result of looking up a case's entity type.
type Mapping struct {
	Category string
	SubType  string
}

var categories = map[string]Mapping{
	"sole proprietorship":           {CategorySoleProprietor, SubTypeSoleProprietor},
	"sole proprietor":               {CategorySoleProprietor, SubTypeSoleProprietor},
	"individual":                    {CategorySoleProprietor, SubTypeSoleProprietor},
	"household employer":            {CategorySoleProprietor, SubTypeHouseholdEmployer},
	"partnership":                   {CategoryPartnership, SubTypePartnership},
	"general partnership":           {CategoryPartnership, SubTypePartnership},
	"limited partnership":           {CategoryPartnership, SubTypeLimitedPartner},
	"llp":                           {CategoryPartnership, SubTypeLLP},
	"limited liability partnership": {CategoryPartnership, SubTypeLLP},
	"joint venture":                 {CategoryPartnership, SubTypeJointVenture},
	"corporation":                   {CategoryCorporation, SubTypeCorporation},
	"c-corporation":                 {CategoryCorporation, SubTypeCorporation},
	"c corporation":                 {CategoryCorporation, SubTypeCorporation},
	"s-corporation":                 {CategoryCorporation, SubTypeSCorporation},
	"s corporation":                 {CategoryCorporation, SubTypeSCorporation},
	"personal service corporation":  {CategoryCorporation, SubTypePersonalService},
	"professional corporation":      {CategoryCorporation, SubTypePersonalService},
	"llc":                           {CategoryLLC, ""},
	"limited liability company":     {CategoryLLC, ""},
	"single-member llc":             {CategoryLLC, ""},
	"multi-member llc":              {CategoryLLC, ""},
	"estate":                        {CategoryEstate, ""},
	"trust":                         {CategoryTrust, SubTypeIrrevocableTrust},
	"irrevocable trust":             {CategoryTrust, SubTypeIrrevocableTrust},
	"revocable trust":               {CategoryTrust, SubTypeRevocableTrust},
	"non-profit":                    {CategoryAdditional, SubTypeNonProfit},
	"nonprofit corporation":         {CategoryAdditional, SubTypeNonProfit},
	"church":                        {CategoryAdditional, SubTypeChurch},
}

var categoryRadios = map[string]string{
	CategorySoleProprietor: "sole",
	CategoryPartnership:    "partnerships",
	CategoryCorporation:    "corporations",
	CategoryLLC:            "limited",
	CategoryEstate:         "estate",
	CategoryTrust:          "trusts",
	CategoryAdditional:     "viewadditional",
}

var subTypeRadios = map[string]string{
	SubTypeSoleProprietor:    "sole_proprietor",
	SubTypeHouseholdEmployer: "household_employer",
	SubTypePartnership:       "partnership",
	SubTypeJointVenture:      "joint_venture",
	SubTypeLLP:               "limited_liability_partnership",
	SubTypeLimitedPartner:    "limited_partnership",
	SubTypeCorporation:       "corporation",
	SubTypeSCorporation:      "s_corporation",
	SubTypePersonalService:   "personal_service_corporation",
	SubTypeIrrevocableTrust:  "irrevocable_trust",
	SubTypeRevocableTrust:    "revocable_trust",
	SubTypeNonProfit:         "nonprofit_organization",
	SubTypeChurch:            "church_controlled_organization",
}

// Legal suffixes stripped from names, per mapped category.
var suffixes = map[string][]string{
	CategoryLLC: {
		"Limited Liability Company", "Limited Liability Co.", "Limited Liability Co",
		"Ltd. Liability Co.", "L.L.C.", "L.L.C", "LLC", "L.C.", "LC",
	},
	CategoryCorporation: {
		"Incorporated", "Corporation", "Company", "Corp.", "Corp", "Inc.", "Inc",
		"Co.", "Co", "Ltd.", "Ltd", "P.C.", "PC",
	},
	CategoryPartnership: {
		"Limited Liability Partnership", "Limited Partnership", "Partnership",
		"L.L.P.", "LLP", "L.P.", "LP",
	},
	CategoryAdditional: {
		"Incorporated", "Corporation", "Corp.", "Corp", "Inc.", "Inc", "NFP",
	},
}

// Jurisdictions where an LLC is asked to confirm its ownership arrangement.
var restrictedJurisdictions = map[string]bool{
	"AZ": true, "CA": true, "ID": true, "LA": true, "NV": true,
	"NM": true, "TX": true, "WA": true, "WI": true,
}

var stateCodes = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR", "california": "CA",
	"colorado": "CO", "connecticut": "CT", "delaware": "DE", "district of columbia": "DC",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID", "illinois": "IL",
	"indiana": "IN", "iowa": "IA", "kansas": "KS", "kentucky": "KY", "louisiana": "LA",
	"maine": "ME", "maryland": "MD", "massachusetts": "MA", "michigan": "MI",
	"minnesota": "MN", "mississippi": "MS", "missouri": "MO", "montana": "MT",
	"nebraska": "NE", "nevada": "NV", "new hampshire": "NH", "new jersey": "NJ",
	"new mexico": "NM", "new york": "NY", "north carolina": "NC", "north dakota": "ND",
	"ohio": "OH", "oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA",
	"rhode island": "RI", "south carolina": "SC", "south dakota": "SD", "tennessee": "TN",
	"texas": "TX", "utah": "UT", "vermont": "VT", "virginia": "VA", "washington": "WA",
	"west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
}

var validStateCodes = lo.Associate(lo.Values(stateCodes), func(code string) (string, bool) {
	return code, true
})

var monthNames = [...]string{
	"", "January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var months = func() map[string]int {
	m := make(map[string]int, 48)
	for i := 1; i <= 12; i++ {
		name := strings.ToLower(monthNames[i])
		m[name] = i
		m[name[:3]] = i
		m[name[:3]+"."] = i
		m[strconv.Itoa(i)] = i
		if i < 10 {
			m["0"+strconv.Itoa(i)] = i
		}
	}
	m["sept"] = 9
	m["sept."] = 9
	return m
}()

// ActivityOther is the catch-all primary activity.
const ActivityOther = "other"

var activityRadios = map[string]string{
	"construction":                      "construction",
	"real estate":                       "realEstate",
	"rental & leasing":                  "rentalLeasing",
	"rental and leasing":                "rentalLeasing",
	"manufacturing":                     "manufacturing",
	"transportation & warehousing":      "transportation",
	"transportation and warehousing":    "transportation",
	"finance & insurance":               "finance",
	"finance and insurance":             "finance",
	"health care & social assistance":   "healthCare",
	"health care and social assistance": "healthCare",
	"accommodation & food service":      "accommodations",
	"accommodation and food service":    "accommodations",
	"wholesale-agent/broker":            "wholesaleAgent",
	"wholesale agent/broker":            "wholesaleAgent",
	"wholesale-other":                   "wholesaleOther",
	"wholesale other":                   "wholesaleOther",
	"retail":                            "retail",
	ActivityOther:                       ActivityOther,
}

func lookupKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// MapCategory looks up an entity type. Unknown types map to the zero Mapping.
func MapCategory(entityType string) Mapping {
	return categories[lookupKey(entityType)]
}

// CategoryRadio returns the radio id for a mapped category, or "".
func CategoryRadio(category string) string {
	return categoryRadios[category]
}

// SubTypeRadio returns the radio id for a sub-type, or "".
func SubTypeRadio(subType string) string {
	return subTypeRadios[subType]
}

// KnownCategories lists every accepted entity type key.
func KnownCategories() []string {
	return lo.Keys(categories)
}

package form

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		category string
		want     string
	}{
		{"Acme LLC", CategoryLLC, "Acme"},
		{"Acme", CategoryLLC, "Acme"},
		{"Acme, L.L.C.", CategoryLLC, "Acme"},
		{"Acme LLC.", CategoryLLC, "Acme"},
		{"Acme Holdings Limited Liability Company", CategoryLLC, "Acme Holdings"},
		{"  Acme   Widgets  Inc. ", CategoryCorporation, "Acme Widgets"},
		{"Acme Co Inc", CategoryCorporation, "Acme"},
		{"Smith & Jones, LLP", CategoryPartnership, "Smith & Jones"},
		{"O'Brien's Bakery", CategorySoleProprietor, "OBriens Bakery"},
		{"Acme LLC", CategorySoleProprietor, "Acme LLC"},
		{"LLC", CategoryLLC, "LLC"},
		{"", CategoryLLC, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeName(tt.name, tt.category)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeName(got, tt.category))
		})
	}
}

func TestTradeNameFor(t *testing.T) {
	assert.Equal(t, "", TradeNameFor("Acme LLC", "Acme", CategoryLLC))
	assert.Equal(t, "", TradeNameFor("Acme LLC", "ACME, LLC", CategoryLLC))
	assert.Equal(t, "", TradeNameFor("Acme LLC", "", CategoryLLC))
	assert.Equal(t, "Acme Widgets", TradeNameFor("Acme LLC", "Acme Widgets LLC", CategoryLLC))
}

func TestParseFormationDate(t *testing.T) {
	tests := []struct {
		in        string
		wantMonth time.Month
		wantYear  int
	}{
		{"2021-03-15", time.March, 2021},
		{"03/15/2021", time.March, 2021},
		{"2021/03/15", time.March, 2021},
		{"March 15, 2021", time.March, 2021},
		{" March  15,  2021 ", time.March, 2021},
		{"15.03.2021", 0, 0},
		{"", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, y := ParseFormationDate(tt.in)
			assert.Equal(t, tt.wantMonth, m)
			assert.Equal(t, tt.wantYear, y)
		})
	}
}

func TestNormalizeMonth(t *testing.T) {
	for _, in := range []string{"December", "december", "DEC", "dec.", "12", " 12 "} {
		m, ok := NormalizeMonth(in)
		assert.True(t, ok, in)
		assert.Equal(t, time.December, m, in)
	}

	m, ok := NormalizeMonth("09")
	assert.True(t, ok)
	assert.Equal(t, time.September, m)

	m, ok = NormalizeMonth("Sept")
	assert.True(t, ok)
	assert.Equal(t, time.September, m)

	_, ok = NormalizeMonth("13")
	assert.False(t, ok)
	_, ok = NormalizeMonth("")
	assert.False(t, ok)

	assert.Equal(t, "", MonthName(0))
	assert.Equal(t, "May", MonthName(time.May))
}

func TestMemberCount(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{``, 1, false},
		{`null`, 1, false},
		{`3`, 3, true},
		{`"3"`, 3, true},
		{`" 4 "`, 4, true},
		{`2.9`, 2, true},
		{`"2.0"`, 2, true},
		{`0`, 1, false},
		{`-2`, 1, false},
		{`"two"`, 1, false},
		{`true`, 1, false},
		{`[1]`, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			n, ok := MemberCount(json.RawMessage(tt.raw))
			assert.Equal(t, tt.want, n)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestNormalizeJurisdiction(t *testing.T) {
	code, ok := NormalizeJurisdiction("Texas")
	assert.True(t, ok)
	assert.Equal(t, "TX", code)

	code, ok = NormalizeJurisdiction(" new  mexico ")
	assert.True(t, ok)
	assert.Equal(t, "NM", code)

	code, ok = NormalizeJurisdiction("de")
	assert.True(t, ok)
	assert.Equal(t, "DE", code)

	_, ok = NormalizeJurisdiction("Ontario")
	assert.False(t, ok)

	restricted := 0
	for _, c := range stateCodes {
		if IsRestrictedJurisdiction(c) {
			restricted++
		}
	}
	assert.Equal(t, 9, restricted)
	assert.False(t, IsRestrictedJurisdiction("DE"))
}

func TestSameAddress(t *testing.T) {
	assert.True(t, SameAddress("123 Main St", "123 main st"))
	assert.True(t, SameAddress("123 Main St", "  123   MAIN   st "))
	assert.False(t, SameAddress("123 Main St", "456 Other Ave"))
}

func TestSplitters(t *testing.T) {
	parts, ok := SplitTaxID("123-45-6789")
	assert.True(t, ok)
	assert.Equal(t, [3]string{"123", "45", "6789"}, parts)

	_, ok = SplitTaxID("12345")
	assert.False(t, ok)

	phone, ok := SplitPhone("+1 (512) 555-0100")
	assert.True(t, ok)
	assert.Equal(t, [3]string{"512", "555", "0100"}, phone)

	_, ok = SplitPhone("555-0100")
	assert.False(t, ok)

	assert.Equal(t, "Jr.", NormalizeContactSuffix("JR"))
	assert.Equal(t, "", NormalizeContactSuffix("the great"))
}

func TestActivityRadio(t *testing.T) {
	id, ok := ActivityRadio("Real Estate")
	assert.True(t, ok)
	assert.Equal(t, "realEstate", id)

	id, ok = ActivityRadio("Space mining")
	assert.False(t, ok)
	assert.Equal(t, ActivityOther, id)
}

package diagnose

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectType2(t *testing.T) {
	assert.True(t, DetectType2("Sorry. We are unable to provide you with an EIN at this time."))
	assert.True(t, DetectType2("we are unable\n to provide  you with an ein"))
	assert.False(t, DetectType2("Congratulations! Your EIN has been successfully assigned."))
}

func TestReferenceNumber(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		markup string
		want   string
	}{
		{
			name: "from page text",
			text: "we are unable to provide you with an ein ... reference number 101",
			want: "101",
		},
		{
			name: "with colon",
			text: "Please call us and provide Reference Number: 115. Thank you.",
			want: "115",
		},
		{
			name:   "label and number in separate elements",
			text:   "Reference Number",
			markup: `<table><tr><td><b>Reference Number</b></td><td>:</td><td>  109 </td></tr></table>`,
			want:   "109",
		},
		{
			name:   "label without number",
			text:   "",
			markup: `<p>reference number</p><p>unavailable</p><p>2024</p>`,
			want:   "",
		},
		{
			name: "nothing",
			text: "no code here",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReferenceNumber(tt.text, tt.markup))
		})
	}
}

func TestEIN(t *testing.T) {
	assert.Equal(t, "12-3456789", EIN("Your EIN is 12-3456789. Keep it safe."))
	assert.Equal(t, "", EIN("Your EIN is 123456789."))
}

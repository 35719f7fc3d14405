package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"Acme LLC", "acme-llc"},
		{"  Joe's Pizza & Subs, Inc. ", "joe-s-pizza-subs-inc"},
		{"", "entity"},
		{"---", "entity"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.out, Slug(tt.in), tt.in)
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "filings/rec1/acme-llc-ein-letter.pdf", Name("filings", "rec1", "Acme LLC", PurposeLetter, "pdf"))
	assert.Equal(t, "filings/rec1/acme-llc_data.json", AuditName("filings", "rec1", "Acme LLC"))
}

func TestArtifactHelpers(t *testing.T) {
	a := Artifact{Name: "filings/rec1/acme-llc-failure.pdf", Visibility: VisibilityFor(PurposeFailure)}
	assert.Equal(t, "acme-llc-failure.pdf", a.FileName())
	assert.True(t, a.Hidden())
	assert.Equal(t, VisibilityClient, VisibilityFor(PurposeLetter))
	assert.Equal(t, "pdf", ExtensionFor(ContentTypePDF))
	assert.Equal(t, "json", ExtensionFor(ContentTypeJSON))
	assert.Equal(t, "bin", ExtensionFor("text/plain"))
}

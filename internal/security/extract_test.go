package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractContact(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{
			name:   "email wins over url",
			text:   "Report issues at https://example.com/security or mail security@example.com.",
			want:   "security@example.com",
			wantOK: true,
		},
		{
			name:   "security url wins over plain url",
			text:   "Homepage https://example.com/about, disclosure https://example.com/vulnerability-disclosure.",
			want:   "https://example.com/vulnerability-disclosure",
			wantOK: true,
		},
		{
			name:   "report path counts as security url",
			text:   "See https://example.com/ then https://example.com/Report-A-Bug",
			want:   "https://example.com/Report-A-Bug",
			wantOK: true,
		},
		{
			name:   "host alone does not make a security url",
			text:   "https://security.example.com/ and https://example.com/security",
			want:   "https://example.com/security",
			wantOK: true,
		},
		{
			name:   "falls back to any url",
			text:   "Contact us via https://example.com/contact.",
			want:   "https://example.com/contact",
			wantOK: true,
		},
		{
			name:   "no contact",
			text:   "Please be responsible when disclosing issues.",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractContact(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFreeTextStrategiesAreOrdered(t *testing.T) {
	names := make([]string, 0, len(freeTextStrategies))
	for _, s := range freeTextStrategies {
		names = append(names, s.name)
	}
	assert.Equal(t, []string{"email", "security-url", "url"}, names)
}

func TestExtractSecurityTxtContact(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{
			name:   "first contact field",
			text:   "# comment\nContact: mailto:security@example.com  \nContact: https://example.com/security\nExpires: 2030-01-01T00:00:00Z\n",
			want:   "mailto:security@example.com",
			wantOK: true,
		},
		{
			name:   "label is case insensitive",
			text:   "CONTACT: https://example.com/security\r\n",
			want:   "https://example.com/security",
			wantOK: true,
		},
		{
			name:   "empty contact is skipped",
			text:   "Contact:\ncontact: sec@example.com\n",
			want:   "sec@example.com",
			wantOK: true,
		},
		{
			name:   "free text email is ignored",
			text:   "Email security@example.com for help\n",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractSecurityTxtContact(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

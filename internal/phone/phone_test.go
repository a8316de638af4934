package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"local zero prefix", "0712345678", "+254712345678"},
		{"local one prefix", "0112345678", "+254112345678"},
		{"international", "254712345678", "+254712345678"},
		{"canonical passthrough", "+254712345678", "+254712345678"},
		{"spaces and dashes", " 0712-345 678 ", "+254712345678"},
		{"parentheses", "(+254) 712 345678", "+254712345678"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"too short", "07123"},
		{"too long", "07123456789"},
		{"landline prefix", "0212345678"},
		{"bad country code", "255712345678"},
		{"letters only", "PENZI"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.in)
			assert.Error(t, err)
		})
	}
}

func TestAudit(t *testing.T) {
	assert.Equal(t, "254712345678", Audit("+254712345678"))
	assert.Equal(t, "254712345678", Audit("254712345678"))
}

package validation

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"jane@reform.app",
		"  padded@reform.app  ",
		"first.last+tag@sub.domain.io",
		"UPPER@CASE.COM",
	}
	for _, email := range valid {
		assert.True(t, IsValidEmail(email), "expected %q to be accepted", email)
	}

	invalid := []string{
		"",
		"   ",
		"no-at-sign.com",
		"two@@reform.app",
		"missing@tld",
		"spa ce@reform.app",
		"@reform.app",
		strings.Repeat("a", 250) + "@x.com",
	}
	for _, email := range invalid {
		assert.False(t, IsValidEmail(email), "expected %q to be rejected", email)
	}
}

func TestRegisterEmailValidation(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterEmailValidation(v))

	type form struct {
		Email string `validate:"waitlist_email"`
	}

	assert.NoError(t, v.Struct(form{Email: "jane@reform.app"}))
	assert.Error(t, v.Struct(form{Email: "jane"}))
}

package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	cases := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid", "Str0ng!pass", true},
		{"too short", "S0r!t", false},
		{"no uppercase", "str0ng!pass", false},
		{"no lowercase", "STR0NG!PASS", false},
		{"no digit", "Strong!pass", false},
		{"no symbol", "Str0ngpass1", false},
		{"exactly eight chars", "Aa1!bcde", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := ValidatePasswordStrength(tc.password)
			assert.Equal(t, tc.ok, ok)
			if !tc.ok {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestGenerateTemporaryPassword(t *testing.T) {
	for i := 0; i < 50; i++ {
		pw, err := GenerateTemporaryPassword(DefaultTemporaryPasswordLength)
		require.NoError(t, err)
		require.Len(t, pw, DefaultTemporaryPasswordLength)

		// Every generated password must satisfy the policy it will be checked
		// against on rotation.
		ok, reason := ValidatePasswordStrength(pw)
		require.True(t, ok, "generated password %q failed policy: %s", pw, reason)

		for _, c := range pw {
			require.True(t, strings.ContainsRune(temporaryPasswordAlphabet, c),
				"unexpected character %q", c)
		}
	}
}

func TestGenerateTemporaryPasswordDefaultLength(t *testing.T) {
	pw, err := GenerateTemporaryPassword(0)
	require.NoError(t, err)
	assert.Len(t, pw, DefaultTemporaryPasswordLength)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Str0ng!pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ng!pass", hash)

	assert.True(t, VerifyPassword("Str0ng!pass", hash))
	assert.False(t, VerifyPassword("wrong", hash))
}

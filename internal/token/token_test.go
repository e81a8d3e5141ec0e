package token

import (
	"testing"
	"time"

	"ergoquipt-data/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	m := NewManager("secret", time.Hour)

	signed, expiresAt, err := m.Issue("user-1", "op1", domain.RoleOperator, domain.PlatformRequestMobile)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "op1", claims.Username)
	assert.Equal(t, "operator", claims.Role)
	assert.Equal(t, "mobile", claims.Platform)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	m := NewManager("secret", time.Hour)
	other := NewManager("other-secret", time.Hour)

	signed, _, err := m.Issue("user-1", "op1", domain.RoleOperator, domain.PlatformRequestMobile)
	require.NoError(t, err)

	_, err = other.Parse(signed)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	m := NewManager("secret", time.Hour).WithClock(func() time.Time { return past })

	signed, _, err := m.Issue("user-1", "op1", domain.RoleOperator, domain.PlatformRequestWeb)
	require.NoError(t, err)

	// Back on the real clock, the token issued two hours ago is expired.
	_, err = m.WithClock(time.Now).Parse(signed)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	m := NewManager("secret", time.Hour)
	_, err := m.Parse("not-a-token")
	assert.Error(t, err)
}

package accounts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	issuer := NewSessionIssuer("test-secret", time.Hour)

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestSessionVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewSessionIssuer("secret-a", time.Hour).Issue("user-123")
	require.NoError(t, err)

	_, err = NewSessionIssuer("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionVerifyRejectsGarbage(t *testing.T) {
	issuer := NewSessionIssuer("test-secret", time.Hour)

	_, err := issuer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionVerifyRejectsExpired(t *testing.T) {
	issuer := NewSessionIssuer("test-secret", time.Nanosecond)

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionIssueRequiresSecret(t *testing.T) {
	issuer := NewSessionIssuer("", time.Hour)

	_, err := issuer.Issue("user-123")
	assert.Error(t, err)
}

package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ana = Identity{ID: "u-1", Email: "ana@example.com", Name: "Ana", Surname: "Lopez"}

func TestIssuer_RoundTrip(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)

	token, err := iss.Issue(ana)
	require.NoError(t, err)

	got, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, ana, got)
}

func TestIssuer_Rejects(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)
	token, err := iss.Issue(ana)
	require.NoError(t, err)

	other, err := NewIssuer("another", time.Hour)
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	_, err = iss.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken, "tampered payload")

	_, err = iss.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_Expiry(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Minute)
	require.NoError(t, err)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return start }

	token, err := iss.Issue(ana)
	require.NoError(t, err)

	iss.now = func() time.Time { return start.Add(30 * time.Second) }
	_, err = iss.Verify(token)
	require.NoError(t, err)

	iss.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = iss.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuer(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	require.Error(t, err)

	iss, err := NewIssuer("x", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, iss.TTL())
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword(hash, "secret124"))
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	got, ok := IdentityFrom(WithIdentity(context.Background(), ana))
	require.True(t, ok)
	assert.Equal(t, ana, got)
}

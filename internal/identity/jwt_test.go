package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/config"
)

var fixedNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newTestJWT(t *testing.T, now time.Time) *JWT {
	t.Helper()
	j, err := NewJWT(config.Auth{JWTSecret: "test-secret", JWTIssuer: "meetings", JWTAudience: "authenticated"},
		func() time.Time { return now })
	require.NoError(t, err)
	return j
}

func TestNewJWT_RequiresSecret(t *testing.T) {
	_, err := NewJWT(config.Auth{JWTSecret: " "}, nil)
	require.Error(t, err)
}

func TestJWT_IssueVerifyRoundTrip(t *testing.T) {
	j := newTestJWT(t, fixedNow)

	token, err := j.Issue("user-1", time.Hour)
	require.NoError(t, err)

	subject, err := j.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", subject)
}

func TestJWT_VerifyRejects(t *testing.T) {
	issuer := newTestJWT(t, fixedNow)
	token, err := issuer.Issue("user-1", time.Hour)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := newTestJWT(t, fixedNow.Add(2*time.Hour))
		_, err := later.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewJWT(config.Auth{JWTSecret: "other", JWTIssuer: "meetings", JWTAudience: "authenticated"},
			func() time.Time { return fixedNow })
		require.NoError(t, err)
		_, err = other.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other, err := NewJWT(config.Auth{JWTSecret: "test-secret", JWTIssuer: "meetings", JWTAudience: "admin"},
			func() time.Time { return fixedNow })
		require.NoError(t, err)
		_, err = other.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := issuer.Verify("not-a-jwt")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no expiry", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject: "user-1", Issuer: "meetings", Audience: jwt.ClaimStrings{"authenticated"},
		}).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = issuer.Verify(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no subject", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Issuer: "meetings", Audience: jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour)),
		}).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = issuer.Verify(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestJWT_IssueValidation(t *testing.T) {
	j := newTestJWT(t, fixedNow)
	_, err := j.Issue("", time.Hour)
	require.Error(t, err)
	_, err = j.Issue("user-1", 0)
	require.Error(t, err)
}

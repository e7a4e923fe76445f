package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/model"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/repository"
)

type stubProfiles struct {
	profiles map[string]model.Profile
	err      error
	calls    int
}

func (s *stubProfiles) GetProfile(_ context.Context, id string) (*model.Profile, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolver_Resolve(t *testing.T) {
	j := newTestJWT(t, fixedNow)
	profiles := &stubProfiles{profiles: map[string]model.Profile{
		"user-1": {ID: "user-1", Email: "p1@example.com", FirstName: "Paula", Surname: "Runner", Role: model.RoleParticipant},
	}}
	r := NewResolver(j, profiles, discardLogger())
	ctx := context.Background()

	valid, err := j.Issue("user-1", time.Hour)
	require.NoError(t, err)
	orphan, err := j.Issue("deleted-user", time.Hour)
	require.NoError(t, err)

	t.Run("valid token and profile", func(t *testing.T) {
		p, err := r.Resolve(ctx, valid)
		require.NoError(t, err)
		require.Equal(t, &model.Principal{
			ID: "user-1", Email: "p1@example.com", DisplayName: "Paula Runner", Role: model.RoleParticipant,
		}, p)
	})

	t.Run("no token is anonymous", func(t *testing.T) {
		before := profiles.calls
		p, err := r.Resolve(ctx, "")
		require.NoError(t, err)
		require.Nil(t, p)
		require.Equal(t, before, profiles.calls, "no profile lookup without a token")
	})

	t.Run("malformed token is anonymous", func(t *testing.T) {
		p, err := r.Resolve(ctx, "garbage")
		require.NoError(t, err)
		require.Nil(t, p)
	})

	t.Run("subject without profile", func(t *testing.T) {
		p, err := r.Resolve(ctx, orphan)
		require.ErrorIs(t, err, ErrProfileNotFound)
		require.Nil(t, p)
	})

	t.Run("profile store failure", func(t *testing.T) {
		broken := NewResolver(j, &stubProfiles{err: errors.New("connection refused")}, discardLogger())
		p, err := broken.Resolve(ctx, valid)
		require.ErrorIs(t, err, ErrSessionCheckFailed)
		require.Nil(t, p)
	})
}

func TestResolver_RevocationTakesEffectNextCall(t *testing.T) {
	j := newTestJWT(t, fixedNow)
	profiles := &stubProfiles{profiles: map[string]model.Profile{
		"user-1": {ID: "user-1", Role: model.RoleParticipant},
	}}
	r := NewResolver(j, profiles, discardLogger())
	token, err := j.Issue("user-1", time.Hour)
	require.NoError(t, err)

	p, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, p)

	delete(profiles.profiles, "user-1")
	p, err = r.Resolve(context.Background(), token)
	require.ErrorIs(t, err, ErrProfileNotFound)
	require.Nil(t, p)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	require.Empty(t, TokenFromRequest(req, "sb"))

	req.Header.Set("Authorization", "Bearer abc.def")
	require.Equal(t, "abc.def", TokenFromRequest(req, "sb"))

	req.Header.Set("Authorization", "Basic xyz")
	require.Empty(t, TokenFromRequest(req, "sb"))

	req.AddCookie(&http.Cookie{Name: "sb", Value: "from-cookie"})
	require.Equal(t, "from-cookie", TokenFromRequest(req, "sb"))
}

func TestPrincipalContext(t *testing.T) {
	require.Nil(t, PrincipalFrom(context.Background()))
	p := &model.Principal{ID: "u"}
	require.Same(t, p, PrincipalFrom(WithPrincipal(context.Background(), p)))
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/model"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/repository"
)

// ErrProfileNotFound means the token was valid but its subject has no
// profile row.
var ErrProfileNotFound = errors.New("user profile not found")

// ErrSessionCheckFailed means the profile store could not be reached.
var ErrSessionCheckFailed = errors.New("session check failed")

// TokenVerifier exchanges a token for the identity subject it was issued to.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// ProfileStore looks up profiles by subject id.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
}

// Resolver turns a session token into a Principal.
type Resolver struct {
	tokens   TokenVerifier
	profiles ProfileStore
	logger   *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(tokens TokenVerifier, profiles ProfileStore, logger *slog.Logger) *Resolver {
	return &Resolver{tokens: tokens, profiles: profiles, logger: logger}
}

// Resolve fails closed. A missing, malformed or expired token yields
// (nil, nil): an anonymous caller. A valid token whose subject has no profile
// yields (nil, ErrProfileNotFound); a profile store failure yields
// (nil, ErrSessionCheckFailed). A principal is returned only when both
// lookups succeed.
func (r *Resolver) Resolve(ctx context.Context, token string) (*model.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	ctx, span := otel.Tracer("identity").Start(ctx, "identity.Resolve")
	defer span.End()

	subject, err := r.tokens.Verify(token)
	if err != nil {
		r.logger.DebugContext(ctx, "session token rejected", "err", err)
		return nil, nil
	}

	profile, err := r.profiles.GetProfile(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.logger.WarnContext(ctx, "token subject has no profile", "subject", subject)
			return nil, ErrProfileNotFound
		}
		r.logger.ErrorContext(ctx, "profile lookup failed", "subject", subject, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrSessionCheckFailed, err)
	}
	return profile.Principal(), nil
}

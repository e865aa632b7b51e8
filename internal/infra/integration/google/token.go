package google

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/eladlevy/leadgate/internal/entity"
)

// ErrCredentialRevoked means the stored refresh token is no longer accepted.
// Terminal for the account until someone re-authorizes it; never retried
// automatically.
var ErrCredentialRevoked = errors.New("refresh token revoked or invalid")

// ErrUpstream marks transient provider failures, eligible for retry by the
// periodic triggers (never by the webhook receiver).
var ErrUpstream = errors.New("mail provider unavailable")

type TokenRepositoryInterface interface {
	// Get returns (nil, nil) when no token set is stored for the account.
	Get(ctx context.Context, accountEmail string) (*entity.TokenSet, error)
	Save(ctx context.Context, set *entity.TokenSet) error
}

// Tokens are refreshed a little before they actually expire.
const expiryLeeway = 2 * time.Minute

// TokenManager owns the per-account OAuth token pair. Refresh is
// single-flight per account: concurrent callers seeing an expired token share
// one refresh grant instead of racing the provider.
type TokenManager struct {
	cfg   *oauth2.Config
	repo  TokenRepositoryInterface
	group singleflight.Group
	now   func() time.Time
}

func NewTokenManager(cfg *oauth2.Config, repo TokenRepositoryInterface) *TokenManager {
	return &TokenManager{cfg: cfg, repo: repo, now: time.Now}
}

// GetValidToken returns a usable access token, transparently refreshing it
// when expired or inside the expiry leeway.
func (m *TokenManager) GetValidToken(ctx context.Context, accountEmail string) (string, error) {
	set, err := m.repo.Get(ctx, accountEmail)
	if err != nil {
		return "", fmt.Errorf("load token set for %s: %w", accountEmail, err)
	}
	if set == nil {
		return "", fmt.Errorf("no credentials stored for %s", accountEmail)
	}
	if m.usable(set) {
		return set.AccessToken, nil
	}
	return m.refresh(ctx, accountEmail)
}

// Refresh forces a refresh grant regardless of the stored expiry.
func (m *TokenManager) Refresh(ctx context.Context, accountEmail string) (string, error) {
	return m.refresh(ctx, accountEmail)
}

func (m *TokenManager) usable(set *entity.TokenSet) bool {
	return set.AccessToken != "" && set.Expiry.After(m.now().Add(expiryLeeway))
}

func (m *TokenManager) refresh(ctx context.Context, accountEmail string) (string, error) {
	token, err, _ := m.group.Do(accountEmail, func() (interface{}, error) {
		// Re-check under the flight: a waiter that lost the race reads the
		// token the winner just persisted instead of refreshing again.
		set, err := m.repo.Get(ctx, accountEmail)
		if err != nil {
			return nil, fmt.Errorf("load token set for %s: %w", accountEmail, err)
		}
		if set == nil {
			return nil, fmt.Errorf("no credentials stored for %s", accountEmail)
		}
		if m.usable(set) {
			return set.AccessToken, nil
		}

		tok, err := m.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: set.RefreshToken}).Token()
		if err != nil {
			return nil, classifyTokenError(err)
		}

		refreshToken := tok.RefreshToken
		if refreshToken == "" {
			refreshToken = set.RefreshToken
		}
		newSet := &entity.TokenSet{
			AccountEmail: accountEmail,
			AccessToken:  tok.AccessToken,
			RefreshToken: refreshToken,
			Expiry:       tok.Expiry,
		}
		if err := m.repo.Save(ctx, newSet); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}

		log.Printf("🔑 [TOKEN] refreshed access token for %s (valid until %s)", accountEmail, tok.Expiry.Format(time.RFC3339))
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func classifyTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode == "invalid_grant" ||
			(re.Response != nil && re.Response.StatusCode == http.StatusUnauthorized) {
			return fmt.Errorf("%w: %v", ErrCredentialRevoked, err)
		}
		if re.Response != nil && re.Response.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}
	return fmt.Errorf("token refresh: %w", err)
}

// Package identity supplies the authenticated user. The user is persisted in
// the local cache so a session survives restarts.
package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/elee1766/parley/src/localcache"
	"github.com/elee1766/parley/src/model"
)

const (
	defaultName   = "Anonymous User"
	avatarBaseURL = "https://ui-avatars.com/api/?name="
)

// ErrInvalidCredential indicates a login credential could not be decoded.
var ErrInvalidCredential = errors.New("invalid credential")

// Store is the persistence used for the logged in user.
type Store interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
	Delete(key string) error
}

// Provider tracks the current user.
type Provider struct {
	store   Store
	logger  *slog.Logger
	mu      sync.RWMutex
	user    *model.User
	loading bool
}

// NewProvider creates a provider in the loading state. Call Load to restore
// a stored session.
func NewProvider(store Store, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		store:   store,
		logger:  logger.With("component", "identity"),
		loading: true,
	}
}

// Load restores the stored user, if any, and clears the loading flag.
func (p *Provider) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() { p.loading = false }()

	var u model.User
	ok, err := p.store.Get(localcache.KeyUser, &u)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !ok {
		return nil
	}
	if u.ID == "" {
		p.logger.Warn("stored user has no id, discarding")
		if err := p.store.Delete(localcache.KeyUser); err != nil {
			p.logger.Warn("failed to remove stored user", "error", err)
		}
		return nil
	}
	p.user = &u
	p.logger.Debug("restored user session", "user_id", u.ID)
	return nil
}

// Login fills defaults for missing fields, stores the user and makes it
// current.
func (p *Provider) Login(partial model.User) (model.User, error) {
	u := partial
	if u.ID == "" {
		u.ID = "user-" + uuid.NewString()
	}
	if u.Name == "" {
		u.Name = defaultName
	}
	if u.Avatar == "" {
		u.Avatar = DefaultAvatar(partial.Name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Set(localcache.KeyUser, u); err != nil {
		return model.User{}, fmt.Errorf("failed to store user: %w", err)
	}
	p.user = &u
	p.loading = false
	p.logger.Info("user logged in", "user_id", u.ID)
	return u, nil
}

// LoginWithGoogleCredential logs in with the claims of a Google ID token.
// The signature is not verified.
func (p *Provider) LoginWithGoogleCredential(credential string) (model.User, error) {
	u, err := DecodeGoogleCredential(credential)
	if err != nil {
		return model.User{}, err
	}
	return p.Login(u)
}

// Logout clears the current and stored user.
func (p *Provider) Logout() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = nil
	if err := p.store.Delete(localcache.KeyUser); err != nil {
		return fmt.Errorf("failed to clear stored user: %w", err)
	}
	p.logger.Info("user logged out")
	return nil
}

// User returns the current user, or nil when logged out.
func (p *Provider) User() *model.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return nil
	}
	u := *p.user
	return &u
}

func (p *Provider) IsAuthenticated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.user != nil
}

func (p *Provider) IsLoading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

// DefaultAvatar builds the generated avatar URL for a display name.
func DefaultAvatar(name string) string {
	if name == "" {
		name = "User"
	}
	return avatarBaseURL + strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}

// DecodeGoogleCredential extracts the user from a Google ID token payload.
func DecodeGoogleCredential(credential string) (model.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return model.User{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return model.User{}, fmt.Errorf("%w: missing subject", ErrInvalidCredential)
	}
	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	return model.User{
		ID:     sub,
		Name:   str("name"),
		Email:  str("email"),
		Avatar: str("picture"),
	}, nil
}

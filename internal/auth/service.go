package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"trove.dev/internal/policy"
	"trove.dev/internal/token"
)

const (
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Service orchestrates registration, login, token refresh and identity
// resolution over the credential store and the token codec. It keeps no
// session state; identity is re-derived from the presented token every call.
type Service struct {
	store UserStore
	codec *token.Codec

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// NewService constructs a Service.
func NewService(store UserStore, codec *token.Codec, opts ...ServiceOption) *Service {
	s := &Service{
		store:      store,
		codec:      codec,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProfileUpdate carries the optional fields of a self-update. Nil fields are
// left unchanged.
type ProfileUpdate struct {
	Email    *string
	FullName *string
	Password *string
}

// Register creates an active, non-privileged account. Email uniqueness is
// resolved by the store's constraint, not a prior existence check, so two
// concurrent registrations for the same email cannot both win.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrInvalidInput
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(fullName),
		IsActive:     true,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown email and
// wrong password yield the same ErrInvalidCredentials; a disabled account with
// correct credentials yields ErrInactiveAccount.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, *User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return TokenPair{}, nil, ErrInvalidCredentials
	}
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, nil, ErrInvalidCredentials
		}
		return TokenPair{}, nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return TokenPair{}, nil, ErrInactiveAccount
	}
	pair, err := s.mintPair(user.Email)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, user, nil
}

// Refresh exchanges a refresh token for a new pair. The presented refresh
// token stays valid until its natural expiry; there is no revocation store.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, *User, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return TokenPair{}, nil, ErrInvalidToken
	}
	if claims.Kind != token.KindRefresh {
		return TokenPair{}, nil, ErrInvalidToken
	}
	user, err := s.store.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, nil, err
	}
	if !user.IsActive {
		return TokenPair{}, nil, ErrInactiveAccount
	}
	pair, err := s.mintPair(user.Email)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, user, nil
}

// ResolveIdentity validates an access token and loads the account behind it.
// Every protected operation passes through here. Any failure collapses to
// ErrInvalidToken.
func (s *Service) ResolveIdentity(ctx context.Context, accessToken string) (*User, error) {
	claims, err := s.codec.Decode(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Kind != token.KindAccess {
		return nil, ErrInvalidToken
	}
	user, err := s.store.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// UpdateProfile applies a self-update. Changing the password takes effect for
// future logins only; outstanding refresh tokens are not invalidated.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileUpdate) (*User, error) {
	user, err := s.store.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, ErrInvalidInput
		}
		user.Email = email
	}
	if in.FullName != nil {
		user.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser returns a user record, gated by the ownership policy: only the user
// themselves or a superuser may read it.
func (s *Service) GetUser(ctx context.Context, requester *User, id int64) (*User, error) {
	user, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanActOn(requester.ID, requester.IsSuperuser, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns the user directory. Superusers only.
func (s *Service) ListUsers(ctx context.Context, requester *User, skip, limit int) ([]*User, error) {
	if err := policy.RequireSuperuser(requester.IsSuperuser); err != nil {
		return nil, err
	}
	return s.store.List(ctx, skip, limit)
}

// DeleteUser removes an account and, through the store's cascade, the items it
// owns. Users may delete themselves; superusers may delete anyone.
func (s *Service) DeleteUser(ctx context.Context, requester *User, id int64) error {
	user, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.CanActOn(requester.ID, requester.IsSuperuser, user.ID); err != nil {
		return err
	}
	return s.store.Delete(ctx, user.ID)
}

// EnsureSuperuser creates the bootstrap superuser if the email is not taken.
// Called once at startup; losing the creation race to a concurrent boot is
// fine, the account exists either way.
func (s *Service) EnsureSuperuser(ctx context.Context, email, password, fullName string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidInput
	}
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	user := &User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(fullName),
		IsActive:     true,
		IsSuperuser:  true,
	}
	if err := s.store.Create(ctx, user); err != nil && !errors.Is(err, ErrEmailTaken) {
		return err
	}
	return nil
}

func (s *Service) mintPair(subject string) (TokenPair, error) {
	access, accessExp, err := s.codec.Issue(subject, token.KindAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.codec.Issue(subject, token.KindRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/auth"
)

type AuthGateway interface {
	Login(ctx context.Context, email, password string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Signup(ctx context.Context, cmd *domain.SignupCommand) (*domain.Account, error)
}

type LoginCommand struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SessionStatus struct {
	SignedIn  bool      `json:"signed_in"`
	Subject   string    `json:"subject,omitempty"`
	Email     string    `json:"email,omitempty"`
	Username  string    `json:"username,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Expired   bool      `json:"expired"`
}

// SessionService owns the credentials kept in the local store. Tokens are
// never refreshed behind the caller's back.
type SessionService struct {
	gateway     AuthGateway
	store       KeyValueStore
	creds       CredentialResolver
	activitySvc *ActivityService
	log         *zap.Logger
	now         func() time.Time
}

func NewSessionService(gateway AuthGateway, store KeyValueStore, creds CredentialResolver, activitySvc *ActivityService, log *zap.Logger) *SessionService {
	return &SessionService{
		gateway:     gateway,
		store:       store,
		creds:       creds,
		activitySvc: activitySvc,
		log:         log,
		now:         time.Now,
	}
}

func (s *SessionService) Login(ctx context.Context, cmd *LoginCommand) (*SessionStatus, error) {
	cmd.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	if err := validateStruct(cmd); err != nil {
		return nil, err
	}

	pair, err := s.gateway.Login(ctx, cmd.Email, cmd.Password)
	if err != nil {
		s.activitySvc.LogAsync(ctx, ActivityEntry{
			Action:       domain.ActionLogin,
			ResourceType: "session",
			Outcome:      domain.OutcomeFailure,
		})
		var se *domain.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusBadRequest) {
			s.log.Warn("failed login attempt", zap.String("email", cmd.Email))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("signing in: %w", err)
	}

	profile := s.buildProfile(pair)
	blob, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encoding profile: %w", err)
	}

	values := map[string]string{
		auth.KeyAccessToken: pair.AccessToken,
		auth.KeyProfile:     string(blob),
	}
	if pair.RefreshToken != "" {
		values[auth.KeyRefreshToken] = pair.RefreshToken
	}
	if err := s.store.SetMany(ctx, values); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	s.activitySvc.LogAsync(ctx, ActivityEntry{
		Action:       domain.ActionLogin,
		ResourceType: "session",
		ResourceID:   profile.Subject,
		Outcome:      domain.OutcomeSuccess,
	})
	s.log.Info("signed in", zap.String("subject", profile.Subject))

	return s.statusFromProfile(profile), nil
}

// Refresh trades the stored refresh token for a new access token and keeps
// the refresh token, since the server does not rotate it.
func (s *SessionService) Refresh(ctx context.Context) (*SessionStatus, error) {
	refresh, ok, err := s.store.Get(ctx, auth.KeyRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("reading refresh token: %w", err)
	}
	if !ok || refresh == "" {
		return nil, ErrUnauthenticated
	}

	pair, err := s.gateway.Refresh(ctx, refresh)
	if err != nil {
		var se *domain.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("refreshing session: %w", err)
	}

	profile := s.buildProfile(pair)
	if cached, ok := s.cachedProfile(ctx); ok {
		profile.Username = cached.Username
		profile.FullName = cached.FullName
		if profile.Email == "" {
			profile.Email = cached.Email
		}
	}
	blob, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encoding profile: %w", err)
	}

	if err := s.store.SetMany(ctx, map[string]string{
		auth.KeyAccessToken: pair.AccessToken,
		auth.KeyProfile:     string(blob),
	}); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return s.statusFromProfile(profile), nil
}

// Logout forgets both tokens and the cached profile. Notes survive.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.store.Delete(ctx, auth.KeyAccessToken, auth.KeyRefreshToken, auth.KeyProfile); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	s.activitySvc.LogAsync(ctx, ActivityEntry{
		Action:       domain.ActionLogout,
		ResourceType: "session",
		Outcome:      domain.OutcomeSuccess,
	})
	return nil
}

func (s *SessionService) Signup(ctx context.Context, cmd *domain.SignupCommand) (*domain.Account, error) {
	cmd.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	cmd.Username = strings.TrimSpace(cmd.Username)
	if err := validateStruct(cmd); err != nil {
		return nil, err
	}

	acct, err := s.gateway.Signup(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return acct, nil
}

// Status reports who the resolved credential belongs to, as far as its
// unverified claims tell.
func (s *SessionService) Status(ctx context.Context) (*SessionStatus, error) {
	token, ok := s.creds.Resolve(ctx)
	if !ok {
		return &SessionStatus{}, nil
	}

	st := &SessionStatus{SignedIn: true}
	if info, err := auth.Inspect(token); err == nil {
		st.Subject = info.Subject
		st.Email = info.Email
		st.ExpiresAt = info.ExpiresAt
		st.Expired = info.Expired(s.now())
	} else {
		s.log.Debug("stored token is not a readable JWT", zap.Error(err))
	}

	if cached, ok := s.cachedProfile(ctx); ok {
		st.Username = cached.Username
		st.FullName = cached.FullName
		if st.Email == "" {
			st.Email = cached.Email
		}
	}
	return st, nil
}

func (s *SessionService) buildProfile(pair *domain.TokenPair) domain.Profile {
	p := domain.Profile{AccessToken: pair.AccessToken}
	if info, err := auth.Inspect(auth.Credential(pair.AccessToken)); err == nil {
		p.Subject = info.Subject
		p.Email = info.Email
		p.ExpiresAt = info.ExpiresAt
	}
	if pair.User != nil {
		p.Username = pair.User.Username
		p.FullName = pair.User.FullName
		if p.Email == "" {
			p.Email = pair.User.Email
		}
		if p.Subject == "" {
			p.Subject = pair.User.Email
		}
	}
	return p
}

func (s *SessionService) cachedProfile(ctx context.Context) (domain.Profile, bool) {
	var p domain.Profile
	raw, ok, err := s.store.Get(ctx, auth.KeyProfile)
	if err != nil || !ok {
		return p, false
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, false
	}
	return p, true
}

func (s *SessionService) statusFromProfile(p domain.Profile) *SessionStatus {
	return &SessionStatus{
		SignedIn:  true,
		Subject:   p.Subject,
		Email:     p.Email,
		Username:  p.Username,
		FullName:  p.FullName,
		ExpiresAt: p.ExpiresAt,
		Expired:   !p.ExpiresAt.IsZero() && s.now().After(p.ExpiresAt),
	}
}

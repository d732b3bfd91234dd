package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Veein-web/AI-Background-Remover/internal/config"
	"github.com/Veein-web/AI-Background-Remover/internal/ids"
	"github.com/Veein-web/AI-Background-Remover/internal/models"
	"github.com/Veein-web/AI-Background-Remover/internal/oauth"
	"github.com/Veein-web/AI-Background-Remover/internal/repository"
	"github.com/Veein-web/AI-Background-Remover/internal/security"
)

const MinPasswordLength = 8

type AuthService struct {
	users    AccountStore
	sessions SessionStore
	cfg      config.SecurityConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(users AccountStore, sessions SessionStore, cfg config.SecurityConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Principal is the account a request acts for.
type Principal struct {
	User      models.User
	SessionID string
}

type SignupInput struct {
	Email       string
	Password    string
	DisplayName string
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (models.User, error) {
	email := normalizeEmail(input.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return models.User{}, fmt.Errorf("%w: email address is not valid", ErrInvalidInput)
	}
	if len(input.Password) < MinPasswordLength {
		return models.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return models.User{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName(input.DisplayName, email),
		Credits:      models.DefaultCredits,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("account created")
	return user, nil
}

type LoginInput struct {
	Email    string
	Password string
}

// Login never says which of email or password was wrong.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if !user.HasPassword() {
		return models.User{}, ErrInvalidCredentials
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
		return models.User{}, ErrInvalidCredentials
	}
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// FederatedLogin returns the account for a provider verified email, creating
// it on first sight.
func (s *AuthService) FederatedLogin(ctx context.Context, identity oauth.Identity) (models.User, bool, error) {
	email := normalizeEmail(identity.Email)
	if email == "" || !identity.Verified {
		return models.User{}, false, ErrProviderFailure
	}

	user, created, err := s.users.FindOrCreateByEmail(ctx, models.User{
		ID:          ids.New(),
		Email:       email,
		DisplayName: displayName(identity.Name, email),
		Credits:     models.DefaultCredits,
	})
	if err != nil {
		return models.User{}, false, err
	}
	if created {
		s.log.Info().Str("user_id", user.ID).Msg("account created from federated login")
	}
	return user, created, nil
}

type SessionMeta struct {
	Provider  models.AuthProvider
	IPAddress string
	UserAgent string
}

type SessionToken struct {
	Value     string
	ExpiresAt time.Time
}

func (s *AuthService) StartSession(ctx context.Context, user models.User, meta SessionMeta) (SessionToken, error) {
	expiresAt := s.now().Add(s.cfg.SessionTTL)
	session := models.Session{
		ID:        ids.New(),
		UserID:    user.ID,
		Provider:  meta.Provider,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		ExpiresAt: expiresAt,
	}

	token, err := security.GenerateSessionToken(s.cfg.SessionSecret, user.ID, session.ID, expiresAt)
	if err != nil {
		return SessionToken{}, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Value: token, ExpiresAt: expiresAt}, nil
}

// Resolve turns a session cookie into the principal it stands for.
func (s *AuthService) Resolve(ctx context.Context, token string) (Principal, error) {
	claims, err := security.ParseSessionToken(token, s.cfg.SessionSecret)
	if err != nil {
		return Principal{}, ErrSessionInvalid
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return Principal{}, ErrSessionInvalid
		}
		return Principal{}, err
	}
	if session.UserID != claims.UserID || session.Expired(s.now()) {
		return Principal{}, ErrSessionInvalid
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Principal{}, ErrSessionInvalid
		}
		return Principal{}, err
	}

	if err := s.sessions.Touch(ctx, session.ID); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID).Msg("touch session failed")
	}

	return Principal{User: user, SessionID: session.ID}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	err := s.sessions.DeleteByID(ctx, sessionID)
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return err
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func displayName(name, email string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

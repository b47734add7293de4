package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"barplexity/internal/model"
	"barplexity/internal/pkg/jwtutil"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmailExists       = errors.New("email already registered")
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrAccountBlocked    = errors.New("account is blocked")
	ErrAccountBanned     = errors.New("account is banned")
)

type UserStore interface {
	Create(user *model.User) error
	GetByEmail(email string) (*model.User, error)
	GetByID(id uint) (*model.User, error)
}

// SessionRegistry is the server-side auth session store. A login registers a
// session, logout revokes it, and admin actions revoke every session a user
// holds.
type SessionRegistry interface {
	Register(ctx context.Context, userID uint, isAdmin bool) (string, error)
	Revoke(ctx context.Context, sessionID string) error
	RevokeUser(ctx context.Context, userID uint) error
}

type AuthService struct {
	users         UserStore
	sessions      SessionRegistry
	jwtSecret     string
	jwtExpiration time.Duration
	log           *zap.Logger
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	Token     string
	SessionID string
	User      *model.User
}

func NewAuthService(users UserStore, sessions SessionRegistry, jwtSecret string, jwtExpiration time.Duration, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		users:         users,
		sessions:      sessions,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		log:           log,
	}
}

func (s *AuthService) Signup(input SignupInput) (*model.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	password := strings.TrimSpace(input.Password)

	if name == "" || email == "" || password == "" || len(password) < 8 {
		return nil, ErrInvalidInput
	}

	existing, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(user); err != nil {
		// A concurrent signup can slip past the existence check; the store's
		// uniqueness constraint is authoritative.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	s.log.Info("user signed up", zap.Uint("user_id", user.ID))
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	password := strings.TrimSpace(input.Password)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}

	// Ban and block are reported before the password verdict is final.
	if user.IsBanned {
		s.log.Warn("login attempt on banned account", zap.Uint("user_id", user.ID))
		return nil, ErrAccountBanned
	}
	if user.IsBlocked {
		s.log.Warn("login attempt on blocked account", zap.Uint("user_id", user.ID))
		return nil, ErrAccountBlocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}

	sessionID, err := s.sessions.Register(ctx, user.ID, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("register auth session failed: %w", err)
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID, user.IsAdmin, sessionID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, SessionID: sessionID, User: user}, nil
}

// Logout is idempotent; revoking an already-revoked session succeeds.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, sessionID)
}

func (s *AuthService) GetUserByID(id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.users.GetByID(id)
}

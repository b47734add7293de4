package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"barplexity/internal/model"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrAdminAccount = errors.New("admin accounts cannot be managed")
)

type AdminUserStore interface {
	GetByID(id uint) (*model.User, error)
	ListNonAdmins() ([]model.User, error)
	SetBlocked(id uint, blocked bool) error
	SetBanned(id uint, banned bool) error
	DeleteCascade(id uint) error
}

type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID uint) error
}

type AdminService struct {
	users    AdminUserStore
	sessions SessionRevoker
	log      *zap.Logger
}

func NewAdminService(users AdminUserStore, sessions SessionRevoker, log *zap.Logger) *AdminService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminService{users: users, sessions: sessions, log: log}
}

// ListUsers returns every non-admin account, ordered by id.
func (s *AdminService) ListUsers() ([]model.User, error) {
	return s.users.ListNonAdmins()
}

// SetBlocked updates the blocked flag. Blocking also revokes the user's
// active auth sessions, so the lockout is immediate rather than waiting for
// the next login.
func (s *AdminService) SetBlocked(ctx context.Context, userID uint, blocked bool) error {
	user, err := s.lookupManagedUser(userID)
	if err != nil {
		return err
	}

	if err := s.users.SetBlocked(userID, blocked); err != nil {
		return err
	}
	if blocked {
		if err := s.sessions.RevokeUser(ctx, userID); err != nil {
			return err
		}
	}

	s.log.Info("user block state changed",
		zap.Uint("user_id", user.ID),
		zap.Bool("blocked", blocked))
	return nil
}

func (s *AdminService) SetBanned(ctx context.Context, userID uint, banned bool) error {
	user, err := s.lookupManagedUser(userID)
	if err != nil {
		return err
	}

	if err := s.users.SetBanned(userID, banned); err != nil {
		return err
	}
	if banned {
		if err := s.sessions.RevokeUser(ctx, userID); err != nil {
			return err
		}
	}

	s.log.Info("user ban state changed",
		zap.Uint("user_id", user.ID),
		zap.Bool("banned", banned))
	return nil
}

// DeleteUser removes the account and, through the store's transactional
// cascade, every session and chat it owns.
func (s *AdminService) DeleteUser(ctx context.Context, userID uint) error {
	user, err := s.lookupManagedUser(userID)
	if err != nil {
		return err
	}

	if err := s.users.DeleteCascade(userID); err != nil {
		return err
	}
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		return err
	}

	s.log.Info("user deleted", zap.Uint("user_id", user.ID))
	return nil
}

func (s *AdminService) lookupManagedUser(userID uint) (*model.User, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsAdmin {
		return nil, ErrAdminAccount
	}
	return user, nil
}

package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"barplexity/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by email failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by id failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) ListNonAdmins() ([]model.User, error) {
	var users []model.User
	if err := r.db.Where("is_admin = ?", false).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users failed: %w", err)
	}
	return users, nil
}

func (r *UserRepository) SetBlocked(id uint, blocked bool) error {
	if err := r.db.Model(&model.User{}).Where("id = ?", id).Update("is_blocked", blocked).Error; err != nil {
		return fmt.Errorf("update blocked flag failed: %w", err)
	}
	return nil
}

func (r *UserRepository) SetBanned(id uint, banned bool) error {
	if err := r.db.Model(&model.User{}).Where("id = ?", id).Update("is_banned", banned).Error; err != nil {
		return fmt.Errorf("update banned flag failed: %w", err)
	}
	return nil
}

// DeleteCascade removes the user together with every owned session and chat
// in a single transaction. Chats go first, then sessions, then the user, so a
// failed step leaves no orphan rows after rollback.
func (r *UserRepository) DeleteCascade(id uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		ownedSessions := tx.Model(&model.ChatSession{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("session_id IN (?)", ownedSessions).Delete(&model.Chat{}).Error; err != nil {
			return fmt.Errorf("delete user chats failed: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.ChatSession{}).Error; err != nil {
			return fmt.Errorf("delete user sessions failed: %w", err)
		}
		if err := tx.Delete(&model.User{}, id).Error; err != nil {
			return fmt.Errorf("delete user failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cascade delete user %d failed: %w", id, err)
	}
	return nil
}

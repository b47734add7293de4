package repository

import (
	"fmt"

	"gorm.io/gorm"

	"barplexity/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(chat *model.Chat) error {
	if err := r.db.Create(chat).Error; err != nil {
		return fmt.Errorf("create chat failed: %w", err)
	}
	return nil
}

// ListBySessionID returns chats in conversation order. limit <= 0 means no
// limit; a positive limit keeps the newest chats, still oldest-first, so a
// capped read never hides the most recent turns.
func (r *ChatRepository) ListBySessionID(sessionID uint, limit int) ([]model.Chat, error) {
	var chats []model.Chat
	if limit > 0 {
		err := r.db.Where("session_id = ?", sessionID).
			Order("created_at DESC, id DESC").
			Limit(limit).
			Find(&chats).Error
		if err != nil {
			return nil, fmt.Errorf("list chats failed: %w", err)
		}
		for i, j := 0, len(chats)-1; i < j; i, j = i+1, j-1 {
			chats[i], chats[j] = chats[j], chats[i]
		}
		return chats, nil
	}

	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("list chats failed: %w", err)
	}
	return chats, nil
}

func (r *ChatRepository) CountBySessionID(sessionID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&model.Chat{}).Where("session_id = ?", sessionID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count chats failed: %w", err)
	}
	return count, nil
}

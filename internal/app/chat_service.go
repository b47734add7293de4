package app

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"barplexity/internal/ai"
	"barplexity/internal/model"
)

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrUpstream        = errors.New("completion service unavailable")
)

// summaryMaxLen bounds the session summary derived from the first message.
const summaryMaxLen = 50

type SessionStore interface {
	Create(session *model.ChatSession) error
	ListByUserID(userID uint) ([]model.ChatSession, error)
	GetByIDAndUserID(sessionID, userID uint) (*model.ChatSession, error)
	UpdateSummary(sessionID uint, summary string) error
	DeleteCascade(sessionID uint) error
}

type ChatStore interface {
	Create(chat *model.Chat) error
	ListBySessionID(sessionID uint, limit int) ([]model.Chat, error)
	CountBySessionID(sessionID uint) (int64, error)
}

// Completer is the upstream text-generation service.
type Completer interface {
	Complete(ctx context.Context, turns []ai.Turn) (string, error)
}

type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Chat, bool, error)
	SetHistory(ctx context.Context, sessionID uint, chats []model.Chat) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

type ChatService struct {
	sessions     SessionStore
	chats        ChatStore
	completer    Completer
	historyCache HistoryCache
	log          *zap.Logger
}

type SendMessageInput struct {
	UserID    uint
	SessionID uint
	Content   string
}

type SendMessageResult struct {
	Reply         string     `json:"reply"`
	UserChat      model.Chat `json:"user_chat"`
	AssistantChat model.Chat `json:"assistant_chat"`
	Summary       string     `json:"summary"`
}

func NewChatService(sessions SessionStore, chats ChatStore, completer Completer, historyCache HistoryCache, log *zap.Logger) *ChatService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatService{
		sessions:     sessions,
		chats:        chats,
		completer:    completer,
		historyCache: historyCache,
		log:          log,
	}
}

func (s *ChatService) CreateSession(userID uint) (*model.ChatSession, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	session := &model.ChatSession{
		UserID:  userID,
		Summary: model.DefaultSessionSummary,
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListSessions(userID uint) ([]model.ChatSession, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessions.ListByUserID(userID)
}

func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uint) error {
	if userID == 0 || sessionID == 0 {
		return ErrInvalidInput
	}

	session, err := s.sessions.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}

	if err := s.sessions.DeleteCascade(sessionID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, sessionID)
	}
	return nil
}

// SendMessage appends the user's turn, asks the completion service for a
// reply over the full ordered history, and appends the reply. The user's turn
// is written before the upstream call and retained when the call fails, so a
// failed turn can be retried without retyping.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	if input.UserID == 0 || input.SessionID == 0 {
		return nil, ErrInvalidInput
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	session, err := s.sessions.GetByIDAndUserID(input.SessionID, input.UserID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	existing, err := s.chats.CountBySessionID(input.SessionID)
	if err != nil {
		return nil, err
	}

	userChat := &model.Chat{
		SessionID: input.SessionID,
		Role:      model.RoleUser,
		Content:   content,
	}
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, input.SessionID)
		_ = s.historyCache.DeleteHistory(ctx, input.SessionID)
	}
	if err := s.chats.Create(userChat); err != nil {
		return nil, err
	}

	summary := session.Summary
	if existing == 0 {
		summary = deriveSummary(content)
		if err := s.sessions.UpdateSummary(input.SessionID, summary); err != nil {
			return nil, err
		}
	}

	history, err := s.chats.ListBySessionID(input.SessionID, 0)
	if err != nil {
		return nil, err
	}

	reply, err := s.completer.Complete(ctx, buildTurns(history))
	if err != nil {
		s.log.Error("completion request failed",
			zap.Uint("session_id", input.SessionID),
			zap.Error(err))
		return nil, ErrUpstream
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		s.log.Error("completion returned empty reply",
			zap.Uint("session_id", input.SessionID))
		return nil, ErrUpstream
	}

	assistantChat := &model.Chat{
		SessionID: input.SessionID,
		Role:      model.RoleAssistant,
		Content:   reply,
	}
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, input.SessionID)
		_ = s.historyCache.DeleteHistory(ctx, input.SessionID)
	}
	if err := s.chats.Create(assistantChat); err != nil {
		return nil, err
	}

	return &SendMessageResult{
		Reply:         reply,
		UserChat:      *userChat,
		AssistantChat: *assistantChat,
		Summary:       summary,
	}, nil
}

func (s *ChatService) GetHistory(ctx context.Context, userID, sessionID uint, limit int) ([]model.Chat, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}

	session, err := s.sessions.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimChats(cached, limit), nil
			}
		}
	}

	// Always load the full history so the cache never holds a truncated
	// list; the limit only applies to what this call returns.
	chats, err := s.chats.ListBySessionID(sessionID, 0)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, chats)
		}
	}
	return trimChats(chats, limit), nil
}

func buildTurns(history []model.Chat) []ai.Turn {
	turns := make([]ai.Turn, 0, len(history))
	for _, chat := range history {
		role := ai.RoleUser
		if chat.Role == model.RoleAssistant {
			role = ai.RoleModel
		}
		turns = append(turns, ai.Turn{Role: role, Text: chat.Content})
	}
	return turns
}

func deriveSummary(content string) string {
	runes := []rune(content)
	if len(runes) > summaryMaxLen {
		runes = runes[:summaryMaxLen]
	}
	summary := strings.TrimSpace(string(runes))
	if summary == "" {
		return model.DefaultSessionSummary
	}
	return summary
}

func trimChats(chats []model.Chat, limit int) []model.Chat {
	if limit <= 0 || limit >= len(chats) {
		return chats
	}
	return chats[len(chats)-limit:]
}

package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barplexity/internal/ai"
	"barplexity/internal/model"
)

type fakeSessionStore struct {
	sessions map[uint]*model.ChatSession
	deleted  []uint
	nextID   uint
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[uint]*model.ChatSession{}}
}

func (f *fakeSessionStore) Create(session *model.ChatSession) error {
	f.nextID++
	session.ID = f.nextID
	session.CreatedAt = time.Now()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionStore) ListByUserID(userID uint) ([]model.ChatSession, error) {
	var result []model.ChatSession
	for _, session := range f.sessions {
		if session.UserID == userID {
			result = append(result, *session)
		}
	}
	return result, nil
}

func (f *fakeSessionStore) GetByIDAndUserID(sessionID, userID uint) (*model.ChatSession, error) {
	session, ok := f.sessions[sessionID]
	if !ok || session.UserID != userID {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionStore) UpdateSummary(sessionID uint, summary string) error {
	session, ok := f.sessions[sessionID]
	if !ok {
		return errors.New("no such session")
	}
	session.Summary = summary
	return nil
}

func (f *fakeSessionStore) DeleteCascade(sessionID uint) error {
	delete(f.sessions, sessionID)
	f.deleted = append(f.deleted, sessionID)
	return nil
}

func (f *fakeSessionStore) addSession(userID uint) *model.ChatSession {
	f.nextID++
	session := &model.ChatSession{
		ID:      f.nextID,
		UserID:  userID,
		Summary: model.DefaultSessionSummary,
	}
	f.sessions[session.ID] = session
	return session
}

type fakeChatStore struct {
	chats  []model.Chat
	nextID uint
}

func (f *fakeChatStore) Create(chat *model.Chat) error {
	f.nextID++
	chat.ID = f.nextID
	chat.CreatedAt = time.Now()
	f.chats = append(f.chats, *chat)
	return nil
}

func (f *fakeChatStore) ListBySessionID(sessionID uint, limit int) ([]model.Chat, error) {
	var result []model.Chat
	for _, chat := range f.chats {
		if chat.SessionID == sessionID {
			result = append(result, chat)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (f *fakeChatStore) CountBySessionID(sessionID uint) (int64, error) {
	var count int64
	for _, chat := range f.chats {
		if chat.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

type fakeCompleter struct {
	reply    string
	err      error
	gotTurns []ai.Turn
	calls    int
}

func (f *fakeCompleter) Complete(_ context.Context, turns []ai.Turn) (string, error) {
	f.calls++
	f.gotTurns = turns
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeHistoryCache struct {
	histories map[uint][]model.Chat
	dirty     map[uint]bool
	sets      int
}

func newFakeHistoryCache() *fakeHistoryCache {
	return &fakeHistoryCache{histories: map[uint][]model.Chat{}, dirty: map[uint]bool{}}
}

func (f *fakeHistoryCache) GetHistory(_ context.Context, sessionID uint) ([]model.Chat, bool, error) {
	chats, ok := f.histories[sessionID]
	return chats, ok, nil
}

func (f *fakeHistoryCache) SetHistory(_ context.Context, sessionID uint, chats []model.Chat) error {
	f.sets++
	f.histories[sessionID] = append([]model.Chat(nil), chats...)
	return nil
}

func (f *fakeHistoryCache) DeleteHistory(_ context.Context, sessionID uint) error {
	delete(f.histories, sessionID)
	return nil
}

func (f *fakeHistoryCache) MarkDirty(_ context.Context, sessionID uint) error {
	f.dirty[sessionID] = true
	return nil
}

func (f *fakeHistoryCache) IsDirty(_ context.Context, sessionID uint) (bool, error) {
	return f.dirty[sessionID], nil
}

func newTestChatService(sessions *fakeSessionStore, chats *fakeChatStore, completer *fakeCompleter) *ChatService {
	return NewChatService(sessions, chats, completer, nil, nil)
}

func TestCreateSessionDefaultSummary(t *testing.T) {
	sessions := newFakeSessionStore()
	svc := newTestChatService(sessions, &fakeChatStore{}, &fakeCompleter{})

	session, err := svc.CreateSession(7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), session.UserID)
	assert.Equal(t, model.DefaultSessionSummary, session.Summary)

	_, err = svc.CreateSession(0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSendMessageFirstTurn(t *testing.T) {
	sessions := newFakeSessionStore()
	session := sessions.addSession(7)
	chats := &fakeChatStore{}
	completer := &fakeCompleter{reply: "Hi! How can I help?"}
	svc := newTestChatService(sessions, chats, completer)

	result, err := svc.SendMessage(context.Background(), SendMessageInput{
		UserID:    7,
		SessionID: session.ID,
		Content:   "Hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "Hi! How can I help?", result.Reply)
	assert.Equal(t, model.RoleUser, result.UserChat.Role)
	assert.Equal(t, model.RoleAssistant, result.AssistantChat.Role)

	// Summary derives from the first user message.
	assert.Equal(t, "Hello", result.Summary)
	assert.Equal(t, "Hello", sessions.sessions[session.ID].Summary)

	// Both turns are persisted.
	require.Len(t, chats.chats, 2)
	assert.Equal(t, model.RoleUser, chats.chats[0].Role)
	assert.Equal(t, model.RoleAssistant, chats.chats[1].Role)

	// The prompt contained the just-written user turn.
	require.Len(t, completer.gotTurns, 1)
	assert.Equal(t, ai.RoleUser, completer.gotTurns[0].Role)
	assert.Equal(t, "Hello", completer.gotTurns[0].Text)
}

func TestSendMessageAssemblesFullHistory(t *testing.T) {
	sessions := newFakeSessionStore()
	session := sessions.addSession(7)
	session.Summary = "Hello"
	chats := &fakeChatStore{}
	require.NoError(t, chats.Create(&model.Chat{SessionID: session.ID, Role: model.RoleUser, Content: "Hello"}))
	require.NoError(t, chats.Create(&model.Chat{SessionID: session.ID, Role: model.RoleAssistant, Content: "Hi there"}))

	completer := &fakeCompleter{reply: "Sure."}
	svc := newTestChatService(sessions, chats, completer)

	result, err := svc.SendMessage(context.Background(), SendMessageInput{
		UserID:    7,
		SessionID: session.ID,
		Content:   "Tell me more",
	})
	require.NoError(t, err)

	// Summary only derives from the first message.
	assert.Equal(t, "Hello", sessions.sessions[session.ID].Summary)
	assert.Equal(t, "Hello", result.Summary)

	require.Len(t, completer.gotTurns, 3)
	assert.Equal(t, ai.RoleUser, completer.gotTurns[0].Role)
	assert.Equal(t, ai.RoleModel, completer.gotTurns[1].Role)
	assert.Equal(t, "Hi there", completer.gotTurns[1].Text)
	assert.Equal(t, "Tell me more", completer.gotTurns[2].Text)
}

func TestSendMessageSummaryTruncation(t *testing.T) {
	sessions := newFakeSessionStore()
	session := sessions.addSession(7)
	svc := newTestChatService(sessions, &fakeChatStore{}, &fakeCompleter{reply: "ok"})

	long := strings.Repeat("a", 80)
	result, err := svc.SendMessage(context.Background(), SendMessageInput{
		UserID:    7,
		SessionID: session.ID,
		Content:   long,
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 50), result.Summary)
}

func TestSendMessageNotOwned(t *testing.T) {
	sessions := newFakeSessionStore()
	session := sessions.addSession(7)
	chats := &fakeChatStore{}
	completer := &fakeCompleter{reply: "ok"}
	svc := newTestChatService(sessions, chats, completer)

	_, err := svc.SendMessage(context.Background(), SendMessageInput{
		UserID:    8,
		SessionID: session.ID,
		Content:   "Hello",
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, chats.chats)
	assert.Zero(t, completer.calls)
}

func TestSendMessageEmptyContent(t *testing.T) {
	sessions := newFakeSessionStore()
	session := sessions.addSession(7)
	svc := newTestChatService(sessions, &fakeChatStore{}, &fakeCompleter{})

	_, err := svc.SendMessage(context.Background(), SendMessageInput{
		UserID:    7,
		SessionID: session.ID,
		Content:   "   ",
	})
	assert.ErrorIs(t, err, ErrMessageEmpty)
}

func TestSendMessageUpstreamFailureRetainsUserTurn(t *testing.T) {
	sessions := newFakeSessionStore()
	session := sessions.addSession(7)
	chats := &fakeChatStore{}
	completer := &fakeCompleter{err: errors.New("upstream timeout")}
	svc := newTestChatService(sessions, chats, completer)

	_, err := svc.SendMessage(context.Background(), SendMessageInput{
		UserID:    7,
		SessionID: session.ID,
		Content:   "Hello",
	})
	assert.ErrorIs(t, err, ErrUpstream)

	// The user's turn stays persisted; no assistant turn is written.
	require.Len(t, chats.chats, 1)
	assert.Equal(t, model.RoleUser, chats.chats[0].Role)
	assert.Equal(t, "Hello", chats.chats[0].Content)
}

func TestSendMessageEmptyReplyIsUpstreamError(t *testing.T) {
	sessions := newFakeSessionStore()
	session := sessions.addSession(7)
	chats := &fakeChatStore{}
	completer := &fakeCompleter{reply: "   "}
	svc := newTestChatService(sessions, chats, completer)

	_, err := svc.SendMessage(context.Background(), SendMessageInput{
		UserID:    7,
		SessionID: session.ID,
		Content:   "Hello",
	})
	assert.ErrorIs(t, err, ErrUpstream)

	// No fabricated assistant turn lands in the history.
	require.Len(t, chats.chats, 1)
	assert.Equal(t, model.RoleUser, chats.chats[0].Role)
}

func TestDeleteSessionOwnership(t *testing.T) {
	sessions := newFakeSessionStore()
	session := sessions.addSession(7)
	svc := newTestChatService(sessions, &fakeChatStore{}, &fakeCompleter{})

	err := svc.DeleteSession(context.Background(), 8, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, sessions.deleted)

	require.NoError(t, svc.DeleteSession(context.Background(), 7, session.ID))
	assert.Equal(t, []uint{session.ID}, sessions.deleted)
}

func TestGetHistoryOwnership(t *testing.T) {
	sessions := newFakeSessionStore()
	session := sessions.addSession(7)
	chats := &fakeChatStore{}
	require.NoError(t, chats.Create(&model.Chat{SessionID: session.ID, Role: model.RoleUser, Content: "Hello"}))
	svc := newTestChatService(sessions, chats, &fakeCompleter{})

	_, err := svc.GetHistory(context.Background(), 8, session.ID, 0)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	history, err := svc.GetHistory(context.Background(), 7, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Hello", history[0].Content)
}

func TestGetHistoryLimitKeepsNewestTurns(t *testing.T) {
	sessions := newFakeSessionStore()
	session := sessions.addSession(7)
	chats := &fakeChatStore{}
	require.NoError(t, chats.Create(&model.Chat{SessionID: session.ID, Role: model.RoleUser, Content: "first"}))
	require.NoError(t, chats.Create(&model.Chat{SessionID: session.ID, Role: model.RoleAssistant, Content: "second"}))
	require.NoError(t, chats.Create(&model.Chat{SessionID: session.ID, Role: model.RoleUser, Content: "third"}))
	svc := newTestChatService(sessions, chats, &fakeCompleter{})

	history, err := svc.GetHistory(context.Background(), 7, session.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Content)
	assert.Equal(t, "third", history[1].Content)
}

func TestGetHistoryLimitedReadKeepsCacheComplete(t *testing.T) {
	sessions := newFakeSessionStore()
	session := sessions.addSession(7)
	chats := &fakeChatStore{}
	require.NoError(t, chats.Create(&model.Chat{SessionID: session.ID, Role: model.RoleUser, Content: "first"}))
	require.NoError(t, chats.Create(&model.Chat{SessionID: session.ID, Role: model.RoleAssistant, Content: "second"}))
	require.NoError(t, chats.Create(&model.Chat{SessionID: session.ID, Role: model.RoleUser, Content: "third"}))
	cache := newFakeHistoryCache()
	svc := NewChatService(sessions, chats, &fakeCompleter{}, cache, nil)

	limited, err := svc.GetHistory(context.Background(), 7, session.ID, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)

	// The cache holds the full history, not the truncated view.
	require.Len(t, cache.histories[session.ID], 3)

	full, err := svc.GetHistory(context.Background(), 7, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, full, 3)
	assert.Equal(t, "first", full[0].Content)

	// The second read was served from cache.
	assert.Equal(t, 1, cache.sets)
}

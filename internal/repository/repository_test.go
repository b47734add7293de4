package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	return db, mock
}

func TestUserDeleteCascadeSingleTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `chats` WHERE session_id IN \\(SELECT `id` FROM `chat_sessions` WHERE user_id = \\?\\)").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("DELETE FROM `chat_sessions` WHERE user_id = \\?").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM `users` WHERE `users`.`id` = \\?").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDeleteCascadeRollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `chats` WHERE session_id IN").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("DELETE FROM `chat_sessions` WHERE user_id = \\?").
		WithArgs(7).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	err := repo.DeleteCascade(7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete user sessions failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionDeleteCascadeSingleTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `chats` WHERE session_id = \\?").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM `chat_sessions` WHERE `chat_sessions`.`id` = \\?").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionDeleteCascadeRollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `chats` WHERE session_id = \\?").
		WithArgs(3).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	err := repo.DeleteCascade(3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete session chats failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatListBySessionIDLimitReturnsNewestOldestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "session_id", "role", "content", "created_at"}).
		AddRow(3, 5, "user", "third", now).
		AddRow(2, 5, "assistant", "second", now.Add(-time.Minute))
	mock.ExpectQuery("SELECT \\* FROM `chats` WHERE session_id = \\? ORDER BY created_at DESC, id DESC LIMIT \\?").
		WithArgs(5, 2).
		WillReturnRows(rows)

	chats, err := repo.ListBySessionID(5, 2)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "second", chats[0].Content)
	assert.Equal(t, "third", chats[1].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatListBySessionIDUnlimited(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepository(db)

	rows := sqlmock.NewRows([]string{"id", "session_id", "role", "content", "created_at"}).
		AddRow(1, 5, "user", "first", time.Now())
	mock.ExpectQuery("SELECT \\* FROM `chats` WHERE session_id = \\? ORDER BY created_at ASC, id ASC").
		WithArgs(5).
		WillReturnRows(rows)

	chats, err := repo.ListBySessionID(5, 0)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "first", chats[0].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

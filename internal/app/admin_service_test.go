package app

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barplexity/internal/model"
)

type fakeAdminUserStore struct {
	users   map[uint]*model.User
	deleted []uint
}

func newFakeAdminUserStore() *fakeAdminUserStore {
	return &fakeAdminUserStore{users: map[uint]*model.User{}}
}

func (f *fakeAdminUserStore) add(id uint, isAdmin bool) *model.User {
	user := &model.User{ID: id, Name: "User", Email: "user@example.com", IsAdmin: isAdmin}
	f.users[id] = user
	return user
}

func (f *fakeAdminUserStore) GetByID(id uint) (*model.User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, nil
}

func (f *fakeAdminUserStore) ListNonAdmins() ([]model.User, error) {
	var ids []uint
	for id, user := range f.users {
		if !user.IsAdmin {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make([]model.User, 0, len(ids))
	for _, id := range ids {
		result = append(result, *f.users[id])
	}
	return result, nil
}

func (f *fakeAdminUserStore) SetBlocked(id uint, blocked bool) error {
	f.users[id].IsBlocked = blocked
	return nil
}

func (f *fakeAdminUserStore) SetBanned(id uint, banned bool) error {
	f.users[id].IsBanned = banned
	return nil
}

func (f *fakeAdminUserStore) DeleteCascade(id uint) error {
	delete(f.users, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeSessionRevoker struct {
	revokedUsers []uint
}

func (f *fakeSessionRevoker) RevokeUser(_ context.Context, userID uint) error {
	f.revokedUsers = append(f.revokedUsers, userID)
	return nil
}

func TestListUsersExcludesAdmins(t *testing.T) {
	users := newFakeAdminUserStore()
	users.add(3, false)
	users.add(1, true)
	users.add(2, false)
	svc := NewAdminService(users, &fakeSessionRevoker{}, nil)

	listed, err := svc.ListUsers()
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, uint(2), listed[0].ID)
	assert.Equal(t, uint(3), listed[1].ID)
	for _, user := range listed {
		assert.False(t, user.IsAdmin)
	}
}

func TestSetBlockedRevokesSessions(t *testing.T) {
	users := newFakeAdminUserStore()
	users.add(5, false)
	revoker := &fakeSessionRevoker{}
	svc := NewAdminService(users, revoker, nil)

	require.NoError(t, svc.SetBlocked(context.Background(), 5, true))
	assert.True(t, users.users[5].IsBlocked)
	assert.Equal(t, []uint{5}, revoker.revokedUsers)

	// Unblocking does not touch sessions.
	require.NoError(t, svc.SetBlocked(context.Background(), 5, false))
	assert.False(t, users.users[5].IsBlocked)
	assert.Equal(t, []uint{5}, revoker.revokedUsers)
}

func TestSetBannedRevokesSessions(t *testing.T) {
	users := newFakeAdminUserStore()
	users.add(5, false)
	revoker := &fakeSessionRevoker{}
	svc := NewAdminService(users, revoker, nil)

	require.NoError(t, svc.SetBanned(context.Background(), 5, true))
	assert.True(t, users.users[5].IsBanned)
	assert.Equal(t, []uint{5}, revoker.revokedUsers)
}

func TestSetBlockedUnknownUser(t *testing.T) {
	svc := NewAdminService(newFakeAdminUserStore(), &fakeSessionRevoker{}, nil)

	err := svc.SetBlocked(context.Background(), 99, true)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetBlockedAdminAccount(t *testing.T) {
	users := newFakeAdminUserStore()
	users.add(1, true)
	svc := NewAdminService(users, &fakeSessionRevoker{}, nil)

	err := svc.SetBlocked(context.Background(), 1, true)
	assert.ErrorIs(t, err, ErrAdminAccount)
	assert.False(t, users.users[1].IsBlocked)
}

func TestDeleteUser(t *testing.T) {
	users := newFakeAdminUserStore()
	users.add(5, false)
	revoker := &fakeSessionRevoker{}
	svc := NewAdminService(users, revoker, nil)

	require.NoError(t, svc.DeleteUser(context.Background(), 5))
	assert.Equal(t, []uint{5}, users.deleted)
	assert.Equal(t, []uint{5}, revoker.revokedUsers)
	assert.NotContains(t, users.users, uint(5))
}

func TestDeleteUserUnknown(t *testing.T) {
	svc := NewAdminService(newFakeAdminUserStore(), &fakeSessionRevoker{}, nil)

	err := svc.DeleteUser(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteUserAdminAccount(t *testing.T) {
	users := newFakeAdminUserStore()
	users.add(1, true)
	svc := NewAdminService(users, &fakeSessionRevoker{}, nil)

	err := svc.DeleteUser(context.Background(), 1)
	assert.ErrorIs(t, err, ErrAdminAccount)
	assert.Empty(t, users.deleted)
}

package idempotency

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	entries  map[string]string
	setNXErr error
	delErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	value, ok := f.entries[key]
	if !ok {
		return "", errors.New("not found")
	}
	return value, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.entries[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if f.setNXErr != nil {
		return false, f.setNXErr
	}
	if _, exists := f.entries[key]; exists {
		return false, nil
	}
	f.entries[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("ss:idempotency:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if f.delErr != nil {
		return f.delErr
	}
	for _, key := range keys {
		delete(f.entries, key)
	}
	return nil
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	require.Error(t, err)

	_, err = NewManager(newFakeStore(), -time.Second)
	require.Error(t, err)
}

func TestCheckAndMarkProcessed(t *testing.T) {
	store := newFakeStore()
	mgr, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()

	seen, err := mgr.CheckAndMarkProcessed(context.Background(), "completion-worker", eventID)
	require.NoError(t, err)
	require.False(t, seen)

	seen, err = mgr.CheckAndMarkProcessed(context.Background(), "completion-worker", eventID)
	require.NoError(t, err)
	require.True(t, seen)

	// Different consumer tracks its own processed set.
	seen, err = mgr.CheckAndMarkProcessed(context.Background(), "audit-worker", eventID)
	require.NoError(t, err)
	require.False(t, seen)
}

func TestCheckAndMarkProcessedValidation(t *testing.T) {
	mgr, err := NewManager(newFakeStore(), time.Hour)
	require.NoError(t, err)

	_, err = mgr.CheckAndMarkProcessed(context.Background(), "", uuid.New())
	require.Error(t, err)

	_, err = mgr.CheckAndMarkProcessed(context.Background(), "completion-worker", uuid.Nil)
	require.Error(t, err)
}

func TestDeleteAllowsReprocessing(t *testing.T) {
	store := newFakeStore()
	mgr, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()

	_, err = mgr.CheckAndMarkProcessed(context.Background(), "completion-worker", eventID)
	require.NoError(t, err)

	require.NoError(t, mgr.Delete(context.Background(), "completion-worker", eventID))

	seen, err := mgr.CheckAndMarkProcessed(context.Background(), "completion-worker", eventID)
	require.NoError(t, err)
	require.False(t, seen)
}

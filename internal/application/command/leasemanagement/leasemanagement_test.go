package leasemanagement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage/mock"
)

// MockStorage is a plain, non-conditional store.
type MockStorage struct {
	getContentFunc    func(ctx context.Context, fileName string) (storage.Document, error)
	updateContentFunc func(ctx context.Context, fileName string, content string) (storage.Ack, error)
}

func (m *MockStorage) GetContent(ctx context.Context, fileName string) (storage.Document, error) {
	if m.getContentFunc != nil {
		return m.getContentFunc(ctx, fileName)
	}
	return storage.Document{}, nil
}

func (m *MockStorage) UpdateContent(ctx context.Context, fileName string, content string) (storage.Ack, error) {
	if m.updateContentFunc != nil {
		return m.updateContentFunc(ctx, fileName, content)
	}
	return storage.Ack{}, nil
}

const testContainer = "container"

var scenarioStart = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func TestManagerGet(t *testing.T) {
	tests := []struct {
		name            string
		content         string
		getError        error
		expectedHolder  string
		expectedEndedAt string
		expectedError   any
	}{
		{
			name:            "Empty content yields default state",
			content:         "",
			expectedHolder:  DefaultHolder,
			expectedEndedAt: "1970-01-01T00:00:00.000Z",
		},
		{
			name:          "Whitespace content is corrupt",
			content:       "   \n",
			expectedError: &StorageCorruptError{},
		},
		{
			name:            "Stored document is parsed",
			content:         `{"holder":"alice","endedAt":"2024-01-01T11:00:00.000Z"}`,
			expectedHolder:  "alice",
			expectedEndedAt: "2024-01-01T11:00:00.000Z",
		},
		{
			name:          "Invalid JSON is corrupt",
			content:       `{"holder":`,
			expectedError: &StorageCorruptError{},
		},
		{
			name:          "Wrong shape is corrupt",
			content:       `["alice"]`,
			expectedError: &StorageCorruptError{},
		},
		{
			name:          "Store failure is unavailable",
			getError:      errors.New("connection refused"),
			expectedError: &StorageUnavailableError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var writes int
			store := &MockStorage{
				getContentFunc: func(ctx context.Context, fileName string) (storage.Document, error) {
					assert.Equal(t, DefaultFileName, fileName)
					return storage.Document{Content: tt.content}, tt.getError
				},
				updateContentFunc: func(ctx context.Context, fileName string, content string) (storage.Ack, error) {
					writes++
					return storage.Ack{}, nil
				},
			}

			state, err := NewManager(store).Get(context.Background())

			assert.Zero(t, writes)
			switch expected := tt.expectedError.(type) {
			case *StorageCorruptError:
				assert.ErrorAs(t, err, &expected)
				assert.Nil(t, state)
			case *StorageUnavailableError:
				assert.ErrorAs(t, err, &expected)
				assert.Nil(t, state)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.expectedHolder, state.Holder)
				assert.Equal(t, tt.expectedEndedAt, state.Serialize().EndedAt)
			}
		})
	}
}

func TestManagerScenarios(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	clk := testclock.NewClock(scenarioStart)
	newManager := func() *Manager {
		return NewManager(store.Container(testContainer), WithClock(clk))
	}

	// Empty store.
	manager := newManager()
	state, err := manager.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultHolder, state.Holder)
	assert.Equal(t, "1970-01-01T00:00:00.000Z", state.Serialize().EndedAt)
	assert.True(t, state.CanAccess("alice", clk.Now()))

	// alice takes the lease for an hour.
	_, err = manager.Update(ctx, "alice", 60)
	require.NoError(t, err)
	assert.JSONEq(t, `{"holder":"alice","endedAt":"2024-01-01T11:00:00.000Z"}`, store.Content(testContainer, DefaultFileName))

	// bob is refused while alice holds it.
	clk.Advance(30 * time.Minute)
	state, err = newManager().Get(ctx)
	require.NoError(t, err)
	assert.False(t, state.CanAccess("bob", clk.Now()))
	assert.True(t, state.CanAccess("alice", clk.Now()))

	// After expiry bob takes over.
	clk.Advance(time.Hour)
	manager = newManager()
	state, err = manager.Get(ctx)
	require.NoError(t, err)
	assert.True(t, state.CanAccess("bob", clk.Now()))
	_, err = manager.Update(ctx, "bob", 30)
	require.NoError(t, err)
	assert.JSONEq(t, `{"holder":"bob","endedAt":"2024-01-01T12:00:00.000Z"}`, store.Content(testContainer, DefaultFileName))

	// alice is now refused, bob is not, until the lease runs out.
	state, err = newManager().Get(ctx)
	require.NoError(t, err)
	for _, offset := range []time.Duration{0, 10 * time.Minute, 29 * time.Minute} {
		now := clk.Now().Add(offset)
		assert.False(t, state.CanAccess("alice", now))
		assert.True(t, state.CanAccess("bob", now))
	}
	assert.True(t, state.CanAccess("alice", clk.Now().Add(31*time.Minute)))
}

func TestManagerRefresh(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	store.Seed(testContainer, DefaultFileName, `{"holder":"alice","endedAt":"2024-01-01T10:30:00.000Z"}`)
	clk := testclock.NewClock(scenarioStart)

	manager := NewManager(store.Container(testContainer), WithClock(clk))
	_, err := manager.Get(ctx)
	require.NoError(t, err)

	ack, err := manager.Refresh(ctx, "45")
	require.NoError(t, err)
	assert.Equal(t, "2", ack.Version)
	assert.JSONEq(t, `{"holder":"alice","endedAt":"2024-01-01T10:45:00.000Z"}`, store.Content(testContainer, DefaultFileName))
}

func TestManagerRefreshShortensLease(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	store.Seed(testContainer, DefaultFileName, `{"holder":"alice","endedAt":"2024-01-01T23:00:00.000Z"}`)
	clk := testclock.NewClock(scenarioStart)

	manager := NewManager(store.Container(testContainer), WithClock(clk))
	_, err := manager.Get(ctx)
	require.NoError(t, err)

	_, err = manager.Refresh(ctx, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"holder":"alice","endedAt":"2024-01-01T10:00:00.000Z"}`, store.Content(testContainer, DefaultFileName))
}

func TestManagerUpdateWithoutGet(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	clk := testclock.NewClock(scenarioStart)

	manager := NewManager(store.Container(testContainer), WithClock(clk), WithFileName("lease.json"))
	ack, err := manager.Update(ctx, "carol", "not-a-number")
	require.NoError(t, err)

	assert.Equal(t, "1", ack.Version)
	assert.Equal(t, "lease.json", manager.FileName())
	assert.JSONEq(t, `{"holder":"carol","endedAt":"2024-01-01T13:00:00.000Z"}`, store.Content(testContainer, "lease.json"))
}

func TestManagerMigratesLegacyDocument(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	store.Seed(testContainer, DefaultFileName, `{"username":"grandma","accessedAt":"2024-01-01T09:00:00.000Z"}`)
	clk := testclock.NewClock(scenarioStart)

	manager := NewManager(store.Container(testContainer), WithClock(clk))
	state, err := manager.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "grandma", state.Holder)
	assert.False(t, state.CanAccess("alice", clk.Now()))

	_, err = manager.Refresh(ctx, 10)
	require.NoError(t, err)
	assert.JSONEq(t, `{"holder":"grandma","endedAt":"2024-01-01T10:10:00.000Z"}`, store.Content(testContainer, DefaultFileName))
}

func TestManagerWriteFailure(t *testing.T) {
	clk := testclock.NewClock(scenarioStart)
	store := &MockStorage{
		getContentFunc: func(ctx context.Context, fileName string) (storage.Document, error) {
			return storage.Document{Content: `{"holder":"alice","endedAt":"1970-01-01T00:00:00.000Z"}`}, nil
		},
		updateContentFunc: func(ctx context.Context, fileName string, content string) (storage.Ack, error) {
			return storage.Ack{}, errors.New("HTTP 502: bad gateway")
		},
	}

	manager := NewManager(store, WithClock(clk))
	_, err := manager.Get(context.Background())
	require.NoError(t, err)

	_, err = manager.Update(context.Background(), "bob", 60)

	var unavailable *StorageUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "update", unavailable.Op)
	// The in-memory state reflects the attempted write.
	assert.Equal(t, "bob", manager.State().Holder)
}

func TestManagerConflict(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	store.Seed(testContainer, DefaultFileName, `{"holder":"alice","endedAt":"1970-01-01T00:00:00.000Z"}`)
	clk := testclock.NewClock(scenarioStart)

	first := NewManager(store.Container(testContainer), WithClock(clk))
	second := NewManager(store.Container(testContainer), WithClock(clk))
	_, err := first.Get(ctx)
	require.NoError(t, err)
	_, err = second.Get(ctx)
	require.NoError(t, err)

	_, err = first.Update(ctx, "bob", 60)
	require.NoError(t, err)

	_, err = second.Update(ctx, "carol", 60)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ErrorIs(t, err, storage.ErrVersionMismatch)
	assert.Equal(t, "1", conflict.Version)
	assert.JSONEq(t, `{"holder":"bob","endedAt":"2024-01-01T11:00:00.000Z"}`, store.Content(testContainer, DefaultFileName))
}

func TestManagerConflictOnFirstWrite(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	clk := testclock.NewClock(scenarioStart)

	manager := NewManager(store.Container(testContainer), WithClock(clk))
	_, err := manager.Get(ctx)
	require.NoError(t, err)

	store.Seed(testContainer, DefaultFileName, `{"holder":"dave","endedAt":"2024-01-01T12:00:00.000Z"}`)

	_, err = manager.Update(ctx, "erin", 60)
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestManagerFollowUpWritesReuseVersion(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	clk := testclock.NewClock(scenarioStart)

	manager := NewManager(store.Container(testContainer), WithClock(clk))
	_, err := manager.Get(ctx)
	require.NoError(t, err)

	_, err = manager.Update(ctx, "alice", 60)
	require.NoError(t, err)
	clk.Advance(time.Minute)
	ack, err := manager.Refresh(ctx, 60)
	require.NoError(t, err)

	assert.Equal(t, "2", ack.Version)
	assert.JSONEq(t, `{"holder":"alice","endedAt":"2024-01-01T11:01:00.000Z"}`, store.Content(testContainer, DefaultFileName))
}

package leasemanagement

import (
	"context"
	"errors"

	"github.com/juju/clock"
	log "github.com/sirupsen/logrus"

	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage"
)

const (
	DefaultFileName = "shared-debrid.json"
)

// Manager runs one read-decide-write cycle over a lease document. It is
// meant to be built per request and is not safe for concurrent use.
//
// On stores implementing storage.ConditionalStore the write only succeeds if
// the document is unchanged since Get; elsewhere the last writer wins.
type Manager struct {
	store    storage.Store
	fileName string
	clock    clock.Clock

	current *LeaseState
	version string
}

type Option func(*Manager)

func WithFileName(fileName string) Option {
	return func(m *Manager) {
		if fileName != "" {
			m.fileName = fileName
		}
	}
}

func WithClock(clk clock.Clock) Option {
	return func(m *Manager) {
		if clk != nil {
			m.clock = clk
		}
	}
}

func NewManager(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		fileName: DefaultFileName,
		clock:    clock.WallClock,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) FileName() string {
	return m.fileName
}

// State returns the cached state, the default one if Get was never called.
func (m *Manager) State() *LeaseState {
	if m.current == nil {
		m.current = NewLeaseState()
	}
	return m.current
}

// Get loads the lease document. A missing or empty document yields the
// default state and is not written back. Any other content must parse.
func (m *Manager) Get(ctx context.Context) (*LeaseState, error) {
	document, err := m.store.GetContent(ctx, m.fileName)
	if err != nil {
		return nil, &StorageUnavailableError{Op: "get", FileName: m.fileName, Err: err}
	}

	if document.Content == "" {
		log.Debugf("Lease document %v is empty, using default state", m.fileName)
		m.current = NewLeaseState()
		m.version = document.Version
		return m.current, nil
	}

	state, err := Unmarshal([]byte(document.Content))
	if err != nil {
		return nil, &StorageCorruptError{FileName: m.fileName, Err: err}
	}

	log.Debugf("Lease document %v loaded: %v", m.fileName, state)
	m.current = state
	m.version = document.Version
	return m.current, nil
}

// Update hands the lease to newHolder and extends it by sessionMinutes from
// now.
func (m *Manager) Update(ctx context.Context, newHolder string, sessionMinutes any) (storage.Ack, error) {
	m.State().Holder = newHolder
	return m.write(ctx, sessionMinutes)
}

// Refresh extends the lease by sessionMinutes from now without changing the
// holder.
func (m *Manager) Refresh(ctx context.Context, sessionMinutes any) (storage.Ack, error) {
	return m.write(ctx, sessionMinutes)
}

func (m *Manager) write(ctx context.Context, sessionMinutes any) (storage.Ack, error) {
	state := m.State()
	state.AccessFor(sessionMinutes, m.clock.Now())

	content, err := state.Marshal()
	if err != nil {
		return storage.Ack{}, &StorageCorruptError{FileName: m.fileName, Err: err}
	}

	var ack storage.Ack
	if conditional, ok := m.store.(storage.ConditionalStore); ok {
		ack, err = conditional.UpdateContentIf(ctx, m.fileName, string(content), m.version)
		if errors.Is(err, storage.ErrVersionMismatch) {
			return storage.Ack{}, &ConflictError{FileName: m.fileName, Version: m.version, Err: err}
		}
	} else {
		ack, err = m.store.UpdateContent(ctx, m.fileName, string(content))
	}
	if err != nil {
		return storage.Ack{}, &StorageUnavailableError{Op: "update", FileName: m.fileName, Err: err}
	}

	log.Debugf("Lease document %v written: %v", m.fileName, state)
	m.version = ack.Version
	return ack, nil
}

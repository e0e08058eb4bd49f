package mock

import (
	"context"
	"strconv"
	"sync"

	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage"
)

// Storage keeps documents in memory, keyed by container and file name. Every
// write bumps a per-document version, so it also serves as a conditional
// store in tests.
type Storage struct {
	mu        sync.RWMutex
	Documents map[string]map[string]storage.Document
	// Err, when set, is returned from every call.
	Err error
}

func New() *Storage {
	return &Storage{
		Documents: make(map[string]map[string]storage.Document),
	}
}

// Container returns a view of the storage scoped to one container.
func (s *Storage) Container(containerID string) *Container {
	return &Container{storage: s, id: containerID}
}

// Seed stores raw content without any validation.
func (s *Storage) Seed(containerID, fileName, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(containerID, fileName, content)
}

// Content returns what is stored for the file, or "" if nothing is.
func (s *Storage) Content(containerID, fileName string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Documents[containerID][fileName].Content
}

func (s *Storage) putLocked(containerID, fileName, content string) storage.Document {
	files, exists := s.Documents[containerID]
	if !exists {
		files = make(map[string]storage.Document)
		s.Documents[containerID] = files
	}

	version := 1
	if current, ok := files[fileName]; ok {
		version, _ = strconv.Atoi(current.Version)
		version++
	}

	document := storage.Document{Content: content, Version: strconv.Itoa(version)}
	files[fileName] = document
	return document
}

type Container struct {
	storage *Storage
	id      string
}

func (c *Container) GetContent(_ context.Context, fileName string) (storage.Document, error) {
	c.storage.mu.RLock()
	defer c.storage.mu.RUnlock()

	if c.storage.Err != nil {
		return storage.Document{}, c.storage.Err
	}
	return c.storage.Documents[c.id][fileName], nil
}

func (c *Container) UpdateContent(_ context.Context, fileName string, content string) (storage.Ack, error) {
	c.storage.mu.Lock()
	defer c.storage.mu.Unlock()

	if c.storage.Err != nil {
		return storage.Ack{}, c.storage.Err
	}
	document := c.storage.putLocked(c.id, fileName, content)
	return storage.Ack{Version: document.Version}, nil
}

func (c *Container) UpdateContentIf(_ context.Context, fileName string, content string, version string) (storage.Ack, error) {
	c.storage.mu.Lock()
	defer c.storage.mu.Unlock()

	if c.storage.Err != nil {
		return storage.Ack{}, c.storage.Err
	}
	if current := c.storage.Documents[c.id][fileName]; current.Version != version {
		return storage.Ack{}, storage.ErrVersionMismatch
	}
	document := c.storage.putLocked(c.id, fileName, content)
	return storage.Ack{Version: document.Version}, nil
}

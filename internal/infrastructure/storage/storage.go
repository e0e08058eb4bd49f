package storage

import (
	"context"
	"errors"
)

const (
	TypeGist  = "gist"
	TypeEtcd  = "etcd"
	TypeRedis = "redis"
	TypeMock  = "mock"
)

// ErrVersionMismatch is returned by UpdateContentIf when the stored document
// changed since the caller read it.
var ErrVersionMismatch = errors.New("document version mismatch")

// Document is the raw content of one file in a container. Content is empty
// when the file or the container does not exist.
type Document struct {
	Content string
	Version string
}

// Ack acknowledges a successful write.
type Ack struct {
	Version string
}

// Store is a blob store scoped to a single container.
type Store interface {
	GetContent(ctx context.Context, fileName string) (Document, error)
	UpdateContent(ctx context.Context, fileName string, content string) (Ack, error)
}

// ConditionalStore is implemented by stores able to reject a write when the
// document moved on since it was read. An empty version means the document
// must not exist yet.
type ConditionalStore interface {
	Store
	UpdateContentIf(ctx context.Context, fileName string, content string, version string) (Ack, error)
}

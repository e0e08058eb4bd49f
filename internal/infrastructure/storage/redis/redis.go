package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/tentens-tech/shared-debrid/internal/config"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/metrics"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage"
)

const (
	fieldContent = "content"
	fieldVersion = "version"
)

// Connection keeps every document in a hash holding its content and a
// monotonically increasing version.
type Connection struct {
	client goredis.Cmdable
	prefix string
}

func New(cfg *config.Config) *Connection {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Storage.Redis.Addr,
		Password:     cfg.Storage.Redis.Password,
		DB:           cfg.Storage.Redis.DB,
		ReadTimeout:  cfg.Storage.RequestTimeout,
		WriteTimeout: cfg.Storage.RequestTimeout,
	})

	return NewConnection(client, cfg.Storage.Redis.Prefix)
}

func NewConnection(client goredis.Cmdable, prefix string) *Connection {
	normalized := strings.TrimSpace(prefix)
	if normalized == "" {
		normalized = config.DefaultRedisPrefix
	}
	return &Connection{
		client: client,
		prefix: normalized,
	}
}

func (con *Connection) Container(containerID string) *Container {
	return &Container{con: con, id: containerID}
}

func (con *Connection) key(containerID, fileName string) string {
	return con.prefix + ":doc:" + containerID + ":" + fileName
}

type Container struct {
	con *Connection
	id  string
}

func (c *Container) GetContent(ctx context.Context, fileName string) (storage.Document, error) {
	start := time.Now()
	document, err := c.get(ctx, fileName)
	metrics.ObserveStore(storage.TypeRedis, metrics.StoreOperationGet, time.Since(start).Seconds(), err)
	return document, err
}

func (c *Container) get(ctx context.Context, fileName string) (storage.Document, error) {
	values, err := c.con.client.HMGet(ctx, c.con.key(c.id, fileName), fieldContent, fieldVersion).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return storage.Document{}, fmt.Errorf("document hmget: %w", err)
	}

	var document storage.Document
	if len(values) == 2 {
		document.Content, _ = values[0].(string)
		document.Version, _ = values[1].(string)
	}
	return document, nil
}

func (c *Container) UpdateContent(ctx context.Context, fileName string, content string) (storage.Ack, error) {
	start := time.Now()
	key := c.con.key(c.id, fileName)

	var version *goredis.IntCmd
	_, err := c.con.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldContent, content)
		version = pipe.HIncrBy(ctx, key, fieldVersion, 1)
		return nil
	})
	metrics.ObserveStore(storage.TypeRedis, metrics.StoreOperationUpdate, time.Since(start).Seconds(), err)
	if err != nil {
		return storage.Ack{}, fmt.Errorf("document update: %w", err)
	}

	return storage.Ack{Version: strconv.FormatInt(version.Val(), 10)}, nil
}

func (c *Container) UpdateContentIf(ctx context.Context, fileName string, content string, version string) (storage.Ack, error) {
	start := time.Now()
	next, err := updateIfScript.Run(ctx, c.con.client, []string{c.con.key(c.id, fileName)}, content, version).Int64()
	metrics.ObserveStore(storage.TypeRedis, metrics.StoreOperationUpdate, time.Since(start).Seconds(), err)
	if err != nil {
		return storage.Ack{}, fmt.Errorf("document conditional update: %w", err)
	}
	if next < 0 {
		return storage.Ack{}, storage.ErrVersionMismatch
	}

	return storage.Ack{Version: strconv.FormatInt(next, 10)}, nil
}

var updateIfScript = goredis.NewScript(`
local current = redis.call("HGET", KEYS[1], "version")
if not current then
  current = ""
end
if current ~= ARGV[2] then
  return -1
end
redis.call("HSET", KEYS[1], "content", ARGV[1])
return redis.call("HINCRBY", KEYS[1], "version", 1)
`)

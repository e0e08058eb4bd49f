package etcd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"path"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tentens-tech/shared-debrid/internal/config"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/metrics"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage"
	"go.etcd.io/etcd/client/pkg/v3/transport"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Connection stores documents as etcd keys under
// <prefix>/<container>/<file name>. The key's ModRevision is the document
// version, so writes can be made conditional with a transaction.
type Connection struct {
	Cli            *clientv3.Client
	prefix         string
	requestTimeout time.Duration
}

func New(cfg *config.Config) (*Connection, error) {
	var tlsConfig *tls.Config

	if cfg.Storage.Etcd.TLSEnabled {
		tlsInfo := transport.TLSInfo{
			TrustedCAFile: cfg.Storage.Etcd.ServerCACertPath,
			CertFile:      cfg.Storage.Etcd.ServerClientCertPath,
			KeyFile:       cfg.Storage.Etcd.ServerClientKeyPath,
		}

		var err error
		tlsConfig, err = tlsInfo.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS configuration for etcd endpoints: %w", err)
		}
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Storage.Etcd.EtcdAddrList,
		DialTimeout: cfg.Storage.Etcd.DialTimeout,
		TLS:         tlsConfig,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &Connection{
		Cli:            cli,
		prefix:         cfg.Storage.Etcd.Prefix,
		requestTimeout: cfg.Storage.RequestTimeout,
	}, nil
}

func (con *Connection) Close() error {
	return con.Cli.Close()
}

// Container returns a store scoped to one container.
func (con *Connection) Container(containerID string) *Container {
	return &Container{con: con, id: containerID}
}

// requestContext bounds a single etcd call. A non-positive timeout leaves ctx
// as it is.
func (con *Connection) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if con.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, con.requestTimeout)
}

func (con *Connection) key(containerID, fileName string) string {
	return path.Join("/", con.prefix, containerID, fileName)
}

type Container struct {
	con *Connection
	id  string
}

func (c *Container) GetContent(ctx context.Context, fileName string) (storage.Document, error) {
	start := time.Now()
	document, err := c.get(ctx, fileName)
	metrics.ObserveStore(storage.TypeEtcd, metrics.StoreOperationGet, time.Since(start).Seconds(), err)
	return document, err
}

func (c *Container) get(ctx context.Context, fileName string) (storage.Document, error) {
	key := c.con.key(c.id, fileName)

	getCtx, cancel := c.con.requestContext(ctx)
	defer cancel()

	resp, err := c.con.Cli.Get(getCtx, key)
	if err != nil {
		return storage.Document{}, fmt.Errorf("failed to get key %v from etcd: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		log.Debugf("Document %v does not exist", key)
		return storage.Document{}, nil
	}

	kv := resp.Kvs[0]
	return storage.Document{
		Content: string(kv.Value),
		Version: strconv.FormatInt(kv.ModRevision, 10),
	}, nil
}

func (c *Container) UpdateContent(ctx context.Context, fileName string, content string) (storage.Ack, error) {
	start := time.Now()
	key := c.con.key(c.id, fileName)

	putCtx, cancel := c.con.requestContext(ctx)
	defer cancel()

	resp, err := c.con.Cli.Put(putCtx, key, content)
	metrics.ObserveStore(storage.TypeEtcd, metrics.StoreOperationUpdate, time.Since(start).Seconds(), err)
	if err != nil {
		return storage.Ack{}, fmt.Errorf("failed to put key %v to etcd: %w", key, err)
	}

	log.Debugf("%v updated at revision %v", key, resp.Header.Revision)
	return storage.Ack{Version: strconv.FormatInt(resp.Header.Revision, 10)}, nil
}

func (c *Container) UpdateContentIf(ctx context.Context, fileName string, content string, version string) (storage.Ack, error) {
	start := time.Now()
	ack, err := c.updateIf(ctx, fileName, content, version)
	metrics.ObserveStore(storage.TypeEtcd, metrics.StoreOperationUpdate, time.Since(start).Seconds(), err)
	return ack, err
}

func (c *Container) updateIf(ctx context.Context, fileName string, content string, version string) (storage.Ack, error) {
	key := c.con.key(c.id, fileName)

	cmp, err := versionCompare(key, version)
	if err != nil {
		return storage.Ack{}, err
	}

	txnCtx, cancel := c.con.requestContext(ctx)
	defer cancel()

	txnResp, err := c.con.Cli.Txn(txnCtx).
		If(cmp).
		Then(clientv3.OpPut(key, content)).
		Commit()
	if err != nil {
		return storage.Ack{}, fmt.Errorf("failed to commit transaction for key %v: %w", key, err)
	}

	if !txnResp.Succeeded {
		log.Warnf("Document race on %v, expected version %q", key, version)
		return storage.Ack{}, storage.ErrVersionMismatch
	}

	log.Debugf("%v updated at revision %v", key, txnResp.Header.Revision)
	return storage.Ack{Version: strconv.FormatInt(txnResp.Header.Revision, 10)}, nil
}

// versionCompare builds the transaction guard for a version token. An empty
// token only matches a key that was never created.
func versionCompare(key, version string) (clientv3.Cmp, error) {
	if version == "" {
		return clientv3.Compare(clientv3.CreateRevision(key), "=", 0), nil
	}

	revision, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return clientv3.Cmp{}, errors.Join(storage.ErrVersionMismatch, fmt.Errorf("invalid etcd revision %q: %w", version, err))
	}

	return clientv3.Compare(clientv3.ModRevision(key), "=", revision), nil
}

package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/dep2p/go-resolver/pkg/types"
)

// keyPrefix 名称绑定的键前缀
//
// 键格式: ns/{name}
// 值格式: 端点字符串形式
var keyPrefix = []byte("ns/")

// BadgerRegistry 基于 BadgerDB 的持久化注册表
//
// 绑定在进程重启后仍然存在，客户端重连后无需重新注册即可被查找。
type BadgerRegistry struct {
	db     *badger.DB
	closed atomic.Bool
}

var _ Registry = (*BadgerRegistry)(nil)

// OpenBadger 打开（或创建）path 下的注册表数据库
func OpenBadger(path string) (*BadgerRegistry, error) {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("registry: create data dir: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithLogger(&badgerLogger{}).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("registry: open badger: %w", err)
	}
	return &BadgerRegistry{db: db}, nil
}

func makeKey(name string) []byte {
	key := make([]byte, 0, len(keyPrefix)+len(name))
	key = append(key, keyPrefix...)
	return append(key, name...)
}

// Register 写入绑定
func (r *BadgerRegistry) Register(ctx context.Context, name string, endpoint types.Endpoint) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := checkArgs(ctx, name); err != nil {
		return err
	}
	if endpoint.IsZero() {
		return types.ErrInvalidEndpoint
	}
	value, err := endpoint.MarshalText()
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeKey(name), value)
	})
}

// Lookup 读取绑定
func (r *BadgerRegistry) Lookup(ctx context.Context, name string) (types.Endpoint, error) {
	if r.closed.Load() {
		return types.Endpoint{}, ErrClosed
	}
	if err := checkArgs(ctx, name); err != nil {
		return types.Endpoint{}, err
	}

	var raw []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(name))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.Endpoint{}, ErrNotFound
	}
	if err != nil {
		return types.Endpoint{}, err
	}

	var ep types.Endpoint
	if err := ep.UnmarshalText(raw); err != nil {
		// 损坏的记录视为不存在
		logger.Warn("跳过损坏的绑定", "name", name, "error", err)
		return types.Endpoint{}, ErrNotFound
	}
	return ep, nil
}

// Unregister 删除绑定
func (r *BadgerRegistry) Unregister(ctx context.Context, name string) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := checkArgs(ctx, name); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		key := makeKey(name)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
}

// Names 列出所有已注册名称
func (r *BadgerRegistry) Names() ([]string, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	var names []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, string(it.Item().Key()[len(keyPrefix):]))
		}
		return nil
	})
	return names, err
}

// Close 关闭数据库
func (r *BadgerRegistry) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.db.Close()
}

// badgerLogger 把 badger 的日志转发到组件日志
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Error(fmt.Sprintf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Warn(fmt.Sprintf(format, args...))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...))
}

func (badgerLogger) Debugf(string, ...interface{}) {}

package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/ktx/core"
)

// collection keys
const (
	KeyStudents   = "studentsList"
	KeyRooms      = "rooms"
	KeyFacilities = "facilities"
	KeyFeedback   = "feedbacks"
)

var collectionKeys = []string{KeyStudents, KeyRooms, KeyFacilities, KeyFeedback}

// StorageDecodeError means the value stored under Key is not valid JSON for its type.
type StorageDecodeError struct {
	Key string
	Err error
}

func (e *StorageDecodeError) Error() string {
	return fmt.Sprintf("decoding %q: %v", e.Key, e.Err)
}

func (e *StorageDecodeError) Unwrap() error { return e.Err }

func StudentSessionKey(scope string) string { return "session:" + scope + ":loggedInStudent" }
func AdminSessionKey(scope string) string   { return "session:" + scope + ":isAdminLoggedIn" }

// Gateway reads and writes JSON values in a core.KVStore. It is the only place that touches the store.
type Gateway struct {
	kv     core.KVStore
	logger core.Logger
}

func New(kv core.KVStore, logger core.Logger) *Gateway {
	return &Gateway{kv: kv, logger: logger}
}

// Load decodes the value under key into dst and reports whether it was found.
// Corrupt values are logged and reported as absent.
func (g *Gateway) Load(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := g.kv.Get(ctx, key)
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return false, nil
		}
		return false, errors.Wrapf(err, "reading %q", key)
	}
	if err = json.Unmarshal(data, dst); err != nil {
		decErr := &StorageDecodeError{Key: key, Err: err}
		g.logger.Warn("corrupt stored value, using default", decErr)
		return false, nil
	}
	return true, nil
}

func (g *Gateway) Save(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding %q", key)
	}
	return errors.Wrapf(g.kv.Set(ctx, key, data), "writing %q", key)
}

func (g *Gateway) Remove(ctx context.Context, keys ...string) error {
	return errors.Wrap(g.kv.Delete(ctx, keys...), "removing keys")
}

// Wipe removes every collection and the session flags of scope.
func (g *Gateway) Wipe(ctx context.Context, scope string) error {
	keys := append([]string{}, collectionKeys...)
	if scope != "" {
		keys = append(keys, StudentSessionKey(scope), AdminSessionKey(scope))
	}
	return g.Remove(ctx, keys...)
}

// Export returns the raw stored bytes of key, or nil when absent.
func (g *Gateway) Export(ctx context.Context, key string) ([]byte, error) {
	data, err := g.kv.Get(ctx, key)
	if errors.Cause(err) == core.ErrKeyNotFound {
		return nil, nil
	}
	return data, errors.Wrapf(err, "reading %q", key)
}

func (g *Gateway) Ping(ctx context.Context) error {
	return g.kv.Ping(ctx)
}

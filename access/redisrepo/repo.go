// Package redisrepo stores access records in Redis so approvals survive a restart.
package redisrepo

import (
	"context"
	"encoding/json"

	"github.com/jrsteele09/go-relay-server/access"
	relayerrors "github.com/jrsteele09/go-relay-server/internal/errors"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ access.Repo = (*Repo)(nil)

// Repo keeps one JSON document per user under <prefix><userID>.
type Repo struct {
	rdb    *redis.Client
	prefix string
}

func New(rdb *redis.Client, prefix string) *Repo {
	return &Repo{rdb: rdb, prefix: prefix}
}

// Dial connects to addr and pings it before returning.
func Dial(ctx context.Context, addr, password string, db int, prefix string) (*Repo, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "[redisrepo.Dial] ping %s", addr)
	}
	return New(rdb, prefix), nil
}

func (r *Repo) key(userID string) string {
	return r.prefix + userID
}

func (r *Repo) Get(ctx context.Context, userID string) (*access.Record, error) {
	val, err := r.rdb.Get(ctx, r.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, relayerrors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "[redisrepo.Get] %s", userID)
	}

	var record access.Record
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, errors.Wrapf(err, "[redisrepo.Get] decode %s", userID)
	}
	return &record, nil
}

func (r *Repo) Upsert(ctx context.Context, record *access.Record) error {
	if record == nil || record.UserID == "" {
		return errors.New("[redisrepo.Upsert] record with userID is required")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "[redisrepo.Upsert] encode")
	}
	if err := r.rdb.Set(ctx, r.key(record.UserID), data, 0).Err(); err != nil {
		return errors.Wrapf(err, "[redisrepo.Upsert] %s", record.UserID)
	}
	return nil
}

func (r *Repo) Close() error {
	return r.rdb.Close()
}

// Package kv wraps the shared Redis instance that holds all live room state.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrConflict is returned by Transact when the watched keys kept changing.
var ErrConflict = errors.New("kv: optimistic transaction retries exhausted")

const DefaultMaxRetries = 64

type Client struct {
	rdb        redis.UniversalClient
	maxRetries int
}

func New(rdb redis.UniversalClient) *Client {
	return &Client{rdb: rdb, maxRetries: DefaultMaxRetries}
}

// Connect parses url, dials and pings Redis.
func Connect(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb), nil
}

func (c *Client) Redis() redis.UniversalClient {
	return c.rdb
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get returns the string at key. A missing key is reported with ok == false.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetIfAbsent is SET key value EX ttl NX.
func (c *Client) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

// HashesGetAll reads several hashes in one pipeline. Missing hashes come back empty.
func (c *Client) HashesGetAll(ctx context.Context, keys ...string) ([]map[string]string, error) {
	cmds := make([]*redis.StringStringMapCmd, len(keys))
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.HGetAll(ctx, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]map[string]string, len(keys))
	for i, cmd := range cmds {
		out[i] = cmd.Val()
	}
	return out, nil
}

// Batch queues commands in a MULTI/EXEC block so they apply as one unit.
func (c *Client) Batch(ctx context.Context, fn func(pipe redis.Pipeliner) error) error {
	_, err := c.rdb.TxPipelined(ctx, fn)
	return err
}

// Transact runs fn with keys WATCHed. fn must do its writes through
// tx.TxPipelined; when another client touches a watched key first the whole
// of fn runs again. Errors returned by fn abort without retry.
func (c *Client) Transact(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		err := c.rdb.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

// RunScript evaluates a Lua script, using EVALSHA when the script is cached.
func (c *Client) RunScript(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) (interface{}, error) {
	return script.Run(ctx, c.rdb, keys, args...).Result()
}

func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.rdb.Publish(ctx, channel, payload).Err()
}

func (c *Client) PSubscribe(ctx context.Context, patterns ...string) *redis.PubSub {
	return c.rdb.PSubscribe(ctx, patterns...)
}

// Touch queues EXPIRE for every key on pipe.
func Touch(ctx context.Context, pipe redis.Pipeliner, ttl time.Duration, keys ...string) {
	for _, key := range keys {
		pipe.Expire(ctx, key, ttl)
	}
}

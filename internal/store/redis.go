package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"inigma/internal/domain"
)

var _ Store = (*RedisStore)(nil)

// condUpdateRetries bounds the optimistic Watch loop before the contention
// is surfaced as a transient store error.
const condUpdateRetries = 3

// errPredicateFailed signals a clean applied=false out of the Watch closure.
var errPredicateFailed = errors.New("predicate failed")

// RedisStore keeps one JSON value per secret under secret:<id>. Keys carry
// no server-side TTL: expiry is governed by the record's own TTL field plus
// sweeping, so lazy deletion behaves identically across backings.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Put(ctx context.Context, sec domain.Secret) error {
	data, err := json.Marshal(sec)
	if err != nil {
		return fmt.Errorf("encoding secret %s: %w", sec.ID, err)
	}
	return r.client.Set(ctx, secretKey(sec.ID), data, 0).Err()
}

func (r *RedisStore) Get(ctx context.Context, id string) (domain.Secret, error) {
	data, err := r.client.Get(ctx, secretKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Secret{}, domain.ErrNotFound
		}
		return domain.Secret{}, fmt.Errorf("fetching secret %s: %w", id, err)
	}
	var sec domain.Secret
	if err := json.Unmarshal(data, &sec); err != nil {
		return domain.Secret{}, fmt.Errorf("decoding secret %s: %w", id, err)
	}
	return sec, nil
}

// ConditionalUpdate runs an optimistic WATCH transaction: read, check the
// predicate, write back inside the pipeline. A concurrent write to the key
// fails the transaction and the check is retried from scratch.
func (r *RedisStore) ConditionalUpdate(ctx context.Context, id string, pred func(domain.Secret) bool, mutate func(*domain.Secret)) (bool, error) {
	key := secretKey(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return errPredicateFailed
		}
		if err != nil {
			return err
		}
		var sec domain.Secret
		if err := json.Unmarshal(data, &sec); err != nil {
			return fmt.Errorf("decoding secret %s: %w", id, err)
		}
		if !pred(sec) {
			return errPredicateFailed
		}
		mutate(&sec)
		updated, err := json.Marshal(sec)
		if err != nil {
			return fmt.Errorf("encoding secret %s: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	for i := 0; i < condUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, errPredicateFailed) {
			return false, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return false, fmt.Errorf("conditional update of secret %s: %w", id, err)
	}
	return false, fmt.Errorf("conditional update of secret %s: %w", id, redis.TxFailedErr)
}

func (r *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Del(ctx, secretKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("deleting secret %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *RedisStore) Scan(ctx context.Context, fn func(domain.Secret) error) error {
	iter := r.client.Scan(ctx, 0, secretKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			// deleted between SCAN and GET
			continue
		}
		if err != nil {
			return fmt.Errorf("fetching %s during scan: %w", iter.Val(), err)
		}
		var sec domain.Secret
		if err := json.Unmarshal(data, &sec); err != nil {
			return fmt.Errorf("decoding %s during scan: %w", iter.Val(), err)
		}
		if err := fn(sec); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func secretKey(id string) string { return "secret:" + id }

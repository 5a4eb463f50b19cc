package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/volnat/murmur/internal/core"
)

const redisKeyPrefix = "murmur:session:"

// redisUpdateRetries bounds optimistic-lock retries when another writer
// touches the same key between WATCH and EXEC.
const redisUpdateRetries = 5

// redisStore persists sessions as JSON values with an idle TTL, using
// WATCH-based transactions so a read-modify-write on one key is atomic.
// Keys expire after ttl with no activity; a cold read after eviction is
// indistinguishable from a brand new session.
type redisStore struct {
	client       *redis.Client
	ttl          time.Duration
	defaultModel string
}

func (s *redisStore) key(id ID) string {
	return redisKeyPrefix + string(id)
}

func (s *redisStore) Get(ctx context.Context, id ID) (Session, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return New(s.defaultModel), nil
	}
	if err != nil {
		return New(s.defaultModel), &core.PersistenceError{Op: "get", Err: err}
	}

	var sess Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return New(s.defaultModel), &core.PersistenceError{Op: "decode", Err: err}
	}

	// Refresh the idle TTL on read.
	_ = s.client.Expire(ctx, s.key(id), s.ttl).Err()

	return sess, nil
}

func (s *redisStore) Update(ctx context.Context, id ID, mutate Mutator) (Session, error) {
	key := s.key(id)

	var (
		updated   Session
		mutateErr error
	)

	transaction := func(tx *redis.Tx) error {
		sess := New(s.defaultModel)

		val, err := tx.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			if err := json.Unmarshal([]byte(val), &sess); err != nil {
				return err
			}
		}

		if err := mutate(&sess); err != nil {
			mutateErr = err
			return err
		}

		sess.UpdatedAt = time.Now()

		encoded, err := json.Marshal(sess)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		updated = sess
		return nil
	}

	var err error
	for attempt := 0; attempt < redisUpdateRetries; attempt++ {
		mutateErr = nil
		err = s.client.Watch(ctx, transaction, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		break
	}

	if err != nil {
		// Mutator errors pass through untouched; everything else means the
		// backing store misbehaved.
		if mutateErr != nil {
			return Session{}, mutateErr
		}
		return Session{}, &core.PersistenceError{Op: "update", Err: err}
	}

	return updated, nil
}

func (s *redisStore) Reset(ctx context.Context, id ID) error {
	_, err := s.Update(ctx, id, func(sess *Session) error {
		sess.Reset()
		return nil
	})
	return err
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

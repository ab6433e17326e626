package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"news-shield/internal/model"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

const (
	queueKey     = "queue:check"
	recentKey    = "list:recent"
	allKey       = "results:all"
	recentLength = 50
	popTimeout   = time.Second
)

func resultKey(id uuid.UUID) string {
	return fmt.Sprintf("result:%s", id)
}

// HybridStore combines Redis (metadata, queue) and Badger (extracted texts).
type HybridStore struct {
	rdb *redis.Client
	db  *badger.DB
	now func() time.Time
}

var _ Store = (*HybridStore)(nil)

// NewHybridStore initializes databases.
// Pass badgerPath="" to run in "Redis-Only" mode (for CLI tools).
func NewHybridStore(redisAddr string, badgerPath string) (*HybridStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	var db *badger.DB
	if badgerPath != "" {
		opts := badger.DefaultOptions(badgerPath)
		opts.Logger = nil // Silence default logger
		var err error
		db, err = badger.Open(opts)
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to open badger: %w", err)
		}
	}

	return &HybridStore{rdb: rdb, db: db, now: time.Now}, nil
}

// Close cleans up connections
func (s *HybridStore) Close() error {
	var err error
	if s.rdb != nil {
		err = multierr.Append(err, s.rdb.Close())
	}
	if s.db != nil {
		err = multierr.Append(err, s.db.Close())
	}
	return err
}

// SaveResults upserts every result; one bad record does not stop the rest.
func (s *HybridStore) SaveResults(ctx context.Context, query string, results []model.ArticleResult) error {
	at := s.now()
	var errs error
	for _, r := range results {
		if err := s.save(ctx, model.NewStoredResult(r, query, at)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("save %s: %w", r.URL, err))
		}
	}
	return errs
}

// save writes metadata to Redis and the text body to Badger.
func (s *HybridStore) save(ctx context.Context, stored model.StoredResult) error {
	text := stored.TextContent
	if text != nil && s.db == nil {
		return fmt.Errorf("cannot save text: badgerdb is not initialized")
	}

	meta := stored
	meta.TextContent = nil

	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	id := stored.ID.String()
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, resultKey(stored.ID), data, 0)
	pipe.SAdd(ctx, allKey, id)
	pipe.LRem(ctx, recentKey, 0, id)
	pipe.LPush(ctx, recentKey, id)
	pipe.LTrim(ctx, recentKey, 0, recentLength-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	if s.db == nil {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if text == nil {
			err := txn.Delete([]byte(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return txn.Set([]byte(id), []byte(*text))
	})
}

// Get combines metadata from Redis with the text from Badger.
func (s *HybridStore) Get(ctx context.Context, id uuid.UUID) (*model.StoredResult, error) {
	val, err := s.rdb.Get(ctx, resultKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	var stored model.StoredResult
	if err := json.Unmarshal(val, &stored); err != nil {
		return nil, err
	}

	if s.db != nil {
		err = s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(id.String()))
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				text := string(val)
				stored.TextContent = &text
				return nil
			})
		})
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return nil, err
		}
	}

	return &stored, nil
}

// List fetches the most recent results from Redis, without texts.
func (s *HybridStore) List(ctx context.Context, limit int) ([]model.StoredResult, error) {
	if limit <= 0 {
		return []model.StoredResult{}, nil
	}
	ids, err := s.rdb.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	return s.load(ctx, ids)
}

// Stats counts every stored result.
func (s *HybridStore) Stats(ctx context.Context) (model.Stats, error) {
	ids, err := s.rdb.SMembers(ctx, allKey).Result()
	if err != nil {
		return model.Stats{}, err
	}
	all, err := s.load(ctx, ids)
	if err != nil {
		return model.Stats{}, err
	}
	return tally(all), nil
}

func (s *HybridStore) load(ctx context.Context, ids []string) ([]model.StoredResult, error) {
	results := make([]model.StoredResult, 0, len(ids))
	for _, idStr := range ids {
		val, err := s.rdb.Get(ctx, "result:"+idStr).Bytes()
		if err == redis.Nil {
			continue
		} else if err != nil {
			return nil, err
		}

		var r model.StoredResult
		if err := json.Unmarshal(val, &r); err == nil {
			results = append(results, r)
		}
	}
	return results, nil
}

// Enqueue submits a URL for the background worker.
func (s *HybridStore) Enqueue(ctx context.Context, rawURL string) error {
	return s.rdb.LPush(ctx, queueKey, rawURL).Err()
}

// PopQueue waits for a URL in the Redis queue until one arrives or ctx is done.
func (s *HybridStore) PopQueue(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		// Short blocking windows so cancellation is noticed between them.
		result, err := s.rdb.BRPop(ctx, popTimeout, queueKey).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return "", err
		}
		return result[1], nil
	}
}

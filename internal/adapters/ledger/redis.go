package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/okian/moodmarket/internal/domain/model"
	"github.com/okian/moodmarket/pkg/metrics"
)

const (
	backendRedis        = "redis"
	defaultKeyPrefix    = "moodmarket:ledger"
	journalMaxLen       = 100000
	maxOptimisticTries  = 8
	balanceFieldDefault = "0"
)

// RedisLedger stores balances as decimal strings in a hash and journals
// every transfer to a stream. Transfers use WATCH/MULTI so the balance check
// and both writes commit together.
type RedisLedger struct {
	rdb    *redis.Client
	prefix string
}

// RedisOption configures a RedisLedger.
type RedisOption func(*RedisLedger)

// WithKeyPrefix namespaces the ledger keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(l *RedisLedger) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// NewRedisLedger wraps a connected client.
func NewRedisLedger(rdb *redis.Client, opts ...RedisOption) (*RedisLedger, error) {
	if rdb == nil {
		return nil, ErrNoClient
	}
	l := &RedisLedger{rdb: rdb, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return rdb, nil
}

func (l *RedisLedger) balancesKey() string { return l.prefix + ":balances" }
func (l *RedisLedger) journalKey() string  { return l.prefix + ":journal" }

func parseBalance(v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: corrupt balance %q: %w", v, err)
	}
	return n, nil
}

func (l *RedisLedger) get(ctx context.Context, c redis.Cmdable, account model.Identity) (uint64, error) {
	v, err := c.HGet(ctx, l.balancesKey(), string(account)).Result()
	if errors.Is(err, redis.Nil) {
		v = balanceFieldDefault
	} else if err != nil {
		return 0, fmt.Errorf("redis: read balance %s: %w", account, err)
	}
	return parseBalance(v)
}

// update runs fn under WATCH on the balance hash, retrying on conflicts.
func (l *RedisLedger) update(ctx context.Context, fn func(tx *redis.Tx) error) error {
	for range maxOptimisticTries {
		err := l.rdb.Watch(ctx, fn, l.balancesKey())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrContention
}

// Transfer implements Ledger.
func (l *RedisLedger) Transfer(ctx context.Context, amount uint64, from, to model.Identity) error {
	if err := validateTransfer(amount, from, to); err != nil {
		metrics.RecordLedgerTransfer(backendRedis, "invalid")
		return err
	}
	txID := uuid.NewString()

	err := l.update(ctx, func(tx *redis.Tx) error {
		have, err := l.get(ctx, tx, from)
		if err != nil {
			return err
		}
		if have < amount {
			return fmt.Errorf("%s holds %d, needs %d: %w", from, have, amount, model.ErrInsufficientBalance)
		}
		if from == to {
			return nil
		}
		dest, err := l.get(ctx, tx, to)
		if err != nil {
			return err
		}
		next, ok := model.CheckedAdd(dest, amount)
		if !ok {
			return fmt.Errorf("credit %s: %w", to, ErrOverflow)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, l.balancesKey(),
				string(from), strconv.FormatUint(have-amount, 10),
				string(to), strconv.FormatUint(next, 10))
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: l.journalKey(),
				MaxLen: journalMaxLen,
				Approx: true,
				Values: map[string]any{
					"tx":     txID,
					"from":   string(from),
					"to":     string(to),
					"amount": strconv.FormatUint(amount, 10),
					"at":     time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			return nil
		})
		return err
	})

	switch {
	case err == nil:
		metrics.RecordLedgerTransfer(backendRedis, "ok")
		return nil
	case errors.Is(err, model.ErrInsufficientBalance):
		metrics.RecordLedgerTransfer(backendRedis, "insufficient")
	default:
		metrics.RecordLedgerTransfer(backendRedis, "error")
	}
	return fmt.Errorf("redis transfer %s: %w", txID, err)
}

// Credit implements Ledger.
func (l *RedisLedger) Credit(ctx context.Context, account model.Identity, amount uint64) error {
	if !account.Valid() {
		return ErrInvalidAccount
	}
	return l.update(ctx, func(tx *redis.Tx) error {
		have, err := l.get(ctx, tx, account)
		if err != nil {
			return err
		}
		next, ok := model.CheckedAdd(have, amount)
		if !ok {
			return fmt.Errorf("credit %s: %w", account, ErrOverflow)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, l.balancesKey(), string(account), strconv.FormatUint(next, 10))
			return nil
		})
		return err
	})
}

// Balance implements Ledger.
func (l *RedisLedger) Balance(ctx context.Context, account model.Identity) (uint64, error) {
	return l.get(ctx, l.rdb, account)
}

// Backend implements Ledger.
func (l *RedisLedger) Backend() string { return backendRedis }

// JournalLen returns the number of journaled transfers.
func (l *RedisLedger) JournalLen(ctx context.Context) (int64, error) {
	n, err := l.rdb.XLen(ctx, l.journalKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: journal length: %w", err)
	}
	return n, nil
}

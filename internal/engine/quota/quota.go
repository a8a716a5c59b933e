// Package quota debits live provider calls against per-user credit
// balances. The search core only reports how many calls a search made.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ErrInsufficientCredits is returned when a debit exceeds the balance. The
// calls were already made, so whatever balance was left is taken.
var ErrInsufficientCredits = errors.New("insufficient credits")

// Unmetered is reported as the remaining balance for users without a
// credit record.
const Unmetered int64 = -1

// Accountant debits the cost of a completed search. Balance lets a caller
// refuse live work to a user who has nothing left.
type Accountant interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Debit(ctx context.Context, userID string, calls int) (remaining int64, err error)
}

type nop struct{}

func (nop) Balance(context.Context, string) (int64, error) { return Unmetered, nil }
func (nop) Debit(context.Context, string, int) (int64, error) { return Unmetered, nil }

// Nop never charges anyone.
var Nop Accountant = nop{}

// debitScript returns -1 for unmetered users, -2 when the balance is too low
// (after zeroing it) and the new balance otherwise. Usage grows by what was
// actually charged.
var debitScript = redis.NewScript(`
local calls = tonumber(ARGV[1])
local bal = redis.call("GET", KEYS[1])
if not bal then
  redis.call("INCRBY", KEYS[2], calls)
  return -1
end
bal = tonumber(bal)
if bal < calls then
  if bal > 0 then
    redis.call("INCRBY", KEYS[2], bal)
    redis.call("SET", KEYS[1], 0)
  end
  return -2
end
redis.call("INCRBY", KEYS[2], calls)
return redis.call("DECRBY", KEYS[1], calls)
`)

// RedisLedger keeps balances under leadfinder:credits:{user} and lifetime
// usage under leadfinder:usage:{user}.
type RedisLedger struct {
	rdb *redis.Client
}

func NewRedisLedger(rdb *redis.Client) *RedisLedger {
	return &RedisLedger{rdb: rdb}
}

func creditsKey(userID string) string { return "leadfinder:credits:" + userID }
func usageKey(userID string) string   { return "leadfinder:usage:" + userID }

// Debit atomically subtracts calls from the user's balance. Users without a
// balance are unmetered and get Unmetered back.
func (l *RedisLedger) Debit(ctx context.Context, userID string, calls int) (int64, error) {
	if calls <= 0 {
		return l.Balance(ctx, userID)
	}
	if userID == "" {
		return Unmetered, nil
	}
	n, err := debitScript.Run(ctx, l.rdb, []string{creditsKey(userID), usageKey(userID)}, calls).Int64()
	if err != nil {
		return 0, fmt.Errorf("debiting credits: %w", err)
	}
	switch n {
	case -1:
		return Unmetered, nil
	case -2:
		return 0, ErrInsufficientCredits
	}
	return n, nil
}

// Balance returns the user's balance or Unmetered.
func (l *RedisLedger) Balance(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return Unmetered, nil
	}
	v, err := l.rdb.Get(ctx, creditsKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return Unmetered, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading balance: %w", err)
	}
	return strconv.ParseInt(v, 10, 64)
}

// Usage returns the lifetime number of calls charged to the user.
func (l *RedisLedger) Usage(ctx context.Context, userID string) (int64, error) {
	v, err := l.rdb.Get(ctx, usageKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetBalance provisions credits for a user.
func (l *RedisLedger) SetBalance(ctx context.Context, userID string, credits int64) error {
	return l.rdb.Set(ctx, creditsKey(userID), credits, 0).Err()
}

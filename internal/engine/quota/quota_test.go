package quota

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) (*RedisLedger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisLedger(rdb), mr
}

func TestDebit(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	require.NoError(t, l.SetBalance(ctx, "u1", 10))

	remaining, err := l.Debit(ctx, "u1", 6)
	require.NoError(t, err)
	assert.Equal(t, int64(4), remaining)

	_, err = l.Debit(ctx, "u1", 5)
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	bal, err := l.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal, "a short debit takes what is left")

	usage, err := l.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), usage)

	_, err = l.Debit(ctx, "u1", 1)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	usage, err = l.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), usage)
}

func TestBalance(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	require.NoError(t, l.SetBalance(ctx, "u1", 7))

	bal, err := l.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), bal)

	bal, err = l.Balance(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, Unmetered, bal)

	bal, err = l.Balance(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, Unmetered, bal)
}

func TestDebitUnmetered(t *testing.T) {
	ctx := context.Background()
	l, mr := newLedger(t)

	remaining, err := l.Debit(ctx, "free", 3)
	require.NoError(t, err)
	assert.Equal(t, Unmetered, remaining)
	assert.False(t, mr.Exists(creditsKey("free")))

	usage, err := l.Usage(ctx, "free")
	require.NoError(t, err)
	assert.Equal(t, int64(3), usage)
}

func TestDebitZeroCallsIsFree(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	require.NoError(t, l.SetBalance(ctx, "u1", 0))

	remaining, err := l.Debit(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)
}

func TestDebitConcurrent(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	require.NoError(t, l.SetBalance(ctx, "u1", 10))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Debit(ctx, "u1", 3)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else {
				assert.ErrorIs(t, err, ErrInsufficientCredits)
				fail++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 5, fail)
	bal, err := l.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)
	usage, err := l.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), usage)
}

func TestNop(t *testing.T) {
	remaining, err := Nop.Debit(context.Background(), "anyone", 100)
	require.NoError(t, err)
	assert.Equal(t, Unmetered, remaining)

	bal, err := Nop.Balance(context.Background(), "anyone")
	require.NoError(t, err)
	assert.Equal(t, Unmetered, bal)
}

package api

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	visitorBloomBits = 1 << 20
	visitorBloomK    = 4
)

// bloomPositions derives k bit offsets in [0, m) from FNV-64a with the round index as salt.
func bloomPositions(data []byte, m uint32, k int) []int64 {
	pos := make([]int64, k)
	for i := 0; i < k; i++ {
		h := fnv.New64a()
		h.Write([]byte{byte(i)})
		h.Write(data)
		pos[i] = int64(h.Sum64() % uint64(m))
	}
	return pos
}

// bloomCheckAndSet reports whether the positions were not all set before, setting them if so.
// Without redis every visitor counts as new.
func bloomCheckAndSet(ctx context.Context, rc *redis.Client, key string, positions []int64, ttl time.Duration) (bool, error) {
	if rc == nil {
		return true, nil
	}
	pipe := rc.Pipeline()
	cmds := make([]*redis.IntCmd, len(positions))
	for i, p := range positions {
		cmds[i] = pipe.SetBit(ctx, key, p, 1)
	}
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	for _, c := range cmds {
		if c.Val() == 0 {
			return true, nil
		}
	}
	return false, nil
}

// firstVisitToday dedups visitors per UTC day. False positives undercount slightly.
func firstVisitToday(ctx context.Context, rc *redis.Client, visitor string, now time.Time) (bool, error) {
	if visitor == "" {
		return false, nil
	}
	key := "visitors:" + now.UTC().Format("20060102")
	return bloomCheckAndSet(ctx, rc, key, bloomPositions([]byte(visitor), visitorBloomBits, visitorBloomK), 48*time.Hour)
}

// Package keypool implements the sliding-window, rate-limited external-API
// key scheduler (spec §4.2, C2 Key Pool Scheduler).
package keypool

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Limit is the per-key call budget within a 60-second trailing window
// (spec §4.2: "LIMIT=5").
const Limit = 5

const window = 60 * time.Second

// Pool hands out API keys that have been used fewer than Limit times in
// the trailing window, tracking usage per key in memory (spec §3:
// KeyUsage). It is safe for concurrent use; contention on Acquire is
// serialized and waiting is cooperative — the lock is released while a
// caller sleeps for capacity to free up, grounded on
// DiffbotKeyManager.get_key in original_source/headline_worker/modules/link_collector.py.
type Pool struct {
	mu    sync.Mutex
	keys  []string
	usage map[string][]time.Time
	now   func() time.Time // overridable for tests
}

// New constructs a Pool over the given keys. An empty key list is valid
// but every Acquire call will block forever; callers should validate
// non-empty configuration at startup (spec §6: missing credentials abort
// startup).
func New(keys []string) *Pool {
	usage := make(map[string][]time.Time, len(keys))
	for _, k := range keys {
		usage[k] = nil
	}
	return &Pool{
		keys:  append([]string(nil), keys...),
		usage: usage,
		now:   time.Now,
	}
}

// NumKeys returns the configured key count, used to size the BATCH
// fan-out semaphore (spec §4.5.3: max(1, min(8, numKeys-1))).
func (p *Pool) NumKeys() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Acquire returns a key with spare capacity in the trailing 60s window,
// recording the issuance. Among eligible keys it picks one with the
// minimum recent usage count, breaking ties uniformly at random to avoid
// pinning. If every key is saturated it sleeps until the earliest key
// frees up and retries, honoring ctx cancellation.
func (p *Pool) Acquire(ctx context.Context) (string, error) {
	for {
		key, wait, err := p.tryAcquire()
		if err != nil {
			return "", err
		}
		if key != "" {
			return key, nil
		}

		slog.Warn("all keys at rate limit, waiting for capacity",
			slog.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("acquire key: %w", ctx.Err())
		}
	}
}

// tryAcquire prunes usage, selects an eligible key under the lock, and
// returns ("", wait, nil) if none is currently eligible.
func (p *Pool) tryAcquire() (string, time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.keys) == 0 {
		return "", 0, fmt.Errorf("keypool: no keys configured")
	}

	now := p.now()
	cutoff := now.Add(-window)

	for _, k := range p.keys {
		p.usage[k] = pruneBefore(p.usage[k], cutoff)
	}

	var available []string
	for _, k := range p.keys {
		if len(p.usage[k]) < Limit {
			available = append(available, k)
		}
	}

	if len(available) == 0 {
		earliest := now.Add(window)
		for _, k := range p.keys {
			usages := p.usage[k]
			if len(usages) == 0 {
				continue
			}
			freeAt := usages[0].Add(window)
			if freeAt.Before(earliest) {
				earliest = freeAt
			}
		}
		wait := earliest.Sub(now)
		if wait < 0 {
			wait = 0
		}
		return "", wait, nil
	}

	minCount := len(p.usage[available[0]])
	for _, k := range available {
		if c := len(p.usage[k]); c < minCount {
			minCount = c
		}
	}
	var leastUsed []string
	for _, k := range available {
		if len(p.usage[k]) == minCount {
			leastUsed = append(leastUsed, k)
		}
	}

	selected := leastUsed[rand.Intn(len(leastUsed))] //nolint:gosec // tie-break only, not security sensitive
	p.usage[selected] = append(p.usage[selected], now)

	return selected, 0, nil
}

// pruneBefore returns the suffix of timestamps strictly after cutoff.
// usage slices are append-only and time-ordered, so this is a single scan.
func pruneBefore(usages []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(usages) && !usages[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return usages
	}
	return append([]time.Time(nil), usages[i:]...)
}

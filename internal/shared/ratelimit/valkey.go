package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Valkey counts requests per fixed window in a shared Valkey instance so
// every API replica draws from the same budget.
type Valkey struct {
	client valkey.Client
	prefix string
	now    func() time.Time
}

// NewValkey connects to addr and verifies the connection with PING.
func NewValkey(ctx context.Context, addr, password string) (*Valkey, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		Password:    password,
	})
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}
	return &Valkey{client: client, prefix: "jobjeeves:ratelimit:", now: time.Now}, nil
}

// Close releases the underlying connections.
func (v *Valkey) Close() {
	if v != nil && v.client != nil {
		v.client.Close()
	}
}

func (v *Valkey) Allow(ctx context.Context, key string, rule Rule) (bool, time.Duration, error) {
	if v == nil || rule.Disabled() {
		return true, 0, nil
	}
	w := windowFor(rule, v.now())
	windowKey := fmt.Sprintf("%s%s:%d", v.prefix, key, w.index)

	count, err := v.client.Do(ctx, v.client.B().Incr().Key(windowKey).Build()).AsInt64()
	if err != nil {
		return true, 0, fmt.Errorf("valkey incr %s: %w", windowKey, err)
	}
	if count == 1 {
		ttl := int64(math.Ceil(w.length.Seconds())) + 1
		if err := v.client.Do(ctx, v.client.B().Expire().Key(windowKey).Seconds(ttl).Build()).Error(); err != nil {
			return true, 0, fmt.Errorf("valkey expire %s: %w", windowKey, err)
		}
	}
	if count > int64(rule.Burst) {
		return false, w.remaining, nil
	}
	return true, 0, nil
}

type window struct {
	index     int64
	length    time.Duration
	remaining time.Duration
}

// windowFor maps a rule onto fixed windows long enough to refill the whole
// burst, never shorter than one second.
func windowFor(rule Rule, now time.Time) window {
	length := time.Duration(math.Ceil(float64(rule.Burst)/rule.Rate*1000.0)) * time.Millisecond
	if length < time.Second {
		length = time.Second
	}
	elapsed := time.Duration(now.UnixNano())
	index := int64(elapsed / length)
	remaining := length - elapsed%length
	return window{index: index, length: length, remaining: remaining}
}

var _ Limiter = (*Valkey)(nil)

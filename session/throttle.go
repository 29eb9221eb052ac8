package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed logins per username in a fixed window.
type LoginThrottle struct {
	rdb    *redis.Client
	max    int64
	window time.Duration
}

func NewLoginThrottle(rdb *redis.Client, max int64, window time.Duration) *LoginThrottle {
	return &LoginThrottle{rdb: rdb, max: max, window: window}
}

func failKey(username string) string {
	return fmt.Sprintf("lending:login_fail:%s", strings.ToLower(username))
}

// Blocked reports whether the username used up its attempts for the current window.
func (t *LoginThrottle) Blocked(ctx context.Context, username string) (bool, error) {
	n, err := t.rdb.Get(ctx, failKey(username)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n >= t.max, nil
}

func (t *LoginThrottle) Fail(ctx context.Context, username string) error {
	n, err := t.rdb.Incr(ctx, failKey(username)).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return t.rdb.Expire(ctx, failKey(username), t.window).Err()
	}
	return nil
}

func (t *LoginThrottle) Reset(ctx context.Context, username string) error {
	return t.rdb.Del(ctx, failKey(username)).Err()
}

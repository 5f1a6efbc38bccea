package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss はキャッシュ未登録・期限切れを表す
var ErrCacheMiss = errors.New("キャッシュが見つかりません")

// SeatCache は残座席数のRedisキャッシュ
// キーと (値, 期限) の対応を保持する短期のメモ化ストア
type SeatCache struct {
	client *redis.Client
}

// NewSeatCache は新しい SeatCache を作成する
func NewSeatCache(client *redis.Client) *SeatCache {
	return &SeatCache{client: client}
}

// Get はキャッシュ値を取得する
func (c *SeatCache) Get(ctx context.Context, key string) (int, error) {
	val, err := c.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// Set はキャッシュ値をTTL付きで保存する
func (c *SeatCache) Set(ctx context.Context, key string, value int, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Delete は指定キーのキャッシュを無効化する
func (c *SeatCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

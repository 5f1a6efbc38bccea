package clock

import "time"

// Clock は現在時刻の供給源を抽象化する
// テストで時刻を固定・前進させられるように依存として注入する
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem はシステム時刻を返すクロックを作成する
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock は常に同じ時刻を返すテスト用クロック
// Advance で手動で時刻を進められる
type FixedClock struct {
	now time.Time
}

// NewFixed は固定時刻のクロックを作成する
func NewFixed(t time.Time) *FixedClock {
	return &FixedClock{now: t.UTC()}
}

func (f *FixedClock) Now() time.Time {
	return f.now
}

// Advance は固定時刻を d だけ進める
func (f *FixedClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// Set は固定時刻を差し替える
func (f *FixedClock) Set(t time.Time) {
	f.now = t.UTC()
}

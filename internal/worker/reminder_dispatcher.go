package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/su-fit-vut/ssrs/internal/application"
	"github.com/su-fit-vut/ssrs/internal/pkg/clock"
	"github.com/su-fit-vut/ssrs/internal/pkg/logger"
	"github.com/su-fit-vut/ssrs/internal/pkg/metrics"
)

// ReminderSource はリマインダージョブの購読元インターフェース
type ReminderSource interface {
	Consume(ctx context.Context, handle func(ctx context.Context, job application.ReminderJob) error) error
}

// ReminderDispatcher はキューからリマインダージョブを取り出し、
// 実行時刻になったら通知ポート経由でメールを送るワーカー
type ReminderDispatcher struct {
	source   ReminderSource
	notifier application.NotificationPort
	clk      clock.Clock
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewReminderDispatcher は新しいディスパッチャーを作成する
func NewReminderDispatcher(source ReminderSource, notifier application.NotificationPort, clk clock.Clock) *ReminderDispatcher {
	return &ReminderDispatcher{
		source:   source,
		notifier: notifier,
		clk:      clk,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はディスパッチャーを開始する
// ctx のキャンセルか Stop の呼び出しで停止する
func (d *ReminderDispatcher) Start(ctx context.Context) {
	logger.Info("リマインダーディスパッチャー開始")
	defer close(d.doneCh)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-d.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := d.source.Consume(ctx, d.dispatch); err != nil && ctx.Err() == nil {
		logger.Error("リマインダー購読が異常終了", zap.Error(err))
	}
	logger.Info("リマインダーディスパッチャー停止")
}

// Stop はディスパッチャーを停止して終了を待つ
func (d *ReminderDispatcher) Stop() {
	close(d.stopCh)
	<-d.doneCh
}

// dispatch は1件のジョブを処理する
// 実行時刻が未来なら待ち、時刻になってからメールを送る
func (d *ReminderDispatcher) dispatch(ctx context.Context, job application.ReminderJob) error {
	if wait := job.RunAt.Sub(d.clk.Now()); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	m := metrics.Get()
	if err := d.notifier.SendReminder(ctx, job.Email, job.Seats, job.CancelLink, job.Slots); err != nil {
		if m != nil {
			m.ReminderJobsTotal.WithLabelValues("failed").Inc()
		}
		return err
	}
	if m != nil {
		m.ReminderJobsTotal.WithLabelValues("dispatched").Inc()
	}
	logger.Debug("リマインダーメールを送信",
		zap.Int64("reservation_id", job.ReservationID), zap.String("to", job.Email))
	return nil
}

package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/su-fit-vut/ssrs/internal/application"
	"github.com/su-fit-vut/ssrs/internal/config"
	"github.com/su-fit-vut/ssrs/internal/pkg/logger"
)

// ReminderQueue はリマインダージョブのRabbitMQキュー
// コアはジョブを積むだけで、実行はディスパッチャー側が担う
type ReminderQueue struct {
	url       string
	queueName string
}

// NewReminderQueue は新しい ReminderQueue を作成する
func NewReminderQueue(cfg *config.AMQPConfig) *ReminderQueue {
	return &ReminderQueue{url: cfg.URL, queueName: cfg.QueueName}
}

// Schedule はリマインダージョブを永続メッセージとしてキューに積む
// エラーはログに残した上で返すので、呼び出し側は無視してよい
func (q *ReminderQueue) Schedule(ctx context.Context, job application.ReminderJob) error {
	conn, err := amqp.Dial(q.url)
	if err != nil {
		logger.Warn("RabbitMQ接続に失敗", zap.Error(err))
		return fmt.Errorf("RabbitMQ接続に失敗: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Warn("RabbitMQチャネルの作成に失敗", zap.Error(err))
		return fmt.Errorf("RabbitMQチャネルの作成に失敗: %w", err)
	}
	defer ch.Close()

	// キューを冪等に宣言する（durable: ブローカー再起動でもメッセージを保持）
	if _, err := ch.QueueDeclare(q.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("キュー宣言に失敗: %w", err)
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("ジョブのエンコードに失敗: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.New().String(),
		// 同一予約のジョブを識別できるように相関IDに予約IDを入れる
		CorrelationId: fmt.Sprintf("reminder-%d", job.ReservationID),
		Timestamp:     time.Now().UTC(),
		Body:          body,
	}

	if err := ch.PublishWithContext(ctx, "", q.queueName, false, false, pub); err != nil {
		logger.Warn("リマインダージョブの発行に失敗",
			zap.Int64("reservation_id", job.ReservationID), zap.Error(err))
		return fmt.Errorf("ジョブ発行に失敗: %w", err)
	}
	return nil
}

// Consume はキューを購読し、届いたジョブごとに handle を呼ぶ
// 接続断では再接続を試み、ctx がキャンセルされるまで動き続ける
func (q *ReminderQueue) Consume(ctx context.Context, handle func(ctx context.Context, job application.ReminderJob) error) error {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, err := amqp.Dial(q.url)
		if err != nil {
			logger.Warn("RabbitMQ接続に失敗、再試行します",
				zap.Duration("backoff", backoff), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := q.consumeLoop(ctx, conn, handle); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("リマインダー購読ループが終了、再接続します", zap.Error(err))
		}
		conn.Close()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (q *ReminderQueue) consumeLoop(ctx context.Context, conn *amqp.Connection, handle func(ctx context.Context, job application.ReminderJob) error) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("チャネル作成に失敗: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(10, 0, false); err != nil {
		logger.Warn("QoS設定に失敗", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(q.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("キュー宣言に失敗: %w", err)
	}

	msgs, err := ch.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("購読開始に失敗: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("配送チャネルが閉じられました")
			}
			var job application.ReminderJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				logger.Warn("ジョブのデコードに失敗", zap.Error(err))
				// 不正メッセージは再キューせず破棄する
				_ = d.Nack(false, false)
				continue
			}
			if err := handle(ctx, job); err != nil {
				logger.Warn("リマインダージョブの処理に失敗",
					zap.Int64("reservation_id", job.ReservationID), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

var _ application.ReminderScheduler = (*ReminderQueue)(nil)

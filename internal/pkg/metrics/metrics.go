package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約作成試行の総数（result: must_confirm, confirmed, no_seats_left, email_taken, timeslot_error, error）
	ReservationAttemptsTotal *prometheus.CounterVec

	// 予約確定・キャンセル操作の総数（operation: confirm/cancel, result）
	ReservationCompletionsTotal *prometheus.CounterVec

	// 現在の残座席数（scope: pool）
	SeatsLeft prometheus.Gauge

	// 通知メール送信の総数（kind: confirmation_request/confirmed/cancelled/reminder, status: sent/failed）
	NotificationsTotal *prometheus.CounterVec

	// リマインダージョブの総数（status: scheduled/dispatched/failed）
	ReminderJobsTotal *prometheus.CounterVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ReservationAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_attempts_total",
				Help: "Total number of reservation attempts",
			},
			[]string{"result"},
		),
		ReservationCompletionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_completions_total",
				Help: "Total number of confirm/cancel operations",
			},
			[]string{"operation", "result"},
		),
		SeatsLeft: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "seats_left",
				Help: "Seats left in the event-wide pool",
			},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Total number of notification emails",
			},
			[]string{"kind", "status"},
		),
		ReminderJobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reminder_jobs_total",
				Help: "Total number of reminder jobs",
			},
			[]string{"status"},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationAttemptsTotal,
		m.ReservationCompletionsTotal,
		m.SeatsLeft,
		m.NotificationsTotal,
		m.ReminderJobsTotal,
	)

	return m
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す（未初期化なら nil）
func Get() *Metrics {
	return defaultMetrics
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/su-fit-vut/ssrs/internal/api"
	"github.com/su-fit-vut/ssrs/internal/api/handler"
	apimw "github.com/su-fit-vut/ssrs/internal/api/middleware"
	"github.com/su-fit-vut/ssrs/internal/application"
	"github.com/su-fit-vut/ssrs/internal/config"
	"github.com/su-fit-vut/ssrs/internal/infrastructure/postgres"
	"github.com/su-fit-vut/ssrs/internal/infrastructure/rabbitmq"
	redisinfra "github.com/su-fit-vut/ssrs/internal/infrastructure/redis"
	"github.com/su-fit-vut/ssrs/internal/infrastructure/smtp"
	"github.com/su-fit-vut/ssrs/internal/pkg/clock"
	"github.com/su-fit-vut/ssrs/internal/pkg/link"
	"github.com/su-fit-vut/ssrs/internal/pkg/logger"
	"github.com/su-fit-vut/ssrs/internal/pkg/metrics"
	"github.com/su-fit-vut/ssrs/internal/pkg/token"
	"github.com/su-fit-vut/ssrs/internal/worker"
)

func main() {
	// .env があれば読み込む（本番では環境変数を直接使う）
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.Server.Env))
	defer logger.Sync()

	m := metrics.Init()

	// PostgreSQL
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続に失敗", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.RunMigrations(db.DB, "migrations"); err != nil {
		logger.Fatal("マイグレーションに失敗", zap.Error(err))
	}

	// Redis
	redisClient := redisinfra.NewClient(&cfg.Redis)
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisinfra.Ping(ctx, redisClient); err != nil {
		logger.Fatal("Redis接続に失敗", zap.Error(err))
	}
	cancel()

	// 依存の組み立て
	clk := clock.NewSystem()
	tokens := token.NewGenerator()
	txManager := postgres.NewTxManager(db)
	resRepo := postgres.NewReservationRepository(db)
	slotRepo := postgres.NewTimeSlotRepository(db)
	seatCache := redisinfra.NewSeatCache(redisClient)

	ledger := application.NewSeatLedger(
		cfg.Seats.TotalSeats, cfg.Seats.UnconfirmedValid, resRepo, slotRepo, seatCache, clk)

	slotService := application.NewSlotService(slotRepo, ledger, application.QuizSlotPolicy{
		SoloSlotID:  cfg.Slots.PubQuizSoloSlotID,
		TeamsSlotID: cfg.Slots.PubQuizTeamsSlotID,
		MinTeamSize: cfg.Slots.MinPubQuizTeamSize,
	})

	var notifier application.NotificationPort
	if cfg.Mail.DevMode {
		notifier = smtp.NewDevMailer()
	} else {
		notifier = smtp.NewMailer(&cfg.Mail)
	}

	links := link.NewBuilder(cfg.Link.Scheme, cfg.Link.Host, cfg.Link.PathBase)
	reminderQueue := rabbitmq.NewReminderQueue(&cfg.AMQP)

	reservationService := application.NewReservationService(
		txManager, resRepo, slotRepo, ledger, slotService,
		notifier, links, reminderQueue, tokens, clk,
		cfg.Seats.MaxSeatsPerEmail,
	)

	exporter := application.NewCsvExporter(
		resRepo, slotRepo, cfg.Slots.ExportActivityIDs, cfg.Slots.Timezone)

	// リマインダーディスパッチャー起動
	dispatcher := worker.NewReminderDispatcher(reminderQueue, notifier, clk)
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	go dispatcher.Start(dispatcherCtx)

	// Echo インスタンス作成
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	apimw.SetupMiddleware(e)
	e.Use(apimw.PrometheusMiddleware(m))

	// ハンドラー
	healthHandler := handler.NewHealthHandler()
	reservationHandler := handler.NewReservationHandler(reservationService, slotService)
	seatHandler := handler.NewSeatHandler(ledger)
	timeslotHandler := handler.NewTimeslotHandler(slotService)
	adminHandler := handler.NewAdminHandler(exporter, reservationService)

	// ルーティング
	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Check)
	v1.POST("/reservations", reservationHandler.Create)
	v1.GET("/reservations", reservationHandler.Details)
	v1.POST("/reservations/confirm", reservationHandler.Confirm)
	v1.POST("/reservations/cancel", reservationHandler.Cancel)
	v1.GET("/seats", seatHandler.SeatsLeft)
	v1.GET("/timeslots/:id/seats", seatHandler.SlotSeatsLeft)
	v1.GET("/activities", timeslotHandler.ListActivities)
	v1.GET("/activities/:id/timeslots", timeslotHandler.ListByActivity)
	v1.GET("/pubquiz/availability", timeslotHandler.PubQuizAvailability)

	admin := v1.Group("/admin", apimw.AdminBasicAuth())
	admin.GET("/export", adminHandler.ExportCsv)
	admin.POST("/reminders", adminHandler.ScheduleReminders)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), apimw.MetricsBasicAuth())

	// サーバー起動
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	stopDispatcher()
	dispatcher.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}

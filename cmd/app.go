package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/nanalive/randomchat/internal/application/config"
	"github.com/nanalive/randomchat/internal/application/constant"
	"github.com/nanalive/randomchat/internal/application/metric"
	"github.com/nanalive/randomchat/internal/infra/adapters/memory"
	"github.com/nanalive/randomchat/internal/infra/adapters/postgres"
	"github.com/nanalive/randomchat/internal/infra/adapters/postgres/repository"
	"github.com/nanalive/randomchat/internal/infra/ports/http/handlers"
	"github.com/nanalive/randomchat/internal/infra/ports/http/server"
	"github.com/nanalive/randomchat/internal/realtime"
	"github.com/nanalive/randomchat/internal/usecase"
)

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: slog.LevelInfo},
			),
		),
	)

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	slog.Info("Running app", slog.Bool("debug", cfg.Debug), slog.String("realtime_driver", cfg.RealtimeDriver))

	var (
		tickets   realtime.TicketStore
		messages  realtime.MessageStore
		feed      realtime.Feed
		broadcast realtime.Broadcaster
	)

	switch cfg.RealtimeDriver {
	case "memory":
		rt := memory.NewRealtime()
		tickets = rt.Tickets()
		messages = rt.Messages()
		feed = rt
		broadcast = rt

	default:
		dbConn, err := postgres.NewPostgres(ctx, cfg.Postgres.DSN())
		if err != nil {
			slog.Error("connect to postgres", slog.Any(constant.Error, err))
			os.Exit(1)
		}
		defer dbConn.Close()

		listener := postgres.NewListener(cfg.Postgres.DSN(), dbConn)
		go func() {
			if err := listener.Run(ctx); err != nil {
				slog.Error("postgres listener stopped", slog.Any(constant.Error, err))
			}
		}()

		tickets = repository.NewTicketRepo(dbConn)
		messages = repository.NewMessageRepo(dbConn)
		feed = listener
		broadcast = listener
	}

	queueUsecase := usecase.NewQueueUsecase(tickets, feed)
	matchmaker := usecase.NewMatchmaker(tickets, cfg.SettleDelay)
	relay := usecase.NewRelay(messages, feed)
	chatUsecase := usecase.NewChatUsecase(queueUsecase, matchmaker, relay, broadcast)

	guestHandler := handlers.NewGuestHandler(cfg)
	wsHandler := handlers.NewWebSocketHandler(cfg, chatUsecase)

	echoSrv := server.New(cfg, guestHandler, wsHandler)

	metricsSrv := metric.NewServer()

	echoSrvCh := make(chan error, 1)
	metricsSrvCh := make(chan error, 1)

	go func() {
		echoSrvCh <- echoSrv.Start(":" + cfg.Port)
	}()

	go func() {
		metricsSrvCh <- metricsSrv.Start(":" + cfg.MetricPort)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down servers due to context cancel")
	case err := <-echoSrvCh:
		slog.Error(
			"HTTP server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	case err := <-metricsSrvCh:
		slog.Error(
			"Metrics server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	}

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()

	if err := echoSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown HTTP server", slog.Any(constant.Error, err))
	}

	if err := metricsSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
	}
}

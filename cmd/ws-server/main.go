package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sales-routing-backend/internal/api"
	"sales-routing-backend/internal/api/router"
	"sales-routing-backend/internal/env"
	internaljwt "sales-routing-backend/internal/jwt"
	"sales-routing-backend/internal/logging"
	"sales-routing-backend/internal/queue"
	"sales-routing-backend/internal/websocket"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	wsPrefix    = "/api/ws/v1"
	defaultAddr = ":8083"
)

func main() {
	logger := logging.New(os.Stdout, "ws-server", env.Get(env.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("ws server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	if err := env.Require(env.OperatorSecret, env.AlertsRedisURL); err != nil {
		return err
	}

	// Access tokens are stateless; refresh is served by the routing server.
	issuer, err := internaljwt.NewIssuer(env.Get(env.OperatorSecret), nil, nil)
	if err != nil {
		return err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     env.Get(env.AlertsRedisURL),
		Password: env.Get(env.AlertsRedisPass),
	})
	defer client.Close()

	registry := prometheus.NewRegistry()
	origins := env.List(env.AllowedOrigins)

	hub := websocket.NewHub(websocket.HubOptions{Logger: logger, Registerer: registry})
	go hub.Run(ctx)
	handler := websocket.NewHandler(ctx, hub, websocket.NewRedisSubscriber(client), websocket.HandlerOptions{
		Logger:         logger,
		AllowedOrigins: origins,
	})
	if err := handler.CreateRoom(websocket.AlertRoomAll); err != nil {
		return err
	}

	queueManager := queue.NewRequestQueueManagerWithLogger(10, 10, logger)
	defer queueManager.Shutdown()

	server := api.NewAPIServer(
		env.GetOrDefault(env.WSListenAddr, defaultAddr),
		queueManager,
		api.Options{Registry: registry, Logger: logger, AllowedOrigins: origins},
		router.UtilsRoutes(wsPrefix),
		router.AlertFeedRoutes(wsPrefix, handler, issuer),
	)
	return server.Run(ctx)
}

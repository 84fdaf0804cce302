package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales-routing-backend/internal/api"
	"sales-routing-backend/internal/api/endpoints"
	"sales-routing-backend/internal/api/router"
	"sales-routing-backend/internal/config"
	"sales-routing-backend/internal/env"
	"sales-routing-backend/internal/flowstore"
	internaljwt "sales-routing-backend/internal/jwt"
	"sales-routing-backend/internal/logging"
	"sales-routing-backend/internal/pubsub"
	"sales-routing-backend/internal/queue"
	"sales-routing-backend/internal/service/alerts"
	"sales-routing-backend/internal/service/dashboard"
	"sales-routing-backend/internal/service/directory"
	"sales-routing-backend/internal/service/escalation"
	"sales-routing-backend/internal/service/followup"
	"sales-routing-backend/internal/service/operator"
	"sales-routing-backend/internal/service/routing"
	"sales-routing-backend/internal/stores"
	"sales-routing-backend/internal/websocket"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	apiPrefix      = "/api/v1"
	producerName   = "routing-server"
	janitorEvery   = time.Hour
	defaultAddr    = ":8080"
	defaultAMQPExc = "sales-routing"
)

func main() {
	logger := logging.New(os.Stdout, producerName, env.Get(env.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("routing server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	if err := env.Require(env.OperatorSecret); err != nil {
		return err
	}

	policyCfg, err := config.Load(env.Get(env.PolicyFile))
	if err != nil {
		return err
	}
	escCfg, err := policyCfg.Escalation()
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	st, err := stores.FromEnv(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("directory backend ready", slog.String("backend", st.Backend))

	dir := directory.NewWithRepository(st.Sellers, nil)
	engine := routing.New(st.Sellers, routing.Options{Logger: logger, Registerer: registry})
	if err := engine.Load(ctx); err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}

	scheduler := followup.New(followup.Options{
		Logger:      logger,
		Registerer:  registry,
		HistorySize: policyCfg.TimerHistorySize,
	})
	defer scheduler.Close()

	transport, closeTransport, err := alertTransport(logger)
	if err != nil {
		return err
	}
	defer closeTransport()

	var feed alerts.FeedPublisher
	if addr := env.Get(env.AlertsRedisURL); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: env.Get(env.AlertsRedisPass)})
		defer client.Close()
		feed = websocket.NewPublisher(client, logger, registry)
	}

	dispatcher := alerts.NewDispatcher(alerts.Options{
		Transport:       transport,
		Sellers:         dir,
		Feed:            feed,
		Logger:          logger,
		Registerer:      registry,
		HistorySize:     policyCfg.AlertHistorySize,
		DeliveryTimeout: time.Duration(policyCfg.AlertDeliveryTimeout),
	})

	var flow flowstore.Store = flowstore.NewMemoryStore()
	if addr := env.Get(env.FlowRedisURL); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: env.Get(env.FlowRedisPass)})
		defer client.Close()
		flow = flowstore.NewRedisStore(client, time.Duration(policyCfg.FlowTTL))
	} else {
		logger.Warn("FLOW_REDIS_URL not set, follow-up state will not survive restarts")
	}

	var refresh internaljwt.RefreshStore = internaljwt.NewMemoryRefreshStore(nil)
	if addr := env.Get(env.AuthRedisURL); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: env.Get(env.AuthRedisPass)})
		defer client.Close()
		refresh = internaljwt.NewRedisRefreshStore(client)
	}
	issuer, err := internaljwt.NewIssuer(env.Get(env.OperatorSecret), refresh, nil)
	if err != nil {
		return err
	}
	operators := operator.NewWithRepository(st.Operators, issuer, nil)

	policy, err := escalation.New(engine, scheduler, dispatcher, flow, escCfg, escalation.Options{
		Logger:     logger,
		Registerer: registry,
	})
	if err != nil {
		return fmt.Errorf("escalation policy: %w", err)
	}

	armed, err := policy.Recover(ctx, engine.ActiveConversations())
	if err != nil {
		logger.Error("timer recovery incomplete", slog.String("error", err.Error()))
	}
	logger.Info("follow-up timers recovered", slog.Int("armed", armed))

	board := dashboard.New(dir, scheduler, dispatcher, engine, nil)

	go janitor(ctx, logger, dispatcher, scheduler, time.Duration(policyCfg.AlertRetention))

	rqm := queue.NewRequestQueueManagerWithLogger(100, 10, logger)
	defer rqm.Shutdown()

	server := api.NewAPIServer(
		env.GetOrDefault(env.ListenAddr, defaultAddr),
		rqm,
		api.Options{
			Registry:       registry,
			Logger:         logger,
			AllowedOrigins: env.List(env.AllowedOrigins),
		},
		router.UtilsRoutes(apiPrefix),
		router.ConversationRoutes(apiPrefix, policy, scheduler, issuer),
		router.WebhookRoutes(apiPrefix, policy, endpoints.WebhookConfig{
			VerifyToken: env.Get(env.WhatsAppVerify),
			AppSecret:   env.Get(env.WhatsAppSecret),
		}),
		router.DashboardRoutes(apiPrefix, board, issuer),
		router.TestingRoutes(apiPrefix, scheduler, issuer),
		router.SellerRoutes(apiPrefix, dir, issuer),
		router.OperatorRoutes(apiPrefix, operators),
	)

	return server.Run(ctx)
}

// alertTransport picks the WhatsApp Cloud API, then the broker, then none, in
// which case alerts are recorded as simulated.
func alertTransport(logger *slog.Logger) (alerts.Transport, func(), error) {
	noop := func() {}

	if token := env.Get(env.WhatsAppToken); token != "" {
		t, err := alerts.NewWhatsAppTransport(alerts.WhatsAppConfig{
			Version:       env.Get(env.WhatsAppVersion),
			PhoneNumberID: env.Get(env.WhatsAppPhoneID),
			AccessToken:   token,
		})
		if err != nil {
			return nil, noop, err
		}
		logger.Info("alert transport: whatsapp cloud api")
		return t, noop, nil
	}

	if url := env.Get(env.AMQPURL); url != "" {
		pub, err := pubsub.New(url, env.GetOrDefault(env.AMQPExchange, defaultAMQPExc), logger)
		if err != nil {
			return nil, noop, fmt.Errorf("amqp: %w", err)
		}
		logger.Info("alert transport: amqp", slog.String("routing_key", alerts.OutboundRoutingKey))
		return alerts.NewQueueTransport(pub, producerName), func() { pub.Close() }, nil
	}

	logger.Warn("no alert transport configured, alerts will be simulated")
	return nil, noop, nil
}

func janitor(ctx context.Context, logger *slog.Logger, dispatcher *alerts.Dispatcher, scheduler *followup.Scheduler, retention time.Duration) {
	ticker := time.NewTicker(janitorEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cutoff := now.Add(-retention)
			alertsPruned := dispatcher.Prune(cutoff)
			timersPruned := scheduler.PruneHistory(cutoff)
			if alertsPruned > 0 || timersPruned > 0 {
				logger.Info("history pruned",
					slog.Int("alerts", alertsPruned),
					slog.Int("timers", timersPruned))
			}
		}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"

	"chat-session/internal/api"
	"chat-session/internal/auth"
	"chat-session/internal/config"
	"chat-session/internal/connection"
	"chat-session/internal/handlers"
	"chat-session/internal/models"
	"chat-session/internal/normalize"
	"chat-session/internal/observability"
	"chat-session/internal/policy"
	"chat-session/internal/rabbitmq"
	"chat-session/internal/session"
	"chat-session/internal/ws"
)

func main() {
	if err := run(); err != nil {
		slog.Error("chat-session stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(getEnv("CONFIG_PATH", ""))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format).With("service", cfg.AppName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdown, err := observability.SetupTracing(ctx, observability.TraceConfig{
			ServiceName: cfg.AppName,
			Environment: cfg.Environment,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer shutdownWithTimeout(shutdown, logger)
		}
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	defer publisher.Close()
	logger.Info("event publisher ready", "mode", rabbitmq.PublisherMode(publisher), "noop_reason", rabbitmq.PublisherNoopReason(publisher))
	emitter := observability.NewEmitter(publisher, cfg.AppName, cfg.Environment, logger)

	tokens := auth.StaticProvider{
		BearerToken: cfg.Session.Token,
		Cached: auth.Profile{
			UserID:      cfg.Session.UserID,
			UserName:    cfg.Session.UserName,
			TenantCode:  cfg.Session.TenantCode,
			CompanyCode: cfg.Session.CompanyCode,
		},
	}

	apiClient := api.NewClient(cfg.API.BaseURL, tokens, cfg.API.Timeout)
	resolver := policy.NewResolver(policy.NewHTTPFetcher(apiClient), logger, emitter)

	dialer := &ws.Dialer{
		URL:              cfg.Hub.URL,
		HandshakeTimeout: cfg.Hub.HandshakeTimeout,
		PingInterval:     cfg.Hub.PingInterval,
		Logger:           logger,
	}
	manager := connection.NewManager(tokens, connection.NewWSTransport(dialer), connection.Config{
		MaxReconnectAttempts: cfg.Hub.MaxReconnectAttempts,
		ReconnectBaseDelay:   cfg.Hub.ReconnectBaseDelay,
		TypingSupported:      cfg.Hub.TypingSupported,
		Logger:               logger,
		Emitter:              emitter,
		Normalizer:           &normalize.Default,
		Tracer:               otel.Tracer("chat-session/connection"),
	})
	defer manager.Close()

	orchestrator := session.NewOrchestrator(manager, resolver, session.Config{
		ApplicationID: cfg.Session.ApplicationID,
		CompanyID:     cfg.Session.CompanyID,
		Language:      cfg.Session.Language,
		Contacts:      session.NewHTTPContactService(apiClient),
		Logger:        logger,
	})

	if cfg.Debug.Enabled {
		srv := &http.Server{
			Addr: cfg.Debug.Addr,
			Handler: handlers.NewRouter(orchestrator, handlers.RouterConfig{
				ServiceName: cfg.AppName,
				Token:       cfg.Debug.Token,
				Logger:      logger,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("debug server listening", "addr", cfg.Debug.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("debug server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// A failed initial connect is not retried by the manager, so retry it
	// here on the reconnect schedule until the hub answers or rejects us.
	defer orchestrator.Close()
	if err := orchestrator.StartWithRetry(ctx, startBackOff(cfg.Hub.ReconnectBaseDelay)); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("initial hub connection: %w", err)
	}

	err = orchestrator.Run(ctx, session.Handlers{
		OnMessage: func(m models.Message) {
			logger.Info("message", "conversation_id", m.ConversationID, "message_id", m.ID, "sender_id", m.SenderID, "type", m.Type)
		},
		OnDelivered: func(r models.Receipt) {
			logger.Debug("message delivered", "message_id", r.MessageID)
		},
		OnRead: func(r models.Receipt) {
			logger.Debug("message read", "message_id", r.MessageID)
		},
		OnPresence: func(p models.PresenceEvent) {
			logger.Debug("presence", "user_id", p.UserID, "online", p.IsOnline)
		},
		OnTyping: func(t models.TypingEvent) {
			logger.Debug("typing", "conversation_id", t.ConversationID, "user_id", t.UserID, "typing", t.IsTyping)
		},
		OnStateChange: func(c connection.StateChange) {
			if c.Err != nil {
				logger.Warn("connection state changed", "from", c.From, "to", c.To, "error", c.Err)
				return
			}
			logger.Info("connection state changed", "from", c.From, "to", c.To)
		},
	})
	logger.Info("shutting down")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func startBackOff(base time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if base > 0 {
		b.InitialInterval = base
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func shutdownWithTimeout(shutdown func(context.Context) error, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("tracer shutdown failed", "error", err)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

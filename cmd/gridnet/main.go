package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	amqp "github.com/rabbitmq/amqp091-go"

	"gridnet.org/internal/amqprpc"
	"gridnet.org/internal/audit"
	"gridnet.org/internal/config"
	"gridnet.org/internal/diagnostic"
	"gridnet.org/internal/dispatch"
	"gridnet.org/internal/httpapi"
	"gridnet.org/internal/member"
	"gridnet.org/internal/member/authn"
	"gridnet.org/internal/member/memstore"
	"gridnet.org/internal/member/pg"
	"gridnet.org/internal/obs"
	"gridnet.org/internal/token"
)

var version = "0.3.1"

func main() {
	obs.Init()
	logger := obs.Root()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to load the configuration.")
	}

	codec, err := token.NewCodec(cfg.NetworkKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to build the token codec.")
	}

	var (
		db    *sql.DB
		store member.Store
	)
	if cfg.PGDSN != "" {
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("Unable to open the database.")
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		store = pg.NewStore(db)
	} else {
		logger.Warn().Msg("GRIDNET_PG_DSN is not configured; using the in-memory store.")
		store = memstore.New()
	}

	authenticator, err := buildAuthenticator(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to build the authenticator.")
	}

	memberSvc := member.NewService(store, authenticator, codec, member.Config{
		SessionDuration:   cfg.SessionDuration,
		SessionAbandon:    cfg.SessionAbandon,
		TokenDuration:     cfg.TokenDuration,
		TokenAbandon:      cfg.TokenAbandon,
		AdminUserGroups:   cfg.AdminUserGroups,
		DefaultUserGroups: cfg.DefaultUserGroups,
	})
	diagSvc := diagnostic.NewService(cfg.NetworkName, cfg.ServerName, version, time.Now().UTC())

	registry := dispatch.NewRegistry()
	registry.MustRegister(member.Schema(), memberSvc.Handlers())
	registry.MustRegister(diagnostic.Schema(), diagSvc.Handlers())

	notifier := dispatch.NewNotifier(64, func(ev dispatch.Event) {
		logger.Warn().
			Str("event", ev.EventType).
			Str("service", ev.Service).
			Str("command", ev.Command).
			Msg(ev.Message)
	})
	defer notifier.Close()

	dispatcher := dispatch.NewDispatcher(registry, codec, cfg.NetworkName,
		dispatch.WithNotifier(notifier),
		dispatch.WithAuditTrail(audit.NewTrail(1024)))

	api := httpapi.New(dispatcher, httpapi.ReadyProbe{DB: db}, version)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var amqpConn *amqp.Connection
	if cfg.AMQPURL != "" {
		amqpConn, err = amqp.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Unable to connect to the broker.")
		}
		amqpServer := amqprpc.NewServer(amqpConn, dispatcher, registry, cfg.NetworkName)
		go func() {
			if err := amqpServer.Serve(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("The broker consumer stopped.")
			}
		}()
	}

	// Abandoned sessions are reaped on a fixed interval, same as calling
	// Member.ReapSessions.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := memberSvc.ReapSessions(ctx, &dispatch.ApiContext{SourceAddress: "internal"}); err != nil {
					logger.Error().Err(err).Msg("Unable to reap abandoned sessions.")
				}
			}
		}
	}()

	logger.Info().
		Str("version", version).
		Str("network", cfg.NetworkName).
		Str("addr", cfg.HTTPAddr).
		Msg("Starting the network server.")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("The HTTP listener failed.")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("Shutting down.")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	if amqpConn != nil {
		_ = amqpConn.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	logger.Info().Msg("Stopped.")
}

func buildAuthenticator(cfg config.Config) (authn.Authenticator, error) {
	switch cfg.AuthnMode {
	case "always":
		return authn.NewAlways(cfg.NetworkKey), nil
	case "static":
		body, err := os.ReadFile(cfg.AuthnUsersFile)
		if err != nil {
			return nil, err
		}
		var users []authn.StaticUser
		if err := json.Unmarshal(body, &users); err != nil {
			return nil, err
		}
		return authn.NewStatic(cfg.NetworkKey, users), nil
	case "clerk":
		return authn.NewClerk(cfg.ClerkDomain, nil), nil
	default:
		return nil, fmt.Errorf("unknown authenticator mode %q", cfg.AuthnMode)
	}
}

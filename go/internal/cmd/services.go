package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/rpsls/go/internal/auth"
	"github.com/mcdev12/rpsls/go/internal/broker"
	"github.com/mcdev12/rpsls/go/internal/config"
	"github.com/mcdev12/rpsls/go/internal/gateway"
	"github.com/mcdev12/rpsls/go/internal/middleware"
	"github.com/mcdev12/rpsls/go/internal/ratelimit"
	"github.com/mcdev12/rpsls/go/internal/room"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Tokens   *auth.TokenManager
	Auth     *auth.Handler
	Registry *room.Registry
	Gateway  *gateway.Service
	Events   *broker.AsyncPublisher
	Limiter  ratelimit.Limiter
	KeyFunc  func(*http.Request) string
	Clock    clockwork.Clock

	memLimit *ratelimit.MemoryLimiter
	closers  []io.Closer
	wg       sync.WaitGroup
}

func setupServices(ctx context.Context, cfg config.Config) (*Services, error) {
	clock := clockwork.NewRealClock()
	s := &Services{Clock: clock}

	// Match bus: NATS when configured, otherwise the log
	var publisher broker.Publisher = broker.LogPublisher{}
	if cfg.NATS.URL != "" {
		natsCfg := broker.DefaultNATSConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		natsCfg.StreamName = cfg.NATS.Stream

		np, err := broker.NewNATSPublisher(ctx, natsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to set up match bus: %w", err)
		}
		publisher = np
	}
	s.Events = broker.NewAsyncPublisher(publisher, 1024)
	s.closers = append(s.closers, s.Events)

	// Rooms
	s.Registry = room.NewRegistry(room.Options{
		StrictRoles: cfg.Room.StrictRoles,
		Observer:    broker.NewRoomObserver(s.Events),
		Clock:       clock,
	})

	// Auth
	s.Tokens = auth.NewTokenManager(auth.Config{
		SecretKey: cfg.Auth.SecretKey,
		TokenTTL:  cfg.Auth.TokenTTL,
		Issuer:    auth.DefaultConfig().Issuer,
	}, clock)
	s.Auth = auth.NewHandler(s.Tokens)

	// Gateway
	gatewayCfg := gateway.DefaultConfig()
	gatewayCfg.ConnectionConfig.CheckOrigin = middleware.OriginChecker(cfg.Server.AllowedOrigins)
	s.Gateway = gateway.NewService(gatewayCfg, s.Registry, s.Tokens)

	// Rate limiting: shared through Redis when configured
	if cfg.RateLimit.RedisURL != "" {
		client, err := ratelimit.NewRedisClient(ctx, cfg.RateLimit.RedisURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to set up rate limiter: %w", err)
		}
		s.Limiter = ratelimit.NewRedisLimiter(client, "rpsls:ratelimit:", cfg.RateLimit.Max, cfg.RateLimit.Window, clock)
		s.closers = append(s.closers, client)
	} else {
		s.memLimit = ratelimit.NewMemoryLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window, clock)
		s.Limiter = s.memLimit
	}
	s.KeyFunc = ratelimit.ClientIP(cfg.Server.TrustProxy)

	return s, nil
}

// Start runs background workers until ctx is done
func (s *Services) Start(ctx context.Context) {
	s.run(func() { s.Events.Start(ctx) })
	if s.memLimit != nil {
		s.run(func() { s.memLimit.Start(ctx) })
	}
	s.run(func() {
		if err := s.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	})
}

func (s *Services) run(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Wait blocks until every worker started by Start has returned
func (s *Services) Wait() {
	s.wg.Wait()
}

// Close releases external connections
func (s *Services) Close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close service dependency")
		}
	}
}

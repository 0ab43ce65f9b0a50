// Package web implements the demo web service: a fiber app with the oidcauth
// middleware mounted in front of a few public and protected routes.
package web

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/bnoidc/oidcfiber/internal/config"
	accesslog "github.com/bnoidc/oidcfiber/internal/logger/adapter/fiber"
	"github.com/bnoidc/oidcfiber/internal/web/handler"
	"github.com/bnoidc/oidcfiber/internal/web/handler/home"
	"github.com/bnoidc/oidcfiber/internal/web/handler/me"
	"github.com/bnoidc/oidcfiber/internal/web/handler/premium"
	"github.com/bnoidc/oidcfiber/oidcauth"
)

// ErrNilConfig is returned by New without a config.
var ErrNilConfig = errors.New("config cannot be nil")

// Service represents the web service.
type Service struct {
	App          *fiber.App
	Auth         *oidcauth.Middleware
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Options adjust New for tests.
type Options struct {
	// HTTPClient is used for all provider calls.
	HTTPClient *http.Client
	// Registerer receives the middleware metrics. Defaults to the prometheus default registerer.
	Registerer prometheus.Registerer
	// Gatherer backs the metrics route. Defaults to the prometheus default gatherer.
	Gatherer prometheus.Gatherer
}

// Start listens on the configured address until the app is shut down.
func (s *Service) Start() error {
	addr := s.cfg.Webserver.Address + ":" + strconv.Itoa(s.cfg.Webserver.Port)

	log.Info().Str("addr", addr).Str("url", s.cfg.Webserver.URL).Msg("starting web service")

	if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err //nolint:wrapcheck
	}

	return nil
}

// WaitShutdown blocks until SIGINT or SIGTERM and shuts the app down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown stops the app. Unless fast shutdown is enabled the check alive
// route reports 503 for the configured time first so load balancers can
// drain the instance.
func (s *Service) Shutdown() {
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates the web service. Provider discovery starts immediately and is
// bound to ctx.
func New(ctx context.Context, cfg *config.Config, opts ...Options) (*Service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	if o.Registerer == nil {
		o.Registerer = prometheus.DefaultRegisterer
	}

	if o.Gatherer == nil {
		o.Gatherer = prometheus.DefaultGatherer
	}

	clientCfg, err := cfg.ToClientConfig()
	if err != nil {
		return nil, err
	}

	clientCfg.Logger = &log.Logger
	clientCfg.HTTPClient = o.HTTPClient
	clientCfg.Registerer = o.Registerer

	auth, err := oidcauth.New(ctx, clientCfg)
	if err != nil {
		return nil, err
	}

	app := fiber.New(
		fiber.Config{
			AppName:       cfg.Title,
			CaseSensitive: true,
			Immutable:     true,
			ErrorHandler:  ErrorHandler,
		},
	)

	service := &Service{
		App:          app,
		Auth:         auth,
		cfg:          cfg,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	app.Use(accesslog.New(accesslog.Config{
		Config:        cfg.Log,
		CheckAliveURI: cfg.Webserver.CheckAliveURI,
	}))

	// infrastructure routes are registered before the middleware so they
	// answer while the provider is unreachable.
	app.Get(cfg.Webserver.CheckAliveURI, service.checkAlive)
	app.Get(cfg.Webserver.MetricsURI, adaptor.HTTPHandler(promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{})))

	auth.Register(app)

	for _, h := range []handler.Service{&home.Service{}, &me.Service{}, &premium.Service{}} {
		if err := h.Init(app, cfg); err != nil {
			return nil, err
		}
	}

	return service, nil
}

func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
	}

	return c.SendString("OK")
}

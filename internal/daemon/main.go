// Package daemon wires the logger and the web service together.
package daemon

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bnoidc/oidcfiber/internal/config"
	"github.com/bnoidc/oidcfiber/internal/logger"
	"github.com/bnoidc/oidcfiber/internal/web"
)

// ErrNilConfig is returned by New without a config.
var ErrNilConfig = errors.New("config is nil")

// Daemon represents the main application daemon.
type Daemon struct {
	webService *web.Service
}

// New initializes logging and creates the web service. Provider discovery
// starts in the background and is cancelled with ctx.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if err := logger.Init(cfg.Log); err != nil {
		return nil, errors.Wrap(err, "failed to initialize logger")
	}

	if cfg.DevMode {
		if dump, err := config.DumpConfig(cfg); err == nil {
			log.Debug().Msgf("running with config:\n%s", dump)
		}
	}

	webService, err := web.New(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create web service")
	}

	return &Daemon{webService: webService}, nil
}

// Start runs the web service until it fails or a shutdown signal arrives.
func (d *Daemon) Start() error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- d.webService.Start()
	}()

	go d.webService.WaitShutdown()

	return <-errCh
}

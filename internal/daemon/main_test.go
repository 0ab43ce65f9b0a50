package daemon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnoidc/oidcfiber/internal/config"
	"github.com/bnoidc/oidcfiber/internal/logger"
)

func TestNewNilConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilConfig)
}

func TestNewInvalidLogger(t *testing.T) {
	cfg := &config.Config{Log: logger.Log{LogLevel: "loud"}}

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{
		DevMode: true,
		Log:     logger.Log{LogLevel: "debug", AppName: "oidcfiber", ServiceName: "oidcfiber"},
		Webserver: config.Webserver{
			Port:          3000,
			URL:           "http://localhost:3000",
			CheckAliveURI: "/checkalive",
			MetricsURI:    "/metrics",
		},
		OIDC: config.OIDC{ClientID: "client", IssuerBaseURL: "http://127.0.0.1:1"},
	}

	d, err := New(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, d.webService)
}

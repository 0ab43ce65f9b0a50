package oidcauth

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
	resultExpired = "expired"
)

// metrics counts protocol events per middleware instance.
type metrics struct {
	logins        prometheus.Counter
	logouts       prometheus.Counter
	callbacks     *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	verifications *prometheus.CounterVec
	discovery     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: "oidcauth", Name: name, Help: help}
	}

	result := []string{"result"}

	return &metrics{
		logins: register(reg, prometheus.NewCounter(
			opts("logins_total", "Number of login redirects to the provider."))),
		logouts: register(reg, prometheus.NewCounter(
			opts("logouts_total", "Number of logouts."))),
		callbacks: register(reg, prometheus.NewCounterVec(
			opts("callbacks_total", "Number of login callbacks, by result."), result)),
		refreshes: register(reg, prometheus.NewCounterVec(
			opts("refreshes_total", "Number of refresh token grants, by result."), result)),
		verifications: register(reg, prometheus.NewCounterVec(
			opts("id_token_verifications_total", "Number of ID token verifications, by result."), result)),
		discovery: register(reg, prometheus.NewCounterVec(
			opts("discovery_requests_total", "Number of provider initializations, by result."), result)),
	}
}

// register adds c to reg, reusing an identical collector that is already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}

	return c
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return resultSuccess
	case errors.Is(err, ErrTokenExpired):
		return resultExpired
	default:
		return resultFailure
	}
}

package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrEmptyClientID error if config oidc.clientid is empty.
	ErrEmptyClientID = errors.New("toml config oidc.clientid can not be empty")

	// ErrEmptyIssuerBaseURL error if config oidc.issuerbaseurl is empty.
	ErrEmptyIssuerBaseURL = errors.New("toml config oidc.issuerbaseurl can not be empty")
)

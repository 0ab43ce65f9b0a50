package oidcauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

var errNoIDToken = errors.New("no id_token in token response")

// TokenSet is the token material persisted in the tokens cookie.
type TokenSet struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	IDToken      string `json:"idToken"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
}

// String redacts the token values.
func (t TokenSet) String() string {
	return fmt.Sprintf("TokenSet{AccessToken:%s RefreshToken:%s IDToken:%s ExpiresIn:%d}",
		redact(t.AccessToken), redact(t.RefreshToken), redact(t.IDToken), t.ExpiresIn)
}

func redact(s string) string {
	if s == "" {
		return `""`
	}

	return redacted
}

// AuthorizationCodeRequest holds the parameters of an authorization code exchange.
type AuthorizationCodeRequest struct {
	TokenEndpoint string
	ClientID      string
	ClientSecret  ClientSecret
	Code          string
	RedirectURI   string
	CodeVerifier  string
}

// RefreshTokenRequest holds the parameters of a refresh token grant.
type RefreshTokenRequest struct {
	TokenEndpoint string
	ClientID      string
	ClientSecret  ClientSecret
	RefreshToken  string
}

// ExchangeAuthorizationCode redeems an authorization code at the token endpoint.
func ExchangeAuthorizationCode(ctx context.Context, client *http.Client, req AuthorizationCodeRequest) (*TokenSet, error) {
	conf := oauth2Config(req.TokenEndpoint, req.ClientID, req.ClientSecret)
	conf.RedirectURL = req.RedirectURI

	var opts []oauth2.AuthCodeOption
	if req.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(req.CodeVerifier))
	}

	tok, err := conf.Exchange(withHTTPClient(ctx, client), req.Code, opts...)
	if err != nil {
		return nil, newTokenRequestError(err)
	}

	return newTokenSet(tok)
}

// ExchangeRefreshToken obtains a fresh token set with a refresh token. When
// the provider does not rotate the refresh token the old one is kept.
func ExchangeRefreshToken(ctx context.Context, client *http.Client, req RefreshTokenRequest) (*TokenSet, error) {
	if req.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	conf := oauth2Config(req.TokenEndpoint, req.ClientID, req.ClientSecret)

	tok, err := conf.TokenSource(withHTTPClient(ctx, client), &oauth2.Token{RefreshToken: req.RefreshToken}).Token()
	if err != nil {
		return nil, newTokenRequestError(err)
	}

	return newTokenSet(tok)
}

func oauth2Config(tokenEndpoint, clientID string, secret ClientSecret) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: string(secret),
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func withHTTPClient(ctx context.Context, client *http.Client) context.Context {
	if client == nil {
		return ctx
	}

	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

func newTokenRequestError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		tre := &TokenRequestError{Body: string(re.Body), Err: err}
		if re.Response != nil {
			tre.StatusCode = re.Response.StatusCode
		}

		return tre
	}

	return &TokenRequestError{Err: err}
}

func newTokenSet(tok *oauth2.Token) (*TokenSet, error) {
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return nil, &TokenRequestError{Err: errNoIDToken}
	}

	return &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IDToken:      idToken,
		ExpiresIn:    expiresIn(tok),
	}, nil
}

// expiresIn prefers the raw expires_in field and falls back to the computed expiry.
func expiresIn(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}

	if tok.Expiry.IsZero() {
		return 0
	}

	return int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
}

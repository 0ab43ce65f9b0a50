package oidcauth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/hkdf"
)

const (
	authParamsMaxAge = 15 * time.Minute
	tokensMaxAge     = 30 * 24 * time.Hour
	logoutMaxAge     = 15 * time.Minute

	// jsonCookiePrefix marks a JSON encoded cookie value.
	jsonCookiePrefix = "j:"

	cookieKeyInfo = "oidcauth cookie sealing v1"
)

var errNotJSONCookie = errors.New("cookie value is not JSON encoded")

// AuthParams is the login state kept between login and login callback.
type AuthParams struct {
	State        string `json:"state"`
	Nonce        string `json:"nonce"`
	CodeVerifier string `json:"codeVerifier"`
}

// LogoutState is the logout state kept between logout and logout callback.
type LogoutState struct {
	State string `json:"state"`
}

// cookieStore reads and writes the middleware cookies with attributes derived from the config.
type cookieStore struct {
	names  CookieNames
	domain string
	secure bool
	key    string
	log    zerolog.Logger
}

func newCookieStore(cfg *ClientConfig, log zerolog.Logger) (*cookieStore, error) {
	origin := cfg.BaseURL
	if cfg.CookieDomainURL != nil {
		origin = cfg.CookieDomainURL
	}

	s := &cookieStore{
		names:  cfg.Cookies,
		domain: origin.Hostname(),
		secure: strings.EqualFold(origin.Scheme, "https"),
		log:    log,
	}

	if cfg.CookieSecret != "" {
		key, err := deriveCookieKey(cfg.CookieSecret)
		if err != nil {
			return nil, err
		}

		s.key = key
	}

	return s, nil
}

// deriveCookieKey stretches a secret into a base64 encoded AES-256 key.
func deriveCookieKey(secret string) (string, error) {
	key := make([]byte, 32)

	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(cookieKeyInfo)), key); err != nil {
		return "", fmt.Errorf("failed to derive cookie key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(key), nil
}

// cookie returns the attributes shared by set and unset.
func (s *cookieStore) cookie(name, value string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.domain,
		Secure:   s.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

func (s *cookieStore) encode(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	value := jsonCookiePrefix + string(raw)

	if s.key != "" {
		if value, err = encryptcookie.EncryptCookie(value, s.key); err != nil {
			return "", fmt.Errorf("failed to seal cookie: %w", err)
		}
	}

	return url.QueryEscape(value), nil
}

func (s *cookieStore) decode(value string, v interface{}) error {
	value, err := url.QueryUnescape(value)
	if err != nil {
		return err
	}

	if s.key != "" {
		if value, err = encryptcookie.DecryptCookie(value, s.key); err != nil {
			return err
		}
	}

	if !strings.HasPrefix(value, jsonCookiePrefix) {
		return errNotJSONCookie
	}

	return json.Unmarshal([]byte(strings.TrimPrefix(value, jsonCookiePrefix)), v)
}

func (s *cookieStore) set(c *fiber.Ctx, name string, v interface{}, maxAge time.Duration) error {
	value, err := s.encode(v)
	if err != nil {
		return err
	}

	ck := s.cookie(name, value)
	ck.Expires = time.Now().Add(maxAge)
	c.Cookie(ck)

	return nil
}

// get decodes the named cookie into v. Missing or undecodable cookies report false.
func (s *cookieStore) get(c *fiber.Ctx, name string, v interface{}) bool {
	value := c.Cookies(name)
	if value == "" {
		return false
	}

	if err := s.decode(value, v); err != nil {
		s.log.Debug().Err(err).Str("cookie", name).Msg("ignoring undecodable cookie")

		return false
	}

	return true
}

func (s *cookieStore) unset(c *fiber.Ctx, name string) {
	ck := s.cookie(name, "")
	ck.Expires = fasthttp.CookieExpireDelete
	c.Cookie(ck)
}

func (s *cookieStore) setAuthParams(c *fiber.Ctx, p AuthParams) error {
	return s.set(c, s.names.AuthParams, p, authParamsMaxAge)
}

func (s *cookieStore) authParams(c *fiber.Ctx) (AuthParams, bool) {
	var p AuthParams
	ok := s.get(c, s.names.AuthParams, &p)

	return p, ok
}

func (s *cookieStore) unsetAuthParams(c *fiber.Ctx) { s.unset(c, s.names.AuthParams) }

func (s *cookieStore) setTokens(c *fiber.Ctx, t *TokenSet) error {
	return s.set(c, s.names.Tokens, t, tokensMaxAge)
}

func (s *cookieStore) tokens(c *fiber.Ctx) (*TokenSet, bool) {
	var t TokenSet
	if !s.get(c, s.names.Tokens, &t) {
		return nil, false
	}

	return &t, true
}

func (s *cookieStore) unsetTokens(c *fiber.Ctx) { s.unset(c, s.names.Tokens) }

func (s *cookieStore) setLogoutState(c *fiber.Ctx, l LogoutState) error {
	return s.set(c, s.names.Logout, l, logoutMaxAge)
}

func (s *cookieStore) logoutState(c *fiber.Ctx) (LogoutState, bool) {
	var l LogoutState
	ok := s.get(c, s.names.Logout, &l)

	return l, ok
}

func (s *cookieStore) unsetLogoutState(c *fiber.Ctx) { s.unset(c, s.names.Logout) }

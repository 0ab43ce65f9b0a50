package oidcauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// minRefetchInterval limits on-demand key set refetches triggered by unknown key ids.
const minRefetchInterval = 30 * time.Second

var errRefetchTooSoon = errors.New("signing keys were fetched recently")

// KeySet holds the provider's signing keys. It is fetched once during
// initialization and refetched on demand when a token names an unknown key.
type KeySet struct {
	uri     string
	client  *http.Client
	timeout time.Duration
	log     zerolog.Logger

	keys  atomic.Pointer[[]SigningKey]
	group singleflight.Group

	mu          sync.Mutex
	refetchedAt time.Time
}

func newKeySet(uri string, client *http.Client, timeout time.Duration, log zerolog.Logger) *KeySet {
	return &KeySet{
		uri:     uri,
		client:  client,
		timeout: timeout,
		log:     log,
	}
}

// Keys returns the current signing keys.
func (k *KeySet) Keys() []SigningKey {
	keys := k.keys.Load()
	if keys == nil {
		return nil
	}

	return *keys
}

// load fetches the key set unconditionally and replaces the current keys.
func (k *KeySet) load(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	keys, err := FetchSigningKeys(ctx, k.client, k.uri)
	if err != nil {
		return err
	}

	k.keys.Store(&keys)

	k.log.Debug().Str("jwks_uri", k.uri).Int("keys", len(keys)).Msg("signing keys loaded")

	return nil
}

// refresh refetches the key set unless an earlier refetch happened within
// minRefetchInterval. Concurrent callers share a single request.
func (k *KeySet) refresh(ctx context.Context) error {
	_, err, _ := k.group.Do(k.uri, func() (interface{}, error) {
		k.mu.Lock()
		if !k.refetchedAt.IsZero() && time.Since(k.refetchedAt) < minRefetchInterval {
			k.mu.Unlock()

			return nil, errRefetchTooSoon
		}
		k.refetchedAt = time.Now()
		k.mu.Unlock()

		return nil, k.load(context.WithoutCancel(ctx))
	})

	return err
}

// FetchSigningKeys downloads and parses a JSON Web Key Set.
func FetchSigningKeys(ctx context.Context, client *http.Client, uri string) ([]SigningKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, &DiscoveryError{URL: uri, Err: err}
	}

	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &DiscoveryError{URL: uri, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DiscoveryError{URL: uri, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &DiscoveryError{URL: uri, Err: err}
	}

	keys, err := ParseSigningKeys(body)
	if err != nil {
		return nil, &DiscoveryError{URL: uri, Err: err}
	}

	return keys, nil
}

// ParseSigningKeys extracts the public signature keys from a JWKS document.
// Keys that cannot be parsed, symmetric keys and encryption keys are skipped.
func ParseSigningKeys(data []byte) ([]SigningKey, error) {
	var doc struct {
		Keys []json.RawMessage `json:"keys"`
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse key set: %w", err)
	}

	keys := make([]SigningKey, 0, len(doc.Keys))

	for _, raw := range doc.Keys {
		var jwk jose.JSONWebKey
		if err := jwk.UnmarshalJSON(raw); err != nil {
			continue
		}

		if jwk.Use != "" && jwk.Use != "sig" {
			continue
		}

		pub := jwk.Public()
		if pub.Key == nil {
			continue
		}

		keys = append(keys, SigningKey{
			KeyID:     jwk.KeyID,
			Algorithm: jwk.Algorithm,
			Key:       pub.Key,
		})
	}

	return keys, nil
}

package auth

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// Store keys shared by the resolver and the session service.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyProfile      = "user"
)

// Credential is an opaque bearer token.
type Credential string

func (c Credential) String() string { return string(c) }

// Store is the read side of the local key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// Resolver looks a credential up in one storage shape.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context) (Credential, bool)
}

// FlatKey reads the token stored verbatim under Key.
type FlatKey struct {
	Store Store
	Key   string
	Log   *zap.Logger
}

func (r FlatKey) Name() string { return "flat:" + r.Key }

func (r FlatKey) Resolve(ctx context.Context) (Credential, bool) {
	v, ok, err := r.Store.Get(ctx, r.Key)
	if err != nil {
		logMiss(r.Log, r.Name(), "store read failed", err)
		return "", false
	}
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return Credential(v), true
}

// LegacyJSONField reads a JSON object stored under Key and extracts the
// string in Field. Malformed blobs count as a miss.
type LegacyJSONField struct {
	Store Store
	Key   string
	Field string
	Log   *zap.Logger
}

func (r LegacyJSONField) Name() string { return "legacy:" + r.Key + "." + r.Field }

func (r LegacyJSONField) Resolve(ctx context.Context) (Credential, bool) {
	raw, ok, err := r.Store.Get(ctx, r.Key)
	if err != nil {
		logMiss(r.Log, r.Name(), "store read failed", err)
		return "", false
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return "", false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		logMiss(r.Log, r.Name(), "legacy blob is not a JSON object", err)
		return "", false
	}
	field, ok := obj[r.Field]
	if !ok {
		return "", false
	}
	var token string
	if err := json.Unmarshal(field, &token); err != nil {
		logMiss(r.Log, r.Name(), "legacy field is not a string", err)
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return Credential(token), true
}

// Chain tries its resolvers in order; the first hit wins.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context) (Credential, bool) {
	for _, r := range c {
		if cred, ok := r.Resolve(ctx); ok {
			return cred, true
		}
	}
	return "", false
}

// DefaultChain covers both storage shapes the console has written over time:
// the flat "access_token" key and the older "user" JSON blob.
func DefaultChain(store Store, log *zap.Logger) Chain {
	return Chain{
		FlatKey{Store: store, Key: KeyAccessToken, Log: log},
		LegacyJSONField{Store: store, Key: KeyProfile, Field: KeyAccessToken, Log: log},
	}
}

func logMiss(log *zap.Logger, resolver, msg string, err error) {
	if log == nil {
		return
	}
	log.Debug(msg, zap.String("resolver", resolver), zap.Error(err))
}

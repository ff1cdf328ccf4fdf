// Package remoteconfig is the client for the remote key/value configuration
// service that supplies template overrides without a redeploy.
//
// A Source fetches the complete set of values in one call. The Client keeps
// the last fetched set in a read-through cache, collapses concurrent refreshes
// and bounds how often a refresh actually reaches the source.
package remoteconfig

import (
	"context"
	"errors"
)

// ErrNotLoaded is returned by Client.Get before any fetch has succeeded.
var ErrNotLoaded = errors.New("remote config not loaded")

// ErrReadOnly is returned when publishing to a source that cannot be written.
var ErrReadOnly = errors.New("remote config source is read-only")

// Source fetches every remote configuration value.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (map[string]string, error)
}

// Publisher is implemented by sources that accept writes.
type Publisher interface {
	Publish(ctx context.Context, values map[string]string) error
}

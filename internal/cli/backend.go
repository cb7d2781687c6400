package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/roach88/odatabridge/internal/builder"
	"github.com/roach88/odatabridge/internal/native"
	"github.com/roach88/odatabridge/internal/provider"
	"github.com/roach88/odatabridge/internal/schema"
	"github.com/roach88/odatabridge/internal/store"
)

// backend is an open store with the model and provider built over it.
type backend struct {
	store    *store.Store
	model    *schema.Model
	provider *provider.Provider
}

// loadModel loads the model at path, or the built-in model when path is empty.
func loadModel(path string) (*schema.Model, error) {
	if path == "" {
		return schema.Default()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("model not found: %s", path)
	}
	return schema.LoadPath(path)
}

// openBackend opens the store named by --db and wires a provider over it.
// When requireDB is false and no --db is given, an empty in-memory store
// is used.
func openBackend(opts *RootOptions, requireDB bool) (*backend, error) {
	path := opts.Database
	if path == "" {
		if requireDB {
			return nil, NewExitError(ExitCommandError, "--db is required (or set ODATABRIDGE_DB)")
		}
		path = ":memory:"
	}

	m, err := loadModel(opts.Model)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load model", err)
	}

	slog.Debug("opening store", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	p, err := newProvider(st, m)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create provider", err)
	}
	return &backend{store: st, model: m, provider: p}, nil
}

// newProvider builds the provider for one command run. A command opens one
// backend, so the cache created here is the process-wide cache.
func newProvider(st *store.Store, m *schema.Model) (*provider.Provider, error) {
	session, err := native.NewSession(st, m)
	if err != nil {
		return nil, err
	}
	reg := builder.NewRegistry()
	if err := native.Register(reg, m); err != nil {
		return nil, err
	}
	return provider.New(session, builder.NewCache(reg))
}

func (b *backend) Close() {
	if err := b.store.Close(); err != nil {
		slog.Error("error closing store", "error", err)
	}
}

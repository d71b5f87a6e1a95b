package app

import (
	"fmt"
	"sort"
	"sync"

	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/config"
	"go.uber.org/zap"
)

// ClientFactory builds a venue adapter from configuration. Adapter
// packages register themselves in an init func, database/sql driver
// style, so linking an adapter into the binary is all it takes to make
// the venue available.
type ClientFactory func(cfg *config.Config, logger *zap.Logger) (venue.Client, error)

//nolint:gochecknoglobals // adapter registry
var (
	registryMu sync.Mutex
	registry   = make(map[string]ClientFactory)
)

// RegisterVenue registers a venue adapter factory under its name.
// Panics on duplicate registration, which is a programming error.
func RegisterVenue(name string, factory ClientFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("venue %q registered twice", name))
	}
	registry[name] = factory
}

// RegisteredVenues returns the names of all registered adapters, sorted.
func RegisteredVenues() []string {
	registryMu.Lock()
	defer registryMu.Unlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clients instantiates the adapters selected by cfg.Venues, or all
// registered adapters when the selection is empty. One-shot commands
// use it directly; the app uses it when Options carries no clients.
func Clients(cfg *config.Config, logger *zap.Logger) ([]venue.Client, error) {
	selected := cfg.Venues
	if len(selected) == 0 {
		selected = RegisteredVenues()
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no venue adapters registered; link at least one adapter package")
	}

	registryMu.Lock()
	factories := make(map[string]ClientFactory, len(registry))
	for name, factory := range registry {
		factories[name] = factory
	}
	registryMu.Unlock()

	clients := make([]venue.Client, 0, len(selected))
	for _, name := range selected {
		factory, ok := factories[name]
		if !ok {
			return nil, fmt.Errorf("unknown venue %q (registered: %v)", name, RegisteredVenues())
		}
		client, err := factory(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("build venue %s: %w", name, err)
		}
		clients = append(clients, client)
	}
	return clients, nil
}

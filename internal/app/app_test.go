package app

import (
	"context"
	"testing"

	"github.com/crossarb/crossarb/internal/testutil"
	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/config"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)
	return cfg
}

func mockClient(name string) *testutil.MockVenueClient {
	return &testutil.MockVenueClient{
		VenueName: name,
		InitFunc: func(ctx context.Context) (*types.VenueInfo, error) {
			return &types.VenueInfo{
				SupportedPairs: []types.Pair{types.NewPair("BTC", "USD")},
			}, nil
		},
	}
}

func TestNew_WiresInjectedClients(t *testing.T) {
	cfg := testConfig(t)

	application, err := New(cfg, zap.NewNop(), &Options{
		Clients: []venue.Client{mockClient("kraken"), mockClient("bitstamp")},
	})
	require.NoError(t, err)

	assert.Len(t, application.coordinator.Venues(), 2)
	assert.NotNil(t, application.engine)
	assert.NotNil(t, application.httpServer)
	assert.NotNil(t, application.storage)

	require.NoError(t, application.Shutdown())
}

func TestNew_FailsWithoutClients(t *testing.T) {
	cfg := testConfig(t)
	cfg.Venues = []string{"no-such-venue"}

	_, err := New(cfg, zap.NewNop(), nil)
	require.Error(t, err)
}

func TestRegistry_SelectsConfiguredVenues(t *testing.T) {
	RegisterVenue("registry-test-a", func(cfg *config.Config, logger *zap.Logger) (venue.Client, error) {
		return mockClient("registry-test-a"), nil
	})
	RegisterVenue("registry-test-b", func(cfg *config.Config, logger *zap.Logger) (venue.Client, error) {
		return mockClient("registry-test-b"), nil
	})

	cfg := testConfig(t)
	cfg.Venues = []string{"registry-test-b"}

	clients, err := Clients(cfg, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "registry-test-b", clients[0].Name())
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	RegisterVenue("registry-test-dup", func(cfg *config.Config, logger *zap.Logger) (venue.Client, error) {
		return mockClient("registry-test-dup"), nil
	})

	assert.Panics(t, func() {
		RegisterVenue("registry-test-dup", func(cfg *config.Config, logger *zap.Logger) (venue.Client, error) {
			return mockClient("registry-test-dup"), nil
		})
	})
}

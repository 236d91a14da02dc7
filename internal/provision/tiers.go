package provision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/starford/classdeck/internal/store"
)

// ErrRemoteDisabled marks the hybrid tier as skipped by configuration.
var ErrRemoteDisabled = errors.New("remote disabled")

// Settings are the inputs of the default tiers.
type Settings struct {
	SQLitePath    string
	RemoteEnabled bool
	Remote        store.RemoteConfig
}

// DefaultTiers returns hybrid, local and ephemeral in that order.
func DefaultTiers(s Settings, logger *slog.Logger) []Tier {
	return []Tier{
		{Name: TierHybrid, Open: func(ctx context.Context) (store.Store, error) {
			return openHybrid(ctx, s, logger)
		}},
		{Name: TierLocal, Open: func(context.Context) (store.Store, error) {
			return store.OpenSQLite(s.SQLitePath)
		}},
		{Name: TierEphemeral, Open: func(context.Context) (store.Store, error) {
			return store.OpenMemory()
		}},
	}
}

func openHybrid(ctx context.Context, s Settings, logger *slog.Logger) (store.Store, error) {
	if !s.RemoteEnabled || s.Remote.URL == "" {
		return nil, ErrRemoteDisabled
	}
	timeout := s.Remote.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, 2*timeout)
	defer cancel()

	remote, err := store.ConnectRemote(ctx, s.Remote)
	if err != nil {
		return nil, err
	}
	local, err := store.OpenSQLite(s.SQLitePath)
	if err != nil {
		_ = remote.Close()
		return nil, err
	}
	h, err := store.NewHybrid(ctx, local, remote, logger)
	if err != nil {
		_ = remote.Close()
		_ = local.Close()
		return nil, err
	}
	return h, nil
}

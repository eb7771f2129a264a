package main

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/railyard/pkg/adapters/file"
	"github.com/aretw0/railyard/pkg/adapters/memory"
	"github.com/aretw0/railyard/pkg/adapters/redis"
	"github.com/aretw0/railyard/pkg/adapters/sqlite"
	"github.com/aretw0/railyard/pkg/ports"
	"github.com/aretw0/railyard/pkg/session"
	"github.com/spf13/cobra"
)

// layoutStore is a store that may hold a connection to release.
type layoutStore struct {
	ports.LayoutStore
	closer io.Closer
	locker ports.DistributedLocker
}

func (s *layoutStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// sessionOptions returns the manager options the backend calls for.
func (s *layoutStore) sessionOptions() []session.Option {
	if s.locker == nil {
		return nil
	}
	return []session.Option{session.WithLocker(s.locker)}
}

func openStore(ctx context.Context, cmd *cobra.Command) (*layoutStore, error) {
	kind, _ := cmd.Flags().GetString("store")
	path, _ := cmd.Flags().GetString("store-path")

	switch kind {
	case "memory":
		return &layoutStore{LayoutStore: memory.NewStore()}, nil
	case "file":
		return &layoutStore{LayoutStore: file.NewStore(path)}, nil
	case "redis":
		addr, _ := cmd.Flags().GetString("redis-addr")
		st := redis.New(addr, "", 0)
		if err := st.Client().Ping(ctx).Err(); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("redis %s unreachable: %w", addr, err)
		}
		return &layoutStore{
			LayoutStore: st,
			closer:      st,
			locker:      redis.NewLocker(st.Client(), "railyard:lock:"),
		}, nil
	case "sqlite":
		if path == "layouts" {
			path = "layouts.db"
		}
		st, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		return &layoutStore{LayoutStore: st, closer: st}, nil
	default:
		return nil, fmt.Errorf("unknown store %q (supported: memory, file, redis, sqlite)", kind)
	}
}

package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// Settings selects and configures a store.
type Settings struct {
	Backend  string
	Path     string
	RedisURL string
	DSN      string
}

// Open builds the store named by s.Backend. An empty backend means file.
func Open(ctx context.Context, s Settings) (Store, error) {
	switch s.Backend {
	case "", BackendFile:
		if s.Path == "" {
			return nil, fmt.Errorf("file cache needs a path")
		}
		return OpenFileStore(s.Path)
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		return ConnectRedis(ctx, s.RedisURL)
	case BackendPostgres, BackendMySQL:
		return OpenSQL(s.Backend, s.DSN)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", s.Backend)
	}
}

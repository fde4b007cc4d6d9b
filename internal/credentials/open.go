package credentials

import (
	"context"
	"fmt"
)

// Options selects and configures a backend
type Options struct {
	Backend string // file, redis or memory
	Path    string
	Redis   RedisOptions
}

// Open builds the backend named by opts.Backend
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "file":
		return NewFileStore(opts.Path), nil
	case "redis":
		store, err := NewRedisStore(ctx, opts.Redis)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown credential backend %q", opts.Backend)
}

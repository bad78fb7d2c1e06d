package datastore

import (
	"context"
	"fmt"
	"time"
)

// Settings selects and configures a backend.
type Settings struct {
	Backend         string
	SeedFile        string
	FirebaseURL     string
	FirebaseToken   string
	FirebaseTimeout time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisPrefix     string
}

// Open builds the configured backend. A seed file populates the memory
// backend and is imported into Redis; it is ignored for Firebase.
func Open(ctx context.Context, s Settings) (Store, error) {
	var snap *Snapshot
	if s.SeedFile != "" && s.Backend != BackendFirebase {
		var err error
		if snap, err = LoadSnapshot(s.SeedFile); err != nil {
			return nil, err
		}
	}

	switch s.Backend {
	case "", BackendMemory:
		return NewMemoryStore(WithSnapshot(snap)), nil
	case BackendFirebase:
		return NewFirebaseStore(s.FirebaseURL, WithAuthToken(s.FirebaseToken), WithTimeout(s.FirebaseTimeout))
	case BackendRedis:
		r, err := DialRedis(ctx, s.RedisAddr, s.RedisPassword, s.RedisDB, WithKeyPrefix(s.RedisPrefix))
		if err != nil {
			return nil, err
		}
		if snap != nil {
			if err := r.Import(ctx, snap); err != nil {
				_ = r.Close()
				return nil, err
			}
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.Backend)
	}
}

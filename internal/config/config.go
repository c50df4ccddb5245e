// Package config loads typed configuration from the environment.
//
// A .env file in the working directory is loaded once on first use; values
// already present in the environment win. Each configuration type is parsed
// once and cached, so later calls return the same values.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	dotenvOnce sync.Once
	cache      sync.Map // reflect.Type -> any (a T value)
	mu         sync.Mutex
)

func loadDotenv() {
	dotenvOnce.Do(func() {
		// A missing .env is the normal case outside development.
		_ = godotenv.Load()
	})
}

// Load fills cfg from the environment. Struct fields are described with
// caarlos0/env tags:
//
//	type Config struct {
//		MasterKey string `env:"CHARI_MASTER_KEY,required"`
//	}
func Load[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config: nil target")
	}
	key := reflect.TypeFor[T]()
	if v, ok := cache.Load(key); ok {
		*cfg = v.(T)
		return nil
	}

	mu.Lock()
	defer mu.Unlock()
	if v, ok := cache.Load(key); ok {
		*cfg = v.(T)
		return nil
	}

	loadDotenv()
	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", key, err)
	}
	cache.Store(key, parsed)
	*cfg = parsed
	return nil
}

// MustLoad is Load that panics on error. Use it at startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// Parse reads cfg from the environment without touching the cache.
func Parse[T any](cfg *T) error {
	loadDotenv()
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", reflect.TypeFor[T](), err)
	}
	return nil
}

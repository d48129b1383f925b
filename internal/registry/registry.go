// Package registry caches one grammar engine per language id for the
// lifetime of a Host. Engines are loaded on first reference and never
// evicted; concurrent first loads of the same language are deduplicated
// so the loader runs once.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jward/limn/plugin"
	"github.com/jward/limn/wire"
)

// ErrLoadFailed marks an engine instantiation failure. The underlying
// loader error is joined in and remains inspectable with errors.Is/As.
var ErrLoadFailed = errors.New("registry: engine load failed")

// ErrVersionMismatch marks an engine whose declared wire version the
// host cannot drive. The engine is rejected at load and never cached.
var ErrVersionMismatch = errors.New("registry: incompatible wire version")

// Registry is the process-wide engine cache. Its lifetime is the owning
// Host's lifetime.
type Registry struct {
	loader plugin.Loader

	mu      sync.RWMutex
	engines map[string]plugin.Engine

	group singleflight.Group
}

// New creates a Registry that instantiates engines through loader.
func New(loader plugin.Loader) *Registry {
	return &Registry{
		loader:  loader,
		engines: make(map[string]plugin.Engine),
	}
}

// Load returns the engine for language, instantiating it on first
// reference. Concurrent callers for the same language share one load:
// the first performs it, the rest await the same in-flight result.
//
// A failed or rejected load is not cached; a later call attempts the
// load again. Unknown languages fail with plugin.ErrUnknownLanguage.
// The load itself runs detached from ctx's cancellation, so one
// caller's cancel cannot fail the flight for its waiters.
func (r *Registry) Load(ctx context.Context, language string) (plugin.Engine, error) {
	r.mu.RLock()
	eng, ok := r.engines[language]
	r.mu.RUnlock()
	if ok {
		return eng, nil
	}

	v, err, _ := r.group.Do(language, func() (any, error) {
		// A flight that completed between the read above and this call
		// has already filled the cache.
		r.mu.RLock()
		eng, ok := r.engines[language]
		r.mu.RUnlock()
		if ok {
			return eng, nil
		}

		// The flight may be shared by waiters whose contexts are still
		// live, so it must not die with the initiating caller's.
		eng, err := r.loader.Load(context.WithoutCancel(ctx), language)
		if err != nil {
			if errors.Is(err, plugin.ErrUnknownLanguage) {
				return nil, fmt.Errorf("registry: %s: %w", language, err)
			}
			return nil, fmt.Errorf("registry: %s: %w", language, errors.Join(ErrLoadFailed, err))
		}

		if ev := eng.WireVersion(); !wire.CompatibleVersion(ev) {
			return nil, fmt.Errorf("registry: %s: %w (engine has %d, host wants %d)",
				language, ErrVersionMismatch, ev, wire.Version)
		}

		r.mu.Lock()
		r.engines[language] = eng
		r.mu.Unlock()
		return eng, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(plugin.Engine), nil
}

// Loaded returns the language ids of every cached engine, sorted.
func (r *Registry) Loaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/limn/plugin"
	"github.com/jward/limn/wire"
)

// stubEngine satisfies plugin.Engine with no behavior beyond a version.
type stubEngine struct {
	version uint32
}

func (e *stubEngine) WireVersion() uint32          { return e.version }
func (e *stubEngine) CreateSession() (uint32, error) { return 1, nil }
func (e *stubEngine) FreeSession(uint32)           {}
func (e *stubEngine) SetText(uint32, []byte) error { return nil }
func (e *stubEngine) ApplyEdit(uint32, []byte, wire.Edit) error { return nil }
func (e *stubEngine) Parse(context.Context, uint32) (wire.ParseResult, error) {
	return wire.ParseResult{}, nil
}
func (e *stubEngine) Cancel(uint32)                {}
func (e *stubEngine) InjectionLanguages() []string { return nil }

// countingLoader counts Load invocations per language.
type countingLoader struct {
	mu     sync.Mutex
	counts map[string]int
	load   func(language string) (plugin.Engine, error)
}

func newCountingLoader(load func(string) (plugin.Engine, error)) *countingLoader {
	return &countingLoader{counts: make(map[string]int), load: load}
}

func (l *countingLoader) Load(_ context.Context, language string) (plugin.Engine, error) {
	l.mu.Lock()
	l.counts[language]++
	l.mu.Unlock()
	return l.load(language)
}

func (l *countingLoader) count(language string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[language]
}

func TestLoadCachesEngine(t *testing.T) {
	t.Parallel()
	loader := newCountingLoader(func(string) (plugin.Engine, error) {
		return &stubEngine{version: wire.Version}, nil
	})
	r := New(loader)

	ctx := context.Background()
	first, err := r.Load(ctx, "go")
	require.NoError(t, err)
	second, err := r.Load(ctx, "go")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, loader.count("go"))
	assert.Equal(t, []string{"go"}, r.Loaded())
}

func TestLoadUnknownLanguage(t *testing.T) {
	t.Parallel()
	loader := newCountingLoader(func(language string) (plugin.Engine, error) {
		return nil, fmt.Errorf("no grammar %q: %w", language, plugin.ErrUnknownLanguage)
	})
	r := New(loader)

	_, err := r.Load(context.Background(), "klingon")
	require.Error(t, err)
	assert.ErrorIs(t, err, plugin.ErrUnknownLanguage)
	assert.NotErrorIs(t, err, ErrLoadFailed)
	assert.Empty(t, r.Loaded())
}

func TestLoadFailureNotCached(t *testing.T) {
	t.Parallel()
	boom := errors.New("instantiation exploded")
	var calls atomic.Int32
	loader := newCountingLoader(func(string) (plugin.Engine, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return &stubEngine{version: wire.Version}, nil
	})
	r := New(loader)

	ctx := context.Background()
	_, err := r.Load(ctx, "go")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.ErrorIs(t, err, boom)

	// The failure is not retried automatically, but a fresh call may
	// attempt the load again.
	eng, err := r.Load(ctx, "go")
	require.NoError(t, err)
	assert.NotNil(t, eng)
	assert.Equal(t, 2, loader.count("go"))
}

func TestLoadRejectsVersionMismatch(t *testing.T) {
	t.Parallel()
	loader := newCountingLoader(func(string) (plugin.Engine, error) {
		return &stubEngine{version: wire.Version + 1}, nil
	})
	r := New(loader)

	_, err := r.Load(context.Background(), "go")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersionMismatch)
	assert.Empty(t, r.Loaded(), "rejected engine must not be cached")
}

func TestLoadDetachedFromCallerCancellation(t *testing.T) {
	t.Parallel()
	loader := plugin.LoaderFunc(func(ctx context.Context, _ string) (plugin.Engine, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &stubEngine{version: wire.Version}, nil
	})
	r := New(loader)

	// A shared flight must not fail for its waiters because the caller
	// that happened to initiate it was cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng, err := r.Load(ctx, "go")
	require.NoError(t, err)
	assert.NotNil(t, eng)
	assert.Equal(t, []string{"go"}, r.Loaded())
}

func TestConcurrentFirstLoadsDeduplicated(t *testing.T) {
	t.Parallel()
	loader := newCountingLoader(func(string) (plugin.Engine, error) {
		return &stubEngine{version: wire.Version}, nil
	})
	r := New(loader)

	const goroutines = 32
	engines := make([]plugin.Engine, goroutines)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			eng, err := r.Load(context.Background(), "python")
			assert.NoError(t, err)
			engines[i] = eng
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, loader.count("python"), "exactly one load for concurrent first references")
	for i := 1; i < goroutines; i++ {
		assert.Same(t, engines[0], engines[i])
	}
}

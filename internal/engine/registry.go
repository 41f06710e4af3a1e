package engine

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
)

// Options configures an engine at construction.
type Options struct {
	// StatOutput receives Stat diagnostics. Defaults to os.Stdout.
	StatOutput io.Writer

	// Logger receives engine-internal logs.
	Logger *slog.Logger
}

// Factory builds an engine.
type Factory func(opts Options) (ABI, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes an engine available by name. It panics if the name is
// taken or the factory is nil; engines call it from init.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if f == nil {
		panic("engine: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("engine: Register called twice for " + name)
	}
	registry[name] = f
}

// Open constructs the engine registered under name.
func Open(name string, opts Options) (ABI, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown engine %q (available: %v)", name, Names())
	}
	return f(opts)
}

// Names returns the registered engine names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

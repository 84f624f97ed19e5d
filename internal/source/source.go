// Package source defines the capture boundary used by the monitor: a source
// yields frames, a recoverable timeout, or a fatal error.
package source

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/gopacket"
)

var (
	// ErrTimeout reports that no frame arrived within the read timeout.
	// It is not a failure; callers poll again.
	ErrTimeout = errors.New("capture read timeout")

	// ErrDeviceNotFound reports that the requested interface is not among
	// the available capture devices.
	ErrDeviceNotFound = errors.New("interface not found")

	// ErrOpen reports that a capture handle could not be created or activated.
	ErrOpen = errors.New("failed to open capture")

	// ErrFilter reports an invalid or unappliable filter expression.
	ErrFilter = errors.New("failed to set filter")

	// ErrUnknownEngine reports an engine name with no registered opener.
	ErrUnknownEngine = errors.New("unknown capture engine")
)

// Source is an open capture handle.
type Source interface {
	// ReadPacketData returns the next frame. It returns ErrTimeout (possibly
	// wrapped) when the read timeout expires without traffic.
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	// Stats returns handle level counters where the engine supports them.
	Stats() (Stats, error)
	Close()
}

// Stats represents capture handle statistics.
type Stats struct {
	PacketsReceived  uint64
	PacketsDropped   uint64
	PacketsIfDropped uint64
}

// Options configures a capture handle.
type Options struct {
	Interface     string
	Filter        string
	SnapLen       int
	Promiscuous   bool
	ImmediateMode bool
	Timeout       time.Duration
	BufferSizeMB  int
	FilePath      string
}

// Opener creates a Source for one engine.
type Opener func(opts Options) (Source, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]Opener)
)

// Register makes an engine available to Open. Engines call it from init.
func Register(engine string, fn Opener) {
	mu.Lock()
	defer mu.Unlock()
	registry[engine] = fn
}

// Engines returns the registered engine names in sorted order.
func Engines() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates a Source using the named engine.
func Open(engine string, opts Options) (Source, error) {
	mu.RLock()
	fn, ok := registry[engine]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownEngine, engine, Engines())
	}
	return fn(opts)
}

package videoctx

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"dualout/internal/display"
)

// ErrContextUnavailable indicates a context could not be established.
var ErrContextUnavailable = errors.New("video context unavailable")

// Registry supplies rendering contexts per display.
type Registry interface {
	Establish(d display.Display) (display.Handle, error)
	Context(d display.Display) (display.Handle, bool)
	Destroy(d display.Display) bool
}

// Resolution is a base canvas size.
type Resolution struct {
	Width  int
	Height int
}

// Memory is an in-process Registry.
type Memory struct {
	mu          sync.Mutex
	contexts    map[display.Display]display.Handle
	resolutions map[display.Display]Resolution
	unavailable map[display.Display]bool
}

// NewMemory returns a registry with no established contexts.
func NewMemory(resolutions map[display.Display]Resolution) *Memory {
	res := make(map[display.Display]Resolution, len(resolutions))
	for d, r := range resolutions {
		res[d] = r
	}
	return &Memory{
		contexts:    make(map[display.Display]display.Handle),
		resolutions: res,
		unavailable: make(map[display.Display]bool),
	}
}

// Establish returns the existing context for d or creates one.
func (m *Memory) Establish(d display.Display) (display.Handle, error) {
	if !d.Valid() {
		return display.Handle{}, fmt.Errorf("%w: unknown display %q", ErrContextUnavailable, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable[d] {
		return display.Handle{}, fmt.Errorf("%w: %s", ErrContextUnavailable, d)
	}
	if h, ok := m.contexts[d]; ok {
		return h, nil
	}
	h := display.Handle{ID: uuid.NewString(), Display: d}
	m.contexts[d] = h
	return h, nil
}

// Context returns the established context for d, if any.
func (m *Memory) Context(d display.Display) (display.Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.contexts[d]
	return h, ok
}

// Destroy releases the context for d. It reports whether one existed.
func (m *Memory) Destroy(d display.Display) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contexts[d]; !ok {
		return false
	}
	delete(m.contexts, d)
	return true
}

// Resolution returns the configured base resolution for d.
func (m *Memory) Resolution(d display.Display) (Resolution, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resolutions[d]
	return r, ok
}

// SetAvailable controls whether Establish may create a context for d. Marking
// a display unavailable also destroys its current context.
func (m *Memory) SetAvailable(d display.Display, available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if available {
		delete(m.unavailable, d)
		return
	}
	m.unavailable[d] = true
	delete(m.contexts, d)
}

package speech

import (
	"fmt"
	"sync"

	"talenest/internal/story/tts"
)

// EngineFactory builds a fresh, uninitialized engine.
type EngineFactory func() (tts.Engine, error)

// Holder owns the process-wide speech session. Get creates it lazily;
// after Shutdown the next Get starts over with the holder's default
// configuration.
type Holder struct {
	mu       sync.Mutex
	current  *Manager
	factory  EngineFactory
	cfg      Config
	notifier Notifier
}

func NewHolder(factory EngineFactory, cfg Config, notifier Notifier) *Holder {
	return &Holder{factory: factory, cfg: cfg, notifier: notifier}
}

// Get returns the live session, creating it on first use.
func (h *Holder) Get() (*Manager, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current != nil {
		return h.current, nil
	}

	engine, err := h.factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create tts engine: %w", err)
	}

	m := NewManager(engine, h.cfg, h.notifier)
	m.mu.Lock()
	if m.state != StateUninitialized {
		m.release = h.forget
	}
	m.mu.Unlock()

	h.current = m
	return m, nil
}

// Current returns the live session without creating one.
func (h *Holder) Current() *Manager {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Shutdown tears the live session down, if there is one.
func (h *Holder) Shutdown() error {
	h.mu.Lock()
	m := h.current
	h.current = nil
	h.mu.Unlock()

	if m == nil {
		return nil
	}
	return m.Shutdown()
}

func (h *Holder) forget(m *Manager) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == m {
		h.current = nil
	}
}

// Package speech owns the narration session: one speech engine, its
// configuration, and the observable "is speaking" state driven by engine
// progress callbacks.
package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"talenest/internal/story/tts"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config is the requested speech configuration.
type Config struct {
	Rate           float64
	Pitch          float64
	Locale         language.Tag
	FallbackLocale language.Tag
}

func DefaultConfig() Config {
	return Config{
		Rate:           1.0,
		Pitch:          1.0,
		Locale:         language.MustParse("tr-TR"),
		FallbackLocale: language.AmericanEnglish,
	}
}

// Manager wraps one speech engine. All state lives behind mu.
//
// Every caller-driven transition that invalidates in-flight utterances
// (Stop, Shutdown, a QueueFlush submission) advances epoch. Each submitted
// utterance remembers the epoch it was submitted in, and progress callbacks
// for an utterance from an older epoch are dropped, so a late "start" can
// never undo a Stop.
type Manager struct {
	mu         sync.Mutex
	engine     tts.Engine
	state      State
	cfg        Config
	locale     language.Tag
	epoch      uint64
	utterances map[string]uint64
	drained    []chan struct{}
	initErr    error
	release    func(*Manager)

	speaking  *Flag
	notifier  Notifier
	ready     chan struct{}
	readyOnce sync.Once
}

// NewManager takes ownership of engine and starts its initialization.
// Configuration set before initialization completes is applied once it does.
func NewManager(engine tts.Engine, cfg Config, notifier Notifier) *Manager {
	if notifier == nil {
		notifier = NotifierFunc(func(Notice) {})
	}

	m := &Manager{
		engine:     engine,
		state:      StateInitializing,
		cfg:        cfg,
		utterances: make(map[string]uint64),
		speaking:   NewFlag(false),
		notifier:   notifier,
		ready:      make(chan struct{}),
	}

	engine.SetListener(progress{m})
	engine.Init(m.onInit)
	return m
}

func (m *Manager) onInit(err error) {
	m.mu.Lock()
	if m.state != StateInitializing {
		// Shut down while initializing.
		m.mu.Unlock()
		return
	}

	var notice *Notice
	if err != nil {
		m.state = StateFailed
		m.initErr = err
		notice = &Notice{Kind: NoticeInitFailed, Err: err}
		logrus.WithError(err).Error("Speech engine failed to initialize")
	} else {
		m.state = StateReady
		if err := m.engine.SetRate(m.cfg.Rate); err != nil {
			logrus.WithError(err).WithField("rate", m.cfg.Rate).Warn("Speech rate rejected")
		}
		if err := m.engine.SetPitch(m.cfg.Pitch); err != nil {
			logrus.WithError(err).WithField("pitch", m.cfg.Pitch).Warn("Speech pitch rejected")
		}
		notice = m.applyLocaleLocked(m.cfg.Locale)
		logrus.WithField("locale", m.locale).Info("Speech engine ready")
	}
	m.mu.Unlock()

	m.readyOnce.Do(func() { close(m.ready) })
	if notice != nil {
		m.notifier.Notify(*notice)
	}
}

// applyLocaleLocked returns the notice to report, if any.
func (m *Manager) applyLocaleLocked(tag language.Tag) *Notice {
	if m.trySetLocaleLocked(tag) {
		m.locale = tag
		return nil
	}

	fallback := m.cfg.FallbackLocale
	if tag != fallback && m.trySetLocaleLocked(fallback) {
		m.locale = fallback
		logrus.WithFields(logrus.Fields{
			"requested": tag,
			"applied":   fallback,
		}).Warn("Locale not supported, using fallback")
		return &Notice{Kind: NoticeLocaleFallback, Requested: tag, Applied: fallback}
	}

	logrus.WithField("requested", tag).Warn("Locale not supported")
	return &Notice{Kind: NoticeLocaleUnsupported, Requested: tag, Applied: m.locale}
}

func (m *Manager) trySetLocaleLocked(tag language.Tag) bool {
	status, err := m.engine.SetLocale(tag)
	if err != nil {
		logrus.WithError(err).WithField("locale", tag).Warn("Failed to set locale")
		return false
	}
	return status.Supported()
}

// SetRate sets the speech rate (1.0 is normal).
func (m *Manager) SetRate(rate float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg.Rate = rate
	if m.state != StateReady {
		return nil
	}
	return m.engine.SetRate(rate)
}

// SetPitch sets the voice pitch (1.0 is normal).
func (m *Manager) SetPitch(pitch float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg.Pitch = pitch
	if m.state != StateReady {
		return nil
	}
	return m.engine.SetPitch(pitch)
}

// SetLocale requests a narration locale. When the engine cannot speak it
// the fallback locale is used and a notice is reported.
func (m *Manager) SetLocale(tag language.Tag) {
	m.mu.Lock()
	m.cfg.Locale = tag
	var notice *Notice
	if m.state == StateReady {
		notice = m.applyLocaleLocked(tag)
	}
	m.mu.Unlock()

	if notice != nil {
		m.notifier.Notify(*notice)
	}
}

// Configure sets rate, pitch and locale together.
func (m *Manager) Configure(rate, pitch float64, locale language.Tag) error {
	err := errors.Join(m.SetRate(rate), m.SetPitch(pitch))
	m.SetLocale(locale)
	return err
}

// Speak submits one utterance. It does nothing when the session is not
// ready or text is empty.
func (m *Manager) Speak(text string, mode tts.QueueMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReady || text == "" {
		return nil
	}
	return m.submitLocked(text, mode)
}

// SpeakLong reads text paragraph by paragraph: the first paragraph replaces
// whatever is playing and the rest are queued behind it in order.
func (m *Manager) SpeakLong(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReady {
		return nil
	}

	for i, p := range Paragraphs(text) {
		mode := tts.QueueAdd
		if i == 0 {
			mode = tts.QueueFlush
		}
		if err := m.submitLocked(p, mode); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) submitLocked(text string, mode tts.QueueMode) error {
	if mode == tts.QueueFlush {
		m.invalidateLocked(false)
	}

	id := uuid.NewString()
	m.utterances[id] = m.epoch
	if err := m.engine.Speak(text, mode, id); err != nil {
		delete(m.utterances, id)
		if mode == tts.QueueFlush {
			// Older callbacks are already invalid; nothing else would clear it.
			m.speaking.Set(false)
		}
		m.releaseDrainedLocked()
		return fmt.Errorf("failed to submit utterance: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"utterance": id,
		"mode":      mode,
		"epoch":     m.epoch,
	}).Debug("Submitted utterance")
	return nil
}

// invalidateLocked starts a new epoch, forgetting every in-flight utterance.
func (m *Manager) invalidateLocked(release bool) {
	m.epoch++
	clear(m.utterances)
	if release {
		m.releaseDrainedLocked()
	}
}

func (m *Manager) releaseDrainedLocked() {
	if len(m.utterances) > 0 {
		return
	}
	for _, ch := range m.drained {
		close(ch)
	}
	m.drained = nil
}

// Stop silences the engine, drops queued utterances and reports not
// speaking right away, without waiting for the engine.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.invalidateLocked(true)
	m.speaking.Set(false)

	if m.state != StateReady {
		return nil
	}
	return m.engine.Stop()
}

// Shutdown stops and releases the engine. The manager cannot be used
// afterwards; the owning Holder creates a fresh one on the next Get.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.state == StateUninitialized {
		m.mu.Unlock()
		return nil
	}

	m.invalidateLocked(true)
	m.speaking.Set(false)

	engine := m.engine
	wasReady := m.state == StateReady
	m.engine = nil
	m.state = StateUninitialized
	if m.initErr == nil {
		m.initErr = ErrShutdown
	}
	release := m.release
	m.release = nil
	m.mu.Unlock()

	m.readyOnce.Do(func() { close(m.ready) })

	// Outside the lock: engines wait for their callback goroutine to exit.
	var errs []error
	if wasReady {
		errs = append(errs, engine.Stop())
	}
	errs = append(errs, engine.Shutdown())

	if release != nil {
		release(m)
	}
	logrus.Debug("Speech session shut down")
	return errors.Join(errs...)
}

func (m *Manager) onProgress(id string, started bool, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	epoch, ok := m.utterances[id]
	if !ok || epoch != m.epoch {
		logrus.WithFields(logrus.Fields{
			"utterance": id,
			"started":   started,
		}).Debug("Dropped stale speech callback")
		return
	}

	if started {
		m.speaking.Set(true)
		return
	}

	if cause != nil {
		logrus.WithError(cause).WithField("utterance", id).Warn("Utterance failed")
	}
	delete(m.utterances, id)
	m.speaking.Set(false)
	m.releaseDrainedLocked()
}

// progress adapts the manager to tts.Listener without exporting the callbacks.
type progress struct{ m *Manager }

func (p progress) OnStart(id string)            { p.m.onProgress(id, true, nil) }
func (p progress) OnDone(id string)             { p.m.onProgress(id, false, nil) }
func (p progress) OnError(id string, err error) { p.m.onProgress(id, false, err) }

// WaitReady blocks until initialization has finished. It returns the
// initialization error, or ErrShutdown when the session was shut down.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateReady {
		return nil
	}
	if m.initErr != nil {
		return m.initErr
	}
	return ErrNotReady
}

// WaitDrained blocks until every utterance submitted so far has finished,
// failed or been stopped.
func (m *Manager) WaitDrained(ctx context.Context) error {
	m.mu.Lock()
	if len(m.utterances) == 0 {
		m.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	m.drained = append(m.drained, ch)
	m.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Speaking reports whether an utterance is currently playing.
func (m *Manager) Speaking() bool {
	return m.speaking.Get()
}

// WatchSpeaking subscribes to the speaking state.
func (m *Manager) WatchSpeaking() (<-chan bool, func()) {
	return m.speaking.Subscribe()
}

// Config returns the requested configuration.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Locale returns the locale the engine is actually using.
func (m *Manager) Locale() language.Tag {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locale
}

func (m *Manager) Voices() ([]tts.VoiceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady {
		return nil, ErrNotReady
	}
	return m.engine.GetAvailableVoices()
}

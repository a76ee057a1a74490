package tts

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/text/language"
)

// Submission records one Speak call on a MockEngine.
type Submission struct {
	Text string
	Mode QueueMode
	ID   string
}

// MockEngine is a scriptable engine. Tests drive initialization and
// progress callbacks by hand; with Simulate set it plays utterances itself
// through the shared queue, printing instead of producing audio.
type MockEngine struct {
	mu          sync.Mutex
	listener    Listener
	initDone    func(error)
	locales     []string
	rate        float64
	pitch       float64
	locale      language.Tag
	submissions []Submission
	stops       int
	shutdown    bool
	queue       *utteranceQueue

	// AutoInit completes Init synchronously with InitErr.
	AutoInit bool
	InitErr  error
}

// NewMockTTSEngine creates a mock engine that supports the given locales.
func NewMockTTSEngine(locales ...string) *MockEngine {
	return &MockEngine{
		locales: locales,
		rate:    1.0,
		pitch:   1.0,
	}
}

// NewSimulatedEngine returns a mock that "reads" each utterance for a time
// proportional to its length.
func NewSimulatedEngine(wordsPerMinute float64) *MockEngine {
	m := NewMockTTSEngine("en-US", "tr-TR")
	m.AutoInit = true
	m.queue = newUtteranceQueue(func(ctx context.Context, u utterance) error {
		m.mu.Lock()
		rate := m.rate
		m.mu.Unlock()

		words := len(strings.Fields(u.text))
		duration := time.Duration(float64(words) / (wordsPerMinute * rate) * float64(time.Minute))
		color.Yellow("🔊 %s", u.text)

		select {
		case <-time.After(duration):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	return m
}

func (m *MockEngine) Init(done func(error)) {
	m.mu.Lock()
	auto, err := m.AutoInit, m.InitErr
	if !auto {
		m.initDone = done
	}
	m.mu.Unlock()

	if auto {
		done(err)
	}
}

// CompleteInit finishes a pending Init. It reports whether one was pending.
func (m *MockEngine) CompleteInit(err error) bool {
	m.mu.Lock()
	done := m.initDone
	m.initDone = nil
	m.mu.Unlock()

	if done == nil {
		return false
	}
	done(err)
	return true
}

func (m *MockEngine) SetListener(l Listener) {
	m.mu.Lock()
	m.listener = l
	q := m.queue
	m.mu.Unlock()
	if q != nil {
		q.setListener(l)
	}
}

func (m *MockEngine) SetRate(rate float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
	return nil
}

func (m *MockEngine) SetPitch(pitch float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pitch = pitch
	return nil
}

func (m *MockEngine) SetLocale(tag language.Tag) (LocaleStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := matchLocale(tag, m.locales); !ok {
		return LocaleNotSupported, nil
	}
	m.locale = tag
	return LocaleAvailable, nil
}

func (m *MockEngine) Speak(text string, mode QueueMode, utteranceID string) error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return ErrEngineShutdown
	}
	m.submissions = append(m.submissions, Submission{Text: text, Mode: mode, ID: utteranceID})
	q := m.queue
	m.mu.Unlock()

	if q != nil {
		return q.submit(utterance{id: utteranceID, text: text}, mode)
	}
	return nil
}

func (m *MockEngine) Stop() error {
	m.mu.Lock()
	m.stops++
	q := m.queue
	m.mu.Unlock()

	if q != nil {
		q.flush()
	}
	return nil
}

func (m *MockEngine) Shutdown() error {
	m.mu.Lock()
	m.shutdown = true
	q := m.queue
	m.mu.Unlock()

	if q != nil {
		q.close()
	}
	return nil
}

func (m *MockEngine) GetAvailableVoices() ([]VoiceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	voices := make([]VoiceInfo, 0, len(m.locales))
	for _, l := range m.locales {
		voices = append(voices, VoiceInfo{Name: "mock-" + l, LanguageCode: l, Description: "simulated voice"})
	}
	return voices, nil
}

// Start fires the listener's start callback, as the engine would.
func (m *MockEngine) Start(id string) { m.currentListener().OnStart(id) }

// Done fires the listener's done callback.
func (m *MockEngine) Done(id string) { m.currentListener().OnDone(id) }

// Fail fires the listener's error callback.
func (m *MockEngine) Fail(id string, err error) { m.currentListener().OnError(id, err) }

func (m *MockEngine) currentListener() Listener {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listener
}

// Submissions returns a copy of every Speak call so far.
func (m *MockEngine) Submissions() []Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Submission(nil), m.submissions...)
}

// Settings returns the last applied rate, pitch and locale.
func (m *MockEngine) Settings() (float64, float64, language.Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate, m.pitch, m.locale
}

func (m *MockEngine) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

func (m *MockEngine) IsShutdown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown
}

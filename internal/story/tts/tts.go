// internal/story/tts/tts.go
package tts

import (
	"errors"

	"golang.org/x/text/language"
)

type Config struct {
	Type      string
	CachePath string
}

// QueueMode decides what a new utterance does to the ones already queued.
type QueueMode int

const (
	// QueueFlush drops everything pending and starts the new utterance.
	QueueFlush QueueMode = iota
	// QueueAdd appends the utterance to the engine's FIFO queue.
	QueueAdd
)

func (m QueueMode) String() string {
	switch m {
	case QueueFlush:
		return "flush"
	case QueueAdd:
		return "add"
	default:
		return "unknown"
	}
}

// LocaleStatus reports whether an engine can speak a locale.
type LocaleStatus int

const (
	LocaleAvailable LocaleStatus = iota
	LocaleMissingData
	LocaleNotSupported
)

func (s LocaleStatus) Supported() bool { return s == LocaleAvailable }

var (
	ErrEngineNotInitialized = errors.New("TTS engine is not initialized")
	ErrEngineShutdown       = errors.New("TTS engine has been shut down")
)

// Listener receives utterance progress. Callbacks run on an engine
// goroutine, never on the goroutine that called Speak.
type Listener interface {
	OnStart(utteranceID string)
	OnDone(utteranceID string)
	OnError(utteranceID string, err error)
}

// Engine is a platform speech engine.
type Engine interface {
	// Init starts asynchronous initialization. done is called exactly once.
	Init(done func(error))
	SetListener(l Listener)
	SetRate(rate float64) error
	SetPitch(pitch float64) error
	SetLocale(tag language.Tag) (LocaleStatus, error)
	Speak(text string, mode QueueMode, utteranceID string) error
	// Stop silences output and discards queued utterances.
	Stop() error
	Shutdown() error
	GetAvailableVoices() ([]VoiceInfo, error)
}

// VoiceInfo provides detailed information about available voices
type VoiceInfo struct {
	Name         string `json:"name"`
	LanguageCode string `json:"language_code"`
	Gender       string `json:"gender"`
	Natural      bool   `json:"natural"`
	Description  string `json:"description"`
}

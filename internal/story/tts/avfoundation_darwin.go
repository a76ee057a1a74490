//go:build darwin

package tts

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"golang.org/x/text/language"
)

// AVFoundationEngine implements macOS TTS through the built-in 'say' command,
// which drives the AVFoundation synthesizer.
type AVFoundationEngine struct {
	rate   float64
	voice  string
	voices []VoiceInfo
	ready  bool
	queue  *utteranceQueue
	mutex  sync.RWMutex
}

// newAVFoundationEngine creates a new macOS AVFoundation TTS engine
func newAVFoundationEngine() (Engine, error) {
	av := &AVFoundationEngine{rate: 1.0}
	av.queue = newUtteranceQueue(av.play)
	return av, nil
}

func (av *AVFoundationEngine) Init(done func(error)) {
	go func() {
		output, err := exec.Command("say", "-v", "?").Output()
		if err != nil {
			done(fmt.Errorf("say voice listing failed: %w", err))
			return
		}

		av.mutex.Lock()
		av.voices = parseSayVoices(string(output))
		av.ready = true
		av.mutex.Unlock()
		done(nil)
	}()
}

func (av *AVFoundationEngine) SetListener(l Listener) {
	av.queue.setListener(l)
}

func (av *AVFoundationEngine) play(ctx context.Context, u utterance) error {
	av.mutex.RLock()
	args := []string{}
	if av.voice != "" {
		args = append(args, "-v", av.voice)
	}
	// Set rate (words per minute, default is ~175)
	args = append(args, "-r", fmt.Sprintf("%.0f", 175*av.rate))
	av.mutex.RUnlock()

	cmd := exec.CommandContext(ctx, "say", append(args, "--", u.text)...)
	cmd.Cancel = func() error { return interruptProcess(cmd) }
	return cmd.Run()
}

func (av *AVFoundationEngine) Speak(text string, mode QueueMode, utteranceID string) error {
	return av.queue.submit(utterance{id: utteranceID, text: text}, mode)
}

func (av *AVFoundationEngine) Stop() error {
	av.queue.flush()
	return nil
}

func (av *AVFoundationEngine) Shutdown() error {
	av.queue.close()
	return nil
}

// SetLocale picks the first installed voice for the locale.
func (av *AVFoundationEngine) SetLocale(tag language.Tag) (LocaleStatus, error) {
	av.mutex.Lock()
	defer av.mutex.Unlock()

	if !av.ready {
		return LocaleMissingData, ErrEngineNotInitialized
	}

	codes := make([]string, 0, len(av.voices))
	for _, v := range av.voices {
		codes = append(codes, v.LanguageCode)
	}
	code, ok := matchLocale(tag, codes)
	if !ok {
		return LocaleNotSupported, nil
	}
	for _, v := range av.voices {
		if v.LanguageCode == code {
			av.voice = v.Name
			break
		}
	}
	return LocaleAvailable, nil
}

func (av *AVFoundationEngine) SetRate(rate float64) error {
	av.mutex.Lock()
	defer av.mutex.Unlock()

	if rate <= 0 || rate > 3.0 {
		return fmt.Errorf("rate must be between 0.1 and 3.0")
	}
	av.rate = rate
	return nil
}

// SetPitch is accepted but has no effect; 'say' has no pitch flag.
func (av *AVFoundationEngine) SetPitch(pitch float64) error {
	if pitch <= 0 {
		return fmt.Errorf("pitch must be positive")
	}
	return nil
}

func (av *AVFoundationEngine) GetAvailableVoices() ([]VoiceInfo, error) {
	av.mutex.RLock()
	defer av.mutex.RUnlock()
	if !av.ready {
		return nil, ErrEngineNotInitialized
	}
	return append([]VoiceInfo(nil), av.voices...), nil
}

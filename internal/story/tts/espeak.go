// Cross-platform eSpeak implementation
package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// ESpeakEngine implements TTS using eSpeak/eSpeak-NG, one process per utterance.
type ESpeakEngine struct {
	path   string
	rate   float64
	pitch  float64
	voice  string
	voices []VoiceInfo
	queue  *utteranceQueue
	mutex  sync.RWMutex
}

// newESpeakEngine creates a new eSpeak TTS engine
func newESpeakEngine() *ESpeakEngine {
	e := &ESpeakEngine{
		rate:  1.0,
		pitch: 1.0,
	}
	e.queue = newUtteranceQueue(e.play)
	return e
}

func findESpeakExecutable() (string, error) {
	// Try different possible eSpeak executables
	candidates := []string{"espeak-ng", "espeak"}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

// Init locates the executable and loads its voice list in the background.
func (e *ESpeakEngine) Init(done func(error)) {
	go func() {
		path, err := findESpeakExecutable()
		if err != nil {
			done(err)
			return
		}

		output, err := exec.Command(path, "--voices").Output()
		if err != nil {
			done(fmt.Errorf("eSpeak test failed: %w", err))
			return
		}

		e.mutex.Lock()
		e.path = path
		e.voices = parseESpeakVoices(string(output))
		e.mutex.Unlock()
		done(nil)
	}()
}

func (e *ESpeakEngine) SetListener(l Listener) {
	e.queue.setListener(l)
}

func (e *ESpeakEngine) play(ctx context.Context, u utterance) error {
	e.mutex.RLock()
	path := e.path
	args := e.argsLocked()
	e.mutex.RUnlock()

	if path == "" {
		return ErrEngineNotInitialized
	}

	cmd := exec.CommandContext(ctx, path, append(args, "--", u.text)...)
	cmd.Cancel = func() error { return interruptProcess(cmd) }
	return cmd.Run()
}

func (e *ESpeakEngine) argsLocked() []string {
	args := []string{}

	if e.voice != "" {
		args = append(args, "-v", e.voice)
	}

	// Words per minute, default is 175
	args = append(args, "-s", strconv.Itoa(int(175*e.rate)))

	// Pitch 0-99, default is 50
	pitch := int(50 * e.pitch)
	if pitch > 99 {
		pitch = 99
	}
	args = append(args, "-p", strconv.Itoa(pitch))

	return args
}

func (e *ESpeakEngine) Speak(text string, mode QueueMode, utteranceID string) error {
	return e.queue.submit(utterance{id: utteranceID, text: text}, mode)
}

func (e *ESpeakEngine) Stop() error {
	e.queue.flush()
	return nil
}

func (e *ESpeakEngine) Shutdown() error {
	e.queue.close()
	return nil
}

func (e *ESpeakEngine) SetLocale(tag language.Tag) (LocaleStatus, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.path == "" {
		return LocaleMissingData, ErrEngineNotInitialized
	}

	codes := make([]string, 0, len(e.voices))
	for _, v := range e.voices {
		codes = append(codes, v.LanguageCode)
	}
	code, ok := matchLocale(tag, codes)
	if !ok {
		return LocaleNotSupported, nil
	}

	e.voice = code
	return LocaleAvailable, nil
}

func (e *ESpeakEngine) SetRate(rate float64) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if rate <= 0 || rate > 3.0 {
		return fmt.Errorf("rate must be between 0.1 and 3.0")
	}

	e.rate = rate
	return nil
}

func (e *ESpeakEngine) SetPitch(pitch float64) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if pitch <= 0 || pitch > 2.0 {
		return fmt.Errorf("pitch must be between 0.1 and 2.0")
	}

	e.pitch = pitch
	return nil
}

func (e *ESpeakEngine) GetAvailableVoices() ([]VoiceInfo, error) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	if e.path == "" {
		return nil, ErrEngineNotInitialized
	}
	return append([]VoiceInfo(nil), e.voices...), nil
}

func parseESpeakVoices(output string) []VoiceInfo {
	lines := strings.Split(output, "\n")
	voices := make([]VoiceInfo, 0)

	for i, line := range lines {
		// Skip header line
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		// Parse voice line: Pty Language Age/Gender VoiceName          File          Other Languages
		fields := strings.Fields(line)
		if len(fields) >= 4 {
			gender := ""
			if parts := strings.SplitN(fields[2], "/", 2); len(parts) == 2 {
				gender = parts[1]
			}
			voices = append(voices, VoiceInfo{
				Name:         fields[3],
				LanguageCode: fields[1],
				Gender:       gender,
			})
		}
	}

	return voices
}

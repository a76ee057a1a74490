//go:build windows

package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// SAPIEngine implements Windows SAPI TTS through System.Speech in PowerShell.
type SAPIEngine struct {
	rate    float64
	culture string
	voices  []VoiceInfo
	ready   bool
	queue   *utteranceQueue
	mutex   sync.RWMutex
}

const sapiListVoices = `Add-Type -AssemblyName System.Speech;
$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer;
$synth.GetInstalledVoices() | ForEach-Object { $_.VoiceInfo.Name + "|" + $_.VoiceInfo.Culture.Name + "|" + $_.VoiceInfo.Gender }`

func newSAPIEngine() (Engine, error) {
	s := &SAPIEngine{rate: 1.0}
	s.queue = newUtteranceQueue(s.play)
	return s, nil
}

func (s *SAPIEngine) Init(done func(error)) {
	go func() {
		output, err := exec.Command("powershell", "-NoProfile", "-Command", sapiListVoices).Output()
		if err != nil {
			done(fmt.Errorf("SAPI voice enumeration failed: %w", err))
			return
		}

		var voices []VoiceInfo
		for _, line := range strings.Split(string(output), "\n") {
			parts := strings.Split(strings.TrimSpace(line), "|")
			if len(parts) != 3 {
				continue
			}
			voices = append(voices, VoiceInfo{Name: parts[0], LanguageCode: parts[1], Gender: parts[2]})
		}

		s.mutex.Lock()
		s.voices = voices
		s.ready = true
		s.mutex.Unlock()
		done(nil)
	}()
}

func (s *SAPIEngine) SetListener(l Listener) {
	s.queue.setListener(l)
}

// play reads the utterance text from stdin so it never needs quoting.
func (s *SAPIEngine) play(ctx context.Context, u utterance) error {
	s.mutex.RLock()
	// Convert to SAPI range (-10 to 10)
	rate := int((s.rate - 1.0) * 10)
	culture := s.culture
	s.mutex.RUnlock()

	if rate < -10 {
		rate = -10
	}
	if rate > 10 {
		rate = 10
	}

	script := fmt.Sprintf(`Add-Type -AssemblyName System.Speech;
$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer;
$synth.Rate = %d;`, rate)
	if culture != "" {
		script += fmt.Sprintf(`
$synth.SelectVoiceByHints([System.Speech.Synthesis.VoiceGender]::NotSet, [System.Speech.Synthesis.VoiceAge]::NotSet, 0, [System.Globalization.CultureInfo]'%s');`, culture)
	}
	script += `
$synth.Speak([Console]::In.ReadToEnd())`

	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", script)
	cmd.Stdin = strings.NewReader(u.text)
	return cmd.Run()
}

func (s *SAPIEngine) Speak(text string, mode QueueMode, utteranceID string) error {
	return s.queue.submit(utterance{id: utteranceID, text: text}, mode)
}

func (s *SAPIEngine) Stop() error {
	s.queue.flush()
	return nil
}

func (s *SAPIEngine) Shutdown() error {
	s.queue.close()
	return nil
}

func (s *SAPIEngine) SetLocale(tag language.Tag) (LocaleStatus, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.ready {
		return LocaleMissingData, ErrEngineNotInitialized
	}

	codes := make([]string, 0, len(s.voices))
	for _, v := range s.voices {
		codes = append(codes, v.LanguageCode)
	}
	code, ok := matchLocale(tag, codes)
	if !ok {
		return LocaleNotSupported, nil
	}
	s.culture = code
	return LocaleAvailable, nil
}

func (s *SAPIEngine) SetRate(rate float64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if rate <= 0 || rate > 3.0 {
		return fmt.Errorf("rate must be between 0.1 and 3.0")
	}

	s.rate = rate
	return nil
}

// SetPitch is accepted but has no effect; System.Speech only exposes pitch through SSML.
func (s *SAPIEngine) SetPitch(pitch float64) error {
	if pitch <= 0 {
		return fmt.Errorf("pitch must be positive")
	}
	return nil
}

func (s *SAPIEngine) GetAvailableVoices() ([]VoiceInfo, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.ready {
		return nil, ErrEngineNotInitialized
	}
	return append([]VoiceInfo(nil), s.voices...), nil
}

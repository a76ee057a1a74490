package tts

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cloud.google.com/go/texttospeech/apiv1"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

// Google rejects inputs over 5000 bytes; runes here may take two or more bytes.
const googleChunkRunes = 2000

const speakerSampleRate = beep.SampleRate(24000)

type GoogleClassicTTSEngine struct {
	client       *texttospeech.Client
	ctx          context.Context
	cancel       context.CancelFunc
	languageCode string
	voice        string
	rate         float64
	pitch        float64
	cacheRootDir string
	queue        *utteranceQueue
	speakerOnce  sync.Once
	speakerErr   error
	mu           sync.Mutex
}

func newGoogleClassicTTSEngine(cacheDir string) *GoogleClassicTTSEngine {
	ctx, cancel := context.WithCancel(context.Background())
	g := &GoogleClassicTTSEngine{
		ctx:          ctx,
		cancel:       cancel,
		languageCode: "en-US",
		rate:         1.0,
		pitch:        1.0,
		cacheRootDir: cacheDir,
	}
	g.queue = newUtteranceQueue(g.play)
	return g
}

func (g *GoogleClassicTTSEngine) Init(done func(error)) {
	go func() {
		client, err := texttospeech.NewClient(g.ctx)
		if err != nil {
			done(fmt.Errorf("failed to create TTS client: %w", err))
			return
		}

		if err := os.MkdirAll(g.cacheRootDir, 0755); err != nil {
			client.Close()
			done(fmt.Errorf("failed to create cache dir: %w", err))
			return
		}

		g.mu.Lock()
		g.client = client
		g.mu.Unlock()
		done(nil)
	}()
}

func (g *GoogleClassicTTSEngine) SetListener(l Listener) {
	g.queue.setListener(l)
}

// SetLocale selects the first voice Google offers for the locale.
func (g *GoogleClassicTTSEngine) SetLocale(tag language.Tag) (LocaleStatus, error) {
	g.mu.Lock()
	client := g.client
	g.mu.Unlock()
	if client == nil {
		return LocaleMissingData, ErrEngineNotInitialized
	}

	resp, err := client.ListVoices(g.ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: tag.String()})
	if err != nil {
		return LocaleMissingData, fmt.Errorf("failed to list voices: %w", err)
	}

	for _, v := range resp.Voices {
		if code, ok := matchLocale(tag, v.LanguageCodes); ok {
			g.mu.Lock()
			g.languageCode = code
			g.voice = v.Name
			g.mu.Unlock()
			return LocaleAvailable, nil
		}
	}
	return LocaleNotSupported, nil
}

func (g *GoogleClassicTTSEngine) SetRate(rate float64) error {
	if rate < 0.25 || rate > 4.0 {
		return fmt.Errorf("rate must be between 0.25 and 4.0")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rate = rate
	return nil
}

func (g *GoogleClassicTTSEngine) SetPitch(pitch float64) error {
	if pitch <= 0 {
		return fmt.Errorf("pitch must be positive")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pitch = pitch
	return nil
}

func (g *GoogleClassicTTSEngine) Speak(text string, mode QueueMode, utteranceID string) error {
	return g.queue.submit(utterance{id: utteranceID, text: text}, mode)
}

func (g *GoogleClassicTTSEngine) Stop() error {
	g.queue.flush()
	return nil
}

func (g *GoogleClassicTTSEngine) Shutdown() error {
	g.queue.close()
	g.cancel()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

func (g *GoogleClassicTTSEngine) GetAvailableVoices() ([]VoiceInfo, error) {
	g.mu.Lock()
	client := g.client
	g.mu.Unlock()
	if client == nil {
		return nil, ErrEngineNotInitialized
	}

	resp, err := client.ListVoices(g.ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		return nil, err
	}
	voices := make([]VoiceInfo, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		code := ""
		if len(v.LanguageCodes) > 0 {
			code = v.LanguageCodes[0]
		}
		voices = append(voices, VoiceInfo{
			Name:         v.Name,
			LanguageCode: code,
			Gender:       v.SsmlGender.String(),
			Natural:      v.NaturalSampleRateHertz > 0,
		})
	}
	return voices, nil
}

// play synthesizes the utterance chunk by chunk (cached on disk) and plays
// the MP3s back to back.
func (g *GoogleClassicTTSEngine) play(ctx context.Context, u utterance) error {
	g.mu.Lock()
	client := g.client
	languageCode, voice := g.languageCode, g.voice
	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		SpeakingRate:  g.rate,
		Pitch:         pitchSemitones(g.pitch),
	}
	g.mu.Unlock()

	if client == nil {
		return ErrEngineNotInitialized
	}

	// Create a unique identifier for this specific text + voice combination
	contentHash := md5Sum(fmt.Sprintf("%s|%s|%s|%.2f|%.2f",
		u.text, languageCode, voice, audioCfg.SpeakingRate, audioCfg.Pitch))[:12]
	cacheDir := filepath.Join(g.cacheRootDir, languageCode)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}

	for i, chunk := range splitIntoChunks(u.text, googleChunkRunes) {
		chunkPath := filepath.Join(cacheDir, fmt.Sprintf("%s_%d.mp3", contentHash, i))

		if _, err := os.Stat(chunkPath); os.IsNotExist(err) {
			req := &texttospeechpb.SynthesizeSpeechRequest{
				Input: &texttospeechpb.SynthesisInput{
					InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
				},
				Voice: &texttospeechpb.VoiceSelectionParams{
					LanguageCode: languageCode,
					Name:         voice,
				},
				AudioConfig: audioCfg,
			}
			resp, err := client.SynthesizeSpeech(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to synthesize chunk %d: %w", i, err)
			}
			if err := os.WriteFile(chunkPath, resp.AudioContent, 0644); err != nil {
				return fmt.Errorf("failed to write MP3 chunk %d to %s: %w", i, chunkPath, err)
			}
			logrus.WithFields(logrus.Fields{
				"utterance": u.id,
				"chunk":     i,
				"file":      chunkPath,
			}).Debug("Cached audio chunk")
		}

		if err := g.playFile(ctx, chunkPath); err != nil {
			return err
		}
	}
	return nil
}

func (g *GoogleClassicTTSEngine) playFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cached MP3 %s: %w", path, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode MP3 %s: %w", path, err)
	}
	defer streamer.Close()

	g.speakerOnce.Do(func() {
		g.speakerErr = speaker.Init(speakerSampleRate, speakerSampleRate.N(time.Second/10))
	})
	if g.speakerErr != nil {
		return g.speakerErr
	}

	var s beep.Streamer = streamer
	if format.SampleRate != speakerSampleRate {
		s = beep.Resample(4, format.SampleRate, speakerSampleRate, streamer)
	}

	finished := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(finished)
	})))

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// pitchSemitones maps a pitch factor (1.0 = normal) onto Google's -20..20 semitone range.
func pitchSemitones(pitch float64) float64 {
	st := 12 * math.Log2(pitch)
	return math.Max(-20, math.Min(20, st))
}

func md5Sum(s string) string {
	h := md5.New()
	io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func splitIntoChunks(text string, limit int) []string {
	var chunks []string
	runes := []rune(text) // safe for UTF-8
	for i := 0; i < len(runes); i += limit {
		end := i + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

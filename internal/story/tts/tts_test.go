package tts

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"golang.org/x/text/language"
)

type event struct {
	kind string
	id   string
}

type recordingListener struct {
	mu     sync.Mutex
	events []event
	notify chan struct{}
}

func newRecordingListener() *recordingListener {
	return &recordingListener{notify: make(chan struct{}, 64)}
}

func (r *recordingListener) add(kind, id string) {
	r.mu.Lock()
	r.events = append(r.events, event{kind, id})
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *recordingListener) OnStart(id string)            { r.add("start", id) }
func (r *recordingListener) OnDone(id string)             { r.add("done", id) }
func (r *recordingListener) OnError(id string, err error) { r.add("error", id) }

func (r *recordingListener) wait(t *testing.T, n int) []event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		r.mu.Lock()
		if len(r.events) >= n {
			out := append([]event(nil), r.events...)
			r.mu.Unlock()
			return out
		}
		r.mu.Unlock()
		select {
		case <-r.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %v", n, r.events)
		}
	}
}

func TestUtteranceQueuePlaysInOrder(t *testing.T) {
	var mu sync.Mutex
	var played []string
	q := newUtteranceQueue(func(ctx context.Context, u utterance) error {
		mu.Lock()
		played = append(played, u.text)
		mu.Unlock()
		if u.text == "bad" {
			return errors.New("boom")
		}
		return nil
	})
	defer q.close()

	l := newRecordingListener()
	q.setListener(l)

	q.submit(utterance{id: "1", text: "A"}, QueueFlush)
	q.submit(utterance{id: "2", text: "bad"}, QueueAdd)
	q.submit(utterance{id: "3", text: "C"}, QueueAdd)

	got := l.wait(t, 6)
	want := []event{
		{"start", "1"}, {"done", "1"},
		{"start", "2"}, {"error", "2"},
		{"start", "3"}, {"done", "3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(played, []string{"A", "bad", "C"}) {
		t.Errorf("played = %v", played)
	}
}

func TestUtteranceQueueFlushCancelsCurrent(t *testing.T) {
	started := make(chan string, 4)
	q := newUtteranceQueue(func(ctx context.Context, u utterance) error {
		started <- u.id
		if u.id == "long" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	defer q.close()

	l := newRecordingListener()
	q.setListener(l)

	q.submit(utterance{id: "long", text: "..."}, QueueFlush)
	if id := <-started; id != "long" {
		t.Fatalf("first started = %s", id)
	}
	q.submit(utterance{id: "queued", text: "x"}, QueueAdd)
	q.submit(utterance{id: "next", text: "y"}, QueueFlush)

	got := l.wait(t, 3)
	want := []event{{"start", "long"}, {"start", "next"}, {"done", "next"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestUtteranceQueueClosed(t *testing.T) {
	q := newUtteranceQueue(func(ctx context.Context, u utterance) error { return nil })
	q.close()
	q.close()
	if err := q.submit(utterance{id: "1"}, QueueAdd); !errors.Is(err, ErrEngineShutdown) {
		t.Errorf("submit() after close error = %v", err)
	}
}

func TestMatchLocale(t *testing.T) {
	tests := []struct {
		name  string
		tag   language.Tag
		codes []string
		want  string
		ok    bool
	}{
		{"exact", language.MustParse("tr-TR"), []string{"en-US", "tr-TR"}, "tr-TR", true},
		{"case insensitive", language.MustParse("en-US"), []string{"en-us"}, "en-us", true},
		{"base language", language.MustParse("tr-TR"), []string{"en-us", "tr"}, "tr", true},
		{"exact preferred over base", language.MustParse("en-GB"), []string{"en-US", "en-GB"}, "en-GB", true},
		{"unsupported", language.MustParse("tr-TR"), []string{"en-US", "de"}, "", false},
		{"garbage skipped", language.MustParse("de"), []string{"???", "de"}, "de", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchLocale(tt.tag, tt.codes)
			if got != tt.want || ok != tt.ok {
				t.Errorf("matchLocale() = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseESpeakVoices(t *testing.T) {
	output := `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
 5  tr              --/M      Turkish            trk/tr
`
	got := parseESpeakVoices(output)
	want := []VoiceInfo{
		{Name: "Afrikaans", LanguageCode: "af", Gender: "M"},
		{Name: "English_(America)", LanguageCode: "en-us", Gender: "M"},
		{Name: "Turkish", LanguageCode: "tr", Gender: "M"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseESpeakVoices() = %+v, want %+v", got, want)
	}
}

func TestParseSayVoices(t *testing.T) {
	output := "Alex                en_US    # Most people recognize me by my voice.\nYelda               tr_TR    # Merhaba, benim adım Yelda.\nBad News            en_US    # The light you see.\n"
	got := parseSayVoices(output)
	if len(got) != 3 {
		t.Fatalf("parseSayVoices() = %+v", got)
	}
	if got[1].Name != "Yelda" || got[1].LanguageCode != "tr-TR" {
		t.Errorf("voice[1] = %+v", got[1])
	}
	if got[2].Name != "Bad News" {
		t.Errorf("multi-word name = %q", got[2].Name)
	}
}

func TestSplitIntoChunks(t *testing.T) {
	got := splitIntoChunks("ağaçlar", 3)
	want := []string{"ağa", "çla", "r"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitIntoChunks() = %v, want %v", got, want)
	}
	if chunks := splitIntoChunks("", 3); len(chunks) != 0 {
		t.Errorf("splitIntoChunks(\"\") = %v", chunks)
	}
}

func TestPitchSemitones(t *testing.T) {
	tests := []struct {
		pitch float64
		want  float64
	}{
		{1.0, 0},
		{2.0, 12},
		{0.5, -12},
		{100, 20},
	}
	for _, tt := range tests {
		if got := pitchSemitones(tt.pitch); got != tt.want {
			t.Errorf("pitchSemitones(%v) = %v, want %v", tt.pitch, got, tt.want)
		}
	}
}

func TestMockEngineLocales(t *testing.T) {
	m := NewMockTTSEngine("en-US")
	if s, _ := m.SetLocale(language.MustParse("tr-TR")); s.Supported() {
		t.Error("tr-TR should be unsupported")
	}
	if s, _ := m.SetLocale(language.AmericanEnglish); !s.Supported() {
		t.Error("en-US should be supported")
	}
	if _, _, loc := m.Settings(); loc != language.AmericanEnglish {
		t.Errorf("locale = %v", loc)
	}
}

func TestSimulatedEngineStopFlushes(t *testing.T) {
	m := NewSimulatedEngine(1) // one word per minute: never finishes on its own
	defer m.Shutdown()

	l := newRecordingListener()
	m.SetListener(l)

	m.Speak("one two three", QueueFlush, "a")
	l.wait(t, 1)
	m.Speak("later", QueueAdd, "b")
	m.Stop()

	m.Speak("x", QueueFlush, "c")
	got := l.wait(t, 2)
	if got[1] != (event{"start", "c"}) {
		t.Errorf("events = %v; queued utterance survived Stop", got)
	}
}

func TestNewEngineUnknownType(t *testing.T) {
	if _, err := NewEngine(Config{Type: "festival"}); err == nil {
		t.Error("NewEngine() with unknown type should fail")
	}
	e, err := NewEngine(Config{Type: EngineTypeMock.String()})
	if err != nil {
		t.Fatal(err)
	}
	e.Shutdown()
}

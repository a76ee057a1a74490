package nest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"talenest/internal/cli/scheme/colours"
	"talenest/internal/config"
	"talenest/internal/domain/library"
	"talenest/internal/domain/library/generator"
	"talenest/internal/domain/story"
	"talenest/internal/prefs"
	"talenest/internal/share"
	"talenest/internal/story/speech"
	"talenest/internal/story/tts"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

const (
	previewWidth = 100
	textWidth    = 80
	readyTimeout = 30 * time.Second
)

// TaleNest main application structure
type TaleNest struct {
	settings config.Settings
	store    prefs.Store
	library  *library.StoryLibrary
	speech   *speech.Holder
	sharer   share.Sharer
	gen      generator.Generator
	weaver   *generator.Weaver
	factory  speech.EngineFactory
	out      io.Writer
}

type Option func(*TaleNest)

// WithEngineFactory replaces the configured speech engine.
func WithEngineFactory(f speech.EngineFactory) Option {
	return func(tn *TaleNest) { tn.factory = f }
}

// WithGenerator replaces the configured model provider.
func WithGenerator(g generator.Generator) Option {
	return func(tn *TaleNest) { tn.gen = g }
}

// WithOutput sets where the stdout share target writes.
func WithOutput(w io.Writer) Option {
	return func(tn *TaleNest) { tn.out = w }
}

func NewTaleNest(settings config.Settings, opts ...Option) (*TaleNest, error) {
	tn := &TaleNest{
		settings: settings,
		out:      os.Stdout,
	}
	tn.factory = func() (tts.Engine, error) {
		return tts.NewEngine(tts.Config{
			Type:      settings.Speech.Engine,
			CachePath: settings.Speech.CachePath,
		})
	}
	for _, opt := range opts {
		opt(tn)
	}

	store, err := prefs.Open(prefs.Backend(settings.Store.Backend), settings.Store.Path, library.PrefsName)
	if err != nil {
		return nil, fmt.Errorf("failed to open story store: %w", err)
	}
	tn.store = store
	tn.library = library.New(store)

	sharer, err := share.New(share.Target(settings.Share.Target), tn.out)
	if err != nil {
		store.Close()
		return nil, err
	}
	tn.sharer = sharer

	tn.speech = speech.NewHolder(tn.factory, speech.Config{
		Rate:           settings.Speech.Rate,
		Pitch:          settings.Speech.Pitch,
		Locale:         settings.Speech.Locale,
		FallbackLocale: settings.Speech.FallbackLocale,
	}, speech.NotifierFunc(showNotice))

	return tn, nil
}

// Stop silences any narration in progress.
func (tn *TaleNest) Stop() {
	if m := tn.speech.Current(); m != nil {
		if err := m.Stop(); err != nil {
			logrus.WithError(err).Warn("Failed to stop speech")
		}
	}
}

// Close shuts the speech session down and closes the store.
func (tn *TaleNest) Close() error {
	return errors.Join(tn.speech.Shutdown(), tn.store.Close())
}

func showNotice(n speech.Notice) {
	colours.Notice.Printf(" 🔔 %s ", n)
	fmt.Println()
}

func (tn *TaleNest) ShowWelcome() {
	fmt.Println()
	colours.Title.Println("🌟 Welcome to TaleNest! 🌟")
	fmt.Println()
	colours.Info.Println("📚 Available commands:")
	fmt.Println("  • talenest weave <words>  - Weave a new tale from a few words")
	fmt.Println("  • talenest list           - Browse your saved tales")
	fmt.Println("  • talenest show <id>      - Show a saved tale")
	fmt.Println("  • talenest read <id>      - Read a saved tale aloud")
	fmt.Println("  • talenest share <id>     - Share a saved tale")
	fmt.Println("  • talenest delete <id>    - Delete a saved tale")
	fmt.Println("  • talenest settings       - Show voice and storage settings")
	fmt.Println("  • talenest voices         - List voices of the speech engine")
	fmt.Println()
	colours.Prompt.Println("✨ Ready for a magical story adventure? ✨")
}

func (tn *TaleNest) WeaveTale(cmd *cobra.Command, args []string) error {
	save, _ := cmd.Flags().GetBool("save")
	read, _ := cmd.Flags().GetBool("read")

	weaver, err := tn.getWeaver()
	if err != nil {
		return err
	}

	fmt.Println()
	colours.Prompt.Println("🪄 Weaving your tale... 🪄")

	tale, err := weaver.Weave(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("could not weave a tale: %w", err)
	}

	fmt.Println()
	colours.Title.Printf("📖 %s\n", tale.Title)
	fmt.Print("🔑 ")
	colours.Keyword.Println(strings.Join(tale.Keywords, " · "))
	fmt.Println()
	fmt.Println(wordwrap.String(tale.Story, textWidth))
	if tale.ImagePrompt != "" {
		fmt.Println()
		colours.Info.Println("🎨 Image prompt:")
		colours.Faint.Println(wordwrap.String(tale.ImagePrompt, textWidth))
	}
	fmt.Println()

	if save {
		rec, err := tn.library.Save(cmd.Context(), tale.Title, tale.Story, tale.ImagePrompt)
		if err != nil {
			return fmt.Errorf("could not save tale: %w", err)
		}
		colours.Success.Printf("💾 Tale saved! (ID: %d)\n", rec.ID)
	}

	if read {
		return tn.narrate(cmd, tale.Title, tale.Story)
	}
	return nil
}

func (tn *TaleNest) getWeaver() (*generator.Weaver, error) {
	if tn.weaver != nil {
		return tn.weaver, nil
	}

	gen := tn.gen
	if gen == nil {
		var err error
		gen, err = generator.New(generator.Options{
			Provider: generator.Provider(tn.settings.Generator.Provider),
			APIKey:   tn.settings.Generator.APIKey,
			BaseURL:  tn.settings.Generator.BaseURL,
			Model:    tn.settings.Generator.Model,
		})
		if err != nil {
			return nil, err
		}
	}

	tn.weaver = generator.NewWeaver(gen, tn.settings.Generator.Timeout)
	return tn.weaver, nil
}

func (tn *TaleNest) ListStories(cmd *cobra.Command, args []string) error {
	fmt.Println()
	colours.Title.Println("📚 Your Saved Tales 📚")
	fmt.Println()

	records, err := tn.library.List(cmd.Context())
	if errors.Is(err, story.ErrCorrupt) {
		colours.Warning.Println("⚠️  Your saved tales could not be read; showing an empty shelf. 'talenest delete --all' starts over.")
	} else if err != nil {
		return err
	}

	if len(records) == 0 {
		colours.Warning.Println("🔍 No tales saved yet. Try 'talenest weave dragon, moon --save'.")
		return nil
	}

	// Newest first.
	for i, rec := range story.Reversed(records) {
		fmt.Printf("  %d. ", i+1)
		colours.Title.Printf("%s", rec.Title)
		fmt.Println()
		colours.Meta.Printf("     🗓️  %s", whenSaved(rec))
		fmt.Printf(" | 📝 %s words\n", humanize.Comma(int64(len(strings.Fields(rec.Content)))))
		fmt.Printf("     💡 %s\n", Preview(rec.Content))
		colours.Info.Printf("     ID: %d\n", rec.ID)
		fmt.Println()
	}

	colours.Success.Printf("✨ Found %d wonderful tales! ✨\n", len(records))
	return nil
}

func (tn *TaleNest) ShowStory(cmd *cobra.Command, args []string) error {
	rec, err := tn.findRecord(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	displayRecord(rec)
	return nil
}

func (tn *TaleNest) ReadStory(cmd *cobra.Command, args []string) error {
	rec, err := tn.findRecord(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	displayRecord(rec)
	return tn.narrate(cmd, "", rec.Content)
}

// narrate reads text aloud and blocks until it finishes or the command's
// context ends. A non-empty title is read first. Voice flags on cmd override
// the session settings.
func (tn *TaleNest) narrate(cmd *cobra.Command, title, text string) error {
	ctx := cmd.Context()

	voice, err := parseVoiceFlags(cmd)
	if err != nil {
		return err
	}

	m, err := tn.speech.Get()
	if err != nil {
		return err
	}

	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := m.WaitReady(readyCtx); err != nil {
		return fmt.Errorf("speech is not available: %w", err)
	}

	if voice.set() {
		cfg := voice.apply(m.Config())
		if err := m.Configure(cfg.Rate, cfg.Pitch, cfg.Locale); err != nil {
			colours.Warning.Printf("⚠️  Voice settings not fully applied: %v\n", err)
		}
		colours.Info.Printf("🎤 Speed %.2fx | Pitch %.2fx | Language %s\n", cfg.Rate, cfg.Pitch, m.Locale())
	}

	colours.Success.Println("🎵 Starting story playback... 🎵")
	fmt.Println("💡 Press Ctrl+C to stop anytime")
	fmt.Println()

	stopProgress := showProgress(m)
	defer stopProgress()

	if title != "" {
		if err := m.Speak(title, tts.QueueFlush); err != nil {
			return err
		}
		for _, p := range speech.Paragraphs(text) {
			if err := m.Speak(p, tts.QueueAdd); err != nil {
				return err
			}
		}
	} else if err := m.SpeakLong(text); err != nil {
		return err
	}

	if err := m.WaitDrained(ctx); err != nil {
		midSentence := m.Speaking()
		tn.Stop()
		stopProgress()
		if midSentence {
			colours.Warning.Println("⏹️  Stopped mid-sentence")
		} else {
			colours.Warning.Println("⏹️  Stopped")
		}
		return nil
	}

	stopProgress()
	colours.Success.Println("✅ Story finished! 🌟")
	colours.Prompt.Println("😴 Sleep tight! 🌙")
	return nil
}

// showProgress prints a marker whenever narration starts a paragraph or
// pauses between two. The returned func ends it and may be called again.
func showProgress(m *speech.Manager) func() {
	updates, unsubscribe := m.WatchSpeaking()
	done := make(chan struct{})

	go func() {
		defer close(done)
		last := false
		for speaking := range updates {
			if speaking == last {
				continue
			}
			last = speaking
			if speaking {
				colours.Faint.Print("🔊 ")
			} else {
				colours.Faint.Print("⏸  ")
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			<-done
			fmt.Println()
		})
	}
}

// voiceFlags holds the --rate, --pitch and --locale values that were given.
type voiceFlags struct {
	rate   *float64
	pitch  *float64
	locale *language.Tag
}

func parseVoiceFlags(cmd *cobra.Command) (voiceFlags, error) {
	var v voiceFlags
	flags := cmd.Flags()

	if flags.Changed("rate") {
		rate, err := flags.GetFloat64("rate")
		if err != nil {
			return v, err
		}
		if err := config.CheckRate(rate); err != nil {
			return v, fmt.Errorf("invalid --rate: %w", err)
		}
		v.rate = &rate
	}

	if flags.Changed("pitch") {
		pitch, err := flags.GetFloat64("pitch")
		if err != nil {
			return v, err
		}
		if err := config.CheckPitch(pitch); err != nil {
			return v, fmt.Errorf("invalid --pitch: %w", err)
		}
		v.pitch = &pitch
	}

	if flags.Changed("locale") {
		raw, err := flags.GetString("locale")
		if err != nil {
			return v, err
		}
		tag, err := language.Parse(raw)
		if err != nil {
			return v, fmt.Errorf("invalid --locale %q: %w", raw, err)
		}
		v.locale = &tag
	}

	return v, nil
}

func (v voiceFlags) set() bool {
	return v.rate != nil || v.pitch != nil || v.locale != nil
}

func (v voiceFlags) apply(cfg speech.Config) speech.Config {
	if v.rate != nil {
		cfg.Rate = *v.rate
	}
	if v.pitch != nil {
		cfg.Pitch = *v.pitch
	}
	if v.locale != nil {
		cfg.Locale = *v.locale
	}
	return cfg
}

func (tn *TaleNest) DeleteStory(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	switch {
	case all && len(args) > 0:
		return errors.New("give either a tale ID or --all, not both")
	case all:
		if err := tn.library.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("could not clear tales: %w", err)
		}
		colours.Success.Println("🧹 All tales cleared")
		return nil
	case len(args) == 0:
		return errors.New("give a tale ID, or --all to clear every tale")
	}

	rec, err := tn.findRecord(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if err := tn.library.Delete(cmd.Context(), rec.ID); err != nil {
		return fmt.Errorf("could not delete tale: %w", err)
	}
	colours.Success.Printf("🗑️  Deleted \"%s\"\n", rec.Title)
	return nil
}

func (tn *TaleNest) ShareStory(cmd *cobra.Command, args []string) error {
	rec, err := tn.findRecord(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if err := tn.sharer.Share(cmd.Context(), share.ForRecord(rec)); err != nil {
		// Sharing is best effort; the tale itself is fine.
		colours.Warning.Printf("⚠️  %v\n", err)
		return nil
	}
	if _, ok := tn.sharer.(*share.ClipboardSharer); ok {
		colours.Success.Println("📋 Tale copied to the clipboard!")
	}
	return nil
}

func (tn *TaleNest) ConfigureSettings(cmd *cobra.Command, args []string) error {
	s := tn.settings

	fmt.Println()
	colours.Title.Println("⚙️ TaleNest Settings ⚙️")
	fmt.Println()

	colours.Prompt.Println("🎤 Voice Settings:")
	fmt.Printf("  • Engine: %s\n", s.Speech.Engine)
	fmt.Printf("  • Speed: %.2fx\n", s.Speech.Rate)
	fmt.Printf("  • Pitch: %.2fx\n", s.Speech.Pitch)
	fmt.Printf("  • Language: %s (fallback %s)\n", s.Speech.Locale, s.Speech.FallbackLocale)
	fmt.Println()

	colours.Prompt.Println("📦 Storage:")
	fmt.Printf("  • Backend: %s\n", s.Store.Backend)
	fmt.Printf("  • Location: %s\n", s.Store.Path)
	fmt.Println()

	colours.Prompt.Println("🪄 Story Generator:")
	fmt.Printf("  • Provider: %s\n", s.Generator.Provider)
	if s.Generator.APIKey == "" {
		colours.Warning.Println("  • API key: not set (use TALENEST_GENERATOR_API_KEY or GEMINI_API_KEY)")
	} else {
		fmt.Println("  • API key: set")
	}
	fmt.Println()

	colours.Info.Println("🔈 Speech engines on this machine:")
	for _, e := range tts.GetAvailableEngines() {
		fmt.Printf("  • %s\n", e)
	}
	return nil
}

func (tn *TaleNest) ListVoices(cmd *cobra.Command, args []string) error {
	filter, _ := cmd.Flags().GetString("locale")

	m, err := tn.speech.Get()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), readyTimeout)
	defer cancel()
	if err := m.WaitReady(ctx); err != nil {
		return fmt.Errorf("speech is not available: %w", err)
	}

	voices, err := m.Voices()
	if err != nil {
		return err
	}

	fmt.Println()
	colours.Title.Println("🗣️  Available Voices")
	fmt.Println()

	count := 0
	for _, v := range voices {
		if filter != "" && !strings.HasPrefix(strings.ToLower(v.LanguageCode), strings.ToLower(filter)) {
			continue
		}
		count++
		colours.Info.Printf("  %s", v.Name)
		fmt.Printf(" (%s)", v.LanguageCode)
		if v.Gender != "" {
			colours.Meta.Printf(" %s", v.Gender)
		}
		fmt.Println()
	}

	if count == 0 {
		colours.Warning.Println("🔍 No voices found.")
	}
	return nil
}

func (tn *TaleNest) findRecord(ctx context.Context, arg string) (story.Record, error) {
	id, err := ParseID(arg)
	if err != nil {
		return story.Record{}, err
	}

	rec, ok, err := tn.library.Get(ctx, id)
	if err != nil {
		return story.Record{}, err
	}
	if !ok {
		return story.Record{}, fmt.Errorf("tale with ID '%d' not found", id)
	}
	return rec, nil
}

func displayRecord(rec story.Record) {
	fmt.Println()
	colours.Title.Printf("📖 %s\n", rec.Title)
	colours.Meta.Printf("🗓️  %s\n", whenSaved(rec))
	fmt.Println()
	fmt.Println(wordwrap.String(rec.Content, textWidth))
	if rec.ImagePrompt != "" {
		fmt.Println()
		colours.Info.Println("🎨 Image prompt:")
		colours.Faint.Println(wordwrap.String(rec.ImagePrompt, textWidth))
	}
	fmt.Println()
}

// ParseID parses a story id given on the command line.
func ParseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid tale ID %q", arg)
	}
	return id, nil
}

// Preview flattens content onto one line and cuts it to the list width.
func Preview(content string) string {
	return runewidth.Truncate(strings.Join(strings.Fields(content), " "), previewWidth, "…")
}

func whenSaved(rec story.Record) string {
	ts, err := rec.CreatedAt()
	if err != nil {
		return rec.Date
	}
	return fmt.Sprintf("%s (%s)", rec.Date, humanize.Time(ts))
}

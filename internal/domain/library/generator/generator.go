// Package generator turns a handful of keywords into a children's tale
// using a generative text model.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrBusy is returned while another tale is being woven.
	ErrBusy       = errors.New("a tale is already being generated")
	// ErrNoResult means the model answered with no text.
	ErrNoResult   = errors.New("model returned no text")
	ErrNoKeywords = errors.New("at least one keyword is required")
)

// GenerationError reports a failed call to a model provider.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator sends a single prompt to a model and returns its text answer.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Tale is a freshly generated, not yet saved story.
type Tale struct {
	Title       string
	Keywords    []string
	Story       string
	ImagePrompt string
}

// Weaver runs one generation at a time.
type Weaver struct {
	gen     Generator
	busy    *semaphore.Weighted
	timeout time.Duration
}

func NewWeaver(gen Generator, timeout time.Duration) *Weaver {
	return &Weaver{
		gen:     gen,
		busy:    semaphore.NewWeighted(1),
		timeout: timeout,
	}
}

// Weave writes a tale around keywords and then asks the model for an image
// prompt depicting it. A failed image prompt is logged and left empty.
func (w *Weaver) Weave(ctx context.Context, keywords []string) (*Tale, error) {
	keywords = CleanKeywords(keywords)
	if len(keywords) == 0 {
		return nil, ErrNoKeywords
	}

	if !w.busy.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer w.busy.Release(1)

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	log := logrus.WithFields(logrus.Fields{
		"provider": w.gen.Name(),
		"keywords": strings.Join(keywords, ", "),
	})
	log.Info("Weaving a new tale")

	text, err := w.gen.Generate(ctx, BuildStoryPrompt(keywords))
	if err != nil {
		return nil, err
	}

	tale := &Tale{
		Title:    TitleFor(keywords),
		Keywords: keywords,
		Story:    text,
	}

	image, err := w.gen.Generate(ctx, BuildImagePromptRequest(text))
	if err != nil {
		log.WithError(err).Warn("Failed to generate image prompt")
		return tale, nil
	}
	tale.ImagePrompt = image
	return tale, nil
}

// CleanKeywords trims each keyword, splits comma separated input and drops
// blanks, keeping the original order.
func CleanKeywords(keywords []string) []string {
	var out []string
	for _, k := range keywords {
		for _, part := range strings.Split(k, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func TitleFor(keywords []string) string {
	return "Tale " + strings.Join(keywords, ", ")
}

func BuildStoryPrompt(keywords []string) string {
	return fmt.Sprintf(`Write a fun, educational and creative tale for children.
Weave these words into the story: %s.
The tale should contain adventure, friendship and a meaningful lesson.
Keep it short and easy to read aloud.`, strings.Join(keywords, ", "))
}

func BuildImagePromptRequest(story string) string {
	return story + "\n\nCreate a prompt for an image depicting this tale."
}

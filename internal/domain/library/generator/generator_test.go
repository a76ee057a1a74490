package generator

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	answers []string
	errs    []error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.answers) {
		return f.answers[i], nil
	}
	return "", ErrNoResult
}

func TestWeave(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"Once upon a time a fox met an owl.", "A fox and an owl under the moon"}}
	w := NewWeaver(gen, time.Second)

	tale, err := w.Weave(context.Background(), []string{" fox ", "owl,moon", ""})
	if err != nil {
		t.Fatalf("Weave: %v", err)
	}

	if want := []string{"fox", "owl", "moon"}; !reflect.DeepEqual(tale.Keywords, want) {
		t.Errorf("keywords = %q, want %q", tale.Keywords, want)
	}
	if tale.Title != "Tale fox, owl, moon" {
		t.Errorf("title = %q", tale.Title)
	}
	if tale.Story != gen.answers[0] || tale.ImagePrompt != gen.answers[1] {
		t.Errorf("unexpected tale %+v", tale)
	}

	if len(gen.prompts) != 2 {
		t.Fatalf("got %d prompts, want 2", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "fox, owl, moon") {
		t.Errorf("story prompt missing keywords: %q", gen.prompts[0])
	}
	if !strings.HasPrefix(gen.prompts[1], gen.answers[0]) {
		t.Errorf("image prompt request should start with the story: %q", gen.prompts[1])
	}
}

func TestWeaveImagePromptFailureIsNotFatal(t *testing.T) {
	gen := &fakeGenerator{
		answers: []string{"A tale."},
		errs:    []error{nil, &GenerationError{Provider: "fake", Err: errors.New("quota")}},
	}

	tale, err := NewWeaver(gen, 0).Weave(context.Background(), []string{"cat"})
	if err != nil {
		t.Fatalf("Weave: %v", err)
	}
	if tale.Story != "A tale." || tale.ImagePrompt != "" {
		t.Errorf("unexpected tale %+v", tale)
	}
}

func TestWeaveErrors(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		errs     []error
		want     error
	}{
		{"no keywords", []string{" ", ","}, nil, ErrNoKeywords},
		{"empty story", []string{"cat"}, []error{ErrNoResult}, ErrNoResult},
		{"provider failure", []string{"cat"}, []error{&GenerationError{Provider: "fake", Err: errors.New("401")}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{errs: tt.errs}
			_, err := NewWeaver(gen, 0).Weave(context.Background(), tt.keywords)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			var genErr *GenerationError
			if tt.want == nil && !errors.As(err, &genErr) {
				t.Errorf("err = %v, want *GenerationError", err)
			}
		})
	}
}

func TestWeaveBusy(t *testing.T) {
	gen := &fakeGenerator{
		answers: []string{"story", "image"},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	w := NewWeaver(gen, 0)

	first := make(chan error, 1)
	go func() {
		_, err := w.Weave(context.Background(), []string{"dragon"})
		first <- err
	}()

	select {
	case <-gen.entered:
	case <-time.After(time.Second):
		t.Fatal("first weave never reached the model")
	}

	if _, err := w.Weave(context.Background(), []string{"dragon"}); !errors.Is(err, ErrBusy) {
		t.Errorf("second Weave = %v, want ErrBusy", err)
	}

	close(gen.block)
	if err := <-first; err != nil {
		t.Fatalf("first Weave: %v", err)
	}
}

func TestWeaveTimeout(t *testing.T) {
	gen := &fakeGenerator{block: make(chan struct{})}
	_, err := NewWeaver(gen, 10*time.Millisecond).Weave(context.Background(), []string{"slow"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		opts    Options
		name    string
		wantErr bool
	}{
		{Options{Provider: ProviderOpenAI, APIKey: "k"}, "gemini", false},
		{Options{Provider: ProviderOpenAI, APIKey: "k", BaseURL: "https://api.openai.com/v1/"}, "openai", false},
		{Options{Provider: ProviderAnthropic, APIKey: "k"}, "anthropic", false},
		{Options{Provider: ProviderOpenAI}, "", true},
		{Options{Provider: "parrot", APIKey: "k"}, "", true},
	}

	for _, tt := range tests {
		gen, err := New(tt.opts)
		if tt.wantErr {
			if err == nil {
				t.Errorf("New(%+v) expected error", tt.opts)
			}
			continue
		}
		if err != nil {
			t.Fatalf("New(%+v): %v", tt.opts, err)
		}
		if gen.Name() != tt.name {
			t.Errorf("Name() = %q, want %q", gen.Name(), tt.name)
		}
	}
}

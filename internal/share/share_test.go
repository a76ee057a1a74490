package share

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"talenest/internal/domain/story"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestPayloadText(t *testing.T) {
	p := Payload{Title: "Tale fox, owl", Body: "Once upon a time."}
	if got, want := p.Text(), "Tale fox, owl\n\nOnce upon a time."; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestForRecord(t *testing.T) {
	p := ForRecord(story.Record{ID: 7, Title: "Tale owl", Content: "Hoot.", ImagePrompt: "an owl"})
	if got := p.Text(); got != "Tale owl\n\nHoot." {
		t.Errorf("Text() = %q", got)
	}
}

func TestWriterSharer(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSharer(&buf)

	if err := s.Share(context.Background(), Payload{Title: "T", Body: "B"}); err != nil {
		t.Fatalf("Share: %v", err)
	}
	if got := buf.String(); got != "T\n\nB\n" {
		t.Errorf("wrote %q", got)
	}

	err := NewWriterSharer(failingWriter{}).Share(context.Background(), Payload{Title: "T"})
	if !errors.Is(err, ErrShareFailed) {
		t.Errorf("err = %v, want ErrShareFailed", err)
	}
}

func TestClipboardSharer(t *testing.T) {
	var copied string
	s := &ClipboardSharer{write: func(text string) error {
		copied = text
		return nil
	}}

	err := s.Share(context.Background(), Payload{Title: "T", Body: "B"})
	if errors.Is(err, ErrShareFailed) {
		t.Skip("no clipboard utility on this machine")
	}
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if copied != "T\n\nB" {
		t.Errorf("copied %q", copied)
	}

	s.write = func(string) error { return errors.New("xclip exited 1") }
	if err := s.Share(context.Background(), Payload{}); !errors.Is(err, ErrShareFailed) {
		t.Errorf("err = %v, want ErrShareFailed", err)
	}
}

func TestShareCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewWriterSharer(&bytes.Buffer{}).Share(ctx, Payload{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNew(t *testing.T) {
	if s, err := New(TargetStdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("New(stdout): %v", err)
	} else if _, ok := s.(*WriterSharer); !ok {
		t.Errorf("New(stdout) = %T", s)
	}
	if s, err := New("", nil); err != nil {
		t.Fatalf("New(default): %v", err)
	} else if _, ok := s.(*ClipboardSharer); !ok {
		t.Errorf("New(default) = %T", s)
	}
	if _, err := New("carrier-pigeon", nil); err == nil {
		t.Error("expected error for unknown target")
	}
}

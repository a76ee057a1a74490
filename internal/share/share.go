// Package share hands a story off to somewhere outside the app.
package share

import (
	"context"
	"errors"
	"fmt"
	"io"

	"talenest/internal/domain/story"

	"github.com/atotto/clipboard"
	"github.com/sirupsen/logrus"
)

var ErrShareFailed = errors.New("failed to share story")

// Payload is what gets shared: a subject line and a plain-text body.
type Payload struct {
	Title string
	Body  string
}

// ForRecord builds the payload for a saved story.
func ForRecord(r story.Record) Payload {
	return Payload{Title: r.Title, Body: r.Content}
}

// Text renders the payload as title, blank line, body.
func (p Payload) Text() string {
	return p.Title + "\n\n" + p.Body
}

type Sharer interface {
	Share(ctx context.Context, p Payload) error
}

// ClipboardSharer copies the payload to the system clipboard.
type ClipboardSharer struct {
	write func(string) error
}

func NewClipboardSharer() *ClipboardSharer {
	return &ClipboardSharer{write: clipboard.WriteAll}
}

func (s *ClipboardSharer) Share(ctx context.Context, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return fmt.Errorf("%w: no clipboard utility available", ErrShareFailed)
	}
	if err := s.write(p.Text()); err != nil {
		return fmt.Errorf("%w: %v", ErrShareFailed, err)
	}
	logrus.WithField("title", p.Title).Info("Story copied to clipboard")
	return nil
}

// WriterSharer prints the payload to w.
type WriterSharer struct {
	w io.Writer
}

func NewWriterSharer(w io.Writer) *WriterSharer {
	return &WriterSharer{w: w}
}

func (s *WriterSharer) Share(ctx context.Context, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := io.WriteString(s.w, p.Text()+"\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrShareFailed, err)
	}
	return nil
}

type Target string

const (
	TargetClipboard Target = "clipboard"
	TargetStdout    Target = "stdout"
)

// New returns the sharer for target. Stdout output goes to out.
func New(target Target, out io.Writer) (Sharer, error) {
	switch target {
	case TargetClipboard, "":
		return NewClipboardSharer(), nil
	case TargetStdout:
		return NewWriterSharer(out), nil
	default:
		return nil, fmt.Errorf("unknown share target: %s", target)
	}
}

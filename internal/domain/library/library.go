package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"talenest/internal/domain/story"
	"talenest/internal/prefs"

	"github.com/sirupsen/logrus"
)

const (
	// PrefsName is the preference set holding the collection.
	PrefsName = "stories"
	// SavedStoriesKey is the key of the serialized collection blob.
	SavedStoriesKey = "saved_stories"
)

// StoryLibrary is the locally persisted story collection. The whole
// collection lives in one preference blob and every Save or Delete is a
// read-modify-write of that blob, so all of them run under one mutex.
// Two StoryLibrary values over the same store do not coordinate.
type StoryLibrary struct {
	mu    sync.Mutex
	prefs prefs.Store
	now   func() time.Time
}

type Option func(*StoryLibrary)

// WithClock replaces time.Now, used for ids and dates.
func WithClock(now func() time.Time) Option {
	return func(l *StoryLibrary) { l.now = now }
}

func New(store prefs.Store, opts ...Option) *StoryLibrary {
	l := &StoryLibrary{
		prefs: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Save appends a new record and rewrites the collection. A blank title is
// replaced by story.DefaultTitle.
func (l *StoryLibrary) Save(ctx context.Context, title, content, imagePrompt string) (story.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		if !errors.Is(err, story.ErrCorrupt) {
			return story.Record{}, err
		}
		if err := l.quarantine(ctx); err != nil {
			return story.Record{}, err
		}
	}

	now := l.now()
	date := now.Format(story.DateLayout)
	if strings.TrimSpace(title) == "" {
		title = story.DefaultTitle(date)
	}

	rec := story.Record{
		ID:          nextID(now, records),
		Title:       title,
		Content:     content,
		Date:        date,
		ImagePrompt: imagePrompt,
	}

	if err := l.store(ctx, append(records, rec)); err != nil {
		return story.Record{}, err
	}

	logrus.WithFields(logrus.Fields{
		"id":    rec.ID,
		"title": rec.Title,
		"count": len(records) + 1,
	}).Info("Saved story")

	return rec, nil
}

// List returns the collection in insertion order. A collection that was
// never written is empty. A corrupt collection is also returned as empty,
// together with an error wrapping story.ErrCorrupt.
func (l *StoryLibrary) List(ctx context.Context) ([]story.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

// Get looks a record up by id.
func (l *StoryLibrary) Get(ctx context.Context, id int64) (story.Record, bool, error) {
	records, err := l.List(ctx)
	if err != nil {
		return story.Record{}, false, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, true, nil
		}
	}
	return story.Record{}, false, nil
}

// Delete removes every record with the given id. Deleting an unknown id
// leaves the stored collection untouched.
func (l *StoryLibrary) Delete(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return err
	}

	kept := make([]story.Record, 0, len(records))
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		logrus.WithField("id", id).Debug("Delete of unknown story ignored")
		return nil
	}

	if err := l.store(ctx, kept); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"id":      id,
		"removed": len(records) - len(kept),
	}).Info("Deleted story")
	return nil
}

// Clear removes the whole collection, including one that can no longer be
// read. Backups made by Save are kept.
func (l *StoryLibrary) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.prefs.Remove(ctx, SavedStoriesKey); err != nil {
		return fmt.Errorf("failed to clear stories: %w", err)
	}
	logrus.Info("Cleared all stories")
	return nil
}

func (l *StoryLibrary) load(ctx context.Context) ([]story.Record, error) {
	blob, _, err := l.prefs.GetString(ctx, SavedStoriesKey)
	if err != nil {
		return []story.Record{}, fmt.Errorf("failed to read stories: %w", err)
	}

	records, err := story.Decode(blob)
	if err != nil {
		logrus.WithError(err).WithField("bytes", len(blob)).Warn("Stored stories are unreadable, treating as empty")
		return records, err
	}
	return records, nil
}

func (l *StoryLibrary) store(ctx context.Context, records []story.Record) error {
	blob, err := story.Encode(records)
	if err != nil {
		return err
	}
	if err := l.prefs.PutString(ctx, SavedStoriesKey, blob); err != nil {
		return fmt.Errorf("failed to write stories: %w", err)
	}
	return nil
}

// quarantine copies an unreadable blob aside before Save overwrites it.
func (l *StoryLibrary) quarantine(ctx context.Context) error {
	blob, _, err := l.prefs.GetString(ctx, SavedStoriesKey)
	if err != nil {
		return fmt.Errorf("failed to read stories: %w", err)
	}
	key := fmt.Sprintf("%s.corrupt.%d", SavedStoriesKey, l.now().UnixMilli())
	if err := l.prefs.PutString(ctx, key, blob); err != nil {
		return fmt.Errorf("failed to back up unreadable stories: %w", err)
	}
	logrus.WithField("key", key).Warn("Backed up unreadable stories")
	return nil
}

// nextID is the creation time in milliseconds, bumped past the largest
// existing id so ids stay unique and increasing when saves share a millisecond.
func nextID(now time.Time, records []story.Record) int64 {
	id := now.UnixMilli()
	for _, r := range records {
		if r.ID >= id {
			id = r.ID + 1
		}
	}
	return id
}

package story

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the fixed, human-readable creation timestamp format.
const DateLayout = "02/01/2006 15:04"

// ErrCorrupt is returned when a persisted collection cannot be decoded.
var ErrCorrupt = errors.New("stored story collection is corrupt")

// Record is one persisted story entry. It is never mutated after it has been saved.
type Record struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Date        string `json:"date"`
	ImagePrompt string `json:"imagePrompt"`
}

// CreatedAt parses Date back into a local time.
func (r Record) CreatedAt() (time.Time, error) {
	return time.ParseInLocation(DateLayout, r.Date, time.Local)
}

// DefaultTitle is the title given to a record saved without one.
func DefaultTitle(date string) string {
	return "Tale " + date
}

// Encode serializes the collection in insertion order.
func Encode(records []Record) (string, error) {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to encode stories: %w", err)
	}
	return string(data), nil
}

// Decode parses a stored collection. A missing or blank blob decodes to an
// empty collection; anything else that is not a JSON array of records
// yields an error wrapping ErrCorrupt.
func Decode(blob string) ([]Record, error) {
	if strings.TrimSpace(blob) == "" {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal([]byte(blob), &records); err != nil {
		return []Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if records == nil {
		// "null"
		records = []Record{}
	}
	return records, nil
}

// Reversed returns a copy of records, newest first.
func Reversed(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out
}

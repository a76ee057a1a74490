package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// File keeps one preference set in a JSON document on disk. Every write
// rewrites the document through a temp file and a rename.
type File struct {
	mu   sync.Mutex
	dir  string
	file string
}

// fileDocument is the on-disk layout of a preference set.
type fileDocument struct {
	Values      map[string]string `json:"values"`
	LastUpdated time.Time         `json:"last_updated"`
}

// OpenFile opens (or creates) dir/<name>.json.
func OpenFile(dir, name string) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create preference directory: %w", err)
	}

	return &File{
		dir:  dir,
		file: filepath.Join(dir, name+".json"),
	}, nil
}

func (f *File) GetString(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := doc.Values[key]
	return v, ok, nil
}

func (f *File) PutString(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	doc.Values[key] = value
	return f.save(doc)
}

func (f *File) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Values[key]; !ok {
		return nil
	}
	delete(doc.Values, key)
	return f.save(doc)
}

func (f *File) Close() error { return nil }

// load reads the document; a missing file is an empty set.
func (f *File) load() (*fileDocument, error) {
	doc := &fileDocument{Values: map[string]string{}}

	file, err := os.Open(f.file)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open preference file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode preference file %s: %w", f.file, err)
	}
	if doc.Values == nil {
		doc.Values = map[string]string{}
	}
	return doc, nil
}

func (f *File) save(doc *fileDocument) error {
	doc.LastUpdated = time.Now()

	tmp, err := os.CreateTemp(f.dir, filepath.Base(f.file)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create preference file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode preference data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to flush preference file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.file); err != nil {
		return fmt.Errorf("failed to replace preference file: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"keys": len(doc.Values),
		"file": f.file,
	}).Debug("Saved preferences")

	return nil
}

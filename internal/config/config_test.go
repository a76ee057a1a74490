package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

func reset(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
}

func TestLoadDefaults(t *testing.T) {
	reset(t)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.LogLevel != logrus.InfoLevel {
		t.Errorf("log level = %v", s.LogLevel)
	}
	if s.Store.Backend != "sqlite" || s.Store.Path == "" {
		t.Errorf("store = %+v", s.Store)
	}
	if s.Generator.Provider != "openai" || s.Generator.Timeout != 90*time.Second {
		t.Errorf("generator = %+v", s.Generator)
	}
	if s.Speech.Locale != language.MustParse("tr-TR") || s.Speech.FallbackLocale != language.AmericanEnglish {
		t.Errorf("locales = %v / %v", s.Speech.Locale, s.Speech.FallbackLocale)
	}
	if s.Speech.Rate != 1.0 || s.Speech.Pitch != 1.0 || s.Speech.Engine != "auto" {
		t.Errorf("speech = %+v", s.Speech)
	}
	if s.Share.Target != "clipboard" {
		t.Errorf("share target = %q", s.Share.Target)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{"log.level", "chatty"},
		{"speech.rate", 0},
		{"speech.rate", 2.5},
		{"speech.pitch", -1},
		{"speech.pitch", 0.3},
		{"speech.locale", "not a locale!"},
		{"speech.fallback_locale", "??"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s=%v", tt.key, tt.value), func(t *testing.T) {
			reset(t)
			viper.Set(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%v", tt.key, tt.value)
			}
		})
	}
}

func TestInitReadsFileAndEnv(t *testing.T) {
	reset(t)

	path := filepath.Join(t.TempDir(), "talenest.yaml")
	yaml := "speech:\n  locale: de-DE\n  rate: 1.25\nstore:\n  backend: file\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TALENEST_SHARE_TARGET", "stdout")
	t.Setenv("GEMINI_API_KEY", "secret")

	if err := Init(path); err != nil {
		t.Fatalf("Init: %v", err)
	}
	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.Speech.Locale != language.MustParse("de-DE") || s.Speech.Rate != 1.25 {
		t.Errorf("speech = %+v", s.Speech)
	}
	if s.Store.Backend != "file" {
		t.Errorf("backend = %q", s.Store.Backend)
	}
	if s.Share.Target != "stdout" {
		t.Errorf("share target from env = %q", s.Share.Target)
	}
	if s.Generator.APIKey != "secret" {
		t.Errorf("api key = %q", s.Generator.APIKey)
	}
}

func TestInitBrokenFile(t *testing.T) {
	reset(t)

	path := filepath.Join(t.TempDir(), "talenest.yaml")
	if err := os.WriteFile(path, []byte("speech: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Init(path); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestCheckRanges(t *testing.T) {
	tests := []struct {
		value   float64
		rateOK  bool
		pitchOK bool
	}{
		{0.05, false, false},
		{0.1, true, false},
		{0.5, true, true},
		{1.0, true, true},
		{2.0, true, true},
		{2.01, false, false},
	}

	for _, tt := range tests {
		if err := CheckRate(tt.value); (err == nil) != tt.rateOK {
			t.Errorf("CheckRate(%v) = %v, want ok=%v", tt.value, err, tt.rateOK)
		}
		if err := CheckPitch(tt.value); (err == nil) != tt.pitchOK {
			t.Errorf("CheckPitch(%v) = %v, want ok=%v", tt.value, err, tt.pitchOK)
		}
	}
}

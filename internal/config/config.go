// Package config wires viper to the application settings.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	gap "github.com/muesli/go-app-paths"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

const appName = "talenest"

var scope = gap.NewScope(gap.User, appName)

func SetDefaults() {
	viper.SetDefault("log.level", "info")

	viper.SetDefault("store.backend", "sqlite")
	viper.SetDefault("store.path", DataDir())

	viper.SetDefault("generator.provider", "openai") // Gemini through its OpenAI compatible endpoint
	viper.SetDefault("generator.api_key", "")
	viper.SetDefault("generator.base_url", "")
	viper.SetDefault("generator.model", "")
	viper.SetDefault("generator.timeout", 90*time.Second)

	viper.SetDefault("speech.engine", "auto") // Auto-select best engine
	viper.SetDefault("speech.rate", 1.0)
	viper.SetDefault("speech.pitch", 1.0)
	viper.SetDefault("speech.locale", "tr-TR")
	viper.SetDefault("speech.fallback_locale", "en-US")
	viper.SetDefault("speech.cache_path", filepath.Join(CacheDir(), "tts"))

	viper.SetDefault("share.target", "clipboard")
}

// Init points viper at the config file and the environment. An explicit
// file wins over the search path; a missing config file is not an error.
func Init(file string) error {
	if file != "" {
		viper.SetConfigFile(file)
	} else {
		dirs, err := scope.ConfigDirs()
		if err != nil {
			logrus.WithError(err).Warn("Could not find configuration directories")
		}
		for _, d := range dirs {
			viper.AddConfigPath(d)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(appName)
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(appName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("generator.api_key", "TALENEST_GENERATOR_API_KEY", "GEMINI_API_KEY")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	logrus.WithField("path", viper.ConfigFileUsed()).Debug("Using configuration file")
	return nil
}

type Settings struct {
	LogLevel  logrus.Level
	Store     StoreSettings
	Generator GeneratorSettings
	Speech    SpeechSettings
	Share     ShareSettings
}

type StoreSettings struct {
	Backend string
	Path    string
}

type GeneratorSettings struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

type SpeechSettings struct {
	Engine         string
	Rate           float64
	Pitch          float64
	Locale         language.Tag
	FallbackLocale language.Tag
	CachePath      string
}

type ShareSettings struct {
	Target string
}

// Load reads the current viper state into Settings and validates it.
func Load() (Settings, error) {
	var s Settings

	level, err := logrus.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return s, fmt.Errorf("invalid log.level: %w", err)
	}
	s.LogLevel = level

	s.Store = StoreSettings{
		Backend: viper.GetString("store.backend"),
		Path:    viper.GetString("store.path"),
	}

	s.Generator = GeneratorSettings{
		Provider: viper.GetString("generator.provider"),
		APIKey:   viper.GetString("generator.api_key"),
		BaseURL:  viper.GetString("generator.base_url"),
		Model:    viper.GetString("generator.model"),
		Timeout:  viper.GetDuration("generator.timeout"),
	}

	s.Speech = SpeechSettings{
		Engine:    viper.GetString("speech.engine"),
		Rate:      viper.GetFloat64("speech.rate"),
		Pitch:     viper.GetFloat64("speech.pitch"),
		CachePath: viper.GetString("speech.cache_path"),
	}
	if err := CheckRate(s.Speech.Rate); err != nil {
		return s, fmt.Errorf("invalid speech.rate: %w", err)
	}
	if err := CheckPitch(s.Speech.Pitch); err != nil {
		return s, fmt.Errorf("invalid speech.pitch: %w", err)
	}
	if s.Speech.Locale, err = language.Parse(viper.GetString("speech.locale")); err != nil {
		return s, fmt.Errorf("invalid speech.locale: %w", err)
	}
	if s.Speech.FallbackLocale, err = language.Parse(viper.GetString("speech.fallback_locale")); err != nil {
		return s, fmt.Errorf("invalid speech.fallback_locale: %w", err)
	}

	s.Share = ShareSettings{Target: viper.GetString("share.target")}
	return s, nil
}

// Narration limits, 1.0 being normal.
const (
	MinRate  = 0.1
	MaxRate  = 2.0
	MinPitch = 0.5
	MaxPitch = 2.0
)

func CheckRate(rate float64) error {
	if rate < MinRate || rate > MaxRate {
		return fmt.Errorf("rate %v is outside %v..%v", rate, MinRate, MaxRate)
	}
	return nil
}

func CheckPitch(pitch float64) error {
	if pitch < MinPitch || pitch > MaxPitch {
		return fmt.Errorf("pitch %v is outside %v..%v", pitch, MinPitch, MaxPitch)
	}
	return nil
}

// DataDir is where saved stories live by default.
func DataDir() string {
	dir, err := scope.DataPath("")
	if err != nil {
		return "."
	}
	return dir
}

func CacheDir() string {
	dir, err := scope.CacheDir()
	if err != nil {
		return filepath.Join(".", "cache")
	}
	return dir
}

// Package config loads tangomine settings from a YAML file and environment
// variables. Priority: ENV > YAML > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/shiromaru/tangomine/pkg/anki"
)

// Config is the full runtime configuration.
type Config struct {
	Log LogConfig `yaml:"log"`

	Anki struct {
		URL      string   `yaml:"url" env:"TANGOMINE_ANKI_URL" env-default:"http://localhost:8765"`
		Deck     string   `yaml:"deck" env:"TANGOMINE_DECK" env-default:"Mining"`
		NoteType string   `yaml:"note_type" env:"TANGOMINE_NOTE_TYPE" env-default:"Japanese Mining"`
		Tags     []string `yaml:"tags" env:"TANGOMINE_TAGS" env-default:"tangomine"`
	} `yaml:"anki"`

	// Targets are the note collections the known-word cache mirrors.
	Targets []anki.Target `yaml:"targets"`

	Mining struct {
		FreqThreshold int   `yaml:"freq_threshold" env:"TANGOMINE_FREQ_THRESHOLD" env-default:"10000"`
		ClipPadMS     int64 `yaml:"clip_pad_ms" env:"TANGOMINE_CLIP_PAD_MS" env-default:"500"`
		Workers       int   `yaml:"workers" env:"TANGOMINE_WORKERS" env-default:"8"`
		WordAudio     bool  `yaml:"word_audio" env:"TANGOMINE_WORD_AUDIO" env-default:"true"`
		AllowKnown    bool  `yaml:"allow_known" env:"TANGOMINE_ALLOW_KNOWN" env-default:"false"`
	} `yaml:"mining"`

	Paths struct {
		DictDB    string `yaml:"dict_db" env:"TANGOMINE_DICT_DB"`
		FreqDB    string `yaml:"freq_db" env:"TANGOMINE_FREQ_DB"`
		CacheFile string `yaml:"cache_file" env:"TANGOMINE_CACHE_FILE"`
		TempDir   string `yaml:"temp_dir" env:"TANGOMINE_TEMP_DIR"`
	} `yaml:"paths"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"TANGOMINE_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"TANGOMINE_LOG_FORMAT" env-default:"text"`
}

// Load reads configuration. The YAML path comes from TANGOMINE_CONFIG
// (fallback ./tangomine.yaml); a missing default file loads ENV + defaults
// only, a missing explicit file is an error.
func Load() (*Config, error) {
	var cfg Config

	path := os.Getenv("TANGOMINE_CONFIG")
	explicit := path != ""
	if !explicit {
		path = "./tangomine.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills path and target defaults that need runtime lookup.
func (c *Config) applyDefaults() {
	dataDir := defaultDataDir()
	if c.Paths.DictDB == "" {
		c.Paths.DictDB = filepath.Join(dataDir, "dictionary.db")
	}
	if c.Paths.FreqDB == "" {
		c.Paths.FreqDB = filepath.Join(dataDir, "frequency.db")
	}
	if c.Paths.CacheFile == "" {
		c.Paths.CacheFile = filepath.Join(dataDir, "known_words.json")
	}
	if c.Paths.TempDir == "" {
		c.Paths.TempDir = os.TempDir()
	}
	if len(c.Targets) == 0 {
		c.Targets = []anki.Target{
			{NoteType: "Japanese sentences", Field: "VocabKanji"},
			{NoteType: "Kaishi 1.5K", Field: "Word"},
			{NoteType: c.Anki.NoteType, Field: "Expression"},
		}
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tangomine")
	}
	return "."
}

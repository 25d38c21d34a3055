package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	defaultPath         = "~/.nexday/nexday.db"
	defaultSchedulePath = "~/.nexday/schedule"
)

// Config locates the on-disk state.
type Config interface {
	// BasePath is the SQLite database file.
	BasePath() string
	// SchedulePath is the directory holding durable trigger registrations.
	SchedulePath() string
	// LogLevel is one of debug, info, warn or error.
	LogLevel() string
}

// LoadConfig reads .nexday.yaml from $NEXDAY_CONFIG_PATH or the working
// directory, overlaid with NEXDAY_* environment variables. An .env file in the
// working directory is loaded first when present.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("path", defaultPath)
	v.SetDefault("schedule_path", defaultSchedulePath)
	v.SetDefault("log_level", "info")
	v.SetConfigName(".nexday") // .yaml is implicit
	v.SetEnvPrefix("NEXDAY")
	v.AutomaticEnv()

	if override := os.Getenv("NEXDAY_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("store: read config: %w", err)
		}
	}

	path, err := homedir.Expand(v.GetString("path"))
	if err != nil {
		return nil, fmt.Errorf("store: expand path: %w", err)
	}
	schedule, err := homedir.Expand(v.GetString("schedule_path"))
	if err != nil {
		return nil, fmt.Errorf("store: expand schedule path: %w", err)
	}

	return &fileConfig{
		Path:     path,
		Schedule: schedule,
		Level:    v.GetString("log_level"),
	}, nil
}

// NewConfig builds a Config rooted in dir, for tests and embedding.
func NewConfig(dir string) Config {
	return &fileConfig{
		Path:     filepath.Join(dir, "nexday.db"),
		Schedule: filepath.Join(dir, "schedule"),
		Level:    "info",
	}
}

type fileConfig struct {
	Path     string `json:"path"`
	Schedule string `json:"schedule_path"`
	Level    string `json:"log_level"`
}

func (f *fileConfig) BasePath() string {
	return f.Path
}

func (f *fileConfig) SchedulePath() string {
	return f.Schedule
}

func (f *fileConfig) LogLevel() string {
	return f.Level
}

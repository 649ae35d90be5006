// Package daemon holds process configuration: a TOML file layered over
// defaults. The defaults reproduce the reference policy — two users, the
// fixed weekly schedule, the 100-minute grace window.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/studypact/studypact/internal/domain"
)

// Config is the full daemon configuration.
type Config struct {
	API      APIConfig         `toml:"api"`
	Storage  StorageConfig     `toml:"storage"`
	Users    UsersConfig       `toml:"users"`
	Schedule map[string]string `toml:"schedule"` // weekday name → "HH:MM"
	Policy   PolicyConfig      `toml:"policy"`
	Log      LogConfig         `toml:"log"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

// StorageConfig configures the sqlite data directory.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// UsersConfig names the tracked pair.
type UsersConfig struct {
	A string `toml:"a"`
	B string `toml:"b"`
}

// PolicyConfig holds the points-engine constants.
type PolicyConfig struct {
	GraceMinutes      int   `toml:"grace_minutes"`
	BunkPenaltyPoints int64 `toml:"bunk_penalty_points"`
	LatePointsPerDay  int64 `toml:"late_points_per_day"`
	PointsPerCurrency int64 `toml:"points_per_currency"` // display-time conversion only
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		API: APIConfig{
			Host:          "127.0.0.1",
			Port:          8590,
			EnableMetrics: true,
		},
		Storage: StorageConfig{
			Dir: filepath.Join(home, ".studypact"),
		},
		Users: UsersConfig{A: "Kanishk", B: "Anmol"},
		Schedule: map[string]string{
			"monday":    "17:00",
			"wednesday": "17:00",
			"thursday":  "18:30",
			"friday":    "15:00",
		},
		Policy: PolicyConfig{
			GraceMinutes:      100,
			BunkPenaltyPoints: 100,
			LatePointsPerDay:  10,
			PointsPerCurrency: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
	}
}

// Load reads config from path, layering it over defaults. A missing file
// is not an error — defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = filepath.Join(filepath.Dir(cfg.Storage.Dir), ".studypact", "config.toml")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ParsedSchedule converts the raw schedule map into the domain type.
func (c Config) ParsedSchedule() (domain.Schedule, error) {
	return domain.ParseSchedule(c.Schedule)
}

// Pair returns the tracked user pair.
func (c Config) Pair() domain.Pair {
	return domain.Pair{A: c.Users.A, B: c.Users.B}
}

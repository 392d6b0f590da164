// Package config loads pixeldiff settings from the environment. Command-line
// flags override these values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"pixeldiff/signalhandler"
	"pixeldiff/utils"
)

type Config struct {
	DatabasePath string
	LogFile      string
	Verbosity    int
	Workers      int
	Limit        int
	Extensions   []string
	ExcludeDirs  []string
	NoChangeHex  string
}

func Load() *Config {
	return &Config{
		DatabasePath: getEnv("PIXELDIFF_DB", utils.GetDefaultDatabasePath()),
		LogFile:      getEnv("PIXELDIFF_LOGFILE", ""),
		Verbosity:    getEnvInt("PIXELDIFF_VERBOSITY", 1),
		Workers:      getEnvInt("PIXELDIFF_WORKERS", signalhandler.GetOptimalProcs()),
		Limit:        getEnvInt("PIXELDIFF_LIMIT", 10),
		Extensions:   normalizeExtensions(getEnvList("PIXELDIFF_EXTENSIONS", []string{".png", ".jpg", ".bmp"})),
		ExcludeDirs:  getEnvList("PIXELDIFF_EXCLUDE_DIRS", nil),
		NoChangeHex:  getEnv("PIXELDIFF_NOCHANGE_COLOR", "#000000"),
	}
}

// Validate reports the first setting that is out of range
func (c *Config) Validate() error {
	if c.Verbosity < 0 || c.Verbosity > 4 {
		return fmt.Errorf("verbosity must be between 0 and 4, got %d", c.Verbosity)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Limit < 1 {
		return fmt.Errorf("limit must be at least 1, got %d", c.Limit)
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("at least one extension is required")
	}
	return nil
}

// normalizeExtensions lowercases extensions and adds the leading dot
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

// ParseExtensions splits a comma-separated extension list
func ParseExtensions(s string) []string {
	return normalizeExtensions(strings.Split(s, ","))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// Settings holds the user-tunable configuration.
// Values are layered: defaults, then the YAML file, then .env, then ADDRESSBOOK_* variables.
type Settings struct {
	SourceMode         string `yaml:"source_mode"`
	BaseURL            string `yaml:"base_url"`
	LocalPath          string `yaml:"local_path"`
	Username           string `yaml:"username"`
	Language           string `yaml:"language"`
	SortMode           string `yaml:"sort"`
	CachePath          string `yaml:"cache_path"`
	RefreshIntervalMin int    `yaml:"refresh_interval_min"`
	ServerPort         string `yaml:"server_port"`
	MinDisplayMs       int    `yaml:"min_display_ms"`
	ReminderTrigger    string `yaml:"reminder_trigger"`

	// Token is never persisted in the settings file; it comes from the environment or the keyring.
	Token string `yaml:"-"`
}

// DefaultSettings returns the configuration used when nothing else is provided.
func DefaultSettings() Settings {
	return Settings{
		SourceMode:         SourceModeWeb,
		BaseURL:            DefaultBaseURL,
		Language:           DefaultLanguage,
		SortMode:           DefaultSortMode,
		RefreshIntervalMin: DefaultRefreshMin,
		ServerPort:         DefaultPort,
		MinDisplayMs:       int(DefaultMinDisplay / time.Millisecond),
	}
}

// RefreshInterval converts the configured minutes into a duration.
// Non-positive values fall back to the default.
func (s Settings) RefreshInterval() time.Duration {
	if s.RefreshIntervalMin <= DisabledInterval {
		return DefaultRefreshMin * time.Minute
	}
	return time.Duration(s.RefreshIntervalMin) * time.Minute
}

// MinDisplay is the minimum time a loading state stays visible.
func (s Settings) MinDisplay() time.Duration {
	if s.MinDisplayMs < 0 {
		return 0
	}
	return time.Duration(s.MinDisplayMs) * time.Millisecond
}

// Load builds the Settings from path (may be empty or missing) and the environment.
func Load(path string) (Settings, error) {
	s := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug(MsgSettingsDefault, LogKeyComponent, CompMain, LogKeyPath, path)
		case err != nil:
			return s, fmt.Errorf("%s: %w", ErrSettingsRead, err)
		default:
			if err := yaml.Unmarshal(data, &s); err != nil {
				return s, fmt.Errorf("%s: %w", ErrSettingsParse, err)
			}
		}
	}

	// .env is optional; real environment variables take precedence over it.
	if err := godotenv.Load(EnvFileName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return s, fmt.Errorf("%s: %w", ErrEnvFile, err)
	}

	if err := s.applyEnv(); err != nil {
		return s, err
	}

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// applyEnv overrides fields from ADDRESSBOOK_* variables.
func (s *Settings) applyEnv() error {
	strs := map[string]*string{
		EnvSourceMode: &s.SourceMode,
		EnvBaseURL:    &s.BaseURL,
		EnvLocalPath:  &s.LocalPath,
		EnvUsername:   &s.Username,
		EnvToken:      &s.Token,
		EnvLanguage:   &s.Language,
		EnvSortMode:   &s.SortMode,
		EnvCachePath:  &s.CachePath,
		EnvServerPort: &s.ServerPort,
		EnvReminder:   &s.ReminderTrigger,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		EnvRefreshInterval: &s.RefreshIntervalMin,
		EnvMinDisplayMs:    &s.MinDisplayMs,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s %s: %w", ErrEnvValue, key, err)
		}
		*dst = n
	}
	return nil
}

// Validate checks the values that would otherwise fail late at runtime.
func (s Settings) Validate() error {
	switch s.SourceMode {
	case SourceModeWeb:
		if s.BaseURL == "" {
			return errors.New(ErrWebURLEmpty)
		}
	case SourceModeLocal:
		if s.LocalPath == "" {
			return errors.New(ErrLocalPathEmpty)
		}
	default:
		return fmt.Errorf("%s: %q", ErrModeUnsupport, s.SourceMode)
	}

	if !slices.Contains([]string{"none", "alphabetical", "birthday"}, strings.ToLower(s.SortMode)) {
		return fmt.Errorf("%s: %q", ErrSortUnsupport, s.SortMode)
	}

	return ValidatePort(s.ServerPort)
}

// ValidatePort checks that port is a number in the TCP range.
func ValidatePort(port string) error {
	if port == "" {
		return errors.New(ErrPortRequired)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return errors.New(ErrPortNumber)
	}
	if n < MinPort || n > MaxPort {
		return errors.New(ErrPortRange)
	}
	return nil
}

// DefaultSettingsPath returns <user config dir>/<AppID>/config.yaml.
func DefaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrConfigDir, err)
	}
	return filepath.Join(dir, AppID, SettingsFileName), nil
}

// DefaultCachePath returns <user cache dir>/<AppID>/directory.db, creating the directory.
func DefaultCachePath() (string, error) {
	dir, err := AppCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, CacheFileName), nil
}

// AppCacheDir returns the application cache directory, creating it with restricted permissions.
func AppCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, AppID)
	if err := os.MkdirAll(appDir, DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", ErrCreateDir, err)
	}
	return appDir, nil
}

// ResolveToken fills s.Token from the keyring when it was not provided through the environment.
// A missing keyring entry is not an error: the directory may be public.
func (s *Settings) ResolveToken() {
	if s.Token != "" || s.Username == "" {
		return
	}
	token, err := keyring.Get(KeyringService, s.Username)
	if err != nil {
		slog.Debug(MsgTokenMissing,
			LogKeyComponent, CompMain,
			LogKeyUser, s.Username,
			LogKeyError, err)
		return
	}
	s.Token = token
}

// StoreToken saves the API token for username in the OS keyring.
func StoreToken(username, token string) error {
	if err := keyring.Set(KeyringService, username, token); err != nil {
		return fmt.Errorf("%s: %w", ErrKeyringWrite, err)
	}
	return nil
}

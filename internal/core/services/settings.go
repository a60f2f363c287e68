package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driven"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvPrefix prefixes environment variables that override config keys.
// api.url is overridden by PATIENTLY_API_URL.
const EnvPrefix = "PATIENTLY_"

type settingKind int

const (
	kindString settingKind = iota
	kindDuration
	kindInt
	kindFloat
	kindBool
)

// setting binds a config key to a field of domain.Settings.
type setting struct {
	key   string
	kind  settingKind
	apply func(s *domain.Settings, v any)
	show  func(s domain.Settings) any
}

var settingsTable = []setting{
	{"api.url", kindString,
		func(s *domain.Settings, v any) { s.API.BaseURL = strings.TrimRight(v.(string), "/") },
		func(s domain.Settings) any { return s.API.BaseURL }},
	{"api.timeout", kindDuration,
		func(s *domain.Settings, v any) { s.API.Timeout = v.(time.Duration) },
		func(s domain.Settings) any { return s.API.Timeout }},
	{"api.rate_limit", kindFloat,
		func(s *domain.Settings, v any) { s.API.RateLimit = v.(float64) },
		func(s domain.Settings) any { return s.API.RateLimit }},
	{"api.burst", kindInt,
		func(s *domain.Settings, v any) { s.API.Burst = v.(int) },
		func(s domain.Settings) any { return s.API.Burst }},
	{"polling.initial_delay", kindDuration,
		func(s *domain.Settings, v any) { s.Polling.InitialDelay = v.(time.Duration) },
		func(s domain.Settings) any { return s.Polling.InitialDelay }},
	{"polling.retry_delay", kindDuration,
		func(s *domain.Settings, v any) { s.Polling.RetryDelay = v.(time.Duration) },
		func(s domain.Settings) any { return s.Polling.RetryDelay }},
	{"polling.backoff_factor", kindFloat,
		func(s *domain.Settings, v any) { s.Polling.BackoffFactor = v.(float64) },
		func(s domain.Settings) any { return s.Polling.BackoffFactor }},
	{"polling.max_backoff", kindDuration,
		func(s *domain.Settings, v any) { s.Polling.MaxBackoff = v.(time.Duration) },
		func(s domain.Settings) any { return s.Polling.MaxBackoff }},
	{"polling.max_failures", kindInt,
		func(s *domain.Settings, v any) { s.Polling.MaxFailures = v.(int) },
		func(s domain.Settings) any { return s.Polling.MaxFailures }},
	{"polling.max_wait", kindDuration,
		func(s *domain.Settings, v any) { s.Polling.MaxWait = v.(time.Duration) },
		func(s domain.Settings) any { return s.Polling.MaxWait }},
	{"upload.concurrency", kindInt,
		func(s *domain.Settings, v any) { s.Upload.Concurrency = v.(int) },
		func(s domain.Settings) any { return s.Upload.Concurrency }},
	{"upload.inspect", kindBool,
		func(s *domain.Settings, v any) { s.Upload.Inspect = v.(bool) },
		func(s domain.Settings) any { return s.Upload.Inspect }},
	{"cache.backend", kindString,
		func(s *domain.Settings, v any) { s.Cache.Backend = domain.CacheBackend(strings.ToLower(v.(string))) },
		func(s domain.Settings) any { return s.Cache.Backend.String() }},
	{"cache.dir", kindString,
		func(s *domain.Settings, v any) { s.Cache.Dir = v.(string) },
		func(s domain.Settings) any { return s.Cache.Dir }},
	{"metrics.addr", kindString,
		func(s *domain.Settings, v any) { s.Metrics.Addr = v.(string) },
		func(s domain.Settings) any { return s.Metrics.Addr }},
}

// SettingsService resolves settings from the config file with
// environment overrides.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// EnvName returns the environment variable that overrides a key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Get resolves defaults, then the config file, then the environment.
func (s *SettingsService) Get() (domain.Settings, error) {
	settings := domain.DefaultSettings()
	for _, st := range settingsTable {
		raw, ok := s.raw(st.key)
		if !ok {
			continue
		}
		v, err := parseSetting(st.kind, raw)
		if err != nil {
			return settings, fmt.Errorf("setting %s: %w", st.key, err)
		}
		st.apply(&settings, v)
	}
	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// Set validates and persists a single setting.
func (s *SettingsService) Set(key, value string) error {
	st, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	v, err := parseSetting(st.kind, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	candidate, err := s.Get()
	if err != nil {
		candidate = domain.DefaultSettings()
	}
	st.apply(&candidate, v)
	if err := candidate.Validate(); err != nil {
		return err
	}

	stored := st.show(candidate)
	if d, isDuration := stored.(time.Duration); isDuration {
		stored = d.String()
	}
	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys lists the supported setting keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingsTable))
	for i, st := range settingsTable {
		keys[i] = st.key
	}
	return keys
}

// Lookup returns the effective value of a key as text.
func (s *SettingsService) Lookup(key string) (string, error) {
	st, ok := lookupSetting(key)
	if !ok {
		return "", fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	settings, err := s.Get()
	if err != nil {
		return "", err
	}
	return fmt.Sprint(st.show(settings)), nil
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// raw returns the environment override or the stored value for key.
func (s *SettingsService) raw(key string) (string, bool) {
	if v, ok := s.lookupEnv(EnvName(key)); ok && v != "" {
		return v, true
	}
	v, ok := s.configStore.Get(key)
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}

func lookupSetting(key string) (setting, bool) {
	for _, st := range settingsTable {
		if st.key == key {
			return st, true
		}
	}
	return setting{}, false
}

func parseSetting(kind settingKind, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case kindDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a duration", domain.ErrInvalidInput, raw)
		}
		return d, nil
	case kindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidInput, raw)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidInput, raw)
		}
		return f, nil
	case kindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a boolean", domain.ErrInvalidInput, raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}

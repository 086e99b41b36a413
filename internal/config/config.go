package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

const (
	defaultBackend           = storage.BackendAuto
	defaultLogLevel          = "info"
	defaultLogMaxSizeMB      = 10
	defaultLogMaxFiles       = 5
	defaultGeocoderURL       = "https://nominatim.openstreetmap.org"
	defaultGeocoderAgent     = "fieldbuddy/1.0"
	defaultGeocoderTimeout   = 10 * time.Second
	defaultQuickStatsURL     = "https://quickstats.nass.usda.gov/api/api_GET"
	defaultQuickStatsState   = "CA"
	defaultQuickStatsTimeout = 15 * time.Second
	maxRequestTimeout        = 5 * time.Minute
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
	Location  LocationConfig  `toml:"location"`
	Geocoding GeocodingConfig `toml:"geocoding"`
	USDA      USDAConfig      `toml:"usda"`
	Auth      AuthConfig      `toml:"auth"`
}

type StorageConfig struct {
	Backend storage.Backend `toml:"backend"`
	DataDir string          `toml:"data_dir"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

// LocationConfig stands in for the device position. Leaving either
// coordinate unset behaves like a denied location permission.
type LocationConfig struct {
	Latitude  *float64 `toml:"latitude"`
	Longitude *float64 `toml:"longitude"`
}

type GeocodingConfig struct {
	BaseURL   string        `toml:"base_url"`
	UserAgent string        `toml:"user_agent"`
	Timeout   time.Duration `toml:"timeout"`
}

type USDAConfig struct {
	QuickStatsURL string        `toml:"quickstats_url"`
	APIKey        string        `toml:"api_key"`
	DefaultState  string        `toml:"default_state"`
	Timeout       time.Duration `toml:"timeout"`
}

type AuthConfig struct {
	DevBypass bool `toml:"dev_bypass"`
}

type LoadOptions struct {
	ConfigPath string
	Env        map[string]string
	Flags      FlagOverrides
}

type FlagOverrides struct {
	Backend  *string
	DataDir  *string
	LogLevel *string
}

func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend: defaultBackend,
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
		Geocoding: GeocodingConfig{
			BaseURL:   defaultGeocoderURL,
			UserAgent: defaultGeocoderAgent,
			Timeout:   defaultGeocoderTimeout,
		},
		USDA: USDAConfig{
			QuickStatsURL: defaultQuickStatsURL,
			DefaultState:  defaultQuickStatsState,
			Timeout:       defaultQuickStatsTimeout,
		},
	}
}

// Load layers defaults, the TOML file, FIELDBUDDY_* environment variables
// and flags, in that order.
func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	configPath, err := resolveConfigPath(opts)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}
	if err := loadAndApplyFile(configPath, &cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg, opts); err != nil {
		return Config{}, err
	}
	if err := applyFlagOverrides(&cfg, opts.Flags); err != nil {
		return Config{}, err
	}

	if cfg.Storage.DataDir == "" {
		home, err := DataHome(opts.Env)
		if err != nil {
			return Config{}, err
		}
		cfg.Storage.DataDir = home
	}
	cfg.USDA.DefaultState = strings.ToUpper(cfg.USDA.DefaultState)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type rawConfig struct {
	Storage   *rawStorage   `toml:"storage"`
	Logging   *rawLogging   `toml:"logging"`
	Location  *rawLocation  `toml:"location"`
	Geocoding *rawGeocoding `toml:"geocoding"`
	USDA      *rawUSDA      `toml:"usda"`
	Auth      *rawAuth      `toml:"auth"`
}

type rawStorage struct {
	Backend *string `toml:"backend"`
	DataDir *string `toml:"data_dir"`
}

type rawLogging struct {
	Level     *string `toml:"level"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files"`
}

type rawLocation struct {
	Latitude  *float64 `toml:"latitude"`
	Longitude *float64 `toml:"longitude"`
}

type rawGeocoding struct {
	BaseURL   *string `toml:"base_url"`
	UserAgent *string `toml:"user_agent"`
	Timeout   *string `toml:"timeout"`
}

type rawUSDA struct {
	QuickStatsURL *string `toml:"quickstats_url"`
	APIKey        *string `toml:"api_key"`
	DefaultState  *string `toml:"default_state"`
	Timeout       *string `toml:"timeout"`
}

type rawAuth struct {
	DevBypass *bool `toml:"dev_bypass"`
}

func loadAndApplyFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}
	return applyRawConfig(cfg, raw)
}

func applyRawConfig(cfg *Config, raw rawConfig) error {
	if raw.Storage != nil {
		if err := setBackend("storage.backend", raw.Storage.Backend, &cfg.Storage.Backend); err != nil {
			return err
		}
		setString(raw.Storage.DataDir, &cfg.Storage.DataDir)
	}

	if raw.Logging != nil {
		setString(raw.Logging.Level, &cfg.Logging.Level)
		setString(raw.Logging.File, &cfg.Logging.File)
		setInt(raw.Logging.MaxSizeMB, &cfg.Logging.MaxSizeMB)
		setInt(raw.Logging.MaxFiles, &cfg.Logging.MaxFiles)
	}

	if raw.Location != nil {
		if raw.Location.Latitude != nil {
			cfg.Location.Latitude = raw.Location.Latitude
		}
		if raw.Location.Longitude != nil {
			cfg.Location.Longitude = raw.Location.Longitude
		}
	}

	if raw.Geocoding != nil {
		setString(raw.Geocoding.BaseURL, &cfg.Geocoding.BaseURL)
		setString(raw.Geocoding.UserAgent, &cfg.Geocoding.UserAgent)
		if err := setDuration("geocoding.timeout", raw.Geocoding.Timeout, &cfg.Geocoding.Timeout); err != nil {
			return err
		}
	}

	if raw.USDA != nil {
		setString(raw.USDA.QuickStatsURL, &cfg.USDA.QuickStatsURL)
		setString(raw.USDA.APIKey, &cfg.USDA.APIKey)
		setString(raw.USDA.DefaultState, &cfg.USDA.DefaultState)
		if err := setDuration("usda.timeout", raw.USDA.Timeout, &cfg.USDA.Timeout); err != nil {
			return err
		}
	}

	if raw.Auth != nil && raw.Auth.DevBypass != nil {
		cfg.Auth.DevBypass = *raw.Auth.DevBypass
	}
	return nil
}

func applyEnvOverrides(cfg *Config, opts LoadOptions) error {
	if value, ok := lookupEnv(opts, "FIELDBUDDY_BACKEND"); ok {
		if err := setBackend("FIELDBUDDY_BACKEND", &value, &cfg.Storage.Backend); err != nil {
			return err
		}
	}
	if value, ok := lookupEnv(opts, "FIELDBUDDY_DATA_DIR"); ok {
		cfg.Storage.DataDir = value
	}

	if value, ok := lookupEnv(opts, "FIELDBUDDY_LOG_LEVEL"); ok {
		cfg.Logging.Level = value
	}
	if value, ok := lookupEnv(opts, "FIELDBUDDY_LOG_FILE"); ok {
		cfg.Logging.File = value
	}
	if value, ok := lookupEnv(opts, "FIELDBUDDY_LOG_MAX_SIZE_MB"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse FIELDBUDDY_LOG_MAX_SIZE_MB: %v", ErrInvalidConfig, err)
		}
		cfg.Logging.MaxSizeMB = parsed
	}
	if value, ok := lookupEnv(opts, "FIELDBUDDY_LOG_MAX_FILES"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse FIELDBUDDY_LOG_MAX_FILES: %v", ErrInvalidConfig, err)
		}
		cfg.Logging.MaxFiles = parsed
	}

	if value, ok := lookupEnv(opts, "FIELDBUDDY_LATITUDE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: parse FIELDBUDDY_LATITUDE: %v", ErrInvalidConfig, err)
		}
		cfg.Location.Latitude = &parsed
	}
	if value, ok := lookupEnv(opts, "FIELDBUDDY_LONGITUDE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: parse FIELDBUDDY_LONGITUDE: %v", ErrInvalidConfig, err)
		}
		cfg.Location.Longitude = &parsed
	}

	if value, ok := lookupEnv(opts, "FIELDBUDDY_GEOCODER_URL"); ok {
		cfg.Geocoding.BaseURL = value
	}
	if value, ok := lookupEnv(opts, "FIELDBUDDY_GEOCODER_USER_AGENT"); ok {
		cfg.Geocoding.UserAgent = value
	}
	if value, ok := lookupEnv(opts, "FIELDBUDDY_GEOCODER_TIMEOUT"); ok {
		if err := setDuration("FIELDBUDDY_GEOCODER_TIMEOUT", &value, &cfg.Geocoding.Timeout); err != nil {
			return err
		}
	}

	if value, ok := lookupEnv(opts, "FIELDBUDDY_QUICKSTATS_URL"); ok {
		cfg.USDA.QuickStatsURL = value
	}
	if value, ok := lookupEnv(opts, "FIELDBUDDY_USDA_API_KEY"); ok {
		cfg.USDA.APIKey = value
	}
	if value, ok := lookupEnv(opts, "FIELDBUDDY_DEFAULT_STATE"); ok {
		cfg.USDA.DefaultState = value
	}
	if value, ok := lookupEnv(opts, "FIELDBUDDY_USDA_TIMEOUT"); ok {
		if err := setDuration("FIELDBUDDY_USDA_TIMEOUT", &value, &cfg.USDA.Timeout); err != nil {
			return err
		}
	}

	if value, ok := lookupEnv(opts, "FIELDBUDDY_DEV_BYPASS"); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: parse FIELDBUDDY_DEV_BYPASS: %v", ErrInvalidConfig, err)
		}
		cfg.Auth.DevBypass = parsed
	}
	return nil
}

func applyFlagOverrides(cfg *Config, flags FlagOverrides) error {
	if flags.Backend != nil {
		if err := setBackend("--backend", flags.Backend, &cfg.Storage.Backend); err != nil {
			return err
		}
	}
	if flags.DataDir != nil {
		cfg.Storage.DataDir = *flags.DataDir
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	return nil
}

func validate(cfg Config) error {
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level must be one of debug, info, warn, error", ErrInvalidConfig)
	}
	if cfg.Logging.MaxSizeMB <= 0 || cfg.Logging.MaxFiles <= 0 {
		return fmt.Errorf("%w: logging.max_size_mb and logging.max_files must be > 0", ErrInvalidConfig)
	}

	lat, lon := cfg.Location.Latitude, cfg.Location.Longitude
	if (lat == nil) != (lon == nil) {
		return fmt.Errorf("%w: location needs both latitude and longitude", ErrInvalidConfig)
	}
	if lat != nil && (*lat < -90 || *lat > 90) {
		return fmt.Errorf("%w: location.latitude must be within [-90, 90]", ErrInvalidConfig)
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		return fmt.Errorf("%w: location.longitude must be within [-180, 180]", ErrInvalidConfig)
	}

	if cfg.Geocoding.Timeout <= 0 || cfg.Geocoding.Timeout > maxRequestTimeout {
		return fmt.Errorf("%w: geocoding.timeout must be > 0 and <= 5m", ErrInvalidConfig)
	}
	if cfg.USDA.Timeout <= 0 || cfg.USDA.Timeout > maxRequestTimeout {
		return fmt.Errorf("%w: usda.timeout must be > 0 and <= 5m", ErrInvalidConfig)
	}
	if len(cfg.USDA.DefaultState) != 2 {
		return fmt.Errorf("%w: usda.default_state must be a two-letter state code", ErrInvalidConfig)
	}
	return nil
}

func setBackend(field string, raw *string, target *storage.Backend) error {
	if raw == nil {
		return nil
	}
	backend, err := storage.ParseBackend(*raw)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, field, err)
	}
	*target = backend
	return nil
}

func setDuration(field string, raw *string, target *time.Duration) error {
	if raw == nil {
		return nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, field, err)
	}
	*target = d
	return nil
}

func setString(raw *string, target *string) {
	if raw != nil {
		*target = *raw
	}
}

func setInt(raw *int, target *int) {
	if raw != nil {
		*target = *raw
	}
}

func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	if value, ok := lookupEnv(opts, "FIELDBUDDY_CONFIG_PATH"); ok {
		return value, nil
	}
	return defaultConfigPath(opts)
}

func lookupEnv(opts LoadOptions, key string) (string, bool) {
	return lookup(opts.Env, key)
}

func lookup(env map[string]string, key string) (string, bool) {
	if env != nil {
		if value, ok := env[key]; ok {
			return value, true
		}
	}
	return os.LookupEnv(key)
}

// DataHome is where the store files live unless storage.data_dir says
// otherwise.
func DataHome(env map[string]string) (string, error) {
	if value, ok := lookup(env, "FIELDBUDDY_HOME"); ok && value != "" {
		return value, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "FieldBuddy"), nil
	}

	dataHome := filepath.Join(home, ".local", "share")
	if xdgDataHome, ok := lookup(env, "XDG_DATA_HOME"); ok && xdgDataHome != "" {
		dataHome = xdgDataHome
	}
	return filepath.Join(dataHome, "fieldbuddy"), nil
}

func defaultConfigPath(opts LoadOptions) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "FieldBuddy", "config.toml"), nil
	}

	configHome := filepath.Join(home, ".config")
	if xdgConfigHome, ok := lookupEnv(opts, "XDG_CONFIG_HOME"); ok && xdgConfigHome != "" {
		configHome = xdgConfigHome
	}
	return filepath.Join(configHome, "fieldbuddy", "config.toml"), nil
}

package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ProviderDirectory/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "PROVIDER_DIRECTORY_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	geocodeAgentEnv   = "GEOCODE_USER_AGENT"
)

// Duration wraps time.Duration so YAML values like "500ms" or "2s"
// parse directly.
type Duration time.Duration

// UnmarshalYAML parses Go duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std converts to the standard library type.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds high-level settings required across the application.
type Config struct {
	Registry      RegistryConfig     `yaml:"registry"`
	Territory     TerritoryConfig    `yaml:"territory"`
	Geocode       GeocodeConfig      `yaml:"geocode"`
	Ranking       RankingConfig      `yaml:"ranking"`
	Snapshot      SnapshotConfig     `yaml:"snapshot"`
	Output        OutputConfig       `yaml:"output"`
	Database      DatabaseConfig     `yaml:"database"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// RegistryConfig describes the upstream NPI registry query.
type RegistryConfig struct {
	APIURL          string   `yaml:"apiUrl"`
	Version         string   `yaml:"version"`
	State           string   `yaml:"state"`
	Cities          []string `yaml:"cities"`
	PageSize        int      `yaml:"pageSize"`
	Allowlist       []string `yaml:"taxonomyAllowlist"`
	PrivilegedCodes []string `yaml:"privilegedCodes"`
	MaxAttempts     int      `yaml:"maxAttempts"`
	BackoffBase     Duration `yaml:"backoffBase"`
	Timeout         Duration `yaml:"timeout"`
}

// TerritoryConfig selects the geographic inclusion rule.
type TerritoryConfig struct {
	Rule        string   `yaml:"rule"`
	State       string   `yaml:"state"`
	ZipPrefixes []string `yaml:"zipPrefixes"`
}

// GeocodeConfig describes the external geocoder and its per-run limits.
type GeocodeConfig struct {
	Endpoint     string            `yaml:"endpoint"`
	UserAgent    string            `yaml:"userAgent"`
	CachePath    string            `yaml:"cachePath"`
	Budget       int               `yaml:"budget"`
	Politeness   Duration          `yaml:"politeness"`
	Timeout      Duration          `yaml:"timeout"`
	HomeAddress  string            `yaml:"homeAddress"`
	HomeFallback domain.Coordinate `yaml:"homeFallback"`
}

// RankingConfig picks the display ordering strategy.
type RankingConfig struct {
	Mode string `yaml:"mode"`
}

// SnapshotConfig locates the last-good-payload store.
type SnapshotConfig struct {
	Path string `yaml:"path"`
}

// OutputConfig locates the HTML template and the rendered artifact.
type OutputConfig struct {
	TemplatePath string `yaml:"templatePath"`
	OutputPath   string `yaml:"outputPath"`
}

// DatabaseConfig describes the optional run-history Postgres store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SchedulerConfig defines when the build should run.
type SchedulerConfig struct {
	Enabled        bool           `yaml:"enabled"`
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Registry.Cities) == 0 {
		cfg.Registry.Cities = defaultConfig().Registry.Cities
	}
	if len(cfg.Registry.Allowlist) == 0 {
		cfg.Registry.Allowlist = defaultConfig().Registry.Allowlist
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(geocodeAgentEnv); v != "" {
		c.Geocode.UserAgent = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Registry.APIURL != "" {
		base.Registry.APIURL = override.Registry.APIURL
	}
	if override.Registry.Version != "" {
		base.Registry.Version = override.Registry.Version
	}
	if override.Registry.State != "" {
		base.Registry.State = override.Registry.State
	}
	if len(override.Registry.Cities) > 0 {
		base.Registry.Cities = override.Registry.Cities
	}
	if override.Registry.PageSize > 0 {
		base.Registry.PageSize = override.Registry.PageSize
	}
	if len(override.Registry.Allowlist) > 0 {
		base.Registry.Allowlist = override.Registry.Allowlist
	}
	if len(override.Registry.PrivilegedCodes) > 0 {
		base.Registry.PrivilegedCodes = override.Registry.PrivilegedCodes
	}
	if override.Registry.MaxAttempts > 0 {
		base.Registry.MaxAttempts = override.Registry.MaxAttempts
	}
	if override.Registry.BackoffBase > 0 {
		base.Registry.BackoffBase = override.Registry.BackoffBase
	}
	if override.Registry.Timeout > 0 {
		base.Registry.Timeout = override.Registry.Timeout
	}

	if override.Territory.Rule != "" {
		base.Territory.Rule = override.Territory.Rule
	}
	if override.Territory.State != "" {
		base.Territory.State = override.Territory.State
	}
	if len(override.Territory.ZipPrefixes) > 0 {
		base.Territory.ZipPrefixes = override.Territory.ZipPrefixes
	}

	if override.Geocode.Endpoint != "" {
		base.Geocode.Endpoint = override.Geocode.Endpoint
	}
	if override.Geocode.UserAgent != "" {
		base.Geocode.UserAgent = override.Geocode.UserAgent
	}
	if override.Geocode.CachePath != "" {
		base.Geocode.CachePath = override.Geocode.CachePath
	}
	if override.Geocode.Budget > 0 {
		base.Geocode.Budget = override.Geocode.Budget
	}
	if override.Geocode.Politeness > 0 {
		base.Geocode.Politeness = override.Geocode.Politeness
	}
	if override.Geocode.Timeout > 0 {
		base.Geocode.Timeout = override.Geocode.Timeout
	}
	if override.Geocode.HomeAddress != "" {
		base.Geocode.HomeAddress = override.Geocode.HomeAddress
	}
	if override.Geocode.HomeFallback.Lat != 0 || override.Geocode.HomeFallback.Lon != 0 {
		base.Geocode.HomeFallback = override.Geocode.HomeFallback
	}

	if override.Ranking.Mode != "" {
		base.Ranking.Mode = override.Ranking.Mode
	}
	if override.Snapshot.Path != "" {
		base.Snapshot.Path = override.Snapshot.Path
	}
	if override.Output.TemplatePath != "" {
		base.Output.TemplatePath = override.Output.TemplatePath
	}
	if override.Output.OutputPath != "" {
		base.Output.OutputPath = override.Output.OutputPath
	}
	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Pretty {
		base.Logging.Pretty = true
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Registry: RegistryConfig{
			APIURL:   "https://npiregistry.cms.hhs.gov/api/",
			Version:  "2.1",
			State:    "IN",
			PageSize: 200,
			Cities: []string{
				"Indianapolis", "Carmel", "Fishers", "Noblesville", "Westfield",
				"Zionsville", "Greenwood", "Franklin", "Avon", "Plainfield",
				"Brownsburg", "Danville", "Mooresville", "Martinsville",
				"Shelbyville", "Lebanon", "Lawrence", "Speedway", "Beech Grove",
			},
			Allowlist: []string{
				"207RE0101X", // Endocrinology, Diabetes & Metabolism
				"2080P0205X", // Pediatric Endocrinology
				"207Q00000X", // Family Medicine
				"207R00000X", // Internal Medicine
				"363L00000X", // Nurse Practitioner
				"363A00000X", // Physician Assistant
			},
			PrivilegedCodes: []string{"207RE0101X", "2080P0205X"},
			MaxAttempts:     3,
			BackoffBase:     Duration(2 * time.Second),
			Timeout:         Duration(30 * time.Second),
		},
		Territory: TerritoryConfig{Rule: "state", State: "IN"},
		Geocode: GeocodeConfig{
			Endpoint:     "https://nominatim.openstreetmap.org/search",
			UserAgent:    "ProviderDirectory/1.0",
			CachePath:    "data/geocode_cache.json",
			Budget:       25,
			Politeness:   Duration(1100 * time.Millisecond),
			Timeout:      Duration(20 * time.Second),
			HomeAddress:  "1801 N Senate Blvd, Indianapolis, IN 46202",
			HomeFallback: domain.Coordinate{Lat: 39.7910, Lon: -86.1640},
		},
		Ranking:  RankingConfig{Mode: "classification"},
		Snapshot: SnapshotConfig{Path: "data/last_snapshot.json"},
		Output: OutputConfig{
			TemplatePath: "src/template.html",
			OutputPath:   "docs/index.html",
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
		Scheduler: SchedulerConfig{
			Enabled:        false,
			CronExpression: "0 6 * * *",
			Timezone:       defaultTimezone,
			location:       tz,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

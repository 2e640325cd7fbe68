package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultPath = "./configs/config.local.yaml"

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type Backend struct {
	BaseURL     string
	TimeoutSec  int
	RPS         float64
	Burst       int
	MaxInFlight int64
}

func (b Backend) Timeout() time.Duration { return time.Duration(b.TimeoutSec) * time.Second }

// Identity selects and configures the identity provider: "firebase" or "local".
type Identity struct {
	Provider       string
	APIKey         string
	IdentityURL    string
	SecureTokenURL string
	JWTSecret      string
	Issuer         string
	TokenTTLMin    int
}

type Listing struct {
	PageSize    int
	DebounceMs  int
	CacheTTLSec int
	SortBy      string
	Order       string
}

func (l Listing) Debounce() time.Duration { return time.Duration(l.DebounceMs) * time.Millisecond }
func (l Listing) CacheTTL() time.Duration { return time.Duration(l.CacheTTLSec) * time.Second }

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Guard struct {
	LoginPath string
	HomePath  string
}

type Config struct {
	App      App
	Log      Log
	Backend  Backend
	Identity Identity
	Listing  Listing
	Redis    Redis `mapstructure:"redis"`
	Guard    Guard
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "estate-portal")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "127.0.0.1")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 15)
	v.SetDefault("app.http.writeTimeoutSec", 45)
	v.SetDefault("app.http.idleTimeoutSec", 60)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/portal.log")
	v.SetDefault("log.file.maxSizeMB", 50)
	v.SetDefault("log.file.maxBackups", 5)
	v.SetDefault("log.file.maxAgeDays", 14)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("backend.baseURL", "http://localhost:3000")
	v.SetDefault("backend.timeoutSec", 30)
	v.SetDefault("backend.rps", 20)
	v.SetDefault("backend.burst", 40)
	v.SetDefault("backend.maxInFlight", 8)

	v.SetDefault("identity.provider", "firebase")
	v.SetDefault("identity.apiKey", "")
	v.SetDefault("identity.identityURL", "")
	v.SetDefault("identity.secureTokenURL", "")
	v.SetDefault("identity.jwtSecret", "")
	v.SetDefault("identity.issuer", "estate-portal-dev")
	v.SetDefault("identity.tokenTTLMin", 60)

	v.SetDefault("listing.pageSize", 9)
	v.SetDefault("listing.debounceMs", 300)
	v.SetDefault("listing.cacheTTLSec", 0)
	v.SetDefault("listing.sortBy", "postedDate")
	v.SetDefault("listing.order", "desc")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("guard.loginPath", "/login")
	v.SetDefault("guard.homePath", "/")
}

// Load reads the YAML file at path (CONFIG_PATH, then ./configs/config.local.yaml when
// empty) and overlays APP_* environment variables, e.g. APP_BACKEND_BASEURL. The default
// file may be absent; an explicitly named one may not.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := true
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path, explicit = defaultPath, false
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.baseURL is required"))
	}
	switch c.Identity.Provider {
	case "firebase":
		if c.Identity.APIKey == "" {
			errs = append(errs, errors.New("identity.apiKey is required for the firebase provider"))
		}
	case "local":
	default:
		errs = append(errs, fmt.Errorf("identity.provider %q: want firebase or local", c.Identity.Provider))
	}
	if c.Listing.PageSize <= 0 {
		errs = append(errs, errors.New("listing.pageSize must be positive"))
	}
	if c.Listing.DebounceMs < 0 {
		errs = append(errs, errors.New("listing.debounceMs must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

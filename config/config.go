package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "16KB"

	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
	defaultSessionTTL      = 90 * 24 * time.Hour
	defaultStoreTimeout    = 2 * time.Second
	defaultIssuer          = "referral-mobile"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	SecretKey struct {
		// Access signs mobile access tokens (HS256).
		Access string `json:"access" yaml:"access"`
		// Stateless is the hex encoded 32-byte key sealing fallback refresh tokens.
		Stateless string `json:"stateless" yaml:"stateless"`
		// Portal verifies referrer portal link tokens.
		Portal string `json:"portal" yaml:"portal"`
		// Pepper keys the refresh secret digest. Empty means plain SHA-256.
		Pepper string `json:"pepper" yaml:"pepper"`
	} `json:"secretKey" yaml:"secretKey"`

	Session *SessionConfig `json:"session" yaml:"session"`

	// Redis backs rate limiting and the portal token replay guard. Optional.
	Redis *RedisConfig `json:"redis" yaml:"redis"`

	RateLimit *RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`

	// PubSub configuration for session security events
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`

	Metrics *MetricsConfig `json:"metrics" yaml:"metrics"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// SessionConfig holds the session lifetime table shared by both principal types.
type SessionConfig struct {
	Issuer              string        `json:"issuer" yaml:"issuer"`
	AccessTokenTTL      time.Duration `json:"accessTokenTTL" yaml:"accessTokenTTL"`
	RefreshTokenTTL     time.Duration `json:"refreshTokenTTL" yaml:"refreshTokenTTL"`
	SessionTTL          time.Duration `json:"sessionTTL" yaml:"sessionTTL"`
	StatelessRefreshTTL time.Duration `json:"statelessRefreshTTL" yaml:"statelessRefreshTTL"`
	StoreTimeout        time.Duration `json:"storeTimeout" yaml:"storeTimeout"`
	ClockSkew           time.Duration `json:"clockSkew" yaml:"clockSkew"`
}

// RedisConfig defines the redis connection. An empty Addr disables redis.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// RateLimitConfig defines per-endpoint request budgets.
type RateLimitConfig struct {
	Enabled  bool            `json:"enabled" yaml:"enabled"`
	FailOpen bool            `json:"failOpen" yaml:"failOpen"`
	Exchange RateLimitPolicy `json:"exchange" yaml:"exchange"`
	Refresh  RateLimitPolicy `json:"refresh" yaml:"refresh"`
}

type RateLimitPolicy struct {
	Limit  int           `json:"limit" yaml:"limit"`
	Window time.Duration `json:"window" yaml:"window"`
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "local" for local HTTP, "google" for Google Pub/Sub, empty for none
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	var configFile string
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate

			break
		}
	}

	if configFile == "" {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// SESSION_ACCESSTOKENTTL -> session.accessTokenTTL
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			return canonicalizeEnvKey(k, existingConfigMap), v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	cfg.Session = cfg.Session.withDefaults()
	if cfg.RateLimit == nil {
		cfg.RateLimit = &RateLimitConfig{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{}
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Postgres != nil {
		// POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, ...
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

func (s *SessionConfig) withDefaults() *SessionConfig {
	out := SessionConfig{}
	if s != nil {
		out = *s
	}
	if out.Issuer == "" {
		out.Issuer = defaultIssuer
	}
	if out.AccessTokenTTL <= 0 {
		out.AccessTokenTTL = defaultAccessTokenTTL
	}
	if out.RefreshTokenTTL <= 0 {
		out.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	if out.SessionTTL <= 0 {
		out.SessionTTL = defaultSessionTTL
	}
	if out.StatelessRefreshTTL <= 0 {
		out.StatelessRefreshTTL = out.RefreshTokenTTL
	}
	if out.StoreTimeout <= 0 {
		out.StoreTimeout = defaultStoreTimeout
	}

	return &out
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.SecretKey.Access) == "" {
		return errors.New("secretKey.access is required")
	}
	if strings.TrimSpace(c.SecretKey.Stateless) == "" {
		return errors.New("secretKey.stateless is required")
	}
	if c.Session.RefreshTokenTTL > c.Session.SessionTTL {
		return errors.Errorf("session.refreshTokenTTL (%s) exceeds session.sessionTTL (%s)",
			c.Session.RefreshTokenTTL, c.Session.SessionTTL)
	}

	return nil
}

// RedisEnabled reports whether a redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis != nil && strings.TrimSpace(c.Redis.Addr) != ""
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv reads POSTGRES_REPLICAS_{index}_{HOST,PORT,USERNAME,PASSWORD}.
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			break
		}

		replicas = append(replicas, postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		})
	}

	return replicas
}

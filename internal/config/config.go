// Package config provides layered configuration loading for the podmeta
// service. Defaults are merged with PODMETA_-prefixed environment variables
// via koanf, then validated.
package config

import (
	"fmt"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces all environment variables, e.g. PODMETA_ADDR.
const envPrefix = "PODMETA_"

// Interval bounds keep a typo'd env var from spinning the reconcile loop or
// the metrics flusher at pathological rates.
const (
	minReconcileInterval = 10 * time.Second
	maxReconcileInterval = 24 * time.Hour
	minFlushInterval     = time.Second
	maxFlushInterval     = 10 * time.Minute
)

// Config holds the merged runtime configuration for the podmeta service.
// Order of precedence (lowest → highest): Defaults → Environment.
type Config struct {
	Addr                 string        `koanf:"addr" validate:"required,ip_port"`
	DataDir              string        `koanf:"data_dir" validate:"required,safe_dir"`
	Backend              string        `koanf:"backend" validate:"required,oneof=sqlite redis"`
	RedisURL             string        `koanf:"redis_url" validate:"required_if=Backend redis"`
	ListMaxLimit         int           `koanf:"list_max_limit" validate:"min=1,max=10000"`
	ReconcileInterval    time.Duration `koanf:"reconcile_interval"`
	MetricsFlushInterval time.Duration `koanf:"metrics_flush_interval"`
	MetricsToken         string        `koanf:"metrics_token"`
}

// DefaultAppConfig is the baseline configuration before the environment is
// applied.
var DefaultAppConfig = Config{
	Addr:                 ":8080",
	DataDir:              "./data",
	Backend:              "sqlite",
	ListMaxLimit:         1000,
	ReconcileInterval:    5 * time.Minute,
	MetricsFlushInterval: 5 * time.Second,
}

// Loader seams are package vars so tests can inject failures.
var (
	defaultLoader = func(k *koanf.Koanf) error {
		return k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil)
	}
	envLoader = func(k *koanf.Koanf) error {
		return k.Load(env.Provider(".", env.Opt{
			Prefix: envPrefix,
			TransformFunc: func(key, value string) (string, any) {
				return strings.ToLower(strings.TrimPrefix(key, envPrefix)), value
			},
		}), nil)
	}
	registerValidators = func(v *validator.Validate) error {
		if err := v.RegisterValidation("ip_port", validIPPort); err != nil {
			return err
		}
		return v.RegisterValidation("safe_dir", validDataDir)
	}
)

// Load builds the effective configuration: defaults, then environment
// overrides, then struct validation and interval range checks.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	v := validator.New()
	if err := registerValidators(v); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}
	if err := v.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.ReconcileInterval < minReconcileInterval || cfg.ReconcileInterval > maxReconcileInterval {
		return nil, fmt.Errorf("reconcile_interval must be between %s and %s", minReconcileInterval, maxReconcileInterval)
	}
	if cfg.MetricsFlushInterval < minFlushInterval || cfg.MetricsFlushInterval > maxFlushInterval {
		return nil, fmt.Errorf("metrics_flush_interval must be between %s and %s", minFlushInterval, maxFlushInterval)
	}
	return &cfg, nil
}

// SQLiteDSN derives the SQLite connection string from DataDir. WAL keeps
// readers unblocked during writes; synchronous FULL trades throughput for
// durability of freshly minted tokens.
func (c *Config) SQLiteDSN() string {
	const params = "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_synchronous=FULL"
	dir := c.DataDir
	if dir != "" && dir[len(dir)-1] != '/' {
		dir += "/"
	}
	return "file:" + dir + "podmeta.db" + params
}

// validIPPort accepts host:port where host is empty or a literal IP and port
// is numeric in [1, 65535]. Hostnames are rejected; a listen address should
// not depend on a resolver.
func validIPPort(fl validator.FieldLevel) bool {
	host, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	if host != "" && net.ParseIP(host) == nil {
		return false
	}
	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil || n == 0 {
		return false
	}
	return true
}

// validDataDir rejects degenerate or escaping paths. The data dir is created
// at startup, so anything that cleans to "/", ".", or climbs out via ".." is
// refused.
func validDataDir(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return false
		}
	}
	clean := path.Clean(p)
	return clean != "." && clean != "/" && clean != ""
}

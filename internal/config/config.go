package config

import "time"

// WatcherConfig is the root configuration for a watcher instance.
type WatcherConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Poller   PollerConfig   `yaml:"poller"`
	Hub      HubConfig      `yaml:"hub"`
	Server   ServerConfig   `yaml:"server"`
}

// InstanceConfig identifies this watcher.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// UpstreamConfig holds the HTTP upstream endpoints.
type UpstreamConfig struct {
	Endpoints  []string      `yaml:"endpoints"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// DatabaseConfig holds the optional relational upstream. When enabled,
// the orders table is polled alongside (or instead of) the HTTP
// endpoints.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig holds the optional snapshot mirror used for warm starts.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// PollerConfig holds change-detection poller settings.
type PollerConfig struct {
	Interval          time.Duration `yaml:"interval"`
	BroadcastInactive bool          `yaml:"broadcast_inactive"`
}

// HubConfig holds broadcast hub settings.
type HubConfig struct {
	SendBuffer   int           `yaml:"send_buffer"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

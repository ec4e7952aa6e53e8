package config

import "time"

type Config struct {
	Server    ServerConfig
	Transport TransportConfig
	Store     StoreConfig
	Log       LogConfig
}

type ServerConfig struct {
	Address    string
	CORSOrigin string          `mapstructure:"corsOrigin"`
	Auth       AuthConfig      `mapstructure:"auth"`
	RateLimit  RateLimitConfig `mapstructure:"rateLimit"`
}

// AuthConfig guards the HTTP completion API only. Socket connections are
// trusted by contract; the announced identity is taken as-is.
type AuthConfig struct {
	APISecret string `mapstructure:"apiSecret"`
}

type RateLimitConfig struct {
	// Sustained upgrade/API requests per second allowed per client IP.
	PerIP float64 `mapstructure:"perIP"`
	Burst int     `mapstructure:"burst"`
}

type TransportConfig struct {
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	PingInterval time.Duration `mapstructure:"pingInterval"`
	SendBuffer   int           `mapstructure:"sendBuffer"`
}

type StoreConfig struct {
	// DSN for the sqlite database file. ":memory:" is accepted for tests.
	DSN string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

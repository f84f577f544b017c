// Package config loads the client settings from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	pkgerrors "github.com/pkg/errors"

	"github.com/haxii/fastresp/bufiopool"
	"github.com/haxii/fastresp/result"
	"github.com/haxii/fastresp/stream"
	"github.com/haxii/fastresp/transport"
)

// DefaultPrefix of every environment variable
const DefaultPrefix = "FASTRESP_"

// Config of the engine, the response streams and the result pool
type Config struct {
	MaxConnsPerHost     int           `env:"MAX_CONNS_PER_HOST"`
	MaxIdleConnDuration time.Duration `env:"MAX_IDLE_CONN_DURATION"`
	MaxConnDuration     time.Duration `env:"MAX_CONN_DURATION"`

	DialTimeout  time.Duration `env:"DIAL_TIMEOUT"  envDefault:"10s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT"  envDefault:"30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`

	ReadBufferSize  int `env:"READ_BUFFER_SIZE"`
	WriteBufferSize int `env:"WRITE_BUFFER_SIZE"`

	SinkCapacity       int `env:"SINK_CAPACITY"`
	ResultPoolCapacity int `env:"RESULT_POOL_CAPACITY"`

	InsecureSkipVerify bool `env:"INSECURE_SKIP_VERIFY"`

	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"fastresp"`
	LogLevel         string `env:"LOG_LEVEL"         envDefault:"info"`
}

// Load parses the variables named prefix + field tag, DefaultPrefix if
// prefix is empty. Zero values are replaced by package defaults.
func Load(prefix string) (Config, error) {
	if len(prefix) == 0 {
		prefix = DefaultPrefix
	}
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix}); err != nil {
		return Config{}, pkgerrors.Wrap(err, "fail to parse config")
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MaxConnsPerHost <= 0 {
		c.MaxConnsPerHost = transport.DefaultMaxConnsPerHost
	}
	if c.MaxIdleConnDuration <= 0 {
		c.MaxIdleConnDuration = transport.DefaultMaxIdleConnDuration
	}
	if c.ReadBufferSize < bufiopool.MinReadBufferSize {
		c.ReadBufferSize = bufiopool.MinReadBufferSize
	}
	if c.WriteBufferSize < bufiopool.MinWriteBufferSize {
		c.WriteBufferSize = bufiopool.MinWriteBufferSize
	}
	if c.SinkCapacity <= 0 {
		c.SinkCapacity = stream.DefaultCapacity
	}
	if c.ResultPoolCapacity <= 0 {
		c.ResultPoolCapacity = result.DefaultCapacity
	}
}

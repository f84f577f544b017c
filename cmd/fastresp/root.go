package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/haxii/fastresp/bufiopool"
	"github.com/haxii/fastresp/client"
	"github.com/haxii/fastresp/config"
	"github.com/haxii/fastresp/engine"
	"github.com/haxii/fastresp/log"
	"github.com/haxii/fastresp/metrics"
	"github.com/haxii/fastresp/result"
	"github.com/haxii/fastresp/transport"
	"github.com/haxii/fastresp/usage"
)

type rootOptions struct {
	envFile   string
	envPrefix string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "fastresp",
		Short:         "Issue HTTP requests and classify their responses",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment, skipped if missing")
	cmd.PersistentFlags().StringVar(&opts.envPrefix, "env-prefix", config.DefaultPrefix, "prefix of the configuration variables")
	cmd.AddCommand(newGetCmd(opts))
	return cmd
}

// loadConfig loads the dotenv file, if any, then the environment
func (o *rootOptions) loadConfig() (config.Config, error) {
	if len(o.envFile) > 0 {
		// .env file is optional
		_ = godotenv.Load(o.envFile)
	}
	return config.Load(o.envPrefix)
}

// newClient wires the engine, the result pool and the metrics from cfg
func newClient(cfg config.Config, m *metrics.Metrics) *client.Client {
	logger := log.ForLevel("fastresp", cfg.LogLevel)
	e := &engine.Engine{
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		MaxIdleConnDuration: cfg.MaxIdleConnDuration,
		MaxConnDuration:     cfg.MaxConnDuration,
		DialTimeout:         cfg.DialTimeout,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		BufioPool:           bufiopool.New(cfg.ReadBufferSize, cfg.WriteBufferSize),
		Usage:               &usage.Traffic{},
		Logger:              logger,
	}
	if m != nil {
		m.RegisterTraffic(e.Usage)
	}
	if cfg.InsecureSkipVerify {
		e.TLSConfig = transport.MakeClientTLSConfig("", "", true)
	}
	return &client.Client{
		Engine:       e,
		Results:      result.NewPool(cfg.ResultPoolCapacity, result.Options{Logger: logger, Observer: m}),
		SinkCapacity: cfg.SinkCapacity,
		Observer:     m,
		Logger:       logger,
	}
}

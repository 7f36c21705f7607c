package main

import "time"

// Config holds server configuration loaded from environment variables.
type Config struct {
	Port         int    `envconfig:"PORT" default:"8080"`
	BaseURL      string `envconfig:"BASE_URL" default:"http://localhost:8080"`
	StoreBackend string `envconfig:"STORE_BACKEND" default:"memory"` // memory, redis, or postgres
	RedisURL     string `envconfig:"REDIS_URL"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`

	PollInterval  time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`

	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
}

// Package config provides configuration loaded from environment variables
// for the host daemon and the caller-facing bridge commands.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds inkbridge configuration.
type Config struct {
	// Bus: the session-scoped local message bus. With BUS_EMBEDDED the host
	// runs the bus in-process and BUS_URL is ignored on the host side.
	BusURL          string `envconfig:"BUS_URL" default:"nats://127.0.0.1:4222"`
	BusEmbedded     bool   `envconfig:"BUS_EMBEDDED" default:"true"`
	BusEmbeddedPort int    `envconfig:"BUS_EMBEDDED_PORT" default:"4222"`
	ServiceName     string `envconfig:"SERVICE_NAME" default:"inkbridge"`

	// SessionID scopes the request subject; one host listens per session.
	SessionID string `envconfig:"SESSION_ID" default:"default"`

	// Subject overrides (empty = derive from SessionID / defaults)
	RequestSubject     string `envconfig:"REQUEST_SUBJECT"`
	ChangeEventSubject string `envconfig:"CHANGE_EVENT_SUBJECT"`

	// Document
	DocumentFile   string `envconfig:"DOCUMENT_FILE"`
	DocumentWidth  string `envconfig:"DOCUMENT_WIDTH" default:"800"`
	DocumentHeight string `envconfig:"DOCUMENT_HEIGHT" default:"600"`

	// Timeouts
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"25s"`
	ExecTimeout    time.Duration `envconfig:"EXEC_TIMEOUT" default:"10s"`
	BridgeTimeout  time.Duration `envconfig:"BRIDGE_TIMEOUT" default:"10s"`

	// HTTP health endpoint
	HTTPAddr           string        `envconfig:"HTTP_ADDR" default:":8090"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateForServe checks required config when running the host daemon.
func (c *Config) ValidateForServe() error {
	if c.SessionID == "" {
		return fmt.Errorf("%s - SESSION_ID is required for serve", logPrefix)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.ExecTimeout <= 0 {
		return fmt.Errorf("%s - EXEC_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	return nil
}

// ValidateForSend checks required config when sending requests to a host.
func (c *Config) ValidateForSend() error {
	if c.BusURL == "" {
		return fmt.Errorf("%s - BUS_URL is required", logPrefix)
	}
	if c.BridgeTimeout <= 0 {
		return fmt.Errorf("%s - BRIDGE_TIMEOUT must be positive", logPrefix)
	}
	return nil
}

package rabbitmq

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DialConfig holds the AMQP connection knobs. Mirrors the plain
// os.Getenv-with-inline-defaults pattern used elsewhere in this module
// for connection configuration (no config-file parser, no env
// framework).
type DialConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
	Timeout  time.Duration
}

// ConfigFromEnv reads AMQP_HOST, AMQP_PORT, AMQP_USER, AMQP_PASSWORD,
// AMQP_VHOST, AMQP_TIMEOUT, falling back to the documented defaults
// (localhost, 5672, guest, guest, /, 60s).
func ConfigFromEnv() DialConfig {
	cfg := DefaultDialConfig()

	if v := os.Getenv("AMQP_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("AMQP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("AMQP_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("AMQP_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("AMQP_VHOST"); v != "" {
		cfg.VHost = v
	}
	if v := os.Getenv("AMQP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}

	return cfg
}

// DefaultDialConfig returns the documented defaults.
func DefaultDialConfig() DialConfig {
	return DialConfig{
		Host:     "localhost",
		Port:     5672,
		User:     "guest",
		Password: "guest",
		VHost:    "/",
		Timeout:  60 * time.Second,
	}
}

// URL renders the AMQP connection URL for this configuration.
func (c DialConfig) URL() string {
	vhost := c.VHost
	if vhost == "/" {
		vhost = ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, vhost)
}

// connKey is the connection-pool key: (processID, host, port, user, password,
// vhost, timeout). processID is filled in by the pool itself.
type connKey struct {
	processID int
	host      string
	port      int
	user      string
	password  string
	vhost     string
	timeout   time.Duration
}

func (c DialConfig) keyWithPID(pid int) connKey {
	return connKey{
		processID: pid,
		host:      c.Host,
		port:      c.Port,
		user:      c.User,
		password:  c.Password,
		vhost:     c.VHost,
		timeout:   c.Timeout,
	}
}

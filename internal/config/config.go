// Package config holds the process-scoped value threading an active
// broker handle through submit and worker operations.
//
// Per the design notes this replaces a class-level singleton: a
// Configuration is an explicit value, constructed by the caller and
// passed (or installed once as the process default at startup).
package config

import (
	"fmt"
	"sync"

	"github.com/shaiso/jobbroker/internal/broker"
)

// Configuration holds the active broker handle and operational knobs
// shared by a process's clients and workers.
type Configuration struct {
	// Broker is the broker handle used by RunRemotely/AddToQueue/
	// StartWorker when no explicit broker is supplied.
	Broker broker.Broker
}

var (
	defaultMu  sync.Mutex
	defaultCfg *Configuration
)

// SetDefault installs the process-wide default Configuration. It may only
// be called once; subsequent calls return an error so that the default is
// mutable only during startup, never mid-flight.
func SetDefault(cfg *Configuration) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultCfg != nil {
		return fmt.Errorf("config: default configuration already set")
	}
	if cfg == nil || cfg.Broker == nil {
		return fmt.Errorf("config: configuration must carry a non-nil broker")
	}
	defaultCfg = cfg
	return nil
}

// Default returns the process-wide default Configuration, or nil if
// SetDefault has not been called yet.
func Default() *Configuration {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultCfg
}

// resetDefaultForTest clears the installed default. Test-only.
func resetDefaultForTest() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultCfg = nil
}

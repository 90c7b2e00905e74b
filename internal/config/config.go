package config

import (
	"fmt"
	"strings"
)

// Config carries the runtime settings of the tensor core: logging, the
// accelerator toggle, and debug instrumentation. Graph construction and
// training configuration live with the surrounding application.
type Config struct {
	LogLevel  string
	LogFormat string

	DeviceEnabled   bool
	DeviceThreads   int
	MaxDeviceMemory int64

	DebugTransfers   bool
	DebugAllocations bool
}

func (c *Config) Validate() error {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("invalid log_level: %q (must be DEBUG, INFO, WARN or ERROR)", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log_format: %q (must be console or json)", c.LogFormat)
	}
	if c.DeviceThreads < 0 {
		return fmt.Errorf("invalid device_threads: %d (must be non-negative)", c.DeviceThreads)
	}
	if c.MaxDeviceMemory < 0 {
		return fmt.Errorf("invalid max_device_memory: %d (must be non-negative)", c.MaxDeviceMemory)
	}
	return nil
}

func Default() Config {
	return Config{
		LogLevel:        "INFO",
		LogFormat:       "console",
		DeviceEnabled:   true,
		DeviceThreads:   0, // 0 means one per CPU
		MaxDeviceMemory: 32 * 1024 * 1024 * 1024,
	}
}

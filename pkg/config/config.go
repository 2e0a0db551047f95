// Package config holds the settings shared by the connect and listen
// commands and their validation logic.
package config

import (
	"fmt"
	"time"

	"dualdial/pkg/log"
)

// Shared holds settings common to both CLI modes.
type Shared struct {
	Host    string
	Port    int
	UDP     bool
	LogFile string
	Timeout time.Duration
	Verbose bool

	Logger *log.Logger
}

// Validate checks the configuration and returns all problems found.
func (c *Shared) Validate() []error {
	var errors []error

	if err := validatePort(c.Port); err != nil {
		errors = append(errors, fmt.Errorf("'--port': %s", err))
	}

	if c.Timeout < 0 {
		errors = append(errors, fmt.Errorf("'--timeout' must not be negative"))
	}

	return errors
}

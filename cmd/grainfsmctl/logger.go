package main

import (
	"github.com/quoriumlabs/grainfsm/logging"
)

// SetupLogger configures the default logger based on the provided log level.
func SetupLogger(logLevel string) {
	logging.SetupLogger(logLevel)
}

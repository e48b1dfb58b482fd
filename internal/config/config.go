package config

import "time"

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment.
	DefaultDatabaseURL = ""

	// DefaultAIServiceURL is the base URL of the external AI compute service.
	DefaultAIServiceURL = "http://localhost:5000"

	// DefaultAIServiceTimeout bounds a single submit or poll call.
	DefaultAIServiceTimeout = 60 * time.Second

	// InitialSyncDelay is the delay before the first background status poll
	// of a dispatched task.
	InitialSyncDelay = 2 * time.Second

	// MaxSyncDelay caps the exponential backoff between status polls.
	MaxSyncDelay = 15 * time.Second
)

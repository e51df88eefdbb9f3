package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for pending writes and event delivery on shutdown.
	shutdownTimeout = 10 * time.Second
)

package ports

// Runner is a long-running ticket ingest surface. The poller and the
// webhook server implement it; the daemon starts every configured runner
// and stops them all on shutdown.
type Runner interface {
	// Start begins serving in the background and must not block
	Start() error

	// Stop shuts the surface down, waiting for in-flight work
	Stop() error
}

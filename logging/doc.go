// Package logging provides a tiny abstraction over structured loggers so
// downstream code can depend on a minimal interface (Logger) while allowing
// users to plug slog, zerolog or any other backend. It also offers domain
// helpers that give model calls and workflow runs a consistent shape.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the graph, the runner and the agents use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZerologAdapter wrapping github.com/rs/zerolog
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info", Backend: "zerolog"})
//	r := runner.New(workflow, func(o *runner.Options) { o.Logger = logger })
package logging

// Package testutil contains fluent builders used across tests to reduce the
// boilerplate of constructing health states and run contexts. They are not
// intended for production usage.
package testutil

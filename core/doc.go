// Package core provides the foundational domain types, interfaces and execution
// contexts used by healthbot. It defines the core abstractions for:
//
//   - HealthState (the shared state of a chat turn) and Update (a staged,
//     mergeable change with per-field policies)
//   - Agents (the nodes of a chat workflow)
//   - Events (immutable records streamed while a turn executes)
//   - RunContext (scoped execution with branch isolation)
//   - Pluggable stores for symptom logs, long-term and short-term memory
//
// The package keeps implementation concerns (persistence, orchestration,
// concrete agents) out of scope, exposing small interfaces to enable custom
// backends.
package core

// Package session houses concrete implementations of core.SessionStore, the
// short-term memory holding the most recent turns of a chat session.
//
// InMemoryStore keeps turns in a process local map. RedisStore keeps one list
// per session in Redis, trimmed to the newest MaxTurns entries and expiring
// after an idle TTL. Only the wiring layer decides which one to instantiate.
package session

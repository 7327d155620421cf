// Package memory provides an in-process implementation of the long-term
// stores (symptom logs and conversation memory) for tests, demos and
// deployments without a database.
package memory

// Package runner executes chat turns.
//
// A Runner owns the per-turn plumbing around the assistant workflow:
//   - Input validation and initial state construction, including the recent
//     turns of the short-term session store
//   - A per-run model call budget and timeout
//   - Event streaming (async Run) or collection (RunSync)
//   - Cancellation of active runs and chat metrics
//
// The last event of a successful run is a final event (core.Event.IsFinal)
// carrying the complete change set of the run and the answer for the user.
package runner

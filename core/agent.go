package core

// Agent is a node of a chat workflow.
//
// Agents read the current HealthState through rc.State(), stage their changes
// with rc.Stage and optionally emit events through rc.EmitEvent. Whatever is
// still staged when Run returns is committed by the orchestrator.
//
// Implementations must:
//   - Respect context cancellation (rc.Context)
//   - Never mutate the state returned by rc.State()
//   - Return an error only for failures that should abort the chat turn;
//     degradable failures are recorded in the staged update instead
type Agent interface {
	Name() string
	Run(rc *RunContext) error
}

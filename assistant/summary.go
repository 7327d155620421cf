package assistant

import (
	"maps"
	"slices"
	"strings"

	"github.com/hupe1980/healthbot/agent"
	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/prompt"
)

// supervisor joins all branches and appends the compiled response footer.
func (a *Assistant) supervisor() core.Agent {
	return agent.NewFuncAgent(NodeSupervisor, func(rc *core.RunContext) error {
		s := rc.State()

		var status string

		switch {
		case s.AlertSent:
			status = "🚨 Emergency alert was triggered due to symptom severity."
		case s.EmergencyDetected:
			status = "🚨 Emergency symptoms were detected. Please seek medical help immediately."
		default:
			status = "✅ No emergency alert was necessary."
		}

		path := PathCompiled
		if s.AlertSent {
			path = PathEmergency
		}

		u := &core.Update{RecommendedPath: path}
		u.AppendResponse("👨‍⚕️ Supervisor Summary:\n" + status + "\n📝 The above response includes remedies, info, and suggestions.")
		rc.Stage(u)

		return nil
	})
}

// summaryMemory combines long-term memory with the earlier turns of the
// session, excluding the current user message.
func summaryMemory(s *core.HealthState) string {
	lines := slices.Clone(s.MemoryContext)

	earlier := s.Messages
	if n := len(earlier); n > 0 && earlier[n-1].Role == core.RoleUser {
		earlier = earlier[:n-1]
	}

	for _, m := range earlier {
		switch m.Role {
		case core.RoleUser:
			lines = append(lines, "Human: "+m.Content)
		case core.RoleAssistant:
			lines = append(lines, "AI: "+m.Content)
		}
	}

	return strings.Join(lines, "\n")
}

// summaryOutputs lists the agent outputs by name.
func summaryOutputs(outputs map[string]string) []prompt.Output {
	var out []prompt.Output

	for _, k := range slices.Sorted(maps.Keys(outputs)) {
		if k == NodeFinalSummary {
			continue
		}

		out = append(out, prompt.Output{Name: k, Text: outputs[k]})
	}

	return out
}

// finalSummary synthesizes the agent outputs and memory into the answer shown
// to the user. The compiled response is the fallback.
func (a *Assistant) finalSummary() core.Agent {
	return agent.NewFuncAgent(NodeFinalSummary, func(rc *core.RunContext) error {
		s := rc.State()

		summary, err := a.complete(rc, a.model, NodeFinalSummary, prompt.Data{
			Query:     s.LastUserMessage(),
			Outputs:   summaryOutputs(s.AgentOutputs),
			Memory:    summaryMemory(s),
			Recall:    s.RecallRequested,
			Emergency: s.EmergencyDetected,
		})
		if err != nil || summary == "" {
			rc.LogWarn("final summary failed, using compiled response", "error", err)
			summary = s.ResponseMessage
		}

		u := &core.Update{Messages: []core.Message{{Role: core.RoleAssistant, Content: summary}}}
		u.SetOutput(NodeFinalSummary, summary)
		rc.Stage(u)

		return nil
	})
}

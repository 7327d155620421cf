package assistant

import (
	"fmt"
	"maps"

	"github.com/hupe1980/healthbot/agent"
	"github.com/hupe1980/healthbot/core"
)

// memoryReader loads the most recent long-term conversations of the user.
func (a *Assistant) memoryReader() core.Agent {
	return agent.NewFuncAgent(NodeMemoryReader, func(rc *core.RunContext) error {
		store := rc.Services.Memory
		if store == nil {
			return nil
		}

		pairs, err := store.MemoryPairs(rc.Context, rc.UserID, a.opts.MemoryPairs)
		if err != nil {
			rc.LogWarn("memory read failed", "error", err)
			return nil
		}

		formatted := make([]string, 0, len(pairs))
		for _, p := range pairs {
			formatted = append(formatted, fmt.Sprintf("Human: %s\nAI: %s", p.User, p.Assistant))
		}

		rc.LogDebug("memory loaded", "pairs", len(formatted))
		rc.Stage(&core.Update{MemoryContext: formatted})

		return nil
	})
}

// memoryWriter persists the finished turn to long-term and short-term memory.
// Failures are logged and never abort the turn.
func (a *Assistant) memoryWriter() core.Agent {
	return agent.NewFuncAgent(NodeMemoryWriter, func(rc *core.RunContext) error {
		s := rc.State()
		query := s.LastUserMessage()
		answer := core.FinalAnswer(s.AgentOutputs)

		if store := rc.Services.Memory; store != nil {
			err := store.StoreConversation(rc.Context, core.ConversationRecord{
				UserID:    s.UserID,
				Message:   query,
				Intents:   s.Intents,
				Results:   maps.Clone(s.AgentOutputs),
				Timestamp: a.opts.now().UTC(),
			})
			if err != nil {
				rc.LogError("memory write failed", "error", err)
			}
		}

		if sessions := rc.Services.Sessions; sessions != nil {
			err := sessions.AppendTurns(rc.Context, s.SessionID,
				core.Message{Role: core.RoleUser, Content: query},
				core.Message{Role: core.RoleAssistant, Content: answer},
			)
			if err != nil {
				rc.LogError("session write failed", "error", err)
			}
		}

		return nil
	})
}

package assistant

import (
	"regexp"
	"slices"

	"github.com/hupe1980/healthbot/agent"
	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/prompt"
)

// IntentFallback is recorded when no responder intent could be classified.
const IntentFallback = "fallback"

var intentPattern = regexp.MustCompile(`\b(home_remedy|info_search|physical_relief|general_medical)\b`)

// extractIntents returns the valid labels in order of first appearance.
func extractIntents(text string) []string {
	var out []string

	for _, m := range intentPattern.FindAllString(text, -1) {
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}

	if len(out) == 0 {
		return []string{IntentFallback}
	}

	return out
}

// intentClassifier labels the query with the responder intents.
func (a *Assistant) intentClassifier() core.Agent {
	return agent.NewFuncAgent(NodeIntentClassifier, func(rc *core.RunContext) error {
		query := rc.State().LastUserMessage()

		reply, err := a.complete(rc, a.model, NodeIntentClassifier, prompt.Data{Query: query})
		if err != nil {
			rc.LogWarn("intent classification failed", "error", err)
			rc.Stage(&core.Update{Intents: []string{IntentFallback}})

			return nil
		}

		intents := extractIntents(reply)
		rc.LogDebug("intents classified", "intents", intents)
		rc.Stage(&core.Update{Intents: intents})

		return nil
	})
}

// routeIntents maps intents to responder nodes. A symptom with a known
// stretch also dispatches physical relief; general medical advice is the
// fallback so that at least one responder always runs.
func (a *Assistant) routeIntents(s *core.HealthState) []string {
	var out []string

	add := func(n string) {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}

	for _, in := range s.Intents {
		switch in {
		case NodeHomeRemedy, NodePhysicalRelief, NodeInfoSearch, NodeGeneralMedical:
			add(in)
		case IntentFallback:
			add(NodeGeneralMedical)
		}
	}

	if len(stretchesFor(s.Symptoms)) > 0 {
		add(NodePhysicalRelief)
	}

	if len(out) == 0 {
		add(NodeGeneralMedical)
	}

	return out
}

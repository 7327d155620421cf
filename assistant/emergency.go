package assistant

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/healthbot/agent"
	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/metrics"
	"github.com/hupe1980/healthbot/notify"
	"github.com/hupe1980/healthbot/prompt"
)

const (
	flagAI        = "🚨 Emergency detected by AI"
	flagSent      = "✅ WhatsApp alert sent."
	flagSuppress  = "⏱️ Alert suppressed: emergency contacts were alerted recently."
	emergencyRisk = 0.9
)

// emergencyDetector runs the frequency check and the AI classifier
// concurrently and then decides whether the turn is an emergency.
func (a *Assistant) emergencyDetector() core.Agent {
	checks := agent.NewParallelAgent("checks", 0,
		agent.NewFuncAgent("frequency_check", a.frequencyCheck),
		agent.NewFuncAgent("emergency_classifier", a.classifyEmergency),
	)

	return agent.NewSequentialAgent(NodeEmergencyDetector,
		checks,
		agent.NewFuncAgent("emergency_decision", a.decideEmergency),
	)
}

// frequencyCheck flags symptoms reported at least EmergencyThreshold times
// within the emergency window.
func (a *Assistant) frequencyCheck(rc *core.RunContext) error {
	store := rc.Services.Symptoms
	s := rc.State()

	if store == nil || len(s.Symptoms) == 0 {
		return nil
	}

	since := a.opts.now().Add(-a.opts.EmergencyWindow)

	freq, err := store.SymptomFrequencies(rc.Context, s.UserID, s.Symptoms, since)
	if err != nil {
		rc.LogWarn("emergency frequency lookup failed", "error", err)
		return nil
	}

	var frequent []string

	for _, sym := range s.Symptoms {
		if freq[sym] >= a.opts.EmergencyThreshold {
			frequent = append(frequent, sym)
		}
	}

	if len(frequent) == 0 {
		return nil
	}

	rc.Stage(&core.Update{
		FrequentSymptoms: frequent,
		RiskScore:        emergencyRisk,
		EmergencyFlags:   []string{"⚠️ Frequent symptom: " + strings.Join(frequent, ", ")},
	})

	return nil
}

// isEmergencyVerdict accepts replies starting with "emergency" after
// stripping quotes and markup, so "NON-EMERGENCY" stays safe.
func isEmergencyVerdict(reply string) bool {
	v := strings.ToLower(strings.TrimSpace(reply))
	v = strings.TrimLeft(v, "\"'`*_#:- ")

	return strings.HasPrefix(v, "emergency")
}

// classifyEmergency asks the model for an EMERGENCY or SAFE verdict. A
// failing model is treated as SAFE.
func (a *Assistant) classifyEmergency(rc *core.RunContext) error {
	query := rc.State().LastUserMessage()

	reply, err := a.complete(rc, a.model, "emergency_classifier", prompt.Data{Query: query})
	if err != nil {
		rc.LogWarn("emergency classification failed, assuming safe", "error", err)
		return nil
	}

	if isEmergencyVerdict(reply) {
		rc.Stage(&core.Update{EmergencyFlags: []string{flagAI}})
	}

	return nil
}

// decideEmergency marks the turn and surfaces an escalation event right away.
func (a *Assistant) decideEmergency(rc *core.RunContext) error {
	s := rc.State()

	if len(s.FrequentSymptoms) == 0 && !slices.Contains(s.EmergencyFlags, flagAI) {
		return nil
	}

	rc.Stage(&core.Update{EmergencyDetected: true})
	rc.LogWarn("emergency detected", "flags", s.EmergencyFlags)

	return rc.EmitEvent(core.NewEscalationEvent(rc.RunID, NodeEmergencyDetector, strings.Join(s.EmergencyFlags, "\n")))
}

// routeEmergency sends emergencies and high risk turns to escalation.
func (a *Assistant) routeEmergency(s *core.HealthState) []string {
	if s.EmergencyDetected || s.RiskScore >= a.opts.RiskThreshold {
		return []string{NodeMedicalEscalation}
	}

	return []string{NodeSupervisor}
}

// alertBody is the message delivered to the emergency contact.
func alertBody(s *core.HealthState) string {
	return fmt.Sprintf("🚨 Emergency Alert for user %s:\nUser says: \"%s\"\nSymptoms: %s\nFrequent Symptoms: %s",
		s.UserID, s.LastUserMessage(), strings.Join(s.Symptoms, ", "), strings.Join(s.FrequentSymptoms, ", "))
}

// medicalEscalation alerts the emergency contact and explains the escalation
// to the user.
func (a *Assistant) medicalEscalation() core.Agent {
	return agent.NewFuncAgent(NodeMedicalEscalation, func(rc *core.RunContext) error {
		s := rc.State()
		symptoms := strings.Join(s.Symptoms, ", ")
		u := &core.Update{}

		var message string

		if !s.EmergencyDetected && s.RiskScore < a.opts.RiskThreshold {
			message = "Symptoms noted but not critical enough for emergency messaging."
		} else {
			err := a.opts.Notifier.Notify(rc.Context, notify.Alert{UserID: s.UserID, Body: alertBody(s)})

			switch {
			case err == nil:
				u.AlertSent = true
				u.EmergencyFlags = []string{flagSent}
				message = fmt.Sprintf("🚨 Emergency symptoms detected (%s). WhatsApp alert sent to emergency contacts.", symptoms)

				a.opts.Metrics.ObserveAlert(metrics.AlertSent)
			case errors.Is(err, notify.ErrSuppressed):
				u.EmergencyFlags = []string{flagSuppress}
				message = fmt.Sprintf("🚨 Emergency symptoms detected (%s). Your emergency contacts were already alerted recently.", symptoms)

				a.opts.Metrics.ObserveAlert(metrics.AlertSuppressed)
			default:
				rc.LogError("emergency alert failed", "error", err)

				u.EmergencyFlags = []string{fmt.Sprintf("❌ Alert failed: %v", err)}
				message = fmt.Sprintf("🚨 Emergency symptoms detected (%s). We could not reach your emergency contacts. Please call your local emergency number now.", symptoms)

				a.opts.Metrics.ObserveAlert(metrics.AlertFailed)
			}
		}

		u.AppendResponse("🔴 Medical Escalation:\n" + message)
		u.SetOutput(NodeMedicalEscalation, message)
		rc.Stage(u)

		return nil
	})
}

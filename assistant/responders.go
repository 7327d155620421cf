package assistant

import (
	"strings"

	"github.com/hupe1980/healthbot/agent"
	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/prompt"
)

const noClearQuestion = "I didn't receive any clear question to respond to."

// stretches maps a symptom to a safe physical exercise.
var stretches = []struct {
	symptom string
	advice  string
}{
	{"back pain", "Try knee-to-chest or child's pose stretch."},
	{"neck pain", "Do gentle neck tilts and shoulder rolls."},
	{"shoulder pain", "Do slow shoulder rolls and a cross-body arm stretch."},
	{"lower back pain", "Try pelvic tilts and a gentle knee-to-chest stretch."},
	{"stiff neck", "Do slow chin tucks and side neck stretches."},
}

// stretchesFor returns one line per symptom with a known exercise, in
// symptom order.
func stretchesFor(symptoms []string) []string {
	var out []string

	for _, sym := range symptoms {
		s := strings.ToLower(strings.TrimSpace(sym))

		for _, st := range stretches {
			if st.symptom == s {
				out = append(out, sym+": "+st.advice)
				break
			}
		}
	}

	return out
}

// parseSuspectedDiseases reads the bullet lines between the "Suspected
// Disease" heading and the "Remedies:" heading.
func parseSuspectedDiseases(text string) []string {
	var (
		out    []string
		inside bool
	)

	for _, line := range strings.Split(text, "\n") {
		l := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(strings.ToLower(l), "suspected disease"):
			inside = true
		case strings.HasPrefix(strings.ToLower(l), "remedies"):
			return out
		case inside && strings.HasPrefix(l, "-"):
			if d := strings.TrimSpace(strings.TrimPrefix(l, "-")); d != "" {
				out = append(out, d)
			}
		}
	}

	return out
}

// homeRemedy suggests suspected diseases and home remedies.
func (a *Assistant) homeRemedy() core.Agent {
	return agent.NewFuncAgent(NodeHomeRemedy, func(rc *core.RunContext) error {
		s := rc.State()

		reply, err := a.complete(rc, a.responder, NodeHomeRemedy, prompt.Data{Query: s.LastUserMessage(), Symptoms: s.Symptoms})
		if err != nil {
			return err
		}

		u := &core.Update{SuspectedDiseases: parseSuspectedDiseases(reply)}
		u.AppendResponse(reply)
		u.SetOutput(NodeHomeRemedy, reply)
		rc.Stage(u)

		return nil
	})
}

// physicalRelief suggests stretches for symptoms with a known exercise.
func (a *Assistant) physicalRelief() core.Agent {
	return agent.NewFuncAgent(NodePhysicalRelief, func(rc *core.RunContext) error {
		lines := stretchesFor(rc.State().Symptoms)

		text := "No safe physical activities suggested for the symptoms."
		if len(lines) > 0 {
			text = "Physical Relief:\n" + strings.Join(lines, "\n")
		}

		u := &core.Update{}
		u.AppendResponse(text)
		u.SetOutput(NodePhysicalRelief, text)
		rc.Stage(u)

		return nil
	})
}

// generalMedical answers queries no specialised responder covers. Its answer
// only reaches the user through the final summary.
func (a *Assistant) generalMedical() core.Agent {
	return agent.NewFuncAgent(NodeGeneralMedical, func(rc *core.RunContext) error {
		query := strings.TrimSpace(rc.State().LastUserMessage())

		answer := noClearQuestion

		if query != "" {
			reply, err := a.complete(rc, a.responder, NodeGeneralMedical, prompt.Data{Query: query, Region: a.opts.Region})
			if err != nil {
				return err
			}

			answer = reply
		}

		rc.Stage((&core.Update{}).SetOutput(NodeGeneralMedical, answer))

		return nil
	})
}

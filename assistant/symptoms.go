package assistant

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/hupe1980/healthbot/agent"
	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/prompt"
)

const (
	defaultStress   = "unknown"
	defaultRisk     = 0.1
	defaultResponse = "I'm here to help. What can I do for you today?"
	confusedReply   = "I’m having trouble understanding. Could you please tell me more about your symptoms?"
	frequentWarning = " ⚠️ This symptom has occurred frequently. Please consult a doctor."
	frequentRisk    = 0.9
)

var recallPhrases = []string{"what did i say", "what did i ask", "remind me", "earlier", "previous"}

var errNoJSON = errors.New("no JSON object found")

// extraction is the symptom extractor's reply.
type extraction struct {
	Symptoms        []string `json:"symptoms"`
	StressLevel     string   `json:"stress_level"`
	RiskScore       score    `json:"risk_score"`
	ResponseMessage string   `json:"response_message"`
}

// score accepts numbers and numeric strings. Anything else leaves it unset.
type score struct {
	value float64
	set   bool
}

func (s *score) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*s = score{}
		return nil
	}

	*s = score{value: f, set: true}

	return nil
}

// parseExtraction decodes the first complete JSON object in text. Code
// fences, prose and stray braces around the object are ignored.
func parseExtraction(text string) (*extraction, error) {
	err := errNoJSON

	for i := strings.IndexByte(text, '{'); i >= 0; {
		var e extraction

		derr := json.NewDecoder(strings.NewReader(text[i:])).Decode(&e)
		if derr == nil {
			return &e, nil
		}

		err = derr

		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}

		i += next + 1
	}

	return nil, err
}

func normalizeSymptoms(in []string) []string {
	out := make([]string, 0, len(in))

	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}

	return out
}

func wantsRecall(query string) bool {
	q := strings.ToLower(query)

	for _, p := range recallPhrases {
		if strings.Contains(q, p) {
			return true
		}
	}

	return false
}

// symptomExtractor turns the user message into symptoms, stress level, risk
// score and a first friendly response.
func (a *Assistant) symptomExtractor() core.Agent {
	return agent.NewFuncAgent(NodeSymptomExtractor, func(rc *core.RunContext) error {
		s := rc.State()
		query := s.LastUserMessage()

		u := &core.Update{RecallRequested: wantsRecall(query)}
		if s.Timestamp.IsZero() {
			u.Timestamp = a.opts.now().UTC()
		}

		reply, err := a.complete(rc, a.model, NodeSymptomExtractor, prompt.Data{Query: query})
		if err != nil {
			return err
		}

		ex, err := parseExtraction(reply)
		if err != nil {
			rc.LogWarn("symptom extraction unparseable", "error", err)

			u.StressLevel = defaultStress
			u.RiskScore = defaultRisk
			u.ReplaceResponse(confusedReply)
			rc.Stage(u)

			return nil
		}

		u.Symptoms = normalizeSymptoms(ex.Symptoms)
		u.StressLevel = defaultStress
		u.RiskScore = defaultRisk
		u.ReplaceResponse(defaultResponse)

		if v := strings.TrimSpace(ex.StressLevel); v != "" {
			u.StressLevel = v
		}

		if ex.RiskScore.set {
			u.RiskScore = min(max(ex.RiskScore.value, 0), 1)
		}

		if v := strings.TrimSpace(ex.ResponseMessage); v != "" {
			u.ReplaceResponse(v)
		}

		rc.LogDebug("symptoms extracted", "symptoms", u.Symptoms, "risk", u.RiskScore)
		rc.Stage(u)

		return nil
	})
}

// symptomLogger warns about symptoms that recur within the frequency window
// and logs the interaction for future frequency checks.
func (a *Assistant) symptomLogger() core.Agent {
	return agent.NewFuncAgent(NodeSymptomLogger, func(rc *core.RunContext) error {
		store := rc.Services.Symptoms
		if store == nil {
			return nil
		}

		s := rc.State()
		u := &core.Update{}

		if len(s.Symptoms) > 0 {
			since := a.opts.now().Add(-a.opts.FrequencyWindow)

			freq, err := store.SymptomFrequencies(rc.Context, s.UserID, s.Symptoms, since)
			if err != nil {
				rc.LogWarn("symptom frequency lookup failed", "error", err)
			}

			for _, sym := range s.Symptoms {
				if freq[sym] >= a.opts.FrequencyThreshold {
					u.RiskScore = frequentRisk
					u.AppendResponse(frequentWarning)

					break
				}
			}
		}

		after := s.Clone()
		after.Apply(u)

		err := store.LogSymptoms(rc.Context, core.SymptomRecord{
			UserID:        s.UserID,
			Query:         s.LastUserMessage(),
			Symptoms:      s.Symptoms,
			StressLevel:   s.StressLevel,
			RiskScore:     after.RiskScore,
			Timestamp:     s.Timestamp,
			FinalResponse: after.ResponseMessage,
		})
		if err != nil {
			rc.LogWarn("symptom log failed", "error", err)
		}

		rc.Stage(u)

		return nil
	})
}

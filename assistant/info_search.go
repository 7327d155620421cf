package assistant

import (
	"fmt"
	"strings"

	"github.com/hupe1980/healthbot/agent"
	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/prompt"
)

// Info modes chosen by the search planner.
const (
	InfoMedicine = "medicine"
	InfoHospital = "hospital"
	InfoGeneral  = "general"
)

const (
	searchUnavailable = "Search is currently unavailable."
	searchNoResults   = "No search results were found."
)

var (
	medicineKeywords = []string{"medicine", "painkiller", "drug", "dosage", "heart attack medicine", "aspirin"}
	hospitalKeywords = []string{"hospital", "clinic", "doctor", "emergency", "medical care", "emergency medical care"}
)

// infoSections holds the heading and caution line per mode.
var infoSections = map[string][2]string{
	InfoMedicine: {"💊 Medicine Info:", "⚠️ Only use medicines after consulting a doctor."},
	InfoHospital: {"🏥 Hospital Info:", "⚠️ Visit hospitals only after checking with a doctor."},
	InfoGeneral:  {"🔎 Health Info:", "⚠️ Verify health information with a doctor."},
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}

	return false
}

// planSearch picks the info mode and the search topic. Medicine keywords win
// over hospital keywords.
func planSearch(s *core.HealthState) (mode, topic string) {
	query := strings.TrimSpace(s.LastUserMessage())
	q := strings.ToLower(query)

	switch {
	case containsAny(q, medicineKeywords):
		subject := strings.Join(s.Symptoms, ", ")
		if subject == "" {
			subject = query
		}

		return InfoMedicine, "over-the-counter medicine for " + subject
	case containsAny(q, hospitalKeywords):
		return InfoHospital, "Best hospitals in " + s.Location
	case query != "":
		return InfoGeneral, query
	default:
		return "", ""
	}
}

// infoSearch plans a web search, runs it and summarizes the results.
func (a *Assistant) infoSearch() core.Agent {
	return agent.NewSequentialAgent(NodeInfoSearch,
		agent.NewFuncAgent("plan", a.searchPlan),
		agent.NewFuncAgent("fetch", a.searchFetch),
		agent.NewFuncAgent("summarize", a.searchSummarize),
	)
}

func (a *Assistant) searchPlan(rc *core.RunContext) error {
	mode, topic := planSearch(rc.State())
	rc.LogDebug("search planned", "mode", mode, "topic", topic)
	rc.Stage(&core.Update{InfoMode: mode, SearchTopic: topic})

	return nil
}

func (a *Assistant) searchFetch(rc *core.RunContext) error {
	s := rc.State()
	if s.SearchTopic == "" {
		return nil
	}

	if a.opts.Searcher == nil {
		rc.Stage((&core.Update{SearchResults: []string{}}).SetOutput(NodeInfoSearch, searchUnavailable))
		return nil
	}

	results, err := a.opts.Searcher.Search(rc.Context, s.SearchTopic, a.opts.SearchMaxResults)
	if err != nil {
		rc.LogWarn("web search failed", "topic", s.SearchTopic, "error", err)
		rc.Stage((&core.Update{SearchResults: []string{}}).SetOutput(NodeInfoSearch, searchUnavailable))

		return nil
	}

	if len(results) == 0 {
		rc.LogInfo("web search returned no results", "topic", s.SearchTopic)
		rc.Stage((&core.Update{SearchResults: []string{}}).SetOutput(NodeInfoSearch, searchNoResults))

		return nil
	}

	sources := make([]string, 0, len(results))
	for _, r := range results {
		sources = append(sources, fmt.Sprintf("%s (%s): %s", r.Title, r.URL, r.Content))
	}

	rc.Stage(&core.Update{SearchResults: sources})

	return nil
}

func (a *Assistant) searchSummarize(rc *core.RunContext) error {
	s := rc.State()
	if s.SearchTopic == "" || len(s.SearchResults) == 0 {
		return nil
	}

	summary, err := a.complete(rc, a.model, "search_summary", prompt.Data{Topic: s.SearchTopic, Sources: s.SearchResults})
	if err != nil {
		rc.LogWarn("search summary failed, using raw results", "error", err)
		summary = strings.Join(s.SearchResults, "\n")
	}

	section := infoSections[s.InfoMode]

	u := &core.Update{}
	u.AppendResponse(section[0] + "\n" + summary + "\n" + section[1])
	u.SetOutput(NodeInfoSearch, summary)
	rc.Stage(u)

	return nil
}

package assistant

import (
	"fmt"
	"time"

	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/graph"
	"github.com/hupe1980/healthbot/metrics"
	"github.com/hupe1980/healthbot/model"
	"github.com/hupe1980/healthbot/notify"
	"github.com/hupe1980/healthbot/prompt"
	"github.com/hupe1980/healthbot/search"
)

// Node names of the workflow. They double as AgentOutputs keys.
const (
	NodeMemoryReader      = "memory_reader"
	NodeSymptomExtractor  = "symptom_extractor"
	NodeSymptomLogger     = "symptom_logger"
	NodeIntentClassifier  = "intent_classifier"
	NodeEmergencyDetector = "emergency_detector"
	NodeMedicalEscalation = "medical_escalation"
	NodeHomeRemedy        = "home_remedy"
	NodePhysicalRelief    = "physical_relief"
	NodeInfoSearch        = "info_search"
	NodeGeneralMedical    = "general_medical"
	NodeSupervisor        = "supervisor"
	NodeFinalSummary      = "final_summary"
	NodeMemoryWriter      = "memory_writer"
)

// Recommended paths reported to callers.
const (
	PathEmergency = "emergency_escalation"
	PathCompiled  = "compiled_response"
)

// Options tunes the assistant.
type Options struct {
	// Region is the locale general medical advice is given for.
	Region string
	// MemoryPairs is the number of past conversations loaded per turn.
	MemoryPairs int
	// FrequencyWindow and FrequencyThreshold drive the frequent symptom
	// warning of the symptom logger.
	FrequencyWindow    time.Duration
	FrequencyThreshold int
	// EmergencyWindow and EmergencyThreshold drive the frequency based
	// emergency detection.
	EmergencyWindow    time.Duration
	EmergencyThreshold int
	// RiskThreshold routes a turn to medical escalation.
	RiskThreshold float64
	// SearchMaxResults bounds the web search results summarized per turn.
	SearchMaxResults int
	// MaxSteps bounds the supersteps of the workflow graph.
	MaxSteps int

	// ResponderModel serves the responder nodes (home remedy, general
	// medical). Defaults to the main model.
	ResponderModel model.Model
	Catalog        *prompt.Catalog
	Searcher       search.Searcher
	Notifier       notify.Notifier
	Metrics        *metrics.Metrics
	Observers      []graph.Observer

	now func() time.Time
}

// Assistant is the compiled health assistant workflow. It is a core.Agent
// and safe for concurrent runs.
type Assistant struct {
	model     model.Model
	responder model.Model
	catalog   *prompt.Catalog
	opts      Options
	graph     *graph.Graph
}

var _ core.Agent = (*Assistant)(nil)

// New builds the assistant around the main model.
func New(m model.Model, optFns ...func(o *Options)) (*Assistant, error) {
	if m == nil {
		return nil, fmt.Errorf("assistant: model is required")
	}

	opts := Options{
		Region:             "India",
		MemoryPairs:        5,
		FrequencyWindow:    7 * 24 * time.Hour,
		FrequencyThreshold: 3,
		EmergencyWindow:    30 * 24 * time.Hour,
		EmergencyThreshold: 3,
		RiskThreshold:      0.85,
		SearchMaxResults:   1,
		MaxSteps:           graph.DefaultMaxSteps,
		now:                time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Catalog == nil {
		c, err := prompt.Load()
		if err != nil {
			return nil, err
		}

		opts.Catalog = c
	}

	if opts.Notifier == nil {
		opts.Notifier = notify.LogNotifier{}
	}

	a := &Assistant{
		model:     m,
		responder: opts.ResponderModel,
		catalog:   opts.Catalog,
		opts:      opts,
	}

	if a.responder == nil {
		a.responder = m
	}

	g, err := a.buildGraph()
	if err != nil {
		return nil, err
	}

	a.graph = g

	return a, nil
}

// Name implements core.Agent.
func (a *Assistant) Name() string { return a.graph.Name() }

// Run implements core.Agent by executing the workflow graph.
func (a *Assistant) Run(rc *core.RunContext) error { return a.graph.Run(rc) }

// Graph returns the compiled workflow.
func (a *Assistant) Graph() *graph.Graph { return a.graph }

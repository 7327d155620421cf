package assistant

import (
	"slices"

	"github.com/hupe1980/healthbot/graph"
)

// buildGraph wires the nodes into the chat workflow:
//
//	memory_reader → symptom_extractor → symptom_logger → {intent_classifier, emergency_detector}
//	intent_classifier ─route→ {home_remedy, physical_relief, info_search, general_medical} → supervisor
//	emergency_detector ─route→ medical_escalation → supervisor | supervisor
//	supervisor → final_summary → memory_writer
//
// The supervisor is a join: it runs once, after every dispatched branch.
func (a *Assistant) buildGraph() (*graph.Graph, error) {
	responders := []string{NodeHomeRemedy, NodePhysicalRelief, NodeInfoSearch, NodeGeneralMedical}

	b := graph.New("healthbot").
		AddNode(a.memoryReader()).
		AddNode(a.symptomExtractor()).
		AddNode(a.symptomLogger()).
		AddNode(a.intentClassifier()).
		AddNode(a.emergencyDetector()).
		AddNode(a.medicalEscalation()).
		AddNode(a.homeRemedy()).
		AddNode(a.physicalRelief()).
		AddNode(a.infoSearch()).
		AddNode(a.generalMedical()).
		AddNode(a.supervisor()).
		AddNode(a.finalSummary()).
		AddNode(a.memoryWriter()).
		SetEntryPoint(NodeMemoryReader).
		AddEdge(NodeMemoryReader, NodeSymptomExtractor).
		AddEdge(NodeSymptomExtractor, NodeSymptomLogger).
		AddEdge(NodeSymptomLogger, NodeIntentClassifier).
		AddEdge(NodeSymptomLogger, NodeEmergencyDetector).
		AddConditionalEdges(NodeIntentClassifier, a.routeIntents, responders...).
		AddConditionalEdges(NodeEmergencyDetector, a.routeEmergency, NodeMedicalEscalation, NodeSupervisor).
		AddEdge(NodeMedicalEscalation, NodeSupervisor).
		AddEdge(NodeSupervisor, NodeFinalSummary).
		AddEdge(NodeFinalSummary, NodeMemoryWriter).
		SetFinishPoint(NodeMemoryWriter)

	for _, r := range responders {
		b.AddEdge(r, NodeSupervisor)
	}

	observers := slices.Clone(a.opts.Observers)
	if a.opts.Metrics != nil {
		observers = append(observers, a.opts.Metrics)
	}

	return b.Compile(func(o *graph.Options) {
		o.MaxSteps = a.opts.MaxSteps
		o.Observers = observers
	})
}

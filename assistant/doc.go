// Package assistant implements the health assistant: the workflow nodes and
// the orchestration graph wiring them together.
//
// A chat turn flows through
//
//	memory_reader → symptom_extractor → symptom_logger
//	symptom_logger → intent_classifier, emergency_detector
//	intent_classifier ─route→ home_remedy | physical_relief | info_search | general_medical
//	emergency_detector ─route→ medical_escalation | supervisor
//	responders, medical_escalation → supervisor → final_summary → memory_writer
//
// Nodes that depend on an optional collaborator (stores, search, notifier)
// degrade gracefully when it is missing or failing; the failure is logged and
// recorded in the state instead of aborting the turn.
package assistant

package reconcile

import "github.com/agentmem/agentmem/internal/types"

// ReconcileDecisions adapts Reconcile to operate directly on
// types.Decision, which is the shape the Orchestrator actually carries
// end to end. Surviving decisions are returned in their original batch
// order.
func ReconcileDecisions(decisions []types.Decision) (surviving []types.Decision, dropped []DroppedRecord) {
	inputs := make([]Input, len(decisions))
	for i, d := range decisions {
		inputs[i] = Input{
			TargetID:   d.TargetID,
			Action:     string(d.Action),
			Priority:   d.Action.Priority(),
			Confidence: d.Confidence,
		}
	}
	indices, dropped := Reconcile(inputs)
	surviving = make([]types.Decision, len(indices))
	for i, idx := range indices {
		surviving[i] = decisions[idx]
	}
	return surviving, dropped
}

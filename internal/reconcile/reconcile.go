// Package reconcile implements the ConflictReconciler (spec §4.6): given a
// batch of Decisions that may reference overlapping target memory ids, it
// detects conflicting pairs and keeps exactly one surviving decision per
// target, recording a deterministic audit entry for every dropped one.
package reconcile

import "sort"

// DroppedRecord is the deterministic audit entry emitted for every
// decision that lost a conflict, per spec §4.6.
type DroppedRecord struct {
	// Index is the dropped decision's position in the input batch.
	Index int
	// WonByIndex is the surviving decision's position in the input batch.
	WonByIndex int
	// TargetID is the memory id both decisions addressed.
	TargetID string
	// Reason is a short human-readable explanation (confidence or
	// action-priority tie-break).
	Reason string
}

// decision is the minimal shape reconcile needs, kept decoupled from
// types.Decision so this package has no import-time dependency on the
// data model — callers adapt with ToInput.
type decision struct {
	index      int
	targetID   string
	action     string
	priority   int
	confidence float64
}

// Input is what the caller supplies per decision: its target memory id
// (empty means "no target", e.g. ADD/NOOP — never conflicting), its
// action name, the action's tie-break priority (higher wins), and its
// confidence.
type Input struct {
	TargetID   string
	Action     string
	Priority   int
	Confidence float64
}

// Reconcile resolves conflicts across decisions, returning the surviving
// indices (in input order) and a dropped-decision audit trail (in the
// order conflicts were resolved, which is deterministic for a given
// input since resolution always proceeds by ascending target id then
// ascending index).
func Reconcile(decisions []Input) (survivingIndices []int, dropped []DroppedRecord) {
	byTarget := map[string][]decision{}
	var untargeted []int

	for i, d := range decisions {
		if d.TargetID == "" {
			untargeted = append(untargeted, i)
			continue
		}
		byTarget[d.TargetID] = append(byTarget[d.TargetID], decision{
			index: i, targetID: d.TargetID, action: d.Action,
			priority: d.Priority, confidence: d.Confidence,
		})
	}

	targets := make([]string, 0, len(byTarget))
	for t := range byTarget {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	survivors := append([]int{}, untargeted...)
	for _, target := range targets {
		group := byTarget[target]
		sort.Slice(group, func(i, j int) bool { return group[i].index < group[j].index })

		if !hasConflict(group) {
			for _, d := range group {
				survivors = append(survivors, d.index)
			}
			continue
		}

		winner := group[0]
		for _, d := range group[1:] {
			if betterThan(d, winner) {
				winner = d
			}
		}
		for _, d := range group {
			if d.index == winner.index {
				continue
			}
			dropped = append(dropped, DroppedRecord{
				Index:      d.index,
				WonByIndex: winner.index,
				TargetID:   target,
				Reason:     dropReason(d, winner),
			})
		}
		survivors = append(survivors, winner.index)
	}

	sort.Ints(survivors)
	return survivors, dropped
}

// hasConflict reports whether a group of same-target decisions needs
// resolution. Spec §4.6 step 4's criterion is the shared target alone
// ("validate that no two surviving decisions address the same target"):
// two decisions of the same action (e.g. two UPDATEs) on one target are
// just as unresolvable as an UPDATE/DELETE pair — both would otherwise
// commit against the same pre-conflict version, and the second write
// fails with a stale-version Conflict.
func hasConflict(group []decision) bool {
	return len(group) > 1
}

// betterThan reports whether candidate beats current under spec §4.6:
// higher confidence wins; ties broken by action priority (MERGE > UPDATE
// > DELETE > ADD > NOOP).
func betterThan(candidate, current decision) bool {
	if candidate.confidence != current.confidence {
		return candidate.confidence > current.confidence
	}
	if candidate.priority != current.priority {
		return candidate.priority > current.priority
	}
	return candidate.index < current.index
}

func dropReason(loser, winner decision) string {
	if loser.confidence != winner.confidence {
		return "lower confidence"
	}
	if loser.priority != winner.priority {
		return "lower action priority"
	}
	return "later in batch"
}

package rotation

import "sort"

type metaCandidate struct {
	priority int
	meta     *MetaOperation
}

// BuildRotationFromMeta is Driver A: a priority-ordered meta-operation
// loop. Each step it sweeps state expiry, collects every meta-operation
// whose gating states currently admit it, sorts the candidates by
// priority descending (stable, so equal priorities keep registration
// order), and executes the first one in that list whose CanExecute is
// true — scanning the *whole* sorted list, not just the top entry, before
// giving up. It stops when no candidate exists, when a full pass finds
// none executable, when an executed meta-operation fails partway (the
// records of its completed operations are kept), or after maxSteps
// executed meta-operations.
func (c *Character) BuildRotationFromMeta(maxSteps int) []*OperationRecord {
	var log []*OperationRecord

	for steps := 0; steps < maxSteps; {
		c.States.Update(c.Timer)

		candidates := make([]metaCandidate, 0, len(c.metaOperations))
		for _, m := range c.metaOperations {
			if pr, active := m.GetPriority(c.States); active {
				candidates = append(candidates, metaCandidate{priority: pr, meta: m})
			}
		}
		if len(candidates) == 0 {
			break
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].priority > candidates[j].priority
		})

		executed := false
		for _, cand := range candidates {
			if !cand.meta.CanExecute(c.Timer, c.States) {
				continue
			}
			records, err := cand.meta.Execute(c.Timer, c.States, c)
			log = append(log, records...)
			if err != nil {
				return log
			}
			c.applyTimeRegen()
			steps++
			executed = true
			break
		}
		if !executed {
			break
		}
	}

	return log
}

// BuildRotationFromMetaFull is BuildRotationFromMeta with a resource
// snapshot attached to every record. A meta-operation executes its whole
// operation sequence atomically, so every record produced by the same
// meta step shares one snapshot taken once that step settles, rather than
// a snapshot per individual operation within it.
func (c *Character) BuildRotationFromMetaFull(maxSteps int) []*FullRecord {
	var log []*FullRecord

	for steps := 0; steps < maxSteps; {
		c.States.Update(c.Timer)

		candidates := make([]metaCandidate, 0, len(c.metaOperations))
		for _, m := range c.metaOperations {
			if pr, active := m.GetPriority(c.States); active {
				candidates = append(candidates, metaCandidate{priority: pr, meta: m})
			}
		}
		if len(candidates) == 0 {
			break
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].priority > candidates[j].priority
		})

		executed := false
		for _, cand := range candidates {
			if !cand.meta.CanExecute(c.Timer, c.States) {
				continue
			}
			records, err := cand.meta.Execute(c.Timer, c.States, c)
			snapshot := c.ResourceSnapshot()
			for _, rec := range records {
				log = append(log, &FullRecord{OperationRecord: rec, Resources: snapshot})
			}
			if err != nil {
				return log
			}
			c.applyTimeRegen()
			steps++
			executed = true
			break
		}
		if !executed {
			break
		}
	}

	return log
}

// BuildRotationGreedyOps is Driver B: a greedy single-operation loop.
// opPriority, if non-empty, names operation IDs in priority order
// (unknown IDs are ignored); otherwise registration order is used. Each
// step it sweeps state expiry and executes the first operation whose
// Test passes, terminating when none do or after maxSteps.
func (c *Character) BuildRotationGreedyOps(maxSteps int, opPriority []string) []*OperationRecord {
	var log []*OperationRecord

	ordered := c.operations
	if len(opPriority) > 0 {
		byID := make(map[string]*Operation, len(c.operations))
		for _, op := range c.operations {
			byID[op.ID] = op
		}
		ordered = make([]*Operation, 0, len(opPriority))
		for _, id := range opPriority {
			if op, ok := byID[id]; ok {
				ordered = append(ordered, op)
			}
		}
	}

	for step := 0; step < maxSteps; step++ {
		c.States.Update(c.Timer)

		executed := false
		for _, op := range ordered {
			if !op.Test(c.States) {
				continue
			}
			rec, err := op.Operate(c.Timer, c.States)
			if err != nil {
				return log
			}
			log = append(log, rec)
			c.afterOperationExecuted(op, c.Timer)
			c.applyTimeRegen()
			executed = true
			break
		}
		if !executed {
			break
		}
	}

	return log
}

// BuildRotationGreedyOpsFull is BuildRotationGreedyOps with an accurate
// per-operation resource snapshot attached to every record, since Driver B
// executes exactly one operation per record.
func (c *Character) BuildRotationGreedyOpsFull(maxSteps int, opPriority []string) []*FullRecord {
	var log []*FullRecord

	ordered := c.operations
	if len(opPriority) > 0 {
		byID := make(map[string]*Operation, len(c.operations))
		for _, op := range c.operations {
			byID[op.ID] = op
		}
		ordered = make([]*Operation, 0, len(opPriority))
		for _, id := range opPriority {
			if op, ok := byID[id]; ok {
				ordered = append(ordered, op)
			}
		}
	}

	for step := 0; step < maxSteps; step++ {
		c.States.Update(c.Timer)

		executed := false
		for _, op := range ordered {
			if !op.Test(c.States) {
				continue
			}
			rec, err := op.Operate(c.Timer, c.States)
			if err != nil {
				return log
			}
			c.afterOperationExecuted(op, c.Timer)
			c.applyTimeRegen()
			log = append(log, &FullRecord{OperationRecord: rec, Resources: c.ResourceSnapshot()})
			executed = true
			break
		}
		if !executed {
			break
		}
	}

	return log
}

package rotation

import "github.com/google/uuid"

// Character owns every Resource, State, Operation, MetaOperation, and
// Rule in a simulation, and tracks the bookkeeping (last regen tick) the
// rotation drivers need between steps.
type Character struct {
	Name   string
	RunID  uuid.UUID
	Timer  *Timer
	States *StateManager

	resources      map[string]*Resource
	resourceOrder  []string
	operations     []*Operation
	metaOperations []*MetaOperation
	regenRules     []*ResourceRegenRule
	triggerRules   []*OperationTriggeredStateRule

	lastTickTime float64
}

// NewCharacter constructs an empty character bound to timer. RunID is a
// fresh uuid, distinguishing two drivers started from the same config in
// a logstore table.
func NewCharacter(name string, timer *Timer) *Character {
	return &Character{
		Name:         name,
		RunID:        uuid.New(),
		Timer:        timer,
		States:       NewStateManager(),
		resources:    make(map[string]*Resource),
		lastTickTime: timer.Now(),
	}
}

// ResourceSnapshot returns every registered resource's current amount,
// keyed by ID, for a FullRecord.
func (c *Character) ResourceSnapshot() map[string]float64 {
	snapshot := make(map[string]float64, len(c.resourceOrder))
	for _, id := range c.resourceOrder {
		snapshot[id] = c.resources[id].Current()
	}
	return snapshot
}

// AddResource registers a resource under its ID. Registering a duplicate ID
// replaces the lookup entry but does not duplicate it in ResourceIDs order.
func (c *Character) AddResource(r *Resource) {
	if _, exists := c.resources[r.ID]; !exists {
		c.resourceOrder = append(c.resourceOrder, r.ID)
	}
	c.resources[r.ID] = r
}

// Resource looks up a registered resource by ID.
func (c *Character) Resource(id string) (*Resource, bool) {
	r, ok := c.resources[id]
	return r, ok
}

// ResourceIDs returns every registered resource ID in registration order.
func (c *Character) ResourceIDs() []string {
	return c.resourceOrder
}

// Operations returns every registered operation in registration order.
func (c *Character) Operations() []*Operation {
	return c.operations
}

// AddState registers a state with the character's StateManager.
func (c *Character) AddState(s *State) {
	c.States.Register(s)
}

// AddOperation registers a single operation, in priority order for
// BuildRotationGreedyOps's default ordering.
func (c *Character) AddOperation(op *Operation) {
	c.operations = append(c.operations, op)
}

// AddOperationWithCharges registers op behind a charge-mechanic: an extra
// Resource requirement consuming one charge per use, optionally regenerating
// one charge every chargeCD seconds. chargeResourceID defaults to
// "charge_<op.ID>"; reusing an existing ID shares a charge pool across
// multiple operations (e.g. several abilities drawing from the same combo
// points), raising its upper_limit to cover the larger of the two caps.
// maxCharges<=0 skips the charge mechanic entirely and just registers op.
func (c *Character) AddOperationWithCharges(op *Operation, maxCharges int, chargeCD float64, chargeResourceID string) *Operation {
	if maxCharges <= 0 {
		c.AddOperation(op)
		return op
	}

	if chargeResourceID == "" {
		chargeResourceID = "charge_" + op.ID
	}

	chargeRes, exists := c.resources[chargeResourceID]
	if exists {
		if float64(maxCharges) > chargeRes.UpperLimit {
			chargeRes.UpperLimit = float64(maxCharges)
		}
		if chargeRes.current > chargeRes.UpperLimit {
			chargeRes.current = chargeRes.UpperLimit
		}
	} else {
		chargeRes = NewResource(chargeResourceID, float64(maxCharges), float64(maxCharges))
		c.AddResource(chargeRes)
	}

	op.Requirements = append(op.Requirements, chargeRes)
	op.ConsumeBase = append(op.ConsumeBase, 1.0)

	if chargeCD > 0 {
		c.AddRegenRule(&ResourceRegenRule{Resource: chargeRes, RatePerSec: 1.0 / chargeCD})
	}

	c.AddOperation(op)
	return op
}

// AddMetaOperation registers a meta-operation, in registration order for
// BuildRotationFromMeta's priority tie-break.
func (c *Character) AddMetaOperation(m *MetaOperation) {
	c.metaOperations = append(c.metaOperations, m)
}

// AddRegenRule registers a time-driven resource regeneration rule.
func (c *Character) AddRegenRule(r *ResourceRegenRule) {
	c.regenRules = append(c.regenRules, r)
}

// AddOpTriggerRule registers an operation-triggered state rule.
func (c *Character) AddOpTriggerRule(r *OperationTriggeredStateRule) {
	c.triggerRules = append(c.triggerRules, r)
}

// afterOperationExecuted fires every OperationTriggeredStateRule against
// the just-executed operation, then sweeps state expiry. Drivers call
// this once per executed Operation; MetaOperation.Execute additionally
// sweeps expiry itself right after, so a meta step settles expiry twice —
// an observed quirk of the reference engine preserved deliberately rather
// than deduplicated.
func (c *Character) afterOperationExecuted(op *Operation, timer *Timer) {
	for _, r := range c.triggerRules {
		r.TryApply(op, timer)
	}
	c.States.Update(timer)
}

// applyTimeRegen settles every regen rule for the time elapsed since the
// last call, then advances the bookkeeping watermark. A no-op if time
// hasn't moved.
func (c *Character) applyTimeRegen() {
	now := c.Timer.Now()
	dt := now - c.lastTickTime
	if dt <= 0 {
		return
	}
	for _, r := range c.regenRules {
		r.Apply(dt)
	}
	c.lastTickTime = now
}

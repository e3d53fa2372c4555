package rotation

import "fmt"

// MetaOperationType selects how a MetaOperation checks its own legality.
type MetaOperationType int

const (
	// Linear: every operation's own test() must pass independently.
	// Safe for sequences whose operations don't interact through shared
	// resources in ways a step-by-step check could miss.
	Linear MetaOperationType = iota + 1
	// Simulated: the whole sequence is dry-run over shadow resources and
	// shadow states before being declared legal.
	Simulated
)

// MetaOperation is a fixed, ordered sequence of Operations executed as a
// unit, with its own priority and gating states.
type MetaOperation struct {
	ID                    string
	Operations            []*Operation
	Type                  MetaOperationType
	BasePriority          int
	MetaStateRequirements []StateRequirement
	MetaStateForbids      []*State
}

func (m *MetaOperation) checkMetaStateConditions(manager *StateManager) bool {
	if manager == nil {
		return true
	}
	for _, req := range m.MetaStateRequirements {
		if req.State.Current() < req.MinStack {
			return false
		}
	}
	for _, s := range m.MetaStateForbids {
		if s.Current() > 0 {
			return false
		}
	}
	return true
}

// GetPriority returns the meta's priority and whether it is currently a
// candidate at all. A false active means the meta's own gating states
// reject it outright (equivalent to the reference engine's priority of
// None): base_priority plus every active state's matching
// MetaPriorityRule delta, which reverts automatically once the state
// clears.
func (m *MetaOperation) GetPriority(manager *StateManager) (priority int, active bool) {
	if !m.checkMetaStateConditions(manager) {
		return 0, false
	}
	priority = m.BasePriority
	if manager != nil {
		for _, st := range manager.All() {
			if st.Current() <= 0 {
				continue
			}
			for _, rule := range st.MetaPriorityRules {
				if rule.Meta == m {
					priority += rule.Delta
				}
			}
		}
	}
	return priority, true
}

// buildShadowStates returns a real->shadow state map and a StateManager
// built over those shadows, covering every state registered on manager
// plus every state referenced by any of this meta's operations'
// requirements, forbids, state effects, or states_output — in that
// discovery order, each state shadowed exactly once.
func (m *MetaOperation) buildShadowStates(manager *StateManager) (map[*State]*State, *StateManager) {
	shadowMap := make(map[*State]*State)
	var order []*State
	ensure := func(s *State) {
		if _, ok := shadowMap[s]; ok {
			return
		}
		shadowMap[s] = s.shadowClone()
		order = append(order, s)
	}
	if manager != nil {
		for _, st := range manager.All() {
			ensure(st)
		}
	}
	for _, op := range m.Operations {
		for _, req := range op.StateRequirements {
			ensure(req.State)
		}
		for _, s := range op.StateForbids {
			ensure(s)
		}
		for _, eff := range op.StateEffects {
			ensure(eff.State)
		}
		for _, s := range op.StatesOutput {
			ensure(s)
		}
	}
	shadowManager := NewStateManager()
	for _, s := range order {
		shadowManager.Register(shadowMap[s])
	}
	return shadowMap, shadowManager
}

// simulateFull dry-runs every operation in sequence over disposable shadow
// resources, shadow states, and a shadow timer, exactly as described for
// Simulated meta-operations. The real world is never touched, including
// on early failure.
func (m *MetaOperation) simulateFull(timer *Timer, manager *StateManager) bool {
	temp := make(map[*Resource]*shadowResource)
	ensureRes := func(r *Resource) {
		if _, ok := temp[r]; !ok {
			temp[r] = newShadowResource(r)
		}
	}
	for _, op := range m.Operations {
		for _, r := range op.Requirements {
			ensureRes(r)
		}
		for _, r := range op.Outputs {
			ensureRes(r)
		}
	}

	shadowStates, shadowManager := m.buildShadowStates(manager)
	shadowTimer := timer.clone()

	for _, op := range m.Operations {
		if !op.checkStateConditionsShadow(shadowStates) {
			return false
		}

		if op.ConsumeLowerLimit != nil {
			for _, r := range op.Requirements {
				if temp[r].current < *op.ConsumeLowerLimit {
					return false
				}
			}
		}

		amounts := op.calcConsumeAmounts(shadowStates, shadowManager)
		for i, r := range op.Requirements {
			if temp[r].current < amounts[i] {
				return false
			}
		}
		for i, r := range op.Requirements {
			temp[r].current -= amounts[i]
		}

		produced := op.calcProduceAmounts(shadowStates, shadowManager)
		for i, r := range op.Outputs {
			if produced[i] > 0 {
				temp[r].produce(produced[i])
			}
		}

		effTime := op.EffectiveTime(shadowManager)
		shadowTimer.Update(effTime)
		shadowManager.Update(shadowTimer)

		for _, s := range op.StatesOutput {
			shadowStates[s].Add(shadowTimer)
		}
	}
	return true
}

// CanExecute reports whether the whole sequence would succeed right now:
// meta gating, then either every operation's own Test (Linear) or a full
// shadow simulation (Simulated). A Simulated meta with no timer or
// manager to simulate against is reported not executable rather than
// panicking.
func (m *MetaOperation) CanExecute(timer *Timer, manager *StateManager) bool {
	if !m.checkMetaStateConditions(manager) {
		return false
	}
	switch m.Type {
	case Linear:
		for _, op := range m.Operations {
			if !op.Test(manager) {
				return false
			}
		}
		return true
	case Simulated:
		if timer == nil || manager == nil {
			return false
		}
		return m.simulateFull(timer, manager)
	default:
		return false
	}
}

// Execute runs CanExecute, then invokes every operation's Operate in
// order, appending each record and letting character react via
// afterOperationExecuted and a StateManager sweep between steps. A
// mid-sequence failure after CanExecute passed is an invariant violation:
// the shadow pre-check is supposed to make that impossible.
func (m *MetaOperation) Execute(timer *Timer, manager *StateManager, character *Character) ([]*OperationRecord, error) {
	if !m.CanExecute(timer, manager) {
		return nil, &ErrIllegalMeta{MetaID: m.ID, Reason: "can_execute returned false"}
	}
	records := make([]*OperationRecord, 0, len(m.Operations))
	for _, op := range m.Operations {
		rec, err := op.Operate(timer, manager)
		if err != nil {
			return records, &ErrInvariantViolation{Detail: fmt.Sprintf("meta %s: operation %s failed after can_execute passed: %v", m.ID, op.ID, err)}
		}
		records = append(records, rec)
		if character != nil {
			character.afterOperationExecuted(op, timer)
		}
		if manager != nil {
			manager.Update(timer)
		}
	}
	return records, nil
}

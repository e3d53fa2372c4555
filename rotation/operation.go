package rotation

// OperationRecord is the append-only log entry produced by a successful
// operate() call.
type OperationRecord struct {
	OperationID string
	Counter     int
	Time        float64
	Consumed    map[string]float64
}

// FullRecord pairs an OperationRecord with a snapshot of every resource's
// current amount after that operation's driver step settled (Driver B: one
// snapshot per operation; Driver A: one snapshot shared by every record of
// the same meta-operation step), for callers
// (logstore, debugserver) that want full-state replay without re-deriving
// it by replaying deltas from the start of the run.
type FullRecord struct {
	*OperationRecord
	Resources map[string]float64
}

// Operation is an atomic action: it gates on resource and state
// conditions, consumes and produces resources, advances the timer by its
// (possibly accelerated) effective time, and applies states_output.
type Operation struct {
	ID       string
	BaseTime float64

	Requirements []*Resource
	ConsumeBase  []float64
	Outputs      []*Resource
	ProduceBase  []float64

	// ConsumeUpperLimit/ConsumeLowerLimit are scalar clamps applied to
	// every resource this operation touches; nil means "no clamp at this
	// step" (see Operation.calcConsumeAmounts).
	ConsumeUpperLimit *float64
	ConsumeLowerLimit *float64

	StatesOutput             []*State
	ResourceStateRules       []*ResourceStateRule
	ResourceStateRemoveRules []*ResourceStateRemoveRule
	StateRequirements        []StateRequirement
	StateForbids             []*State
	StateEffects             []*StateEffect

	counter int
}

// Counter returns the number of times this operation has executed.
func (o *Operation) Counter() int {
	return o.counter
}

func (o *Operation) checkStateConditions() bool {
	for _, req := range o.StateRequirements {
		if req.State.Current() < req.MinStack {
			return false
		}
	}
	for _, s := range o.StateForbids {
		if s.Current() > 0 {
			return false
		}
	}
	return true
}

// checkStateConditionsShadow mirrors checkStateConditions but reads every
// state through shadowStates, a real-state -> shadow-state lookup built
// for a single MetaOperation shadow run.
func (o *Operation) checkStateConditionsShadow(shadowStates map[*State]*State) bool {
	for _, req := range o.StateRequirements {
		if shadowStates[req.State].Current() < req.MinStack {
			return false
		}
	}
	for _, s := range o.StateForbids {
		if shadowStates[s].Current() > 0 {
			return false
		}
	}
	return true
}

func clampOptional(v float64, lower, upper *float64) float64 {
	if upper != nil && v > *upper {
		v = *upper
	}
	if lower != nil && v < *lower {
		v = *lower
	}
	return v
}

// applyStateEffects runs every StateEffect targeting kind over amounts, in
// registration order, for the single resource res.
func (o *Operation) applyStateEffects(res *Resource, amount float64, kind EffectTarget, stateOverride map[*State]*State) float64 {
	for _, eff := range o.StateEffects {
		var override *State
		if stateOverride != nil {
			override = stateOverride[eff.State]
		}
		amount = eff.applyToAmount(amount, kind, res, override)
	}
	return amount
}

// applyOpEfficiencyRules multiplies amount by every matching, active
// state's OperationResourceEfficiency rule targeting this operation and
// kind, across every state registered in manager (not just this
// operation's own state lists).
func (o *Operation) applyOpEfficiencyRules(res *Resource, amount float64, kind EffectTarget, manager *StateManager) float64 {
	if manager == nil {
		return amount
	}
	for _, st := range manager.All() {
		if st.Current() <= 0 {
			continue
		}
		for _, rule := range st.OpEfficiencyRules {
			if rule.Operation != o || !rule.appliesTo(kind, res) {
				continue
			}
			amount *= rule.multiplier(st.Current())
		}
	}
	return amount
}

// calcConsumeAmounts computes the per-resource consume amount in
// Requirements order: base clamped by both limits, then StateEffects,
// then OperationResourceEfficiency, floored at zero, then re-clamped by
// ConsumeUpperLimit only (the double-clamp asymmetry is deliberate and
// pinned by tests).
func (o *Operation) calcConsumeAmounts(stateOverride map[*State]*State, manager *StateManager) []float64 {
	amounts := make([]float64, len(o.Requirements))
	for i, res := range o.Requirements {
		amt := clampOptional(o.ConsumeBase[i], o.ConsumeLowerLimit, o.ConsumeUpperLimit)
		amt = o.applyStateEffects(res, amt, TargetConsume, stateOverride)
		amt = o.applyOpEfficiencyRules(res, amt, TargetConsume, manager)
		if amt < 0 {
			amt = 0
		}
		if o.ConsumeUpperLimit != nil && amt > *o.ConsumeUpperLimit {
			amt = *o.ConsumeUpperLimit
		}
		amounts[i] = amt
	}
	return amounts
}

// calcProduceAmounts mirrors calcConsumeAmounts for Outputs/ProduceBase
// but applies no clamp of its own; saturation happens in Resource.Update.
func (o *Operation) calcProduceAmounts(stateOverride map[*State]*State, manager *StateManager) []float64 {
	amounts := make([]float64, len(o.Outputs))
	for i, res := range o.Outputs {
		amt := o.ProduceBase[i]
		amt = o.applyStateEffects(res, amt, TargetProduce, stateOverride)
		amt = o.applyOpEfficiencyRules(res, amt, TargetProduce, manager)
		amounts[i] = amt
	}
	return amounts
}

// EffectiveTime returns base_time shortened by every active state's
// matching OperationAccelerate contributions, each individually clamped
// before being summed.
func (o *Operation) EffectiveTime(manager *StateManager) float64 {
	if manager == nil {
		return o.BaseTime
	}
	totalRatio := 0.0
	for _, st := range manager.All() {
		if st.Current() <= 0 {
			continue
		}
		for _, acc := range st.OpAccelerateRules {
			if acc.Operation != o {
				continue
			}
			totalRatio += acc.contribution(st.Current())
		}
	}
	factor := 1 - totalRatio
	if factor < 0 {
		factor = 0
	}
	return o.BaseTime * factor
}

// Test reports whether this operation is currently legal: state
// conditions hold and every computed consume amount is affordable.
func (o *Operation) Test(manager *StateManager) bool {
	if !o.checkStateConditions() {
		return false
	}
	amounts := o.calcConsumeAmounts(nil, manager)
	for i, res := range o.Requirements {
		if amounts[i] > res.Current() {
			return false
		}
	}
	return true
}

// Operate executes the operation: deduct consumes, add produces, fire
// resource-driven rules, advance the timer, then apply states_output.
// Returns ErrIllegalOperation if Test fails.
func (o *Operation) Operate(timer *Timer, manager *StateManager) (*OperationRecord, error) {
	if !o.Test(manager) {
		return nil, &ErrIllegalOperation{OperationID: o.ID, Reason: "state or resource conditions not met"}
	}
	o.counter++

	consumed := o.calcConsumeAmounts(nil, manager)
	consumedByID := make(map[string]float64, len(o.Requirements))
	for i, res := range o.Requirements {
		c := consumed[i]
		if c > res.Current() {
			return nil, &ErrInsufficientResource{ResourceID: res.ID, Needed: c, Current: res.Current()}
		}
		if err := res.Update(-c); err != nil {
			return nil, err
		}
		consumedByID[res.ID] = c
	}

	produced := o.calcProduceAmounts(nil, manager)
	for i, res := range o.Outputs {
		if produced[i] <= 0 {
			continue
		}
		_ = res.Update(produced[i])
	}

	for _, rule := range o.ResourceStateRules {
		rule.CheckAndApply(timer)
	}
	for _, rule := range o.ResourceStateRemoveRules {
		rule.CheckAndApply()
	}

	dt := o.EffectiveTime(manager)
	timer.Update(dt)

	for _, st := range o.StatesOutput {
		st.Add(timer)
	}

	return &OperationRecord{OperationID: o.ID, Counter: o.counter, Time: timer.Now(), Consumed: consumedByID}, nil
}

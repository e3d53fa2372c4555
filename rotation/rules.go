package rotation

// ResourceStateRule is an edge-triggered threshold watcher: when a
// resource's current value satisfies Mode against Threshold it adds one
// touch to State. With Once, it fires only on the inactive->active edge
// and stays silent until the value drops back below threshold and rises
// again; without Once, it fires (and re-stacks) on every check while the
// condition holds.
type ResourceStateRule struct {
	Resource  *Resource
	Threshold float64
	State     *State
	Mode      CompareMode
	Once      bool

	wasActive bool
}

// CheckAndApply evaluates the watched resource and touches State per the
// Once semantics above. Call after resource updates have settled.
func (r *ResourceStateRule) CheckAndApply(timer *Timer) {
	active := r.Mode.compare(r.Resource.Current(), r.Threshold)
	if r.Once {
		if active && !r.wasActive {
			r.State.Add(timer)
			r.wasActive = true
		} else if !active {
			r.wasActive = false
		}
		return
	}
	if active {
		r.State.Add(timer)
	}
}

// ResourceStateRemoveRule force-clears State the moment a resource
// satisfies Mode against Threshold. RequireActive skips the clear when
// the state is already inactive, avoiding a redundant ForceClear call.
type ResourceStateRemoveRule struct {
	Resource      *Resource
	State         *State
	Threshold     float64
	Mode          CompareMode
	RequireActive bool
}

// CheckAndApply evaluates the watched resource and clears State if due.
func (r *ResourceStateRemoveRule) CheckAndApply() {
	if !r.Mode.compare(r.Resource.Current(), r.Threshold) {
		return
	}
	if r.RequireActive && r.State.Current() <= 0 {
		return
	}
	r.State.ForceClear()
}

// ResourceRegenRule drives time-based regeneration (or decay, for a
// negative rate) of a resource, gated by a set of states that must meet a
// minimum stack (Requires) and a set that must be entirely inactive
// (Forbids).
type ResourceRegenRule struct {
	Resource      *Resource
	RatePerSec    float64
	Requires      []StateRequirement
	Forbids       []*State
}

// StateRequirement pairs a state with the minimum stack count a rule or
// legality check demands of it.
type StateRequirement struct {
	State    *State
	MinStack int
}

func (r *ResourceRegenRule) checkStates() bool {
	for _, req := range r.Requires {
		if req.State.Current() < req.MinStack {
			return false
		}
	}
	for _, s := range r.Forbids {
		if s.Current() > 0 {
			return false
		}
	}
	return true
}

// Apply grants dt*RatePerSec to the resource once gating passes.
func (r *ResourceRegenRule) Apply(dt float64) {
	if !r.checkStates() || dt <= 0 {
		return
	}
	if amount := r.RatePerSec * dt; amount != 0 {
		_ = r.Resource.Update(amount)
	}
}

// OperationAccelerate is a State-held rule shortening a target Operation's
// effective time: ratio = clamp(Ratio + RatioPerStack*stack, MinRatio,
// MaxRatio), where stack is the owning state's current count. When
// ByCurrentStack is false, RatioPerStack is not applied at all.
type OperationAccelerate struct {
	Operation      *Operation
	Ratio          float64
	RatioPerStack  float64
	ByCurrentStack bool
	MinRatio       float64
	MaxRatio       float64
}

func (a *OperationAccelerate) contribution(stateCurrent int) float64 {
	r := a.Ratio
	if a.RatioPerStack != 0 && a.ByCurrentStack {
		r += a.RatioPerStack * float64(stateCurrent)
	}
	if r < a.MinRatio {
		r = a.MinRatio
	}
	if r > a.MaxRatio {
		r = a.MaxRatio
	}
	return r
}

// OperationResourceEfficiency is a State-held rule scaling a target
// Operation's consume or produce amounts: mul = clamp(Mul +
// MulPerStack*stack, MinMul, MaxMul). A nil Resource applies to every
// resource the operation touches on the matching side.
type OperationResourceEfficiency struct {
	Operation      *Operation
	Target         EffectTarget
	Resource       *Resource
	Mul            float64
	MulPerStack    float64
	ByCurrentStack bool
	MinMul         float64
	MaxMul         float64
}

func (e *OperationResourceEfficiency) multiplier(stateCurrent int) float64 {
	m := e.Mul
	if e.MulPerStack != 0 && e.ByCurrentStack {
		m += e.MulPerStack * float64(stateCurrent)
	}
	if m < e.MinMul {
		m = e.MinMul
	}
	if m > e.MaxMul {
		m = e.MaxMul
	}
	return m
}

func (e *OperationResourceEfficiency) appliesTo(kind EffectTarget, resource *Resource) bool {
	if !e.Target.matches(kind) {
		return false
	}
	return e.Resource == nil || e.Resource == resource
}

// StateEffect modifies an Operation's consume/produce amount for a
// resource while its owning state's stack count is within [MinStack,
// MaxStack] (MaxStack unbounded when HasMaxStack is false). A nil
// Resource matches every resource on the targeted side.
type StateEffect struct {
	State       *State
	Target      EffectTarget
	Resource    *Resource
	Op          EffectOp
	Value       float64
	MinStack    int
	MaxStack    int
	HasMaxStack bool
}

func (e *StateEffect) active(stateOverride *State) bool {
	state := e.State
	if stateOverride != nil {
		state = stateOverride
	}
	cur := state.Current()
	if cur < e.MinStack {
		return false
	}
	if e.HasMaxStack && cur > e.MaxStack {
		return false
	}
	return true
}

// applyToAmount applies this effect to amount for flow direction kind,
// consulting stateOverride in place of e.State when present (shadow
// execution routes through the shadow clone of the same state id).
func (e *StateEffect) applyToAmount(amount float64, kind EffectTarget, resource *Resource, stateOverride *State) float64 {
	if !e.Target.matches(kind) {
		return amount
	}
	if e.Resource != nil && e.Resource != resource {
		return amount
	}
	if !e.active(stateOverride) {
		return amount
	}
	return e.Op.apply(amount, e.Value)
}

// ResourceThreshold is a simple legality gate: the named resource must
// satisfy Mode against Threshold.
type ResourceThreshold struct {
	Resource  *Resource
	Threshold float64
	Mode      CompareMode
}

func (t *ResourceThreshold) check() bool {
	return t.Mode.compare(t.Resource.Current(), t.Threshold)
}

// checkShadow evaluates the threshold against a shadow resource's current
// value, for MetaOperation shadow execution.
func (t *ResourceThreshold) checkShadow(shadow *shadowResource) bool {
	return t.Mode.compare(shadow.current, t.Threshold)
}

// OperationTriggeredStateRule adds stacks to a target state whenever a
// specific operation executes and an AND of state/resource conditions
// holds, independent of that operation's own declared StateEffects.
type OperationTriggeredStateRule struct {
	TriggerOperation  *Operation
	TargetState       *State
	RequiredStates    []StateRequirement
	ForbiddenStates   []*State
	ResourceThresholds []*ResourceThreshold
	AddStacks         int
}

func (r *OperationTriggeredStateRule) checkStates() bool {
	for _, req := range r.RequiredStates {
		if req.State.Current() < req.MinStack {
			return false
		}
	}
	for _, s := range r.ForbiddenStates {
		if s.Current() > 0 {
			return false
		}
	}
	return true
}

func (r *OperationTriggeredStateRule) checkResources() bool {
	for _, th := range r.ResourceThresholds {
		if !th.check() {
			return false
		}
	}
	return true
}

// TryApply fires after executedOp completes; it is a no-op unless
// executedOp is this rule's TriggerOperation and every condition holds.
func (r *OperationTriggeredStateRule) TryApply(executedOp *Operation, timer *Timer) {
	if executedOp != r.TriggerOperation {
		return
	}
	if !r.checkStates() || !r.checkResources() {
		return
	}
	for i := 0; i < r.AddStacks; i++ {
		r.TargetState.Add(timer)
	}
}

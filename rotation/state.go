package rotation

import "sort"

// StateType is a tagged enum distinguishing the two expiry models a State
// can use, replacing a polymorphic start_time field with two distinct
// payloads (see stateExpiry below).
type StateType int

const (
	// KeepAfterLastTouch ("type 1"): a single shared timestamp; the whole
	// stack count drops to zero together once now-startTime exceeds the
	// state's keep-alive window. Preserved quirk (spec.md §9 open
	// question): that window is the state's Length field, not its Time
	// field, even though Length otherwise means "slot count".
	KeepAfterLastTouch StateType = iota + 1
	// PerStackTimed ("type 2"): a fixed-capacity ring of per-touch
	// timestamps; current is always the count of timestamps still inside
	// the per-stack Time window.
	PerStackTimed
)

// StateResourceEffect couples a State's stack changes to a one-shot
// Resource update, fired exactly once per net stack change in either
// direction. A ratio_on_add/remove target overrides the flat on_add/
// on_remove amount for that effect.
type StateResourceEffect struct {
	Resource        *Resource
	OnAdd           float64
	OnRemove        float64
	PerStack        bool
	RatioOnAdd      *float64
	RatioOnRemove   *float64
}

// MetaPriorityRule is a (meta-operation, delta) pair a State carries: while
// the state is active (current > 0) the meta's priority is offset by
// Delta; once the state clears, the meta's priority reverts to its own
// base_priority automatically (the delta is additive each query, not a
// persistent mutation).
type MetaPriorityRule struct {
	Meta  *MetaOperation
	Delta int
}

// stateExpiry is the sum-type payload backing a State's two expiry
// models. Implementations mutate only their own bookkeeping; the stack
// count they return is already clamped to upperLimit.
type stateExpiry interface {
	onAdd(now float64, current, upperLimit int) int
	onRemove(now float64, current, upperLimit int) int
	onForceClear()
	clone() stateExpiry
}

type keepAfterLastTouchExpiry struct {
	window    float64
	startTime float64
}

func (e *keepAfterLastTouchExpiry) onAdd(now float64, current, upperLimit int) int {
	e.startTime = now
	next := current + 1
	if next > upperLimit {
		next = upperLimit
	}
	return next
}

func (e *keepAfterLastTouchExpiry) onRemove(now float64, current, upperLimit int) int {
	if current > 0 && now-e.startTime > e.window {
		e.startTime = 0
		return 0
	}
	return current
}

func (e *keepAfterLastTouchExpiry) onForceClear() {
	e.startTime = 0
}

func (e *keepAfterLastTouchExpiry) clone() stateExpiry {
	c := *e
	return &c
}

type perStackTimedExpiry struct {
	slotDuration float64
	slots        []*float64 // nil entry = empty slot
}

func newPerStackTimedExpiry(slotDuration float64, length int) *perStackTimedExpiry {
	return &perStackTimedExpiry{slotDuration: slotDuration, slots: make([]*float64, length)}
}

func (e *perStackTimedExpiry) liveCount(now float64) int {
	n := 0
	for _, t := range e.slots {
		if t != nil && now-*t <= e.slotDuration {
			n++
		}
	}
	return n
}

// onAdd sorts slots with empty (nil) entries pushed to the end, overwrites
// the first slot with now, then recounts live slots. Because a real
// timestamp always sorts before a nil one, this overwrites the oldest
// real touch rather than an idle empty slot whenever at least one real
// touch already exists — an observed quirk of the reference engine,
// preserved rather than "fixed" into LRU-over-empty-first behavior.
func (e *perStackTimedExpiry) onAdd(now float64, current, upperLimit int) int {
	sort.SliceStable(e.slots, func(i, j int) bool {
		ti, tj := e.slots[i], e.slots[j]
		if ti == nil {
			return false
		}
		if tj == nil {
			return true
		}
		return *ti < *tj
	})
	if len(e.slots) > 0 {
		v := now
		e.slots[0] = &v
	}
	live := e.liveCount(now)
	if live > upperLimit {
		live = upperLimit
	}
	return live
}

func (e *perStackTimedExpiry) onRemove(now float64, current, upperLimit int) int {
	live := e.liveCount(now)
	if live > upperLimit {
		live = upperLimit
	}
	return live
}

func (e *perStackTimedExpiry) onForceClear() {
	for i := range e.slots {
		e.slots[i] = nil
	}
}

func (e *perStackTimedExpiry) clone() stateExpiry {
	slots := make([]*float64, len(e.slots))
	for i, t := range e.slots {
		if t != nil {
			v := *t
			slots[i] = &v
		}
	}
	return &perStackTimedExpiry{slotDuration: e.slotDuration, slots: slots}
}

// State is a stackable effect with an upper limit on stacks, one of the
// two expiry models, and the rule lists other components consult while it
// is active.
type State struct {
	ID         string
	UpperLimit int
	Type       StateType

	ResourceEffects   []*StateResourceEffect
	MetaPriorityRules []*MetaPriorityRule
	OpAccelerateRules []*OperationAccelerate
	OpEfficiencyRules []*OperationResourceEfficiency

	expiry  stateExpiry
	current int
}

// NewKeepAfterLastTouchState constructs a type-1 state. window is the
// keep-alive duration measured from the last touch (spec.md's Length
// field, reinterpreted per the preserved §9 quirk).
func NewKeepAfterLastTouchState(id string, current, upperLimit int, window float64) *State {
	return &State{
		ID:         id,
		UpperLimit: upperLimit,
		Type:       KeepAfterLastTouch,
		expiry:     &keepAfterLastTouchExpiry{window: window},
		current:    clampInt(current, 0, upperLimit),
	}
}

// NewPerStackTimedState constructs a type-2 state with `slots` independent
// timing slots, each alive for slotDuration after its own touch.
func NewPerStackTimedState(id string, current, upperLimit int, slotDuration float64, slots int) *State {
	return &State{
		ID:         id,
		UpperLimit: upperLimit,
		Type:       PerStackTimed,
		expiry:     newPerStackTimedExpiry(slotDuration, slots),
		current:    clampInt(current, 0, upperLimit),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Current returns the state's live stack count.
func (s *State) Current() int {
	return s.current
}

// Add applies one touch, growing the stack per the state's expiry model
// and firing gain-side resource effects exactly once for the net change.
func (s *State) Add(timer *Timer) {
	prev := s.current
	s.current = s.expiry.onAdd(timer.Now(), prev, s.UpperLimit)
	if gained := s.current - prev; gained > 0 {
		s.applyResourceOnGain(gained)
	}
}

// Remove sweeps expiry for the current time, shrinking the stack if the
// expiry model says entries have lapsed, and firing loss-side resource
// effects exactly once for the net change. Called by StateManager.Update.
func (s *State) Remove(timer *Timer) {
	prev := s.current
	s.current = s.expiry.onRemove(timer.Now(), prev, s.UpperLimit)
	if lost := prev - s.current; lost > 0 {
		s.applyResourceOnLose(lost)
	}
}

// ForceClear immediately zeroes the stack regardless of elapsed time,
// firing the loss-side resource effect once for the full amount cleared.
func (s *State) ForceClear() {
	if s.current <= 0 {
		s.expiry.onForceClear()
		return
	}
	prev := s.current
	s.current = 0
	s.expiry.onForceClear()
	s.applyResourceOnLose(prev)
}

func (s *State) applyResourceOnGain(delta int) {
	if len(s.ResourceEffects) == 0 || delta <= 0 {
		return
	}
	for _, eff := range s.ResourceEffects {
		if eff.RatioOnAdd != nil {
			target := eff.Resource.UpperLimit * *eff.RatioOnAdd
			if d := target - eff.Resource.Current(); d != 0 {
				_ = eff.Resource.Update(d)
			}
			continue
		}
		if eff.OnAdd == 0 {
			continue
		}
		amount := eff.OnAdd
		if eff.PerStack {
			amount *= float64(delta)
		}
		if amount != 0 {
			_ = eff.Resource.Update(amount)
		}
	}
}

func (s *State) applyResourceOnLose(delta int) {
	if len(s.ResourceEffects) == 0 || delta <= 0 {
		return
	}
	for _, eff := range s.ResourceEffects {
		if eff.RatioOnRemove != nil {
			target := eff.Resource.UpperLimit * *eff.RatioOnRemove
			if d := target - eff.Resource.Current(); d != 0 {
				_ = eff.Resource.Update(d)
			}
			continue
		}
		if eff.OnRemove == 0 {
			continue
		}
		amount := eff.OnRemove
		if eff.PerStack {
			amount *= float64(delta)
		}
		if amount != 0 {
			_ = eff.Resource.Update(amount)
		}
	}
}

// shadowClone returns a structural copy for meta-operation shadow
// execution: the expiry payload is deep-copied (including per-slot
// timestamps), the rule lists are shared by reference (read-only lookups
// during simulation), and ResourceEffects is deliberately left empty so
// shadow stack changes can never reach a real Resource.
func (s *State) shadowClone() *State {
	return &State{
		ID:                s.ID,
		UpperLimit:        s.UpperLimit,
		Type:              s.Type,
		MetaPriorityRules: s.MetaPriorityRules,
		OpAccelerateRules: s.OpAccelerateRules,
		OpEfficiencyRules: s.OpEfficiencyRules,
		expiry:            s.expiry.clone(),
		current:           s.current,
	}
}

package rotation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestResourceUpdateClampsAndTracksConsumeTotal(t *testing.T) {
	r := NewResource("energy", 10, 5)

	require.NoError(t, r.Update(3))
	require.Equal(t, 8.0, r.Current())

	require.NoError(t, r.Update(10))
	require.Equal(t, 10.0, r.Current(), "overflow saturates at upper_limit")
	require.Equal(t, 0.0, r.ConsumeTotal(), "positive deltas never count as consumption")

	require.NoError(t, r.Update(-4))
	require.Equal(t, 6.0, r.Current())
	require.Equal(t, 4.0, r.ConsumeTotal())

	err := r.Update(-100)
	require.Error(t, err)
	var insufficient *ErrInsufficientResource
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, 6.0, r.Current(), "a failed update must not mutate current")
}

// S3 from spec.md §8: op a base_time=2, state S current=2 with an
// accelerate rule ratio_per_stack=0.25 by_current_stack, min=0, max=0.9.
func TestOperationAccelerateMatchesScenarioS3(t *testing.T) {
	s := NewKeepAfterLastTouchState("S", 0, 3, 100)
	timer := NewTimer()
	s.Add(timer)
	s.Add(timer)
	require.Equal(t, 2, s.Current())

	op := &Operation{ID: "a", BaseTime: 2}
	s.OpAccelerateRules = []*OperationAccelerate{
		{Operation: op, RatioPerStack: 0.25, ByCurrentStack: true, MinRatio: 0, MaxRatio: 0.9},
	}

	manager := NewStateManager()
	manager.Register(s)

	require.Equal(t, 1.0, op.EffectiveTime(manager))
}

// S4 from spec.md §8: ratio_on_add/ratio_on_remove drive a resource
// straight to a fraction of its upper_limit, overriding the flat amount.
func TestStateRatioOnAddAndRemove(t *testing.T) {
	r := NewResource("R", 10, 3)
	one, zero := 1.0, 0.0
	s := NewKeepAfterLastTouchState("S", 0, 1, 100)
	s.ResourceEffects = []*StateResourceEffect{
		{Resource: r, RatioOnAdd: &one, RatioOnRemove: &zero},
	}

	timer := NewTimer()
	s.Add(timer)
	require.Equal(t, 10.0, r.Current())

	s.ForceClear()
	require.Equal(t, 0.0, r.Current())
}

// S6 from spec.md §8: regen gated by a forbidding state.
func TestRegenRuleForbiddenByState(t *testing.T) {
	r := NewResource("R", 100, 0)
	s := NewKeepAfterLastTouchState("S", 0, 1, 100)
	rule := &ResourceRegenRule{Resource: r, RatePerSec: 1, Forbids: []*State{s}}

	rule.Apply(2)
	require.Equal(t, 2.0, r.Current())

	timer := NewTimer()
	s.Add(timer)
	rule.Apply(2)
	require.Equal(t, 2.0, r.Current(), "regen must not apply while the forbidding state is active")
}

func TestResourceStateRuleOnceFiresOnlyOnRisingEdge(t *testing.T) {
	r := NewResource("rage", 100, 0)
	target := NewKeepAfterLastTouchState("overheat", 0, 5, 100)
	rule := &ResourceStateRule{Resource: r, Threshold: 50, State: target, Mode: GTE, Once: true}
	timer := NewTimer()

	_ = r.Update(60)
	rule.CheckAndApply(timer)
	require.Equal(t, 1, target.Current())

	rule.CheckAndApply(timer)
	require.Equal(t, 1, target.Current(), "once=true must not re-stack while still above threshold")

	_ = r.Update(-60)
	rule.CheckAndApply(timer)
	_ = r.Update(60)
	rule.CheckAndApply(timer)
	require.Equal(t, 2, target.Current(), "a fresh crossing after dropping below threshold fires again")
}

// Double-clamp asymmetry pinned per DESIGN.md open question #2: a
// modifier pushing consumption back above consume_upper_limit is
// re-clamped; nothing re-raises it above consume_lower_limit afterward.
func TestConsumeUpperLimitDoubleClampAsymmetry(t *testing.T) {
	r := NewResource("E", 100, 100)
	s := NewKeepAfterLastTouchState("buff", 1, 1, 100)
	op := &Operation{
		ID:                "a",
		Requirements:      []*Resource{r},
		ConsumeBase:       []float64{3},
		ConsumeUpperLimit: ptr(5),
		ConsumeLowerLimit: ptr(1),
		StateEffects: []*StateEffect{
			{State: s, Target: TargetConsume, Op: EffectAdd, Value: 10, MinStack: 1},
		},
	}

	amounts := op.calcConsumeAmounts(nil, nil)
	require.Equal(t, []float64{5}, amounts, "base 3 + 10 = 13, re-clamped down to upper_limit 5")

	op2 := &Operation{
		ID:                "b",
		Requirements:      []*Resource{r},
		ConsumeBase:       []float64{3},
		ConsumeUpperLimit: ptr(5),
		ConsumeLowerLimit: ptr(1),
		StateEffects: []*StateEffect{
			{State: s, Target: TargetConsume, Op: EffectSub, Value: 10, MinStack: 1},
		},
	}
	amounts2 := op2.calcConsumeAmounts(nil, nil)
	require.Equal(t, []float64{0}, amounts2, "base 3 - 10 floors at 0, consume_lower_limit is not re-applied after modifiers")
}

func TestOperationTestAndOperateAgreement(t *testing.T) {
	r := NewResource("E", 10, 5)
	op := &Operation{
		ID:           "a",
		BaseTime:     1,
		Requirements: []*Resource{r},
		ConsumeBase:  []float64{6},
	}

	require.False(t, op.Test(nil))
	_, err := op.Operate(NewTimer(), nil)
	require.Error(t, err)
	var illegal *ErrIllegalOperation
	require.ErrorAs(t, err, &illegal)
	require.Equal(t, 0, op.Counter())

	_ = r.Update(1) // now 6, consume exactly matches
	require.True(t, op.Test(nil))
	rec, err := op.Operate(NewTimer(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, op.Counter())
	require.Equal(t, 1, rec.Counter)
	require.Equal(t, 6.0, rec.Consumed["E"])
	require.Equal(t, 0.0, r.Current())
}

// S1 from spec.md §8: a simple linear meta that should stop after 2 of 3
// planned repeats once the resource runs dry.
func TestBuildRotationFromMetaScenarioS1(t *testing.T) {
	c := NewCharacter("hero", NewTimer())
	e := NewResource("E", 10, 5)
	c.AddResource(e)

	a := &Operation{ID: "a", BaseTime: 1, Requirements: []*Resource{e}, ConsumeBase: []float64{2}}
	meta := &MetaOperation{ID: "M1", Type: Linear, Operations: []*Operation{a, a, a}}
	c.AddMetaOperation(meta)

	log := c.BuildRotationFromMeta(9999)
	require.Len(t, log, 2)
	require.Equal(t, 2.0, c.Timer.Now())
	require.Equal(t, 1.0, e.Current())
}

// S2 from spec.md §8: shadow execution must reject a sequence that would
// run a resource negative partway through, even though each op tests
// fine independently at the start.
func TestMetaOperationSimulatedRejectsUnsafeSequence(t *testing.T) {
	e := NewResource("E", 10, 5)
	a := &Operation{ID: "a", BaseTime: 0, Requirements: []*Resource{e}, ConsumeBase: []float64{3}}
	b := &Operation{ID: "b", BaseTime: 0, Requirements: []*Resource{e}, ConsumeBase: []float64{3}}
	meta := &MetaOperation{ID: "M2", Type: Simulated, Operations: []*Operation{a, b, b}}

	manager := NewStateManager()
	timer := NewTimer()

	require.False(t, meta.CanExecute(timer, manager))
	require.Equal(t, 5.0, e.Current(), "shadow execution must never mutate the real resource")
}

// S5 from spec.md §8: a state's meta_priority_rules can swap which
// meta-operation the driver prefers, reverting once the state clears.
func TestMetaPriorityRuleSwapsDriverChoice(t *testing.T) {
	c := NewCharacter("hero", NewTimer())
	noop1 := &Operation{ID: "op1", BaseTime: 0}
	noop2 := &Operation{ID: "op2", BaseTime: 0}
	m1 := &MetaOperation{ID: "M1", Type: Linear, BasePriority: 10, Operations: []*Operation{noop1}}
	m2 := &MetaOperation{ID: "M2", Type: Linear, BasePriority: 5, Operations: []*Operation{noop2}}
	c.AddMetaOperation(m1)
	c.AddMetaOperation(m2)

	s := NewKeepAfterLastTouchState("surge", 0, 1, 100)
	s.MetaPriorityRules = []*MetaPriorityRule{{Meta: m2, Delta: 20}}
	c.AddState(s)
	s.Add(c.Timer)

	log := c.BuildRotationFromMeta(1)
	require.Len(t, log, 1)
	require.Equal(t, "op2", log[0].OperationID, "M2's boosted priority (25) must beat M1's base 10 while the state is active")
}

func TestBuildRotationGreedyOpsRegistrationOrderTieBreak(t *testing.T) {
	c := NewCharacter("hero", NewTimer())
	e := NewResource("E", 10, 10)
	c.AddResource(e)

	first := &Operation{ID: "first", BaseTime: 0, Requirements: []*Resource{e}, ConsumeBase: []float64{1}}
	second := &Operation{ID: "second", BaseTime: 0, Requirements: []*Resource{e}, ConsumeBase: []float64{1}}
	c.AddOperation(first)
	c.AddOperation(second)

	log := c.BuildRotationGreedyOps(1, nil)
	require.Len(t, log, 1)
	require.Equal(t, "first", log[0].OperationID)
}

func TestNewCharacterStampsADistinctRunID(t *testing.T) {
	a := NewCharacter("hero", NewTimer())
	b := NewCharacter("hero", NewTimer())

	require.NotEqual(t, uuid.Nil, a.RunID)
	require.NotEqual(t, a.RunID, b.RunID)
}

func TestBuildRotationGreedyOpsFullAttachesPerOperationSnapshots(t *testing.T) {
	c := NewCharacter("hero", NewTimer())
	e := NewResource("E", 10, 10)
	c.AddResource(e)

	op := &Operation{ID: "strike", BaseTime: 1, Requirements: []*Resource{e}, ConsumeBase: []float64{3}}
	c.AddOperation(op)

	full := c.BuildRotationGreedyOpsFull(2, nil)
	require.Len(t, full, 2)
	require.Equal(t, 7.0, full[0].Resources["E"])
	require.Equal(t, 4.0, full[1].Resources["E"])
}

func TestBuildRotationFromMetaFullSharesOneSnapshotPerMetaStep(t *testing.T) {
	c := NewCharacter("hero", NewTimer())
	e := NewResource("E", 10, 10)
	c.AddResource(e)

	first := &Operation{ID: "first", BaseTime: 0, Requirements: []*Resource{e}, ConsumeBase: []float64{1}}
	second := &Operation{ID: "second", BaseTime: 0, Requirements: []*Resource{e}, ConsumeBase: []float64{1}}
	c.AddOperation(first)
	c.AddOperation(second)

	meta := &MetaOperation{ID: "combo", BasePriority: 1, Type: Linear, Operations: []*Operation{first, second}}
	c.AddMetaOperation(meta)

	full := c.BuildRotationFromMetaFull(1)
	require.Len(t, full, 2)
	require.Equal(t, 8.0, full[0].Resources["E"])
	require.Equal(t, full[0].Resources["E"], full[1].Resources["E"], "both records from the same meta step share one snapshot")
}

func TestPerStackTimedStateLiveCountInvariant(t *testing.T) {
	s := NewPerStackTimedState("dot", 0, 3, 5, 3)
	timer := NewTimer()

	s.Add(timer)
	timer.Update(2)
	s.Remove(timer)
	require.Equal(t, 1, s.Current())

	timer.Update(4) // total elapsed since the touch: 6 > slotDuration 5
	s.Remove(timer)
	require.Equal(t, 0, s.Current(), "the single occupied slot must expire once its own window lapses")
}

func TestAddOperationWithChargesConsumesAndRegensAPool(t *testing.T) {
	c := NewCharacter("rogue", NewTimer())
	op := &Operation{ID: "combo_strike", BaseTime: 0}

	c.AddOperationWithCharges(op, 2, 10, "")

	charge, ok := c.Resource("charge_combo_strike")
	require.True(t, ok)
	require.Equal(t, 2.0, charge.Current(), "a fresh charge pool starts full")

	log := c.BuildRotationGreedyOps(1, nil)
	require.Len(t, log, 1)
	require.Equal(t, 1.0, charge.Current())

	c.Timer.Update(10)
	c.applyTimeRegen()
	require.Equal(t, 2.0, charge.Current(), "one charge_cd of elapsed time regenerates exactly one charge")
}

func TestAddOperationWithChargesSharesPoolAndRaisesCap(t *testing.T) {
	c := NewCharacter("rogue", NewTimer())
	first := &Operation{ID: "jab", BaseTime: 0}
	second := &Operation{ID: "cross", BaseTime: 0}

	c.AddOperationWithCharges(first, 1, 0, "combo")
	pool, ok := c.Resource("combo")
	require.True(t, ok)
	require.Equal(t, 1.0, pool.UpperLimit)

	c.AddOperationWithCharges(second, 3, 0, "combo")
	require.Equal(t, 3.0, pool.UpperLimit, "a larger max_charges raises the shared pool's cap")

	again, ok := c.Resource("combo")
	require.True(t, ok)
	require.Same(t, pool, again, "both operations must share the same charge resource instance")
}

func TestConfigErrorOnUnknownCompareMode(t *testing.T) {
	_, err := ParseCompareMode("~=")
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

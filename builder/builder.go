package builder

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kaelbyte/rotation-kernel/rotation"
)

// LoadFile reads a character document from path and builds it, the
// equivalent of the reference engine's "load character from disk" entry
// point (original_source/loadcharacter.py).
func LoadFile(path string) (*rotation.Character, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("builder: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("builder: decode %s: %v", path, err)
	}
	return Build(&doc)
}

// resolver holds the entities created in Build's first pass, keyed by the
// string IDs a document cross-references.
type resolver struct {
	resources map[string]*rotation.Resource
	states    map[string]*rotation.State
	ops       map[string]*rotation.Operation
	metas     map[string]*rotation.MetaOperation
}

func (r *resolver) resource(id string) (*rotation.Resource, error) {
	res, ok := r.resources[id]
	if !ok {
		return nil, &rotation.ConfigError{Detail: "unknown resource id: " + id}
	}
	return res, nil
}

func (r *resolver) state(id string) (*rotation.State, error) {
	st, ok := r.states[id]
	if !ok {
		return nil, &rotation.ConfigError{Detail: "unknown state id: " + id}
	}
	return st, nil
}

func (r *resolver) operation(id string) (*rotation.Operation, error) {
	op, ok := r.ops[id]
	if !ok {
		return nil, &rotation.ConfigError{Detail: "unknown operation id: " + id}
	}
	return op, nil
}

func (r *resolver) meta(id string) (*rotation.MetaOperation, error) {
	m, ok := r.metas[id]
	if !ok {
		return nil, &rotation.ConfigError{Detail: "unknown meta-operation id: " + id}
	}
	return m, nil
}

// Build resolves a Document's cross-referenced IDs into a fully wired
// rotation.Character. It runs in two passes: the first instantiates every
// Resource, State, Operation, and MetaOperation with the bare shape its
// constructor needs; the second fills in every list that cross-references
// another entity (a State's OperationAccelerate rules pointing at
// Operations, an Operation's StateEffects pointing at States, and so on),
// since those references form a cycle no single top-to-bottom pass could
// resolve.
func Build(doc *Document) (*rotation.Character, error) {
	timer := rotation.NewTimer()
	if doc.TotalTime != nil {
		timer = rotation.NewTimerWithCap(*doc.TotalTime)
	}
	character := rotation.NewCharacter(doc.Name, timer)

	res := &resolver{
		resources: make(map[string]*rotation.Resource, len(doc.Resources)),
		states:    make(map[string]*rotation.State, len(doc.States)),
		ops:       make(map[string]*rotation.Operation, len(doc.Operations)),
		metas:     make(map[string]*rotation.MetaOperation, len(doc.MetaOperations)),
	}

	for _, rd := range doc.Resources {
		r := rotation.NewResource(rd.ID, rd.UpperLimit, rd.Current)
		res.resources[rd.ID] = r
	}

	for _, sd := range doc.States {
		s, err := newBareState(sd)
		if err != nil {
			return nil, err
		}
		res.states[sd.ID] = s
	}

	for _, od := range doc.Operations {
		op, err := newBareOperation(od, res)
		if err != nil {
			return nil, err
		}
		res.ops[od.ID] = op
	}

	for _, md := range doc.MetaOperations {
		m, err := newBareMeta(md, res)
		if err != nil {
			return nil, err
		}
		res.metas[md.ID] = m
	}

	for _, sd := range doc.States {
		if err := wireState(res.states[sd.ID], sd, res); err != nil {
			return nil, err
		}
	}
	for _, od := range doc.Operations {
		if err := wireOperation(res.ops[od.ID], od, res); err != nil {
			return nil, err
		}
	}

	for _, rd := range doc.Resources {
		character.AddResource(res.resources[rd.ID])
	}
	for _, sd := range doc.States {
		character.AddState(res.states[sd.ID])
	}
	for _, od := range doc.Operations {
		op := res.ops[od.ID]
		if od.Charges != nil {
			character.AddOperationWithCharges(op, od.Charges.MaxCharges, od.Charges.ChargeCD, od.Charges.ResourceID)
			continue
		}
		character.AddOperation(op)
	}
	for _, md := range doc.MetaOperations {
		character.AddMetaOperation(res.metas[md.ID])
	}

	for _, rrd := range doc.RegenRules {
		rule, err := newRegenRule(rrd, res)
		if err != nil {
			return nil, err
		}
		character.AddRegenRule(rule)
	}
	for _, trd := range doc.TriggerRules {
		rule, err := newTriggerRule(trd, res)
		if err != nil {
			return nil, err
		}
		character.AddOpTriggerRule(rule)
	}

	return character, nil
}

func newBareState(sd StateDoc) (*rotation.State, error) {
	switch sd.Type {
	case 1:
		return rotation.NewKeepAfterLastTouchState(sd.ID, sd.Current, sd.UpperLimit, sd.Length), nil
	case 2:
		return rotation.NewPerStackTimedState(sd.ID, sd.Current, sd.UpperLimit, sd.Length, sd.UpperLimit), nil
	default:
		return nil, &rotation.ConfigError{Detail: fmt.Sprintf("state %s: unknown type %d", sd.ID, sd.Type)}
	}
}

func newBareOperation(od OperationDoc, res *resolver) (*rotation.Operation, error) {
	op := &rotation.Operation{
		ID:                od.ID,
		BaseTime:          od.BaseTime,
		ConsumeUpperLimit: od.ConsumeUpperLimit,
		ConsumeLowerLimit: od.ConsumeLowerLimit,
	}
	for _, req := range od.Requirements {
		r, err := res.resource(req.ResourceID)
		if err != nil {
			return nil, err
		}
		op.Requirements = append(op.Requirements, r)
		op.ConsumeBase = append(op.ConsumeBase, req.Consume)
	}
	for _, p := range od.Produces {
		r, err := res.resource(p.ResourceID)
		if err != nil {
			return nil, err
		}
		op.Outputs = append(op.Outputs, r)
		op.ProduceBase = append(op.ProduceBase, p.Amount)
	}
	return op, nil
}

func newBareMeta(md MetaOperationDoc, res *resolver) (*rotation.MetaOperation, error) {
	m := &rotation.MetaOperation{
		ID:           md.ID,
		BasePriority: md.BasePriority,
	}
	switch md.Type {
	case 1:
		m.Type = rotation.Linear
	case 2:
		m.Type = rotation.Simulated
	default:
		return nil, &rotation.ConfigError{Detail: fmt.Sprintf("meta-operation %s: unknown type %d", md.ID, md.Type)}
	}
	for _, opID := range md.Operations {
		op, err := res.operation(opID)
		if err != nil {
			return nil, err
		}
		m.Operations = append(m.Operations, op)
	}
	var err error
	if m.MetaStateRequirements, err = stateRequirements(md.MetaStateRequirements, res); err != nil {
		return nil, err
	}
	if m.MetaStateForbids, err = stateList(md.MetaStateForbids, res); err != nil {
		return nil, err
	}
	return m, nil
}

func wireState(s *rotation.State, sd StateDoc, res *resolver) error {
	for _, e := range sd.ResourceEffects {
		r, err := res.resource(e.ResourceID)
		if err != nil {
			return err
		}
		s.ResourceEffects = append(s.ResourceEffects, &rotation.StateResourceEffect{
			Resource:      r,
			OnAdd:         e.OnAdd,
			OnRemove:      e.OnRemove,
			PerStack:      e.PerStack,
			RatioOnAdd:    e.RatioOnAdd,
			RatioOnRemove: e.RatioOnRemove,
		})
	}
	for _, mp := range sd.MetaPriorityRules {
		m, err := res.meta(mp.MetaID)
		if err != nil {
			return err
		}
		s.MetaPriorityRules = append(s.MetaPriorityRules, &rotation.MetaPriorityRule{Meta: m, Delta: mp.Delta})
	}
	for _, ar := range sd.OpAccelerateRules {
		op, err := res.operation(ar.OperationID)
		if err != nil {
			return err
		}
		s.OpAccelerateRules = append(s.OpAccelerateRules, &rotation.OperationAccelerate{
			Operation:      op,
			Ratio:          ar.Ratio,
			RatioPerStack:  ar.RatioPerStack,
			ByCurrentStack: ar.ByCurrentStack,
			MinRatio:       ar.MinRatio,
			MaxRatio:       ar.MaxRatio,
		})
	}
	for _, er := range sd.OpEfficiencyRules {
		op, err := res.operation(er.OperationID)
		if err != nil {
			return err
		}
		target, err := rotation.ParseEffectTarget(er.Target)
		if err != nil {
			return err
		}
		var resource *rotation.Resource
		if er.ResourceID != "" {
			resource, err = res.resource(er.ResourceID)
			if err != nil {
				return err
			}
		}
		s.OpEfficiencyRules = append(s.OpEfficiencyRules, &rotation.OperationResourceEfficiency{
			Operation:      op,
			Target:         target,
			Resource:       resource,
			Mul:            er.Mul,
			MulPerStack:    er.MulPerStack,
			ByCurrentStack: er.ByCurrentStack,
			MinMul:         er.MinMul,
			MaxMul:         er.MaxMul,
		})
	}
	return nil
}

func stateRequirements(docs []StateRequirementDoc, res *resolver) ([]rotation.StateRequirement, error) {
	out := make([]rotation.StateRequirement, 0, len(docs))
	for _, d := range docs {
		s, err := res.state(d.StateID)
		if err != nil {
			return nil, err
		}
		out = append(out, rotation.StateRequirement{State: s, MinStack: d.MinStack})
	}
	return out, nil
}

func stateList(ids []string, res *resolver) ([]*rotation.State, error) {
	out := make([]*rotation.State, 0, len(ids))
	for _, id := range ids {
		s, err := res.state(id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func wireOperation(op *rotation.Operation, od OperationDoc, res *resolver) error {
	var err error
	if op.StatesOutput, err = stateList(od.StatesOutput, res); err != nil {
		return err
	}
	if op.StateRequirements, err = stateRequirements(od.StateRequirements, res); err != nil {
		return err
	}
	if op.StateForbids, err = stateList(od.StateForbids, res); err != nil {
		return err
	}

	for _, se := range od.StateEffects {
		st, err := res.state(se.StateID)
		if err != nil {
			return err
		}
		target, err := rotation.ParseEffectTarget(se.Target)
		if err != nil {
			return err
		}
		effOp, err := rotation.ParseEffectOp(se.Op)
		if err != nil {
			return err
		}
		var resource *rotation.Resource
		if se.ResourceID != "" {
			resource, err = res.resource(se.ResourceID)
			if err != nil {
				return err
			}
		}
		eff := &rotation.StateEffect{
			State:    st,
			Target:   target,
			Resource: resource,
			Op:       effOp,
			Value:    se.Value,
			MinStack: se.MinStack,
		}
		if se.MaxStack != nil {
			eff.HasMaxStack = true
			eff.MaxStack = *se.MaxStack
		}
		op.StateEffects = append(op.StateEffects, eff)
	}

	for _, rr := range od.ResourceStateRules {
		r, err := res.resource(rr.ResourceID)
		if err != nil {
			return err
		}
		st, err := res.state(rr.StateID)
		if err != nil {
			return err
		}
		mode, err := rotation.ParseCompareMode(rr.Mode)
		if err != nil {
			return err
		}
		op.ResourceStateRules = append(op.ResourceStateRules, &rotation.ResourceStateRule{
			Resource:  r,
			Threshold: rr.Threshold,
			State:     st,
			Mode:      mode,
			Once:      rr.Once,
		})
	}

	for _, rrr := range od.ResourceStateRemoveRules {
		r, err := res.resource(rrr.ResourceID)
		if err != nil {
			return err
		}
		st, err := res.state(rrr.StateID)
		if err != nil {
			return err
		}
		mode, err := rotation.ParseCompareMode(rrr.Mode)
		if err != nil {
			return err
		}
		op.ResourceStateRemoveRules = append(op.ResourceStateRemoveRules, &rotation.ResourceStateRemoveRule{
			Resource:      r,
			State:         st,
			Threshold:     rrr.Threshold,
			Mode:          mode,
			RequireActive: rrr.RequireActive,
		})
	}

	return nil
}

func newRegenRule(d RegenRuleDoc, res *resolver) (*rotation.ResourceRegenRule, error) {
	r, err := res.resource(d.ResourceID)
	if err != nil {
		return nil, err
	}
	requires, err := stateRequirements(d.Requires, res)
	if err != nil {
		return nil, err
	}
	forbids, err := stateList(d.Forbids, res)
	if err != nil {
		return nil, err
	}
	return &rotation.ResourceRegenRule{
		Resource:   r,
		RatePerSec: d.RatePerSec,
		Requires:   requires,
		Forbids:    forbids,
	}, nil
}

func newTriggerRule(d TriggerRuleDoc, res *resolver) (*rotation.OperationTriggeredStateRule, error) {
	trigger, err := res.operation(d.TriggerOperationID)
	if err != nil {
		return nil, err
	}
	target, err := res.state(d.TargetStateID)
	if err != nil {
		return nil, err
	}
	required, err := stateRequirements(d.RequiredStates, res)
	if err != nil {
		return nil, err
	}
	forbidden, err := stateList(d.ForbiddenStates, res)
	if err != nil {
		return nil, err
	}
	rule := &rotation.OperationTriggeredStateRule{
		TriggerOperation: trigger,
		TargetState:      target,
		RequiredStates:   required,
		ForbiddenStates:  forbidden,
		AddStacks:        d.AddStacks,
	}
	for _, th := range d.ResourceThresholds {
		r, err := res.resource(th.ResourceID)
		if err != nil {
			return nil, err
		}
		mode, err := rotation.ParseCompareMode(th.Mode)
		if err != nil {
			return nil, err
		}
		rule.ResourceThresholds = append(rule.ResourceThresholds, &rotation.ResourceThreshold{
			Resource:  r,
			Threshold: th.Threshold,
			Mode:      mode,
		})
	}
	return rule, nil
}

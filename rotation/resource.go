package rotation

// Resource is a bounded non-negative scalar with consume/produce
// accounting. current never leaves [0, UpperLimit].
type Resource struct {
	ID           string
	UpperLimit   float64
	current      float64
	consumeTotal float64
}

// NewResource constructs a resource clamped into [0, upperLimit].
func NewResource(id string, upperLimit, current float64) *Resource {
	if current < 0 {
		current = 0
	}
	if current > upperLimit {
		current = upperLimit
	}
	return &Resource{ID: id, UpperLimit: upperLimit, current: current}
}

// Current returns the resource's current amount.
func (r *Resource) Current() float64 {
	return r.current
}

// ConsumeTotal returns the running total of absolute consumption.
func (r *Resource) ConsumeTotal() float64 {
	return r.consumeTotal
}

// Update applies a signed delta. Negative deltas consume and fail with
// ErrInsufficientResource if they would drive current below zero;
// positive deltas produce and saturate silently at UpperLimit (the
// overflow is not counted as consumption); a zero delta is a no-op.
func (r *Resource) Update(delta float64) error {
	switch {
	case delta < 0:
		if r.current+delta < 0 {
			return &ErrInsufficientResource{ResourceID: r.ID, Needed: -delta, Current: r.current}
		}
		r.current += delta
		r.consumeTotal += -delta
	case delta > 0:
		r.current += delta
		if r.current > r.UpperLimit {
			r.current = r.UpperLimit
		}
	}
	return nil
}

// shadowResource is the disposable (current, upperLimit) pair used during
// meta-operation shadow execution; it never touches the real Resource or
// its consumeTotal accounting.
type shadowResource struct {
	current    float64
	upperLimit float64
}

func newShadowResource(r *Resource) *shadowResource {
	return &shadowResource{current: r.current, upperLimit: r.UpperLimit}
}

// consume deducts amount if sufficient; returns false (no mutation) on
// shortfall.
func (s *shadowResource) consume(amount float64) bool {
	if s.current < amount {
		return false
	}
	s.current -= amount
	return true
}

// produce adds amount, saturating at upperLimit.
func (s *shadowResource) produce(amount float64) {
	if amount <= 0 {
		return
	}
	s.current += amount
	if s.current > s.upperLimit {
		s.current = s.upperLimit
	}
}

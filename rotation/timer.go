package rotation

// Timer is a monotonic simulated clock. Time never decreases; operations
// and shadow execution are the only things that advance it.
type Timer struct {
	currentTime float64
	totalTime   float64 // advisory cap; the kernel never enforces it
	hasCap      bool
}

// NewTimer starts a timer at t=0 with no total-time cap.
func NewTimer() *Timer {
	return &Timer{}
}

// NewTimerWithCap starts a timer at t=0 with an advisory total-time cap.
// The cap is never enforced by the kernel; it exists for callers that want
// to compare against it themselves.
func NewTimerWithCap(totalTime float64) *Timer {
	return &Timer{totalTime: totalTime, hasCap: true}
}

// Now returns the current simulated time.
func (t *Timer) Now() float64 {
	return t.currentTime
}

// TotalTime returns the advisory cap and whether one was set.
func (t *Timer) TotalTime() (float64, bool) {
	return t.totalTime, t.hasCap
}

// Update advances the clock by dt (dt must be >= 0) and returns the new
// time.
func (t *Timer) Update(dt float64) float64 {
	if dt < 0 {
		dt = 0
	}
	t.currentTime += dt
	return t.currentTime
}

// snapshot captures the timer's state for shadow-execution invariant
// checks (the real timer must be byte-identical before and after a
// can_execute call).
func (t *Timer) snapshot() float64 {
	return t.currentTime
}

// clone returns an independent shadow timer seeded from this one.
func (t *Timer) clone() *Timer {
	return &Timer{currentTime: t.currentTime, totalTime: t.totalTime, hasCap: t.hasCap}
}

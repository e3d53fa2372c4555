package rotation

// StateManager owns the full set of States belonging to a Character and
// sweeps them for expiry in registration order every tick.
type StateManager struct {
	states []*State
	byID   map[string]*State
}

// NewStateManager returns an empty manager.
func NewStateManager() *StateManager {
	return &StateManager{byID: make(map[string]*State)}
}

// Register adds a state under its ID. Registering a duplicate ID replaces
// the prior entry in the lookup map but not in sweep order — callers
// should register each ID exactly once.
func (m *StateManager) Register(s *State) {
	m.states = append(m.states, s)
	m.byID[s.ID] = s
}

// Get looks up a registered state by ID.
func (m *StateManager) Get(id string) (*State, bool) {
	s, ok := m.byID[id]
	return s, ok
}

// All returns the registered states in registration order.
func (m *StateManager) All() []*State {
	return m.states
}

// Update sweeps every registered state's expiry for the current time, in
// registration order. This is the only place State.Remove is called
// outside of a direct, explicit ForceClear.
func (m *StateManager) Update(timer *Timer) {
	for _, s := range m.states {
		s.Remove(timer)
	}
}

package flock

// Observer receives advisory events from World.Step. Connect and Proximity
// are called while group locks are held, so implementations must return
// quickly and must not call back into the World.
type Observer interface {
	// Connect reports a same-group neighbor pair.
	Connect(a, b AgentState)
	// Proximity reports a pair closer than a's proximity threshold.
	Proximity(a, b AgentState)
	// GroupStatistics is called once per non-empty group per tick.
	GroupStatistics(s Stats)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) Connect(a, b AgentState)   {}
func (NopObserver) Proximity(a, b AgentState) {}
func (NopObserver) GroupStatistics(s Stats)   {}

// MultiObserver fans every event out to each observer in order.
type MultiObserver []Observer

func (m MultiObserver) Connect(a, b AgentState) {
	for _, o := range m {
		o.Connect(a, b)
	}
}

func (m MultiObserver) Proximity(a, b AgentState) {
	for _, o := range m {
		o.Proximity(a, b)
	}
}

func (m MultiObserver) GroupStatistics(s Stats) {
	for _, o := range m {
		o.GroupStatistics(s)
	}
}

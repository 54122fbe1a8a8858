package stats

import "context"

// Milestone kinds, in the tie-break order used by NextMilestone.
const (
	MilestoneDistance = "distance"
	MilestoneStates   = "states"
	MilestoneTrips    = "trips"
)

var (
	distanceLadder = []float64{1000, 5000, 10000, 25000, 50000, 100000}
	statesLadder   = []float64{10, 25, 50}
	tripsLadder    = []float64{100, 500, 1000}
)

// Milestone is the next goal on one of the ladders.
type Milestone struct {
	Kind    string  `json:"kind"`
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
}

// Progress is how far along the goal is, as current/target.
func (m Milestone) Progress() float64 {
	if m.Target == 0 {
		return 0
	}
	return m.Current / m.Target
}

// nextThreshold picks the smallest ladder entry above current. The false
// return means the whole ladder has been exceeded.
func nextThreshold(ladder []float64, current float64) (float64, bool) {
	for _, threshold := range ladder {
		if current < threshold {
			return threshold, true
		}
	}
	return 0, false
}

// NextDistanceMilestone is the next total-miles goal, nil once the ladder
// is exhausted.
func (e *Engine) NextDistanceMilestone(ctx context.Context) (*Milestone, error) {
	miles, err := e.TotalMiles(ctx)
	if err != nil {
		return nil, err
	}
	target, ok := nextThreshold(distanceLadder, miles)
	if !ok {
		return nil, nil
	}
	return &Milestone{Kind: MilestoneDistance, Current: miles, Target: target}, nil
}

// NextStateMilestone is the next states-visited goal, nil once the ladder
// is exhausted.
func (e *Engine) NextStateMilestone(ctx context.Context) (*Milestone, error) {
	states, err := e.StatesVisited(ctx)
	if err != nil {
		return nil, err
	}
	current := float64(len(states))
	target, ok := nextThreshold(statesLadder, current)
	if !ok {
		return nil, nil
	}
	return &Milestone{Kind: MilestoneStates, Current: current, Target: target}, nil
}

// NextTripMilestone is the next trip-count goal, nil once the ladder is
// exhausted.
func (e *Engine) NextTripMilestone(ctx context.Context) (*Milestone, error) {
	count, err := e.TotalTrips(ctx)
	if err != nil {
		return nil, err
	}
	current := float64(count)
	target, ok := nextThreshold(tripsLadder, current)
	if !ok {
		return nil, nil
	}
	return &Milestone{Kind: MilestoneTrips, Current: current, Target: target}, nil
}

// NextMilestone picks the ladder goal with the highest progress. Ties go
// to the earlier ladder in distance, states, trips order. Nil when every
// ladder is exhausted.
func (e *Engine) NextMilestone(ctx context.Context) (*Milestone, error) {
	candidates := make([]*Milestone, 0, 3)
	for _, next := range []func(context.Context) (*Milestone, error){
		e.NextDistanceMilestone,
		e.NextStateMilestone,
		e.NextTripMilestone,
	} {
		m, err := next(ctx)
		if err != nil {
			return nil, err
		}
		if m != nil {
			candidates = append(candidates, m)
		}
	}

	var best *Milestone
	for _, m := range candidates {
		if best == nil || m.Progress() > best.Progress() {
			best = m
		}
	}
	return best, nil
}

package scheduler

// priorityPlan serves the single most urgent approach as scored by
// DirectionPriority. Equal scores keep the earlier direction of the
// N, E, S, W order. The green duration allots 2.5 seconds per queued
// vehicle on the winning approach.
func (s *Scheduler) priorityPlan(state IntersectionState) ActionPlan {
	best := Directions[0]
	bestScore := DirectionPriority(state, best)
	for _, d := range Directions[1:] {
		if score := DirectionPriority(state, d); score > bestScore {
			best = d
			bestScore = score
		}
	}

	target, _ := GreenFor(best)
	plan := ActionPlan(transitionTo(state.CurrentPhase, target, s.params))
	duration := clip(2.5*float64(state.Queues[best]), s.params.MinGreen, s.params.MaxGreen)
	plan = append(plan, Phase{Phase: target, Duration: duration, Preemptable: true})
	return plan
}

package scheduler

// roundRobinPlan advances the intersection to the next green of the
// configured cycle. A current phase outside the cycle, such as a
// yellow or all-red, restarts the cycle at its first element. The
// green duration grows with the queues on the target axis.
func (s *Scheduler) roundRobinPlan(state IntersectionState) (ActionPlan, error) {
	cycle := s.params.RRCycleOrder
	if len(cycle) == 0 {
		return nil, EmptyPlanError{}
	}

	target := cycle[0]
	for i, p := range cycle {
		if p == state.CurrentPhase {
			target = cycle[(i+1)%len(cycle)]
			break
		}
	}

	plan := ActionPlan(transitionTo(state.CurrentPhase, target, s.params))
	duration := clip(s.params.MinGreen+2*float64(queuedOnAxis(state, target)),
		s.params.MinGreen, s.params.MaxGreen)
	plan = append(plan, Phase{Phase: target, Duration: duration, Preemptable: true})
	return plan, nil
}

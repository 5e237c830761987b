package scheduler

// sjfPlan serves the axis with the least pending work: current queues
// plus the arrivals expected within the configured horizon. Ties keep
// the earlier phase of the cycle order. The green duration allots
// three seconds per job.
func (s *Scheduler) sjfPlan(state IntersectionState) (ActionPlan, error) {
	cycle := s.params.RRCycleOrder
	if len(cycle) == 0 {
		return nil, EmptyPlanError{}
	}

	var target PhaseID
	best := 0.0
	for i, p := range cycle {
		jobs := float64(queuedOnAxis(state, p)) + ArrivalsInHorizon(state, p, s.params.SJFHorizon)
		if i == 0 || jobs < best {
			target = p
			best = jobs
		}
	}

	plan := ActionPlan(transitionTo(state.CurrentPhase, target, s.params))
	duration := clip(3*best, s.params.MinGreen, s.params.MaxGreen)
	plan = append(plan, Phase{Phase: target, Duration: duration, Preemptable: true})
	return plan, nil
}

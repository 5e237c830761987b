package scheduler

// HasUrgentEmergency reports whether any emergency vehicle demands
// immediate preemption: its ETA is within the preempt buffer, or its
// approach already has queued vehicles.
func (s *Scheduler) HasUrgentEmergency(state IntersectionState) bool {
	for _, ev := range state.Emergency {
		if ev.TimeToIntersection <= s.params.EmergencyPreemptBuffer {
			return true
		}
		if state.Queues[ev.Direction] > 0 {
			return true
		}
	}
	return false
}

// emergencyPlan produces the preemption plan. Emergencies spanning
// several approaches are resolved first-come-first-served on ETA;
// within a single approach the vehicle minimizing (ETA, priority)
// wins. The granted green is non-preemptable and extends by five
// seconds for every additional vehicle on the chosen approach.
func (s *Scheduler) emergencyPlan(state IntersectionState) ActionPlan {
	byDirection := make(map[Direction][]EmergencyVehicle)
	for _, ev := range state.Emergency {
		byDirection[ev.Direction] = append(byDirection[ev.Direction], ev)
	}

	var target Direction
	if len(byDirection) > 1 {
		earliest := state.Emergency[0]
		for _, ev := range state.Emergency[1:] {
			if ev.TimeToIntersection < earliest.TimeToIntersection {
				earliest = ev
			}
		}
		target = earliest.Direction
		if s.params.Debug {
			s.logger.Info("Multiple emergencies, FCFS on ETA",
				"direction", target, "eta", earliest.TimeToIntersection)
		}
	} else {
		urgent := state.Emergency[0]
		for _, ev := range state.Emergency[1:] {
			if ev.TimeToIntersection < urgent.TimeToIntersection ||
				(ev.TimeToIntersection == urgent.TimeToIntersection && ev.Priority < urgent.Priority) {
				urgent = ev
			}
		}
		target = urgent.Direction
	}

	targetPhase, _ := GreenFor(target)
	var plan ActionPlan
	if state.CurrentPhase != targetPhase && state.CurrentPhase != AllRed {
		plan = append(plan, transitionTo(state.CurrentPhase, targetPhase, s.params)...)
	}

	count := len(byDirection[target])
	duration := clip(s.params.EmergencyClearDuration+float64(count-1)*5,
		s.params.MinGreen, s.params.MaxGreen)
	plan = append(plan, Phase{Phase: targetPhase, Duration: duration, Preemptable: false})

	if s.params.Debug {
		s.logger.Info("Emergency preemption",
			"direction", target, "duration", duration, "vehicles", count)
	}
	return plan
}

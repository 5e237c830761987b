package scheduler

// Derived statistics over an intersection snapshot. All arithmetic is
// double precision; missing map entries count as zero.

// MeanQueue returns the average queue length across the approaches
// present in the snapshot, or zero when none are.
func MeanQueue(state IntersectionState) float64 {
	if len(state.Queues) == 0 {
		return 0
	}
	sum := 0.0
	for _, q := range state.Queues {
		sum += float64(q)
	}
	return sum / float64(len(state.Queues))
}

// QueueVariance returns the population variance of the queue lengths,
// or zero when fewer than two approaches are present.
func QueueVariance(state IntersectionState) float64 {
	n := len(state.Queues)
	if n < 2 {
		return 0
	}
	mean := MeanQueue(state)
	variance := 0.0
	for _, q := range state.Queues {
		d := float64(q) - mean
		variance += d * d
	}
	return variance / float64(n)
}

// ArrivalsInHorizon estimates the vehicles arriving on the approaches
// served by phase within the next horizon seconds. Non-green phases
// serve no approaches and estimate zero.
func ArrivalsInHorizon(state IntersectionState, phase PhaseID, horizon float64) float64 {
	total := 0.0
	for _, d := range phase.ServedDirections() {
		total += state.ArrivalRates[d] * horizon
	}
	return total
}

// DirectionPriority scores the urgency of approach d. Queue length
// weighs double, mean waiting time is scaled down by ten, and each
// emergency vehicle on the approach adds 100 divided by its priority
// number.
func DirectionPriority(state IntersectionState, d Direction) float64 {
	priority := float64(state.Queues[d]) * 2

	if waits := state.WaitingTimes[d]; len(waits) > 0 {
		sum := 0.0
		for _, w := range waits {
			sum += w
		}
		priority += sum / float64(len(waits)) / 10
	}

	for _, ev := range state.Emergency {
		if ev.Direction == d {
			priority += 100 / float64(ev.Priority)
		}
	}
	return priority
}

// queuedOnAxis sums the queues of the approaches served by phase.
func queuedOnAxis(state IntersectionState, phase PhaseID) int {
	total := 0
	for _, d := range phase.ServedDirections() {
		total += state.Queues[d]
	}
	return total
}

package scheduler

// transitionTo returns the safety phases required to move the
// intersection from current to the target green. The returned slice
// never contains a green: callers append the target themselves.
//
// Moving between greens on different axes inserts the yellow of the
// source axis followed by an all-red. From a yellow, only the all-red
// remains. From all-red, or when the target is already active, nothing
// is needed.
func transitionTo(current, target PhaseID, p PolicyParams) []Phase {
	if current == target || current == AllRed {
		return nil
	}
	var out []Phase
	if current.IsGreen() {
		out = append(out, Phase{Phase: current.Yellow(), Duration: p.YellowDuration, Preemptable: false})
	}
	out = append(out, Phase{Phase: AllRed, Duration: p.AllRedDuration, Preemptable: false})
	return out
}

package scheduler

import "fmt"

// Direction is one of the four compass approaches of the intersection.
type Direction string

const (
	North Direction = "N"
	East  Direction = "E"
	South Direction = "S"
	West  Direction = "W"
)

// Directions lists the approaches in tie-break order. When two
// directions score equal priority, the earlier one wins.
var Directions = [4]Direction{North, East, South, West}

// PhaseID names a signal configuration of the whole intersection.
type PhaseID string

const (
	NSGreen  PhaseID = "NS_green"
	EWGreen  PhaseID = "EW_green"
	NSYellow PhaseID = "NS_yellow"
	EWYellow PhaseID = "EW_yellow"
	AllRed   PhaseID = "all_red"
)

// IsGreen tells whether p serves traffic on one axis.
func (p PhaseID) IsGreen() bool {
	return p == NSGreen || p == EWGreen
}

// IsYellow tells whether p is a clearance phase of one axis.
func (p PhaseID) IsYellow() bool {
	return p == NSYellow || p == EWYellow
}

// Yellow returns the clearance phase of the same axis as green phase p.
// It returns AllRed for anything that is not a green.
func (p PhaseID) Yellow() PhaseID {
	switch p {
	case NSGreen:
		return NSYellow
	case EWGreen:
		return EWYellow
	}
	return AllRed
}

// ServedDirections returns the approaches that may move during p.
// Only greens serve approaches.
func (p PhaseID) ServedDirections() []Direction {
	switch p {
	case NSGreen:
		return []Direction{North, South}
	case EWGreen:
		return []Direction{East, West}
	}
	return nil
}

// GreenFor returns the green phase serving approach d.
func GreenFor(d Direction) (PhaseID, error) {
	switch d {
	case North, South:
		return NSGreen, nil
	case East, West:
		return EWGreen, nil
	}
	return AllRed, fmt.Errorf("unknown direction: %s", d)
}

// Phase is one step of an action plan: a signal configuration held for
// Duration seconds. Phases with Preemptable false must run to
// completion before a later plan is honored.
type Phase struct {
	Phase       PhaseID `json:"phase"`
	Duration    float64 `json:"duration"`
	Preemptable bool    `json:"preemptable"`
}

// ActionPlan is an ordered sequence of phases to execute end to end.
type ActionPlan []Phase

// TerminalGreen returns the last green phase of the plan, or false if
// the plan has none.
func (p ActionPlan) TerminalGreen() (Phase, bool) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Phase.IsGreen() {
			return p[i], true
		}
	}
	return Phase{}, false
}

// EmergencyVehicle describes an approaching emergency vehicle.
// Lower Priority numbers are more important.
type EmergencyVehicle struct {
	Direction          Direction `json:"direction"`
	TimeToIntersection float64   `json:"timeToIntersection"`
	VehicleID          string    `json:"vehicleId"`
	Priority           int       `json:"priority"`
}

// IntersectionState is the snapshot the environment feeds into the
// scheduler on every call. Missing directions in any of the maps are
// treated as zero. WaitingTimes is a multiset per approach; no
// correspondence with Queues is assumed.
type IntersectionState struct {
	Queues       map[Direction]int       `json:"queues"`
	WaitingTimes map[Direction][]float64 `json:"waitingTimes"`
	ArrivalRates map[Direction]float64   `json:"arrivalRates"`
	Emergency    []EmergencyVehicle      `json:"emergency"`
	CurrentPhase PhaseID                 `json:"currentPhase"`
	SimTime      float64                 `json:"simTime"`
}

// SchedulingPolicy selects which planner produces the action plan.
type SchedulingPolicy string

const (
	RoundRobin       SchedulingPolicy = "RR"
	ShortestJobFirst SchedulingPolicy = "SJF"
	Priority         SchedulingPolicy = "PRIORITY"
	Meta             SchedulingPolicy = "META"
)

// ParsePolicy maps an external label, such as the output of a policy
// classifier, to a SchedulingPolicy. Unknown labels are rejected.
func ParsePolicy(s string) (SchedulingPolicy, error) {
	switch SchedulingPolicy(s) {
	case RoundRobin, ShortestJobFirst, Priority, Meta:
		return SchedulingPolicy(s), nil
	}
	return "", UnsupportedPolicyError{Policy: s}
}

package scheduler

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func basicState() IntersectionState {
	return IntersectionState{
		Queues: map[Direction]int{North: 3, East: 2, South: 1, West: 4},
		WaitingTimes: map[Direction][]float64{
			North: {10, 15, 20},
			East:  {5, 8},
			South: {12},
			West:  {25, 30, 18, 22},
		},
		ArrivalRates: map[Direction]float64{North: 0.1, East: 0.05, South: 0.08, West: 0.12},
		CurrentPhase: NSGreen,
		SimTime:      100,
	}
}

func TestRoundRobin(t *testing.T) {
	Convey("Given a scheduler with default params", t, func() {
		s := New(DefaultParams())

		Convey("Low uniform load cycles to the next green with its transition", func() {
			state := IntersectionState{
				Queues:       map[Direction]int{North: 1, East: 1, South: 1, West: 1},
				ArrivalRates: map[Direction]float64{North: 0.02, East: 0.02, South: 0.02, West: 0.02},
				CurrentPhase: NSGreen,
				SimTime:      10,
			}
			Convey("The meta-scheduler selects Round Robin", func() {
				So(s.SelectPolicy(state), ShouldEqual, RoundRobin)
			})
			plan, err := s.Schedule(state, Meta)
			So(err, ShouldBeNil)
			So(plan, ShouldResemble, ActionPlan{
				{Phase: NSYellow, Duration: 3, Preemptable: false},
				{Phase: AllRed, Duration: 1, Preemptable: false},
				{Phase: EWGreen, Duration: 11, Preemptable: true},
			})
		})

		Convey("A current phase outside the cycle restarts at the first element", func() {
			state := IntersectionState{
				Queues:       map[Direction]int{},
				CurrentPhase: AllRed,
				SimTime:      0,
			}
			plan, err := s.Schedule(state, RoundRobin)
			So(err, ShouldBeNil)
			So(plan, ShouldResemble, ActionPlan{
				{Phase: NSGreen, Duration: 7, Preemptable: true},
			})
		})

		Convey("From a yellow only the all-red transition remains", func() {
			state := IntersectionState{
				Queues:       map[Direction]int{North: 1},
				CurrentPhase: NSYellow,
				SimTime:      0,
			}
			plan, err := s.Schedule(state, RoundRobin)
			So(err, ShouldBeNil)
			So(plan[0], ShouldResemble, Phase{Phase: AllRed, Duration: 1, Preemptable: false})
			So(plan[1].Phase, ShouldEqual, NSGreen)
		})

		Convey("The green duration never exceeds max_green", func() {
			state := IntersectionState{
				Queues:       map[Direction]int{East: 50, West: 50},
				CurrentPhase: NSGreen,
				SimTime:      0,
			}
			plan, err := s.Schedule(state, RoundRobin)
			So(err, ShouldBeNil)
			green, ok := plan.TerminalGreen()
			So(ok, ShouldBeTrue)
			So(green.Duration, ShouldEqual, 60)
		})

		Convey("Repeated calls with the same current phase keep the same target", func() {
			state := basicState()
			first, err := s.Schedule(state, RoundRobin)
			So(err, ShouldBeNil)
			second, err := s.Schedule(state, RoundRobin)
			So(err, ShouldBeNil)
			So(second, ShouldResemble, first)
		})
	})
}

func TestShortestJobFirst(t *testing.T) {
	Convey("Given a scheduler with default params", t, func() {
		s := New(DefaultParams())

		Convey("High variance picks SJF and SJF serves the lighter axis", func() {
			state := IntersectionState{
				Queues: map[Direction]int{North: 10, East: 1, South: 8, West: 1},
				ArrivalRates: map[Direction]float64{
					North: 0.1, East: 0.01, South: 0.08, West: 0.01,
				},
				CurrentPhase: EWGreen,
				SimTime:      300,
			}
			So(QueueVariance(state), ShouldBeGreaterThan, 4)
			So(s.SelectPolicy(state), ShouldEqual, ShortestJobFirst)

			// EW jobs: 2 queued + (0.01+0.01)*30 arrivals = 2.6, versus
			// NS at 23.4. Same axis as the current phase, so no
			// transition, and the green runs 3 seconds per job.
			plan, err := s.Schedule(state, Meta)
			So(err, ShouldBeNil)
			So(len(plan), ShouldEqual, 1)
			So(plan[0].Phase, ShouldEqual, EWGreen)
			So(plan[0].Duration, ShouldAlmostEqual, 7.8, 1e-9)
			So(plan[0].Preemptable, ShouldBeTrue)
		})

		Convey("Equal job counts keep the earlier phase of the cycle", func() {
			state := IntersectionState{
				Queues:       map[Direction]int{North: 2, East: 1, South: 0, West: 1},
				CurrentPhase: AllRed,
				SimTime:      0,
			}
			plan, err := s.Schedule(state, ShortestJobFirst)
			So(err, ShouldBeNil)
			So(plan[len(plan)-1].Phase, ShouldEqual, NSGreen)
		})

		Convey("A zero horizon reduces SJF to current queues", func() {
			params := DefaultParams()
			params.SJFHorizon = 0
			s0 := New(params)
			state := IntersectionState{
				Queues:       map[Direction]int{North: 1, South: 1, East: 3, West: 3},
				ArrivalRates: map[Direction]float64{North: 10, South: 10},
				CurrentPhase: AllRed,
				SimTime:      0,
			}
			plan, err := s0.Schedule(state, ShortestJobFirst)
			So(err, ShouldBeNil)
			So(plan[len(plan)-1].Phase, ShouldEqual, NSGreen)
		})
	})
}

func TestPriority(t *testing.T) {
	Convey("Given a scheduler with default params", t, func() {
		s := New(DefaultParams())

		Convey("The most urgent approach wins and sets the green duration", func() {
			state := basicState()
			// W scores 4*2 + mean(25,30,18,22)/10 = 10.375, ahead of
			// N (7.5), E (4.65) and S (3.2).
			So(DirectionPriority(state, West), ShouldAlmostEqual, 10.375, 1e-9)
			plan, err := s.Schedule(state, Priority)
			So(err, ShouldBeNil)
			So(plan, ShouldResemble, ActionPlan{
				{Phase: NSYellow, Duration: 3, Preemptable: false},
				{Phase: AllRed, Duration: 1, Preemptable: false},
				{Phase: EWGreen, Duration: 10, Preemptable: true},
			})
		})

		Convey("Equal scores keep the earlier direction of N, E, S, W", func() {
			state := IntersectionState{
				Queues:       map[Direction]int{North: 2, East: 2, South: 2, West: 2},
				CurrentPhase: AllRed,
				SimTime:      0,
			}
			plan, err := s.Schedule(state, Priority)
			So(err, ShouldBeNil)
			So(plan[len(plan)-1].Phase, ShouldEqual, NSGreen)
		})

		Convey("Empty queues still produce a minimum green", func() {
			state := IntersectionState{
				Queues:       map[Direction]int{},
				CurrentPhase: AllRed,
				SimTime:      0,
			}
			plan, err := s.Schedule(state, Priority)
			So(err, ShouldBeNil)
			So(plan, ShouldResemble, ActionPlan{
				{Phase: NSGreen, Duration: 7, Preemptable: true},
			})
		})
	})
}

func TestEmergency(t *testing.T) {
	Convey("Given a scheduler with default params", t, func() {
		s := New(DefaultParams())

		Convey("An urgent emergency on the cross axis preempts with a full transition", func() {
			state := IntersectionState{
				Queues: map[Direction]int{North: 2, East: 3, South: 1, West: 2},
				Emergency: []EmergencyVehicle{
					{Direction: North, TimeToIntersection: 4, VehicleID: "EMG001", Priority: 1},
				},
				CurrentPhase: EWGreen,
				SimTime:      200,
			}
			So(s.HasUrgentEmergency(state), ShouldBeTrue)
			plan, err := s.Schedule(state, Meta)
			So(err, ShouldBeNil)
			So(plan, ShouldResemble, ActionPlan{
				{Phase: EWYellow, Duration: 3, Preemptable: false},
				{Phase: AllRed, Duration: 1, Preemptable: false},
				{Phase: NSGreen, Duration: 15, Preemptable: false},
			})
		})

		Convey("Emergencies on several approaches resolve FCFS on ETA", func() {
			state := IntersectionState{
				Queues: map[Direction]int{North: 2, East: 3, South: 1, West: 2},
				Emergency: []EmergencyVehicle{
					{Direction: East, TimeToIntersection: 8, VehicleID: "EMG002", Priority: 1},
					{Direction: North, TimeToIntersection: 5, VehicleID: "EMG003", Priority: 2},
				},
				CurrentPhase: EWGreen,
				SimTime:      200,
			}
			plan, err := s.Schedule(state, Meta)
			So(err, ShouldBeNil)
			So(plan, ShouldResemble, ActionPlan{
				{Phase: EWYellow, Duration: 3, Preemptable: false},
				{Phase: AllRed, Duration: 1, Preemptable: false},
				{Phase: NSGreen, Duration: 15, Preemptable: false},
			})
		})

		Convey("Several vehicles on the chosen approach extend the green", func() {
			state := IntersectionState{
				Queues: map[Direction]int{},
				Emergency: []EmergencyVehicle{
					{Direction: North, TimeToIntersection: 3, VehicleID: "EMG004", Priority: 1},
					{Direction: North, TimeToIntersection: 6, VehicleID: "EMG005", Priority: 2},
					{Direction: North, TimeToIntersection: 9, VehicleID: "EMG006", Priority: 2},
				},
				CurrentPhase: NSGreen,
				SimTime:      0,
			}
			plan, err := s.Schedule(state, Meta)
			So(err, ShouldBeNil)
			So(plan, ShouldResemble, ActionPlan{
				{Phase: NSGreen, Duration: 25, Preemptable: false},
			})
		})

		Convey("A distant emergency over a non-empty queue is still urgent", func() {
			state := IntersectionState{
				Queues: map[Direction]int{West: 1},
				Emergency: []EmergencyVehicle{
					{Direction: West, TimeToIntersection: 50, VehicleID: "EMG007", Priority: 1},
				},
				CurrentPhase: NSGreen,
				SimTime:      0,
			}
			So(s.HasUrgentEmergency(state), ShouldBeTrue)
			plan, err := s.Schedule(state, Meta)
			So(err, ShouldBeNil)
			green, ok := plan.TerminalGreen()
			So(ok, ShouldBeTrue)
			So(green.Phase, ShouldEqual, EWGreen)
			So(green.Preemptable, ShouldBeFalse)
		})

		Convey("A distant emergency on an empty approach is not urgent", func() {
			state := IntersectionState{
				Queues: map[Direction]int{North: 0, South: 3, East: 3, West: 3},
				Emergency: []EmergencyVehicle{
					{Direction: North, TimeToIntersection: 50, VehicleID: "EMG008", Priority: 1},
				},
				CurrentPhase: NSGreen,
				SimTime:      0,
			}
			So(s.HasUrgentEmergency(state), ShouldBeFalse)
			Convey("But its presence pins the Priority policy", func() {
				So(s.SelectPolicy(state), ShouldEqual, Priority)
			})
		})
	})
}

func TestMetaScheduler(t *testing.T) {
	Convey("Given a scheduler with default params", t, func() {
		s := New(DefaultParams())

		Convey("Balanced conditions fall back to Priority", func() {
			state := IntersectionState{
				Queues:       map[Direction]int{North: 3, East: 3, South: 3, West: 3},
				CurrentPhase: NSGreen,
				SimTime:      0,
			}
			So(s.SelectPolicy(state), ShouldEqual, Priority)
		})

		Convey("Explanations describe the branch taken", func() {
			low := IntersectionState{Queues: map[Direction]int{North: 1, East: 1, South: 1, West: 1}}
			So(s.ExplainDecision(low, RoundRobin), ShouldContainSubstring, "Round Robin")

			skewed := IntersectionState{Queues: map[Direction]int{North: 10, East: 1, South: 8, West: 1}}
			So(s.ExplainDecision(skewed, ShortestJobFirst), ShouldContainSubstring, "SJF")

			urgent := IntersectionState{
				Emergency: []EmergencyVehicle{{Direction: North, TimeToIntersection: 2, Priority: 1}},
			}
			So(s.ExplainDecision(urgent, Priority), ShouldContainSubstring, "Emergency")

			balanced := IntersectionState{Queues: map[Direction]int{North: 3, East: 3, South: 3, West: 3}}
			So(s.ExplainDecision(balanced, Priority), ShouldContainSubstring, "Balanced")
		})

		Convey("The policy history records concrete dispatches", func() {
			state := basicState()
			_, err := s.Schedule(state, RoundRobin)
			So(err, ShouldBeNil)
			_, err = s.Schedule(state, Priority)
			So(err, ShouldBeNil)
			So(s.PolicyHistory(), ShouldResemble, []SchedulingPolicy{RoundRobin, Priority})
		})
	})
}

func TestErrorsAndValidation(t *testing.T) {
	Convey("Given a scheduler with default params", t, func() {
		s := New(DefaultParams())

		Convey("An unknown policy is rejected", func() {
			_, err := s.Schedule(basicState(), SchedulingPolicy("FIFO"))
			So(err, ShouldResemble, UnsupportedPolicyError{Policy: "FIFO"})
		})

		Convey("ParsePolicy accepts exactly the known labels", func() {
			for _, label := range []string{"RR", "SJF", "PRIORITY", "META"} {
				_, err := ParsePolicy(label)
				So(err, ShouldBeNil)
			}
			_, err := ParsePolicy("LRU")
			So(err, ShouldResemble, UnsupportedPolicyError{Policy: "LRU"})
		})

		Convey("An empty cycle order yields EmptyPlanError for RR and SJF", func() {
			params := DefaultParams()
			params.RRCycleOrder = nil
			s0 := New(params)
			_, err := s0.Schedule(basicState(), RoundRobin)
			So(err, ShouldResemble, EmptyPlanError{})
			_, err = s0.Schedule(basicState(), ShortestJobFirst)
			So(err, ShouldResemble, EmptyPlanError{})
		})

		Convey("Negative inputs surface InvalidStateError", func() {
			state := basicState()
			state.Emergency = []EmergencyVehicle{
				{Direction: North, TimeToIntersection: -1, VehicleID: "EMG009", Priority: 1},
			}
			_, err := s.Schedule(state, Meta)
			So(err, ShouldHaveSameTypeAs, InvalidStateError{})

			state = basicState()
			state.Queues[East] = -2
			_, err = s.Schedule(state, Meta)
			So(err, ShouldHaveSameTypeAs, InvalidStateError{})
		})

		Convey("Sim time may stall but never run backwards", func() {
			state := basicState()
			state.SimTime = 100
			_, err := s.Schedule(state, RoundRobin)
			So(err, ShouldBeNil)
			_, err = s.Schedule(state, RoundRobin)
			So(err, ShouldBeNil)
			state.SimTime = 99
			_, err = s.Schedule(state, RoundRobin)
			So(err, ShouldHaveSameTypeAs, InvalidStateError{})
		})
	})
}

func TestPlanInvariants(t *testing.T) {
	states := []IntersectionState{
		basicState(),
		{Queues: map[Direction]int{}, CurrentPhase: AllRed},
		{Queues: map[Direction]int{North: 30, East: 30, South: 30, West: 30}, CurrentPhase: EWGreen},
		{
			Queues:       map[Direction]int{North: 5},
			CurrentPhase: EWYellow,
			Emergency: []EmergencyVehicle{
				{Direction: North, TimeToIntersection: 1, VehicleID: "EMG010", Priority: 1},
			},
		},
	}
	policies := []SchedulingPolicy{RoundRobin, ShortestJobFirst, Priority, Meta}

	Convey("For all sample states and policies", t, func() {
		params := DefaultParams()

		Convey("Every plan honors duration bounds and transition safety", func() {
			for _, state := range states {
				for _, policy := range policies {
					s := New(params)
					plan, err := s.Schedule(state, policy)
					So(err, ShouldBeNil)
					So(len(plan), ShouldBeGreaterThan, 0)
					for i, p := range plan {
						switch {
						case p.Phase.IsGreen():
							So(p.Duration, ShouldBeBetweenOrEqual, params.MinGreen, params.MaxGreen)
						case p.Phase.IsYellow():
							So(p.Duration, ShouldEqual, params.YellowDuration)
							So(p.Preemptable, ShouldBeFalse)
							// a yellow is always followed by an all-red
							So(i+1, ShouldBeLessThan, len(plan))
							So(plan[i+1].Phase, ShouldEqual, AllRed)
						default:
							So(p.Duration, ShouldEqual, params.AllRedDuration)
							So(p.Preemptable, ShouldBeFalse)
						}
					}
					// crossing axes requires the yellow of the source axis first
					if state.CurrentPhase.IsGreen() {
						if green, ok := plan.TerminalGreen(); ok && green.Phase != state.CurrentPhase {
							So(plan[0].Phase, ShouldEqual, state.CurrentPhase.Yellow())
							So(plan[1].Phase, ShouldEqual, AllRed)
						}
					}
				}
			}
		})

		Convey("Scheduling is deterministic for identical inputs", func() {
			for _, state := range states {
				for _, policy := range policies {
					a, errA := New(params).Schedule(state, policy)
					b, errB := New(params).Schedule(state, policy)
					So(errA, ShouldBeNil)
					So(errB, ShouldBeNil)
					So(b, ShouldResemble, a)
				}
			}
		})
	})
}

// applyPlan advances the snapshot as a caller would after executing
// the whole plan.
func applyPlan(state IntersectionState, plan ActionPlan) IntersectionState {
	next := state
	for _, p := range plan {
		next.CurrentPhase = p.Phase
		next.SimTime += p.Duration
	}
	return next
}

func TestRoundTrip(t *testing.T) {
	Convey("Given a round-robin plan applied to completion", t, func() {
		s := New(DefaultParams())
		state := basicState()
		plan, err := s.Schedule(state, RoundRobin)
		So(err, ShouldBeNil)
		green, ok := plan.TerminalGreen()
		So(ok, ShouldBeTrue)
		So(green.Phase, ShouldEqual, EWGreen)

		Convey("Rescheduling continues the cycle from the reached green", func() {
			next := applyPlan(state, plan)
			replan, err := s.Schedule(next, RoundRobin)
			So(err, ShouldBeNil)
			So(replan[0].Phase, ShouldEqual, EWYellow)
			green, ok := replan.TerminalGreen()
			So(ok, ShouldBeTrue)
			So(green.Phase, ShouldEqual, NSGreen)
		})
	})
}

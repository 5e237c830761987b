package scheduler

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestQueueStatistics(t *testing.T) {
	Convey("Given intersection snapshots", t, func() {
		Convey("Mean and variance follow the queue map", func() {
			state := IntersectionState{
				Queues: map[Direction]int{North: 10, East: 1, South: 8, West: 1},
			}
			So(MeanQueue(state), ShouldEqual, 5)
			So(QueueVariance(state), ShouldAlmostEqual, 16.5, 1e-9)
		})

		Convey("An empty queue map means zero load", func() {
			state := IntersectionState{}
			So(MeanQueue(state), ShouldEqual, 0)
			So(QueueVariance(state), ShouldEqual, 0)
		})

		Convey("A single approach has zero variance", func() {
			state := IntersectionState{Queues: map[Direction]int{North: 9}}
			So(QueueVariance(state), ShouldEqual, 0)
		})
	})
}

func TestArrivalsInHorizon(t *testing.T) {
	Convey("Given per-approach arrival rates", t, func() {
		state := IntersectionState{
			ArrivalRates: map[Direction]float64{North: 0.1, South: 0.05, East: 0.2},
		}

		Convey("A green sums the rates of its axis over the horizon", func() {
			So(ArrivalsInHorizon(state, NSGreen, 30), ShouldAlmostEqual, 4.5, 1e-9)
			// W is missing from the map and counts as zero
			So(ArrivalsInHorizon(state, EWGreen, 30), ShouldAlmostEqual, 6.0, 1e-9)
		})

		Convey("Non-green phases serve nothing", func() {
			So(ArrivalsInHorizon(state, AllRed, 30), ShouldEqual, 0)
			So(ArrivalsInHorizon(state, NSYellow, 30), ShouldEqual, 0)
		})

		Convey("A zero horizon estimates zero arrivals", func() {
			So(ArrivalsInHorizon(state, NSGreen, 0), ShouldEqual, 0)
		})
	})
}

func TestDirectionPriority(t *testing.T) {
	Convey("Given a loaded intersection", t, func() {
		state := IntersectionState{
			Queues:       map[Direction]int{North: 3},
			WaitingTimes: map[Direction][]float64{North: {10, 15, 20}},
			Emergency: []EmergencyVehicle{
				{Direction: North, TimeToIntersection: 20, VehicleID: "EMG100", Priority: 2},
			},
		}

		Convey("Queues, waits and emergencies all contribute", func() {
			// 3*2 + 15/10 + 100/2
			So(DirectionPriority(state, North), ShouldAlmostEqual, 57.5, 1e-9)
		})

		Convey("An unknown approach scores zero", func() {
			So(DirectionPriority(state, West), ShouldEqual, 0)
		})
	})
}

func TestTransitionBuilder(t *testing.T) {
	params := DefaultParams()

	Convey("Given the safety transition builder", t, func() {
		Convey("Staying on the same green needs nothing", func() {
			So(transitionTo(NSGreen, NSGreen, params), ShouldBeNil)
		})

		Convey("All-red is already safe", func() {
			So(transitionTo(AllRed, EWGreen, params), ShouldBeNil)
		})

		Convey("Crossing axes inserts the source yellow then all-red", func() {
			So(transitionTo(EWGreen, NSGreen, params), ShouldResemble, []Phase{
				{Phase: EWYellow, Duration: 3, Preemptable: false},
				{Phase: AllRed, Duration: 1, Preemptable: false},
			})
		})

		Convey("From a yellow only the all-red remains", func() {
			So(transitionTo(NSYellow, EWGreen, params), ShouldResemble, []Phase{
				{Phase: AllRed, Duration: 1, Preemptable: false},
			})
		})
	})
}

func TestParams(t *testing.T) {
	Convey("Given the default params", t, func() {
		params := DefaultParams()

		Convey("They match the documented tuning", func() {
			So(params.MinGreen, ShouldEqual, 7.0)
			So(params.MaxGreen, ShouldEqual, 60.0)
			So(params.YellowDuration, ShouldEqual, 3.0)
			So(params.AllRedDuration, ShouldEqual, 1.0)
			So(params.RRCycleOrder, ShouldResemble, []PhaseID{NSGreen, EWGreen})
			So(params.LowLoadThreshold, ShouldEqual, 2.0)
			So(params.HighVarianceThreshold, ShouldEqual, 4.0)
			So(params.SJFHorizon, ShouldEqual, 30.0)
			So(params.EmergencyPreemptBuffer, ShouldEqual, 10.0)
			So(params.EmergencyClearDuration, ShouldEqual, 15.0)
			So(params.Debug, ShouldBeFalse)
		})

		Convey("Each call returns an independent cycle slice", func() {
			other := DefaultParams()
			other.RRCycleOrder[0] = EWGreen
			So(params.RRCycleOrder[0], ShouldEqual, NSGreen)
		})
	})
}

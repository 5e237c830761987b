package scheduler

import (
	"fmt"
	"sync"

	log "gopkg.in/inconshreveable/log15.v2"
)

const historyCap = 1000

// Scheduler is the intersection scheduling core. It is a pure function
// of the supplied state and the params fixed at construction; the only
// bookkeeping is an advisory history of selected policies and the
// monotonicity check on sim time. A single instance may be shared
// across goroutines.
type Scheduler struct {
	params PolicyParams
	logger log.Logger

	mu          sync.Mutex
	history     []SchedulingPolicy
	lastSimTime float64
	timeSeen    bool
}

// New creates a scheduler with the given params. The scheduler is
// silent until SetLogger is called.
func New(params PolicyParams) *Scheduler {
	logger := log.New()
	logger.SetHandler(log.DiscardHandler())
	return &Scheduler{params: params, logger: logger}
}

// SetLogger attaches a parent logger for decision-explanation output.
// Messages are only emitted when params.Debug is set.
func (s *Scheduler) SetLogger(parent log.Logger) {
	s.logger = parent.New("module", "scheduler")
}

// Params returns the tuning the scheduler was built with.
func (s *Scheduler) Params() PolicyParams {
	return s.params
}

// Schedule produces the action plan for the given snapshot. Urgent
// emergencies short-circuit policy selection; otherwise Meta resolves
// to a concrete policy from the traffic metrics and the chosen planner
// runs. The returned plan starts with any safety transitions needed
// from state.CurrentPhase.
func (s *Scheduler) Schedule(state IntersectionState, policy SchedulingPolicy) (ActionPlan, error) {
	if err := s.checkState(state); err != nil {
		return nil, err
	}
	if s.params.Debug {
		s.logger.Debug("Scheduling request", "policy", policy, "simTime", state.SimTime)
	}

	if s.HasUrgentEmergency(state) {
		return s.emergencyPlan(state), nil
	}

	if policy == Meta {
		policy = s.SelectPolicy(state)
		if s.params.Debug {
			s.logger.Info("Meta-scheduler selected policy",
				"policy", policy, "reason", s.ExplainDecision(state, policy))
		}
	}

	var plan ActionPlan
	var err error
	switch policy {
	case RoundRobin:
		plan, err = s.roundRobinPlan(state)
	case ShortestJobFirst:
		plan, err = s.sjfPlan(state)
	case Priority:
		plan = s.priorityPlan(state)
	default:
		return nil, UnsupportedPolicyError{Policy: string(policy)}
	}
	if err != nil {
		return nil, err
	}
	s.recordPolicy(policy)
	return plan, nil
}

// SelectPolicy is the meta-scheduler: any emergency pins Priority,
// light uniform traffic cycles Round Robin, skewed queues drain via
// SJF, and balanced load falls back to Priority.
func (s *Scheduler) SelectPolicy(state IntersectionState) SchedulingPolicy {
	if len(state.Emergency) > 0 {
		return Priority
	}
	if MeanQueue(state) < s.params.LowLoadThreshold {
		return RoundRobin
	}
	if QueueVariance(state) > s.params.HighVarianceThreshold {
		return ShortestJobFirst
	}
	return Priority
}

// ExplainDecision returns a one-line description of the branch the
// meta-scheduler takes for this state, for debug logs.
func (s *Scheduler) ExplainDecision(state IntersectionState, policy SchedulingPolicy) string {
	if len(state.Emergency) > 0 {
		return "Emergency vehicles present - using Priority scheduling"
	}
	avg := MeanQueue(state)
	variance := QueueVariance(state)
	if avg < s.params.LowLoadThreshold {
		return fmt.Sprintf("Low traffic load (avg=%.1f) - using Round Robin", avg)
	}
	if variance > s.params.HighVarianceThreshold {
		return fmt.Sprintf("High queue variance (%.1f) - using SJF to reduce backlog", variance)
	}
	return fmt.Sprintf("Balanced conditions (avg=%.1f, var=%.1f) - using Priority", avg, variance)
}

// PolicyHistory returns a copy of the concrete policies dispatched so
// far, oldest first. The history is advisory and never consulted when
// planning.
func (s *Scheduler) PolicyHistory() []SchedulingPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SchedulingPolicy, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Scheduler) recordPolicy(p SchedulingPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, p)
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
}

// checkState validates the snapshot preconditions: non-negative
// counts, times and rates, and sim time that never runs backwards
// across calls on this instance.
func (s *Scheduler) checkState(state IntersectionState) error {
	for d, q := range state.Queues {
		if q < 0 {
			return InvalidStateError{Reason: fmt.Sprintf("negative queue for %s", d)}
		}
	}
	for d, waits := range state.WaitingTimes {
		for _, w := range waits {
			if w < 0 {
				return InvalidStateError{Reason: fmt.Sprintf("negative waiting time for %s", d)}
			}
		}
	}
	for d, r := range state.ArrivalRates {
		if r < 0 {
			return InvalidStateError{Reason: fmt.Sprintf("negative arrival rate for %s", d)}
		}
	}
	for _, ev := range state.Emergency {
		if ev.TimeToIntersection < 0 {
			return InvalidStateError{Reason: fmt.Sprintf("negative ETA for vehicle %s", ev.VehicleID)}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeSeen && state.SimTime < s.lastSimTime {
		return InvalidStateError{Reason: fmt.Sprintf(
			"sim time moved backwards: %.3f after %.3f", state.SimTime, s.lastSimTime)}
	}
	s.lastSimTime = state.SimTime
	s.timeSeen = true
	return nil
}

package server

import (
	"github.com/svta/intersection-sim-server/scheduler"
)

const decisionNotification = "schedulerDecision"

// Decision is the result of one schedule request as exposed to
// clients: the plan plus the context that produced it.
type Decision struct {
	Requested   scheduler.SchedulingPolicy `json:"requested"`
	Used        scheduler.SchedulingPolicy `json:"used"`
	Urgent      bool                       `json:"urgent"`
	Plan        scheduler.ActionPlan       `json:"plan"`
	Explanation string                     `json:"explanation"`
	SimTime     float64                    `json:"simTime"`
}

// parsePolicyOrMeta maps an optional policy label, defaulting the
// empty string to the meta-scheduler.
func parsePolicyOrMeta(label string) (scheduler.SchedulingPolicy, error) {
	if label == "" {
		return scheduler.Meta, nil
	}
	return scheduler.ParsePolicy(label)
}

// runSchedule drives the core for one snapshot and records the
// decision in the audit log and the KPI metrics.
func runSchedule(state scheduler.IntersectionState, policyLabel string) (*Decision, error) {
	requested, err := parsePolicyOrMeta(policyLabel)
	if err != nil {
		return nil, err
	}
	plan, err := sched.Schedule(state, requested)
	if err != nil {
		return nil, err
	}

	urgent := sched.HasUrgentEmergency(state)
	used := requested
	if urgent {
		used = scheduler.Priority
	} else if requested == scheduler.Meta {
		used = sched.SelectPolicy(state)
	}

	d := &Decision{
		Requested:   requested,
		Used:        used,
		Urgent:      urgent,
		Plan:        plan,
		Explanation: sched.ExplainDecision(state, used),
		SimTime:     state.SimTime,
	}
	recordDecisionAudit(d)
	recordDecisionMetrics(d)
	return d, nil
}

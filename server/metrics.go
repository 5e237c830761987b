package server

import (
	"sort"
	"sync"
	"time"

	"github.com/svta/intersection-sim-server/scheduler"
)

// Defaults/tuning for realtime decision KPIs
const (
	defaultDecisionWindow = 60 * time.Minute
	snapshotInterval      = 60 * time.Second
	maxSnapshots          = 1440
)

type decisionPoint struct {
	ts          time.Time
	used        scheduler.SchedulingPolicy
	urgent      bool
	green       float64
	transitions int
}

type kpiSnapshot struct {
	ts          time.Time
	decisions   int
	roundRobin  int
	sjf         int
	priority    int
	preemptions int
	preemptRate float64
	meanGreen   float64
	p90Green    float64
	transitions int
}

type metricsState struct {
	mu sync.RWMutex

	// decisions in the rolling window
	points []decisionPoint

	// totals since startup
	totalDecisions   int
	totalPreemptions int

	// historical snapshots
	snapshots []kpiSnapshot
}

var metrics = &metricsState{}

// recordDecisionMetrics feeds one decision into the rolling window.
func recordDecisionMetrics(d *Decision) {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	pt := decisionPoint{ts: time.Now().UTC(), used: d.Used, urgent: d.Urgent}
	if g, ok := d.Plan.TerminalGreen(); ok {
		pt.green = g.Duration
	}
	pt.transitions = len(d.Plan) - 1
	if pt.transitions < 0 {
		pt.transitions = 0
	}
	metrics.points = append(metrics.points, pt)
	metrics.totalDecisions++
	if d.Urgent {
		metrics.totalPreemptions++
	}
	trimPointsLocked()
}

func trimPointsLocked() {
	cutoff := time.Now().UTC().Add(-defaultDecisionWindow)
	i := 0
	for ; i < len(metrics.points); i++ {
		if metrics.points[i].ts.After(cutoff) {
			break
		}
	}
	if i > 0 && i < len(metrics.points) {
		metrics.points = append([]decisionPoint{}, metrics.points[i:]...)
	} else if i >= len(metrics.points) {
		metrics.points = nil
	}
}

func takeSnapshot() {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	trimPointsLocked()
	snap := kpiSnapshot{ts: time.Now().UTC(), decisions: len(metrics.points)}
	greens := make([]float64, 0, len(metrics.points))
	sum := 0.0
	for _, p := range metrics.points {
		switch p.used {
		case scheduler.RoundRobin:
			snap.roundRobin++
		case scheduler.ShortestJobFirst:
			snap.sjf++
		case scheduler.Priority:
			snap.priority++
		}
		if p.urgent {
			snap.preemptions++
		}
		snap.transitions += p.transitions
		if p.green > 0 {
			greens = append(greens, p.green)
			sum += p.green
		}
	}
	if snap.decisions > 0 {
		snap.preemptRate = float64(snap.preemptions) * 100.0 / float64(snap.decisions)
	}
	if len(greens) > 0 {
		snap.meanGreen = sum / float64(len(greens))
		sort.Float64s(greens)
		idx := int(0.9*float64(len(greens)-1) + 0.5)
		if idx >= len(greens) {
			idx = len(greens) - 1
		}
		snap.p90Green = greens[idx]
	}
	metrics.snapshots = append(metrics.snapshots, snap)
	if len(metrics.snapshots) > maxSnapshots {
		metrics.snapshots = metrics.snapshots[len(metrics.snapshots)-maxSnapshots:]
	}
}

func startMetricsTicker() {
	go func() {
		ticker := time.NewTicker(snapshotInterval)
		for range ticker.C {
			takeSnapshot()
		}
	}()
}

// aggregateKPIs averages the snapshots within rangeDur and returns the
// aggregate plus the trend (last decile of snapshots versus the decile
// before it).
func aggregateKPIs(rangeDur time.Duration) (kpiSnapshot, kpiSnapshot) {
	metrics.mu.RLock()
	defer metrics.mu.RUnlock()
	if len(metrics.snapshots) == 0 {
		return kpiSnapshot{ts: time.Now().UTC()}, kpiSnapshot{}
	}
	cutoff := time.Now().UTC().Add(-rangeDur)
	var inRange []kpiSnapshot
	for _, s := range metrics.snapshots {
		if s.ts.Before(cutoff) {
			continue
		}
		inRange = append(inRange, s)
	}
	agg := averageSnapshots(inRange)
	if len(metrics.snapshots) < 10 {
		return agg, kpiSnapshot{}
	}
	n := len(metrics.snapshots)
	w := n / 10
	if w < 1 {
		w = 1
	}
	cur := averageSnapshots(metrics.snapshots[n-w:])
	lo := n - 2*w
	if lo < 0 {
		lo = 0
	}
	prev := averageSnapshots(metrics.snapshots[lo : n-w])
	trend := kpiSnapshot{
		decisions:   cur.decisions - prev.decisions,
		roundRobin:  cur.roundRobin - prev.roundRobin,
		sjf:         cur.sjf - prev.sjf,
		priority:    cur.priority - prev.priority,
		preemptions: cur.preemptions - prev.preemptions,
		preemptRate: cur.preemptRate - prev.preemptRate,
		meanGreen:   cur.meanGreen - prev.meanGreen,
		p90Green:    cur.p90Green - prev.p90Green,
		transitions: cur.transitions - prev.transitions,
	}
	return agg, trend
}

func addSnapshot(a *kpiSnapshot, s kpiSnapshot) {
	a.decisions += s.decisions
	a.roundRobin += s.roundRobin
	a.sjf += s.sjf
	a.priority += s.priority
	a.preemptions += s.preemptions
	a.preemptRate += s.preemptRate
	a.meanGreen += s.meanGreen
	a.p90Green += s.p90Green
	a.transitions += s.transitions
}

func scaleSnapshot(a *kpiSnapshot, n int) {
	a.preemptRate /= float64(n)
	a.meanGreen /= float64(n)
	a.p90Green /= float64(n)
}

func averageSnapshots(ss []kpiSnapshot) kpiSnapshot {
	var a kpiSnapshot
	if len(ss) == 0 {
		return a
	}
	for _, s := range ss {
		addSnapshot(&a, s)
	}
	a.decisions /= len(ss)
	a.roundRobin /= len(ss)
	a.sjf /= len(ss)
	a.priority /= len(ss)
	a.preemptions /= len(ss)
	a.transitions /= len(ss)
	scaleSnapshot(&a, len(ss))
	return a
}

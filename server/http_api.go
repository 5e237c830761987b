package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/svta/intersection-sim-server/scheduler"
)

// POST /api/schedule
func serveSchedule(w http.ResponseWriter, r *http.Request) {
	logger.Debug("New HTTP schedule request", "submodule", "http", "remote", r.RemoteAddr)
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		State  scheduler.IntersectionState `json:"state"`
		Policy string                      `json:"policy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	decision, err := runSchedule(body.State, body.Policy)
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	hub.broadcast(NewNotification(decisionNotification, decision))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(decision)
}

func writeScheduleError(w http.ResponseWriter, err error) {
	var unsupported scheduler.UnsupportedPolicyError
	var invalid scheduler.InvalidStateError
	var empty scheduler.EmptyPlanError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &unsupported), errors.As(err, &invalid):
		status = http.StatusBadRequest
	case errors.As(err, &empty):
		status = http.StatusUnprocessableEntity
	}
	http.Error(w, err.Error(), status)
}

// POST /api/explain
func serveExplain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		State  scheduler.IntersectionState `json:"state"`
		Policy string                      `json:"policy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	policy, err := parsePolicyOrMeta(body.Policy)
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	resp := map[string]interface{}{
		"policy":      sched.SelectPolicy(body.State),
		"explanation": sched.ExplainDecision(body.State, policy),
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

// GET /api/params
func serveParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p := sched.Params()
	resp := map[string]interface{}{
		"min_green":                p.MinGreen,
		"max_green":                p.MaxGreen,
		"yellow_duration":          p.YellowDuration,
		"all_red_duration":         p.AllRedDuration,
		"rr_cycle_order":           p.RRCycleOrder,
		"low_load_threshold":       p.LowLoadThreshold,
		"high_variance_threshold":  p.HighVarianceThreshold,
		"sjf_horizon":              p.SJFHorizon,
		"emergency_preempt_buffer": p.EmergencyPreemptBuffer,
		"emergency_clear_duration": p.EmergencyClearDuration,
		"min_switch_interval":      p.MinSwitchInterval,
		"debug":                    p.Debug,
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

// GET /api/policies
func servePolicies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := map[string]interface{}{
		"policies": []scheduler.SchedulingPolicy{
			scheduler.RoundRobin, scheduler.ShortestJobFirst, scheduler.Priority, scheduler.Meta,
		},
		"history": sched.PolicyHistory(),
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

// GET /api/analytics/kpis
func serveKPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rangeParam := r.URL.Query().Get("timeRange")
	var dur time.Duration
	switch rangeParam {
	case "1h":
		dur = time.Hour
	case "6h":
		dur = 6 * time.Hour
	case "1d":
		dur = 24 * time.Hour
	case "1w":
		dur = 7 * 24 * time.Hour
	default:
		dur = 24 * time.Hour
	}
	agg, trend := aggregateKPIs(dur)
	resp := map[string]interface{}{
		"timeRange": rangeParam,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"kpis": map[string]interface{}{
			"decisions":          agg.decisions,
			"roundRobin":         agg.roundRobin,
			"sjf":                agg.sjf,
			"priority":           agg.priority,
			"preemptions":        agg.preemptions,
			"preemptRate":        agg.preemptRate,
			"meanGreenDuration":  agg.meanGreen,
			"p90GreenDuration":   agg.p90Green,
			"transitionsEmitted": agg.transitions,
		},
		"trends": map[string]interface{}{
			"decisions":   map[string]interface{}{"change": trend.decisions, "direction": trendDirection(float64(trend.decisions))},
			"preemptRate": map[string]interface{}{"change": trend.preemptRate, "direction": trendDirection(-trend.preemptRate)},
			"meanGreenDuration": map[string]interface{}{
				"change": trend.meanGreen, "direction": trendDirection(trend.meanGreen)},
		},
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

func trendDirection(v float64) string {
	if v >= 0 {
		return "UP"
	}
	return "DOWN"
}

// GET /api/audit/logs?since=<id>&limit=<n>
func serveAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 100
	}
	entries := audits.getSince(since, limit)
	resp := map[string]interface{}{"entries": entries, "count": len(entries)}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

// GET /api/audit/stream - server-sent events stream of audit entries
func serveAuditStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := audits.subscribe()
	defer audits.unsubscribe(ch)
	for {
		select {
		case entry := <-ch:
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func installHTTPAPI() {
	http.HandleFunc("/api/schedule", serveSchedule)
	http.HandleFunc("/api/explain", serveExplain)
	http.HandleFunc("/api/params", serveParams)
	http.HandleFunc("/api/policies", servePolicies)
	http.HandleFunc("/api/analytics/kpis", serveKPI)
	http.HandleFunc("/api/audit/logs", serveAuditLogs)
	http.HandleFunc("/api/audit/stream", serveAuditStream)
}

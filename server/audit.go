package server

import (
	"strconv"
	"sync"
	"time"
)

// AuditEntry is one recorded scheduling decision as sent to clients.
type AuditEntry struct {
	ID          string                   `json:"id"`
	Timestamp   string                   `json:"timestamp"`
	Event       string                   `json:"event"`
	Severity    string                   `json:"severity"`
	Requested   string                   `json:"requested"`
	Used        string                   `json:"used"`
	SimTime     float64                  `json:"simTime"`
	Explanation string                   `json:"explanation"`
	Plan        []map[string]interface{} `json:"plan"`
}

type auditState struct {
	mu          sync.RWMutex
	entries     []AuditEntry
	capacity    int
	nextID      int64
	subscribers map[chan AuditEntry]bool
}

var audits = &auditState{}

func init() {
	// default capacity for audit ring buffer
	audits.capacity = 1000
	audits.entries = make([]AuditEntry, 0, audits.capacity)
	audits.subscribers = make(map[chan AuditEntry]bool)
}

func (a *auditState) append(entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	entry.ID = strconv.FormatInt(a.nextID, 10)
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if len(a.entries) == a.capacity {
		// drop the oldest (ring buffer behavior)
		copy(a.entries[0:], a.entries[1:])
		a.entries[len(a.entries)-1] = entry
	} else {
		a.entries = append(a.entries, entry)
	}
	// broadcast non-blocking to subscribers
	for ch := range a.subscribers {
		select {
		case ch <- entry:
		default:
			// drop if subscriber is slow
		}
	}
}

func (a *auditState) subscribe() chan AuditEntry {
	ch := make(chan AuditEntry, 256)
	a.mu.Lock()
	a.subscribers[ch] = true
	a.mu.Unlock()
	return ch
}

func (a *auditState) unsubscribe(ch chan AuditEntry) {
	a.mu.Lock()
	delete(a.subscribers, ch)
	a.mu.Unlock()
	close(ch)
}

// getSince returns up to limit entries with ID strictly greater than sinceID
func (a *auditState) getSince(sinceID int64, limit int) []AuditEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]AuditEntry, 0, limit)
	for i := 0; i < len(a.entries); i++ {
		id, _ := strconv.ParseInt(a.entries[i].ID, 10, 64)
		if id > sinceID {
			out = append(out, a.entries[i])
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// recordDecisionAudit converts a decision to an AuditEntry and appends it
func recordDecisionAudit(d *Decision) {
	entry := AuditEntry{
		Event:       "SCHEDULE_DECISION",
		Severity:    "INFO",
		Requested:   string(d.Requested),
		Used:        string(d.Used),
		SimTime:     d.SimTime,
		Explanation: d.Explanation,
	}
	if d.Urgent {
		entry.Event = "EMERGENCY_PREEMPTION"
		entry.Severity = "WARN"
	}
	for _, p := range d.Plan {
		entry.Plan = append(entry.Plan, map[string]interface{}{
			"phase":       string(p.Phase),
			"duration":    p.Duration,
			"preemptable": p.Preemptable,
		})
	}
	audits.append(entry)
}

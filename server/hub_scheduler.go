package server

import (
	"encoding/json"
	"fmt"

	"github.com/svta/intersection-sim-server/scheduler"
)

type schedulerObject struct{}

// dispatch processes requests made on the Scheduler object
func (o *schedulerObject) dispatch(h *Hub, req Request, conn *connection) {
	ch := conn.pushChan
	logger.Debug("Request for scheduler received", "submodule", "hub", "object", req.Object, "action", req.Action)
	switch req.Action {
	case "schedule":
		var p struct {
			State  scheduler.IntersectionState `json:"state"`
			Policy string                      `json:"policy"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("unparsable request: %s (%s)", err, req.Params))
			return
		}
		decision, err := runSchedule(p.State, p.Policy)
		if err != nil {
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		data, err := json.Marshal(decision)
		if err != nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("internal error: %s", err))
			return
		}
		ch <- NewResponse(req.ID, data)
		h.broadcast(NewNotification(decisionNotification, decision))
	case "explain":
		var p struct {
			State  scheduler.IntersectionState `json:"state"`
			Policy string                      `json:"policy"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("unparsable request: %s (%s)", err, req.Params))
			return
		}
		policy, err := parsePolicyOrMeta(p.Policy)
		if err != nil {
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		ch <- NewOkResponse(req.ID, sched.ExplainDecision(p.State, policy))
	case "params":
		data, err := json.Marshal(sched.Params())
		if err != nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("internal error: %s", err))
			return
		}
		ch <- NewResponse(req.ID, data)
	case "history":
		data, err := json.Marshal(sched.PolicyHistory())
		if err != nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("internal error: %s", err))
			return
		}
		ch <- NewResponse(req.ID, data)
	default:
		ch <- NewErrorResponse(req.ID, fmt.Errorf("unknown action %s/%s", req.Object, req.Action))
		logger.Debug("Request for unknown action received", "submodule", "hub", "object", req.Object, "action", req.Action)
	}
}

var _ hubObject = new(schedulerObject)

func init() {
	hub.objects["scheduler"] = new(schedulerObject)
}

// Copyright (C) 2008-2019 by Nicolas Piganeau and the TS2 TEAM
// (See AUTHORS file)
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program; if not, write to the
// Free Software Foundation, Inc.,
// 59 Temple Place - Suite 330, Boston, MA  02111-1307, USA.

package server

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/svta/intersection-sim-server/scheduler"
	log "gopkg.in/inconshreveable/log15.v2"
)

const (
	DefaultAddr       string = "0.0.0.0"
	DefaultPort       string = "22222"
	MaxHubStartupTime        = 3 * time.Second
)

var (
	sched  *scheduler.Scheduler
	logger log.Logger
)

// InitializeLogger creates the logger for the server module
func InitializeLogger(parentLogger log.Logger) {
	logger = parentLogger.New("module", "server")
}

// Run starts the websocket hub and the HTTP API for the given
// scheduler, on the given address and port. It blocks until the HTTP
// server fails.
func Run(s *scheduler.Scheduler, addr, port string) error {
	logger.Info("Starting server")
	sched = s
	startMetricsTicker()

	hubUp := make(chan bool)
	go hub.run(hubUp)
	select {
	case <-hubUp:
	case <-time.After(MaxHubStartupTime):
		return fmt.Errorf("hub did not start")
	}
	var g errgroup.Group
	g.Go(func() error {
		return HttpdStart(addr, port)
	})
	return g.Wait()
}

// HttpdStart starts the server which serves on the following routes:
//
//	/ - Serves a HTTP home page with the server status.
//
//	/ws - WebSocket endpoint for scheduling clients.
//
//	/api/... - JSON API (see installHTTPAPI).
func HttpdStart(addr, port string) error {
	http.HandleFunc("/", serveHome)
	http.HandleFunc("/ws", serveWs)
	installHTTPAPI()

	serverAddress := fmt.Sprintf("%s:%s", addr, port)
	logger.Info("Starting HTTP", "submodule", "http", "address", serverAddress)
	err := http.ListenAndServe(serverAddress, nil)
	logger.Crit("HTTP crashed", "submodule", "http", "error", err)
	return err
}

var homeTempl = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head><title>Intersection Scheduling Server</title></head>
<body>
<h1>Intersection Scheduling Server</h1>
<p>Websocket endpoint: <code>{{.Host}}</code></p>
<p>Schedule endpoint: <code>POST /api/schedule</code></p>
<p>Decisions so far: {{.Decisions}}</p>
</body>
</html>
`))

// serveHome serves the html home page with the server status.
func serveHome(w http.ResponseWriter, r *http.Request) {
	logger.Debug("New HTTP connection", "submodule", "http", "remote", r.RemoteAddr)
	if r.URL.Path != "/" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	metrics.mu.RLock()
	decisions := metrics.totalDecisions
	metrics.mu.RUnlock()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Host      string
		Decisions int
	}{
		"ws://" + r.Host + "/ws",
		decisions,
	}
	homeTempl.Execute(w, data)
}

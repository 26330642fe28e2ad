// Package handlers manages the debug routes of the miner.
package handlers

import (
	"encoding/json"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/dimfeld/httptreemux/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DebugMux registers the standard library debug routes, the metrics
// endpoint and the liveness check. This bypasses the use of the
// DefaultServerMux so a dependency can't inject a handler.
func DebugMux(build string, runID string, log *zap.SugaredLogger) http.Handler {
	mux := httptreemux.NewContextMux()

	// Register all the standard library debug endpoints.
	mux.GET("/debug/pprof/", pprof.Index)
	mux.GET("/debug/pprof/cmdline", pprof.Cmdline)
	mux.GET("/debug/pprof/profile", pprof.Profile)
	mux.GET("/debug/pprof/symbol", pprof.Symbol)
	mux.GET("/debug/pprof/trace", pprof.Trace)
	mux.Handler(http.MethodGet, "/debug/vars", expvar.Handler())

	mux.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	lh := liveness{
		build: build,
		runID: runID,
		log:   log,
	}
	mux.GET("/debug/liveness", lh.handle)

	return mux
}

// =============================================================================

type liveness struct {
	build string
	runID string
	log   *zap.SugaredLogger
}

// handle returns simple status info if the service is alive.
func (l liveness) handle(w http.ResponseWriter, r *http.Request) {
	host, err := os.Hostname()
	if err != nil {
		host = "unavailable"
	}

	data := struct {
		Status string `json:"status,omitempty"`
		Build  string `json:"build,omitempty"`
		Host   string `json:"host,omitempty"`
		RunID  string `json:"runid,omitempty"`
	}{
		Status: "up",
		Build:  l.build,
		Host:   host,
		RunID:  l.runID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		l.log.Errorw("liveness", "ERROR", err)
	}
}

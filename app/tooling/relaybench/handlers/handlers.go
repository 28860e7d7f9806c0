// Package handlers manages the different versions of the monitor API.
package handlers

import (
	"context"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/ardanlabs/relaybench/app/tooling/relaybench/handlers/debug/checkgrp"
	v1 "github.com/ardanlabs/relaybench/app/tooling/relaybench/handlers/v1"
	"github.com/ardanlabs/relaybench/app/tooling/relaybench/handlers/v1/monitorgrp"
	"github.com/ardanlabs/relaybench/business/web/mid"
	"github.com/ardanlabs/relaybench/foundation/events"
	"github.com/ardanlabs/relaybench/foundation/web"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	Tracker  monitorgrp.Tracker
	Evts     *events.Events
}

// MonitorMux constructs a http.Handler with all monitor routes defined.
func MonitorMux(cfg MuxConfig) http.Handler {
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Cors("*"),
		mid.Panics(),
	)

	// Accept CORS 'OPTIONS' preflight requests.
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", h, mid.Cors("*"))

	v1.Routes(app, v1.Config{
		Log:     cfg.Log,
		Tracker: cfg.Tracker,
		Evts:    cfg.Evts,
	})

	return app
}

// DebugStandardLibraryMux registers all the debug routes from the standard library
// into a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could inject a
// handler into our service without us knowing it.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMux registers all the debug standard library routes and then the
// readiness and liveness checks. A nil check reports ready.
func DebugMux(build string, log *zap.SugaredLogger, check func(ctx context.Context) error) http.Handler {
	mux := DebugStandardLibraryMux()

	cgh := checkgrp.Handlers{
		Build: build,
		Log:   log,
		Check: check,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	return mux
}

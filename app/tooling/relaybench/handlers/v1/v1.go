// Package v1 contains the full set of handler functions and routes
// supported by the v1 monitor api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/relaybench/app/tooling/relaybench/handlers/v1/monitorgrp"
	"github.com/ardanlabs/relaybench/foundation/events"
	"github.com/ardanlabs/relaybench/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log     *zap.SugaredLogger
	Tracker monitorgrp.Tracker
	Evts    *events.Events
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	mon := monitorgrp.Handlers{
		Log:     cfg.Log,
		Tracker: cfg.Tracker,
		WS:      websocket.Upgrader{},
		Evts:    cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", mon.Events)
	app.Handle(http.MethodGet, version, "/progress", mon.Progress)
	app.Handle(http.MethodGet, version, "/deployments", mon.Deployments)
	app.Handle(http.MethodGet, version, "/deployments/:address", mon.Deployment)
}

// Package monitorgrp maintains the group of handlers for watching the
// progress of a command.
package monitorgrp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ardanlabs/relaybench/business/core/experiment"
	"github.com/ardanlabs/relaybench/business/web/errs"
	"github.com/ardanlabs/relaybench/foundation/blockchain/contract"
	"github.com/ardanlabs/relaybench/foundation/events"
	"github.com/ardanlabs/relaybench/foundation/validate"
	"github.com/ardanlabs/relaybench/foundation/web"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Tracker provides the state of the running command.
type Tracker interface {
	Progress() (experiment.Progress, bool)
	Deployments() *contract.Deployments
}

// Handlers manages the set of monitor endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	Tracker Tracker
	WS      websocket.Upgrader
	Evts    *events.Events
}

// Events handles a web socket to stream progress events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case e, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(e); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Progress returns the progress of the current or last experiment run.
func (h Handlers) Progress(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	p, ok := h.Tracker.Progress()
	if !ok {
		return errs.NewNotFound(errors.New("no experiment has been started"))
	}

	return web.Respond(ctx, w, p, http.StatusOK)
}

// deployment is the form a deployed contract is returned in.
type deployment struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Deployments returns the deployed contracts.
func (h Handlers) Deployments(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	deployments := h.Tracker.Deployments()
	if deployments == nil {
		return errs.NewNotFound(errors.New("no contracts deployed"))
	}

	names := deployments.Names()
	list := make([]deployment, 0, len(names))
	for _, name := range names {
		addr, err := deployments.Address(name)
		if err != nil {
			return err
		}
		list = append(list, deployment{Name: name, Address: addr.Hex()})
	}

	return web.Respond(ctx, w, list, http.StatusOK)
}

// Deployment returns the name of the contract deployed at the address.
func (h Handlers) Deployment(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	req := struct {
		Address string `json:"address" validate:"required,eth_addr"`
	}{
		Address: web.Param(r, "address"),
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	deployments := h.Tracker.Deployments()
	if deployments == nil {
		return errs.NewNotFound(errors.New("no contracts deployed"))
	}

	addr := common.HexToAddress(req.Address)
	name, exists := deployments.Name(addr)
	if !exists {
		return errs.NewNotFound(errors.New("no contract deployed at address"))
	}

	return web.Respond(ctx, w, deployment{Name: name, Address: addr.Hex()}, http.StatusOK)
}

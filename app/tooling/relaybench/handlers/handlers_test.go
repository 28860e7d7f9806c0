package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/relaybench/app/tooling/relaybench/handlers"
	"github.com/ardanlabs/relaybench/business/core/experiment"
	"github.com/ardanlabs/relaybench/business/web/errs"
	"github.com/ardanlabs/relaybench/foundation/blockchain/contract"
	"github.com/ardanlabs/relaybench/foundation/events"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type tracker struct {
	progress    *experiment.Progress
	deployments *contract.Deployments
}

func (t tracker) Progress() (experiment.Progress, bool) {
	if t.progress == nil {
		return experiment.Progress{}, false
	}
	return *t.progress, true
}

func (t tracker) Deployments() *contract.Deployments {
	return t.deployments
}

func newMux(t tracker) http.Handler {
	return handlers.MonitorMux(handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		Tracker:  t,
		Evts:     events.New(),
	})
}

func Test_Monitor(t *testing.T) {
	relayAddr := common.HexToAddress("0x8ba1f109551bD432803012645Ac136ddd64DBA72")

	d := contract.NewDeployments()
	d.Set("Ethash", common.HexToAddress("0x1111111111111111111111111111111111111111"))
	d.Set("TestimoniumFull", relayAddr)

	full := tracker{
		progress:    &experiment.Progress{RunID: "run-1", Experiment: "evaluate", Rows: 3, LastRow: []string{"3", "9121455"}},
		deployments: d,
	}

	tt := []struct {
		name    string
		tracker tracker
		path    string
		status  int
	}{
		{"progress", full, "/v1/progress", http.StatusOK},
		{"noprogress", tracker{}, "/v1/progress", http.StatusNotFound},
		{"deployments", full, "/v1/deployments", http.StatusOK},
		{"nodeployments", tracker{}, "/v1/deployments", http.StatusNotFound},
		{"lookup", full, "/v1/deployments/" + relayAddr.Hex(), http.StatusOK},
		{"unknown", full, "/v1/deployments/0x0000000000000000000000000000000000000001", http.StatusNotFound},
		{"badaddress", full, "/v1/deployments/0x1234", http.StatusBadRequest},
	}

	t.Log("Given the need to watch a running command.")
	{
		for testID, test := range tt {
			tf := func(t *testing.T) {
				r := httptest.NewRequest(http.MethodGet, test.path, nil)
				w := httptest.NewRecorder()
				newMux(test.tracker).ServeHTTP(w, r)

				if w.Code != test.status {
					t.Fatalf("\t%s\tTest %d:\tShould receive a status code of %d for %s : %d", failed, testID, test.status, test.path, w.Code)
				}
				t.Logf("\t%s\tTest %d:\tShould receive a status code of %d for %s.", success, testID, test.status, test.path)

				if w.Code == http.StatusOK {
					return
				}

				var resp errs.Response
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Error == "" {
					t.Fatalf("\t%s\tTest %d:\tShould receive an error response : %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould receive an error response.", success, testID)
			}

			t.Run(test.name, tf)
		}
	}
}

func Test_MonitorBodies(t *testing.T) {
	relayAddr := common.HexToAddress("0x8ba1f109551bD432803012645Ac136ddd64DBA72")

	d := contract.NewDeployments()
	d.Set("TestimoniumOptimized", relayAddr)

	tr := tracker{
		progress:    &experiment.Progress{RunID: "run-1", Experiment: "dispute", File: "dispute_1_2_3.csv", Rows: 2},
		deployments: d,
	}
	mux := newMux(tr)

	t.Log("Given the need to read the state of a running command.")
	{
		r := httptest.NewRequest(http.MethodGet, "/v1/progress", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)

		var p experiment.Progress
		if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the progress : %v", failed, err)
		}
		if p.RunID != "run-1" || p.Rows != 2 || p.File != "dispute_1_2_3.csv" {
			t.Fatalf("\t%s\tShould receive the progress of the run : %+v", failed, p)
		}
		t.Logf("\t%s\tShould receive the progress of the run.", success)

		r = httptest.NewRequest(http.MethodGet, "/v1/deployments/"+relayAddr.Hex(), nil)
		w = httptest.NewRecorder()
		mux.ServeHTTP(w, r)

		var dep struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		}
		if err := json.NewDecoder(w.Body).Decode(&dep); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the deployment : %v", failed, err)
		}
		if dep.Name != "TestimoniumOptimized" || dep.Address != relayAddr.Hex() {
			t.Fatalf("\t%s\tShould resolve the contract name : %+v", failed, dep)
		}
		t.Logf("\t%s\tShould resolve the contract name.", success)
	}
}

func Test_Debug(t *testing.T) {
	log := zap.NewNop().Sugar()

	tt := []struct {
		name   string
		check  func(ctx context.Context) error
		path   string
		status int
	}{
		{"ready", func(ctx context.Context) error { return nil }, "/debug/readiness", http.StatusOK},
		{"nocheck", nil, "/debug/readiness", http.StatusOK},
		{"notready", func(ctx context.Context) error { return errors.New("db down") }, "/debug/readiness", http.StatusInternalServerError},
		{"liveness", nil, "/debug/liveness", http.StatusOK},
	}

	t.Log("Given the need to check the health of the service.")
	{
		for testID, test := range tt {
			tf := func(t *testing.T) {
				r := httptest.NewRequest(http.MethodGet, test.path, nil)
				w := httptest.NewRecorder()
				handlers.DebugMux("test", log, test.check).ServeHTTP(w, r)

				if w.Code != test.status {
					t.Fatalf("\t%s\tTest %d:\tShould receive a status code of %d : %d", failed, testID, test.status, w.Code)
				}
				t.Logf("\t%s\tTest %d:\tShould receive a status code of %d.", success, testID, test.status)
			}

			t.Run(test.name, tf)
		}
	}
}

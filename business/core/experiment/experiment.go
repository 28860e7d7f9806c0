// Package experiment provides the benchmark procedures that replay stored
// headers against the relays and record the gas every operation used.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/relaybench/foundation/blockchain/header"
	"github.com/ardanlabs/relaybench/foundation/blockchain/relay"
	"github.com/ardanlabs/relaybench/foundation/events"
	"github.com/ardanlabs/relaybench/foundation/report"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store declares the behavior required of the header store.
type Store interface {
	BlocksOfHeight(ctx context.Context, number uint64) ([]header.Block, error)
	Parent(ctx context.Context, b header.Block) (header.Block, error)
	Witness(ctx context.Context, b header.Block) (relay.Witness, error)
}

// Source declares the behavior required of the source chain.
type Source interface {
	TransactionHashes(ctx context.Context, number uint64) ([]common.Hash, error)
	BlockByHash(ctx context.Context, hash common.Hash) (header.Block, error)
}

// Relays holds the three relay designs under comparison.
type Relays struct {
	Full       *relay.Relay
	Optimistic *relay.Relay
	Optimized  *relay.Relay
}

// EventHandler receives the progress events of a run.
type EventHandler func(e events.Event)

// Config represents the settings for the experiments.
type Config struct {
	Log        *zap.SugaredLogger
	Store      Store
	Source     Source
	Relays     Relays
	ProofDir   string
	ResultsDir string
	EvHandler  EventHandler
}

// Progress represents the state of the current or last run.
type Progress struct {
	RunID      string    `json:"runId"`
	Experiment string    `json:"experiment"`
	File       string    `json:"file"`
	Columns    []string  `json:"columns"`
	Rows       int       `json:"rows"`
	LastRow    []string  `json:"lastRow,omitempty"`
	Started    time.Time `json:"started"`
	Finished   bool      `json:"finished"`
	Error      string    `json:"error,omitempty"`
}

// Experiment runs the benchmark procedures.
type Experiment struct {
	log        *zap.SugaredLogger
	store      Store
	source     Source
	relays     Relays
	proofDir   string
	resultsDir string
	evHandler  EventHandler

	mu       sync.RWMutex
	progress Progress
}

// New constructs an experiment runner.
func New(cfg Config) (*Experiment, error) {
	switch {
	case cfg.Log == nil:
		return nil, errors.New("logger is required")
	case cfg.Store == nil:
		return nil, errors.New("header store is required")
	case cfg.Source == nil:
		return nil, errors.New("source chain is required")
	case cfg.Relays.Full == nil || cfg.Relays.Optimistic == nil || cfg.Relays.Optimized == nil:
		return nil, errors.New("all three relays are required")
	}

	ev := cfg.EvHandler
	if ev == nil {
		ev = func(events.Event) {}
	}

	e := Experiment{
		log:        cfg.Log,
		store:      cfg.Store,
		source:     cfg.Source,
		relays:     cfg.Relays,
		proofDir:   cfg.ProofDir,
		resultsDir: cfg.ResultsDir,
		evHandler:  ev,
	}

	return &e, nil
}

// Progress returns a copy of the progress of the current or last run.
func (e *Experiment) Progress() Progress {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p := e.progress
	p.Columns = append([]string(nil), e.progress.Columns...)
	p.LastRow = append([]string(nil), e.progress.LastRow...)
	return p
}

// =============================================================================

// run tracks a single execution of an experiment.
type run struct {
	exp    *Experiment
	id     string
	name   string
	writer *report.Writer
}

// begin starts a run writing results to the named file.
func (e *Experiment) begin(name string, file string, columns []string) (*run, error) {
	w, err := report.Create(e.resultsDir, file, columns)
	if err != nil {
		return nil, err
	}

	r := run{
		exp:    e,
		id:     uuid.NewString(),
		name:   name,
		writer: w,
	}

	e.mu.Lock()
	e.progress = Progress{
		RunID:      r.id,
		Experiment: name,
		File:       w.Path(),
		Columns:    w.Columns(),
		Started:    time.Now().UTC(),
	}
	e.mu.Unlock()

	r.event("started: results[%s]", w.Path())

	return &r, nil
}

// event logs the message and sends it to the event handler.
func (r *run) event(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.exp.log.Infow(r.name, "runid", r.id, "status", msg)

	r.exp.evHandler(events.Event{
		RunID:      r.id,
		Experiment: r.name,
		Message:    msg,
		Time:       time.Now().UTC(),
	})
}

// row writes a row of results and records it as the latest progress.
func (r *run) row(values ...any) error {
	if err := r.writer.Write(values...); err != nil {
		return err
	}

	row := make([]string, len(values))
	for i, v := range values {
		row[i] = report.Format(v)
	}

	r.exp.mu.Lock()
	r.exp.progress.Rows = r.writer.Rows()
	r.exp.progress.LastRow = row
	r.exp.mu.Unlock()

	return nil
}

// end closes the results file and records the outcome of the run.
func (r *run) end(err error) error {
	if cerr := r.writer.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close results: %w", cerr)
	}

	r.exp.mu.Lock()
	r.exp.progress.Finished = true
	if err != nil {
		r.exp.progress.Error = err.Error()
	}
	r.exp.mu.Unlock()

	if err != nil {
		r.event("failed: %s", err)
		return err
	}

	r.event("completed: rows[%d]", r.writer.Rows())
	return nil
}

// candidate holds the data derived from a stored block.
type candidate struct {
	block     header.Block
	rlpHeader []byte
	witness   relay.Witness
}

// prepare loads the witness and encodes the header of the block.
func (e *Experiment) prepare(ctx context.Context, b header.Block) (candidate, error) {
	w, err := e.store.Witness(ctx, b)
	if err != nil {
		return candidate{}, err
	}

	rlpHeader, err := header.EncodeRLP(b)
	if err != nil {
		return candidate{}, fmt.Errorf("encode block %s: %w", b.Hash.Hex(), err)
	}

	return candidate{block: b, rlpHeader: rlpHeader, witness: w}, nil
}

// submit submits the header to the relays in the order results are
// reported and returns the gas used by each.
func submit(ctx context.Context, c candidate, relays ...*relay.Relay) ([]uint64, error) {
	gas := make([]uint64, len(relays))
	for i, r := range relays {
		g, err := r.SubmitBlock(ctx, c.rlpHeader, c.witness)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", c.block.Hash.Hex(), err)
		}
		gas[i] = g
	}

	return gas, nil
}

// verify verifies the proof on the three relays and returns the gas used
// by each.
func (e *Experiment) verify(ctx context.Context, v relay.Verification) ([]uint64, error) {
	relays := e.all()

	gas := make([]uint64, len(relays))
	for i, r := range relays {
		g, err := r.VerifyTransaction(ctx, v)
		if err != nil {
			return nil, err
		}
		gas[i] = g
	}

	return gas, nil
}

// all returns the relays in the order results are reported.
func (e *Experiment) all() []*relay.Relay {
	return []*relay.Relay{e.relays.Full, e.relays.Optimistic, e.relays.Optimized}
}

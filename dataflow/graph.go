// Copyright (C) 2024 The ivm-engine Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package dataflow

import (
	"log"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Graph owns a set of operators wired together by Edges and drives
// them one round at a time. Graphs are single-threaded and
// cooperative: Run walks the operator list in construction order and
// invokes each operator that has pending input exactly once, per
// spec.md §5.
type Graph struct {
	mu        sync.Mutex
	id        uuid.UUID
	nextID    int
	operators []Operator
	finalized bool
	running   bool
	logger    *log.Logger
	round     int
}

// Option configures a Graph at construction time.
type Option func(*Graph)

// WithLogger overrides the default stderr logger, e.g. to silence it
// in tests (log.New(io.Discard, "", 0)) or to route it through a
// caller-supplied logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Graph) { g.logger = l }
}

// NewGraph constructs an empty, unfinalized graph.
func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		id:     uuid.New(),
		logger: log.New(os.Stderr, "dataflow: ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ID returns the graph's unique identifier, useful for correlating
// debug/log output across multiple concurrently-held graphs.
func (g *Graph) ID() uuid.UUID { return g.id }

// Finalize freezes the graph's topology. No operator may be added
// after Finalize; Run refuses to execute before it.
func (g *Graph) Finalize() {
	g.finalized = true
}

// Finalized reports whether Finalize has been called.
func (g *Graph) Finalized() bool { return g.finalized }

// Round reports how many times Run has completed.
func (g *Graph) Round() int { return g.round }

// Run executes a single round: every operator with pending input is
// invoked once, in construction order. Run is not reentrant -- calling
// it from within an Output or debug callback registered on the same
// graph returns a GraphError of kind GraphErrorBusy rather than
// deadlocking.
func (g *Graph) Run() error {
	if !g.finalized {
		return graphErrorf(GraphErrorNotFinalized, "call Finalize before Run")
	}
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return graphErrorf(GraphErrorBusy, "Run called re-entrantly")
	}
	g.running = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.running = false
		g.mu.Unlock()
	}()

	for _, op := range g.operators {
		if !op.pending() {
			continue
		}
		if err := op.run(); err != nil {
			return err
		}
	}
	g.round++
	return nil
}

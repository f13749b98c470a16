// Package batch implements the concurrent batch driver (C7): an
// orthogonal entry point that runs the walker over many independent
// input scripts in parallel with bounded, adaptive concurrency (spec
// §2, §5).
package batch

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sqllineage/analyzer/internal/handlers"
	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/metadata"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
	"github.com/sqllineage/analyzer/internal/walker"
)

// MemoryPressure is the adaptive concurrency hint spec §5 describes:
// "Low -> processor-count permits; Medium -> half; High -> a quarter
// (minimum 2)."
type MemoryPressure int

const (
	PressureLow MemoryPressure = iota
	PressureMedium
	PressureHigh
)

// Permits computes the semaphore size for pressure, scaled off the host's
// logical processor count the same way this codebase's other concurrency
// knobs are derived.
func (p MemoryPressure) Permits() int64 {
	n := runtime.NumCPU()
	var permits int
	switch p {
	case PressureMedium:
		permits = n / 2
	case PressureHigh:
		permits = n / 4
	default:
		permits = n
	}
	if permits < 2 {
		permits = 2
	}
	return int64(permits)
}

// Script is one unit of work: a syntax tree plus the source text it was
// parsed from (kept for the resulting graph's SourceSQL field).
type Script struct {
	Name string
	Root syntax.Fragment
	SQL  string
}

// Result pairs one Script's produced graph with the walker.Report that
// describes how its walk went, and any error the walk itself raised
// (programming-error invariant violations, spec §7 propagation policy:
// "the batch driver records them per input and continues with other
// inputs").
type Result struct {
	Script Script
	Graph  *lineage.LineageGraph
	Report walker.Report
	Err    error
}

// Driver runs many scripts' analyses concurrently, each over its own
// (LineageGraph, resolve.Context, Walker) triple (spec §2: "C7 is an
// orthogonal entry point that instantiates independent (C2,C3,C4)
// triples per script"). It never itself mutates a shared graph; callers
// that want a merged graph pass the same provider/fuzzy resolver across
// calls and merge results afterward.
type Driver struct {
	provider metadata.Provider
	fuzzy    resolve.FuzzyResolver
	budget   walker.Budget
	pressure func() MemoryPressure
}

// New builds a Driver. pressureFn is consulted once per Run call to size
// the concurrency semaphore; pass a constant func for a fixed cap, or a
// live memory-pressure monitor's accessor to adapt call to call. A nil
// pressureFn defaults to always-Low.
func New(provider metadata.Provider, fuzzy resolve.FuzzyResolver, budget walker.Budget, pressureFn func() MemoryPressure) *Driver {
	if pressureFn == nil {
		pressureFn = func() MemoryPressure { return PressureLow }
	}
	return &Driver{provider: provider, fuzzy: fuzzy, budget: budget, pressure: pressureFn}
}

// Run analyzes every script in scripts concurrently, bounded by the
// current memory-pressure permit count, and returns one Result per
// script in input order. A single script's walk panicking or erroring
// never aborts the batch; it is recorded in that script's Result and the
// others proceed (spec §7).
func (d *Driver) Run(ctx context.Context, scripts []Script) []Result {
	sem := semaphore.NewWeighted(d.pressure().Permits())
	results := make([]Result, len(scripts))

	g, gctx := errgroup.WithContext(ctx)
	var completed int64

	for i, script := range scripts {
		i, script := i, script
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[i] = Result{Script: script, Err: fmt.Errorf("batch: %w", err)}
				return nil // cancellation is recorded per-script, not propagated as a batch failure
			}
			defer sem.Release(1)

			results[i] = d.runOne(gctx, script)
			n := atomic.AddInt64(&completed, 1)
			log.Printf("batch: completed %d/%d (%s)", n, len(scripts), script.Name)
			return nil
		})
	}
	_ = g.Wait() // errors are carried per-Result; Wait's own error is always nil by construction above

	return results
}

func (d *Driver) runOne(ctx context.Context, script Script) (result Result) {
	result.Script = script
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("batch: panic analyzing %s: %v", script.Name, r)
		}
	}()

	graph := lineage.NewLineageGraph(script.SQL)
	rc := resolve.New(graph, d.provider, d.fuzzy)
	w := walker.New(handlers.Default(), d.budget)

	result.Graph = graph
	result.Report = w.Walk(ctx, script.Root, rc, graph)
	return result
}

// MergeInto runs every script's analysis against the same shared graph,
// serialized through the graph's own partitioned locking (spec §5's
// "merge mode": "reads and writes must be serialized through a
// partitioned reader-writer lock"). Unlike Run, this does not parallelize
// the walks themselves — the graph's per-shard locks make concurrent
// writes safe, but one script's resolve.Context is not, so merge mode
// walks the scripts one at a time, in order, onto the one shared graph.
// It takes no semaphore permits; after each script it checks ctx and,
// once ctx is cancelled, walks no further scripts.
func (d *Driver) MergeInto(ctx context.Context, graph *lineage.LineageGraph, provider metadata.Provider, fuzzy resolve.FuzzyResolver, scripts []Script) []Result {
	var mu sync.Mutex
	results := make([]Result, len(scripts))
	for i, script := range scripts {
		rc := resolve.New(graph, provider, fuzzy)
		w := walker.New(handlers.Default(), d.budget)

		func() {
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					results[i] = Result{Script: script, Graph: graph, Err: fmt.Errorf("batch: panic analyzing %s: %v", script.Name, r)}
					mu.Unlock()
				}
			}()
			report := w.Walk(ctx, script.Root, rc, graph)
			mu.Lock()
			results[i] = Result{Script: script, Graph: graph, Report: report}
			mu.Unlock()
		}()

		if ctx.Err() != nil {
			break
		}
	}
	return results
}

// ElapsedSince is a small helper batch callers use to log a whole-run
// wall time alongside per-script reports.
func ElapsedSince(start time.Time) time.Duration { return time.Since(start) }

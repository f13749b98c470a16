// Package walker implements the non-recursive traversal of a syntax tree
// described by spec §4.4: an explicit FIFO worklist instead of language
// recursion (so traversal depth is bounded by available heap, not stack),
// a visited set keyed by fragment identity, per-fragment scope push/pop,
// and cooperative budget checks between fragments.
package walker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
)

// Handler processes one fragment. It returns the children the walker
// should schedule next; a handler that wants default structural traversal
// returns frag.Children() itself (spec §4.4 step 5).
type Handler func(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error)

// Budget bounds one Walk call. Zero values are replaced by defaults.
type Budget struct {
	MaxWallTime   time.Duration
	MaxFragments  int
}

// DefaultBudget matches spec §4.4's stated defaults.
var DefaultBudget = Budget{MaxWallTime: 30 * time.Second, MaxFragments: 50000}

func (b Budget) withDefaults() Budget {
	if b.MaxWallTime <= 0 {
		b.MaxWallTime = DefaultBudget.MaxWallTime
	}
	if b.MaxFragments <= 0 {
		b.MaxFragments = DefaultBudget.MaxFragments
	}
	return b
}

// ErrBudgetExceeded is returned (wrapped with which limit tripped) when a
// walk stops early because of Budget, not because the tree was exhausted.
var ErrBudgetExceeded = errors.New("walker: budget exceeded")

// Report summarizes one completed (or aborted) Walk. Each entry in
// HandlerErrors is also mirrored into the graph's
// Metadata["diagnostics"] as a lineage.Diagnostic, alongside any
// Unresolvable column references the linker recorded during the same
// walk, so a caller inspecting only the graph still sees the full
// picture.
type Report struct {
	FragmentsVisited int
	HandlerErrors    []error
	StoppedEarly      bool
	StopReason        string
	Elapsed           time.Duration
}

// Dispatcher maps a fragment kind to the Handler responsible for it.
type Dispatcher interface {
	HandlerFor(k syntax.Kind) (Handler, bool)
}

// Walker drives one traversal. It holds no per-walk state itself so a
// single Walker can run many scripts (sequentially or, via the batch
// driver, concurrently across distinct Walker values) without sharing
// mutable fields between walks.
type Walker struct {
	dispatch Dispatcher
	budget   Budget
}

// New builds a Walker bound to dispatch, applying DefaultBudget where
// budget leaves fields zero.
func New(dispatch Dispatcher, budget Budget) *Walker {
	return &Walker{dispatch: dispatch, budget: budget.withDefaults()}
}

// Walk traverses root breadth-first: a FIFO worklist seeded with root,
// each fragment popped, checked against the visited set, handled (falling
// back to scheduling its structural children when no handler claims it
// or the handler defers), and budget-checked before the next pop. Per
// spec §4.4 step 6, a panicking or erroring handler is caught, logged,
// and the walk continues with the next queued fragment rather than
// aborting the whole script.
//
// A tripped budget (wall time, fragment count, or a cancelled context)
// does not discard the queue (spec §5 "drains rather than aborts"): it
// stops scheduling new children but keeps dequeuing and visiting
// whatever was already enqueued at the moment the budget tripped, up to
// that snapshot count, so already-enqueued fragments still get
// processed while nothing new is discovered.
func (w *Walker) Walk(ctx context.Context, root syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) Report {
	start := time.Now()
	queue := []syntax.Fragment{root}
	visited := make(map[any]struct{})
	var report Report

	draining := false
	drainBudget := 0

	for len(queue) > 0 {
		if !draining {
			switch {
			case ctx.Err() != nil:
				report.StoppedEarly = true
				report.StopReason = "context: " + ctx.Err().Error()
				draining = true
			case time.Since(start) > w.budget.MaxWallTime:
				elapsed := time.Since(start)
				report.StoppedEarly = true
				report.StopReason = fmt.Sprintf("%v: wall time %v exceeded %v", ErrBudgetExceeded, elapsed, w.budget.MaxWallTime)
				draining = true
			case report.FragmentsVisited >= w.budget.MaxFragments:
				report.StoppedEarly = true
				report.StopReason = fmt.Sprintf("%v: fragment count %d exceeded %d", ErrBudgetExceeded, report.FragmentsVisited, w.budget.MaxFragments)
				draining = true
			}
			if draining {
				drainBudget = len(queue)
			}
		}
		if draining && drainBudget <= 0 {
			break
		}

		frag := queue[0]
		queue = queue[1:]
		if draining {
			drainBudget--
		}

		key := identityKey(frag)
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}
		report.FragmentsVisited++

		children := w.visitOne(frag, rc, g, &report)
		if !draining {
			queue = append(queue, children...)
		}
	}

	report.Elapsed = time.Since(start)
	return report
}

// visitOne pushes a scope, dispatches frag to its handler (or falls back
// to default structural enumeration), recovers a handler panic into an
// error, pops the scope, and returns the next fragments to schedule.
func (w *Walker) visitOne(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph, report *Report) (next []syntax.Fragment) {
	pop := rc.PushScope()
	defer pop()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("walker: handler panic on %s: %v", frag.Kind(), r)
			log.Printf("%v", err)
			report.HandlerErrors = append(report.HandlerErrors, err)
			g.AddDiagnostic(lineage.Diagnostic{
				Kind:     lineage.DiagnosticHandlerFailure,
				Fragment: frag.Kind().String(),
				Message:  err.Error(),
				Position: frag.Text(),
			})
			next = frag.Children()
		}
	}()

	handler, ok := w.dispatch.HandlerFor(frag.Kind())
	if !ok {
		return frag.Children()
	}

	children, err := handler(frag, rc, g)
	if err != nil {
		wrapped := fmt.Errorf("walker: handler for %s failed: %w", frag.Kind(), err)
		log.Printf("%v", wrapped)
		report.HandlerErrors = append(report.HandlerErrors, wrapped)
		g.AddDiagnostic(lineage.Diagnostic{
			Kind:     lineage.DiagnosticHandlerFailure,
			Fragment: frag.Kind().String(),
			Message:  wrapped.Error(),
			Position: frag.Text(),
		})
		return frag.Children()
	}
	return children
}

func identityKey(frag syntax.Fragment) any {
	if id, ok := frag.(syntax.Identity); ok {
		return id.IdentityKey()
	}
	return frag
}

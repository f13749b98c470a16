package walker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
)

type fakeDispatch map[syntax.Kind]Handler

func (f fakeDispatch) HandlerFor(k syntax.Kind) (Handler, bool) {
	h, ok := f[k]
	return h, ok
}

func newContext() (*resolve.Context, *lineage.LineageGraph) {
	g := lineage.NewLineageGraph("")
	return resolve.New(g, nil, nil), g
}

func TestWalkVisitsEveryFragmentOnceViaDefaultTraversal(t *testing.T) {
	leaf1 := syntax.NewNode(syntax.KindColumnReference, "a")
	leaf2 := syntax.NewNode(syntax.KindColumnReference, "b")
	root := syntax.NewNode(syntax.KindSelect, "").WithList("SelectElements", leaf1, leaf2)

	w := New(fakeDispatch{}, Budget{})
	rc, g := newContext()
	report := w.Walk(context.Background(), root, rc, g)

	assert.Equal(t, 3, report.FragmentsVisited)
	assert.False(t, report.StoppedEarly)
	assert.Empty(t, report.HandlerErrors)
}

func TestWalkDoesNotRevisitSharedFragment(t *testing.T) {
	shared := syntax.NewNode(syntax.KindColumnReference, "a")
	root := syntax.NewNode(syntax.KindSelect, "").WithList("SelectElements", shared, shared)

	w := New(fakeDispatch{}, Budget{})
	rc, g := newContext()
	report := w.Walk(context.Background(), root, rc, g)

	assert.Equal(t, 2, report.FragmentsVisited, "root + one visit of the shared fragment, not two")
}

func TestWalkStopsAtFragmentBudget(t *testing.T) {
	leaves := make([]syntax.Fragment, 10)
	for i := range leaves {
		leaves[i] = syntax.NewNode(syntax.KindColumnReference, "c")
	}
	root := syntax.NewNode(syntax.KindSelect, "").WithList("SelectElements", leaves...)

	w := New(fakeDispatch{}, Budget{MaxFragments: 3})
	rc, g := newContext()
	report := w.Walk(context.Background(), root, rc, g)

	assert.True(t, report.StoppedEarly)
	assert.Contains(t, report.StopReason, "fragment count")
	assert.Equal(t, 11, report.FragmentsVisited, "already-enqueued fragments (root + 10 leaves) still drain once tripped, nothing new is discovered beyond them")
}

func TestWalkHonorsCancelledContext(t *testing.T) {
	root := syntax.NewNode(syntax.KindSelect, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := New(fakeDispatch{}, Budget{})
	rc, g := newContext()
	report := w.Walk(ctx, root, rc, g)

	assert.True(t, report.StoppedEarly)
	assert.Contains(t, report.StopReason, "context")
	assert.Equal(t, 1, report.FragmentsVisited, "root was already enqueued when cancellation tripped, so it still drains")
}

func TestWalkDrainsRemainingQueueAfterBudgetTripsWithoutVisitingNewChildren(t *testing.T) {
	grandchild := syntax.NewNode(syntax.KindColumnReference, "z")
	leaf1 := syntax.NewNode(syntax.KindColumnReference, "a")
	leaf2 := syntax.NewNode(syntax.KindSelectScalarExpression, "b").WithSlot("Expression", grandchild)
	root := syntax.NewNode(syntax.KindSelect, "").WithList("SelectElements", leaf1, leaf2)

	w := New(fakeDispatch{}, Budget{MaxFragments: 1})
	rc, g := newContext()
	report := w.Walk(context.Background(), root, rc, g)

	assert.True(t, report.StoppedEarly)
	assert.Equal(t, 3, report.FragmentsVisited, "root, leaf1 and leaf2 (already enqueued when the budget tripped) all drain")
}

func TestWalkRecoversHandlerPanicAndContinues(t *testing.T) {
	child := syntax.NewNode(syntax.KindColumnReference, "a")
	root := syntax.NewNode(syntax.KindSelect, "").WithList("SelectElements", child)

	dispatch := fakeDispatch{
		syntax.KindSelect: func(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
			panic("boom")
		},
	}
	w := New(dispatch, Budget{})
	rc, g := newContext()
	report := w.Walk(context.Background(), root, rc, g)

	require.Len(t, report.HandlerErrors, 1)
	assert.Contains(t, report.HandlerErrors[0].Error(), "panic")
	assert.Equal(t, 2, report.FragmentsVisited, "a panicking handler still falls back to frag.Children()")

	diags := g.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, lineage.DiagnosticHandlerFailure, diags[0].Kind)
	assert.Equal(t, "Select", diags[0].Fragment)
}

func TestWalkRecordsHandlerErrorAndFallsBackToChildren(t *testing.T) {
	child := syntax.NewNode(syntax.KindColumnReference, "a")
	root := syntax.NewNode(syntax.KindSelect, "").WithList("SelectElements", child)

	wantErr := errors.New("unresolvable")
	dispatch := fakeDispatch{
		syntax.KindSelect: func(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
			return nil, wantErr
		},
	}
	w := New(dispatch, Budget{})
	rc, g := newContext()
	report := w.Walk(context.Background(), root, rc, g)

	require.Len(t, report.HandlerErrors, 1)
	assert.ErrorIs(t, report.HandlerErrors[0], wantErr)
	assert.Equal(t, 2, report.FragmentsVisited)

	diags := g.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, lineage.DiagnosticHandlerFailure, diags[0].Kind)
	assert.Contains(t, diags[0].Message, "unresolvable")
}

func TestWalkScopeIsPushedAndPoppedPerFragment(t *testing.T) {
	root := syntax.NewNode(syntax.KindSelect, "")
	var depthDuringHandler int
	dispatch := fakeDispatch{
		syntax.KindSelect: func(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
			depthDuringHandler = rc.Depth()
			return nil, nil
		},
	}
	w := New(dispatch, Budget{})
	rc, g := newContext()
	startDepth := rc.Depth()
	w.Walk(context.Background(), root, rc, g)

	assert.Equal(t, startDepth+1, depthDuringHandler)
	assert.Equal(t, startDepth, rc.Depth(), "the scope pushed for root must be popped once the walk finishes")
}

func TestWalkStopsAtWallTimeBudget(t *testing.T) {
	root := syntax.NewNode(syntax.KindSelect, "")
	w := New(fakeDispatch{}, Budget{MaxWallTime: time.Nanosecond})
	rc, g := newContext()
	time.Sleep(time.Millisecond)
	report := w.Walk(context.Background(), root, rc, g)
	assert.True(t, report.StoppedEarly)
	assert.Contains(t, report.StopReason, "wall time")
}

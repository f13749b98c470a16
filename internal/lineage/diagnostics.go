package lineage

// DiagnosticKind classifies a recovered anomaly recorded into
// LineageGraph.Metadata["diagnostics"].
type DiagnosticKind string

const (
	DiagnosticHandlerFailure DiagnosticKind = "HandlerFailure"
	DiagnosticUnresolvable   DiagnosticKind = "Unresolvable"
)

// Diagnostic is one recovered anomaly from a walk: a handler panic/error
// the walker caught and continued past, or a column reference that fell
// through every resolution tier to the Unresolvable placeholder path.
// Diagnostics are additive bookkeeping, not a new output channel: nothing
// about graph construction depends on them being read.
type Diagnostic struct {
	Kind     DiagnosticKind
	Fragment string // the originating fragment's Kind().String()
	Message  string
	Position string // source excerpt, empty if unavailable
}

// AddDiagnostic appends d to Metadata["diagnostics"], creating the slice on
// first use. Safe without its own lock: diagnostics are only ever added
// from the single goroutine walking this graph, or (in batch merge mode)
// the driver's own sequential per-script loop.
func (g *LineageGraph) AddDiagnostic(d Diagnostic) {
	existing, _ := g.Metadata["diagnostics"].([]Diagnostic)
	g.Metadata["diagnostics"] = append(existing, d)
}

// Diagnostics returns the ordered list recorded so far, or nil if none.
func (g *LineageGraph) Diagnostics() []Diagnostic {
	existing, _ := g.Metadata["diagnostics"].([]Diagnostic)
	return existing
}

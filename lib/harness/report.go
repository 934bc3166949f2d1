package harness

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// FailureKind classifies a per-vector failure in the final report.
type FailureKind int

const (
	// KindMismatch: device and expected digests differ.
	KindMismatch FailureKind = iota
	// KindTransport: the device response timed out or the channel failed.
	KindTransport
	// KindOracle: the reference invocation failed; not a device fault.
	KindOracle
	// KindEncoding: the vector could not be turned into a packet.
	KindEncoding
)

func (k FailureKind) String() string {
	switch k {
	case KindMismatch:
		return "mismatch"
	case KindTransport:
		return "transport"
	case KindOracle:
		return "oracle"
	case KindEncoding:
		return "encoding"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Failure records one failed vector with the literal digest strings for
// mismatches, or the error text for the other kinds.
type Failure struct {
	Index    int
	Kind     FailureKind
	Expected string
	Got      string
	Detail   string
}

// Report aggregates a run. Built incrementally, finalized after the last
// vector, never mutated afterwards.
type Report struct {
	Total    int
	Passed   int
	Skipped  int
	Failures []Failure
}

// Failed reports whether the run should exit non-zero.
func (r *Report) Failed() bool { return len(r.Failures) > 0 }

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// printer emits the per-vector report lines as they happen. Nothing is
// buffered: a run watched over a slow link shows progress vector by
// vector, and the summary is always the last line out.
type printer struct {
	w io.Writer
}

func (p printer) pass(index int) {
	fmt.Fprintf(p.w, "[%4d] %s\n", index, passStyle.Render("PASS"))
}

func (p printer) mismatch(index int, expected, got string) {
	fmt.Fprintf(p.w, "[%4d] %s\n", index, failStyle.Render("FAIL"))
	fmt.Fprintf(p.w, "       expected: %s\n", expected)
	fmt.Fprintf(p.w, "       got:      %s\n", got)
}

func (p printer) failure(index int, kind FailureKind, detail string) {
	fmt.Fprintf(p.w, "[%4d] %s: %s\n", index, failStyle.Render(kindBanner(kind)), detail)
}

func (p printer) skip(index int, reason string) {
	fmt.Fprintf(p.w, "[%4d] %s - %s\n", index, skipStyle.Render("SKIP"), reason)
}

func (p printer) device(index int, digest string) {
	fmt.Fprintf(p.w, "[%4d] DEVICE: %s\n", index, digest)
}

func (p printer) summary(r *Report) {
	fmt.Fprintf(p.w, "\nChecked %d vectors: %d failures\n", r.Total, len(r.Failures))
}

func kindBanner(kind FailureKind) string {
	switch kind {
	case KindTransport:
		return "DEVICE ERROR"
	case KindOracle:
		return "ORACLE ERROR"
	case KindEncoding:
		return "ENCODE ERROR"
	default:
		return "FAIL"
	}
}

// Package harness orchestrates the differential run: encode each vector,
// exchange it with the device, resolve the expected digest from the corpus
// or the oracle, compare, and accumulate the report.
//
// Execution is strictly sequential. The serial link is half-duplex from
// the harness's point of view: a response arriving after its deadline
// could otherwise be mistaken for the next vector's response, so there is
// never more than one exchange in flight.
package harness

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/ascon-fpga/cxof-harness/lib/channel"
	"github.com/ascon-fpga/cxof-harness/lib/codec"
	"github.com/ascon-fpga/cxof-harness/lib/corpus"
	"github.com/ascon-fpga/cxof-harness/lib/hexfmt"
	"github.com/ascon-fpga/cxof-harness/lib/oracle"
	"github.com/ascon-fpga/cxof-harness/lib/util/logger"
)

var log = logger.GetLogger()

// DefaultReadTimeout bounds the single response read per vector.
const DefaultReadTimeout = 5 * time.Second

// Conn is the slice of the channel the runner uses. *channel.Channel
// satisfies it; tests substitute scripted fakes.
type Conn interface {
	Write(p []byte) error
	WriteLines(ctx context.Context, lines [][]byte) error
	ReadExact(n int, timeout time.Duration) ([]byte, error)
	ReadLine(timeout time.Duration) (string, error)
	ResetInput() error
}

// Runner drives one differential run over an open channel. All fields are
// set before Run and not touched afterwards.
type Runner struct {
	Conn    Conn
	Oracle  oracle.Evaluator
	Framing codec.Framing

	// OutBytes is the digest length used for vectors that do not imply
	// one through their MD field.
	OutBytes int
	// Rounds is passed to the oracle and, for the text framing, to the
	// device.
	Rounds int
	// Timeout bounds each response read. Zero means DefaultReadTimeout.
	Timeout time.Duration
	// SendGo appends the GO terminator in the text framing. Minimal
	// firmware starts processing after OUTBITS and rejects the extra line.
	SendGo bool
	// RequireDigest skips vectors without an MD field instead of asking
	// the oracle. Set when replaying a corpus, matching its semantics of
	// "known-answer": a corpus vector without an answer tests nothing.
	RequireDigest bool
	// NoCompare prints the device digest and records a pass without
	// resolving an expected value. For bring-up of fresh gateware.
	NoCompare bool

	// Out receives the per-vector report lines. Defaults to os.Stdout.
	Out io.Writer
}

// Run executes every vector in order and finalizes the report. The
// returned error is non-nil only for run-level aborts (context
// cancellation); per-vector failures are folded into the report.
func (r *Runner) Run(ctx context.Context, vectors []corpus.Vector) (*Report, error) {
	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	p := printer{w: out}
	report := &Report{}

	for _, v := range vectors {
		if err := ctx.Err(); err != nil {
			// Interrupted between vectors: emit what we have and stop.
			p.summary(report)
			return report, err
		}
		r.runVector(ctx, v, report, p)
	}
	p.summary(report)
	return report, nil
}

// runVector walks one vector through the exchange. Every failure is
// recorded in the report at this boundary; nothing per-vector propagates.
func (r *Runner) runVector(ctx context.Context, v corpus.Vector, report *Report, p printer) {
	if r.RequireDigest && !v.HasDigest() {
		report.Skipped++
		log.WithField("index", v.Index).Debug("skipping vector without expected digest")
		return
	}

	message, err := v.Message()
	if err == nil {
		var label []byte
		label, err = v.Label()
		if err == nil {
			r.exchange(ctx, v, label, message, report, p)
			return
		}
	}
	report.Total++
	report.Failures = append(report.Failures, Failure{Index: v.Index, Kind: KindEncoding, Detail: err.Error()})
	p.failure(v.Index, KindEncoding, err.Error())
}

func (r *Runner) exchange(ctx context.Context, v corpus.Vector, label, message []byte, report *Report, p printer) {
	outBytes := v.OutBytes()
	if outBytes == 0 {
		outBytes = r.OutBytes
	}
	outBits := outBytes * 8

	// Field-limit violations are logged skips, not failures: the framing
	// cannot express the vector at all.
	if reason := r.oversized(label, message, outBytes); reason != "" {
		report.Skipped++
		p.skip(v.Index, reason)
		return
	}

	report.Total++

	gotHex, err := r.deviceDigest(ctx, label, message, outBytes, outBits)
	if err != nil {
		report.Failures = append(report.Failures, Failure{Index: v.Index, Kind: KindTransport, Detail: err.Error()})
		p.failure(v.Index, KindTransport, err.Error())
		return
	}
	got := hexfmt.Normalize(gotHex)
	// Echo what the device produced before any verdict; a half-working
	// device is diagnosed from its raw output, not from FAIL lines alone.
	p.device(v.Index, got)

	if r.NoCompare {
		report.Passed++
		return
	}

	expected, err := r.expectedDigest(ctx, v, outBits)
	if err != nil {
		report.Failures = append(report.Failures, Failure{Index: v.Index, Kind: KindOracle, Detail: err.Error()})
		p.failure(v.Index, KindOracle, err.Error())
		return
	}

	if got == expected {
		report.Passed++
		p.pass(v.Index)
		return
	}
	report.Failures = append(report.Failures, Failure{Index: v.Index, Kind: KindMismatch, Expected: expected, Got: got})
	p.mismatch(v.Index, expected, got)
}

// oversized returns a skip reason when a field exceeds the active
// framing's width, empty otherwise.
func (r *Runner) oversized(label, message []byte, outBytes int) string {
	max := r.Framing.MaxField()
	if len(label) > max || len(message) > max {
		return "data too long for " + r.Framing.String() + " framing"
	}
	if r.Framing == codec.Compact && outBytes > max {
		return "output length too large for compact framing"
	}
	return ""
}

// deviceDigest performs the single request/response exchange and returns
// the device's digest as raw (unnormalized) hex.
func (r *Runner) deviceDigest(ctx context.Context, label, message []byte, outBytes, outBits int) (string, error) {
	// Discard stale bytes from a prior mis-timed exchange before sending.
	if err := r.Conn.ResetInput(); err != nil {
		return "", err
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}

	switch r.Framing {
	case codec.Compact:
		packet, err := codec.EncodeCompact(label, message, outBytes)
		if err != nil {
			return "", err
		}
		if err := r.Conn.Write(packet); err != nil {
			return "", err
		}
		raw, err := r.Conn.ReadExact(outBytes, timeout)
		if err != nil {
			return "", err
		}
		return hexfmt.EncodeToString(raw), nil

	case codec.Extended:
		packet, err := codec.EncodeExtended(label, message, outBits)
		if err != nil {
			return "", err
		}
		if err := r.Conn.Write(packet); err != nil {
			return "", err
		}
		raw, err := r.Conn.ReadExact((outBits+7)/8, timeout)
		if err != nil {
			return "", err
		}
		return hexfmt.EncodeToString(raw), nil

	case codec.TextLines:
		lines := codec.EncodeTextLines(label, message, outBits, r.Rounds, r.SendGo)
		if err := r.Conn.WriteLines(ctx, lines); err != nil {
			return "", err
		}
		return r.Conn.ReadLine(timeout)

	default:
		return "", errors.New("unknown framing")
	}
}

// Check validates the corpus against the oracle with no device attached:
// expected is the vector's MD, got is the reference digest for the same
// inputs. Conn is never touched, so a Runner with a nil Conn is valid
// here. Vectors without an MD are skipped; there is nothing to check them
// against.
func (r *Runner) Check(ctx context.Context, vectors []corpus.Vector) (*Report, error) {
	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	p := printer{w: out}
	report := &Report{}

	for _, v := range vectors {
		if err := ctx.Err(); err != nil {
			p.summary(report)
			return report, err
		}
		if !v.HasDigest() {
			report.Skipped++
			log.WithField("index", v.Index).Debug("skipping vector without expected digest")
			continue
		}
		report.Total++
		expected := hexfmt.Normalize(v.MD)

		digest, err := r.Oracle.Evaluate(ctx, v.MsgHex, v.LabelHex, v.OutBytes()*8, r.Rounds)
		if err != nil {
			report.Failures = append(report.Failures, Failure{Index: v.Index, Kind: KindOracle, Detail: err.Error()})
			p.failure(v.Index, KindOracle, err.Error())
			continue
		}
		got := hexfmt.Normalize(digest)

		if got == expected {
			report.Passed++
			p.pass(v.Index)
			continue
		}
		report.Failures = append(report.Failures, Failure{Index: v.Index, Kind: KindMismatch, Expected: expected, Got: got})
		p.mismatch(v.Index, expected, got)
	}
	p.summary(report)
	return report, nil
}

// expectedDigest resolves the ground truth: the corpus MD verbatim when
// present, the oracle otherwise. Returned normalized.
func (r *Runner) expectedDigest(ctx context.Context, v corpus.Vector, outBits int) (string, error) {
	if v.HasDigest() {
		return hexfmt.Normalize(v.MD), nil
	}
	digest, err := r.Oracle.Evaluate(ctx, v.MsgHex, v.LabelHex, outBits, r.Rounds)
	if err != nil {
		return "", err
	}
	return hexfmt.Normalize(digest), nil
}

var _ Conn = (*channel.Channel)(nil)

// Package oracle invokes the trusted CXOF reference binary out-of-process
// and captures its digest.
//
// The reference binary takes four positional arguments
// (msg_hex, label_hex, out_bits, rounds) and prints the digest as a single
// hex line on stdout. It is assumed byte-deterministic: identical
// arguments always produce an identical digest. That assumption is what
// makes it usable as ground truth.
package oracle

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/ascon-fpga/cxof-harness/lib/util/logger"
)

var log = logger.GetLogger()

// DefaultTimeout bounds a single reference invocation.
const DefaultTimeout = 10 * time.Second

// DefaultRounds is the permutation round count the reference defaults to.
const DefaultRounds = 12

// Error reports a failed oracle invocation: non-zero exit, missing binary,
// or an elapsed deadline. Distinct from a digest mismatch; the runner
// records it as its own failure kind.
type Error struct {
	Bin    string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return "oracle " + e.Bin + ": " + e.Err.Error() + ": " + e.Stderr
	}
	return "oracle " + e.Bin + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Evaluator is the surface the runner depends on; tests substitute
// in-process fakes.
type Evaluator interface {
	Evaluate(ctx context.Context, msgHex, labelHex string, outBits, rounds int) (string, error)
}

// Invoker runs the reference binary. The zero Timeout means DefaultTimeout.
type Invoker struct {
	Bin     string
	Timeout time.Duration
}

// Evaluate runs one reference invocation and returns the digest with
// surrounding whitespace trimmed and hex upper-cased. The process handle
// is reaped on every path, including timeout-triggered abandonment
// (CommandContext kills and Run waits).
func (o *Invoker) Evaluate(ctx context.Context, msgHex, labelHex string, outBits, rounds int) (string, error) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, o.Bin, msgHex, labelHex, strconv.Itoa(outBits), strconv.Itoa(rounds))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return "", &Error{Bin: o.Bin, Err: oops.Errorf("invocation exceeded %v", timeout)}
	}
	if err != nil {
		return "", &Error{Bin: o.Bin, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	digest := strings.ToUpper(strings.TrimSpace(stdout.String()))
	log.WithField("out_bits", outBits).WithField("digest_len", len(digest)).Debug("oracle evaluated")
	return digest, nil
}

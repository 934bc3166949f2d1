// Package channel provides timeout-bounded access to the half-duplex
// serial link between the harness and the accelerator.
//
// The device never initiates traffic: every exchange is one request packet
// followed by one response, and a response can only be attributed to the
// request that preceded it. Stale bytes left over from a mis-timed earlier
// exchange are the primary integrity hazard, which is why callers must
// ResetInput before each send.
package channel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/samber/oops"
	"go.bug.st/serial"
	"golang.org/x/time/rate"

	"github.com/ascon-fpga/cxof-harness/lib/util/logger"
)

var log = logger.GetLogger()

// linePace is the minimum gap between consecutive command lines in the
// text framing. UART firmware that parses line-by-line drops back-to-back
// lines arriving faster than its command loop.
const linePace = 10 * time.Millisecond

// Dev is the minimal surface of a serial port the channel needs.
// go.bug.st/serial.Port satisfies it; tests substitute in-memory fakes.
type Dev interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Drain() error
}

// ErrOpen is returned when the device cannot be reached. Fatal: the
// harness fails fast rather than retrying.
var ErrOpen = oops.Errorf("cannot open channel")

// TimeoutError reports a bounded read that elapsed with a short count.
// The partial buffer is returned alongside so callers can log what did
// arrive.
type TimeoutError struct {
	Received int
	Expected int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("read timed out after %v: received %d/%d bytes", e.Elapsed, e.Received, e.Expected)
}

// Timeout implements the net.Error convention.
func (e *TimeoutError) Timeout() bool { return true }

// Channel is a duplex byte stream with deadline-bounded read primitives.
// Owned by a single goroutine for the duration of a run; Close must be
// called exactly once, on every exit path.
type Channel struct {
	dev   Dev
	pacer *rate.Limiter
}

// Open connects to the serial device at the given baud rate and waits out
// the settle delay (freshly reset firmware needs a moment before it
// listens). Fails fast with ErrOpen when the device is unreachable.
func Open(port string, baud int, settle time.Duration) (*Channel, error) {
	dev, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, oops.Errorf("%w: %s @ %d: %v", ErrOpen, port, baud, err)
	}
	log.WithField("port", port).WithField("baud", baud).Debug("channel opened")
	if settle > 0 {
		time.Sleep(settle)
	}
	return New(dev), nil
}

// New wraps an already-open device. Used by Open and by tests.
func New(dev Dev) *Channel {
	return &Channel{
		dev:   dev,
		pacer: rate.NewLimiter(rate.Every(linePace), 1),
	}
}

// Write sends the packet and flushes it to the wire before returning.
func (c *Channel) Write(p []byte) error {
	if _, err := c.dev.Write(p); err != nil {
		return oops.Errorf("channel write: %w", err)
	}
	if err := c.dev.Drain(); err != nil {
		return oops.Errorf("channel flush: %w", err)
	}
	return nil
}

// WriteLines sends each line in order, paced so the firmware's command
// loop keeps up, flushing after every line. Blocks on the pacer; ctx
// cancellation aborts between lines.
func (c *Channel) WriteLines(ctx context.Context, lines [][]byte) error {
	for _, line := range lines {
		if err := c.pacer.Wait(ctx); err != nil {
			return oops.Errorf("channel pacing: %w", err)
		}
		if err := c.Write(line); err != nil {
			return err
		}
	}
	return nil
}

// ReadExact accumulates bytes until exactly n are collected or the
// deadline elapses. On timeout the partial buffer is returned together
// with a *TimeoutError carrying the shortfall; the caller decides whether
// a short response is fatal.
func (c *Channel) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	start := time.Now()
	deadline := start.Add(timeout)
	buf := make([]byte, 0, n)
	tmp := make([]byte, n)
	for len(buf) < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return buf, &TimeoutError{Received: len(buf), Expected: n, Elapsed: time.Since(start)}
		}
		if err := c.dev.SetReadTimeout(remaining); err != nil {
			return buf, oops.Errorf("set read timeout: %w", err)
		}
		r, err := c.dev.Read(tmp[:n-len(buf)])
		if err != nil {
			return buf, oops.Errorf("channel read: %w", err)
		}
		if r == 0 {
			// Zero-byte return from a timed read means the deadline hit.
			return buf, &TimeoutError{Received: len(buf), Expected: n, Elapsed: time.Since(start)}
		}
		buf = append(buf, tmp[:r]...)
	}
	return buf, nil
}

// ReadLine accumulates bytes until a newline or the deadline. The returned
// line excludes the terminator (and a preceding CR). A line still
// unterminated at the deadline is itself a timeout.
func (c *Channel) ReadLine(timeout time.Duration) (string, error) {
	start := time.Now()
	deadline := start.Add(timeout)
	var buf bytes.Buffer
	one := make([]byte, 1)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return buf.String(), &TimeoutError{Received: buf.Len(), Expected: buf.Len() + 1, Elapsed: time.Since(start)}
		}
		if err := c.dev.SetReadTimeout(remaining); err != nil {
			return buf.String(), oops.Errorf("set read timeout: %w", err)
		}
		r, err := c.dev.Read(one)
		if err != nil {
			return buf.String(), oops.Errorf("channel read: %w", err)
		}
		if r == 0 {
			return buf.String(), &TimeoutError{Received: buf.Len(), Expected: buf.Len() + 1, Elapsed: time.Since(start)}
		}
		if one[0] == '\n' {
			line := buf.String()
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			return line, nil
		}
		buf.WriteByte(one[0])
	}
}

// ResetInput discards buffered-but-unread bytes so a response from a prior
// mis-timed exchange cannot corrupt the next comparison.
func (c *Channel) ResetInput() error {
	if err := c.dev.ResetInputBuffer(); err != nil {
		return oops.Errorf("reset input: %w", err)
	}
	return nil
}

// Close releases the device. Call exactly once per opened channel,
// normally via defer at the acquisition site.
func (c *Channel) Close() error {
	return c.dev.Close()
}

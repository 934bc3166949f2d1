package channel

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDev emulates a serial port: Read drains a scripted input buffer,
// and with nothing buffered it blocks until data arrives or the read
// timeout elapses, returning zero bytes on timeout like
// go.bug.st/serial does.
type fakeDev struct {
	mu          sync.Mutex
	in          bytes.Buffer
	out         bytes.Buffer
	readTimeout time.Duration
	drains      int
	resets      int
	closed      bool
	readErr     error
}

func (d *fakeDev) Read(p []byte) (int, error) {
	d.mu.Lock()
	deadline := time.Now().Add(d.readTimeout)
	d.mu.Unlock()
	for {
		d.mu.Lock()
		if d.readErr != nil {
			err := d.readErr
			d.mu.Unlock()
			return 0, err
		}
		if d.in.Len() > 0 {
			n, _ := d.in.Read(p)
			d.mu.Unlock()
			return n, nil
		}
		d.mu.Unlock()
		if !time.Now().Before(deadline) {
			return 0, nil
		}
		time.Sleep(time.Millisecond)
	}
}

func (d *fakeDev) feed(b []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.in.Write(b)
}

func (d *fakeDev) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.out.Write(p)
}

func (d *fakeDev) Close() error { d.closed = true; return nil }

func (d *fakeDev) SetReadTimeout(t time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readTimeout = t
	return nil
}

func (d *fakeDev) ResetInputBuffer() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resets++
	d.in.Reset()
	return nil
}

func (d *fakeDev) Drain() error { d.drains++; return nil }

func TestReadExactComplete(t *testing.T) {
	dev := &fakeDev{}
	dev.in.Write([]byte{1, 2, 3, 4})
	c := New(dev)

	got, err := c.ReadExact(4, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)
}

func TestReadExactAcrossChunks(t *testing.T) {
	// bytes.Buffer returns what it has; ReadExact must keep accumulating.
	dev := &fakeDev{}
	dev.in.Write([]byte{1, 2})
	c := New(dev)

	done := make(chan struct{})
	go func() {
		defer close(done)
		got, err := c.ReadExact(4, time.Second)
		assert.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3, 4}, got)
	}()
	time.Sleep(20 * time.Millisecond)
	dev.feed([]byte{3, 4})
	<-done
}

func TestReadExactTimeoutShortfall(t *testing.T) {
	dev := &fakeDev{}
	c := New(dev)

	start := time.Now()
	got, err := c.ReadExact(32, 50*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.Received)
	assert.Equal(t, 32, te.Expected)
	assert.True(t, te.Timeout())
	assert.Empty(t, got)
	// Bounded by the deadline, give or take scheduling slack.
	assert.GreaterOrEqual(t, elapsed, 45*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestReadExactPartialThenTimeout(t *testing.T) {
	dev := &fakeDev{}
	dev.in.Write([]byte{0xAB, 0xCD})
	c := New(dev)

	got, err := c.ReadExact(8, 50*time.Millisecond)
	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 2, te.Received)
	assert.Equal(t, 8, te.Expected)
	// The partial buffer comes back alongside the error.
	assert.Equal(t, []byte{0xAB, 0xCD}, got)
}

func TestReadLine(t *testing.T) {
	dev := &fakeDev{}
	dev.in.WriteString("4F50AB\nleftover")
	c := New(dev)

	line, err := c.ReadLine(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "4F50AB", line)
}

func TestReadLineStripsCR(t *testing.T) {
	dev := &fakeDev{}
	dev.in.WriteString("DEAD\r\n")
	c := New(dev)

	line, err := c.ReadLine(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "DEAD", line)
}

func TestReadLineTimeoutWithoutTerminator(t *testing.T) {
	dev := &fakeDev{}
	dev.in.WriteString("DEAD") // no newline ever arrives
	c := New(dev)

	_, err := c.ReadLine(50 * time.Millisecond)
	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 4, te.Received)
}

func TestWriteFlushes(t *testing.T) {
	dev := &fakeDev{}
	c := New(dev)

	require.NoError(t, c.Write([]byte{0x01, 0x02}))
	assert.Equal(t, []byte{0x01, 0x02}, dev.out.Bytes())
	assert.Equal(t, 1, dev.drains)
}

func TestWriteLinesOrderAndPacing(t *testing.T) {
	dev := &fakeDev{}
	c := New(dev)
	lines := [][]byte{[]byte("MSG 00\n"), []byte("OUTBITS 256\n"), []byte("GO\n")}

	start := time.Now()
	require.NoError(t, c.WriteLines(context.Background(), lines))
	elapsed := time.Since(start)

	assert.Equal(t, "MSG 00\nOUTBITS 256\nGO\n", dev.out.String())
	assert.Equal(t, 3, dev.drains)
	// Three lines through a 10ms pacer: at least two inter-line gaps.
	assert.GreaterOrEqual(t, elapsed, 15*time.Millisecond)
}

func TestWriteLinesCancelled(t *testing.T) {
	dev := &fakeDev{}
	c := New(dev)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Burst token may allow the first line through; the pacer must abort
	// on a cancelled context before sending them all.
	err := c.WriteLines(ctx, [][]byte{[]byte("A\n"), []byte("B\n"), []byte("C\n")})
	require.Error(t, err)
	assert.Less(t, dev.out.Len(), 6)
}

func TestResetInputDiscards(t *testing.T) {
	dev := &fakeDev{}
	dev.in.WriteString("stale bytes from a previous exchange")
	c := New(dev)

	require.NoError(t, c.ResetInput())
	assert.Equal(t, 1, dev.resets)
	_, err := c.ReadExact(1, 20*time.Millisecond)
	var te *TimeoutError
	require.True(t, errors.As(err, &te), "stale bytes must be gone")
}

func TestClose(t *testing.T) {
	dev := &fakeDev{}
	c := New(dev)
	require.NoError(t, c.Close())
	assert.True(t, dev.closed)
}

func TestReadExactDeviceError(t *testing.T) {
	dev := &fakeDev{readErr: errors.New("device unplugged")}
	c := New(dev)
	_, err := c.ReadExact(4, time.Second)
	require.Error(t, err)
	var te *TimeoutError
	assert.False(t, errors.As(err, &te), "hard I/O errors are not timeouts")
}

package oracle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript drops an executable shell script into the test's temp dir so
// the invoker has a real process boundary to cross.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script oracle stub requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake_oracle")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestEvaluateCapturesDigest(t *testing.T) {
	bin := writeScript(t, `echo "  4f50ab  "`)
	o := &Invoker{Bin: bin}

	digest, err := o.Evaluate(context.Background(), "", "", 256, 12)
	require.NoError(t, err)
	// Trimmed and upper-cased.
	assert.Equal(t, "4F50AB", digest)
}

func TestEvaluatePositionalArguments(t *testing.T) {
	// The reference takes (msg_hex, label_hex, out_bits, rounds) in that
	// order; echo them back to pin the argv layout.
	bin := writeScript(t, `echo "$1|$2|$3|$4"`)
	o := &Invoker{Bin: bin}

	digest, err := o.Evaluate(context.Background(), "00ab", "ffee", 512, 8)
	require.NoError(t, err)
	assert.Equal(t, "00AB|FFEE|512|8", digest)
}

func TestEvaluateEmptyArgumentsSurvive(t *testing.T) {
	// Empty msg/label must arrive as empty argv entries, not be dropped.
	bin := writeScript(t, `echo "$#"`)
	o := &Invoker{Bin: bin}

	digest, err := o.Evaluate(context.Background(), "", "", 256, 12)
	require.NoError(t, err)
	assert.Equal(t, "4", digest)
}

func TestEvaluateNonZeroExit(t *testing.T) {
	bin := writeScript(t, `echo "bad hex input" >&2; exit 3`)
	o := &Invoker{Bin: bin}

	_, err := o.Evaluate(context.Background(), "zz", "", 256, 12)
	require.Error(t, err)
	var oerr *Error
	require.True(t, errors.As(err, &oerr))
	assert.Contains(t, oerr.Stderr, "bad hex input")
}

func TestEvaluateMissingBinary(t *testing.T) {
	o := &Invoker{Bin: filepath.Join(t.TempDir(), "does-not-exist")}
	_, err := o.Evaluate(context.Background(), "", "", 256, 12)
	var oerr *Error
	require.True(t, errors.As(err, &oerr))
}

func TestEvaluateTimeout(t *testing.T) {
	bin := writeScript(t, `sleep 5; echo DEAD`)
	o := &Invoker{Bin: bin, Timeout: 100 * time.Millisecond}

	start := time.Now()
	_, err := o.Evaluate(context.Background(), "", "", 256, 12)
	elapsed := time.Since(start)

	var oerr *Error
	require.True(t, errors.As(err, &oerr))
	assert.Less(t, elapsed, 2*time.Second, "process must be reaped at the deadline, not at its leisure")
}

func TestEvaluateDeterministic(t *testing.T) {
	bin := writeScript(t, `echo "ABCD$3"`)
	o := &Invoker{Bin: bin}

	first, err := o.Evaluate(context.Background(), "00", "11", 128, 12)
	require.NoError(t, err)
	second, err := o.Evaluate(context.Background(), "00", "11", 128, 12)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

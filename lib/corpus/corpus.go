// Package corpus parses known-answer vector files in the NIST-style
// block format used by the CXOF reference distribution:
//
//	Count = 1
//	Msg = 00
//	Z = 1011
//	MD = 4F3B...
//
// A block starts at each "Count = <n>" marker; Msg, Z and MD may appear in
// any order inside the block and each is optional. Blocks without an MD are
// retained (the runner decides whether to skip or oracle-compare them).
package corpus

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/oops"

	"github.com/ascon-fpga/cxof-harness/lib/hexfmt"
	"github.com/ascon-fpga/cxof-harness/lib/util/logger"
)

var log = logger.GetLogger()

// Vector is one parsed known-answer vector. Immutable once parsed.
type Vector struct {
	// Index is the Count value identifying the vector. Indexes come from
	// the file verbatim; they are not required to be dense or ordered.
	Index int
	// MsgHex and LabelHex hold the raw hex fields exactly as written.
	MsgHex   string
	LabelHex string
	// MD is the expected digest, empty when the block carried none.
	MD string
}

// HasDigest reports whether the vector carries an expected digest.
func (v Vector) HasDigest() bool { return v.MD != "" }

// OutBytes is the digest length implied by the MD field, zero when the
// block carried no digest (callers substitute their configured default).
func (v Vector) OutBytes() int { return len(v.MD) / 2 }

// Message decodes the Msg field into bytes.
func (v Vector) Message() ([]byte, error) { return hexfmt.DecodeString(v.MsgHex) }

// Label decodes the Z field into bytes.
func (v Vector) Label() ([]byte, error) { return hexfmt.DecodeString(v.LabelHex) }

// ErrMalformedCount marks a block whose Count value is not a decimal
// integer. Fatal to the corpus load.
var ErrMalformedCount = oops.Errorf("malformed Count marker")

// Horizontal whitespace only around "=": \s would swallow the newline in
// multiline mode and capture the following line instead.
var (
	countRe = regexp.MustCompile(`Count[ \t]*=[ \t]*(\S+)`)
	msgRe   = regexp.MustCompile(`(?m)^Msg[ \t]*=[ \t]*(.*)$`)
	zRe     = regexp.MustCompile(`(?m)^Z[ \t]*=[ \t]*(.*)$`)
	mdRe    = regexp.MustCompile(`(?m)^MD[ \t]*=[ \t]*([0-9A-Fa-f]+)`)
)

// Parse splits text into blocks at Count markers and extracts each field
// by independent pattern search. An empty corpus yields an empty slice.
func Parse(text string) ([]Vector, error) {
	var out []Vector
	for _, block := range splitBlocks(text) {
		m := countRe.FindStringSubmatch(block)
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, oops.Errorf("%w: Count = %q", ErrMalformedCount, m[1])
		}
		v := Vector{Index: idx}
		if f := msgRe.FindStringSubmatch(block); f != nil {
			v.MsgHex = strings.TrimSpace(f[1])
		}
		if f := zRe.FindStringSubmatch(block); f != nil {
			v.LabelHex = strings.TrimSpace(f[1])
		}
		if f := mdRe.FindStringSubmatch(block); f != nil {
			v.MD = strings.TrimSpace(f[1])
		}
		if !v.HasDigest() {
			log.WithField("index", idx).Debug("vector has no MD field")
		}
		out = append(out, v)
	}
	log.WithField("vectors", len(out)).Debug("corpus parsed")
	return out, nil
}

// splitBlocks returns the text of each Count block, preserving file order.
// Text before the first marker is ignored (comment preamble).
func splitBlocks(text string) []string {
	locs := countRe.FindAllStringIndex(text, -1)
	blocks := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, text[loc[0]:end])
	}
	return blocks
}

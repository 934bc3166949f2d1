package hexfmt

import (
	"bytes"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"already canonical", "DEADBEEF", "DEADBEEF"},
		{"lowercase", "deadbeef", "DEADBEEF"},
		{"mixed case", "DeAdBeEf", "DEADBEEF"},
		{"inner spaces", "de ad be ef", "DEADBEEF"},
		{"tabs and newlines", "de\tad\nbe\r\nef", "DEADBEEF"},
		{"leading and trailing", "  deadbeef  ", "DEADBEEF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"", "00", "deadbeef", " dE aD\tbE\nef ", "0123456789abcdefABCDEF"}
	for _, s := range inputs {
		once := Normalize(s)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", s, once, twice)
		}
	}
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{"empty", "", []byte{}},
		{"plain", "48656c6c6f", []byte("Hello")},
		{"0x prefix", "0xDEAD", []byte{0xDE, 0xAD}},
		{"0X prefix", "0XDEAD", []byte{0xDE, 0xAD}},
		{"odd length implied zero", "ABC", []byte{0x0A, 0xBC}},
		{"embedded whitespace", "DE AD", []byte{0xDE, 0xAD}},
		{"whitespace only", "   ", []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeString(tt.in)
			if err != nil {
				t.Fatalf("DecodeString(%q) error = %v", tt.in, err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("DecodeString(%q) = %x, want %x", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeStringInvalid(t *testing.T) {
	for _, s := range []string{"xyz", "0xGG", "12zz"} {
		if _, err := DecodeString(s); err == nil {
			t.Errorf("DecodeString(%q) expected error", s)
		}
	}
}

func TestEncodeToString(t *testing.T) {
	got := EncodeToString([]byte{0xde, 0xad, 0x01})
	if got != "DEAD01" {
		t.Errorf("EncodeToString = %q, want DEAD01", got)
	}
	if EncodeToString(nil) != "" {
		t.Errorf("EncodeToString(nil) should be empty")
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	cases := [][]byte{{}, {0x00}, {0xFF}, {0x01, 0x02, 0x03}, bytes.Repeat([]byte{0xAB}, 64)}
	for _, c := range cases {
		got, err := DecodeString(EncodeToString(c))
		if err != nil {
			t.Fatalf("round trip error for %x: %v", c, err)
		}
		if !bytes.Equal(got, c) {
			t.Errorf("round trip mismatch: %x != %x", got, c)
		}
	}
}

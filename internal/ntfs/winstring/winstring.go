// Package winstring holds filenames and journal names as UTF-16LE code unit
// sequences, the representation the core uses throughout (§9 "String
// handling"). Decoding to a platform string happens only at the display
// boundary, via golang.org/x/text/encoding/unicode, which does the correct
// thing with unpaired surrogates instead of the silent mangling a hand
// rolled decoder would produce.
package winstring

import (
	"encoding/binary"

	"golang.org/x/text/encoding/unicode"
)

// String is a sequence of UTF-16LE code units, compared and stored without
// ever being converted to a native string inside the core.
type String []uint16

// FromBytes reads n/2 UTF-16LE code units from b (n must be even; a short
// or odd-length input is truncated to whole units).
func FromBytes(b []byte) String {
	n := len(b) / 2
	out := make(String, n)
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint16(b[i*2 : i*2+2])
	}
	return out
}

// Bytes re-encodes the code units as little-endian bytes.
func (s String) Bytes() []byte {
	out := make([]byte, len(s)*2)
	for i, u := range s {
		binary.LittleEndian.PutUint16(out[i*2:], u)
	}
	return out
}

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Decode converts a UTF-16LE code unit sequence to a Go string for display.
// Decoding failures degrade to the replacement character rather than an
// error — this function is only ever called at a CLI/log boundary, never in
// a decision path inside the core.
func (s String) Decode() string {
	dec := utf16LE.NewDecoder()
	out, err := dec.Bytes(s.Bytes())
	if err != nil {
		return string(out)
	}
	return string(out)
}

func (s String) String() string { return s.Decode() }

// Equal compares two UTF-16 code unit sequences for exact equality.
func (s String) Equal(o String) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

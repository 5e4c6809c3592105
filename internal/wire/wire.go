package wire

import (
	"bytes"
)

const (
	version  byte = 1
	kindMiss byte = 1
)

var magic4 = [...]byte{0, 'T', 'C', 'N'}

// Miss: magic(4) | ver(1) | kind(1=miss)
//
// The leading NUL keeps the marker out of the output space of every text codec
// (JSON, the default). Raw codecs can collide with it only by storing these exact bytes.
func Miss() []byte {
	b := make([]byte, 0, 6)
	b = append(b, magic4[:]...)
	return append(b, version, kindMiss)
}

// IsMiss reports whether b is a negative-cache marker.
func IsMiss(b []byte) bool {
	return len(b) == 6 && bytes.Equal(b[:4], magic4[:]) && b[4] == version && b[5] == kindMiss
}

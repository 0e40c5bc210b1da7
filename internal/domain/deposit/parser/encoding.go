package parser

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// normalizeEncoding strips a UTF-8 BOM and transcodes non-UTF-8 input.
// Vendor CSV exports are frequently Windows-1252; anything that is not
// valid UTF-8 is decoded as such.
func normalizeEncoding(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return decoded
}

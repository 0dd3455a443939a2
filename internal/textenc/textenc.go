// Package textenc decodes note files that may not be UTF-8.
//
// Notes written on Korean Windows installs frequently arrive as CP949, so the
// decoder tries UTF-8 first, then CP949 (EUC-KR superset), and finally
// ISO-8859-1, which maps every byte and therefore never fails.
package textenc

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
)

// Encoding names the charset a payload was decoded from.
type Encoding string

const (
	UTF8   Encoding = "utf-8"
	CP949  Encoding = "cp949"
	Latin1 Encoding = "iso-8859-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts data to a UTF-8 string using the fallback chain.
func Decode(data []byte) (string, Encoding) {
	if len(data) == 0 {
		return "", UTF8
	}

	trimmed := bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(trimmed) {
		return string(trimmed), UTF8
	}

	if out, ok := strictDecode(korean.EUCKR, data); ok {
		return out, CP949
	}

	// ISO-8859-1 maps every byte.
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte(string(utf8.RuneError)))), Latin1
	}
	return string(out), Latin1
}

// ReadFile reads path and decodes it with Decode.
func ReadFile(path string) (string, Encoding, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- caller-supplied note path
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	text, enc := Decode(data)
	return text, enc, nil
}

// strictDecode rejects output containing replacement characters, which is
// how x/text decoders signal bytes that are invalid in the source charset.
func strictDecode(enc encoding.Encoding, data []byte) (string, bool) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}

package content

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Text encoding tags reported in TextResult.Encoding.
const (
	EncodingUTF8      = "utf-8"
	EncodingUTF8Lossy = "utf-8-lossy"
	EncodingUTF16LE   = "utf-16le"
	EncodingUTF16BE   = "utf-16be"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// base64Encodings lists the alphabets tried in order. Gmail returns
// RFC 4648 base64url; other sources use the standard alphabet.
var base64Encodings = []*base64.Encoding{
	base64.URLEncoding,
	base64.StdEncoding,
	base64.RawURLEncoding,
	base64.RawStdEncoding,
}

// DecodeBase64 decodes s trying the URL-safe and standard alphabets, padded
// and unpadded. Embedded whitespace is ignored. The returned error wraps
// ErrDecode.
func DecodeBase64(s string) ([]byte, error) {
	s = stripWhitespace(s)
	if s == "" {
		return []byte{}, nil
	}

	var lastErr error
	for _, enc := range base64Encodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: malformed base64 payload: %v", ErrDecode, lastErr)
}

// DecodedBase64Len returns the number of bytes s decodes to without
// decoding it. Whitespace is ignored.
func DecodedBase64Len(s string) int {
	s = stripWhitespace(s)
	n := len(s)
	if n == 0 {
		return 0
	}
	padding := 0
	for i := n - 1; i >= 0 && s[i] == '='; i-- {
		padding++
	}
	return (n-padding)*6/8
}

// DecodeText turns raw attachment bytes into a string. UTF-16 input with a
// byte order mark is transcoded; a UTF-8 BOM is dropped; invalid UTF-8
// sequences are replaced with U+FFFD and the encoding is reported as
// EncodingUTF8Lossy.
func DecodeText(data []byte) (string, string) {
	switch {
	case bytes.HasPrefix(data, utf16LEBOM):
		if s, err := decodeUTF16(data, unicode.LittleEndian); err == nil {
			return s, EncodingUTF16LE
		}
	case bytes.HasPrefix(data, utf16BEBOM):
		if s, err := decodeUTF16(data, unicode.BigEndian); err == nil {
			return s, EncodingUTF16BE
		}
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), EncodingUTF8
	}
	return strings.ToValidUTF8(string(data), "�"), EncodingUTF8Lossy
}

func decodeUTF16(data []byte, endianness unicode.Endianness) (string, error) {
	decoder := unicode.UTF16(endianness, unicode.ExpectBOM).NewDecoder()
	out, err := decoder.Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func stripWhitespace(s string) string {
	if !strings.ContainsAny(s, " \t\r\n") {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}

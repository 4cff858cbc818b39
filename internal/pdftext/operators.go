// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// tjSpaceThreshold is the TJ displacement (thousandths of an em) at or below
// which a gap between two strings is read as a word space.
const tjSpaceThreshold = -250

// ShownText returns the strings painted by the text-showing operators
// (Tj, TJ, ', ") of a decoded page content stream. Line moves (Td, TD, T*)
// and the end of a text object start a new line; empty lines are dropped.
func ShownText(content []byte) string {
	s := &scanner{buf: content}

	var (
		lines    []string
		line     strings.Builder
		operands []string
		depth    int
	)
	newline := func() {
		if line.Len() > 0 {
			lines = append(lines, line.String())
			line.Reset()
		}
	}
	show := func() {
		for _, o := range operands {
			line.WriteString(o)
		}
	}

	for {
		tok, ok := s.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokString:
			operands = append(operands, decodePDFString(tok.raw))
		case tokArrayStart:
			depth++
		case tokArrayEnd:
			if depth > 0 {
				depth--
			}
		case tokNumber:
			if depth > 0 && tok.num <= tjSpaceThreshold {
				operands = append(operands, " ")
			}
		case tokOperator:
			switch tok.word {
			case "Tj", "TJ":
				show()
			case "'", `"`:
				newline()
				show()
			case "Td", "TD", "T*", "ET":
				newline()
			case "BI":
				s.skipInlineImage()
			}
			operands = operands[:0]
			depth = 0
		}
	}
	newline()

	return strings.Join(lines, "\n")
}

// decodePDFString turns string operand bytes into UTF-8. UTF-16BE strings
// carry a byte-order mark; anything else that is not valid UTF-8 is read as
// Latin-1, which matches PDFDocEncoding for the printable range.
func decodePDFString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		u := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}
	if utf8.Valid(b) {
		return string(b)
	}
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}

type tokenKind int

const (
	tokOther tokenKind = iota
	tokString
	tokArrayStart
	tokArrayEnd
	tokNumber
	tokOperator
)

type token struct {
	kind tokenKind
	raw  []byte
	word string
	num  float64
}

// scanner splits a content stream into the tokens ShownText cares about.
// Names, dictionaries and procedure braces come back as tokOther.
type scanner struct {
	buf []byte
	pos int
}

func isWhite(c byte) bool {
	return c == 0 || c == '\t' || c == '\n' || c == '\f' || c == '\r' || c == ' '
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (s *scanner) next() (token, bool) {
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		switch {
		case isWhite(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.buf) && s.buf[s.pos] != '\n' && s.buf[s.pos] != '\r' {
				s.pos++
			}
		case c == '(':
			return token{kind: tokString, raw: s.literal()}, true
		case c == '<':
			if s.pos+1 < len(s.buf) && s.buf[s.pos+1] == '<' {
				s.pos += 2
				return token{kind: tokOther}, true
			}
			return token{kind: tokString, raw: s.hexString()}, true
		case c == '[':
			s.pos++
			return token{kind: tokArrayStart}, true
		case c == ']':
			s.pos++
			return token{kind: tokArrayEnd}, true
		case c == '/':
			s.pos++
			s.regular()
			return token{kind: tokOther}, true
		case c == '>' || c == ')' || c == '{' || c == '}':
			s.pos++
			return token{kind: tokOther}, true
		default:
			w := s.regular()
			if n, err := strconv.ParseFloat(w, 64); err == nil {
				return token{kind: tokNumber, num: n}, true
			}
			return token{kind: tokOperator, word: w}, true
		}
	}
	return token{}, false
}

func (s *scanner) regular() string {
	start := s.pos
	for s.pos < len(s.buf) && !isWhite(s.buf[s.pos]) && !isDelim(s.buf[s.pos]) {
		s.pos++
	}
	return string(s.buf[start:s.pos])
}

// literal reads a parenthesised string, honouring nesting and escapes.
func (s *scanner) literal() []byte {
	s.pos++
	var out []byte
	depth := 1
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		s.pos++
		switch c {
		case '\\':
			if s.pos >= len(s.buf) {
				return out
			}
			e := s.buf[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if s.pos < len(s.buf) && s.buf[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.buf) && s.buf[s.pos] >= '0' && s.buf[s.pos] <= '7'; i++ {
						v = v*8 + int(s.buf[s.pos]-'0')
						s.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

func (s *scanner) hexString() []byte {
	s.pos++
	var digits []byte
	for s.pos < len(s.buf) && s.buf[s.pos] != '>' {
		c := s.buf[s.pos]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			digits = append(digits, c)
		}
		s.pos++
	}
	s.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	if _, err := hex.Decode(out, digits); err != nil {
		return nil
	}
	return out
}

// skipInlineImage moves past the binary payload of an inline image
// (BI ... ID <data> EI).
func (s *scanner) skipInlineImage() {
	idx := bytes.Index(s.buf[s.pos:], []byte("ID"))
	if idx < 0 {
		s.pos = len(s.buf)
		return
	}
	s.pos += idx + 2
	for s.pos < len(s.buf) {
		i := bytes.Index(s.buf[s.pos:], []byte("EI"))
		if i < 0 {
			s.pos = len(s.buf)
			return
		}
		at := s.pos + i
		end := at + 2
		if at > 0 && isWhite(s.buf[at-1]) && (end == len(s.buf) || isWhite(s.buf[end])) {
			s.pos = end
			return
		}
		s.pos = end
	}
}

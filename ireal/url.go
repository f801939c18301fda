package ireal

import (
	"fmt"
	"strings"
)

// Variant identifies the URL scheme of a chart.
type Variant uint8

const (
	VariantPlaylist Variant = iota + 1 // irealb://
	VariantSong                        // irealbook://
)

const (
	playlistScheme = "irealb://"
	songScheme     = "irealbook://"
)

// Scheme returns the URL prefix of the variant.
func (v Variant) Scheme() string {
	switch v {
	case VariantPlaylist:
		return playlistScheme
	case VariantSong:
		return songScheme
	}
	return ""
}

func (v Variant) String() string {
	switch v {
	case VariantPlaylist:
		return "irealb"
	case VariantSong:
		return "irealbook"
	}
	return fmt.Sprintf("Variant(%d)", v)
}

// Envelope is an unwrapped URL: the decoded payload, its scheme and the
// escaping the URL used.
type Envelope struct {
	Variant  Variant
	Payload  string
	Escaping Escaping
}

// Unwrap strips the scheme prefix and percent-decodes the payload.
func Unwrap(url string) (Envelope, error) {
	var env Envelope
	switch {
	case strings.HasPrefix(url, songScheme):
		env.Variant = VariantSong
	case strings.HasPrefix(url, playlistScheme):
		env.Variant = VariantPlaylist
	default:
		head := url
		if i := strings.Index(head, "://"); i >= 0 {
			head = head[:i]
		} else if len(head) > 16 {
			head = head[:16]
		}
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownScheme, head)
	}
	prefix := len(env.Variant.Scheme())
	payload, esc, err := percentDecode(url[prefix:], prefix)
	if err != nil {
		return Envelope{}, err
	}
	env.Payload = payload
	env.Escaping = esc
	return env, nil
}

// Wrap percent-encodes payload canonically and prepends the scheme.
func Wrap(payload string, v Variant) string {
	return Escaping{}.Wrap(payload, v)
}

// Escaping is the percent-encoding profile of a URL: which bytes were
// written escaped, which literally, and the case of hex digits. The zero
// value is the canonical profile: bytes outside A-Z a-z 0-9 - _ . ! ~ *
// ' ( ) are escaped with upper-case hex.
type Escaping struct {
	escaped [4]uint64
	literal [4]uint64
	lower   bool
	upper   bool
}

func (e *Escaping) markEscaped(b byte) { e.escaped[b>>6] |= 1 << (b & 63) }
func (e *Escaping) markLiteral(b byte) { e.literal[b>>6] |= 1 << (b & 63) }

func (e Escaping) seenEscaped(b byte) bool { return e.escaped[b>>6]&(1<<(b&63)) != 0 }
func (e Escaping) seenLiteral(b byte) bool { return e.literal[b>>6]&(1<<(b&63)) != 0 }

// IsCanonical reports whether the profile agrees with canonical escaping
// for every byte it has seen.
func (e Escaping) IsCanonical() bool {
	if e.lower {
		return false
	}
	for i := 0; i < 256; i++ {
		b := byte(i)
		if e.seenEscaped(b) && !e.seenLiteral(b) && unreserved(b) {
			return false
		}
		if e.seenLiteral(b) && !e.seenEscaped(b) && !unreserved(b) {
			return false
		}
	}
	return true
}

// shouldEscape decides one byte. A byte the source wrote both ways
// falls back to the canonical rule.
func (e Escaping) shouldEscape(b byte) bool {
	if b == '%' {
		return true
	}
	esc, lit := e.seenEscaped(b), e.seenLiteral(b)
	switch {
	case esc && !lit:
		return true
	case lit && !esc:
		return false
	}
	return !unreserved(b)
}

// Wrap percent-encodes payload following the profile and prepends the
// scheme of v.
func (e Escaping) Wrap(payload string, v Variant) string {
	hex := "0123456789ABCDEF"
	if e.lower && !e.upper {
		hex = "0123456789abcdef"
	}
	var sb strings.Builder
	sb.Grow(len(v.Scheme()) + len(payload)*3/2)
	sb.WriteString(v.Scheme())
	for i := 0; i < len(payload); i++ {
		b := payload[i]
		if !e.shouldEscape(b) {
			sb.WriteByte(b)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[b>>4])
		sb.WriteByte(hex[b&15])
	}
	return sb.String()
}

func unreserved(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", b) >= 0
}

func percentDecode(s string, base int) (string, Escaping, error) {
	var esc Escaping
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b != '%' {
			esc.markLiteral(b)
			sb.WriteByte(b)
			continue
		}
		if i+2 >= len(s) {
			return "", Escaping{}, &SyntaxError{Offset: base + i, Reason: "truncated percent escape"}
		}
		hi, okh := unhex(s[i+1], &esc)
		lo, okl := unhex(s[i+2], &esc)
		if !okh || !okl {
			return "", Escaping{}, &SyntaxError{Offset: base + i, Reason: fmt.Sprintf("invalid percent escape %q", s[i:i+3])}
		}
		v := hi<<4 | lo
		esc.markEscaped(v)
		sb.WriteByte(v)
		i += 2
	}
	return sb.String(), esc, nil
}

func unhex(c byte, esc *Escaping) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		esc.lower = true
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		esc.upper = true
		return c - 'A' + 10, true
	}
	return 0, false
}

package stream

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Reader reads entry frames from an io.Reader.
type Reader struct {
	r          *bufio.Reader
	maxPayload int
	verifyCRC  bool
	offset     int
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxPayload sets the maximum payload size (default: 16 MiB).
func WithMaxPayload(max int) ReaderOption {
	return func(r *Reader) {
		r.maxPayload = max
	}
}

// WithoutCRCVerification disables CRC checks. Digests are still
// verified when present.
func WithoutCRCVerification() ReaderOption {
	return func(r *Reader) {
		r.verifyCRC = false
	}
}

// NewReader creates a new frame reader.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	reader := &Reader{
		r:          bufio.NewReader(r),
		maxPayload: MaxPayloadSize,
		verifyCRC:  true, // verify by default
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// header carries the sizes parsed from a header line.
type header struct {
	wireLen int
	rawLen  int
	hasRaw  bool
}

// Next reads and returns the next frame.
// Returns io.EOF when no more frames are available.
func (r *Reader) Next() (*Frame, error) {
	start := r.offset
	line, err := r.r.ReadString('\n')
	r.offset += len(line)
	if err != nil {
		if err == io.EOF && line == "" {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	frame, h, err := parseHeader(line, start)
	if err != nil {
		return nil, err
	}

	if h.wireLen > r.maxPayload || h.rawLen > r.maxPayload {
		return nil, &ParseError{Reason: fmt.Sprintf("payload too large: %d > %d", max(h.wireLen, h.rawLen), r.maxPayload), Offset: -1}
	}

	var wire []byte
	if h.wireLen > 0 {
		wire = make([]byte, h.wireLen)
		if _, err := io.ReadFull(r.r, wire); err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		r.offset += h.wireLen
	}

	// Trailing newline is optional at EOF.
	if b, err := r.r.ReadByte(); err == nil {
		if b != '\n' {
			r.r.UnreadByte()
		} else {
			r.offset++
		}
	}

	size := h.wireLen
	if h.hasRaw {
		size = h.rawLen
	}
	if frame.Compression != CompressionNone || h.hasRaw {
		if wire, err = decompress(wire, frame.Compression, size); err != nil {
			return nil, &ParseError{Reason: err.Error(), Offset: start}
		}
	}
	frame.Payload = wire

	if r.verifyCRC && frame.CRC != nil {
		if computed := ComputeCRC(frame.Payload); computed != *frame.CRC {
			return nil, &CRCMismatchError{Expected: *frame.CRC, Got: computed}
		}
	}
	if frame.Digest != nil {
		if computed := ComputeDigest(frame.Payload); computed != *frame.Digest {
			return nil, &DigestMismatchError{Expected: *frame.Digest, Got: computed}
		}
	}
	return frame, nil
}

// parseHeader parses the @entry{...} header line.
func parseHeader(line string, offset int) (*Frame, header, error) {
	var h header
	line = strings.TrimSpace(line)

	if !strings.HasPrefix(line, "@entry{") {
		return nil, h, &ParseError{Reason: "expected @entry{", Offset: offset}
	}
	endIdx := strings.LastIndex(line, "}")
	if endIdx < 0 {
		return nil, h, &ParseError{Reason: "missing closing }", Offset: offset + len(line)}
	}
	content := line[len("@entry{"):endIdx]

	frame := &Frame{Version: 1}
	for _, pair := range tokenize(content) {
		eqIdx := strings.Index(pair, "=")
		if eqIdx < 0 {
			continue
		}
		key, val := pair[:eqIdx], pair[eqIdx+1:]

		switch key {
		case "v":
			v, err := strconv.ParseUint(val, 10, 8)
			if err != nil {
				return nil, h, &ParseError{Reason: "invalid version", Offset: -1}
			}
			if v != uint64(Version) {
				return nil, h, &ParseError{Reason: "unsupported version " + val, Offset: -1}
			}
			frame.Version = uint8(v)

		case "sid":
			sid, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, h, &ParseError{Reason: "invalid sid", Offset: -1}
			}
			frame.SID = sid

		case "seq":
			seq, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, h, &ParseError{Reason: "invalid seq", Offset: -1}
			}
			frame.Seq = seq

		case "kind":
			kind, ok := ParseKind(val)
			if !ok {
				return nil, h, &ParseError{Reason: "invalid kind: " + val, Offset: -1}
			}
			frame.Kind = kind

		case "len":
			l, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return nil, h, &ParseError{Reason: "invalid len", Offset: -1}
			}
			h.wireLen = int(l)

		case "raw":
			l, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return nil, h, &ParseError{Reason: "invalid raw", Offset: -1}
			}
			h.rawLen, h.hasRaw = int(l), true

		case "enc":
			c, err := ParseCompression(val)
			if err != nil {
				return nil, h, &ParseError{Reason: err.Error(), Offset: -1}
			}
			frame.Compression = c

		case "crc":
			crc, ok := ParseCRC(val)
			if !ok {
				return nil, h, &ParseError{Reason: "invalid crc: " + val, Offset: -1}
			}
			frame.CRC = &crc

		case "sum":
			d, ok := ParseDigest(val)
			if !ok {
				return nil, h, &ParseError{Reason: "invalid sum: " + val, Offset: -1}
			}
			frame.Digest = &d

		case "final":
			frame.Final = val == "true" || val == "1"
		}
	}
	if frame.Compression != CompressionNone && !h.hasRaw {
		return nil, h, &ParseError{Reason: "enc without raw size", Offset: offset}
	}
	return frame, h, nil
}

// tokenize splits key=value pairs separated by spaces or commas.
func tokenize(s string) []string {
	var tokens []string
	var current bytes.Buffer
	inQuote := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			current.WriteByte(c)
		case (c == ' ' || c == ',' || c == '\t') && !inQuote:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// ReadAll reads all frames until EOF.
func (r *Reader) ReadAll() ([]*Frame, error) {
	var frames []*Frame
	for {
		frame, err := r.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}

package stream

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Writer writes entry frames to an io.Writer.
type Writer struct {
	w           io.Writer
	withCRC     bool // Whether to compute and include CRC
	withDigest  bool // Whether to compute and include a BLAKE3 digest
	compression Compression
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCRC makes the writer compute a CRC for every frame that lacks one.
func WithCRC() WriterOption {
	return func(w *Writer) {
		w.withCRC = true
	}
}

// WithDigest makes the writer compute a BLAKE3 digest for every frame.
func WithDigest() WriterOption {
	return func(w *Writer) {
		w.withDigest = true
	}
}

// WithCompression compresses payloads that shrink under c.
func WithCompression(c Compression) WriterOption {
	return func(w *Writer) {
		w.compression = c
	}
}

// NewWriter creates a new frame writer.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	writer := &Writer{w: w}
	for _, opt := range opts {
		opt(writer)
	}
	return writer
}

// WriteFrame writes a single frame.
//
// Format:
//
//	@entry{v=1 sid=N seq=N kind=K len=N [enc=E raw=N] [crc=X] [sum=blake3:X] [final=true]}\n
//	<payload bytes>\n
//
// len counts the bytes on the wire; raw is the uncompressed size when
// enc is present. crc and sum always cover the uncompressed payload.
func (w *Writer) WriteFrame(f *Frame) error {
	wire, enc, err := w.encode(f)
	if err != nil {
		return err
	}

	var header strings.Builder
	header.WriteString("@entry{")

	header.WriteString("v=")
	if f.Version == 0 {
		header.WriteByte('1')
	} else {
		header.WriteString(strconv.Itoa(int(f.Version)))
	}

	header.WriteString(" sid=")
	header.WriteString(strconv.FormatUint(f.SID, 10))

	header.WriteString(" seq=")
	header.WriteString(strconv.FormatUint(f.Seq, 10))

	header.WriteString(" kind=")
	header.WriteString(f.Kind.String())

	header.WriteString(" len=")
	header.WriteString(strconv.Itoa(len(wire)))

	if enc != CompressionNone {
		header.WriteString(" enc=")
		header.WriteString(enc.String())
		header.WriteString(" raw=")
		header.WriteString(strconv.Itoa(len(f.Payload)))
	}

	crc := f.CRC
	if crc == nil && w.withCRC {
		computed := ComputeCRC(f.Payload)
		crc = &computed
	}
	if crc != nil {
		header.WriteString(" crc=")
		header.WriteString(FormatCRC(*crc))
	}

	digest := f.Digest
	if digest == nil && w.withDigest {
		computed := ComputeDigest(f.Payload)
		digest = &computed
	}
	if digest != nil {
		header.WriteString(" sum=blake3:")
		header.WriteString(digest.String())
	}

	if f.Final {
		header.WriteString(" final=true")
	}

	header.WriteString("}\n")

	if _, err := io.WriteString(w.w, header.String()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(wire) > 0 {
		if _, err := w.w.Write(wire); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	}
	if _, err := io.WriteString(w.w, "\n"); err != nil {
		return fmt.Errorf("write trailing newline: %w", err)
	}
	return nil
}

// encode picks the wire form of the payload. A frame's own Compression
// overrides the writer default.
func (w *Writer) encode(f *Frame) ([]byte, Compression, error) {
	c := w.compression
	if f.Compression != CompressionNone {
		c = f.Compression
	}
	if c == CompressionNone || len(f.Payload) == 0 {
		return f.Payload, CompressionNone, nil
	}
	wire, err := compress(f.Payload, c)
	if errors.Is(err, errIncompressible) {
		return f.Payload, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return wire, c, nil
}

// WriteSong writes a song entry frame.
func (w *Writer) WriteSong(sid, seq uint64, payload []byte) error {
	return w.WriteFrame(&Frame{
		Version: Version,
		SID:     sid,
		Seq:     seq,
		Kind:    KindSong,
		Payload: payload,
	})
}

// WriteName writes the playlist name frame.
func (w *Writer) WriteName(sid, seq uint64, name []byte) error {
	return w.WriteFrame(&Frame{
		Version: Version,
		SID:     sid,
		Seq:     seq,
		Kind:    KindName,
		Payload: name,
	})
}

// WriteFinal writes a final frame for a stream.
func (w *Writer) WriteFinal(sid, seq uint64, kind FrameKind, payload []byte) error {
	return w.WriteFrame(&Frame{
		Version: Version,
		SID:     sid,
		Seq:     seq,
		Kind:    kind,
		Payload: payload,
		Final:   true,
	})
}

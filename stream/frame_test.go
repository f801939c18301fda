package stream

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
)

// ============================================================
// Writer Tests
// ============================================================

func TestWriter_MinimalFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.WriteFrame(&Frame{
		Version: 1,
		SID:     0,
		Seq:     0,
		Kind:    KindSong,
		Payload: []byte("A=B"),
	})
	if err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	got := buf.String()
	want := "@entry{v=1 sid=0 seq=0 kind=song len=3}\nA=B\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriter_WithCRC(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithCRC())

	if err := w.WriteSong(1, 5, []byte("hello")); err != nil {
		t.Fatalf("WriteSong failed: %v", err)
	}

	if got := buf.String(); !strings.Contains(got, "crc=3610a686") {
		t.Errorf("expected crc=3610a686 in output: %s", got)
	}
}

func TestWriter_WithDigest(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithDigest())

	if err := w.WriteSong(1, 0, []byte("hello")); err != nil {
		t.Fatalf("WriteSong failed: %v", err)
	}

	want := "sum=blake3:" + ComputeDigest([]byte("hello")).String()
	if got := buf.String(); !strings.Contains(got, want) {
		t.Errorf("expected %s in output: %s", want, got)
	}
}

func TestWriter_FinalFlag(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteFinal(1, 3, KindName, []byte("Jazz")); err != nil {
		t.Fatalf("WriteFinal failed: %v", err)
	}

	got := buf.String()
	want := "@entry{v=1 sid=1 seq=3 kind=name len=4 final=true}\nJazz\n"
	if got != want {
		t.Errorf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestWriter_EmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithCompression(CompressionZstd))

	if err := w.WriteName(1, 42, nil); err != nil {
		t.Fatalf("WriteName failed: %v", err)
	}

	got := buf.String()
	want := "@entry{v=1 sid=1 seq=42 kind=name len=0}\n\n"
	if got != want {
		t.Errorf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestWriter_IncompressibleFallsBack(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithCompression(CompressionLZ4))

	if err := w.WriteSong(0, 0, []byte("x")); err != nil {
		t.Fatalf("WriteSong failed: %v", err)
	}
	if got := buf.String(); strings.Contains(got, "enc=") {
		t.Errorf("tiny payload should be sent uncompressed: %s", got)
	}
}

// ============================================================
// Reader Tests
// ============================================================

func TestReader_MinimalFrame(t *testing.T) {
	input := "@entry{v=1 sid=0 seq=0 kind=song len=3}\nA=B\n"
	r := NewReader(strings.NewReader(input))

	frame, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	if frame.Version != 1 {
		t.Errorf("Version = %d, want 1", frame.Version)
	}
	if frame.SID != 0 {
		t.Errorf("SID = %d, want 0", frame.SID)
	}
	if frame.Seq != 0 {
		t.Errorf("Seq = %d, want 0", frame.Seq)
	}
	if frame.Kind != KindSong {
		t.Errorf("Kind = %v, want song", frame.Kind)
	}
	if string(frame.Payload) != "A=B" {
		t.Errorf("Payload = %q, want A=B", string(frame.Payload))
	}
}

func TestReader_WithCRC(t *testing.T) {
	payload := []byte("hello")
	crc := ComputeCRC(payload)

	input := "@entry{v=1 sid=1 seq=5 kind=song len=5 crc=" + FormatCRC(crc) + "}\nhello\n"
	r := NewReader(strings.NewReader(input))

	frame, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	if frame.CRC == nil {
		t.Error("expected CRC to be present")
	} else if *frame.CRC != crc {
		t.Errorf("CRC = %08x, want %08x", *frame.CRC, crc)
	}
}

func TestReader_CRCMismatch(t *testing.T) {
	input := "@entry{v=1 sid=1 seq=5 kind=song len=5 crc=deadbeef}\nhello\n"

	_, err := NewReader(strings.NewReader(input)).Next()
	var crcErr *CRCMismatchError
	if !errors.As(err, &crcErr) {
		t.Fatalf("expected CRCMismatchError, got %T: %v", err, err)
	}

	frame, err := NewReader(strings.NewReader(input), WithoutCRCVerification()).Next()
	if err != nil {
		t.Fatalf("verification disabled: %v", err)
	}
	if string(frame.Payload) != "hello" {
		t.Errorf("Payload = %q", frame.Payload)
	}
}

func TestReader_DigestMismatch(t *testing.T) {
	sum := ComputeDigest([]byte("other"))
	input := "@entry{v=1 sid=1 seq=0 kind=song len=5 sum=blake3:" + sum.String() + "}\nhello\n"

	_, err := NewReader(strings.NewReader(input)).Next()
	var digestErr *DigestMismatchError
	if !errors.As(err, &digestErr) {
		t.Fatalf("expected DigestMismatchError, got %T: %v", err, err)
	}
}

func TestReader_PayloadWithNewlines(t *testing.T) {
	// Payload contains newlines - reader must use len, not delimiters
	payload := "a\nb\n\nc"

	input := "@entry{v=1 sid=1 seq=1 kind=song len=" + strconv.Itoa(len(payload)) + "}\n" + payload + "\n"
	frame, err := NewReader(strings.NewReader(input)).Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if string(frame.Payload) != payload {
		t.Errorf("Payload = %q, want %q", string(frame.Payload), payload)
	}
}

func TestReader_PayloadWithBraces(t *testing.T) {
	payload := `{C^7 |A-7 }`

	input := "@entry{v=1 sid=1 seq=1 kind=song len=" + strconv.Itoa(len(payload)) + "}\n" + payload + "\n"
	frame, err := NewReader(strings.NewReader(input)).Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if string(frame.Payload) != payload {
		t.Errorf("Payload = %q, want %q", string(frame.Payload), payload)
	}
}

func TestReader_MultipleFrames(t *testing.T) {
	input := `@entry{v=1 sid=1 seq=0 kind=song len=5}
hello
@entry{v=1 sid=1 seq=1 kind=song len=6}
update
@entry{v=1 sid=1 seq=2 kind=name len=0 final=true}

`
	frames, err := NewReader(strings.NewReader(input)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	if frames[0].Kind != KindSong || string(frames[0].Payload) != "hello" {
		t.Errorf("frame 0: got %v/%q", frames[0].Kind, frames[0].Payload)
	}
	if frames[1].Kind != KindSong || string(frames[1].Payload) != "update" {
		t.Errorf("frame 1: got %v/%q", frames[1].Kind, frames[1].Payload)
	}
	if frames[2].Kind != KindName || len(frames[2].Payload) != 0 || !frames[2].Final {
		t.Errorf("frame 2: got %v/%d bytes final=%v", frames[2].Kind, len(frames[2].Payload), frames[2].Final)
	}
}

func TestReader_NumericKind(t *testing.T) {
	input := "@entry{v=1 sid=0 seq=0 kind=99 len=1}\nx\n"
	frame, err := NewReader(strings.NewReader(input)).Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if frame.Kind != FrameKind(99) {
		t.Errorf("Kind = %d, want 99", frame.Kind)
	}
}

func TestReader_HeaderVariations(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"comma-separated", "@entry{v=1,sid=1,seq=0,kind=song,len=1}\nx\n"},
		{"extra spaces", "@entry{  v=1   sid=1  seq=0  kind=song   len=1  }\nx\n"},
		{"crc prefix", "@entry{v=1 sid=1 seq=0 kind=song len=1 crc=crc32:8cdc1683}\nx\n"},
		{"no trailing newline", "@entry{v=1 sid=1 seq=0 kind=song len=1}\nx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewReader(strings.NewReader(tt.input)).Next(); err != nil {
				t.Errorf("Next: %v", err)
			}
		})
	}
}

func TestReader_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong tag", "@frame{v=1 sid=0 seq=0 kind=song len=1}\nx\n"},
		{"bad version", "@entry{v=2 sid=0 seq=0 kind=song len=1}\nx\n"},
		{"bad kind", "@entry{v=1 sid=0 seq=0 kind=lyrics len=1}\nx\n"},
		{"bad crc", "@entry{v=1 sid=0 seq=0 kind=song len=1 crc=xyz}\nx\n"},
		{"bad sum", "@entry{v=1 sid=0 seq=0 kind=song len=1 sum=blake3:00}\nx\n"},
		{"enc without raw", "@entry{v=1 sid=0 seq=0 kind=song len=1 enc=zstd}\nx\n"},
		{"unknown enc", "@entry{v=1 sid=0 seq=0 kind=song len=1 enc=gzip raw=1}\nx\n"},
		{"raw mismatch", "@entry{v=1 sid=0 seq=0 kind=song len=1 raw=2}\nx\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(tt.input)).Next()
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Errorf("expected *ParseError, got %T: %v", err, err)
			}
		})
	}
}

func TestReader_Truncated(t *testing.T) {
	input := "@entry{v=1 sid=0 seq=0 kind=song len=10}\nabc"
	if _, err := NewReader(strings.NewReader(input)).Next(); err == nil {
		t.Error("expected error for short payload")
	}
}

func TestReader_EOF(t *testing.T) {
	_, err := NewReader(strings.NewReader("")).Next()
	if err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_PayloadTooLarge(t *testing.T) {
	input := "@entry{v=1 sid=0 seq=0 kind=song len=999999999}\n"
	_, err := NewReader(strings.NewReader(input), WithMaxPayload(1024)).Next()
	if err == nil {
		t.Error("expected error for large payload")
	}
}

// ============================================================
// Round-trip Tests
// ============================================================

func TestRoundtrip_Frames(t *testing.T) {
	crc := ComputeCRC([]byte("Blue Bossa=Dorham Kenny"))
	digest := ComputeDigest([]byte("Blue Bossa=Dorham Kenny"))
	long := []byte(strings.Repeat("1r34LbKcu7[T44C^7XyQ|D-7 G7 ", 40))

	testCases := []struct {
		name  string
		frame Frame
	}{
		{"minimal song", Frame{Version: 1, Kind: KindSong, Payload: []byte("A=B")}},
		{"song with crc", Frame{Version: 1, SID: 1, Seq: 5, Kind: KindSong, Payload: []byte("Blue Bossa=Dorham Kenny"), CRC: &crc}},
		{"song with digest", Frame{Version: 1, SID: 1, Seq: 6, Kind: KindSong, Payload: []byte("Blue Bossa=Dorham Kenny"), Digest: &digest}},
		{"name", Frame{Version: 1, SID: 2, Seq: 100, Kind: KindName, Payload: []byte("Jazz Standards")}},
		{"empty name", Frame{Version: 1, SID: 1, Seq: 10, Kind: KindName, Payload: nil}},
		{"zstd", Frame{Version: 1, SID: 3, Kind: KindSong, Payload: long, Compression: CompressionZstd}},
		{"lz4", Frame{Version: 1, SID: 3, Kind: KindSong, Payload: long, Compression: CompressionLZ4}},
		{"final", Frame{Version: 1, SID: 1, Seq: 999, Kind: KindSong, Payload: []byte("done"), Final: true}},
		{"large seq", Frame{Version: 1, SID: 18446744073709551615, Seq: 18446744073709551615, Kind: KindSong, Payload: []byte("x")}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf)
			if err := w.WriteFrame(&tc.frame); err != nil {
				t.Fatalf("WriteFrame: %v", err)
			}
			if tc.frame.Compression != CompressionNone && !strings.Contains(buf.String(), "enc="+tc.frame.Compression.String()) {
				t.Errorf("expected enc=%s in header", tc.frame.Compression)
			}

			got, err := NewReader(&buf).Next()
			if err != nil {
				t.Fatalf("Next: %v", err)
			}

			if got.SID != tc.frame.SID {
				t.Errorf("SID = %d, want %d", got.SID, tc.frame.SID)
			}
			if got.Seq != tc.frame.Seq {
				t.Errorf("Seq = %d, want %d", got.Seq, tc.frame.Seq)
			}
			if got.Kind != tc.frame.Kind {
				t.Errorf("Kind = %v, want %v", got.Kind, tc.frame.Kind)
			}
			if !bytes.Equal(got.Payload, tc.frame.Payload) {
				t.Errorf("Payload = %q, want %q", got.Payload, tc.frame.Payload)
			}
			if got.Final != tc.frame.Final {
				t.Errorf("Final = %v, want %v", got.Final, tc.frame.Final)
			}
			if tc.frame.Digest != nil && (got.Digest == nil || *got.Digest != *tc.frame.Digest) {
				t.Error("digest not carried")
			}
		})
	}
}

func TestRoundtrip_WriterCompression(t *testing.T) {
	payload := []byte(strings.Repeat("C^7XyQKcl|", 50))
	for _, c := range []Compression{CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf, WithCompression(c), WithCRC(), WithDigest())
			if err := w.WriteSong(0, 0, payload); err != nil {
				t.Fatalf("WriteSong: %v", err)
			}
			if buf.Len() >= len(payload) {
				t.Errorf("frame is %d bytes, payload %d; expected compression", buf.Len(), len(payload))
			}
			got, err := NewReader(&buf).Next()
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if !bytes.Equal(got.Payload, payload) {
				t.Error("payload mismatch")
			}
			if got.Compression != c {
				t.Errorf("Compression = %v, want %v", got.Compression, c)
			}
		})
	}
}

// ============================================================
// CRC and Digest Tests
// ============================================================

func TestCRC_KnownValues(t *testing.T) {
	// Known CRC-32 IEEE test vectors
	testCases := []struct {
		input string
		crc   uint32
	}{
		{"", 0x00000000},
		{"a", 0xe8b7be43},
		{"abc", 0x352441c2},
		{"hello", 0x3610a686},
	}

	for _, tc := range testCases {
		got := ComputeCRC([]byte(tc.input))
		if got != tc.crc {
			t.Errorf("CRC(%q) = %08x, want %08x", tc.input, got, tc.crc)
		}
		if s := FormatCRC(got); len(s) != 8 {
			t.Errorf("FormatCRC(%08x) = %q", got, s)
		}
		if back, ok := ParseCRC(FormatCRC(got)); !ok || back != got {
			t.Errorf("ParseCRC(FormatCRC(%08x)) = %08x, %v", got, back, ok)
		}
	}
}

func TestDigest_RoundTrip(t *testing.T) {
	original := ComputeDigest([]byte("Autumn Leaves"))

	hex := original.String()
	if len(hex) != 64 {
		t.Errorf("hex length = %d, want 64", len(hex))
	}

	for _, in := range []string{hex, "blake3:" + hex} {
		parsed, ok := ParseDigest(in)
		if !ok {
			t.Fatalf("ParseDigest(%q) failed", in)
		}
		if parsed != original {
			t.Error("round-trip failed")
		}
	}
	if ComputeDigest([]byte("Autumn Leaves")) != original {
		t.Error("digest is not deterministic")
	}
	if ComputeDigest([]byte("Autumn leaves")) == original {
		t.Error("distinct payloads share a digest")
	}
}

// Package stream implements a line-framed text transport for iReal Pro
// bundle entries.
//
// Each frame carries one entry payload (or the playlist name) of a
// split irealb bundle, providing:
//   - Entry boundaries and resync
//   - Multiplexing of several playlists via stream IDs (sid)
//   - Ordering via sequence numbers (seq)
//   - Integrity via CRC-32 (the entry checksum) and an optional BLAKE3 digest
//   - Optional zstd or lz4 payload compression
//
// Frame headers are not part of the iReal Pro payload. A payload is the
// exact entry text returned by ireal.Split and is passed back to
// ireal.Join unchanged.
package stream

import (
	"fmt"
	"strconv"
)

// Version is the frame protocol version.
const Version uint8 = 1

// FrameKind indicates the semantic category of a frame's payload.
type FrameKind uint8

const (
	KindSong FrameKind = 0 // One song entry of a bundle
	KindName FrameKind = 1 // The playlist name segment
)

// String returns the kind name.
func (k FrameKind) String() string {
	switch k {
	case KindSong:
		return "song"
	case KindName:
		return "name"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// ParseKind parses a kind string or numeric value.
func ParseKind(s string) (FrameKind, bool) {
	switch s {
	case "song", "0":
		return KindSong, true
	case "name", "1":
		return KindName, true
	default:
		n, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return 0, false
		}
		return FrameKind(n), true
	}
}

// Frame represents a single entry frame.
type Frame struct {
	// Required fields
	Version uint8     // Protocol version (must be 1)
	SID     uint64    // Stream identifier, one per playlist
	Seq     uint64    // Sequence number (per-SID, monotonic from 0)
	Kind    FrameKind // Frame kind
	Payload []byte    // Uncompressed payload bytes

	// Optional fields
	CRC         *uint32     // CRC-32 of the uncompressed payload
	Digest      *Digest     // BLAKE3 digest of the uncompressed payload
	Compression Compression // Wire encoding of the payload
	Final       bool        // End-of-stream marker for this SID
}

// HasCRC returns true if CRC is present.
func (f *Frame) HasCRC() bool {
	return f.CRC != nil
}

// MaxPayloadSize is the default maximum payload size (16 MiB).
const MaxPayloadSize = 16 * 1024 * 1024

// ParseError reports a malformed frame header or body.
type ParseError struct {
	Reason string
	Offset int
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("stream: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("stream: %s", e.Reason)
}

// CRCMismatchError is returned when CRC verification fails.
type CRCMismatchError struct {
	Expected uint32
	Got      uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("stream: CRC mismatch: expected %08x, got %08x", e.Expected, e.Got)
}

// DigestMismatchError is returned when digest verification fails.
type DigestMismatchError struct {
	Expected Digest
	Got      Digest
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("stream: digest mismatch: expected %s, got %s", e.Expected, e.Got)
}

// SequenceError is returned when a frame arrives out of order.
type SequenceError struct {
	SID      uint64
	Expected uint64
	Got      uint64
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("stream: sid %d: expected seq %d, got %d", e.SID, e.Expected, e.Got)
}

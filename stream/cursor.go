package stream

import (
	"fmt"
	"sync"

	"github.com/Neumenon/ireal/ireal"
)

// Cursor tracks per-SID state while frames are read, reassembling one
// bundle per stream ID.
type Cursor struct {
	mu sync.RWMutex

	order   []uint64
	cursors map[uint64]*SIDState
}

// SIDState holds state for a single stream ID.
type SIDState struct {
	SID     uint64
	NextSeq uint64        // Sequence number expected next
	Bundle  *ireal.Bundle // Entries and name received so far
	Final   bool          // Whether stream has ended
}

// NewCursor creates a new stream cursor.
func NewCursor() *Cursor {
	return &Cursor{
		cursors: make(map[uint64]*SIDState),
	}
}

// Get returns the state for a SID, creating it if needed.
func (c *Cursor) Get(sid uint64) *SIDState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.cursors[sid]
	if !ok {
		state = &SIDState{SID: sid, Bundle: &ireal.Bundle{}}
		c.cursors[sid] = state
		c.order = append(c.order, sid)
	}
	return state
}

// GetReadOnly returns the state for a SID without creating it.
func (c *Cursor) GetReadOnly(sid uint64) *SIDState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursors[sid]
}

// SIDs returns all tracked SIDs in the order they were first seen.
func (c *Cursor) SIDs() []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]uint64(nil), c.order...)
}

// ProcessFrame applies a frame to its SID's bundle.
// Returns an error if:
//   - The sequence number is not the next expected one
//   - The stream already ended
//   - A song follows the name, or a second name arrives
func (c *Cursor) ProcessFrame(frame *Frame) error {
	state := c.Get(frame.SID)

	if state.Final {
		return fmt.Errorf("stream: sid %d: frame after final", frame.SID)
	}
	if frame.Seq != state.NextSeq {
		return &SequenceError{SID: frame.SID, Expected: state.NextSeq, Got: frame.Seq}
	}

	b := state.Bundle
	switch frame.Kind {
	case KindSong:
		if b.Named {
			return fmt.Errorf("stream: sid %d: song after playlist name", frame.SID)
		}
		payload := string(frame.Payload)
		sum := ireal.Checksum(payload)
		if frame.CRC != nil {
			sum = FormatCRC(*frame.CRC)
		}
		b.Entries = append(b.Entries, ireal.Entry{Index: len(b.Entries), Payload: payload, Checksum: sum})
	case KindName:
		if b.Named {
			return fmt.Errorf("stream: sid %d: duplicate playlist name", frame.SID)
		}
		b.Name, b.Named = string(frame.Payload), true
	default:
		return fmt.Errorf("stream: sid %d: unexpected %s frame", frame.SID, frame.Kind)
	}

	state.NextSeq++
	if frame.Final {
		state.Final = true
	}
	return nil
}

package stream

import (
	"fmt"
	"io"

	"github.com/Neumenon/ireal/ireal"
)

// WriteBundle writes b as one stream: a song frame per entry, then a
// name frame when the bundle is named. The last frame is final.
// Entry checksums travel as frame CRCs.
func WriteBundle(w *Writer, sid uint64, b *ireal.Bundle) error {
	if len(b.Entries) == 0 {
		return fmt.Errorf("stream: sid %d: bundle has no entries", sid)
	}
	if err := ireal.Verify(b.Entries); err != nil {
		return err
	}
	last := len(b.Entries) - 1
	if b.Named {
		last++
	}
	for i, e := range b.Entries {
		crc, ok := ParseCRC(e.Checksum)
		if !ok {
			return fmt.Errorf("stream: entry %d: invalid checksum %q", e.Index, e.Checksum)
		}
		f := &Frame{
			Version: Version,
			SID:     sid,
			Seq:     uint64(i),
			Kind:    KindSong,
			Payload: []byte(e.Payload),
			CRC:     &crc,
			Final:   i == last,
		}
		if err := w.WriteFrame(f); err != nil {
			return err
		}
	}
	if b.Named {
		return w.WriteFinal(sid, uint64(last), KindName, []byte(b.Name))
	}
	return nil
}

// ReadBundles reads frames until EOF and returns one bundle per stream
// ID, in the order the IDs first appear. Every stream must end with a
// final frame.
func ReadBundles(r *Reader) ([]*ireal.Bundle, error) {
	cursor := NewCursor()
	for {
		frame, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := cursor.ProcessFrame(frame); err != nil {
			return nil, err
		}
	}

	var out []*ireal.Bundle
	for _, sid := range cursor.SIDs() {
		state := cursor.GetReadOnly(sid)
		if !state.Final {
			return nil, fmt.Errorf("stream: sid %d: truncated, no final frame", sid)
		}
		if err := ireal.Verify(state.Bundle.Entries); err != nil {
			return nil, fmt.Errorf("stream: sid %d: %w", sid, err)
		}
		out = append(out, state.Bundle)
	}
	return out, nil
}

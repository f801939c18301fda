package ireal

import (
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

// SongSeparator separates songs (and the trailing playlist name) in an
// irealb payload.
const SongSeparator = "==="

const (
	playlistFields = 10
	playlistMusic  = 6
	songFields     = 6
	songMusic      = 5
)

var crcTable = crc32.MakeTable(crc32.IEEE)

// Checksum returns the CRC-32 (IEEE) of payload as 8 lower-case hex
// digits.
func Checksum(payload string) string {
	return fmt.Sprintf("%08x", crc32.Checksum([]byte(payload), crcTable))
}

// Entry is one song payload isolated from a bundle.
type Entry struct {
	Index    int
	Payload  string
	Checksum string
}

// Bundle is a split irealb payload. Named records whether the payload
// carried a name segment; a payload holding more than one song always
// does.
type Bundle struct {
	Name    string
	Named   bool
	Entries []Entry
}

// Split isolates the song entries of an irealb payload and checksums
// each one. Entries whose field structure or music tag is broken are
// left out of the bundle and reported in the returned error, one
// *BundleError per entry, while their siblings are still returned.
func Split(payload string) (*Bundle, error) {
	if payload == "" {
		return &Bundle{}, &BundleError{Index: -1, Reason: "empty payload"}
	}
	segs := strings.Split(payload, SongSeparator)
	b := &Bundle{}
	if len(segs) > 1 {
		b.Name, b.Named = segs[len(segs)-1], true
		segs = segs[:len(segs)-1]
	}
	var errs []error
	for i, seg := range segs {
		if reason := checkPlaylistEntry(seg); reason != "" {
			errs = append(errs, &BundleError{Index: i, Reason: reason})
			continue
		}
		b.Entries = append(b.Entries, Entry{Index: i, Payload: seg, Checksum: Checksum(seg)})
	}
	return b, errors.Join(errs...)
}

func checkPlaylistEntry(seg string) string {
	n := strings.Count(seg, "=") + 1
	switch {
	case seg == "":
		return "empty entry"
	case n <= playlistMusic:
		return fmt.Sprintf("%d fields, want at least %d", n, playlistMusic+1)
	case n > playlistFields:
		return fmt.Sprintf("%d fields, want at most %d", n, playlistFields)
	}
	music := strings.SplitN(seg, "=", playlistMusic+2)[playlistMusic]
	if !strings.HasPrefix(music, MusicPrefix) {
		return "music field lacks the " + MusicPrefix + " tag"
	}
	return ""
}

// splitBook isolates the songs of an irealbook payload, six fields each.
func splitBook(payload string) (*Bundle, error) {
	fields := strings.Split(payload, "=")
	if payload == "" || len(fields)%songFields != 0 {
		return &Bundle{}, &BundleError{Index: -1, Reason: fmt.Sprintf("%d fields is not a whole number of songs", len(fields))}
	}
	b := &Bundle{}
	for i := 0; i < len(fields); i += songFields {
		seg := strings.Join(fields[i:i+songFields], "=")
		b.Entries = append(b.Entries, Entry{Index: i / songFields, Payload: seg, Checksum: Checksum(seg)})
	}
	return b, nil
}

// Verify recomputes the checksum of every entry. It reports one
// *BundleError per mismatching entry.
func Verify(entries []Entry) error {
	var errs []error
	for _, e := range entries {
		if sum := Checksum(e.Payload); sum != e.Checksum {
			errs = append(errs, &BundleError{
				Index:  e.Index,
				Reason: fmt.Sprintf("checksum %s, payload hashes to %s", e.Checksum, sum),
			})
		}
	}
	return errors.Join(errs...)
}

// Join reassembles an irealb payload from b, verifying every entry's
// checksum first.
func Join(b *Bundle) (string, error) {
	if err := Verify(b.Entries); err != nil {
		return "", err
	}
	named := b.Named || len(b.Entries) != 1
	parts := make([]string, 0, len(b.Entries)+1)
	for _, e := range b.Entries {
		if named && strings.HasSuffix(e.Payload, "=") {
			return "", &BundleError{Index: e.Index, Reason: "payload ends with a field separator"}
		}
		parts = append(parts, e.Payload)
	}
	if named {
		parts = append(parts, b.Name)
	}
	return strings.Join(parts, SongSeparator), nil
}

package stream

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 keyed digest of an entry payload.
type Digest [32]byte

// entryDomainKey keys the digest so entry hashes never collide with
// hashes of the same bytes in other contexts.
var entryDomainKey = [32]byte{
	'i', 'r', 'e', 'a', 'l', '.', 's', 't', 'r', 'e', 'a', 'm', '.',
	'e', 'n', 't', 'r', 'y', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// ComputeDigest computes the entry-domain BLAKE3 digest of data.
func ComputeDigest(data []byte) Digest {
	hasher, err := blake3.NewKeyed(entryDomainKey[:])
	if err != nil {
		panic("stream: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d
}

// String returns the lower-case hex form.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest parses "blake3:XXXX..." or a bare 64-character hex string.
func ParseDigest(s string) (Digest, bool) {
	var d Digest
	if len(s) > 7 && s[:7] == "blake3:" {
		s = s[7:]
	}
	if len(s) != 64 {
		return d, false
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return d, false
	}
	return d, true
}

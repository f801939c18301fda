package stream

import (
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
)

// crcTable is the IEEE CRC-32 table, the same polynomial ireal.Checksum
// uses, so a frame CRC equals its entry checksum.
var crcTable = crc32.MakeTable(crc32.IEEE)

// ComputeCRC computes CRC-32 IEEE of the given bytes.
func ComputeCRC(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// VerifyCRC verifies that the CRC matches.
func VerifyCRC(data []byte, expected uint32) bool {
	return ComputeCRC(data) == expected
}

// FormatCRC renders a CRC as 8 lower-case hex digits.
func FormatCRC(crc uint32) string {
	return fmt.Sprintf("%08x", crc)
}

// ParseCRC parses "crc32:XXXXXXXX" or "XXXXXXXX".
func ParseCRC(val string) (uint32, bool) {
	val = strings.TrimPrefix(val, "crc32:")
	if len(val) != 8 {
		return 0, false
	}
	v, err := strconv.ParseUint(val, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

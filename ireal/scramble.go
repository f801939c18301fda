package ireal

import "strings"

// MusicPrefix is the magic tag that opens every irealb music field.
const MusicPrefix = "1r34LbKcu7"

const scrambleBlock = 50

// Scramble applies the irealb music obfuscation. It is its own inverse.
//
// While more than 51 bytes remain, each 50-byte block has positions i
// and 49-i swapped for i in [0,5) and [10,24). The tail is untouched.
func Scramble(s string) string {
	if len(s) <= scrambleBlock+1 {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for len(s) > scrambleBlock+1 {
		sb.Write(scrambleBlockBytes(s[:scrambleBlock]))
		s = s[scrambleBlock:]
	}
	sb.WriteString(s)
	return sb.String()
}

func scrambleBlockBytes(block string) []byte {
	buf := []byte(block)
	swap := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			j := scrambleBlock - 1 - i
			buf[i], buf[j] = buf[j], buf[i]
		}
	}
	swap(0, 5)
	swap(10, 24)
	return buf
}

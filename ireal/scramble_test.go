package ireal

import (
	"strings"
	"testing"
)

func TestScramble_KnownBlock(t *testing.T) {
	in := "{*AT44C-7XyQKclLZF-7XyQKclLZDh7XyQ|G7b9XyQ|C-7XyQKclLZ*BEb-7"
	want := "KQyX74C-7XX9b7G|QyX7hDZLclKQyX7-FZLlcKQyyQ|C-4TA*{clLZ*BEb-7"
	if got := Scramble(in); got != want {
		t.Errorf("Scramble()\n  got:  %q\n  want: %q", got, want)
	}
}

func TestScramble_Involution(t *testing.T) {
	var sb strings.Builder
	for i := 0; sb.Len() < 260; i++ {
		sb.WriteByte("ABCDEFGpx|[]{}-^7 "[i%18])
	}
	src := sb.String()
	for n := 0; n <= len(src); n++ {
		s := src[:n]
		if got := Scramble(Scramble(s)); got != s {
			t.Fatalf("len %d: Scramble is not its own inverse", n)
		}
	}
}

func TestScramble_ShortInputUnchanged(t *testing.T) {
	s := strings.Repeat("C7|", 17)
	if len(s) != 51 {
		t.Fatalf("fixture length %d", len(s))
	}
	if got := Scramble(s); got != s {
		t.Errorf("51-byte input was scrambled: %q", got)
	}
}

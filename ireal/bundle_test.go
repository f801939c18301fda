package ireal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func entryPayload(title string) string {
	return title + "=Anon==Medium Swing=C==" + MusicPrefix + "C^7 |"
}

func readCorpus(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "corpus", name))
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimSpace(string(data))
}

func TestChecksum(t *testing.T) {
	if got := Checksum("hello"); got != "3610a686" {
		t.Errorf("Checksum(hello) = %s, want 3610a686", got)
	}
	if got := Checksum(""); got != "00000000" {
		t.Errorf("Checksum(\"\") = %s, want 00000000", got)
	}
}

func TestSplit_Playlist(t *testing.T) {
	env, err := Unwrap(readCorpus(t, "jazz-standards.url"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Split(env.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if b.Name != "Jazz Standards" || !b.Named {
		t.Errorf("name = %q named=%v", b.Name, b.Named)
	}
	want := []string{"103243ce", "5d8b66ac"}
	if len(b.Entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(b.Entries), len(want))
	}
	for i, e := range b.Entries {
		if e.Index != i || e.Checksum != want[i] {
			t.Errorf("entry %d: index %d checksum %s, want %s", i, e.Index, e.Checksum, want[i])
		}
	}

	joined, err := Join(b)
	if err != nil {
		t.Fatal(err)
	}
	if joined != env.Payload {
		t.Error("Join(Split(p)) != p")
	}
}

func TestSplit_PartialSuccess(t *testing.T) {
	broken := "Third=Anon==Medium Swing=C==C^7 |"
	payload := strings.Join([]string{entryPayload("First"), entryPayload("Second"), broken, "Mixed"}, SongSeparator)

	b, err := Split(payload)
	if !errors.Is(err, ErrMalformedBundle) {
		t.Fatalf("err = %v, want ErrMalformedBundle", err)
	}
	var be *BundleError
	if !errors.As(err, &be) || be.Index != 2 {
		t.Fatalf("err = %v, want entry 2", err)
	}
	if len(b.Entries) != 2 || b.Entries[0].Index != 0 || b.Entries[1].Index != 1 {
		t.Errorf("entries = %+v, want the first two", b.Entries)
	}
	if b.Name != "Mixed" {
		t.Errorf("name = %q", b.Name)
	}
}

func TestSplit_FieldCounts(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		ok      bool
	}{
		{"seven fields", "a=b=c=d=e=f=" + MusicPrefix + "x", true},
		{"ten fields", "a=b=c=d=e=f=" + MusicPrefix + "x=g=h=i", true},
		{"eleven fields", "a=b=c=d=e=f=" + MusicPrefix + "x=g=h=i=j", false},
		{"six fields", "a=b=c=d=e=f", false},
		{"missing tag", "a=b=c=d=e=f=x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Split(tt.payload)
			if tt.ok {
				if err != nil || len(b.Entries) != 1 || b.Named {
					t.Errorf("Split: %v, %+v", err, b)
				}
				return
			}
			if !errors.Is(err, ErrMalformedBundle) {
				t.Errorf("err = %v, want ErrMalformedBundle", err)
			}
		})
	}
}

func TestSplit_Empty(t *testing.T) {
	if _, err := Split(""); !errors.Is(err, ErrMalformedBundle) {
		t.Errorf("err = %v, want ErrMalformedBundle", err)
	}
}

func TestVerify_ReportsOnlyCorruptedEntry(t *testing.T) {
	payload := strings.Join([]string{entryPayload("One"), entryPayload("Two"), entryPayload("Three"), "List"}, SongSeparator)
	b, err := Split(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := Verify(b.Entries); err != nil {
		t.Fatalf("clean bundle: %v", err)
	}

	b.Entries[1].Payload = strings.Replace(b.Entries[1].Payload, "C^7", "C-7", 1)
	err = Verify(b.Entries)
	if !errors.Is(err, ErrMalformedBundle) {
		t.Fatalf("err = %v, want ErrMalformedBundle", err)
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 1 {
		t.Fatalf("want exactly one entry error, got %v", err)
	}
	var be *BundleError
	if !errors.As(err, &be) || be.Index != 1 {
		t.Errorf("err = %v, want entry 1", err)
	}

	if _, err := Join(b); !errors.Is(err, ErrMalformedBundle) {
		t.Errorf("Join err = %v, want ErrMalformedBundle", err)
	}
}

func TestJoin_SingleUnnamed(t *testing.T) {
	p := entryPayload("Solo")
	b, err := Split(p)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Join(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != p {
		t.Errorf("got %q, want %q", got, p)
	}
}

func TestJoin_RejectsTrailingSeparator(t *testing.T) {
	p := "a=b==d=C==" + MusicPrefix + "x=f=1="
	b := &Bundle{Name: "List", Named: true, Entries: []Entry{{Payload: p, Checksum: Checksum(p)}}}
	if _, err := Join(b); !errors.Is(err, ErrMalformedBundle) {
		t.Errorf("err = %v, want ErrMalformedBundle", err)
	}
}

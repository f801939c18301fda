package ireal

import (
	"errors"
	"testing"
)

func TestSongBuilder_BlueBossa(t *testing.T) {
	song, err := NewSongBuilder("Blue Bossa", "Kenny Dorham", "Bossa Nova", "C-").
		Feel("Latin-Brazil: Bossa Acoustic").Tempo(140).Repeats(3).
		Section("A").Time(4, 4).Bar(BarDoubleOpen).
		Chord("C-7").Space().Space().Space().Bar(BarSingle).
		Chord("F-7").Space().Space().Space().Bar(BarSingle).
		Chord("Dh7").Space().Chord("G7").Alt("G7b9").Space().Bar(BarSingle).
		Repeat().Space().Comma().Bar(BarDoubleClose).
		Song()
	if err != nil {
		t.Fatal(err)
	}
	if len(song.Measures) != 4 {
		t.Fatalf("got %d measures, want 4", len(song.Measures))
	}
	if m := song.Measures[0]; m.Section() != "A" || m.Open != BarDoubleOpen || m.OpenAt != 2 {
		t.Errorf("first measure = %+v", m)
	}
	if alt := song.Measures[2].Cells[2].Alt; alt == nil || alt.String() != "G7b9" {
		t.Errorf("alternate = %v", alt)
	}
	if c := song.Measures[3].Cells[0]; c.Kind != CellRepeatChord || c.Chord.String() != "G7" {
		t.Errorf("repeat = %+v, want p resolving to G7", c)
	}
	if !song.Measures[3].Cells[1].Comma {
		t.Error("comma was not recorded")
	}
	if song.Time() != DefaultTime || len(song.TimeSignatures) != 1 {
		t.Errorf("time signatures = %v", song.TimeSignatures)
	}

	url, err := Encode(song)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeSong(url)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(song) {
		t.Errorf("round trip changed the song\n  got:  %+v\n  want: %+v", back, song)
	}
	again, err := Encode(back)
	if err != nil {
		t.Fatal(err)
	}
	if again != url {
		t.Errorf("re-encode differs\n  got:  %s\n  want: %s", again, url)
	}
}

func TestSongBuilder_SectionAfterCellsCarries(t *testing.T) {
	song, err := NewSongBuilder("T", "Anon", "Swing", "C").
		Chord("C7").Space().Section("B").Bar(BarSingle).
		Chord("F7").Bar(BarFinal).
		Song()
	if err != nil {
		t.Fatal(err)
	}
	if got := song.Measures[1].Section(); got != "B" {
		t.Errorf("measure 1 section = %q, want B", got)
	}
	if len(song.Measures[1].Carry) != 1 {
		t.Errorf("carry = %v", song.Measures[1].Carry)
	}
	if _, err := Encode(song); err != nil {
		t.Errorf("Encode: %v", err)
	}
}

func TestSongBuilder_Errors(t *testing.T) {
	tests := []struct {
		name string
		b    *SongBuilder
		want error
	}{
		{"bad chord", NewSongBuilder("T", "A", "S", "C").Chord("H7").Bar(BarSingle), ErrUnencodableCell},
		{"two opens", NewSongBuilder("T", "A", "S", "C").Bar(BarRepeatOpen).Bar(BarDoubleOpen).Chord("C"), ErrStructural},
		{"close on open kind", NewSongBuilder("T", "A", "S", "C").Chord("C").Close(BarRepeatOpen), ErrStructural},
		{"dangling repeat", NewSongBuilder("T", "A", "S", "C").Repeat().Bar(BarSingle), ErrDanglingRepeat},
		{"repeat two too early", NewSongBuilder("T", "A", "S", "C").Chord("C").Bar(BarSingle).RepeatTwoMeasures(), ErrDanglingRepeat},
		{"bad key", NewSongBuilder("T", "A", "S", "X").Chord("C"), ErrInvalidKey},
		{"bad time", NewSongBuilder("T", "A", "S", "C").Time(3, 5).Chord("C"), ErrInvalidTimeSignature},
		{"mark kind", NewSongBuilder("T", "A", "S", "C").Mark(AnnotComment).Chord("C"), ErrUnencodableCell},
		{"no cells", NewSongBuilder("T", "A", "S", "C").Section("A"), ErrStructural},
		{"nothing written", NewSongBuilder("T", "A", "S", "C"), ErrMissingField},
		{"trailing section", NewSongBuilder("T", "A", "S", "C").Chord("C").Section("B"), ErrStructural},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.b.Song(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSongBuilder_PlaceholdersAndMarks(t *testing.T) {
	song, err := NewSongBuilder("T", "Anon", "Swing", "C").
		Mark(AnnotSegno).Chord("C^7").Bar(BarSingle).
		RepeatMeasure().Bar(BarSingle).
		RepeatTwoMeasures().Bar(BarSingle).
		NoChord().Comment("Fine").Bar(BarFinal).
		Song()
	if err != nil {
		t.Fatal(err)
	}
	kinds := []CellKind{
		song.Measures[1].Cells[0].Kind,
		song.Measures[2].Cells[0].Kind,
		song.Measures[3].Cells[0].Kind,
	}
	want := []CellKind{CellRepeatMeasure, CellRepeatTwoMeasures, CellNoChord}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("measure %d kind = %s, want %s", i+1, kinds[i], want[i])
		}
	}
	if song.Measures[0].Lead[0] != Mark(AnnotSegno) {
		t.Errorf("lead = %v", song.Measures[0].Lead)
	}
	if tr := song.Measures[3].Trailing; len(tr) != 1 || tr[0] != Comment("Fine") {
		t.Errorf("trailing = %v", tr)
	}

	url, err := Encode(song)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeSong(url)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(song) {
		t.Error("round trip changed the song")
	}
}

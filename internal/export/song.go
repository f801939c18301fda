package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Neumenon/ireal/ireal"
)

// PlaylistDoc is the document form of a playlist.
type PlaylistDoc struct {
	Name   string    `json:"name,omitempty" yaml:"name,omitempty"`
	Scheme string    `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Songs  []SongDoc `json:"songs" yaml:"songs"`
}

// SongDoc is the document form of a song.
type SongDoc struct {
	Title     string       `json:"title" yaml:"title"`
	Composer  string       `json:"composer" yaml:"composer"`
	Style     string       `json:"style" yaml:"style"`
	Key       string       `json:"key" yaml:"key"`
	Transpose string       `json:"transpose,omitempty" yaml:"transpose,omitempty"`
	Feel      string       `json:"feel,omitempty" yaml:"feel,omitempty"`
	Tempo     int          `json:"tempo,omitempty" yaml:"tempo,omitempty"`
	Repeats   int          `json:"repeats,omitempty" yaml:"repeats,omitempty"`
	Checksum  string       `json:"checksum,omitempty" yaml:"checksum,omitempty"`
	Measures  []MeasureDoc `json:"measures" yaml:"measures"`
}

// MeasureDoc is one measure. Time is set on the measures where the
// meter changes. Close defaults to "|", or "Z" on the last measure.
type MeasureDoc struct {
	Section  string    `json:"section,omitempty" yaml:"section,omitempty"`
	Ending   int       `json:"ending,omitempty" yaml:"ending,omitempty"`
	Time     string    `json:"time,omitempty" yaml:"time,omitempty"`
	Marks    []string  `json:"marks,omitempty" yaml:"marks,omitempty"`
	Comments []string  `json:"comments,omitempty" yaml:"comments,omitempty"`
	Open     string    `json:"open,omitempty" yaml:"open,omitempty"`
	Cells    []CellDoc `json:"cells" yaml:"cells"`
	Close    string    `json:"close,omitempty" yaml:"close,omitempty"`
}

// CellDoc is one grid cell. An empty CellDoc is an empty cell.
//
// Repeat is "chord", "measure" or "two-measures". Plays names the chord
// a repeated-chord cell sounds; it is ignored on import.
type CellDoc struct {
	Chord    string   `json:"chord,omitempty" yaml:"chord,omitempty"`
	Alt      string   `json:"alt,omitempty" yaml:"alt,omitempty"`
	Repeat   string   `json:"repeat,omitempty" yaml:"repeat,omitempty"`
	Plays    string   `json:"plays,omitempty" yaml:"plays,omitempty"`
	NoChord  bool     `json:"no_chord,omitempty" yaml:"no_chord,omitempty"`
	Small    bool     `json:"small,omitempty" yaml:"small,omitempty"`
	Comma    bool     `json:"comma,omitempty" yaml:"comma,omitempty"`
	Marks    []string `json:"marks,omitempty" yaml:"marks,omitempty"`
	Comments []string `json:"comments,omitempty" yaml:"comments,omitempty"`
}

var repeatNames = map[ireal.CellKind]string{
	ireal.CellRepeatChord:       "chord",
	ireal.CellRepeatMeasure:     "measure",
	ireal.CellRepeatTwoMeasures: "two-measures",
}

// markKinds are the annotations exported by name.
var markKinds = []ireal.AnnotationKind{
	ireal.AnnotSegno, ireal.AnnotCoda, ireal.AnnotFermata, ireal.AnnotEnd, ireal.AnnotSpacer,
}

// FromPlaylist returns the document form of p.
func FromPlaylist(p ireal.Playlist) PlaylistDoc {
	doc := PlaylistDoc{Name: p.Name, Scheme: p.Variant().String()}
	for _, it := range p.Items {
		s := FromSong(it.Song)
		s.Checksum = it.Checksum
		doc.Songs = append(doc.Songs, s)
	}
	return doc
}

// FromSong returns the document form of s.
func FromSong(s ireal.Song) SongDoc {
	doc := SongDoc{
		Title:     s.Title,
		Composer:  s.Composer,
		Style:     s.Style,
		Key:       s.Key.String(),
		Transpose: s.Transpose,
		Feel:      s.Feel,
		Tempo:     s.Tempo,
		Repeats:   s.Repeats,
		Measures:  make([]MeasureDoc, len(s.Measures)),
	}
	changes := make(map[int]ireal.TimeSignature, len(s.TimeSignatures))
	for _, c := range s.TimeSignatures {
		changes[c.Measure] = c.TimeSignature
	}
	for i, m := range s.Measures {
		md := MeasureDoc{
			Section: m.Section(),
			Ending:  m.Ending(),
			Cells:   make([]CellDoc, len(m.Cells)),
		}
		if t, ok := changes[i]; ok {
			md.Time = t.String()
		}
		md.Marks, md.Comments = splitAnnotations(m.Annotations())
		if m.Open != ireal.BarNone {
			md.Open = m.Open.String()
		}
		if m.Close != ireal.BarNone {
			md.Close = m.Close.String()
		}
		for j, c := range m.Cells {
			md.Cells[j] = fromCell(c)
		}
		doc.Measures[i] = md
	}
	return doc
}

func fromCell(c ireal.Cell) CellDoc {
	cd := CellDoc{Small: c.Small, Comma: c.Comma}
	switch c.Kind {
	case ireal.CellChord:
		cd.Chord = c.Chord.String()
	case ireal.CellNoChord:
		cd.NoChord = true
	case ireal.CellRepeatChord:
		if chord, ok := c.Resolved(); ok {
			cd.Plays = chord.String()
		}
	}
	cd.Repeat = repeatNames[c.Kind]
	if c.Alt != nil {
		cd.Alt = c.Alt.String()
	}
	cd.Marks, cd.Comments = splitAnnotations(c.Marks)
	return cd
}

// splitAnnotations keeps the navigation marks and comments of list.
// Section, ending and time live in their own fields; size toggles are
// carried by CellDoc.Small.
func splitAnnotations(list []ireal.Annotation) (marks, comments []string) {
	for _, a := range list {
		switch a.Kind {
		case ireal.AnnotComment:
			comments = append(comments, a.Text)
		case ireal.AnnotSegno, ireal.AnnotCoda, ireal.AnnotFermata, ireal.AnnotEnd, ireal.AnnotSpacer:
			marks = append(marks, a.Kind.String())
		}
	}
	return marks, comments
}

// Playlist builds the playlist the document describes.
func (d PlaylistDoc) Playlist() (ireal.Playlist, error) {
	songs := make([]ireal.Song, len(d.Songs))
	for i, sd := range d.Songs {
		s, err := sd.Song()
		if err != nil {
			return ireal.Playlist{}, fmt.Errorf("song %d (%s): %w", i, sd.Title, err)
		}
		songs[i] = s
	}
	return ireal.NewPlaylist(d.Name, songs...), nil
}

// Song builds the song the document describes.
func (d SongDoc) Song() (ireal.Song, error) {
	b := ireal.NewSongBuilder(d.Title, d.Composer, d.Style, d.Key).
		Transpose(d.Transpose).
		Feel(d.Feel)
	if d.Tempo != 0 {
		b.Tempo(d.Tempo)
	}
	if d.Repeats != 0 {
		b.Repeats(d.Repeats)
	}

	small := false
	for i, md := range d.Measures {
		if md.Section != "" {
			b.Section(md.Section)
		}
		if md.Ending != 0 {
			b.Ending(md.Ending)
		}
		if md.Time != "" {
			num, den, err := parseTime(md.Time)
			if err != nil {
				return ireal.Song{}, fmt.Errorf("measure %d: %w", i, err)
			}
			b.Time(num, den)
		}
		if err := annotate(b, md.Marks, md.Comments); err != nil {
			return ireal.Song{}, fmt.Errorf("measure %d: %w", i, err)
		}
		if md.Open != "" {
			kind, ok := ireal.ParseBarline(md.Open)
			if !ok || !kind.Opens() && kind != ireal.BarSingle {
				return ireal.Song{}, fmt.Errorf("measure %d: invalid opening barline %q", i, md.Open)
			}
			b.Bar(kind)
		}
		if len(md.Cells) == 0 {
			return ireal.Song{}, fmt.Errorf("measure %d: %w: no cells", i, ireal.ErrStructural)
		}
		for j, cd := range md.Cells {
			if err := annotate(b, cd.Marks, cd.Comments); err != nil {
				return ireal.Song{}, fmt.Errorf("measure %d cell %d: %w", i, j, err)
			}
			if cd.Small != small {
				if cd.Small {
					b.Mark(ireal.AnnotSmall)
				} else {
					b.Mark(ireal.AnnotLarge)
				}
				small = cd.Small
			}
			if err := addCell(b, cd); err != nil {
				return ireal.Song{}, fmt.Errorf("measure %d cell %d: %w", i, j, err)
			}
		}
		closing := md.Close
		if closing == "" {
			closing = "|"
			if i == len(d.Measures)-1 {
				closing = "Z"
			}
		}
		kind, ok := ireal.ParseBarline(closing)
		if !ok || !kind.Closes() {
			return ireal.Song{}, fmt.Errorf("measure %d: invalid closing barline %q", i, closing)
		}
		b.Close(kind)
	}
	return b.Song()
}

func addCell(b *ireal.SongBuilder, cd CellDoc) error {
	switch {
	case cd.Repeat != "":
		switch cd.Repeat {
		case "chord":
			b.Repeat()
		case "measure":
			b.RepeatMeasure()
		case "two-measures":
			b.RepeatTwoMeasures()
		default:
			return fmt.Errorf("unknown repeat %q", cd.Repeat)
		}
	case cd.NoChord:
		b.NoChord()
	case cd.Chord != "":
		b.Chord(cd.Chord)
	case cd.Alt == "":
		b.Space()
	}
	if cd.Alt != "" {
		b.Alt(cd.Alt)
	}
	if cd.Comma {
		b.Comma()
	}
	return nil
}

func annotate(b *ireal.SongBuilder, marks, comments []string) error {
	for _, name := range marks {
		kind, ok := parseMark(name)
		if !ok {
			return fmt.Errorf("unknown mark %q", name)
		}
		b.Mark(kind)
	}
	for _, c := range comments {
		b.Comment(c)
	}
	return nil
}

func parseMark(name string) (ireal.AnnotationKind, bool) {
	for _, k := range markKinds {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

func parseTime(s string) (int, int, error) {
	num, den, ok := strings.Cut(s, "/")
	n, err1 := strconv.Atoi(num)
	d, err2 := strconv.Atoi(den)
	if !ok || err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("invalid time signature %q", s)
	}
	return n, d, nil
}

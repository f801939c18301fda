package ireal

import (
	"fmt"
	"strconv"
	"strings"
)

// BarlineKind identifies a barline glyph.
type BarlineKind uint8

const (
	BarNone        BarlineKind = iota
	BarSingle                  // |
	BarDoubleOpen              // [
	BarDoubleClose             // ]
	BarRepeatOpen              // {
	BarRepeatClose             // }
	BarFinal                   // Z
)

var barlineGlyphs = [...]string{"", "|", "[", "]", "{", "}", "Z"}

// String returns the barline as written in a progression.
func (k BarlineKind) String() string {
	if int(k) < len(barlineGlyphs) {
		return barlineGlyphs[k]
	}
	return fmt.Sprintf("BarlineKind(%d)", k)
}

// Opens reports whether the barline starts a measure.
func (k BarlineKind) Opens() bool { return k == BarDoubleOpen || k == BarRepeatOpen }

// Closes reports whether the barline ends a measure.
func (k BarlineKind) Closes() bool {
	return k == BarSingle || k == BarDoubleClose || k == BarRepeatClose || k == BarFinal
}

// ParseBarline maps a barline glyph to its kind.
func ParseBarline(s string) (BarlineKind, bool) {
	for i := 1; i < len(barlineGlyphs); i++ {
		if barlineGlyphs[i] == s {
			return BarlineKind(i), true
		}
	}
	return BarNone, false
}

// AnnotationKind identifies an Annotation.
type AnnotationKind uint8

const (
	AnnotSection AnnotationKind = iota + 1 // *A
	AnnotEnding                            // N1
	AnnotTime                              // T44
	AnnotSegno                             // S
	AnnotCoda                              // Q
	AnnotFermata                           // f
	AnnotEnd                               // U
	AnnotSpacer                            // Y
	AnnotSmall                             // s
	AnnotLarge                             // l
	AnnotComment                           // <text>
	AnnotRaw                               // anything else
)

var markGlyphs = map[AnnotationKind]byte{
	AnnotSegno:   'S',
	AnnotCoda:    'Q',
	AnnotFermata: 'f',
	AnnotEnd:     'U',
	AnnotSpacer:  'Y',
	AnnotSmall:   's',
	AnnotLarge:   'l',
}

func markKind(ch byte) (AnnotationKind, bool) {
	for k, g := range markGlyphs {
		if g == ch {
			return k, true
		}
	}
	return 0, false
}

func (k AnnotationKind) String() string {
	switch k {
	case AnnotSection:
		return "section"
	case AnnotEnding:
		return "ending"
	case AnnotTime:
		return "time"
	case AnnotSegno:
		return "segno"
	case AnnotCoda:
		return "coda"
	case AnnotFermata:
		return "fermata"
	case AnnotEnd:
		return "end"
	case AnnotSpacer:
		return "spacer"
	case AnnotSmall:
		return "small"
	case AnnotLarge:
		return "large"
	case AnnotComment:
		return "comment"
	case AnnotRaw:
		return "raw"
	}
	return fmt.Sprintf("AnnotationKind(%d)", k)
}

// Annotation is a non-chord item in a progression.
//
// Text holds the section label, comment body or raw characters. For a
// time annotation it holds the source spelling when that differs from
// the canonical one (T128, canonically T12).
type Annotation struct {
	Kind   AnnotationKind
	Text   string
	Number int
	Time   TimeSignature
}

// Section returns a rehearsal-mark annotation such as *A.
func Section(label string) Annotation { return Annotation{Kind: AnnotSection, Text: label} }

// Ending returns an N-th ending annotation.
func Ending(n int) Annotation { return Annotation{Kind: AnnotEnding, Number: n} }

// Time returns a time-signature annotation.
func Time(num, den int) Annotation {
	return Annotation{Kind: AnnotTime, Time: TimeSignature{Numerator: num, Denominator: den}}
}

// Comment returns a text annotation.
func Comment(text string) Annotation { return Annotation{Kind: AnnotComment, Text: text} }

// Mark returns a single-glyph annotation of the given kind.
func Mark(kind AnnotationKind) Annotation { return Annotation{Kind: kind} }

// semantic reports whether the annotation belongs to the measure that
// follows it rather than the position it was written at.
func (a Annotation) semantic() bool {
	return a.Kind == AnnotSection || a.Kind == AnnotEnding || a.Kind == AnnotTime
}

// String returns the annotation as written, ignoring validity.
func (a Annotation) String() string {
	s, _ := a.wire()
	return s
}

// wire returns the progression text of the annotation, or a reason it
// has none.
func (a Annotation) wire() (string, string) {
	switch a.Kind {
	case AnnotSection:
		if len(a.Text) != 1 || a.Text[0] <= ' ' || a.Text[0] >= 0x7f {
			return "*" + a.Text, "section label must be one printable character"
		}
		return "*" + a.Text, ""
	case AnnotEnding:
		if a.Number < 0 || a.Number > 9 {
			return fmt.Sprintf("N%d", a.Number), "ending number out of range"
		}
		return "N" + strconv.Itoa(a.Number), ""
	case AnnotTime:
		if a.Text != "" {
			if t, ok := parseTimeGlyph(a.Text); ok && t == a.Time {
				return a.Text, ""
			}
		}
		return a.Time.glyph()
	case AnnotComment:
		for i := 0; i < len(a.Text); i++ {
			switch ch := a.Text[i]; {
			case ch == '<' || ch == '>':
				return "<" + a.Text + ">", "angle bracket inside comment"
			case ch == '=':
				return "<" + a.Text + ">", "field separator inside comment"
			case ch < ' ' || ch == 0x7f:
				return "<" + a.Text + ">", "control character inside comment"
			}
		}
		return "<" + a.Text + ">", ""
	case AnnotRaw:
		if strings.Contains(a.Text, "=") {
			return a.Text, "field separator in text"
		}
		if !isRawText(a.Text) {
			return a.Text, "text does not read back as raw text"
		}
		return a.Text, ""
	}
	if g, ok := markGlyphs[a.Kind]; ok {
		return string(rune(g)), ""
	}
	return "", "unknown annotation kind"
}

// TimeSignature is a meter such as 4/4 or 12/8.
type TimeSignature struct {
	Numerator   int
	Denominator int
}

// DefaultTime is the meter of a song that declares none.
var DefaultTime = TimeSignature{Numerator: 4, Denominator: 4}

func (t TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", t.Numerator, t.Denominator)
}

// Valid reports whether the numerator is positive and the denominator
// is one of 2, 4, 8 or 16.
func (t TimeSignature) Valid() bool {
	if t.Numerator < 1 {
		return false
	}
	switch t.Denominator {
	case 2, 4, 8, 16:
		return true
	}
	return false
}

func (t TimeSignature) glyph() (string, string) {
	if t == (TimeSignature{12, 8}) {
		return "T12", ""
	}
	if t.Numerator < 1 || t.Numerator > 9 || t.Denominator < 1 || t.Denominator > 9 {
		return "T" + t.String(), "time signature has no two-digit form"
	}
	return fmt.Sprintf("T%d%d", t.Numerator, t.Denominator), ""
}

func parseTimeGlyph(s string) (TimeSignature, bool) {
	switch {
	case s == "T12" || s == "T128":
		return TimeSignature{12, 8}, true
	case len(s) == 3 && s[0] == 'T' && isDigit(s[1]) && isDigit(s[2]):
		return TimeSignature{int(s[1] - '0'), int(s[2] - '0')}, true
	}
	return TimeSignature{}, false
}

// TimeSignatureChange records the meter in force from Measure onwards.
type TimeSignatureChange struct {
	Measure int
	TimeSignature
}

// CellKind identifies the content of a grid cell.
type CellKind uint8

const (
	CellEmpty             CellKind = iota // space
	CellChord                             // C^7
	CellRepeatChord                       // p
	CellRepeatMeasure                     // x
	CellRepeatTwoMeasures                 // r
	CellNoChord                           // n
	CellAlternate                         // (C7) on its own
)

func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "empty"
	case CellChord:
		return "chord"
	case CellRepeatChord:
		return "repeat-chord"
	case CellRepeatMeasure:
		return "repeat-measure"
	case CellRepeatTwoMeasures:
		return "repeat-two-measures"
	case CellNoChord:
		return "no-chord"
	case CellAlternate:
		return "alternate"
	}
	return fmt.Sprintf("CellKind(%d)", k)
}

// Cell is one grid position of a measure.
//
// Chord is set for CellChord and, after building, for CellRepeatChord
// (the chord being repeated). Alt is the alternate chord written in
// parentheses. Marks are annotations written between the previous cell
// and this one. Comma records a "," written after the cell.
type Cell struct {
	Kind  CellKind
	Chord Chord
	Alt   *Chord
	Marks []Annotation
	Comma bool
	Small bool
}

// Resolved returns the chord that sounds in the cell, if any.
func (c Cell) Resolved() (Chord, bool) {
	switch c.Kind {
	case CellChord, CellRepeatChord:
		return c.Chord, c.Chord.Root != NoteNone
	case CellAlternate:
		if c.Alt != nil {
			return *c.Alt, true
		}
	}
	return Chord{}, false
}

func (c Cell) symbol() string {
	switch c.Kind {
	case CellEmpty:
		return " "
	case CellChord:
		return c.Chord.String()
	case CellRepeatChord:
		return "p"
	case CellRepeatMeasure:
		return "x"
	case CellRepeatTwoMeasures:
		return "r"
	case CellNoChord:
		return "n"
	}
	return ""
}

// Measure is one bar of a progression.
//
// Its text is laid out as Lead[:OpenAt], Open, Lead[OpenAt:], Cells,
// Trailing, the next measure's Carry, Close, After. Carry holds the
// section, ending and time markers that were written just before the
// previous measure's closing barline. After is only used on the final
// measure.
type Measure struct {
	Carry    []Annotation
	Lead     []Annotation
	OpenAt   int
	Open     BarlineKind
	Cells    []Cell
	Trailing []Annotation
	Close    BarlineKind
	After    []Annotation
}

// Section returns the rehearsal label of the measure, or "".
func (m Measure) Section() string {
	if a, ok := m.find(AnnotSection); ok {
		return a.Text
	}
	return ""
}

// Ending returns the ending number of the measure, or 0.
func (m Measure) Ending() int {
	if a, ok := m.find(AnnotEnding); ok {
		return a.Number
	}
	return 0
}

// Annotations returns every measure-level annotation in written order.
func (m Measure) Annotations() []Annotation {
	out := make([]Annotation, 0, len(m.Carry)+len(m.Lead)+len(m.Trailing)+len(m.After))
	out = append(out, m.Carry...)
	out = append(out, m.Lead...)
	out = append(out, m.Trailing...)
	return append(out, m.After...)
}

func (m Measure) find(kind AnnotationKind) (Annotation, bool) {
	for _, list := range [][]Annotation{m.Carry, m.Lead} {
		for _, a := range list {
			if a.Kind == kind {
				return a, true
			}
		}
	}
	return Annotation{}, false
}

// Song is a complete lead sheet.
type Song struct {
	Title     string
	Composer  string
	Style     string
	Key       Key
	Transpose string
	Feel      string
	Tempo     int
	Repeats   int

	Measures       []Measure
	TimeSignatures []TimeSignatureChange

	src *source
}

// Time returns the meter in force at the first measure.
func (s Song) Time() TimeSignature {
	if len(s.TimeSignatures) > 0 && s.TimeSignatures[0].Measure == 0 {
		return s.TimeSignatures[0].TimeSignature
	}
	return DefaultTime
}

// TimeAt returns the meter in force at measure i.
func (s Song) TimeAt(i int) TimeSignature {
	t := DefaultTime
	for _, c := range s.TimeSignatures {
		if c.Measure > i {
			break
		}
		t = c.TimeSignature
	}
	return t
}

// Variant returns the URL scheme the song was decoded from, or
// VariantPlaylist for a constructed song.
func (s Song) Variant() Variant {
	if s.src != nil {
		return s.src.variant
	}
	return VariantPlaylist
}

// source is what a decode knew about the bytes a Song came from.
type source struct {
	variant  Variant
	fields   []string // field text as decoded
	canon    []string // canonical field text of the model at decode time
	expanded string   // progression with escapes expanded
	escapes  []EscapeSpan
	escaping Escaping
	name     string // playlist name of a single-song irealb URL
	named    bool
}

// PlaylistItem is one song of a playlist with the checksum of the
// payload it was decoded from.
type PlaylistItem struct {
	Song     Song
	Checksum string
}

// Playlist is an ordered collection of songs.
type Playlist struct {
	Name  string
	Items []PlaylistItem

	src *playlistSource
}

type playlistSource struct {
	variant  Variant
	escaping Escaping
	named    bool
}

// NewPlaylist returns a playlist of songs with no recorded checksums.
func NewPlaylist(name string, songs ...Song) Playlist {
	p := Playlist{Name: name, Items: make([]PlaylistItem, len(songs))}
	for i, s := range songs {
		p.Items[i] = PlaylistItem{Song: s}
	}
	return p
}

// Songs returns the songs of the playlist in order.
func (p Playlist) Songs() []Song {
	out := make([]Song, len(p.Items))
	for i, it := range p.Items {
		out[i] = it.Song
	}
	return out
}

// Variant returns the URL scheme the playlist was decoded from, or
// VariantPlaylist for a constructed playlist.
func (p Playlist) Variant() Variant {
	if p.src != nil {
		return p.src.variant
	}
	return VariantPlaylist
}

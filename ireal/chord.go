package ireal

import (
	"fmt"
	"strings"
)

// Note is a chord root or bass note letter. NoteW is iReal's "invisible
// root": a chord whose root is implied by the previous chord, used to
// change only the quality or the bass (W/G).
type Note byte

const (
	NoteNone Note = 0
	NoteA    Note = 'A'
	NoteB    Note = 'B'
	NoteC    Note = 'C'
	NoteD    Note = 'D'
	NoteE    Note = 'E'
	NoteF    Note = 'F'
	NoteG    Note = 'G'
	NoteW    Note = 'W'
)

func (n Note) String() string {
	if n == NoteNone {
		return ""
	}
	return string(rune(n))
}

func isPitch(ch byte) bool { return ch >= 'A' && ch <= 'G' }

func isRoot(ch byte) bool { return isPitch(ch) || ch == 'W' }

// Accidental modifies a note by a semitone.
type Accidental byte

const (
	Natural Accidental = 0
	Sharp   Accidental = '#'
	Flat    Accidental = 'b'
)

func (a Accidental) String() string {
	if a == Natural {
		return ""
	}
	return string(rune(a))
}

func (a Accidental) valid() bool { return a == Natural || a == Sharp || a == Flat }

// qualitySymbols are the single-byte units of chord quality text.
// Letters only occur inside the words in qualityWords.
const qualitySymbols = "+-^0123456789hob#"

var qualityWords = [...]string{"sus", "alt", "add"}

// scanQuality returns the end of the quality text starting at s[i].
func scanQuality(s string, i int) int {
	for i < len(s) {
		if strings.IndexByte(qualitySymbols, s[i]) >= 0 {
			i++
			continue
		}
		word := false
		for _, w := range qualityWords {
			if strings.HasPrefix(s[i:], w) {
				i += len(w)
				word = true
				break
			}
		}
		if !word {
			break
		}
	}
	return i
}

// Chord is a single chord symbol: root, quality text and optional bass.
type Chord struct {
	Root           Note
	Accidental     Accidental
	Quality        Quality
	Bass           Note
	BassAccidental Accidental
}

// String returns the chord in iReal notation, e.g. "Bb-7/F".
func (c Chord) String() string {
	var sb strings.Builder
	sb.WriteString(c.Root.String())
	sb.WriteString(c.Accidental.String())
	sb.WriteString(string(c.Quality))
	if c.Bass != NoteNone {
		sb.WriteByte('/')
		sb.WriteString(c.Bass.String())
		sb.WriteString(c.BassAccidental.String())
	}
	return sb.String()
}

// IsSlash reports whether the chord names a bass note.
func (c Chord) IsSlash() bool { return c.Bass != NoteNone }

// validate reports why the chord cannot be written, or "" if it can.
func (c Chord) validate() string {
	if !isRoot(byte(c.Root)) {
		return "invalid root"
	}
	if !c.Accidental.valid() {
		return "invalid accidental"
	}
	if scanQuality(string(c.Quality), 0) != len(c.Quality) {
		return "invalid quality text"
	}
	// A natural chord whose quality starts with an accidental would read
	// back as a different root.
	if c.Accidental == Natural && len(c.Quality) > 0 && (c.Quality[0] == '#' || c.Quality[0] == 'b') {
		return "quality reads as an accidental"
	}
	if c.Bass != NoteNone && !isPitch(byte(c.Bass)) {
		return "invalid bass note"
	}
	if c.Bass == NoteNone && c.BassAccidental != Natural {
		return "bass accidental without bass"
	}
	if !c.BassAccidental.valid() {
		return "invalid bass accidental"
	}
	return ""
}

// scanChord reads a chord starting at s[i]. It returns the chord and the
// offset just past it, or ok=false when s[i] does not start a chord.
func scanChord(s string, i int) (c Chord, end int, ok bool) {
	if i >= len(s) || !isRoot(s[i]) {
		return Chord{}, i, false
	}
	c.Root = Note(s[i])
	j := i + 1
	if j < len(s) && (s[j] == '#' || s[j] == 'b') {
		c.Accidental = Accidental(s[j])
		j++
	}
	q := j
	j = scanQuality(s, j)
	c.Quality = Quality(s[q:j])
	if j+1 < len(s) && s[j] == '/' && isPitch(s[j+1]) {
		c.Bass = Note(s[j+1])
		j += 2
		if j < len(s) && (s[j] == '#' || s[j] == 'b') {
			c.BassAccidental = Accidental(s[j])
			j++
		}
	}
	return c, j, true
}

// ParseChord parses a complete chord symbol such as "C^7", "F#h7" or
// "Eb-7/Db".
func ParseChord(s string) (Chord, error) {
	c, end, ok := scanChord(s, 0)
	if !ok || end != len(s) {
		return Chord{}, fmt.Errorf("%w: invalid chord %q", ErrUnencodableCell, s)
	}
	return c, nil
}

// Quality is the raw quality text of a chord, e.g. "-7", "^9#11", "7alt".
type Quality string

// Triad is the basic chord quality underlying a Quality.
type Triad string

const (
	TriadMajor          Triad = "major"
	TriadMinor          Triad = "minor"
	TriadDiminished     Triad = "diminished"
	TriadHalfDiminished Triad = "half-diminished"
	TriadAugmented      Triad = "augmented"
	TriadSus4           Triad = "sus4"
	TriadSus2           Triad = "sus2"
)

// QualityParts is a decomposition of quality text.
type QualityParts struct {
	Triad        Triad
	MajorSeventh bool
	Extension    int
	Alterations  []string
}

// Parse decomposes the quality. Text outside the known vocabulary is
// kept verbatim as a final alteration so nothing is lost.
func (q Quality) Parse() QualityParts {
	s := string(q)
	p := QualityParts{Triad: TriadMajor}

	switch {
	case strings.HasPrefix(s, "-"):
		p.Triad, s = TriadMinor, s[1:]
	case strings.HasPrefix(s, "h"):
		p.Triad, s = TriadHalfDiminished, s[1:]
		p.Extension = 7
	case strings.HasPrefix(s, "o"):
		p.Triad, s = TriadDiminished, s[1:]
	case strings.HasPrefix(s, "+"):
		p.Triad, s = TriadAugmented, s[1:]
	case s == "2":
		return QualityParts{Triad: TriadSus2}
	}

	if strings.HasPrefix(s, "^") {
		p.MajorSeventh, s = true, s[1:]
		p.Extension = 7
	}

	if n, rest, ok := leadingExtension(s); ok {
		p.Extension, s = n, rest
		if s == "9" && n == 6 {
			p.Alterations = append(p.Alterations, "add9")
			s = ""
		}
	}

	for s != "" {
		switch {
		case strings.HasPrefix(s, "sus"):
			p.Triad, s = TriadSus4, s[3:]
		case strings.HasPrefix(s, "alt"):
			p.Alterations, s = append(p.Alterations, "alt"), s[3:]
		case strings.HasPrefix(s, "add"):
			n, rest, ok := leadingExtension(s[3:])
			if !ok {
				p.Alterations = append(p.Alterations, s)
				return p
			}
			p.Alterations, s = append(p.Alterations, fmt.Sprintf("add%d", n)), rest
		case s[0] == '#' || s[0] == 'b':
			n, rest, ok := leadingExtension(s[1:])
			if !ok {
				p.Alterations = append(p.Alterations, s)
				return p
			}
			p.Alterations, s = append(p.Alterations, fmt.Sprintf("%c%d", s[0], n)), rest
		default:
			p.Alterations = append(p.Alterations, s)
			return p
		}
	}
	return p
}

// leadingExtension reads 13, 11 or a single digit off the front of s.
func leadingExtension(s string) (int, string, bool) {
	if strings.HasPrefix(s, "13") {
		return 13, s[2:], true
	}
	if strings.HasPrefix(s, "11") {
		return 11, s[2:], true
	}
	if s != "" && s[0] >= '2' && s[0] <= '9' {
		return int(s[0] - '0'), s[1:], true
	}
	return 0, s, false
}

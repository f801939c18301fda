package ireal

import (
	"fmt"
	"strconv"
)

// SongBuilder assembles a Song from calls instead of progression text.
// Calls follow the order the items are written in; the first error is
// kept and returned by Song.
//
//	song, err := ireal.NewSongBuilder("Blue Bossa", "Kenny Dorham", "Bossa Nova", "C-").
//		Section("A").Time(4, 4).Bar(ireal.BarDoubleOpen).
//		Chord("C-7").Space().Space().Space().Bar(ireal.BarSingle).
//		Chord("F-7").Space().Space().Space().Bar(ireal.BarDoubleClose).
//		Song()
type SongBuilder struct {
	meta Metadata
	asm  assembler
	err  error
}

// NewSongBuilder starts a song with the required metadata.
func NewSongBuilder(title, composer, style, key string) *SongBuilder {
	return &SongBuilder{
		meta: Metadata{Title: title, Composer: composer, Style: style, Key: key},
		asm:  assembler{semAt: -1},
	}
}

// Transpose sets the transpose field.
func (b *SongBuilder) Transpose(s string) *SongBuilder {
	b.meta.Transpose = s
	return b
}

// Feel sets the feel (playback style) field.
func (b *SongBuilder) Feel(s string) *SongBuilder {
	b.meta.Feel = s
	return b
}

// Tempo sets the tempo in beats per minute.
func (b *SongBuilder) Tempo(bpm int) *SongBuilder {
	b.meta.Tempo = strconv.Itoa(bpm)
	return b
}

// Repeats sets the number of playback repeats.
func (b *SongBuilder) Repeats(n int) *SongBuilder {
	b.meta.Repeats = strconv.Itoa(n)
	return b
}

// Time writes a time signature.
func (b *SongBuilder) Time(num, den int) *SongBuilder {
	return b.annotate(Time(num, den))
}

// Section writes a rehearsal mark.
func (b *SongBuilder) Section(label string) *SongBuilder {
	return b.annotate(Section(label))
}

// Ending writes an N-th ending marker.
func (b *SongBuilder) Ending(n int) *SongBuilder {
	return b.annotate(Ending(n))
}

// Mark writes a single-glyph annotation such as AnnotSegno or AnnotSmall.
func (b *SongBuilder) Mark(kind AnnotationKind) *SongBuilder {
	if _, ok := markGlyphs[kind]; !ok {
		return b.fail(fmt.Errorf("%w: %s is not a mark", ErrUnencodableCell, kind))
	}
	return b.annotate(Mark(kind))
}

// Comment writes a text annotation.
func (b *SongBuilder) Comment(text string) *SongBuilder {
	return b.annotate(Comment(text))
}

// Chord writes a chord cell.
func (b *SongBuilder) Chord(text string) *SongBuilder {
	c, err := ParseChord(text)
	if err != nil {
		return b.fail(err)
	}
	return b.cell(Cell{Kind: CellChord, Chord: c})
}

// Alt writes an alternate chord. It attaches to the chord just written,
// or stands in its own cell.
func (b *SongBuilder) Alt(text string) *SongBuilder {
	c, err := ParseChord(text)
	if err != nil {
		return b.fail(err)
	}
	return b.feed(Token{Kind: TokenAlternate, Value: c.String(), Offset: -1})
}

// Repeat writes a cell repeating the previous chord.
func (b *SongBuilder) Repeat() *SongBuilder { return b.cell(Cell{Kind: CellRepeatChord}) }

// RepeatMeasure writes a cell repeating the previous measure.
func (b *SongBuilder) RepeatMeasure() *SongBuilder { return b.cell(Cell{Kind: CellRepeatMeasure}) }

// RepeatTwoMeasures writes a cell repeating the previous two measures.
func (b *SongBuilder) RepeatTwoMeasures() *SongBuilder {
	return b.cell(Cell{Kind: CellRepeatTwoMeasures})
}

// NoChord writes a no-chord cell.
func (b *SongBuilder) NoChord() *SongBuilder { return b.cell(Cell{Kind: CellNoChord}) }

// Space writes an empty cell.
func (b *SongBuilder) Space() *SongBuilder { return b.cell(Cell{Kind: CellEmpty}) }

// Comma writes a comma after the last cell.
func (b *SongBuilder) Comma() *SongBuilder {
	return b.feed(Token{Kind: TokenComma, Value: ",", Offset: -1})
}

// Bar writes a barline of any kind.
func (b *SongBuilder) Bar(kind BarlineKind) *SongBuilder {
	if kind == BarNone || int(kind) >= len(barlineGlyphs) {
		return b.fail(fmt.Errorf("%w: invalid barline %d", ErrStructural, kind))
	}
	return b.feed(Token{Kind: TokenBarline, Value: kind.String(), Offset: -1})
}

// Close writes a closing barline.
func (b *SongBuilder) Close(kind BarlineKind) *SongBuilder {
	if !kind.Closes() {
		return b.fail(fmt.Errorf("%w: %q does not close a measure", ErrStructural, kind))
	}
	return b.Bar(kind)
}

// Song finishes the progression and validates the result.
func (b *SongBuilder) Song() (Song, error) {
	if b.err != nil {
		return Song{}, b.err
	}
	measures, err := b.asm.finish()
	if err != nil {
		return Song{}, err
	}
	return Build(b.meta, measures)
}

func (b *SongBuilder) annotate(a Annotation) *SongBuilder {
	if b.err == nil {
		b.asm.annotate(a)
	}
	return b
}

func (b *SongBuilder) cell(c Cell) *SongBuilder {
	if b.err == nil {
		b.asm.addCell(c)
	}
	return b
}

func (b *SongBuilder) feed(tok Token) *SongBuilder {
	if b.err == nil {
		b.err = b.asm.feed(tok)
	}
	return b
}

func (b *SongBuilder) fail(err error) *SongBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

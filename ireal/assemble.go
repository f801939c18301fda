package ireal

import "fmt"

// Assemble groups a token stream into measures.
//
// Opening barlines ([ and {) start a new measure that takes every
// annotation pending since the last cell. Closing barlines (|, ], }, Z)
// end the current measure; section, ending and time markers written
// after its last cell move forward into the next measure. A | that
// arrives before any cell acts as the measure's opening barline. A
// trailing measure without a closing barline is accepted.
func Assemble(tokens []Token) ([]Measure, error) {
	a := &assembler{semAt: -1}
	for _, tok := range tokens {
		if tok.Kind != TokenEscape {
			if err := a.feed(tok); err != nil {
				return nil, err
			}
			continue
		}
		sub, err := (&Lexer{input: tok.Value, base: tok.Offset, literal: true}).Tokenize()
		if err != nil {
			return nil, err
		}
		for _, s := range sub {
			if err := a.feed(s); err != nil {
				return nil, err
			}
		}
	}
	return a.finish()
}

type assembler struct {
	measures []Measure
	cur      Measure
	pending  []Annotation // written after the last cell of cur
	semAt    int          // index of the first section/ending/time in pending
}

func (a *assembler) feed(tok Token) error {
	switch tok.Kind {
	case TokenChord:
		c, _, _ := scanChord(tok.Value, 0)
		a.addCell(Cell{Kind: CellChord, Chord: c})
	case TokenPlaceholder:
		a.addCell(Cell{Kind: placeholderKind(tok.Value[0])})
	case TokenSpace:
		a.addCell(Cell{Kind: CellEmpty})
	case TokenComma:
		if n := len(a.cur.Cells); n > 0 && len(a.pending) == 0 && !a.cur.Cells[n-1].Comma {
			a.cur.Cells[n-1].Comma = true
			return nil
		}
		a.annotate(Annotation{Kind: AnnotRaw, Text: tok.Value})
	case TokenAlternate:
		c, _, _ := scanChord(tok.Value, 0)
		if n := len(a.cur.Cells); n > 0 && len(a.pending) == 0 {
			last := &a.cur.Cells[n-1]
			if last.Kind == CellChord && last.Alt == nil && !last.Comma {
				last.Alt = &c
				return nil
			}
		}
		a.addCell(Cell{Kind: CellAlternate, Alt: &c})
	case TokenBarline:
		kind, _ := ParseBarline(tok.Value)
		if kind.Opens() {
			return a.open(kind, tok)
		}
		return a.close(kind, tok)
	case TokenSection:
		a.annotate(Section(tok.Value[1:]))
	case TokenEnding:
		a.annotate(Ending(int(tok.Value[1] - '0')))
	case TokenTime:
		t, _ := parseTimeGlyph(tok.Value)
		ann := Annotation{Kind: AnnotTime, Time: t}
		if g, _ := t.glyph(); g != tok.Value {
			ann.Text = tok.Value
		}
		a.annotate(ann)
	case TokenMark:
		k, _ := markKind(tok.Value[0])
		a.annotate(Mark(k))
	case TokenComment:
		a.annotate(Comment(tok.Value))
	case TokenRaw:
		a.annotate(Annotation{Kind: AnnotRaw, Text: tok.Value})
	default:
		return &StructureError{Measure: len(a.measures), Offset: tok.Offset, Reason: fmt.Sprintf("unexpected %s token", tok.Kind)}
	}
	return nil
}

func placeholderKind(ch byte) CellKind {
	switch ch {
	case 'p':
		return CellRepeatChord
	case 'x':
		return CellRepeatMeasure
	case 'r':
		return CellRepeatTwoMeasures
	}
	return CellNoChord
}

func (a *assembler) addCell(c Cell) {
	if len(a.pending) > 0 {
		c.Marks = a.pending
	}
	a.pending, a.semAt = nil, -1
	a.cur.Cells = append(a.cur.Cells, c)
}

func (a *assembler) annotate(ann Annotation) {
	if len(a.cur.Cells) == 0 {
		a.cur.Lead = append(a.cur.Lead, ann)
		return
	}
	a.pending = append(a.pending, ann)
	if ann.semantic() && a.semAt < 0 {
		a.semAt = len(a.pending) - 1
	}
}

func (a *assembler) open(kind BarlineKind, tok Token) error {
	if len(a.cur.Cells) > 0 {
		lead := a.pending
		a.pending, a.semAt = nil, -1
		a.push()
		a.cur.Lead = lead
	} else if a.cur.Open != BarNone {
		return &StructureError{Measure: len(a.measures), Offset: tok.Offset, Reason: "opening barline follows an opening barline"}
	}
	a.cur.Open = kind
	a.cur.OpenAt = len(a.cur.Lead)
	return nil
}

func (a *assembler) close(kind BarlineKind, tok Token) error {
	if len(a.cur.Cells) == 0 {
		if kind == BarSingle && a.cur.Open == BarNone {
			a.cur.Open = BarSingle
			a.cur.OpenAt = len(a.cur.Lead)
			return nil
		}
		return &StructureError{Measure: len(a.measures), Offset: tok.Offset, Reason: fmt.Sprintf("%q closes an empty measure", tok.Value)}
	}
	var carry []Annotation
	trailing := a.pending
	if a.semAt >= 0 {
		trailing, carry = a.pending[:a.semAt:a.semAt], a.pending[a.semAt:]
	}
	if len(trailing) > 0 {
		a.cur.Trailing = trailing
	}
	a.cur.Close = kind
	a.pending, a.semAt = nil, -1
	a.push()
	a.cur.Carry = carry
	return nil
}

func (a *assembler) push() {
	a.measures = append(a.measures, a.cur)
	a.cur = Measure{}
}

func (a *assembler) finish() ([]Measure, error) {
	n := len(a.measures)
	if len(a.cur.Cells) > 0 {
		if a.semAt >= 0 {
			return nil, &StructureError{Measure: n, Offset: -1, Reason: fmt.Sprintf("%s annotation has no following measure", a.pending[a.semAt].Kind)}
		}
		if len(a.pending) > 0 {
			a.cur.Trailing = a.pending
		}
		a.push()
		return a.measures, nil
	}

	m := a.cur
	switch {
	case m.Open == BarNone && len(m.Carry) == 0 && len(m.Lead) == 0:
		return a.measures, nil
	case m.Open == BarNone && len(m.Carry) == 0 && n > 0 && !anySemantic(m.Lead):
		a.measures[n-1].After = m.Lead
		return a.measures, nil
	case len(m.Carry) > 0:
		return nil, &StructureError{Measure: n, Offset: -1, Reason: fmt.Sprintf("%s annotation has no following measure", m.Carry[0].Kind)}
	}
	return nil, &StructureError{Measure: n, Offset: -1, Reason: "measure has no cells"}
}

func anySemantic(list []Annotation) bool {
	for _, a := range list {
		if a.semantic() {
			return true
		}
	}
	return false
}

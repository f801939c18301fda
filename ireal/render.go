package ireal

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// renderProgression writes measures as expanded progression text. It
// also returns the offset at which each measure starts.
func renderProgression(ms []Measure) (string, []int, error) {
	var sb strings.Builder
	starts := make([]int, len(ms))

	writeAll := func(list []Annotation, measure, cell int) error {
		for _, a := range list {
			text, reason := a.wire()
			if reason != "" {
				return &CellError{Measure: measure, Cell: cell, Text: text, Reason: reason}
			}
			sb.WriteString(text)
		}
		return nil
	}

	if len(ms) > 0 && len(ms[0].Carry) > 0 {
		return "", nil, &StructureError{Measure: 0, Offset: -1, Reason: "first measure cannot carry annotations"}
	}
	for i, m := range ms {
		starts[i] = sb.Len()
		switch {
		case len(m.Cells) == 0:
			return "", nil, &StructureError{Measure: i, Offset: -1, Reason: "measure has no cells"}
		case m.OpenAt < 0 || m.OpenAt > len(m.Lead):
			return "", nil, &StructureError{Measure: i, Offset: -1, Reason: "opening barline position out of range"}
		case m.Open != BarNone && !m.Open.Opens() && m.Open != BarSingle:
			return "", nil, &StructureError{Measure: i, Offset: -1, Reason: fmt.Sprintf("%q cannot open a measure", m.Open)}
		case m.Close != BarNone && !m.Close.Closes():
			return "", nil, &StructureError{Measure: i, Offset: -1, Reason: fmt.Sprintf("%q cannot close a measure", m.Close)}
		}

		if err := writeAll(m.Lead[:m.OpenAt], i, -1); err != nil {
			return "", nil, err
		}
		sb.WriteString(m.Open.String())
		if err := writeAll(m.Lead[m.OpenAt:], i, -1); err != nil {
			return "", nil, err
		}
		for j, c := range m.Cells {
			if err := writeAll(c.Marks, i, j); err != nil {
				return "", nil, err
			}
			if err := checkCell(c, i, j); err != nil {
				return "", nil, err
			}
			sb.WriteString(c.symbol())
			if c.Alt != nil {
				sb.WriteString("(" + c.Alt.String() + ")")
			}
			if c.Comma {
				sb.WriteByte(',')
			}
		}
		if err := writeAll(m.Trailing, i, -1); err != nil {
			return "", nil, err
		}
		if i+1 < len(ms) {
			if err := writeAll(ms[i+1].Carry, i+1, -1); err != nil {
				return "", nil, err
			}
		}
		sb.WriteString(m.Close.String())
		if err := writeAll(m.After, i, -1); err != nil {
			return "", nil, err
		}
	}
	return sb.String(), starts, nil
}

func checkCell(c Cell, measure, cell int) error {
	fail := func(text, reason string) error {
		return &CellError{Measure: measure, Cell: cell, Text: text, Reason: reason}
	}
	switch c.Kind {
	case CellChord:
		if r := c.Chord.validate(); r != "" {
			return fail(c.Chord.String(), r)
		}
	case CellAlternate:
		if c.Alt == nil {
			return fail("", "alternate cell without a chord")
		}
	case CellEmpty, CellRepeatChord, CellRepeatMeasure, CellRepeatTwoMeasures, CellNoChord:
	default:
		return fail("", fmt.Sprintf("unknown cell kind %d", c.Kind))
	}
	if c.Alt != nil {
		if c.Kind != CellChord && c.Kind != CellAlternate {
			return fail(c.Alt.String(), fmt.Sprintf("alternate chord on a %s cell", c.Kind))
		}
		if r := c.Alt.validate(); r != "" {
			return fail(c.Alt.String(), r)
		}
	}
	return nil
}

// checkRereads verifies that text, rendered from ms, assembles back into
// the same measures. Adjacent items can run together (a chord followed
// by a small-size mark, a raw "L" before a final barline), so the only
// reliable test is to read the text again.
func checkRereads(text string, starts []int, ms []Measure) error {
	measureAt := func(off int) int {
		i, found := slices.BinarySearch(starts, off)
		if !found && i > 0 {
			i--
		}
		return i
	}
	toks, err := NewLexer(text).Tokenize()
	if err == nil {
		var got []Measure
		if got, err = Assemble(toks); err == nil {
			for i := range ms {
				if i >= len(got) {
					return &CellError{Measure: i, Cell: -1, Reason: "measure merges into its predecessor"}
				}
				if cell, same := sameMeasure(ms[i], got[i]); !same {
					return &CellError{Measure: i, Cell: cell, Reason: "does not read back as written"}
				}
			}
			if len(got) > len(ms) {
				return &CellError{Measure: len(ms) - 1, Cell: -1, Reason: "measure splits when read back"}
			}
			return nil
		}
	}
	var syn *SyntaxError
	var st *StructureError
	switch {
	case errors.As(err, &syn):
		return &CellError{Measure: measureAt(syn.Offset), Cell: -1, Reason: "does not read back: " + syn.Reason}
	case errors.As(err, &st):
		return &CellError{Measure: st.Measure, Cell: -1, Reason: "does not read back: " + st.Reason}
	}
	return &CellError{Measure: 0, Cell: -1, Reason: "does not read back: " + err.Error()}
}

// sameMeasure compares the written form of two measures. It returns the
// first differing cell, or -1 when the difference is at measure level.
func sameMeasure(a, b Measure) (int, bool) {
	if a.Open != b.Open || a.Close != b.Close || (a.Open != BarNone && a.OpenAt != b.OpenAt) {
		return -1, false
	}
	for _, pair := range [][2][]Annotation{
		{a.Carry, b.Carry}, {a.Lead, b.Lead}, {a.Trailing, b.Trailing}, {a.After, b.After},
	} {
		if !slices.Equal(pair[0], pair[1]) {
			return -1, false
		}
	}
	for j := range a.Cells {
		if j >= len(b.Cells) {
			return j, false
		}
		x, y := a.Cells[j], b.Cells[j]
		if x.Kind != y.Kind || x.Comma != y.Comma || !slices.Equal(x.Marks, y.Marks) {
			return j, false
		}
		if x.Kind == CellChord && x.Chord != y.Chord {
			return j, false
		}
		if (x.Alt == nil) != (y.Alt == nil) || (x.Alt != nil && *x.Alt != *y.Alt) {
			return j, false
		}
	}
	if len(b.Cells) > len(a.Cells) {
		return len(a.Cells), false
	}
	return -1, true
}

// escapeCanonical replaces every macro literal with its code, in
// canonical order.
func escapeCanonical(s string) string {
	for _, m := range escapeMacros {
		s = replaceMacro(s, m)
	}
	return s
}

// replaceMacro replaces m.text with m.code, except right after a '*',
// where the code's lead would read as a section label.
func replaceMacro(s string, m escapeMacro) string {
	var b strings.Builder
	b.Grow(len(s))
	for {
		i := strings.Index(s, m.text)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		if strings.HasSuffix(b.String(), "*") {
			b.WriteByte(s[i])
			s = s[i+1:]
			continue
		}
		b.WriteString(m.code)
		s = s[i+len(m.text):]
	}
}

// applyEscapes writes the recorded spans back into expanded text.
func applyEscapes(s string, spans []EscapeSpan) string {
	if len(spans) == 0 {
		return s
	}
	b := []byte(s)
	for _, sp := range spans {
		copy(b[sp.At:], sp.Code)
	}
	return string(b)
}

// expandEscapes is the inverse of applyEscapes.
func expandEscapes(s string, spans []EscapeSpan) string {
	if len(spans) == 0 {
		return s
	}
	b := []byte(s)
	for _, sp := range spans {
		m, _ := matchEscape(sp.Code)
		copy(b[sp.At:], m.text)
	}
	return string(b)
}

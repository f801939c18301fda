package ireal

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Metadata is the raw text of a song's non-progression fields.
type Metadata struct {
	Title     string
	Composer  string
	Style     string
	Key       string
	Transpose string
	Feel      string
	Tempo     string
	Repeats   string
}

// Build validates metadata and measures and produces a Song. Every p
// placeholder is resolved to the chord it repeats and every cell gets
// its effective display size. The measures passed in are not modified.
func Build(meta Metadata, measures []Measure) (Song, error) {
	for _, f := range [...]struct{ name, value string }{
		{"title", meta.Title},
		{"style", meta.Style},
		{"key", meta.Key},
	} {
		if strings.TrimSpace(f.value) == "" {
			return Song{}, &FieldError{Field: f.name, Err: ErrMissingField}
		}
	}
	key, err := ParseKey(meta.Key)
	if err != nil {
		return Song{}, err
	}
	tempo, err := parseCount("tempo", meta.Tempo)
	if err != nil {
		return Song{}, err
	}
	repeats, err := parseCount("repeats", meta.Repeats)
	if err != nil {
		return Song{}, err
	}
	if len(measures) == 0 {
		return Song{}, &FieldError{Field: "progression", Err: ErrMissingField}
	}

	song := Song{
		Title:     meta.Title,
		Composer:  meta.Composer,
		Style:     meta.Style,
		Key:       key,
		Transpose: meta.Transpose,
		Feel:      meta.Feel,
		Tempo:     tempo,
		Repeats:   repeats,
		Measures:  make([]Measure, len(measures)),
	}

	var r resolver
	for i, m := range measures {
		if len(m.Cells) == 0 {
			return Song{}, &StructureError{Measure: i, Offset: -1, Reason: "measure has no cells"}
		}
		if err := r.apply(i, m.Carry, m.Lead); err != nil {
			return Song{}, err
		}
		m.Cells = slices.Clone(m.Cells)
		for j := range m.Cells {
			c := &m.Cells[j]
			if err := r.apply(i, c.Marks); err != nil {
				return Song{}, err
			}
			c.Small = r.small
			switch c.Kind {
			case CellChord:
				r.chord, r.haveChord = c.Chord, true
			case CellRepeatChord:
				if !r.haveChord {
					return Song{}, &RepeatError{Measure: i, Cell: j, Symbol: "p"}
				}
				c.Chord = r.chord
			case CellRepeatMeasure:
				if i < 1 {
					return Song{}, &RepeatError{Measure: i, Cell: j, Symbol: "x"}
				}
			case CellRepeatTwoMeasures:
				if i < 2 {
					return Song{}, &RepeatError{Measure: i, Cell: j, Symbol: "r"}
				}
			}
		}
		if err := r.apply(i, m.Trailing, m.After); err != nil {
			return Song{}, err
		}
		song.Measures[i] = m
	}
	song.TimeSignatures = r.times
	return song, nil
}

// resolver carries the state that flows forward through a progression.
type resolver struct {
	chord     Chord
	haveChord bool
	small     bool
	times     []TimeSignatureChange
}

func (r *resolver) apply(measure int, lists ...[]Annotation) error {
	for _, list := range lists {
		for _, a := range list {
			switch a.Kind {
			case AnnotSmall:
				r.small = true
			case AnnotLarge:
				r.small = false
			case AnnotTime:
				if !a.Time.Valid() {
					return &FieldError{Field: "time signature", Value: a.Time.String(), Err: ErrInvalidTimeSignature}
				}
				if n := len(r.times); n > 0 && r.times[n-1].Measure == measure {
					return &FieldError{
						Field: "time signature",
						Value: fmt.Sprintf("%s in measure %d", a.Time, measure),
						Err:   ErrInvalidTimeSignature,
					}
				}
				r.times = append(r.times, TimeSignatureChange{Measure: measure, TimeSignature: a.Time})
			}
		}
	}
	return nil
}

func parseCount(field, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, &FieldError{Field: field, Value: s, Err: ErrMalformedProtocol}
	}
	return n, nil
}

package ireal

// Key is a song's key signature. Minor keys are written with a trailing
// "-" ("C-"); a trailing "m" is accepted on input.
type Key struct {
	Root       Note
	Accidental Accidental
	Minor      bool
}

func (k Key) String() string {
	s := k.Root.String() + k.Accidental.String()
	if k.Minor {
		s += "-"
	}
	return s
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool { return k == Key{} }

// ParseKey parses a key such as "C", "Bb", "F#-" or "Ebm".
func ParseKey(s string) (Key, error) {
	fail := &FieldError{Field: "key", Value: s, Err: ErrInvalidKey}
	if s == "" || !isPitch(s[0]) {
		return Key{}, fail
	}
	k := Key{Root: Note(s[0])}
	i := 1
	if i < len(s) && (s[i] == '#' || s[i] == 'b') {
		k.Accidental = Accidental(s[i])
		i++
	}
	if i < len(s) && (s[i] == '-' || s[i] == 'm') {
		k.Minor = true
		i++
	}
	if i != len(s) {
		return Key{}, fail
	}
	return k, nil
}

package ireal

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// DecodeSong decodes a URL that holds exactly one song.
func DecodeSong(url string) (Song, error) {
	pl, err := DecodePlaylist(url)
	if err != nil {
		return Song{}, err
	}
	if n := len(pl.Items); n != 1 {
		return Song{}, &BundleError{Index: -1, Reason: fmt.Sprintf("URL holds %d songs, want 1", n)}
	}
	return pl.Items[0].Song, nil
}

// DecodePlaylist decodes an irealb or irealbook URL. The first error
// encountered is returned; use Split for per-entry recovery.
func DecodePlaylist(url string) (Playlist, error) {
	env, err := Unwrap(url)
	if err != nil {
		return Playlist{}, err
	}
	var b *Bundle
	if env.Variant == VariantSong {
		b, err = splitBook(env.Payload)
	} else {
		b, err = Split(env.Payload)
	}
	if err != nil {
		return Playlist{}, err
	}

	pl := Playlist{
		Name:  b.Name,
		Items: make([]PlaylistItem, len(b.Entries)),
		src:   &playlistSource{variant: env.Variant, escaping: env.Escaping, named: b.Named},
	}
	for i, e := range b.Entries {
		song, err := decodeEntry(e.Payload, env.Variant)
		if err != nil {
			return Playlist{}, fmt.Errorf("song %d: %w", e.Index, err)
		}
		song.src.escaping = env.Escaping
		song.src.name, song.src.named = b.Name, b.Named
		pl.Items[i] = PlaylistItem{Song: song, Checksum: e.Checksum}
	}
	return pl, nil
}

func decodeEntry(payload string, v Variant) (Song, error) {
	fields := strings.Split(payload, "=")
	meta, music := readFields(fields, v)
	progression := music
	if v == VariantPlaylist {
		progression = Scramble(strings.TrimPrefix(music, MusicPrefix))
	}

	lx := NewLexer(progression)
	toks, err := lx.Tokenize()
	if err != nil {
		return Song{}, err
	}
	measures, err := Assemble(toks)
	if err != nil {
		return Song{}, err
	}
	song, err := Build(meta, measures)
	if err != nil {
		return Song{}, err
	}
	song.src = &source{
		variant:  v,
		fields:   fields,
		canon:    canonicalFields(song, v),
		expanded: expandEscapes(progression, lx.Escapes()),
		escapes:  lx.Escapes(),
	}
	return song, nil
}

func readFields(f []string, v Variant) (Metadata, string) {
	get := func(i int) string {
		if i < len(f) {
			return f[i]
		}
		return ""
	}
	if v == VariantSong {
		return Metadata{
			Title:    get(0),
			Composer: get(1),
			Style:    get(2),
			Key:      get(3),
		}, get(songMusic)
	}
	return Metadata{
		Title:     get(0),
		Composer:  get(1),
		Style:     get(3),
		Key:       get(4),
		Transpose: get(5),
		Feel:      get(7),
		Tempo:     get(8),
		Repeats:   get(9),
	}, get(playlistMusic)
}

// canonicalFields returns the field text of s with the music field left
// empty.
func canonicalFields(s Song, v Variant) []string {
	if v == VariantSong {
		return []string{s.Title, s.Composer, s.Style, s.Key.String(), "n", ""}
	}
	return []string{
		s.Title, s.Composer, "", s.Style, s.Key.String(), s.Transpose, "",
		s.Feel, strconv.Itoa(s.Tempo), strconv.Itoa(s.Repeats),
	}
}

// Encode encodes a single song as a URL of the scheme it was decoded
// from. A constructed song is encoded as irealb.
func Encode(song Song) (string, error) {
	return EncodeAs(song, song.Variant())
}

// EncodeAs encodes a single song as a URL of the given scheme.
func EncodeAs(song Song, v Variant) (string, error) {
	if v != VariantPlaylist && v != VariantSong {
		return "", fmt.Errorf("%w: %s", ErrUnknownScheme, v)
	}
	payload, err := encodeEntry(song, v)
	if err != nil {
		return "", err
	}
	var esc Escaping
	if src := song.src; src != nil && src.variant == v {
		esc = src.escaping
		if v == VariantPlaylist && src.named {
			entry := Entry{Payload: payload, Checksum: Checksum(payload)}
			if payload, err = Join(&Bundle{Name: src.name, Named: true, Entries: []Entry{entry}}); err != nil {
				return "", err
			}
		}
	}
	return esc.Wrap(payload, v), nil
}

// EncodePlaylist encodes a playlist. It fails with ErrMalformedBundle
// when an item's recorded checksum does not match the payload its song
// encodes to; use SetSong to replace a song.
func EncodePlaylist(pl Playlist) (string, error) {
	v := pl.Variant()
	if len(pl.Items) == 0 {
		return "", &BundleError{Index: -1, Reason: "no songs"}
	}
	entries := make([]Entry, len(pl.Items))
	for i, it := range pl.Items {
		payload, err := encodeEntry(it.Song, v)
		if err != nil {
			return "", fmt.Errorf("song %d: %w", i, err)
		}
		sum := Checksum(payload)
		if it.Checksum != "" && it.Checksum != sum {
			return "", &BundleError{Index: i, Reason: fmt.Sprintf("recorded checksum %s, re-encoded payload hashes to %s", it.Checksum, sum)}
		}
		entries[i] = Entry{Index: i, Payload: payload, Checksum: sum}
	}

	var esc Escaping
	if pl.src != nil && pl.src.variant == v {
		esc = pl.src.escaping
	}
	if v == VariantSong {
		if pl.Name != "" {
			return "", &FieldError{Field: "playlist name", Value: pl.Name, Err: ErrUnencodableField}
		}
		parts := make([]string, len(entries))
		for i, e := range entries {
			parts[i] = e.Payload
		}
		return esc.Wrap(strings.Join(parts, "="), v), nil
	}

	if strings.Contains(pl.Name, SongSeparator) {
		return "", &FieldError{Field: "playlist name", Value: pl.Name, Err: ErrUnencodableField}
	}
	named := pl.Name != "" || len(entries) != 1
	if pl.src != nil && pl.src.named {
		named = true
	}
	payload, err := Join(&Bundle{Name: pl.Name, Named: named, Entries: entries})
	if err != nil {
		return "", err
	}
	return esc.Wrap(payload, v), nil
}

func encodeEntry(song Song, v Variant) (string, error) {
	if err := checkFields(song); err != nil {
		return "", err
	}
	// An empty composer next to the unused field would read as "===".
	if v == VariantPlaylist && song.Composer == "" {
		return "", &FieldError{Field: "composer", Err: ErrUnencodableField}
	}
	expanded, starts, err := renderProgression(song.Measures)
	if err != nil {
		return "", err
	}

	src := song.src
	if src != nil && src.variant != v {
		src = nil
	}
	var music string
	if src != nil && src.expanded == expanded {
		music = applyEscapes(expanded, src.escapes)
	} else {
		if err := checkRereads(expanded, starts, song.Measures); err != nil {
			return "", err
		}
		// Macros expand to text of their own length, so starts hold for
		// the escaped form too.
		music = escapeCanonical(expanded)
		if checkRereads(music, starts, song.Measures) != nil {
			music = expanded
		}
	}
	musicAt := songMusic
	if v == VariantPlaylist {
		music = MusicPrefix + Scramble(music)
		musicAt = playlistMusic
	}

	fields := canonicalFields(song, v)
	if src != nil {
		for i := range fields {
			if i < len(src.fields) && fields[i] == src.canon[i] {
				fields[i] = src.fields[i]
			}
		}
		if n := len(src.fields); n < len(fields) && slices.Equal(fields[n:], src.canon[n:]) {
			fields = fields[:n]
		}
	}
	fields[musicAt] = music
	return strings.Join(fields, "="), nil
}

func checkFields(s Song) error {
	for _, f := range [...]struct{ name, value string }{
		{"title", s.Title},
		{"style", s.Style},
	} {
		if strings.TrimSpace(f.value) == "" {
			return &FieldError{Field: f.name, Err: ErrMissingField}
		}
	}
	if s.Key.IsZero() {
		return &FieldError{Field: "key", Err: ErrMissingField}
	}
	if _, err := ParseKey(s.Key.String()); err != nil {
		return err
	}
	for _, f := range [...]struct{ name, value string }{
		{"title", s.Title},
		{"composer", s.Composer},
		{"style", s.Style},
		{"transpose", s.Transpose},
		{"feel", s.Feel},
	} {
		if strings.Contains(f.value, "=") {
			return &FieldError{Field: f.name, Value: f.value, Err: ErrUnencodableField}
		}
	}
	if s.Tempo < 0 {
		return &FieldError{Field: "tempo", Value: strconv.Itoa(s.Tempo), Err: ErrUnencodableField}
	}
	if s.Repeats < 0 {
		return &FieldError{Field: "repeats", Value: strconv.Itoa(s.Repeats), Err: ErrUnencodableField}
	}
	return nil
}

// Equal reports whether two songs have the same content, ignoring where
// they were decoded from.
func (s Song) Equal(o Song) bool {
	s.src, o.src = nil, nil
	return reflect.DeepEqual(s, o)
}

// SetSong replaces the i-th song and clears its recorded checksum.
func (p *Playlist) SetSong(i int, s Song) {
	p.Items[i] = PlaylistItem{Song: s}
}

// Find returns the first song whose title matches title under Unicode
// case folding.
func (p Playlist) Find(title string) (Song, bool) {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(title))
	for _, it := range p.Items {
		if fold.String(strings.TrimSpace(it.Song.Title)) == want {
			return it.Song, true
		}
	}
	return Song{}, false
}

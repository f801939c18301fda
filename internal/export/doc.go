// Package export converts songs and playlists to plain documents and
// back.
//
// A SongDoc is an exported view of an ireal.Song: metadata, then one
// MeasureDoc per measure with its barlines, markers and cells. The same
// shape is read back through ireal.SongBuilder, so a chart can be
// written by hand in YAML or JSON and encoded to an iReal Pro URL.
// Import does not restore the exact progression text of a decoded song;
// only the musical content survives.
//
// Documents marshal to JSON, YAML or CBOR. CBOR uses core deterministic
// encoding, so the same song always produces the same bytes.
package export

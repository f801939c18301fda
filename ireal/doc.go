// Package ireal implements a codec for the iReal Pro chord-chart
// interchange format.
//
// iReal Pro exchanges charts as URLs:
//
//	irealbook://Title=Composer=Style=Key=n=Progression
//	irealb://Title=Composer==Style=Key==1r34LbKcu7<obfuscated>=Feel=Tempo=Repeats===...===Name
//
// The irealbook form carries one or more plain songs of six fields each.
// The irealb form carries a playlist: songs separated by "===", an
// optional trailing playlist name, and a music field whose body is
// obfuscated in 50-byte blocks after the magic tag "1r34LbKcu7".
//
// # Pipeline
//
// Decoding runs the URL through a fixed chain of stages, each usable on
// its own:
//
//	Unwrap    scheme prefix and percent-escaping
//	Split     playlist entries, per-entry checksums
//	Lexer     progression text to tokens (escape macros Kcl, LZ, XyQ)
//	Assemble  tokens to measures
//	Build     metadata and measures to a validated Song
//
// Encoding is the exact inverse. A Song that came out of a decode keeps
// enough provenance (original field text, escape spans, escaping profile)
// to re-encode byte-for-byte; a Song assembled with SongBuilder is
// encoded in canonical form.
//
// # Progression Syntax
//
//	Chords:       C^7  A-7  Bb7(A7b9)  D-/C  Wsus/G
//	Barlines:     |  [  ]  {  }  Z
//	Sections:     *A *B *i *v
//	Endings:      N1 N2 N3
//	Time:         T44 T34 T12 (12/8)
//	Placeholders: p (repeat chord)  x (repeat measure)  r (repeat two)  n (no chord)
//	Marks:        S Q f U Y s l
//	Comments:     <D.C. al Coda>
//
// # Concurrency
//
// Every exported function is a pure transformation of its arguments.
// Decoded values are never mutated afterwards and may be shared freely
// between goroutines.
package ireal

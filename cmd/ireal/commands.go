package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Neumenon/ireal/internal/corpus"
	"github.com/Neumenon/ireal/internal/export"
	"github.com/Neumenon/ireal/ireal"
	"github.com/Neumenon/ireal/stream"
)

// cmdDecode: URL -> playlist (or song) document
func cmdDecode(args []string) error {
	s := newSession("decode")
	format := s.flags.String("format", "", "output format: json, yaml or cbor (default from config)")
	title := s.flags.String("title", "", "print only the song with this title")
	if err := s.parse(args); err != nil {
		return err
	}
	f, err := export.ParseFormat(pick(*format, s.cfg.Output.Format))
	if err != nil {
		return err
	}
	data, err := readInput(s.flags.Args())
	if err != nil {
		return err
	}

	pl, err := ireal.DecodePlaylist(strings.TrimSpace(string(data)))
	if err != nil {
		return err
	}
	s.logger.Debug("decoded playlist", "name", pl.Name, "songs", len(pl.Items), "scheme", pl.Variant())

	var doc any = export.FromPlaylist(pl)
	if *title != "" {
		song, ok := pl.Find(*title)
		if !ok {
			return fmt.Errorf("no song titled %q", *title)
		}
		doc = export.FromSong(song)
	}
	out, err := export.Marshal(doc, f)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// cmdEncode: chart document -> URL
func cmdEncode(args []string) error {
	s := newSession("encode")
	format := s.flags.String("format", "", "input format: json, yaml or cbor (default from file extension, else yaml)")
	scheme := s.flags.String("scheme", "irealb", "URL scheme of a single-song chart: irealb or irealbook")
	if err := s.parse(args); err != nil {
		return err
	}
	rest := s.flags.Args()
	name := *format
	if name == "" {
		name = "yaml"
		if len(rest) == 1 && rest[0] != "-" {
			if f, err := export.FormatForPath(strings.TrimSuffix(rest[0], ".zst")); err == nil {
				name = string(f)
			}
		}
	}
	f, err := export.ParseFormat(name)
	if err != nil {
		return err
	}
	data, err := readInput(rest)
	if err != nil {
		return err
	}

	var doc export.PlaylistDoc
	if err := export.Unmarshal(data, f, &doc); err != nil {
		return fmt.Errorf("reading chart: %w", err)
	}
	if len(doc.Songs) == 0 {
		var song export.SongDoc
		if err := export.Unmarshal(data, f, &song); err != nil || song.Title == "" {
			return errors.New("chart holds no songs")
		}
		doc.Songs = []export.SongDoc{song}
	}
	pl, err := doc.Playlist()
	if err != nil {
		return err
	}

	var url string
	switch *scheme {
	case "irealb":
		url, err = ireal.EncodePlaylist(pl)
	case "irealbook":
		if len(pl.Items) != 1 || pl.Name != "" {
			return errors.New("irealbook URLs hold a single unnamed song")
		}
		url, err = ireal.EncodeAs(pl.Items[0].Song, ireal.VariantSong)
	default:
		return fmt.Errorf("unknown scheme %q", *scheme)
	}
	if err != nil {
		return err
	}
	fmt.Println(url)
	return nil
}

// cmdSplit: irealb URLs -> entry frames, one stream ID per URL
func cmdSplit(args []string) error {
	s := newSession("split")
	compression := s.flags.String("compression", "", "frame compression: none, zstd or lz4 (default from config)")
	digest := s.flags.Bool("digest", false, "add a BLAKE3 digest to every frame")
	if err := s.parse(args); err != nil {
		return err
	}
	c, err := stream.ParseCompression(pick(*compression, s.cfg.Output.Compression))
	if err != nil {
		return err
	}
	data, err := readInput(s.flags.Args())
	if err != nil {
		return err
	}
	urls := corpus.Extract(data)
	if len(urls) == 0 {
		return errors.New("no iReal Pro URLs in input")
	}

	opts := []stream.WriterOption{stream.WithCompression(c)}
	if *digest || s.cfg.Output.Digest {
		opts = append(opts, stream.WithDigest())
	}
	bw := bufio.NewWriter(os.Stdout)
	w := stream.NewWriter(bw, opts...)
	for sid, url := range urls {
		env, err := ireal.Unwrap(url)
		if err != nil {
			return fmt.Errorf("url %d: %w", sid, err)
		}
		if env.Variant != ireal.VariantPlaylist {
			return fmt.Errorf("url %d: only %s URLs split into entries", sid, ireal.VariantPlaylist)
		}
		b, err := ireal.Split(env.Payload)
		if err != nil {
			return fmt.Errorf("url %d: %w", sid, err)
		}
		if err := stream.WriteBundle(w, uint64(sid), b); err != nil {
			return fmt.Errorf("url %d: %w", sid, err)
		}
		s.logger.Debug("split bundle", "sid", sid, "entries", len(b.Entries), "name", b.Name)
	}
	return bw.Flush()
}

// cmdJoin: entry frames -> irealb URLs, canonically escaped
func cmdJoin(args []string) error {
	s := newSession("join")
	if err := s.parse(args); err != nil {
		return err
	}
	data, err := readInput(s.flags.Args())
	if err != nil {
		return err
	}
	bundles, err := stream.ReadBundles(stream.NewReader(bytes.NewReader(data)))
	if err != nil {
		return err
	}
	for _, b := range bundles {
		payload, err := ireal.Join(b)
		if err != nil {
			return err
		}
		fmt.Println(ireal.Wrap(payload, ireal.VariantPlaylist))
	}
	return nil
}

// cmdFrames: print entry frames
func cmdFrames(args []string) error {
	s := newSession("frames")
	if err := s.parse(args); err != nil {
		return err
	}
	data, err := readInput(s.flags.Args())
	if err != nil {
		return err
	}
	reader := stream.NewReader(bytes.NewReader(data))
	frames, err := reader.ReadAll()
	for i, f := range frames {
		printFrame(i+1, f)
	}
	fmt.Fprintf(os.Stderr, "\n--- %d frames decoded ---\n", len(frames))
	return err
}

func printFrame(n int, f *stream.Frame) {
	fmt.Printf("--- Frame %d ---\n", n)
	fmt.Printf("  sid=%d seq=%d kind=%s len=%d\n", f.SID, f.Seq, f.Kind, len(f.Payload))

	if f.CRC != nil {
		fmt.Printf("  crc=%s\n", stream.FormatCRC(*f.CRC))
	}
	if f.Compression != stream.CompressionNone {
		fmt.Printf("  enc=%s\n", f.Compression)
	}
	if f.Digest != nil {
		fmt.Printf("  sum=blake3:%s\n", f.Digest)
	}
	if f.Final {
		fmt.Printf("  final=true\n")
	}

	// Print payload (truncated if long)
	payload := string(f.Payload)
	if len(payload) > 200 {
		payload = payload[:200] + "..."
	}
	if len(payload) > 0 {
		fmt.Printf("  payload: %s\n", payload)
	}
}

// cmdRoundtrip: check every URL under the given paths
func cmdRoundtrip(args []string) error {
	s := newSession("roundtrip")
	reportPath := s.flags.String("report", "", "write the full report to this file")
	workers := s.flags.Int("workers", 0, "files checked at once (default from config)")
	if err := s.parse(args); err != nil {
		return err
	}
	paths := s.flags.Args()
	if len(paths) == 0 {
		paths = s.cfg.Corpus.Paths
	}
	h := &corpus.Harness{
		Workers:    s.cfg.Corpus.Workers,
		Extensions: s.cfg.Corpus.Extensions,
		Logger:     s.logger,
	}
	if *workers > 0 {
		h.Workers = *workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	report, err := h.Run(ctx, paths)
	if err != nil {
		return err
	}

	if *reportPath != "" {
		f, err := export.FormatForPath(*reportPath)
		if err != nil {
			f = export.JSON
		}
		out, err := export.Marshal(report, f)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*reportPath, out, 0o644); err != nil {
			return err
		}
	}

	fmt.Printf("%s files (%s), %s songs: %d exact, %d equivalent, %d failed in %s\n",
		humanize.Comma(int64(len(report.Files))), humanize.Bytes(report.Bytes()),
		humanize.Comma(int64(report.Songs)),
		report.Exact, report.Equivalent, report.Failed, report.Duration.Round(time.Millisecond))
	for _, r := range report.Failures {
		fmt.Printf("  %s #%d: %s\n", r.File, r.Index, r.Error)
	}
	if !report.OK() {
		return errors.New("round trip failures")
	}
	return nil
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
